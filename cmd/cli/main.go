package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HoltermanP/VermogenVitaal/internal/analysis"
	"github.com/HoltermanP/VermogenVitaal/internal/audit"
	"github.com/HoltermanP/VermogenVitaal/internal/gcsuploader"
	infraBQ "github.com/HoltermanP/VermogenVitaal/internal/infra/bigquery"
	"github.com/HoltermanP/VermogenVitaal/internal/ingest"
	"github.com/HoltermanP/VermogenVitaal/internal/logger"
)

func main() {
	log := logger.New()
	ingest.SetLogger(log)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse":
		runParse(log)
	case "upload":
		runUpload(log)
	case "inspect":
		runInspect(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("VermogenVitaal CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse     Parse a local CSV or XAF file and print the transactions")
	fmt.Println("  upload    Upload an administration file and run the parse pipeline")
	fmt.Println("  inspect   Inspect an audit and its transactions")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// runParse parses a local file without touching GCS or BigQuery. Useful for
// checking what an administration export looks like before uploading it.
func runParse(log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a local .csv, .xaf or .xml file")
	asJSON := fs.Bool("json", false, "Print transactions and summary as JSON")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	format, err := audit.FormatFromFilename(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Unsupported file")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}

	txs, err := audit.ParseText(format, string(data))
	if err != nil {
		log.Fatal().Err(err).Msg("Parse failed")
	}
	summary := ingest.Summarize(txs)

	if *asJSON {
		out, err := json.MarshalIndent(map[string]interface{}{
			"transactions": txs,
			"summary":      summary,
		}, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to marshal output")
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("\n=== Transactions (%d) ===\n", len(txs))
	for i, tx := range txs {
		fmt.Printf("\n%d. %s\n", i+1, tx.Description)
		fmt.Printf("   Date:   %s\n", tx.Date)
		fmt.Printf("   Amount: %.2f\n", tx.Amount)
		if tx.Type != "" {
			fmt.Printf("   Type:   %s\n", tx.Type)
		}
		if tx.VAT != "" {
			fmt.Printf("   VAT:    %s\n", tx.VAT)
		}
	}
	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Revenue:  %.2f\n", summary.TotalRevenue)
	fmt.Printf("Expenses: %.2f\n", summary.TotalExpenses)
	fmt.Printf("Period:   %s\n", summary.DateRange)
	fmt.Println()
}

// runUpload uploads a local file to GCS, records the audit and runs the
// parse pipeline synchronously.
func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name (or set GCS_BUCKET env)")
	filePath := fs.String("file", "", "Path to a local .csv, .xaf or .xml file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	filename := filepath.Base(*filePath)
	format, err := audit.FormatFromFilename(filename)
	if err != nil {
		log.Fatal().Err(err).Msg("Unsupported file")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}
	if len(data) == 0 {
		log.Fatal().Msg("File is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	auditID := uuid.NewString()
	objectName := fmt.Sprintf("uploads/%s/%s-%s", time.Now().Format("2006/01/02"), auditID, filename)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	gcsURI, err := gcsuploader.UploadBytes(ctx, *bucketName, objectName, data)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	repo, err := infraBQ.NewRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	row := &infraBQ.AuditRow{
		AuditID:          auditID,
		GCSURI:           gcsURI,
		OriginalFilename: filename,
		FileFormat:       format,
		Status:           infraBQ.AuditStatusUploaded,
		UploadTS:         time.Now(),
	}
	if err := repo.InsertAudit(ctx, row); err != nil {
		log.Fatal().Err(err).Msg("Failed to record audit")
	}

	svc := audit.NewService(repo, gcsuploader.NewGCSStorageService(), analysis.NewGeminiAnalyzer(""))
	if err := svc.ParseUpload(ctx, auditID, gcsURI, format, filename); err != nil {
		log.Fatal().Err(err).Msg("Parse pipeline failed")
	}

	fmt.Printf("Uploaded and parsed %s\nAudit ID: %s\nGCS URI:  %s\n", filename, auditID, gcsURI)
}

// runInspect prints an audit's status and its stored transactions.
func runInspect(log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	auditID := fs.String("audit-id", "", "Audit ID to inspect")
	fs.Parse(os.Args[2:])

	if *auditID == "" {
		log.Fatal().Msg("Error: --audit-id is required")
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	row, err := repo.GetAudit(ctx, *auditID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get audit")
	}
	if row == nil {
		log.Fatal().Msg("Audit not found")
	}

	fmt.Println("\n=== Audit Details ===")
	fmt.Printf("ID:       %s\n", row.AuditID)
	fmt.Printf("File:     %s (%s)\n", row.OriginalFilename, row.FileFormat)
	fmt.Printf("GCS URI:  %s\n", row.GCSURI)
	fmt.Printf("Uploaded: %s\n", row.UploadTS)
	fmt.Printf("Status:   %s\n", row.Status)
	if row.ErrorMessage.Valid {
		fmt.Printf("Error:    %s\n", row.ErrorMessage.StringVal)
	}

	rows, err := repo.ListTransactionsByAudit(ctx, *auditID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	fmt.Printf("\n=== Transactions (%d) ===\n", len(rows))
	for i, txn := range rows {
		tx := txn.ToTransaction()
		fmt.Printf("\n%d. %s\n", i+1, tx.Description)
		fmt.Printf("   Date:   %s\n", tx.Date)
		fmt.Printf("   Amount: %.2f\n", tx.Amount)
		if tx.Category != "" {
			fmt.Printf("   Category: %s\n", tx.Category)
		}
		if tx.VAT != "" {
			fmt.Printf("   VAT:      %s\n", tx.VAT)
		}
	}
	fmt.Println()
}
