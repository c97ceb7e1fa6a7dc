package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/HoltermanP/VermogenVitaal/internal/logger"
)

// Migration is a single versioned migration file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// migrationPattern matches versioned migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

var (
	projectID     = flag.String("project", os.Getenv("BQ_PROJECT_ID"), "GCP project ID (or set BQ_PROJECT_ID env)")
	datasetID     = flag.String("dataset", envOr("BQ_DATASET_ID", "administratie"), "BigQuery dataset ID")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name recorded with each applied migration")
	migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	flag.Parse()

	log := logger.ForComponent("migrate")
	ctx := context.Background()

	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag or BQ_PROJECT_ID env is required")
	}

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	if err := ensureSchemaMigrationsTable(ctx, client); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema_migrations table")
	}

	migrations, err := readMigrations(*migrationsDir, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	appliedVersions, err := appliedMigrationVersions(ctx, client)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read applied migrations")
	}

	appliedCount := 0
	for _, m := range migrations {
		if appliedVersions[m.Version] {
			log.Info().Str("migration", m.Filename).Msg("Already applied, skipping")
			continue
		}

		log.Info().Str("migration", m.Filename).Msg("Applying")
		if err := runStatement(ctx, client, m.SQL, nil); err != nil {
			log.Fatal().Err(err).Str("migration", m.Filename).Msg("Migration failed")
		}
		if err := recordMigration(ctx, client, m); err != nil {
			log.Fatal().Err(err).Str("migration", m.Filename).Msg("Failed to record migration")
		}
		appliedCount++
	}

	if appliedCount == 0 {
		log.Info().Msg("No new migrations to apply")
	} else {
		log.Info().Int("applied", appliedCount).Msg("Migrations applied")
	}
}

func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client) error {
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s.%s.schema_migrations` ("+
		"version INT64 NOT NULL, "+
		"name STRING NOT NULL, "+
		"applied_at TIMESTAMP NOT NULL, "+
		"checksum STRING, "+
		"applied_by STRING)",
		*projectID, *datasetID)
	return runStatement(ctx, client, stmt, nil)
}

// readMigrations loads the migration files in version order, substituting
// the project and dataset placeholders. The checksum covers the original
// content so the same migration matches across environments.
func readMigrations(dir, project, dataset string) ([]Migration, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		dir = filepath.Join("../..", dir)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return nil, fmt.Errorf("migrations directory not found: %s", dir)
		}
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := migrationPattern.FindStringSubmatch(file.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file.Name(), err)
		}

		stmt := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", project)
		stmt = strings.ReplaceAll(stmt, "{{DATASET_ID}}", dataset)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: file.Name(),
			SQL:      stmt,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func appliedMigrationVersions(ctx context.Context, client *bigquery.Client) (map[int]bool, error) {
	stmt := fmt.Sprintf("SELECT version FROM `%s.%s.schema_migrations` ORDER BY version",
		*projectID, *datasetID)

	it, err := client.Query(stmt).Read(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "Not found") {
			return map[int]bool{}, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	applied := make(map[int]bool)
	for {
		var row struct {
			Version int64
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}
		applied[int(row.Version)] = true
	}
	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, m Migration) error {
	stmt := fmt.Sprintf("INSERT INTO `%s.%s.schema_migrations` "+
		"(version, name, applied_at, checksum, applied_by) "+
		"VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)",
		*projectID, *datasetID)
	params := []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: *appliedBy},
	}
	return runStatement(ctx, client, stmt, params)
}

func runStatement(ctx context.Context, client *bigquery.Client, stmt string, params []bigquery.QueryParameter) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	q := client.Query(stmt)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
