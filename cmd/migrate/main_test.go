package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_init_tables.sql", true, "0001", "init_tables"},
		{"0012_add_analysis_runs.sql", true, "0012", "add_analysis_runs"},
		{"001_too_short.sql", false, "", ""},
		{"0001_missing_ext", false, "", ""},
		{"0001.sql", false, "", ""},
		{"notes.txt", false, "", ""},
	}

	for _, tt := range tests {
		matches := migrationPattern.FindStringSubmatch(tt.filename)
		if !tt.valid {
			if matches != nil {
				t.Errorf("%s matched but should not", tt.filename)
			}
			continue
		}
		if matches == nil {
			t.Errorf("%s did not match", tt.filename)
			continue
		}
		if matches[1] != tt.version || matches[2] != tt.name {
			t.Errorf("%s parsed as (%s, %s), want (%s, %s)",
				tt.filename, matches[1], matches[2], tt.version, tt.name)
		}
	}
}

func TestReadMigrationsOrderAndSubstitution(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("0002_second.sql", "SELECT 2")
	write("0001_first.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.audits` (audit_id STRING)")
	write("README.md", "not a migration")

	migrations, err := readMigrations(dir, "proj", "administratie")
	if err != nil {
		t.Fatalf("readMigrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("not sorted by version: %d, %d", migrations[0].Version, migrations[1].Version)
	}
	wantSQL := "CREATE TABLE `proj.administratie.audits` (audit_id STRING)"
	if migrations[0].SQL != wantSQL {
		t.Errorf("SQL = %q, want %q", migrations[0].SQL, wantSQL)
	}
	if migrations[0].Checksum == migrations[1].Checksum {
		t.Error("different content produced the same checksum")
	}
}

func TestMigrationChecksumIgnoresSubstitution(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	content := []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.t` (id STRING)")
	for _, dir := range []string{dirA, dirB} {
		if err := os.WriteFile(filepath.Join(dir, "0001_t.sql"), content, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	a, err := readMigrations(dirA, "project-a", "dataset_a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := readMigrations(dirB, "project-b", "dataset_b")
	if err != nil {
		t.Fatal(err)
	}
	if a[0].Checksum != b[0].Checksum {
		t.Error("checksum should not depend on project/dataset substitution")
	}
	if a[0].SQL == b[0].SQL {
		t.Error("substitution did not apply")
	}
}
