package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"photobooth-api/internal/services"
)

const tinyJPEG = "data:image/jpeg;base64,/9j/4AAQ"

func seedSQLite(t *testing.T, value string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "booth.db")
	kv, err := services.NewSQLiteStore(path, 1<<20)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	defer kv.Close()

	if value != "" {
		if err := kv.Set(context.Background(), services.PhotosKey, []byte(value)); err != nil {
			t.Fatalf("failed to seed snapshot: %v", err)
		}
	}
	return path
}

func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()

	t.Setenv("HOURLY_LIMITS_ENABLED", "true")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--backend", "sqlite", "--sqlite-path", dbPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInspectEmpty(t *testing.T) {
	path := seedSQLite(t, "")

	out, err := run(t, path, "inspect")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(out, "No photos stored") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestMigrateLegacySnapshot(t *testing.T) {
	legacy := `[{"id":2,"data":"` + tinyJPEG + `","timestamp":"2025-10-30T10:00:00Z","aiPrompt":"x"},` +
		`{"id":1,"data":"` + tinyJPEG + `","timestamp":"2025-10-30T09:00:00Z"},` +
		`{"id":3,"data":"not an image","timestamp":"2025-10-30T11:00:00Z"}]`
	path := seedSQLite(t, legacy)

	out, err := run(t, path, "migrate", "--dry-run")
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if !strings.Contains(out, "Would migrate legacy snapshot") {
		t.Errorf("dry run output = %q", out)
	}

	out, err = run(t, path, "migrate")
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out, "original: 1 photo(s)") || !strings.Contains(out, "photobooth: 1 photo(s)") {
		t.Errorf("migrate output = %q", out)
	}

	out, err = run(t, path, "inspect")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(out, "Shape: current") {
		t.Errorf("snapshot not rewritten: %q", out)
	}
	if strings.Contains(out, "invalid") {
		t.Errorf("invalid record survived migration: %q", out)
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	path := seedSQLite(t, `{"original":[{"id":1,"data":"`+tinyJPEG+`","timestamp":""}]}`)

	if _, err := run(t, path, "clear"); err == nil {
		t.Fatal("expected clear without --yes to fail")
	}

	out, err := run(t, path, "clear", "--yes")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if !strings.Contains(out, "Removed 1 photo(s)") {
		t.Errorf("clear output = %q", out)
	}
}

func TestUsageAndStats(t *testing.T) {
	path := seedSQLite(t, "")

	out, err := run(t, path, "usage")
	if err != nil {
		t.Fatalf("usage failed: %v", err)
	}
	if !strings.Contains(out, "Transforms: 0/3") {
		t.Errorf("usage output = %q", out)
	}

	out, err = run(t, path, "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(out, "Storage:") {
		t.Errorf("stats output = %q", out)
	}
}

func TestUnknownBackendRejected(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--backend", "redis", "stats"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
