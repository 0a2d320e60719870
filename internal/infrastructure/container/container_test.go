package container

import (
	"context"
	"path/filepath"
	"testing"

	"tzweb/internal/infrastructure/config"
	"tzweb/internal/infrastructure/storage"
	sqliterepo "tzweb/internal/infrastructure/storage/sqlite"
)

func TestContainerWithSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Enabled = true
	cfg.Storage.SQLite.Enabled = true
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "journal.db")
	cfg.Export.ParquetDir = t.TempDir()

	c, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer c.Close()

	if c.SQLiteRepo() == nil {
		t.Fatalf("expected SQLiteRepo, got nil")
	}
	if _, ok := c.Repository().(*sqliterepo.Repo); !ok {
		t.Errorf("single backend should be used directly, got %T", c.Repository())
	}
	if c.Exporter() == nil {
		t.Errorf("expected parquet exporter")
	}
	if c.Page() == nil {
		t.Errorf("expected browser page")
	}
}

func TestContainerFallsBackToMemory(t *testing.T) {
	cfg := config.Default()

	c, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	if _, ok := c.Repository().(*storage.MemoryRepo); !ok {
		t.Errorf("expected in-memory repository, got %T", c.Repository())
	}
	if c.Exporter() != nil {
		t.Errorf("expected no exporter without export.parquet_dir")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	// second close is a no-op
	if err := c.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
