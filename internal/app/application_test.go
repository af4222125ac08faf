package app

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/bestsbot/backend/internal/config"
	"github.com/bestsbot/backend/internal/logging"
	"github.com/bestsbot/backend/internal/storage/jsonfile"
)

func TestBuildStoreMemory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = "memory"

	store, db, fileStore, err := buildStore(cfg)
	if err != nil {
		t.Fatalf("build store: %v", err)
	}
	if store == nil || db != nil || fileStore != nil {
		t.Fatal("memory driver should return only a store")
	}
}

func TestBuildStoreJSONFile(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = "jsonfile"
	cfg.Storage.DataDir = t.TempDir()

	store, _, fileStore, err := buildStore(cfg)
	if err != nil {
		t.Fatalf("build store: %v", err)
	}
	if store == nil || fileStore == nil {
		t.Fatal("jsonfile driver should expose the concrete store for backups")
	}
}

func TestBuildStoreUnknownDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = "cassette-tape"

	if _, _, _, err := buildStore(cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestBackupJobRun(t *testing.T) {
	dataDir := t.TempDir()
	store, err := jsonfile.Open(dataDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	backupDir := t.TempDir()
	log := logging.New(logging.Config{Output: io.Discard})
	job, err := newBackupJob(config.BackupConfig{Schedule: "@daily", Dir: backupDir}, store, log)
	if err != nil {
		t.Fatalf("new backup job: %v", err)
	}

	job.run()

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		t.Fatalf("read backup dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one snapshot dir, got %d", len(entries))
	}
	if _, err := os.Stat(filepath.Join(backupDir, entries[0].Name(), "managers.json")); err != nil {
		t.Fatalf("expected managers.json in snapshot: %v", err)
	}
}

func TestBackupJobRejectsBadSchedule(t *testing.T) {
	store, err := jsonfile.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	log := logging.New(logging.Config{Output: io.Discard})

	if _, err := newBackupJob(config.BackupConfig{Schedule: "not a schedule"}, store, log); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
