package config

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/store/record"
)

// roundTrip saves a folder record and reads it back through the store.
func roundTrip(t *testing.T, store record.RecordStore) {
	t.Helper()
	ctx := context.Background()

	rec := &directory.Record{
		Kind:          directory.KindFolder,
		Owner:         "alice@example.com",
		ParentPath:    directory.RootPath,
		Discriminator: "docs",
		FullPath:      directory.RootPath + "/docs",
	}
	if _, err := store.SaveAll(ctx, []*directory.Record{rec}); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	records, err := store.FindAllByOwner(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FindAllByOwner failed: %v", err)
	}
	if len(records) != 1 || records[0].FullPath != "/root/docs" {
		t.Fatalf("Unexpected records: %+v", records)
	}
}

func TestCreateRecordStore_Memory(t *testing.T) {
	store, err := CreateRecordStore(context.Background(), &StoreConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("Failed to create memory record store: %v", err)
	}
	defer func() { _ = store.Close() }()

	roundTrip(t, store)
}

func TestCreateRecordStore_Badger(t *testing.T) {
	cfg := &StoreConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path":        filepath.Join(t.TempDir(), "records"),
			"block_cache_mb": 8,
			"index_cache_mb": 4,
		},
	}

	store, err := CreateRecordStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create badger record store: %v", err)
	}
	defer func() { _ = store.Close() }()

	roundTrip(t, store)
}

func TestCreateRecordStore_BadgerMissingPath(t *testing.T) {
	_, err := CreateRecordStore(context.Background(), &StoreConfig{
		Type:   "badger",
		Badger: map[string]any{},
	})
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "db_path is required") {
		t.Errorf("Expected 'db_path is required' error, got: %v", err)
	}
}

func TestCreateRecordStore_SQLite(t *testing.T) {
	cfg := &StoreConfig{
		Type: "sqlite",
		SQL: map[string]any{
			"dsn": filepath.Join(t.TempDir(), "records.db"),
			// The store type wins over a configured driver
			"driver": "duckdb",
		},
	}

	store, err := CreateRecordStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create sqlite record store: %v", err)
	}
	defer func() { _ = store.Close() }()

	roundTrip(t, store)
}

func TestCreateRecordStore_DuckDBInMemory(t *testing.T) {
	store, err := CreateRecordStore(context.Background(), &StoreConfig{
		Type: "duckdb",
		SQL:  map[string]any{},
	})
	if err != nil {
		t.Fatalf("Failed to create duckdb record store: %v", err)
	}
	defer func() { _ = store.Close() }()

	roundTrip(t, store)
}

func TestCreateRecordStore_S3MissingBucket(t *testing.T) {
	_, err := CreateRecordStore(context.Background(), &StoreConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	})
	if err == nil {
		t.Fatal("Expected error for missing bucket")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}
}

func TestCreateRecordStore_S3MissingRegion(t *testing.T) {
	_, err := CreateRecordStore(context.Background(), &StoreConfig{
		Type: "s3",
		S3:   map[string]any{"bucket": "records"},
	})
	if err == nil {
		t.Fatal("Expected error for missing region")
	}
	if !strings.Contains(err.Error(), "region is required") {
		t.Errorf("Expected 'region is required' error, got: %v", err)
	}
}

func TestCreateRecordStore_UnknownType(t *testing.T) {
	_, err := CreateRecordStore(context.Background(), &StoreConfig{Type: "postgres"})
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
	if !strings.Contains(err.Error(), "unknown record store type") {
		t.Errorf("Expected 'unknown record store type' error, got: %v", err)
	}
}

func TestCreateRecordStore_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := CreateRecordStore(ctx, &StoreConfig{Type: "memory"}); err == nil {
		t.Fatal("Expected error with canceled context")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	result := InitializeMetrics(GetDefaultConfig())

	if result.Server != nil {
		t.Error("Expected no metrics server when metrics are disabled")
	}
	if result.Directory == nil || result.API == nil {
		t.Fatal("Expected no-op metrics, got nil")
	}
}
