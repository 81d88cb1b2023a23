package e2e

import (
	"fmt"
	"path/filepath"

	"github.com/marmos91/dittodir/pkg/config"
)

// StoreType represents the type of record store
type StoreType string

const (
	StoreMemory StoreType = "memory"
	StoreBadger StoreType = "badger"
	StoreSQLite StoreType = "sqlite"
	StoreDuckDB StoreType = "duckdb"
	StoreS3     StoreType = "s3"
)

// TestContextProvider is an interface for providing test context dependencies
type TestContextProvider interface {
	CreateTempDir(prefix string) string
	GetConfig() *TestConfig
	GetPort() int
}

// TestConfig holds the configuration for a test run
type TestConfig struct {
	Name  string
	Store StoreType

	// Persistent reports whether records survive a restart
	Persistent bool

	// S3-specific fields (set by localstack setup)
	s3Endpoint string
	s3Bucket   string

	// dataDir is reused across restarts of the same test context
	dataDir string
}

// String returns a string representation of the configuration
func (tc *TestConfig) String() string {
	return string(tc.Store)
}

// StoreConfig builds the record store section the server is started with.
func (tc *TestConfig) StoreConfig(testCtx TestContextProvider) (*config.StoreConfig, error) {
	cfg := &config.StoreConfig{Type: string(tc.Store)}

	switch tc.Store {
	case StoreMemory:

	case StoreBadger:
		cfg.Badger = map[string]any{
			"db_path": filepath.Join(tc.dataDirFor(testCtx), "records"),
		}

	case StoreSQLite, StoreDuckDB:
		cfg.SQL = map[string]any{
			"dsn": filepath.Join(tc.dataDirFor(testCtx), "records."+string(tc.Store)),
		}

	case StoreS3:
		// S3 requires localstack setup
		if tc.s3Bucket == "" {
			return nil, fmt.Errorf("S3 bucket not initialized (localstack not running?)")
		}
		cfg.S3 = map[string]any{
			"region":            "us-east-1",
			"bucket":            tc.s3Bucket,
			"endpoint":          tc.s3Endpoint,
			"access_key_id":     "test",
			"secret_access_key": "test",
			"key_prefix":        fmt.Sprintf("test-%d/", testCtx.GetPort()),
			"max_retries":       3,
		}

	default:
		return nil, fmt.Errorf("unknown record store type: %s", tc.Store)
	}

	return cfg, nil
}

func (tc *TestConfig) dataDirFor(testCtx TestContextProvider) string {
	if tc.dataDir == "" {
		tc.dataDir = testCtx.CreateTempDir(fmt.Sprintf("dittodir-%s-*", tc.Store))
	}
	return tc.dataDir
}

// AllConfigurations returns all test configurations to run
func AllConfigurations() []*TestConfig {
	return []*TestConfig{
		{Name: "memory", Store: StoreMemory},
		{Name: "badger", Store: StoreBadger, Persistent: true},
		{Name: "sqlite", Store: StoreSQLite, Persistent: true},
		{Name: "duckdb", Store: StoreDuckDB, Persistent: true},
	}
}

// S3Configurations returns configurations that use S3 (requires localstack)
func S3Configurations() []*TestConfig {
	return []*TestConfig{
		{Name: "s3", Store: StoreS3, Persistent: true},
	}
}

// GetConfiguration returns a specific configuration by name
func GetConfiguration(name string) *TestConfig {
	for _, config := range AllConfigurations() {
		if config.Name == name {
			return config
		}
	}

	for _, config := range S3Configurations() {
		if config.Name == name {
			return config
		}
	}

	return nil
}
