package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittodir/internal/logger"
	"github.com/marmos91/dittodir/pkg/store/record"
	recordBadger "github.com/marmos91/dittodir/pkg/store/record/badger"
	"github.com/marmos91/dittodir/pkg/store/record/memory"
	recordS3 "github.com/marmos91/dittodir/pkg/store/record/s3"
	"github.com/marmos91/dittodir/pkg/store/record/sqlstore"
	"github.com/mitchellh/mapstructure"
)

// CreateRecordStore creates a record store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/store/record/memory (ephemeral)
//   - "badger": Uses pkg/store/record/badger (BadgerDB, persistent)
//   - "s3": Uses pkg/store/record/s3 (Amazon S3 or compatible storage)
//   - "duckdb", "sqlite": Use pkg/store/record/sqlstore with the matching driver
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Record store configuration
//
// Returns:
//   - record.RecordStore: Initialized record store
//   - error: Configuration or initialization error
func CreateRecordStore(ctx context.Context, cfg *StoreConfig) (record.RecordStore, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return memory.NewMemoryRecordStore(), nil
	case "badger":
		return createBadgerRecordStore(ctx, cfg.Badger)
	case "s3":
		return createS3RecordStore(ctx, cfg.S3)
	case sqlstore.DriverDuckDB, sqlstore.DriverSQLite:
		return createSQLRecordStore(ctx, cfg.Type, cfg.SQL)
	default:
		return nil, fmt.Errorf("unknown record store type: %q (supported: memory, badger, s3, duckdb, sqlite)", cfg.Type)
	}
}

// createBadgerRecordStore creates a BadgerDB-based persistent record store.
func createBadgerRecordStore(ctx context.Context, options map[string]any) (record.RecordStore, error) {
	var storeCfg recordBadger.BadgerRecordStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger record store config: %w", err)
	}

	store, err := recordBadger.NewBadgerRecordStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger record store: %w", err)
	}

	logger.Info("Badger record store initialized: path=%s, in_memory=%v", storeCfg.DBPath, storeCfg.InMemory)
	return store, nil
}

// createSQLRecordStore creates a DuckDB or SQLite record store.
func createSQLRecordStore(ctx context.Context, driver string, options map[string]any) (record.RecordStore, error) {
	var storeCfg sqlstore.SQLRecordStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s record store config: %w", driver, err)
	}
	// The store type selects the driver
	storeCfg.Driver = driver

	store, err := sqlstore.NewSQLRecordStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s record store: %w", driver, err)
	}

	logger.Info("%s record store initialized: dsn=%s", driver, storeCfg.DSN)
	return store, nil
}

// S3StoreOptions are the options of the "s3" record store section.
type S3StoreOptions struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`
	Concurrency     int    `mapstructure:"concurrency"`
}

// createS3RecordStore creates an S3-based record store.
func createS3RecordStore(ctx context.Context, options map[string]any) (record.RecordStore, error) {
	var storeCfg S3StoreOptions
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 record store config: %w", err)
	}

	// Validate required fields
	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 record store: bucket is required")
	}

	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 record store: region is required")
	}

	client, err := newS3Client(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	store, err := recordS3.NewS3RecordStore(ctx, recordS3.S3RecordStoreConfig{
		Client:      client,
		Bucket:      storeCfg.Bucket,
		KeyPrefix:   storeCfg.KeyPrefix,
		Concurrency: storeCfg.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 record store: %w", err)
	}

	logger.Info("S3 record store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// newS3Client builds an S3 client from the store options.
func newS3Client(ctx context.Context, storeCfg S3StoreOptions) (*s3.Client, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Set credentials if provided, otherwise use default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Default to 10 attempts (AWS default is 3)
	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return client, nil
}
