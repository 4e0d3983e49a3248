package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/content"
	contentBadger "github.com/marmos91/dittohttp/pkg/content/badger"
	contentFs "github.com/marmos91/dittohttp/pkg/content/fs"
	contentMemory "github.com/marmos91/dittohttp/pkg/content/memory"
	contentS3 "github.com/marmos91/dittohttp/pkg/content/s3"
	"github.com/marmos91/dittohttp/pkg/metrics"
)

// CreateContentStore creates a content store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "filesystem": Uses pkg/content/fs (files below a local directory)
//   - "memory": Uses pkg/content/memory, optionally seeded from seed_dir
//   - "s3": Uses pkg/content/s3 (Amazon S3 or compatible storage)
//   - "badger": Uses pkg/content/badger, optionally seeded from seed_dir
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Content store configuration
//
// Returns:
//   - content.ContentStore: Initialized content store
//   - error: Configuration or initialization error
func CreateContentStore(ctx context.Context, cfg *ContentConfig) (content.ContentStore, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemContentStore(ctx, cfg.Filesystem)
	case "memory":
		return createMemoryContentStore(ctx, cfg.Memory)
	case "s3":
		return createS3ContentStore(ctx, cfg.S3)
	case "badger":
		return createBadgerContentStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
}

// decodeOptions decodes a store options map, accepting string values for
// numbers and booleans as produced by environment variables.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}

// createFilesystemContentStore creates a filesystem-based content store.
func createFilesystemContentStore(ctx context.Context, options map[string]any) (content.ContentStore, error) {
	type FilesystemContentStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FilesystemContentStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem content store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem content store: path is required")
	}

	store, err := contentFs.NewFSContentStore(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem content store: %w", err)
	}

	logger.Info("Filesystem content store initialized: root=%s", store.Root())
	return store, nil
}

// createMemoryContentStore creates an in-memory content store.
func createMemoryContentStore(ctx context.Context, options map[string]any) (content.ContentStore, error) {
	type MemoryContentStoreConfig struct {
		SeedDir string `mapstructure:"seed_dir"`
	}

	var storeCfg MemoryContentStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory content store config: %w", err)
	}

	store := contentMemory.NewMemoryContentStore()
	if err := seed(ctx, store, storeCfg.SeedDir); err != nil {
		_ = store.Close()
		return nil, err
	}

	return store, nil
}

// createBadgerContentStore creates a BadgerDB-based content store.
func createBadgerContentStore(ctx context.Context, options map[string]any) (content.ContentStore, error) {
	type BadgerContentStoreOptions struct {
		DBPath   string `mapstructure:"db_path"`
		InMemory bool   `mapstructure:"in_memory"`
		SeedDir  string `mapstructure:"seed_dir"`
	}

	var storeOpts BadgerContentStoreOptions
	if err := decodeOptions(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode badger content store options: %w", err)
	}

	if storeOpts.DBPath == "" && !storeOpts.InMemory {
		return nil, fmt.Errorf("badger content store: db_path is required")
	}

	store, err := contentBadger.NewBadgerContentStore(ctx, contentBadger.BadgerContentStoreConfig{
		DBPath:   storeOpts.DBPath,
		InMemory: storeOpts.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger content store: %w", err)
	}

	if err := seed(ctx, store, storeOpts.SeedDir); err != nil {
		_ = store.Close()
		return nil, err
	}

	return store, nil
}

// seed copies dir into store. An empty dir is a no-op.
func seed(ctx context.Context, store content.WritableContentStore, dir string) error {
	if dir == "" {
		return nil
	}
	n, err := content.Seed(ctx, store, dir)
	if err != nil {
		return fmt.Errorf("failed to seed content store from %s: %w", dir, err)
	}
	logger.Info("Seeded content store with %d files from %s", n, dir)
	return nil
}

// createS3ContentStore creates an S3-based content store.
func createS3ContentStore(ctx context.Context, options map[string]any) (content.ContentStore, error) {
	type S3ContentStoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		ForcePathStyle  bool   `mapstructure:"force_path_style"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3ContentStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 content store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 content store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 content store: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(storeCfg.Region),
	}

	// Set credentials if provided, otherwise use default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
		if storeCfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Content Store
	// ========================================================================

	store, err := contentS3.NewS3ContentStore(ctx, contentS3.S3ContentStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		Metrics:   metrics.NewS3Metrics(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}
