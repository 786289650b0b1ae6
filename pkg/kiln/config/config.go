// Package config loads server configuration and assembles a kiln.Service
// from it: repository, file storage backend and storage limits.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kilnhq/kiln/pkg/kiln"
	"github.com/kilnhq/kiln/pkg/kiln/repo/memory"
	repopg "github.com/kilnhq/kiln/pkg/kiln/repo/postgres"
	azureblobstorage "github.com/kilnhq/kiln/pkg/kiln/storage/azureblob"
	fsstorage "github.com/kilnhq/kiln/pkg/kiln/storage/fs"
	memorystorage "github.com/kilnhq/kiln/pkg/kiln/storage/memory"
	s3storage "github.com/kilnhq/kiln/pkg/kiln/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:              "8080",
		Environment:       "development",
		DatabaseType:      "memory",
		DBSchema:          "kiln",
		StorageProvider:   "memory",
		StorageConfig:     map[string]interface{}{},
		MaxFileSize:       kiln.DefaultMaxFileSize,
		MaxTotalDiskSpace: kiln.DefaultMaxTotalDiskSpace,
		AllowedMimeTypes:  kiln.DefaultAllowedMimeTypes,
		URLExpiry:         kiln.DefaultURLExpiry,
	}
}

// ServerConfig represents server configuration for the kiln service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use (default: kiln)

	// Storage configuration
	StorageProvider string // "memory", "fs", "s3", "azureblob"
	StorageConfig   map[string]interface{}

	// Storage limits
	MaxFileSize       int64
	MaxTotalDiskSpace int64
	AllowedMimeTypes  string // comma-separated patterns
	URLExpiry         time.Duration
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.StorageProvider {
	case "memory", "fs", "s3", "azureblob":
	default:
		return fmt.Errorf("unsupported storage provider: %s", c.StorageProvider)
	}

	if c.MaxFileSize < 0 || c.MaxTotalDiskSpace < 0 {
		return errors.New("storage limits must not be negative")
	}
	if c.URLExpiry <= 0 {
		return errors.New("url expiry must be positive")
	}

	return nil
}

// Limits converts the configured limit values into the service's limit
// struct.
func (c *ServerConfig) Limits() kiln.StorageLimits {
	return kiln.StorageLimits{
		MaxFileSize:       c.MaxFileSize,
		MaxTotalDiskSpace: c.MaxTotalDiskSpace,
		AllowedMimeTypes:  kiln.ParseMimePatterns(c.AllowedMimeTypes),
		URLExpiry:         c.URLExpiry,
	}
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(logger *slog.Logger) (kiln.Service, error) {
	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	store, err := c.buildFileStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build storage provider %s: %w", c.StorageProvider, err)
	}

	options := []kiln.Option{
		kiln.WithRepository(repo),
		kiln.WithFileStore(c.StorageProvider, store),
		kiln.WithStorageLimits(c.Limits()),
	}
	if logger != nil {
		options = append(options, kiln.WithLogger(logger))
	}

	return kiln.New(options...)
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository() (kiln.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// PingPostgres verifies connectivity to Postgres and optionally sets
// search_path for the session. It fails if the schema (when provided) does
// not exist.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildFileStore creates a FileStore based on the configured provider
func (c *ServerConfig) buildFileStore() (kiln.FileStore, error) {
	switch c.StorageProvider {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		fsConfig := fsstorage.Config{
			BaseDir:      getString(c.StorageConfig, "base_dir", "./data/storage"),
			URLPrefix:    getString(c.StorageConfig, "url_prefix", ""),
			MaxDiskSpace: c.MaxTotalDiskSpace,
		}
		return fsstorage.New(fsConfig)

	case "s3":
		s3Config := s3storage.Config{
			Region:          getString(c.StorageConfig, "region", "us-east-1"),
			Bucket:          getString(c.StorageConfig, "bucket", ""),
			AccessKeyID:     getString(c.StorageConfig, "access_key_id", ""),
			SecretAccessKey: getString(c.StorageConfig, "secret_access_key", ""),
			Endpoint:        getString(c.StorageConfig, "endpoint", ""),
			UsePathStyle:    getBool(c.StorageConfig, "use_path_style", false),
		}
		return s3storage.New(s3Config)

	case "azureblob":
		azConfig := azureblobstorage.Config{
			AccountName: getString(c.StorageConfig, "account_name", ""),
			AccountKey:  getString(c.StorageConfig, "account_key", ""),
			Container:   getString(c.StorageConfig, "container", ""),
			Endpoint:    getString(c.StorageConfig, "endpoint", ""),
		}
		return azureblobstorage.New(azConfig)

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", c.StorageProvider)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}
