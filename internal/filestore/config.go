package filestore

import (
	"time"

	"github.com/koustreak/sqlbridge/internal/errs"
)

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Enabled turns the export sink on. When false nothing is dialled.
	Enabled bool `yaml:"enabled"`

	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider `yaml:"provider"`

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string `yaml:"endpoint"`

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string `yaml:"access_key"`

	// SecretKey is the secret access key.
	SecretKey string `yaml:"secret_key"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl"`

	// Region is used by region-aware backends (e.g. AWS S3).
	// Leave empty for MinIO.
	Region string `yaml:"region"`

	// Bucket receives exported result sets. Created on startup if missing.
	Bucket string `yaml:"bucket"`

	// Prefix is prepended to every exported object key.
	Prefix string `yaml:"prefix"`

	// URLExpiry is the lifetime of download links handed out for exports.
	URLExpiry time.Duration `yaml:"url_expiry"`
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
		Bucket:    "sqlbridge-exports",
		Prefix:    "exports/",
		URLExpiry: 15 * time.Minute,
	}
}

// Validate checks an enabled config. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Provider != ProviderMinIO {
		return errs.New(errs.ErrKindInvalidInput, "unknown export provider "+string(c.Provider))
	}
	if c.Endpoint == "" || c.Bucket == "" {
		return errs.New(errs.ErrKindInvalidInput, "export endpoint and bucket are required")
	}
	if c.URLExpiry <= 0 {
		return errs.New(errs.ErrKindInvalidInput, "export url_expiry must be positive")
	}
	return nil
}
