package filestore

import (
	"fmt"

	"github.com/koustreak/dschema/internal/errs"
)

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
	ProviderLocal Provider = "local"
)

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Provider is the storage backend (ProviderMinIO or ProviderLocal).
	Provider Provider `yaml:"provider" env:"DSCHEMA_STORE_PROVIDER"`

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string `yaml:"endpoint" env:"DSCHEMA_STORE_ENDPOINT"`

	AccessKey string `yaml:"access_key" env:"DSCHEMA_STORE_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"DSCHEMA_STORE_SECRET_KEY"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl" env:"DSCHEMA_STORE_USE_SSL"`

	// Region is used when creating the bucket. Leave empty for MinIO.
	Region string `yaml:"region" env:"DSCHEMA_STORE_REGION"`

	// Bucket receives every artifact of a run. It is created on first use.
	Bucket string `yaml:"bucket" env:"DSCHEMA_STORE_BUCKET"`

	// Root is the base directory of the local provider. Buckets are its
	// subdirectories.
	Root string `yaml:"root" env:"DSCHEMA_STORE_ROOT"`
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
		Bucket:    "dschema",
	}
}

// LocalConfig stores artifacts under root.
func LocalConfig(root string) *Config {
	return &Config{Provider: ProviderLocal, Root: root, Bucket: "dschema"}
}

// Validate checks that the fields the provider needs are set.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errs.New(errs.ErrKindInvalidInput, "store bucket is required")
	}
	switch c.Provider {
	case ProviderMinIO:
		if c.Endpoint == "" {
			return errs.New(errs.ErrKindInvalidInput, "minio endpoint is required")
		}
	case ProviderLocal:
		if c.Root == "" {
			return errs.New(errs.ErrKindInvalidInput, "local store root is required")
		}
	default:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unknown store provider %q", c.Provider))
	}
	return nil
}
