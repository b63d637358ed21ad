package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`

	JWT      JWTConfig      `mapstructure:"jwt" yaml:"jwt"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Upload   UploadConfig   `mapstructure:"upload" yaml:"upload"`
	Realtime RealtimeConfig `mapstructure:"realtime" yaml:"realtime"`
}

// JWTConfig configures bearer token issuance and validation.
type JWTConfig struct {
	Secret   string        `mapstructure:"secret" yaml:"secret"`
	Issuer   string        `mapstructure:"issuer" yaml:"issuer"`
	Audience string        `mapstructure:"audience" yaml:"audience"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// StorageConfig points at the S3-compatible bucket holding document bodies.
type StorageConfig struct {
	Endpoint      string        `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey     string        `mapstructure:"access_key" yaml:"access_key"`
	SecretKey     string        `mapstructure:"secret_key" yaml:"secret_key"`
	Bucket        string        `mapstructure:"bucket" yaml:"bucket"`
	Region        string        `mapstructure:"region" yaml:"region"`
	UseSSL        bool          `mapstructure:"use_ssl" yaml:"use_ssl"`
	PublicURL     string        `mapstructure:"public_url" yaml:"public_url"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry" yaml:"presign_expiry"`
}

// RedisConfig enables the optional document metadata cache.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// UploadConfig limits accepted files.
type UploadConfig struct {
	MaxBytes     int64    `mapstructure:"max_bytes" yaml:"max_bytes"`
	AllowedTypes []string `mapstructure:"allowed_types" yaml:"allowed_types"`
}

// RealtimeConfig tunes the push channel.
type RealtimeConfig struct {
	ClientBuffer    int   `mapstructure:"client_buffer" yaml:"client_buffer"`
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// RateLimit caps inbound messages per connection per minute; 0 disables the limit.
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// DefaultAllowedTypes lists the MIME types accepted for upload.
var DefaultAllowedTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
	"image/png",
	"image/jpeg",
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "docflow.db",
		JWT: JWTConfig{
			Secret:   "change-me",
			Issuer:   "docflow",
			Audience: "docflow",
			TTL:      24 * time.Hour,
		},
		Storage: StorageConfig{
			Endpoint:      "localhost:9000",
			Bucket:        "documents",
			Region:        "us-east-1",
			PresignExpiry: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
			TTL:  10 * time.Minute,
		},
		Upload: UploadConfig{
			MaxBytes:     10 << 20,
			AllowedTypes: append([]string(nil), DefaultAllowedTypes...),
		},
		Realtime: RealtimeConfig{
			ClientBuffer:    64,
			MaxMessageBytes: 1 << 16,
			RateLimit:       120,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWT.Secret != "" {
		c.JWT.Secret = other.JWT.Secret
	}
}
