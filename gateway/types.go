package gateway

import (
	"fmt"
	"strings"

	"github.com/c360/nodegate/errors"
)

// Defaults for the client-facing listener
const (
	DefaultMaxRequestSize = 10 << 20 // 10MB
	DefaultAPIKeyHeader   = "X-API-Key"
	maxRequestSizeLimit   = 100 << 20
)

// Config holds configuration for the client-facing HTTP listener
type Config struct {
	// Prefix is prepended to every route, e.g. "/api". Empty means root.
	Prefix string `json:"prefix,omitempty"`

	// MaxRequestSize limits request body size in bytes (default: 10MB)
	MaxRequestSize int64 `json:"max_request_size,omitempty"`

	// CORSOrigins lists allowed CORS origins. Empty disables CORS.
	// Use ["*"] for development only.
	CORSOrigins []string `json:"cors_origins,omitempty"`

	// APIKeyHeader carries the client key. It is never forwarded to modules.
	APIKeyHeader string `json:"api_key_header,omitempty"`
}

// Validate ensures the listener configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Prefix != "" && (!strings.HasPrefix(c.Prefix, "/") || strings.HasSuffix(c.Prefix, "/")) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("prefix %q must start with '/' and not end with '/'", c.Prefix))
	}

	if c.MaxRequestSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"max_request_size cannot be negative")
	}
	if c.MaxRequestSize == 0 {
		c.MaxRequestSize = DefaultMaxRequestSize
	}
	if c.MaxRequestSize > maxRequestSizeLimit {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"max_request_size cannot exceed 100MB")
	}

	if c.APIKeyHeader == "" {
		c.APIKeyHeader = DefaultAPIKeyHeader
	}

	return nil
}

// DefaultConfig returns default listener configuration
func DefaultConfig() Config {
	return Config{
		MaxRequestSize: DefaultMaxRequestSize,
		APIKeyHeader:   DefaultAPIKeyHeader,
	}
}
