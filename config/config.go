package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/c360/nodegate/dispatch"
	"github.com/c360/nodegate/errors"
	"github.com/c360/nodegate/registry"
)

// DefaultAPIKeyHeader is the header clients present their API key in.
const DefaultAPIKeyHeader = "X-API-Key"

// Config represents the complete gateway configuration
type Config struct {
	Server   ServerConfig       `json:"server" yaml:"server"`
	Modules  []registry.Binding `json:"modules" yaml:"modules"`
	Dispatch DispatchConfig     `json:"dispatch" yaml:"dispatch"`
	Security SecurityConfig     `json:"security" yaml:"security"`
	Metrics  MetricsConfig      `json:"metrics" yaml:"metrics"`
	NATS     NATSConfig         `json:"nats" yaml:"nats"`
}

// ServerConfig configures the client-facing HTTP listener
type ServerConfig struct {
	Addr           string          `json:"addr" yaml:"addr"`
	Prefix         string          `json:"prefix,omitempty" yaml:"prefix,omitempty"` // e.g. "/api"
	ReadTimeout    Duration        `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   Duration        `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout    Duration        `json:"idle_timeout" yaml:"idle_timeout"`
	MaxRequestSize int64           `json:"max_request_size" yaml:"max_request_size"` // bytes
	CORSOrigins    []string        `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
	RateLimit      RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig is a token bucket shared by all clients of the protected
// routes; /health is never limited. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// Enabled reports whether rate limiting is on
func (r RateLimitConfig) Enabled() bool {
	return r.RequestsPerSecond > 0
}

// DispatchConfig tunes outbound calls to modules
type DispatchConfig struct {
	HealthTimeout     Duration `json:"health_timeout" yaml:"health_timeout"`
	ForwardTimeout    Duration `json:"forward_timeout" yaml:"forward_timeout"`
	HealthConcurrency int      `json:"health_concurrency" yaml:"health_concurrency"` // 0 = unbounded
	MaxResponseSize   int64    `json:"max_response_size" yaml:"max_response_size"`
}

// Options converts the section into dispatcher options
func (d DispatchConfig) Options() []dispatch.Option {
	return []dispatch.Option{
		dispatch.WithHealthTimeout(d.HealthTimeout.Duration()),
		dispatch.WithForwardTimeout(d.ForwardTimeout.Duration()),
		dispatch.WithHealthConcurrency(d.HealthConcurrency),
		dispatch.WithMaxResponseSize(d.MaxResponseSize),
	}
}

// SecurityConfig holds client authentication settings. No keys means the
// API key check is off.
type SecurityConfig struct {
	APIKeys      []string `json:"api_keys,omitempty" yaml:"api_keys,omitempty"`
	APIKeyHeader string   `json:"api_key_header" yaml:"api_key_header"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// NATSConfig defines NATS connection settings for gateway events
type NATSConfig struct {
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	URL           string   `json:"url" yaml:"url"`
	SubjectPrefix string   `json:"subject_prefix" yaml:"subject_prefix"`
	MaxReconnects int      `json:"max_reconnects" yaml:"max_reconnects"`
	ReconnectWait Duration `json:"reconnect_wait" yaml:"reconnect_wait"`
}

// Default returns the built-in configuration every layer is merged onto
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			ReadTimeout:    Duration(30 * time.Second),
			WriteTimeout:   Duration(dispatch.DefaultForwardTimeout + 15*time.Second),
			IdleTimeout:    Duration(120 * time.Second),
			MaxRequestSize: 10 << 20,
		},
		Modules: []registry.Binding{},
		Dispatch: DispatchConfig{
			HealthTimeout:   Duration(dispatch.DefaultHealthTimeout),
			ForwardTimeout:  Duration(dispatch.DefaultForwardTimeout),
			MaxResponseSize: dispatch.DefaultMaxResponseSize,
		},
		Security: SecurityConfig{
			APIKeyHeader: DefaultAPIKeyHeader,
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			SubjectPrefix: "nodegate",
			MaxReconnects: -1,
			ReconnectWait: Duration(2 * time.Second),
		},
	}
}

// Registry builds the module registry from the modules section
func (c *Config) Registry() (*registry.Registry, error) {
	return registry.New(c.Modules...)
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return invalid("server.addr is required")
	}
	if p := c.Server.Prefix; p != "" && (!strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/")) {
		return invalid("server.prefix %q must start with '/' and not end with '/'", p)
	}
	if c.Server.MaxRequestSize <= 0 {
		return invalid("server.max_request_size must be positive")
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 || c.Server.RateLimit.Burst < 0 {
		return invalid("server.rate_limit values must not be negative")
	}

	for i, m := range c.Modules {
		if err := validateModuleURL(m.BaseURL); err != nil {
			return invalid("modules[%d] (%s): %v", i, m.Name, err)
		}
	}
	if _, err := c.Registry(); err != nil {
		return err
	}

	if c.Dispatch.HealthTimeout <= 0 || c.Dispatch.ForwardTimeout <= 0 {
		return invalid("dispatch timeouts must be positive")
	}
	if c.Dispatch.HealthConcurrency < 0 {
		return invalid("dispatch.health_concurrency must not be negative")
	}
	if c.Dispatch.MaxResponseSize <= 0 {
		return invalid("dispatch.max_response_size must be positive")
	}

	if len(c.Security.APIKeys) > 0 {
		if strings.TrimSpace(c.Security.APIKeyHeader) == "" {
			return invalid("security.api_key_header is required when api_keys are set")
		}
		for i, k := range c.Security.APIKeys {
			if strings.TrimSpace(k) == "" {
				return invalid("security.api_keys[%d] is empty", i)
			}
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return invalid("metrics.port %d out of range", c.Metrics.Port)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return invalid("metrics.path must start with '/'")
		}
	}

	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return invalid("nats.url is required when nats is enabled")
		}
		if !isValidNATSSubjectPart(c.NATS.SubjectPrefix) {
			return invalid(
				"nats.subject_prefix '%s' is not valid for NATS subjects (must be alphanumeric with dots, dashes, underscores)",
				c.NATS.SubjectPrefix)
		}
	}

	return nil
}

func invalid(format string, args ...any) error {
	err := fmt.Errorf("%w: %s", errors.ErrInvalidConfig, fmt.Sprintf(format, args...))
	return errors.WrapInvalid(err, "Config", "Validate", "validate configuration")
}

func validateModuleURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}

// isValidNATSSubjectPart checks if a string is valid for use in NATS subjects.
// Valid characters are alphanumeric, dots, dashes, and underscores.
func isValidNATSSubjectPart(s string) bool {
	if len(s) == 0 || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// String returns a YAML representation of the config with API keys redacted
func (c *Config) String() string {
	redacted := c.Clone()
	for i := range redacted.Security.APIKeys {
		redacted.Security.APIKeys[i] = "[REDACTED]"
	}
	data, _ := yaml.Marshal(redacted)
	return string(data)
}

// Duration is a time.Duration that reads and writes Go duration strings
// ("15s", "1m30s"). Plain integers are taken as nanoseconds.
type Duration time.Duration

// Duration returns the value as a time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return d.set(v)
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch val := v.(type) {
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(int64(val))
	case int:
		*d = Duration(int64(val))
	case nil:
		*d = 0
	default:
		return fmt.Errorf("invalid duration type %T", v)
	}
	return nil
}
