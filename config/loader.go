package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/nodegate/errors"
	"github.com/c360/nodegate/registry"
)

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "NODEGATE"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: true,
		envPrefix:  DefaultEnvPrefix,
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables semantic validation of the merged config.
// Schema validation of each file always runs.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// SetEnvPrefix changes the environment variable prefix.
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, every file layer and environment overrides, in that order.
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "encode defaults")
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, err
		}
		if err := validateDocument(path, raw); err != nil {
			return nil, err
		}
		merged = deepMergeMaps(merged, raw)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "decode merged configuration")
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadRaw reads a JSON or YAML file into a generic map
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrConfigNotFound, path),
				"Loader", "loadRaw", "read config file")
		}
		return nil, errors.WrapInvalid(err, "Loader", "loadRaw", "read config file")
	}

	format, err := configFormat(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "loadRaw", "detect config format")
	}

	var raw map[string]any
	switch format {
	case formatJSON:
		if err := validateJSONDepth(data); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "loadRaw", "check JSON structure")
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %s: %v", errors.ErrParsingFailed, path, err),
				"Loader", "loadRaw", "parse JSON")
		}
	case formatYAML:
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %s: %v", errors.ErrParsingFailed, path, err),
				"Loader", "loadRaw", "parse YAML")
		}
		m, ok := normalizeYAML(doc).(map[string]any)
		if doc != nil && !ok {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %s: top level must be a mapping", errors.ErrParsingFailed, path),
				"Loader", "loadRaw", "parse YAML")
		}
		raw = m
	}

	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// normalizeYAML converts map[any]any nodes (non-string keys) into map[string]any
// so YAML documents merge and validate like JSON ones.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeYAML(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalizeYAML(item)
		}
		return val
	default:
		return v
	}
}

// deepMergeMaps recursively merges two maps, with override taking precedence.
// Lists are replaced, not appended.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))

	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	var firstErr error
	env := func(name string, apply func(string) error) {
		key := l.envPrefix + "_" + name
		val, ok := os.LookupEnv(key)
		if !ok || val == "" || firstErr != nil {
			return
		}
		if err := validateEnvVar(key, val); err != nil {
			firstErr = err
			return
		}
		if err := apply(val); err != nil {
			firstErr = fmt.Errorf("%s: %w", key, err)
		}
	}

	env("SERVER_ADDR", func(v string) error { cfg.Server.Addr = v; return nil })
	env("SERVER_PREFIX", func(v string) error { cfg.Server.Prefix = v; return nil })
	env("MODULES", func(v string) error {
		modules, err := ParseModules(v)
		if err != nil {
			return err
		}
		cfg.Modules = modules
		return nil
	})
	env("HEALTH_TIMEOUT", durationSetter(&cfg.Dispatch.HealthTimeout))
	env("FORWARD_TIMEOUT", durationSetter(&cfg.Dispatch.ForwardTimeout))
	env("API_KEYS", func(v string) error { cfg.Security.APIKeys = splitList(v); return nil })
	env("API_KEY_HEADER", func(v string) error { cfg.Security.APIKeyHeader = v; return nil })
	env("METRICS_ENABLED", boolSetter(&cfg.Metrics.Enabled))
	env("METRICS_PORT", func(v string) error {
		port, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		cfg.Metrics.Port = port
		return nil
	})
	env("NATS_ENABLED", boolSetter(&cfg.NATS.Enabled))
	env("NATS_URL", func(v string) error { cfg.NATS.URL = v; return nil })

	if firstErr != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, firstErr),
			"Loader", "applyEnvOverrides", "apply environment override")
	}
	return nil
}

func durationSetter(dst *Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = Duration(d)
		return nil
	}
}

func boolSetter(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ParseModules parses "name=url,name=url" into bindings, keeping order.
func ParseModules(v string) ([]registry.Binding, error) {
	items := splitList(v)
	modules := make([]registry.Binding, 0, len(items))
	for _, item := range items {
		name, url, ok := strings.Cut(item, "=")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("module entry %q must be name=url", item)
		}
		modules = append(modules, registry.Binding{Name: name, BaseURL: url})
	}
	return modules, nil
}
