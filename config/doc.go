// Package config loads the gateway configuration.
//
// Configuration is built in layers. Built-in defaults come first, then each
// file added with AddLayer (JSON or YAML, later files win), then
// environment overrides. The merged result is checked with Validate.
//
//	loader := config.NewLoader()
//	loader.AddLayer("/etc/nodegate/base.yaml")
//	loader.AddLayer("/etc/nodegate/production.yaml")
//
//	cfg, err := loader.Load()
//	if err != nil {
//		return err
//	}
//	reg, err := cfg.Registry()
//	d := dispatch.New(reg, cfg.Dispatch.Options()...)
//
// # File format
//
//	server:
//	  addr: ":8000"
//	  prefix: /api
//	  max_request_size: 1048576
//	  rate_limit: {requests_per_second: 50, burst: 100}
//	modules:
//	  - {name: translate, url: "http://translate:8080/"}
//	  - {name: asr, url: "http://asr:8081"}
//	dispatch:
//	  health_timeout: 5s
//	  forward_timeout: 15s
//	security:
//	  api_keys: [k1]
//	metrics:
//	  enabled: true
//	nats:
//	  enabled: false
//
// Maps merge key by key; lists such as modules replace the earlier value.
// Durations use Go syntax ("250ms", "1m30s"). Every file is validated against
// an embedded JSON schema (see Schema) before merging, so unknown keys are
// rejected with the offending field named.
//
// # Environment overrides
//
// With the default prefix:
//
//	NODEGATE_SERVER_ADDR       server.addr
//	NODEGATE_SERVER_PREFIX     server.prefix
//	NODEGATE_MODULES           modules, as "name=url,name=url"
//	NODEGATE_HEALTH_TIMEOUT    dispatch.health_timeout
//	NODEGATE_FORWARD_TIMEOUT   dispatch.forward_timeout
//	NODEGATE_API_KEYS          security.api_keys, comma separated
//	NODEGATE_API_KEY_HEADER    security.api_key_header
//	NODEGATE_METRICS_ENABLED   metrics.enabled
//	NODEGATE_METRICS_PORT      metrics.port
//	NODEGATE_NATS_ENABLED      nats.enabled
//	NODEGATE_NATS_URL          nats.url
//
// Empty variables are ignored. A value that does not parse fails the load.
//
// # File safety
//
// Config files must be regular files with a .json, .yaml or .yml extension,
// at most 1MB. Relative paths may not leave the working directory. JSON
// nesting depth is bounded before decoding.
//
// All errors are classified with the errors package; configuration problems
// are invalid-class errors wrapping ErrInvalidConfig, ErrConfigNotFound or
// ErrParsingFailed.
package config
