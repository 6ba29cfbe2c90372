package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/nodegate/config"
	"github.com/c360/nodegate/registry"
	"github.com/c360/nodegate/testutil"
)

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{"--log-format=text", "--debug", "--shutdown-timeout=5s", "--validate"})
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.Validate)
	assert.Empty(t, cfg.ConfigPath)
}

func TestParseFlags_EnvFallback(t *testing.T) {
	t.Setenv("NODEGATE_LOG_LEVEL", "warn")
	t.Setenv("NODEGATE_SHUTDOWN_TIMEOUT", "12s")

	cfg, err := parseFlags(nil)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 12*time.Second, cfg.ShutdownTimeout)
}

func TestValidateFlags(t *testing.T) {
	existing := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(existing, []byte("server:\n  addr: \":8000\"\n"), 0o600))

	valid := CLIConfig{LogLevel: "info", LogFormat: "json", ShutdownTimeout: time.Second}

	tests := []struct {
		name    string
		mutate  func(*CLIConfig)
		wantErr bool
	}{
		{"defaults", func(*CLIConfig) {}, false},
		{"existing config", func(c *CLIConfig) { c.ConfigPath = existing }, false},
		{"missing config", func(c *CLIConfig) { c.ConfigPath = existing + ".missing" }, true},
		{"bad level", func(c *CLIConfig) { c.LogLevel = "trace" }, true},
		{"bad format", func(c *CLIConfig) { c.LogFormat = "xml" }, true},
		{"zero shutdown timeout", func(c *CLIConfig) { c.ShutdownTimeout = 0 }, true},
		{"version skips checks", func(c *CLIConfig) { c.ShowVersion = true; c.LogLevel = "trace" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := validateFlags(&cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "module", "inventory")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, appName, entry["service"])
	assert.Equal(t, Version, entry["version"])
	assert.Equal(t, "inventory", entry["module"])
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestNewLogger_TextRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "text")

	logger.Debug("forward headers", "authorization", "Bearer s3cret", "X-Api-Key", "k1", "module", "inventory")

	out := buf.String()
	assert.NotContains(t, out, "s3cret")
	assert.NotContains(t, out, "k1")
	assert.Contains(t, out, "authorization=[REDACTED]")
	assert.Contains(t, out, "module=inventory")
	assert.Contains(t, out, "source=", "debug adds the call site")
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	t.Setenv("NODEGATE_MODULES", "inventory=http://inventory:8001")

	cfg, err := loadConfig("")
	require.NoError(t, err)

	require.Len(t, cfg.Modules, 1)
	assert.Equal(t, "inventory", cfg.Modules[0].Name)
}

func TestApp_ServesAndShutsDown(t *testing.T) {
	module := testutil.NewModuleServer(t, testutil.JSONHandler(http.StatusOK, map[string]any{"stock": 3}))

	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Modules = []registry.Binding{{Name: "inventory", BaseURL: module.URL}}
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Nil(t, a.natsClient, "NATS disabled by default")
	assert.Nil(t, a.metricsServer, "metrics disabled by default")

	done := make(chan error, 1)
	go func() { done <- a.run(ctx, 5*time.Second) }()

	var addr string
	require.Eventually(t, func() bool {
		addr = a.server.Addr()
		return addr != cfg.Server.Addr
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post("http://"+addr+"/forward/inventory/stock", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["stock"])

	resp, err = http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not shut down")
	}
	assert.Equal(t, uint64(1), a.gateway.Stats().RequestsTotal)
}

func TestApp_MetricsShutdownRightAfterStart(t *testing.T) {
	for i := 0; i < 10; i++ {
		cfg := config.Default()
		cfg.Server.Addr = "127.0.0.1:0"
		cfg.Metrics.Enabled = true
		cfg.Metrics.Port = freePort(t)
		require.NoError(t, cfg.Validate())

		a, err := newApp(context.Background(), cfg, slog.New(slog.DiscardHandler))
		require.NoError(t, err)
		require.NotNil(t, a.metricsServer)

		// Cancelled before run: shutdown races the listeners coming up.
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		done := make(chan error, 1)
		go func() { done <- a.run(ctx, 2*time.Second) }()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatalf("iteration %d: app hung during shutdown", i)
		}
		assert.NotNil(t, a.metricsServer.Done(), "metrics listener was started")
	}
}

func TestApp_MetricsPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, cfg.Validate())

	a, err := newApp(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	err = a.run(context.Background(), time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start metrics server")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, a.server.Stop(ctx), "gateway listener is released when metrics fail to bind")
}

func TestApp_NATSUnavailableDegrades(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.NATS.Enabled = true
	cfg.NATS.URL = "nats://127.0.0.1:1"
	cfg.NATS.MaxReconnects = 0
	require.NoError(t, cfg.Validate())

	a, err := newApp(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err, "an unreachable event bus must not block startup")
	require.NotNil(t, a.natsClient)
	t.Cleanup(func() { _ = a.natsClient.Close(context.Background()) })

	rec := getHealth(t, a)
	assert.Equal(t, http.StatusOK, rec.code)
	assert.Equal(t, "degraded", rec.body["status"])
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

type recorded struct {
	code int
	body map[string]any
}

// getHealth starts the app's listener and fetches /health once.
func getHealth(t *testing.T, a *app) recorded {
	t.Helper()
	require.NoError(t, a.server.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.server.Stop(ctx)
	})

	resp, err := http.Get("http://" + a.server.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return recorded{code: resp.StatusCode, body: body}
}
