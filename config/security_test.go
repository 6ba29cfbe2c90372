package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"empty", "", "empty config path"},
		{"too long", "/" + strings.Repeat("a", maxPathLen) + ".json", "path too long"},
		{"relative escape", "../../etc/nodegate.json", "path traversal"},
		{"absolute traversal", "/etc/nodegate/../passwd.json", "path traversal"},
		{"wrong extension", "/etc/passwd", "config files allowed"},
		{"json", "/etc/nodegate/config.json", ""},
		{"yaml", "/etc/nodegate/config.yaml", ""},
		{"yml upper case", "/etc/nodegate/config.YML", ""},
		{"relative inside cwd", "configs/gateway.yaml", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSafeReadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("regular file", func(t *testing.T) {
		path := filepath.Join(dir, "ok.json")
		require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))

		data, err := safeReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(data))
	})

	t.Run("directory", func(t *testing.T) {
		path := filepath.Join(dir, "dir.json")
		require.NoError(t, os.Mkdir(path, 0700))

		_, err := safeReadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a regular file")
	})

	t.Run("too large", func(t *testing.T) {
		path := filepath.Join(dir, "big.yaml")
		require.NoError(t, os.WriteFile(path, make([]byte, maxConfigSize+1), 0600))

		_, err := safeReadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too large")
	})
}

func TestValidateJSONDepth(t *testing.T) {
	assert.NoError(t, validateJSONDepth([]byte(`{"a": [1, {"b": "}}}]]"}]}`)))
	assert.NoError(t, validateJSONDepth([]byte(`{"s": "escaped \" quote {"}`)))

	deep := strings.Repeat("[", maxJSONDepth+1) + strings.Repeat("]", maxJSONDepth+1)
	err := validateJSONDepth([]byte(deep))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too deep")

	assert.Error(t, validateJSONDepth([]byte(`{"a": 1}}`)))
	assert.Error(t, validateJSONDepth([]byte(`{"a": [1}`)))
}

func TestValidateEnvVar(t *testing.T) {
	assert.NoError(t, validateEnvVar("NODEGATE_X", ""))
	assert.NoError(t, validateEnvVar("NODEGATE_X", "value"))
	assert.Error(t, validateEnvVar("NODEGATE_X", strings.Repeat("a", maxEnvVarLen+1)))
	assert.Error(t, validateEnvVar("NODEGATE_X", "a\x00b"))
}
