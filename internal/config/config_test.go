package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/penwyp/go-optrace/internal/core/model"
	"github.com/penwyp/go-optrace/internal/core/simplify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPTRACE_MODE", "OPTRACE_THRESHOLD", "OPTRACE_LISTEN",
		"OPTRACE_LOG_LEVEL", "OPTRACE_USERNAME", "OPTRACE_PRODUCT_CODE",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, simplify.ModeStructure, cfg.Compression.Mode)
	assert.Equal(t, simplify.DefaultThreshold, cfg.Compression.Threshold)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Empty(t, cfg.Whitelist)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaultPathFromHome(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, appDirName)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"compressionMode":"count"}`), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, simplify.ModeCount, cfg.Compression.Mode)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `{
		"urlWhitelist": [
			{"alias": "SysA", "prefix": "https://a.example.com", "filterGateway": true},
			{"alias": "SysB", "prefix": "https://b.example.com"}
		],
		"username": "tester",
		"productCode": "P-1",
		"compressionMode": "length",
		"compressionThreshold": 200,
		"listen": "127.0.0.1:9000"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []model.WhitelistEntry{
		{Alias: "SysA", Prefix: "https://a.example.com", FilterGateway: true},
		{Alias: "SysB", Prefix: "https://b.example.com"},
	}, cfg.Whitelist)
	assert.Equal(t, simplify.Config{Mode: simplify.ModeLength, Threshold: 200}, cfg.Compression)
	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, map[string]string{HeaderAppID: "P-1", HeaderUserAccount: "tester"}, cfg.UploadHeaders())
}

func TestLoadThresholdForms(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name     string
		content  string
		expected int
	}{
		{name: "number", content: `{"compressionThreshold": 42}`, expected: 42},
		{name: "numeric text", content: `{"compressionThreshold": "42"}`, expected: 42},
		{name: "empty text", content: `{"compressionThreshold": ""}`, expected: simplify.DefaultThreshold},
		{name: "zero", content: `{"compressionThreshold": 0}`, expected: simplify.DefaultThreshold},
		{name: "garbage", content: `{"compressionThreshold": "abc"}`, expected: simplify.DefaultThreshold},
		{name: "absent", content: `{}`, expected: simplify.DefaultThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.Compression.Threshold)
		})
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `{"compressionMode": "length", "compressionThreshold": 200, "listen": ":1"}`)

	t.Setenv("OPTRACE_MODE", "count")
	t.Setenv("OPTRACE_THRESHOLD", "7")
	t.Setenv("OPTRACE_LISTEN", ":2")
	t.Setenv("OPTRACE_LOG_LEVEL", "debug")
	t.Setenv("OPTRACE_USERNAME", "env-user")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, simplify.Config{Mode: simplify.ModeCount, Threshold: 7}, cfg.Compression)
	assert.Equal(t, ":2", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "env-user", cfg.Username)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{"compressionMode":`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		invalid bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown mode", mutate: func(c *Config) { c.Compression.Mode = "fast" }, wantErr: true, invalid: true},
		{name: "negative threshold", mutate: func(c *Config) { c.Compression.Threshold = -1 }, wantErr: true},
		{name: "zero threshold", mutate: func(c *Config) { c.Compression.Threshold = 0 }},
		{name: "whitelist without prefix", mutate: func(c *Config) {
			c.Whitelist = []model.WhitelistEntry{{Alias: "A"}}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidMode)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode(" Count ")
	require.NoError(t, err)
	assert.Equal(t, simplify.ModeCount, mode)

	_, err = ParseMode("zip")
	assert.ErrorIs(t, err, ErrInvalidMode)
}
