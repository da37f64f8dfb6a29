// Package config loads optrace settings from defaults, an optional JSON
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-optrace/internal/core/model"
	"github.com/penwyp/go-optrace/internal/core/simplify"
)

const (
	DefaultListen   = ":8787"
	DefaultLogLevel = "info"

	appDirName = ".optrace"
)

var ErrInvalidMode = errors.New("invalid compression mode")

// Upload request headers carrying the account settings.
const (
	HeaderAppID       = "x-test-app-id"
	HeaderUserAccount = "x-user-account"
)

type Config struct {
	Compression simplify.Config
	Whitelist   []model.WhitelistEntry
	Username    string
	ProductCode string
	LogLevel    string
	Listen      string
}

// fileConfig mirrors the settings keys saved by the recorder extension.
type fileConfig struct {
	URLWhitelist         []model.WhitelistEntry `json:"urlWhitelist"`
	Username             string                 `json:"username"`
	ProductCode          string                 `json:"productCode"`
	CompressionMode      string                 `json:"compressionMode"`
	CompressionThreshold any                    `json:"compressionThreshold"`
	LogLevel             string                 `json:"logLevel"`
	Listen               string                 `json:"listen"`
}

func Default() *Config {
	return &Config{
		Compression: simplify.DefaultConfig(),
		LogLevel:    DefaultLogLevel,
		Listen:      DefaultListen,
	}
}

// Dir is the per-user optrace directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return appDirName
	}
	return filepath.Join(home, appDirName)
}

func DefaultPath() string {
	return filepath.Join(Dir(), "config.json")
}

func DefaultLogFile() string {
	return filepath.Join(Dir(), "logs", "app.log")
}

func DefaultCacheDir() string {
	return filepath.Join(Dir(), "cache")
}

// Load builds the configuration from defaults, the JSON file at path and
// OPTRACE_* environment variables, in increasing priority. An empty path
// reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultPath()
	}
	if err := cfg.loadFile(path, optional); err != nil {
		return nil, err
	}
	cfg.loadEnv()

	return cfg, nil
}

func (c *Config) loadFile(path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := sonic.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.URLWhitelist != nil {
		c.Whitelist = fc.URLWhitelist
	}
	if fc.Username != "" {
		c.Username = fc.Username
	}
	if fc.ProductCode != "" {
		c.ProductCode = fc.ProductCode
	}
	if fc.CompressionMode != "" {
		c.Compression.Mode = simplify.Mode(fc.CompressionMode)
	}
	if fc.CompressionThreshold != nil {
		c.Compression.Threshold = thresholdOf(fc.CompressionThreshold)
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.Listen != "" {
		c.Listen = fc.Listen
	}
	return nil
}

// thresholdOf accepts the threshold as saved by the settings form, which may
// be a number or the raw text of the input field.
func thresholdOf(v any) int {
	switch t := v.(type) {
	case float64:
		if t == 0 {
			return simplify.DefaultThreshold
		}
		return int(t)
	case string:
		return simplify.ParseThreshold(t)
	default:
		return simplify.DefaultThreshold
	}
}

func (c *Config) loadEnv() {
	c.Compression.Mode = simplify.Mode(getEnv("OPTRACE_MODE", string(c.Compression.Mode)))
	if val := os.Getenv("OPTRACE_THRESHOLD"); val != "" {
		c.Compression.Threshold = simplify.ParseThreshold(val)
	}
	c.Listen = getEnv("OPTRACE_LISTEN", c.Listen)
	c.LogLevel = getEnv("OPTRACE_LOG_LEVEL", c.LogLevel)
	c.Username = getEnv("OPTRACE_USERNAME", c.Username)
	c.ProductCode = getEnv("OPTRACE_PRODUCT_CODE", c.ProductCode)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Validate checks values that cannot be repaired silently.
func (c *Config) Validate() error {
	if !c.Compression.Mode.Known() {
		return fmt.Errorf("%w %q (want one of %s)", ErrInvalidMode, c.Compression.Mode, modeList())
	}
	if c.Compression.Threshold < 0 {
		return fmt.Errorf("invalid threshold %d: must not be negative", c.Compression.Threshold)
	}
	for i, entry := range c.Whitelist {
		if entry.Alias == "" || entry.Prefix == "" {
			return fmt.Errorf("invalid whitelist entry %d: alias and prefix are required", i)
		}
	}
	return nil
}

func modeList() string {
	modes := simplify.Modes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// UploadHeaders returns the account headers sent with report uploads.
func (c *Config) UploadHeaders() map[string]string {
	return map[string]string{
		HeaderAppID:       c.ProductCode,
		HeaderUserAccount: c.Username,
	}
}

// ParseMode converts a user supplied mode name, rejecting unknown names.
func ParseMode(s string) (simplify.Mode, error) {
	mode := simplify.Mode(strings.ToLower(strings.TrimSpace(s)))
	if !mode.Known() {
		return "", fmt.Errorf("%w %q (want one of %s)", ErrInvalidMode, s, modeList())
	}
	return mode, nil
}
