package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Env != "prod" {
		t.Errorf("expected Env=prod, got %q", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel=info, got %q", cfg.LogLevel)
	}
	if cfg.Listen != "127.0.0.1:8787" {
		t.Errorf("expected Listen=127.0.0.1:8787, got %q", cfg.Listen)
	}
	if cfg.DBPath != "/var/lib/siteblock/state.db" {
		t.Errorf("expected DBPath=/var/lib/siteblock/state.db, got %q", cfg.DBPath)
	}
	if cfg.RuleCacheSize != 1000 {
		t.Errorf("expected RuleCacheSize=1000, got %d", cfg.RuleCacheSize)
	}
	if cfg.BloomFPRate != 0.01 {
		t.Errorf("expected BloomFPRate=0.01, got %v", cfg.BloomFPRate)
	}
	if cfg.WarningPage != "warning.html" {
		t.Errorf("expected WarningPage=warning.html, got %q", cfg.WarningPage)
	}
	if cfg.ContentSource != "extension" {
		t.Errorf("expected ContentSource=extension, got %q", cfg.ContentSource)
	}
	if cfg.CommandTimeout != 10*time.Second {
		t.Errorf("expected CommandTimeout=10s, got %v", cfg.CommandTimeout)
	}
	if cfg.PromptTimeout != 2*time.Minute {
		t.Errorf("expected PromptTimeout=2m, got %v", cfg.PromptTimeout)
	}
	if cfg.FetchTimeout != 15*time.Second {
		t.Errorf("expected FetchTimeout=15s, got %v", cfg.FetchTimeout)
	}
}

func TestLoad_ValidOverrides(t *testing.T) {
	t.Setenv("SITEBLOCK_ENV", "dev")
	t.Setenv("SITEBLOCK_LOG_LEVEL", "debug")
	t.Setenv("SITEBLOCK_LOG_FILE", "/tmp/siteblockd.log")
	t.Setenv("SITEBLOCK_LISTEN", "localhost:9000")
	t.Setenv("SITEBLOCK_DB_PATH", "/tmp/siteblock.db")
	t.Setenv("SITEBLOCK_RULE_CACHE_SIZE", "0")
	t.Setenv("SITEBLOCK_BLOOM_FP_RATE", "0.05")
	t.Setenv("SITEBLOCK_WARNING_PAGE", "chrome-extension://abc/warning.html")
	t.Setenv("SITEBLOCK_EXTENSION_ORIGIN", "chrome-extension://abc")
	t.Setenv("SITEBLOCK_CONTENT_SOURCE", "fetch")
	t.Setenv("SITEBLOCK_COMMAND_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Env != "dev" {
		t.Errorf("expected Env=dev, got %q", cfg.Env)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel=debug, got %q", cfg.LogLevel)
	}
	if cfg.LogFile != "/tmp/siteblockd.log" {
		t.Errorf("expected LogFile override, got %q", cfg.LogFile)
	}
	if cfg.Listen != "localhost:9000" {
		t.Errorf("expected Listen=localhost:9000, got %q", cfg.Listen)
	}
	if cfg.DBPath != "/tmp/siteblock.db" {
		t.Errorf("expected DBPath=/tmp/siteblock.db, got %q", cfg.DBPath)
	}
	if cfg.RuleCacheSize != 0 {
		t.Errorf("expected RuleCacheSize=0, got %d", cfg.RuleCacheSize)
	}
	if cfg.BloomFPRate != 0.05 {
		t.Errorf("expected BloomFPRate=0.05, got %v", cfg.BloomFPRate)
	}
	if cfg.ExtensionOrigin != "chrome-extension://abc" {
		t.Errorf("expected ExtensionOrigin override, got %q", cfg.ExtensionOrigin)
	}
	if cfg.ContentSource != "fetch" {
		t.Errorf("expected ContentSource=fetch, got %q", cfg.ContentSource)
	}
	if cfg.CommandTimeout != 3*time.Second {
		t.Errorf("expected CommandTimeout=3s, got %v", cfg.CommandTimeout)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"SITEBLOCK_ENV":            "staging",
		"SITEBLOCK_LOG_LEVEL":      "trace",
		"SITEBLOCK_LISTEN":         "no-port",
		"SITEBLOCK_BLOOM_FP_RATE":  "1.5",
		"SITEBLOCK_CONTENT_SOURCE": "ocr",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error for %s=%s", key, value)
			}
		})
	}
}

func TestValidHostPort(t *testing.T) {
	v := validator.New()
	if err := v.RegisterValidation("host_port", validHostPort); err != nil {
		t.Fatalf("register: %v", err)
	}
	type target struct {
		Addr string `validate:"host_port"`
	}
	cases := []struct {
		addr string
		ok   bool
	}{
		{"127.0.0.1:8787", true},
		{":8787", true},
		{"localhost:1", true},
		{"[::1]:8787", true},
		{"example.com:80", false},
		{"127.0.0.1:0", false},
		{"127.0.0.1:70000", false},
		{"127.0.0.1", false},
	}
	for _, tc := range cases {
		err := v.Struct(target{Addr: tc.addr})
		if (err == nil) != tc.ok {
			t.Errorf("host_port(%q) ok=%v, want %v (err=%v)", tc.addr, err == nil, tc.ok, err)
		}
	}
}

func TestLoad_WhenKoanfDefaultLoadFails(t *testing.T) {
	orig := defaultLoader
	defaultLoader = func(k *koanf.Koanf) error { return errors.New("mocked error") }
	defer func() { defaultLoader = orig }()

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "mocked error") {
		t.Fatal("expected error when loading defaults, got nil")
	}
}

func TestLoad_WhenKoanfEnvLoadFails(t *testing.T) {
	orig := envLoader
	envLoader = func(k *koanf.Koanf) error { return errors.New("mocked error") }
	defer func() { envLoader = orig }()

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "mocked error") {
		t.Fatal("expected error when loading env, got nil")
	}
}

func TestLoad_RegisterValidationFails(t *testing.T) {
	orig := registerValidation
	registerValidation = func(v *validator.Validate) error { return errors.New("mocked validation error") }
	defer func() { registerValidation = orig }()

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "mocked validation error") {
		t.Fatal("expected error when registering validation, got nil")
	}
}

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad_ConfigFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "siteblock.yaml",
			content: `listen: "127.0.0.1:9100"
content_source: fetch
prompt_timeout: 30s
`,
		},
		{
			name:    "json",
			file:    "siteblock.json",
			content: `{"listen": "127.0.0.1:9100", "content_source": "fetch", "prompt_timeout": "30s"}`,
		},
		{
			name: "toml",
			file: "siteblock.toml",
			content: `listen = "127.0.0.1:9100"
content_source = "fetch"
prompt_timeout = "30s"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigFileEnv, writeConfigFile(t, tt.file, tt.content))

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned error: %v", err)
			}
			if cfg.Listen != "127.0.0.1:9100" {
				t.Errorf("expected Listen from file, got %q", cfg.Listen)
			}
			if cfg.ContentSource != "fetch" {
				t.Errorf("expected ContentSource=fetch, got %q", cfg.ContentSource)
			}
			if cfg.PromptTimeout != 30*time.Second {
				t.Errorf("expected PromptTimeout=30s, got %v", cfg.PromptTimeout)
			}
			if cfg.LogLevel != "info" {
				t.Errorf("expected default LogLevel to survive, got %q", cfg.LogLevel)
			}
		})
	}
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, writeConfigFile(t, "siteblock.yml", "listen: \"127.0.0.1:9100\"\n"))
	t.Setenv("SITEBLOCK_LISTEN", "127.0.0.1:9200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Listen != "127.0.0.1:9200" {
		t.Errorf("expected env to win, got %q", cfg.Listen)
	}
}

func TestLoad_ConfigFileErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"unsupported extension", func(t *testing.T) string { return writeConfigFile(t, "siteblock.ini", "listen=x") }},
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{"malformed yaml", func(t *testing.T) string { return writeConfigFile(t, "bad.yaml", "listen: [unclosed") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigFileEnv, tt.path(t))
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), "error loading config file") {
				t.Fatalf("expected config file error, got %v", err)
			}
		})
	}
}
