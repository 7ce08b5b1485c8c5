package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigFileEnv names an optional YAML, JSON or TOML file loaded between the
// defaults and the environment.
const ConfigFileEnv = "SITEBLOCK_CONFIG_FILE"

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// LogFile, when set, mirrors log output to a rotating JSON file.
	LogFile string `koanf:"log_file"`

	// Listen is the host:port the extension bridge binds to.
	Listen string `koanf:"listen" validate:"required,host_port"`

	// DBPath is the bbolt file holding the persisted key-value store.
	DBPath string `koanf:"db_path" validate:"required"`

	// RuleCacheSize bounds the rule decision cache. Zero disables it.
	RuleCacheSize int `koanf:"rule_cache_size" validate:"gte=0"`

	// BloomFPRate is the target false-positive rate of the rule bloom filter.
	BloomFPRate float64 `koanf:"bloom_fp_rate" validate:"gt=0,lt=1"`

	// WarningPage is the extension page blocked navigations are redirected to.
	WarningPage string `koanf:"warning_page" validate:"required"`

	// ExtensionOrigin is the extension's own origin, e.g. chrome-extension://<id>.
	// Navigations under it are ignored and bridge connections must present it.
	ExtensionOrigin string `koanf:"extension_origin"`

	// ContentSource selects how page title/description are obtained.
	ContentSource string `koanf:"content_source" validate:"required,oneof=extension fetch"`

	// CommandTimeout bounds every round trip to the extension.
	CommandTimeout time.Duration `koanf:"command_timeout" validate:"required"`

	// PromptTimeout bounds how long an in-page block prompt waits for the user.
	PromptTimeout time.Duration `koanf:"prompt_timeout" validate:"required"`

	// FetchTimeout bounds page fetches when ContentSource is "fetch".
	FetchTimeout time.Duration `koanf:"fetch_timeout" validate:"required"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings for the daemon.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:            "prod",
	LogLevel:       "info",
	LogFile:        "",
	Listen:         "127.0.0.1:8787",
	DBPath:         "/var/lib/siteblock/state.db",
	RuleCacheSize:  1000,
	BloomFPRate:    0.01,
	WarningPage:    "warning.html",
	ContentSource:  "extension",
	CommandTimeout: 10 * time.Second,
	PromptTimeout:  2 * time.Minute,
	FetchTimeout:   15 * time.Second,
}

// validHostPort validates a listen address in "host:port" form. The host may be
// empty (all interfaces), "localhost", or an IP literal.
func validHostPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	host, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return false
	}
	if host != "" && host != "localhost" && net.ParseIP(host) == nil {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0
}

// envLoader loads environment variables with the prefix "SITEBLOCK_".
// It transforms the keys to lowercase and removes the prefix,
// and can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "SITEBLOCK_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "SITEBLOCK_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG into the provided Koanf instance.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// fileLoader loads the config file at path, picking the parser from its extension.
var fileLoader = func(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	case ".toml":
		parser = toml.Parser()
	default:
		return fmt.Errorf("unsupported config file extension: %s", path)
	}
	return k.Load(file.Provider(path), parser)
}

// registerValidation registers the custom "host_port" tag.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("host_port", validHostPort)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := fileLoader(k, path); err != nil {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
