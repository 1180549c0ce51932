package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "COURSESEARCH_"

// searchPath lists the config files tried when neither a path nor
// COURSESEARCH_CONFIG names one.
var searchPath = []string{"config.yaml", "/etc/coursesearch/config.yaml"}

// Load builds the configuration in layers, later ones winning: defaults,
// the YAML file, COURSESEARCH_* variables, then *_file secrets. The result
// is validated. Unknown YAML keys are an error.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if path := findConfigFile(configPath); path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
		slog.Debug("config file loaded", "path", path)
	}

	applyEnvOverrides(&cfg)

	if err := resolveSecretFiles(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// findConfigFile returns the explicit path, COURSESEARCH_CONFIG, or the
// first file of searchPath that exists. "" means run on defaults.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	for _, p := range searchPath {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// decodeFile overlays the YAML document at path onto cfg. An empty file
// changes nothing.
func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides maps COURSESEARCH_* environment variables to config
// fields. Values that fail to parse are logged and ignored.
func applyEnvOverrides(cfg *Config) {
	envString("PORT", func(v string) {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			slog.Warn("ignoring invalid environment value", "var", EnvPrefix+"PORT", "error", err)
		}
	})
	envString("BASE_URL", func(v string) { cfg.Server.BaseURL = v })

	envString("STORAGE", func(v string) { cfg.Storage.Type = v })
	envString("STORAGE_DSN", func(v string) { cfg.Storage.DSN = v })
	envBool("MIGRATE_ON_START", &cfg.Storage.MigrateOnStart)
	envString("SEED_FILE", func(v string) { cfg.Storage.SeedFile = v })

	envDuration("ADAPTER_TIMEOUT", &cfg.Search.AdapterTimeout)
	envDuration("GATE_CACHE_TTL", &cfg.Search.GateCacheTTL)
	envString("CONCURRENCY", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.Concurrency = n
		} else {
			slog.Warn("ignoring invalid environment value", "var", EnvPrefix+"CONCURRENCY", "error", err)
		}
	})
	envString("DISABLED_SOURCES", func(v string) { cfg.Search.DisabledSources = splitList(v) })

	envString("AUTH_TYPE", func(v string) { cfg.Auth.Type = v })
	envString("JWT_SECRET", func(v string) { cfg.Auth.JWT.Secret = v })
	envString("JWKS_URL", func(v string) { cfg.Auth.JWT.JWKSURL = v })

	// COURSESEARCH_API_KEYS: JSON array of API key configs.
	envString("API_KEYS", func(v string) {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			slog.Warn("ignoring invalid environment value", "var", EnvPrefix+"API_KEYS", "error", err)
			return
		}
		if len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	})

	envBool("MCP_ENABLED", &cfg.MCP.Enabled)
	envBool("METRICS_ENABLED", &cfg.Observability.Metrics.Enabled)
	envBool("TRACING_ENABLED", &cfg.Observability.Tracing.Enabled)
	envString("OTLP_ENDPOINT", func(v string) { cfg.Observability.Tracing.Endpoint = v })

	envString("LOG_LEVEL", func(v string) { cfg.Logging.Level = v })
	envString("LOG_FORMAT", func(v string) { cfg.Logging.Format = v })
	envString("DEBUG", func(v string) { cfg.Logging.Debug = v })
}

func envString(name string, set func(string)) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		set(v)
	}
}

func envBool(name string, dst *bool) {
	envString(name, func(v string) {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("ignoring invalid environment value", "var", EnvPrefix+name, "error", err)
			return
		}
		*dst = b
	})
}

func envDuration(name string, dst *time.Duration) {
	envString(name, func(v string) {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("ignoring invalid environment value", "var", EnvPrefix+name, "error", err)
			return
		}
		*dst = d
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// resolveSecretFiles fills each secret from its *_file companion. A value
// set directly wins over the file.
func resolveSecretFiles(cfg *Config) error {
	type ref struct {
		name        string
		file, value *string
	}
	refs := []ref{
		{"storage.dsn_file", &cfg.Storage.DSNFile, &cfg.Storage.DSN},
		{"auth.jwt.secret_file", &cfg.Auth.JWT.SecretFile, &cfg.Auth.JWT.Secret},
	}
	for i := range cfg.Auth.APIKeys {
		k := &cfg.Auth.APIKeys[i]
		refs = append(refs, ref{fmt.Sprintf("auth.api_keys[%d].key_file", i), &k.KeyFile, &k.Key})
	}

	for _, r := range refs {
		if *r.file == "" || *r.value != "" {
			continue
		}
		data, err := os.ReadFile(*r.file)
		if err != nil {
			return fmt.Errorf("%s: %w", r.name, err)
		}
		*r.value = strings.TrimSpace(string(data))
	}
	return nil
}
