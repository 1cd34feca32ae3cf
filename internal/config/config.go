// Package config loads pipeline configuration from a fixed-schema YAML file
// with environment-variable overrides, following the embedded-defaults
// pattern of the teacher's config loader.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/asteria-studio/normalize-core/internal/constants"
)

//go:embed pipeline_config.yaml
var defaultsYAML []byte

// Config is the fully resolved pipeline configuration: YAML defaults
// overridden by environment variables, in turn overridable by explicit
// caller-supplied run options.
type Config struct {
	Concurrency  int
	OutputDir    string
	RunID        string
	ObsDir       string
	RemoteLayout RemoteLayoutConfig
}

// RemoteLayoutConfig configures the optional remote layout collaborator.
type RemoteLayoutConfig struct {
	Enabled         bool
	Endpoint        string
	Token           string
	TimeoutMs       int
	MaxPayloadBytes int64
	MaxDimension    int
}

// fileSchema mirrors the fixed, enumerated shape of spec/pipeline_config.yaml.
// Decoding with KnownFields(true) rejects any key outside this schema,
// including nested remoteLayout keys, per the pipeline's fixed-schema
// configuration rule.
type fileSchema struct {
	Concurrency  int                `yaml:"concurrency"`
	OutputDir    string             `yaml:"outputDir"`
	ObsDir       string             `yaml:"obsDir"`
	RemoteLayout remoteLayoutSchema `yaml:"remoteLayout"`
}

type remoteLayoutSchema struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	TimeoutMs       int    `yaml:"timeoutMs"`
	MaxPayloadBytes int64  `yaml:"maxPayloadBytes"`
	MaxDimension    int    `yaml:"maxDimension"`
}

// envInt reads an environment variable and parses it as a positive integer,
// falling back to defaultVal when unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envInt64(key string, defaultVal int64) int64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func decodeStrict(data []byte, out *fileSchema) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// loadSchema decodes the embedded pipeline_config.yaml, then applies an
// optional project override file (spec/pipeline_config.yaml) on top. Both
// are decoded under strict, unknown-field-rejecting decoding: a malformed
// or schema-violating override aborts the run rather than silently falling
// back to defaults.
func loadSchema(projectOverride []byte) (fileSchema, error) {
	var schema fileSchema
	if err := decodeStrict(defaultsYAML, &schema); err != nil {
		return fileSchema{}, fmt.Errorf("config: embedded pipeline_config.yaml is invalid: %w", err)
	}
	if len(projectOverride) > 0 {
		if err := decodeStrict(projectOverride, &schema); err != nil {
			return fileSchema{}, fmt.Errorf("config: project pipeline_config.yaml is invalid: %w", err)
		}
	}
	return schema, nil
}

// Load resolves a Config from the embedded defaults, an optional project
// override file, and environment variables, in that precedence order:
// environment wins over YAML, YAML wins over the hardcoded fallback.
func Load(projectOverride []byte) (*Config, error) {
	schema, err := loadSchema(projectOverride)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Concurrency: envInt("ASTERIA_NORMALIZE_CONCURRENCY", orDefault(schema.Concurrency, constants.DefaultConcurrency)),
		OutputDir:   envString("ASTERIA_OUTPUT_DIR", schema.OutputDir),
		RunID:       os.Getenv("ASTERIA_RUN_ID"),
		ObsDir:      envString("ASTERIA_OBS_DIR", schema.ObsDir),
		RemoteLayout: RemoteLayoutConfig{
			Enabled:         envBool("ASTERIA_REMOTE_LAYOUT_ENABLED", schema.RemoteLayout.Enabled),
			Endpoint:        envString("ASTERIA_REMOTE_LAYOUT_ENDPOINT", schema.RemoteLayout.Endpoint),
			Token:           os.Getenv("ASTERIA_REMOTE_LAYOUT_TOKEN"),
			TimeoutMs:       envInt("ASTERIA_REMOTE_LAYOUT_TIMEOUT_MS", orDefault(schema.RemoteLayout.TimeoutMs, constants.DefaultRemoteLayoutTimeoutMs)),
			MaxPayloadBytes: envInt64("ASTERIA_REMOTE_LAYOUT_MAX_PAYLOAD_MB", orDefault64(schema.RemoteLayout.MaxPayloadBytes, 8)) * 1024 * 1024,
			MaxDimension:    envInt("ASTERIA_REMOTE_LAYOUT_MAX_DIMENSION", orDefault(schema.RemoteLayout.MaxDimension, 2000)),
		},
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = constants.DefaultConcurrency
	}
	return cfg, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefault64(v, def int64) int64 {
	if v <= 0 {
		return def
	}
	return v
}
