package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// envPrefix namespaces storyweaver environment variables.
	envPrefix = "STORYWEAVER_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load loads configuration from a YAML file, then overrides with environment
// variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (STORYWEAVER_LOGGING_LEVEL, STORYWEAVER_MEMORY_PERSIST, ...)
//  2. YAML config file
//  3. Defaults
//
// If configPath is empty, ~/.config/storyweaver/config.yaml is used. A missing
// file is not an error; defaults and environment apply.
//
// Environment variables map to config keys by stripping the prefix,
// lowercasing and splitting on the first underscore per section:
//
//	STORYWEAVER_LOGGING_LEVEL            -> logging.level
//	STORYWEAVER_EMBEDDINGS_PROVIDER      -> embeddings.provider
//	STORYWEAVER_MEMORY_MAX_RECORDS_PER_CATEGORY -> memory.max_records_per_category
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "storyweaver", "config.yaml")
	}

	if info, err := os.Stat(configPath); err == nil {
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s exceeds %d bytes", configPath, maxConfigFileSize)
		}
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	if err := loadEnv(k); err != nil {
		return nil, err
	}

	return unmarshal(k)
}

// LoadBytes loads configuration from raw YAML, then applies environment
// overrides. Used by tests.
func LoadBytes(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := loadEnv(k); err != nil {
		return nil, err
	}

	return unmarshal(k)
}

func loadEnv(k *koanf.Koanf) error {
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		// The first segment is the section name; the remainder is the
		// field name, which may itself contain underscores.
		parts := strings.SplitN(key, "_", 2)
		if len(parts) == 2 {
			return parts[0] + "." + parts[1]
		}
		return key
	}), nil)
	if err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}
	return nil
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
