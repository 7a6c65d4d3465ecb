package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBytes_Defaults(t *testing.T) {
	cfg, err := LoadBytes([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "hash", cfg.Embeddings.Provider)
	assert.Equal(t, 384, cfg.Embeddings.Dimension)
	assert.Equal(t, 0, cfg.Memory.MaxRecordsPerCategory)
	assert.False(t, cfg.Memory.Persist)
	assert.Equal(t, "adventure", cfg.Pipeline.Style)
	assert.Equal(t, "medium", cfg.Pipeline.Length)
	assert.Equal(t, 3, cfg.Pipeline.NumCharacters)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "storyweaver", cfg.Telemetry.ServiceName)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRatio)
}

func TestLoadBytes_YAML(t *testing.T) {
	yaml := `
logging:
  level: debug
  format: console
embeddings:
  provider: fastembed
  model: BAAI/bge-base-en-v1.5
memory:
  max_records_per_category: 100
  persist: true
  path: /tmp/storyweaver-test
pipeline:
  style: thriller
  length: long
  num_characters: 5
`
	cfg, err := LoadBytes([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
	assert.Equal(t, "BAAI/bge-base-en-v1.5", cfg.Embeddings.Model)
	assert.Equal(t, 100, cfg.Memory.MaxRecordsPerCategory)
	assert.True(t, cfg.Memory.Persist)
	assert.Equal(t, "/tmp/storyweaver-test", cfg.Memory.Path)
	assert.Equal(t, "thriller", cfg.Pipeline.Style)
	assert.Equal(t, "long", cfg.Pipeline.Length)
	assert.Equal(t, 5, cfg.Pipeline.NumCharacters)
}

func TestLoadBytes_EnvOverridesYAML(t *testing.T) {
	t.Setenv("STORYWEAVER_LOGGING_LEVEL", "warn")
	t.Setenv("STORYWEAVER_PIPELINE_NUM_CHARACTERS", "4")

	cfg, err := LoadBytes([]byte("logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Pipeline.NumCharacters)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "hash", cfg.Embeddings.Provider)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  style: noir\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "noir", cfg.Pipeline.Style)
}

func TestLoadBytes_InvalidYAML(t *testing.T) {
	_, err := LoadBytes([]byte("logging: [unclosed"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "bad provider",
			mutate:  func(c *Config) { c.Embeddings.Provider = "openai" },
			wantErr: "embeddings.provider",
		},
		{
			name:    "negative dimension",
			mutate:  func(c *Config) { c.Embeddings.Dimension = -1 },
			wantErr: "embeddings.dimension",
		},
		{
			name:    "negative retention",
			mutate:  func(c *Config) { c.Memory.MaxRecordsPerCategory = -5 },
			wantErr: "max_records_per_category",
		},
		{
			name:    "bad length",
			mutate:  func(c *Config) { c.Pipeline.Length = "epic" },
			wantErr: "pipeline.length",
		},
		{
			name:    "zero characters",
			mutate:  func(c *Config) { c.Pipeline.NumCharacters = 0 },
			wantErr: "num_characters",
		},
		{
			name:    "sample ratio out of range",
			mutate:  func(c *Config) { c.Telemetry.SampleRatio = 1.5 },
			wantErr: "sample_ratio",
		},
		{
			name: "telemetry enabled without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			wantErr: "telemetry.endpoint",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(out))

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("not a duration")))
}
