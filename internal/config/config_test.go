package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config search at an empty location.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("APPOINTMENT_CONFIG", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("APPOINTMENT_OPENAI_API_KEY", "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 0.3, cfg.OpenAI.Temperature)
	assert.Equal(t, 256, cfg.OpenAI.MaxTokens)
	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "memory store",
			modify: func(c *Config) { c.Store.Driver = DriverMemory },
		},
		{
			name:    "unknown driver",
			modify:  func(c *Config) { c.Store.Driver = "mongo" },
			wantErr: "unknown store driver",
		},
		{
			name:    "postgres without dsn",
			modify:  func(c *Config) { c.Store.Driver = DriverPostgres },
			wantErr: "store.dsn is required",
		},
		{
			name: "redis with dsn",
			modify: func(c *Config) {
				c.Store.Driver = DriverRedis
				c.Store.DSN = "redis://localhost:6379/0"
			},
		},
		{
			name:    "bad temperature",
			modify:  func(c *Config) { c.OpenAI.Temperature = 3 },
			wantErr: "temperature",
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestLogConfig_SlogLevel(t *testing.T) {
	level, err := LogConfig{Level: "debug"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = LogConfig{Level: "WARN"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestLoader_LoadFromFile(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `
openai:
  model: gpt-4o
  temperature: 0.7
  timeout: 15s
store:
  driver: sqlite
  dsn: /tmp/threads.db
log:
  level: debug
  json: true
directory_file: doctors.yaml
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := NewLoader().LoadFromFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 0.7, cfg.OpenAI.Temperature)
	assert.Equal(t, 256, cfg.OpenAI.MaxTokens)
	assert.Equal(t, 15*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/threads.db", cfg.Store.DSN)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "doctors.yaml", cfg.DirectoryFile)
}

func TestLoader_LoadFromFile_NonExistent(t *testing.T) {
	_, err := NewLoader().LoadFromFile("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoader_LoadFromFile_Invalid(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("store:\n  driver: postgres\n"), 0644))

	_, err := NewLoader().LoadFromFile(configPath)
	assert.ErrorContains(t, err, "store.dsn is required")
}

func TestLoader_Load_DefaultsWithNoConfigFile(t *testing.T) {
	isolate(t)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Empty(t, cfg.OpenAI.APIKey)
}

func TestLoader_Load_WorkingDirectoryFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("appointment.yaml", []byte("store:\n  driver: memory\n"), 0644))

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
}

func TestLoader_Load_WithConfigPathEnv(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("openai:\n  model: from-env-path\n"), 0644))
	t.Setenv("APPOINTMENT_CONFIG", configPath)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env-path", cfg.OpenAI.Model)
}

func TestLoader_Load_EnvOverrides(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("openai:\n  model: from-file\n"), 0644))
	t.Setenv("APPOINTMENT_CONFIG", configPath)
	t.Setenv("APPOINTMENT_OPENAI_MODEL", "from-env")
	t.Setenv("APPOINTMENT_STORE_DRIVER", "memory")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.OpenAI.Model)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}
