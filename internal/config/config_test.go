package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(newViper())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.ERPBaseURL)
	assert.False(t, cfg.ERPDryRun)
	assert.Equal(t, 15*time.Second, cfg.ERPTimeout)
	assert.Equal(t, "data/state.db", cfg.StateDBPath)
	assert.Equal(t, "data/processed", cfg.ProcessedDir)
	assert.Equal(t, "data/rejects", cfg.RejectsDir)
	assert.Equal(t, "6401", cfg.DefaultGLAccount)
	assert.Equal(t, 1, cfg.BatchWorkers)
	assert.Equal(t, ":8000", cfg.MockERPAddr)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.OpenAIAPIKey)
}

func TestLoadFrom_Environment(t *testing.T) {
	t.Setenv("ERP_DRY_RUN", "true")
	t.Setenv("ERP_TIMEOUT", "3s")
	t.Setenv("BATCH_WORKERS", "8")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	v := newViper()
	v.AutomaticEnv()
	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.True(t, cfg.ERPDryRun)
	assert.Equal(t, 3*time.Second, cfg.ERPTimeout)
	assert.Equal(t, 8, cfg.BatchWorkers)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadFrom_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_gl_account: \"7000\"\nrejects_dir: /tmp/rej\n"), 0o644))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.DefaultGLAccount)
	assert.Equal(t, "/tmp/rej", cfg.RejectsDir)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
		msg  string
	}{
		{"negative workers", "batch_workers", -1, "BATCH_WORKERS"},
		{"zero timeout", "erp_timeout", "0s", "ERP_TIMEOUT"},
		{"no erp url", "erp_base_url", "", "ERP_BASE_URL"},
		{"empty gl", "default_gl_account", "", "DEFAULT_GL_ACCOUNT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.val)

			_, err := LoadFrom(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestGetLoggerConfig(t *testing.T) {
	cfg, err := LoadFrom(newViper())
	require.NoError(t, err)

	lc := cfg.GetLoggerConfig()
	assert.Equal(t, "info", lc.Level)
	assert.Equal(t, "console", lc.Format)
	assert.Equal(t, "stderr", lc.Output)
}
