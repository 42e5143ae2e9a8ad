package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"invoiceagent/internal/logger"
)

type Config struct {
	// Redis Configuration (anomaly history)
	RedisURL string

	// ERP Configuration
	ERPBaseURL string
	ERPDryRun  bool
	ERPTimeout time.Duration

	// Storage Configuration
	StateDBPath  string
	ProcessedDir string
	RejectsDir   string

	// Enrichment Configuration
	EnrichHeuristicsFile string
	DefaultGLAccount     string

	// OpenAI Configuration (optional explanations)
	OpenAIAPIKey string
	OpenAIModel  string

	// Google Sheets Configuration (optional history export)
	GoogleSheetURL          string
	GoogleSheetWorksheet    string
	GoogleServiceAccountKey string

	// Batch Configuration
	BatchWorkers int

	// Mock ERP Configuration
	MockERPAddr   string
	MockERPDBPath string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("redis_url", "")
	v.SetDefault("erp_base_url", "http://localhost:8000")
	v.SetDefault("erp_dry_run", false)
	v.SetDefault("erp_timeout", 15*time.Second)
	v.SetDefault("state_db_path", "data/state.db")
	v.SetDefault("processed_dir", "data/processed")
	v.SetDefault("rejects_dir", "data/rejects")
	v.SetDefault("enrich_heuristics_file", "")
	v.SetDefault("default_gl_account", "6401")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("google_sheet_url", "")
	v.SetDefault("google_sheet_worksheet", "Invoices")
	v.SetDefault("google_service_account_key", "")
	v.SetDefault("batch_workers", 1)
	v.SetDefault("mock_erp_addr", ":8000")
	v.SetDefault("mock_erp_db_path", "data/mock_erp.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_time_format", time.RFC3339)
	v.SetDefault("log_output", "stderr")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	v := viper.GetViper()
	SetDefaults(v)
	v.AutomaticEnv()
	return LoadFrom(v)
}

// LoadFrom builds a Config from v, which must already carry defaults.
func LoadFrom(v *viper.Viper) (*Config, error) {
	config := &Config{
		RedisURL:                v.GetString("redis_url"),
		ERPBaseURL:              v.GetString("erp_base_url"),
		ERPDryRun:               v.GetBool("erp_dry_run"),
		ERPTimeout:              v.GetDuration("erp_timeout"),
		StateDBPath:             v.GetString("state_db_path"),
		ProcessedDir:            v.GetString("processed_dir"),
		RejectsDir:              v.GetString("rejects_dir"),
		EnrichHeuristicsFile:    v.GetString("enrich_heuristics_file"),
		DefaultGLAccount:        v.GetString("default_gl_account"),
		OpenAIAPIKey:            v.GetString("openai_api_key"),
		OpenAIModel:             v.GetString("openai_model"),
		GoogleSheetURL:          v.GetString("google_sheet_url"),
		GoogleSheetWorksheet:    v.GetString("google_sheet_worksheet"),
		GoogleServiceAccountKey: v.GetString("google_service_account_key"),
		BatchWorkers:            v.GetInt("batch_workers"),
		MockERPAddr:             v.GetString("mock_erp_addr"),
		MockERPDBPath:           v.GetString("mock_erp_db_path"),
		LogLevel:                v.GetString("log_level"),
		LogFormat:               v.GetString("log_format"),
		LogTimeFormat:           v.GetString("log_time_format"),
		LogOutput:               v.GetString("log_output"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Every collaborator degrades gracefully when unconfigured, so only values
// that can never work are rejected.
func (c *Config) validate() error {
	if c.BatchWorkers < 0 {
		return fmt.Errorf("BATCH_WORKERS must not be negative")
	}
	if c.ERPTimeout <= 0 {
		return fmt.Errorf("ERP_TIMEOUT must be positive")
	}
	if c.ERPBaseURL == "" && !c.ERPDryRun {
		return fmt.Errorf("ERP_BASE_URL is required unless ERP_DRY_RUN is set")
	}
	if c.DefaultGLAccount == "" {
		return fmt.Errorf("DEFAULT_GL_ACCOUNT must not be empty")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}
