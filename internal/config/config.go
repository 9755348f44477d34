package config

import (
	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field maps 1:1 to a documented env var.
type Config struct {
	// Server
	Port           int    `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"` // development | production
	WorkerPoolSize int    `mapstructure:"WORKER_POOL_SIZE"`

	// Storage
	DataDir string `mapstructure:"DATA_DIR"`

	// Redis
	RedisURL string `mapstructure:"REDIS_URL"`

	// Auth
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	JWTRefreshHours    int    `mapstructure:"JWT_REFRESH_HOURS"`

	// Fiscal sidecar
	FiscalSidecarURL string `mapstructure:"FISCAL_SIDECAR_URL"`
	FiscalCNPJ       string `mapstructure:"FISCAL_CNPJ"`

	// Print agent
	PrintAgentURL string `mapstructure:"PRINT_AGENT_URL"`

	// SMTP
	SMTPHost      string `mapstructure:"SMTP_HOST"`
	SMTPPort      int    `mapstructure:"SMTP_PORT"`
	SMTPUser      string `mapstructure:"SMTP_USER"`
	SMTPPassword  string `mapstructure:"SMTP_PASSWORD"`
	ReportEmailTo string `mapstructure:"REPORT_EMAIL_TO"`

	// Business
	ServiceFeeRate    float64 `mapstructure:"SERVICE_FEE_RATE"`
	StaffDiscountRate float64 `mapstructure:"STAFF_DISCOUNT_RATE"`
	CommissionRate    float64 `mapstructure:"COMMISSION_RATE"`
	LiveMusic         bool    `mapstructure:"LIVE_MUSIC"`
	CoverProductID    string  `mapstructure:"COVER_PRODUCT_ID"`
	PDFStoragePath    string  `mapstructure:"PDF_STORAGE_PATH"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Sensible defaults for development
	viper.SetDefault("PORT", 8000)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("WORKER_POOL_SIZE", 5)
	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("JWT_EXPIRATION_HOURS", 8)
	viper.SetDefault("JWT_REFRESH_HOURS", 24)
	viper.SetDefault("FISCAL_SIDECAR_URL", "http://fiscal-sidecar:8001")
	viper.SetDefault("PRINT_AGENT_URL", "http://localhost:9100")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SERVICE_FEE_RATE", 0.10)
	viper.SetDefault("STAFF_DISCOUNT_RATE", 0.20)
	viper.SetDefault("COMMISSION_RATE", 0.10)
	viper.SetDefault("PDF_STORAGE_PATH", "/tmp/almareia/pdfs")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")

	// Optional .env file for local development — does not fail if missing
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
