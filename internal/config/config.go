// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-proposals/internal/models"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	App     AppConfig
	Rewrite RewriteConfig
	Company models.Company
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// StorageConfig selects where the proposal blob lives.
type StorageConfig struct {
	Driver     string
	SQLitePath string
	Database   DatabaseConfig
	// DSN overrides Database when set (DATABASE_DSN).
	DSN        string
	Migrations bool
	Debug      bool
	Seed       bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev           bool
	LogLevel      string
	ExportDir     string
	NumberPrefix  string
	DeliveryTerms string
	PaymentTerms  string
	NoticeTTL     time.Duration
}

// RewriteConfig configures the description rewrite backend. An empty
// APIKey disables rewriting.
type RewriteConfig struct {
	APIKey string
	Model  string
}

// DefaultRewriteModel is used when GEMINI_MODEL is unset.
const DefaultRewriteModel = "gemini-3-flash-preview"

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// PostgresDSN returns DATABASE_DSN when given, the assembled DB_* DSN otherwise.
func (s StorageConfig) PostgresDSN() string {
	if s.DSN != "" {
		return s.DSN
	}
	return s.Database.DSN()
}

// Defaults returns the values stamped on new proposals.
func (a AppConfig) Defaults() models.Defaults {
	return models.Defaults{
		NumberPrefix:  a.NumberPrefix,
		DeliveryTerms: a.DeliveryTerms,
		PaymentTerms:  a.PaymentTerms,
	}
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getEnv("STORAGE_DRIVER", DriverSQLite)),
			SQLitePath: getEnv("SQLITE_PATH", "proposals.db"),
			Database: DatabaseConfig{
				Host:     getEnv("DB_HOST", "localhost"),
				Port:     getEnvInt("DB_PORT", 5432),
				User:     getEnv("DB_USER", "proposals"),
				Password: getEnv("DB_PASSWORD", "proposals123"),
				DBName:   getEnv("DB_NAME", "proposals"),
				SSLMode:  getEnv("DB_SSLMODE", "disable"),
			},
			DSN:        os.Getenv("DATABASE_DSN"),
			Migrations: getEnvBool("MIGRATIONS", false),
			Debug:      getEnvBool("DB_DEBUG", false),
			Seed:       getEnvBool("DB_SEED", false),
		},
		App: AppConfig{
			Dev:           getEnvBool("DEV", true),
			LogLevel:      getEnv("LOG_LEVEL", "info"),
			ExportDir:     os.Getenv("EXPORT_DIR"),
			NumberPrefix:  getEnv("NUMBER_PREFIX", models.DefaultNumberPrefix),
			DeliveryTerms: getEnv("DEFAULT_DELIVERY", models.DefaultDeliveryTerms),
			PaymentTerms:  getEnv("DEFAULT_PAYMENT", models.DefaultPaymentTerms),
			NoticeTTL:     getEnvDuration("NOTICE_TTL", 3*time.Second),
		},
		Rewrite: RewriteConfig{
			// GEMINI_API_KEY wins; API_KEY is the name older deployments used.
			APIKey: getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
			Model:  getEnv("GEMINI_MODEL", DefaultRewriteModel),
		},
		Company: models.Company{
			Name:         getEnv("COMPANY_NAME", "RAIMUNDIX"),
			Tagline:      getEnv("COMPANY_TAGLINE", "Materiais Elétricos e Instalações"),
			LegalName:    getEnv("COMPANY_LEGAL_NAME", "RAIMUNDIX SOLUÇÕES EM ELÉTRICA"),
			CNPJ:         getEnv("COMPANY_CNPJ", "48.664.811/0001-13"),
			Address:      getEnv("COMPANY_ADDRESS", "Estrada Hiroshi Tobinaga, 183 - Suzano/SP"),
			Phone:        getEnv("COMPANY_PHONE", "(11) 94742-1770"),
			ValidityDays: getEnvInt("COMPANY_VALIDITY_DAYS", 10),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvDuration parses Go durations ("3s", "500ms").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
