// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port   string
	AppEnv string

	// BaseDir is the root directory all tenant assets are stored under.
	BaseDir string
	// MaxUploadBytes is the byte budget the encoder compresses images down to.
	MaxUploadBytes int
	// MaxDimension caps image width/height before encoding. 0 disables downscaling.
	MaxDimension int
	// EncodeWorkers bounds the number of concurrent image encodes.
	EncodeWorkers int

	Tenants []TenantConfig
}

// TenantConfig is the statically provisioned configuration for one tenant.
type TenantConfig struct {
	ID         string
	APIKey     string
	BaseURL    string
	Categories []string
}

// Load reads configuration from a .env file (if present) and environment variables.
//
// Tenants are declared with TENANTS="svc-a,svc-b"; each tenant then gets
// API_KEY_<ID>, CDN_URL_<ID> and CATEGORIES_<ID> vars, where <ID> is the
// tenant id uppercased with hyphens replaced by underscores.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AppEnv:         getEnv("APP_ENV", "development"),
		BaseDir:        getEnv("CDN_BASE_DIR", "./data/cdn"),
		MaxUploadBytes: getEnvInt("MAX_UPLOAD_SIZE", 500) * 1024, // KB → bytes
		MaxDimension:   getEnvInt("MAX_DIMENSION", 0),
		EncodeWorkers:  getEnvInt("ENCODE_WORKERS", runtime.NumCPU()),
	}

	for _, id := range splitList(getEnv("TENANTS", "")) {
		cfg.Tenants = append(cfg.Tenants, TenantConfig{
			ID:         id,
			APIKey:     os.Getenv("API_KEY_" + envSuffix(id)),
			BaseURL:    os.Getenv("CDN_URL_" + envSuffix(id)),
			Categories: splitList(os.Getenv("CATEGORIES_" + envSuffix(id))),
		})
	}

	return cfg
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

// envSuffix converts a tenant id to the form used in env var names:
// "absensi-berkah" → "ABSENSI_BERKAH".
func envSuffix(id string) string {
	return strings.ToUpper(strings.ReplaceAll(id, "-", "_"))
}

// splitList splits a comma-separated value, trimming whitespace and dropping
// empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
