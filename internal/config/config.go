// Package config loads runtime configuration from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ParserConfig holds remote intent-parser settings. An empty APIKey
// disables the remote path entirely; parsing then runs offline.
type ParserConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr      string
	AuthToken string
}

// Config holds all runtime options.
type Config struct {
	DBPath   string
	LogLevel string
	Parser   ParserConfig
	Server   ServerConfig
	PushURL  string // Bark-style push endpoint, empty disables
}

const (
	defaultAddr    = "127.0.0.1:7080"
	defaultTimeout = 30 * time.Second
)

// Load reads configuration from an optional .env file and environment
// variables, with defaults. Priority: env > .env > defaults.
func Load() (*Config, error) {
	envFiles := []string{".env"}
	if configDir, err := os.UserConfigDir(); err == nil {
		envFiles = append(envFiles, filepath.Join(configDir, "voicetask", ".env"))
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f) // optional
	}

	cfg := &Config{
		DBPath:   getEnvString("VOICETASK_DB", ""),
		LogLevel: getEnvString("VOICETASK_LOG_LEVEL", "info"),
		Parser: ParserConfig{
			BaseURL: getEnvString("VOICETASK_PARSER_URL", ""),
			APIKey:  getEnvString("OPENAI_API_KEY", ""),
			Model:   getEnvString("VOICETASK_PARSER_MODEL", ""),
			Timeout: getEnvDuration("VOICETASK_PARSER_TIMEOUT", defaultTimeout),
		},
		Server: ServerConfig{
			Addr:      getEnvString("VOICETASK_ADDR", defaultAddr),
			AuthToken: getEnvString("VOICETASK_AUTH_TOKEN", ""),
		},
		PushURL: getEnvString("VOICETASK_PUSH_URL", ""),
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.DBPath = filepath.Join(home, ".voicetask", "tasks.db")
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
