// Package config loads runtime configuration from the environment, with an
// optional .env file for development.
package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// DataDir is the root for on-disk state (sessions directory, key file).
	DataDir string

	// SessionKey is an externally supplied hex-encoded encryption key.
	// When empty, the key file fallback chain applies.
	SessionKey string

	// LLM endpoint settings. The SQL generator is disabled when LLMEndpoint
	// is empty.
	LLMEndpoint string
	LLMAPIKey   string
	LLMModel    string
}

// SessionsDir is where encrypted session files live.
func (c *Config) SessionsDir() string {
	return filepath.Join(c.DataDir, "sessions")
}

// KeyPath is the generated-key location used when no external key is set.
func (c *Config) KeyPath() string {
	return filepath.Join(c.DataDir, "session.key")
}

// Load reads configuration from the environment. A missing .env file is fine.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	dataDir := os.Getenv("DBCONSOLE_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataDir = filepath.Join(home, ".local", "share", "dbconsole")
	}

	addr := os.Getenv("DBCONSOLE_ADDR")
	if addr == "" {
		addr = ":8722"
	}

	model := os.Getenv("DBCONSOLE_LLM_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Config{
		Addr:        addr,
		DataDir:     dataDir,
		SessionKey:  os.Getenv("DBCONSOLE_SESSION_KEY"),
		LLMEndpoint: os.Getenv("DBCONSOLE_LLM_ENDPOINT"),
		LLMAPIKey:   os.Getenv("DBCONSOLE_LLM_API_KEY"),
		LLMModel:    model,
	}
}
