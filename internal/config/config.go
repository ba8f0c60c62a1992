package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DatabasePath string

	// Path to the KEY=VALUE file holding the app's registered identity
	CredentialsPath string

	// Logging
	LogLevel string

	// Outbound API settings
	HTTPTimeout time.Duration
	APITries    int
}

// Credentials is the application's own registered identity on a Mastodon server.
type Credentials struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:    getEnv("DATABASE_PATH", "data/feedamalgamator.db"),
		CredentialsPath: getEnv("CREDENTIALS_PATH", "config/app_tokens.env"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	var err error
	cfg.HTTPTimeout, err = time.ParseDuration(getEnv("HTTP_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	tries, err := strconv.Atoi(getEnv("API_TRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_TRIES: %w", err)
	}
	cfg.APITries = tries

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.APITries < 1 {
		return fmt.Errorf("API_TRIES must be at least 1")
	}
	return nil
}

// ValidateForOAuth checks configuration needed to drive the authorization flow.
func (c *Config) ValidateForOAuth() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.CredentialsPath == "" {
		return fmt.Errorf("CREDENTIALS_PATH is required for authorization")
	}
	if _, err := os.Stat(c.CredentialsPath); err != nil {
		return fmt.Errorf("CREDENTIALS_PATH %s: %w", c.CredentialsPath, err)
	}
	return nil
}

// LoadCredentials reads CLIENT_ID, CLIENT_SECRET and ACCESS_TOKEN from a
// KEY=VALUE file. Every key must be present and non-empty.
func LoadCredentials(path string) (Credentials, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}

	creds := Credentials{
		ClientID:     values["CLIENT_ID"],
		ClientSecret: values["CLIENT_SECRET"],
		AccessToken:  values["ACCESS_TOKEN"],
	}

	switch {
	case creds.ClientID == "":
		return Credentials{}, fmt.Errorf("CLIENT_ID is missing from %s", path)
	case creds.ClientSecret == "":
		return Credentials{}, fmt.Errorf("CLIENT_SECRET is missing from %s", path)
	case creds.AccessToken == "":
		return Credentials{}, fmt.Errorf("ACCESS_TOKEN is missing from %s", path)
	}

	return creds, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
