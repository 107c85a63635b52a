// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr      string
	DBPath          string
	OpenRouterModel string
	GoogleModel     string
	HTTPReferer     string
	AppTitle        string
	RequestTimeout  time.Duration
}

// Load reads configuration from the environment and returns a validated
// Config. A .env file in the working directory is loaded first if present.
// All variables are optional and fall back to defaults:
// CHATBUDDY_LISTEN_ADDR (127.0.0.1:8080), CHATBUDDY_DB_PATH (chatbuddy.db),
// CHATBUDDY_OPENROUTER_MODEL, CHATBUDDY_GOOGLE_MODEL,
// CHATBUDDY_HTTP_REFERER, CHATBUDDY_APP_TITLE and
// CHATBUDDY_REQUEST_TIMEOUT (90s).
func Load() (*Config, error) {
	// Ignore the error: a missing .env file is the normal case.
	_ = godotenv.Load()

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("CHATBUDDY_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "chatbuddy.db"
	if v, ok := os.LookupEnv("CHATBUDDY_DB_PATH"); ok {
		dbPath = v
	}

	openRouterModel := "google/gemini-2.0-flash-exp:free"
	if v, ok := os.LookupEnv("CHATBUDDY_OPENROUTER_MODEL"); ok && v != "" {
		openRouterModel = v
	}

	googleModel := "gemini-2.0-flash-exp"
	if v, ok := os.LookupEnv("CHATBUDDY_GOOGLE_MODEL"); ok && v != "" {
		googleModel = v
	}

	httpReferer := "http://localhost:8080"
	if v, ok := os.LookupEnv("CHATBUDDY_HTTP_REFERER"); ok && v != "" {
		httpReferer = v
	}

	appTitle := "ChatBuddy"
	if v, ok := os.LookupEnv("CHATBUDDY_APP_TITLE"); ok && v != "" {
		appTitle = v
	}

	requestTimeout := 90 * time.Second
	if v, ok := os.LookupEnv("CHATBUDDY_REQUEST_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CHATBUDDY_REQUEST_TIMEOUT has invalid duration %q: %w", v, err)
		}
		requestTimeout = parsed
	}

	return &Config{
		ListenAddr:      listenAddr,
		DBPath:          dbPath,
		OpenRouterModel: openRouterModel,
		GoogleModel:     googleModel,
		HTTPReferer:     httpReferer,
		AppTitle:        appTitle,
		RequestTimeout:  requestTimeout,
	}, nil
}
