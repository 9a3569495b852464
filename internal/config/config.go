// Package config loads runtime configuration from the environment,
// with an optional .env file.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/rcliao/issuereg/internal/embedding"
	"github.com/rcliao/issuereg/internal/engine"
	"github.com/rcliao/issuereg/internal/extract"
)

// Config holds all runtime settings. Model identifiers are carried as
// explicit values handed to constructors; the engine never reads them
// from ambient process state.
type Config struct {
	DBPath         string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	EmbedModel     string
	ExtractModel   string
	MaxChars       int
	CandidateLimit int
}

// Load reads configuration from a .env file (if present) and the
// environment.
func Load() Config {
	godotenv.Load()

	cfg := Config{
		DBPath:         os.Getenv("ISSUEREG_DB"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		EmbedModel:     os.Getenv("ISSUEREG_EMBED_MODEL"),
		ExtractModel:   os.Getenv("ISSUEREG_EXTRACT_MODEL"),
		MaxChars:       envInt("ISSUEREG_MAX_CHARS", engine.DefaultMaxChars),
		CandidateLimit: envInt("ISSUEREG_CANDIDATE_LIMIT", engine.DefaultCandidateLimit),
	}

	if cfg.DBPath == "" {
		home, _ := os.UserHomeDir()
		cfg.DBPath = filepath.Join(home, ".issuereg", "register.db")
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = embedding.DefaultModel
	}
	if cfg.ExtractModel == "" {
		cfg.ExtractModel = extract.DefaultModel
	}
	return cfg
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
