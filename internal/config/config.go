package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root string `yaml:"root"`
	} `yaml:"project"`
	AI struct {
		Provider  string `yaml:"provider"` // hash, openai, ollama or gemini
		Model     string `yaml:"model"`    // embedding model
		APIKey    string `yaml:"api_key"`
		Dimension int    `yaml:"dimension"`
		BaseURL   string `yaml:"base_url"`
	} `yaml:"ai"`
	Store struct {
		Driver string `yaml:"driver"` // sqlite or postgres
		DSN    string `yaml:"dsn"`
		Table  string `yaml:"table"`
	} `yaml:"store"`
	Index struct {
		BatchSize int `yaml:"batch_size"`
	} `yaml:"index"`
	Window struct {
		Radius   int `yaml:"radius"`
		MaxChars int `yaml:"max_chars"`
	} `yaml:"window"`
	Search struct {
		TopK int `yaml:"top_k"`
	} `yaml:"search"`
	Summary struct {
		Provider     string `yaml:"provider"` // extractive, openai or gemini
		Model        string `yaml:"model"`
		MaxSentences int    `yaml:"max_sentences"`
	} `yaml:"summary"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Project.Root = "."
	cfg.AI.Provider = "hash"
	cfg.Store.Driver = "sqlite"
	cfg.Store.DSN = ".docctx/docctx.db"
	cfg.Store.Table = "vector_store"
	cfg.Index.BatchSize = 16
	cfg.Window.Radius = 2
	cfg.Window.MaxChars = 1600
	cfg.Search.TopK = 6
	cfg.Summary.Provider = "extractive"
	cfg.Summary.MaxSentences = 2
	return &cfg
}

// LoadConfig reads path on top of the defaults. A missing file is not an
// error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	}

	// 3. Override with Environment Variables if present
	if apiKey := os.Getenv("DOCCTX_API_KEY"); apiKey != "" {
		cfg.AI.APIKey = apiKey
	}
	if provider := os.Getenv("DOCCTX_AI_PROVIDER"); provider != "" {
		cfg.AI.Provider = provider
	}
	if dsn := os.Getenv("DOCCTX_DB_DSN"); dsn != "" {
		cfg.Store.DSN = dsn
	}
	if dim := os.Getenv("DOCCTX_AI_DIMENSION"); dim != "" {
		if n, err := strconv.Atoi(dim); err == nil {
			cfg.AI.Dimension = n
		}
	}

	return cfg, nil
}
