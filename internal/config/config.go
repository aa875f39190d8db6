package config

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for blogsync. Non-secret repository
// settings can live in a blogsync.yml file; environment variables take
// precedence over file values. The access token is never read from the
// YAML file.
type Config struct {
	// Personal access token for the content API. When empty, the token
	// cached by `blogsync login` is used instead.
	Token string `env:"BLOGSYNC_TOKEN" yaml:"-"`

	// Repository holding the blog content.
	Owner string `env:"BLOG_OWNER" yaml:"owner"`
	Repo  string `env:"BLOG_REPO" yaml:"repo"`

	// Directory within the repository holding post files.
	PostsDir string `env:"BLOG_POSTS_DIR" yaml:"posts_dir"`

	// Path of the denormalized listing aggregate within the repository.
	IndexPath string `env:"BLOG_INDEX_PATH" yaml:"index_path"`

	// The only account allowed to edit. Any other authenticated identity
	// is rejected at session establishment.
	AllowedUser string `env:"BLOG_ALLOWED_USER" yaml:"allowed_user"`

	// Base URL of the content API. Overridable for tests and GHE.
	APIBaseURL string `env:"BLOG_API_URL" yaml:"api_url"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development" yaml:"-"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the access token to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from an optional YAML file and the environment.
// It first attempts to load a .env file if present, then reads the YAML
// file at path (ignored when absent), then lets env vars override.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.PostsDir == "" {
		cfg.PostsDir = "posts"
	}

	if cfg.IndexPath == "" {
		cfg.IndexPath = "posts.json"
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Owner == "" {
		return fmt.Errorf("BLOG_OWNER (or owner in blogsync.yml) is required")
	}

	if c.Repo == "" {
		return fmt.Errorf("BLOG_REPO (or repo in blogsync.yml) is required")
	}

	if c.AllowedUser == "" {
		return fmt.Errorf("BLOG_ALLOWED_USER (or allowed_user in blogsync.yml) is required")
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
