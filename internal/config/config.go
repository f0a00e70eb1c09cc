// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strings"
)

// Storage backend names accepted by PROMPTFORGE_STORAGE.
const (
	StorageFile   = "file"
	StorageBadger = "badger"
)

// Config carries every tunable the service reads at startup. API keys for
// the external providers are read lazily by their clients and are not
// duplicated here.
type Config struct {
	ListenAddr     string
	DataDir        string
	StorageBackend string
	AssetsDir      string
	PublicBaseURL  string
	CORSOrigins    []string
	LLMProvider    string
	EnhanceModel   string
	ReplicateToken string
	FALKey         string
	LogMode        string
}

// FromEnv builds a Config from environment variables, applying defaults for
// anything unset.
func FromEnv() Config {
	cfg := Config{
		ListenAddr:     getenv("PROMPTFORGE_ADDR", ":8080"),
		DataDir:        getenv("PROMPTFORGE_DATA_DIR", "./data/context-profiles"),
		StorageBackend: getenv("PROMPTFORGE_STORAGE", StorageFile),
		AssetsDir:      getenv("PROMPTFORGE_ASSETS_DIR", "./public"),
		PublicBaseURL:  getenv("PROMPTFORGE_PUBLIC_URL", "http://localhost:8080"),
		LLMProvider:    getenv("PROMPTFORGE_LLM_PROVIDER", "openrouter"),
		EnhanceModel:   getenv("PROMPTFORGE_ENHANCE_MODEL", "deepseek/deepseek-r1"),
		ReplicateToken: os.Getenv("REPLICATE_API_TOKEN"),
		FALKey:         os.Getenv("FAL_KEY"),
		LogMode:        getenv("PROMPTFORGE_LOG_MODE", "development"),
	}

	origins := getenv("PROMPTFORGE_CORS_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
