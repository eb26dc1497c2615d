package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DataDir       string
	DBPath        string
	UploadsDir    string
	SessionMaxAge time.Duration
	PageSize      int
}

// Load reads .env (if present) and the environment, falling back to
// defaults that work out of the box.
func Load() *Config {
	_ = godotenv.Load()

	dataDir := getenv("DATA_DIR", "./data")
	return &Config{
		Port:          getenv("PORT", "8080"),
		DataDir:       dataDir,
		DBPath:        getenv("DB_PATH", dataDir+"/forum.db"),
		UploadsDir:    getenv("UPLOADS_DIR", "./web/static/uploads"),
		SessionMaxAge: time.Duration(getenvi("SESSION_MAX_AGE_HOURS", 24)) * time.Hour,
		PageSize:      getenvi("PAGE_SIZE", 5),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvi(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
