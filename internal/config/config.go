package config

import (
	"os"
	"strconv"

	"github.com/johnwards/seeder/internal/seed"
)

// Config holds run configuration loaded from environment variables.
type Config struct {
	DBPath     string   // SEEDER_DB, default "seeds.db"; postgres:// DSNs select Postgres
	File       string   // SEEDER_CONFIG, default "seeds.toml"
	CSVDir     string   // SEEDER_CSV_DIR, optional; overrides the seed file's csv_dir
	Migrations string   // SEEDER_MIGRATIONS, optional directory of *.sql files
	Only       []string // SEEDS, optional comma-separated seeder names
	Silent     bool     // SEEDER_SILENT
	LogLevel   string   // SEEDER_LOG_LEVEL, default "info"
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		DBPath:     envOr("SEEDER_DB", "seeds.db"),
		File:       envOr("SEEDER_CONFIG", "seeds.toml"),
		CSVDir:     os.Getenv("SEEDER_CSV_DIR"),
		Migrations: os.Getenv("SEEDER_MIGRATIONS"),
		Only:       seed.ParseSelection(os.Getenv("SEEDS")),
		Silent:     envBool("SEEDER_SILENT"),
		LogLevel:   envOr("SEEDER_LOG_LEVEL", "info"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envBool treats unset or unparsable values as false.
func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}
