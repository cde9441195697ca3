package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	Env string `validate:"required,oneof=dev prod"`
	DB  struct {
		Driver string `validate:"required,oneof=sqlite pgx"`
		// Path is the database file for the sqlite driver.
		Path string
		// Postgres connection parameters for the pgx driver.
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
	}
	Migrations struct {
		Dir string `validate:"required"`
		// Schedule is an optional cron expression; when set, migrations are
		// re-applied on that schedule.
		Schedule string
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
}

var validate = validator.New()

// Load reads configuration from environment variables and an optional .env
// file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	c.Env = getenv("ENV", "prod")
	c.DB.Driver = getenv("DB_DRIVER", "sqlite")
	c.DB.Path = getenv("DB_PATH", "data/app.db")
	c.DB.Host = getenv("DB_HOST", "localhost")
	c.DB.Port = getenvInt("DB_PORT", 5432)
	c.DB.User = os.Getenv("DB_USER")
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = os.Getenv("DB_NAME")
	c.DB.SSLMode = getenv("DB_SSLMODE", "disable")
	c.Migrations.Dir = getenv("MIGRATIONS_DIR", "migrations")
	c.Migrations.Schedule = os.Getenv("MIGRATIONS_SCHEDULE")
	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "data/logs/persistkit.log")

	if err := validate.Struct(c); err != nil {
		return Config{}, err
	}
	if c.DB.Driver == "sqlite" && c.DB.Path == "" {
		return Config{}, errors.New("DB_PATH required when DB_DRIVER is sqlite")
	}
	if c.DB.Driver == "pgx" && (c.DB.User == "" || c.DB.Name == "") {
		return Config{}, errors.New("DB_USER and DB_NAME required when DB_DRIVER is pgx")
	}
	return c, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
