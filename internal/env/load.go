package env

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// LoadEnv reads a .env file from the working directory if one exists.
func LoadEnv(log *zap.Logger, files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Debug("No .env file found, assuming environment variables are set directly.")
	}
}

// String returns the value of key, or fallback when it is unset or empty.
func String(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}

// Bool parses key as a boolean, falling back when unset or malformed.
func Bool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}
