package utils

import (
	"os"
	"strconv"
)

// GetEnv returns the value of an environment variable or the fallback when it is unset or empty
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvInt parses an integer environment variable, returning the fallback on absence or parse failure
func GetEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}
