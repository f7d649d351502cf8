package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvOrDefault returns the value of the environment variable key, or def when
// the variable is unset or empty.
func EnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses a duration environment variable, requiring a positive value.
func envDuration(key, def string) (time.Duration, error) {
	raw := EnvOrDefault(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

// envInt parses an integer environment variable within [min, max].
func envInt(key string, def, min, max int) (int, error) {
	raw := EnvOrDefault(key, strconv.Itoa(def))
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return n, nil
}
