// Package env reads the handful of process settings that are needed before
// (or outside) the envconfig-backed config.Load, such as log format and the
// platform-assigned PORT.
package env

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func lookup[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

// Get treats blank values as unset.
func Get(key, fallback string) string {
	return lookup(key, fallback, func(s string) (string, error) { return s, nil })
}

// GetBool falls back on unset or unparseable values.
func GetBool(key string, fallback bool) bool {
	return lookup(key, fallback, strconv.ParseBool)
}

// GetDuration accepts Go duration syntax ("15s", "2m").
func GetDuration(key string, fallback time.Duration) time.Duration {
	return lookup(key, fallback, time.ParseDuration)
}
