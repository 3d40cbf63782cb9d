// Package env reads process environment outside of the envconfig-driven
// config load, for values needed before config exists.
package env

import (
	"os"
	"strings"
)

// First returns the first non-blank value among keys, trimmed, or fallback.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return fallback
}
