// Package env reads process environment variables with fallbacks.
package env

import "os"

// Get returns the named variable, or fallback when it is unset or empty.
func Get(name, fallback string) string {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return fallback
	}
	return value
}
