package env

import "os"

// Get returns the environment value for key, or fallback when unset/empty.
func Get(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
