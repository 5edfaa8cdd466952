package util

import (
	"os"
)

// GetEnvOr gets an environment variable, returning def when it is
// unset or empty.
func GetEnvOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// EnvExists determines if an environment variable exists.
func EnvExists(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}

// IsDebug returns true if debug mode is enabled based
// on an environment variable.
func IsDebug() bool {
	return EnvExists("DEBUG")
}
