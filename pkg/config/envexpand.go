package config

import "os"

// ExpandEnv expands environment variables in YAML content using the standard
// library's shell-style syntax. Supports both ${VAR} and $VAR.
//
// Missing variables expand to an empty string; validation catches required
// fields that end up empty.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
