package util

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// GetAbsolutePath resolves path against the working directory. Absolute
// paths are returned cleaned.
func GetAbsolutePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	root, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(root, path), nil
}

// IsURL reports whether s is an absolute http(s) URL.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func StringPtr(s string) *string {
	return &s
}
