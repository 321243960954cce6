package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAbsolutePath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	path, err := GetAbsolutePath("data/export.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "data", "export.json"), path)

	abs := filepath.Join(t.TempDir(), "x", "..", "export.json")
	path, err = GetAbsolutePath(abs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(abs), path)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.org/export.json"))
	assert.True(t, IsURL("http://localhost:8080/x"))
	assert.False(t, IsURL("export.json"))
	assert.False(t, IsURL("/tmp/export.json"))
	assert.False(t, IsURL("ftp://example.org/x"))
	assert.False(t, IsURL("http://"))
}

func TestStringPtr(t *testing.T) {
	p := StringPtr("a")
	require.NotNil(t, p)
	assert.Equal(t, "a", *p)
}
