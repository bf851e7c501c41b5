package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, name := range files {
		raw, err := fs.ReadFile(FS, name)
		require.NoError(t, err)
		body := string(raw)
		assert.Contains(t, body, "-- +goose Up", name)
		assert.Contains(t, body, "-- +goose Down", name)
	}
}

func TestInitMigrationEnforcesCaseInsensitiveEmail(t *testing.T) {
	raw, err := fs.ReadFile(FS, "00001_init.sql")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "ON users (lower(email))"))
}
