package migration

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/ordersync/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add stock table", "add_stock_table"},
		{"Add-Stock-Table", "add_stock_table"},
		{"add__stock__table", "add_stock_table"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "special_chars"},
		{"_leading_and_trailing_", "leading_and_trailing"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestListMigrations(t *testing.T) {
	source := fstest.MapFS{
		"000002_add_disputes.up.sql":   {Data: []byte("--")},
		"000002_add_disputes.down.sql": {Data: []byte("--")},
		"000010_add_index.up.sql":      {Data: []byte("--")},
		"000001_init.up.sql":           {Data: []byte("--")},
		"000001_init.down.sql":         {Data: []byte("--")},
		"README.md":                    {Data: []byte("notes")},
		"nested/000003_skip.up.sql":    {Data: []byte("--")},
	}

	got, err := ListMigrations(source)
	require.NoError(t, err)
	assert.Equal(t, []Migration{
		{Version: 1, Name: "init"},
		{Version: 2, Name: "add_disputes"},
		{Version: 10, Name: "add_index"},
	}, got)
	assert.Equal(t, "000010_add_index", got[2].String())
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	got, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "absent")))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCreateMigration_NumbersSequentially(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create marketplace tables", "channels and orders")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_create_marketplace_tables.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_create_marketplace_tables.down.sql"), first.DownPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Description: channels and orders")

	second, err := CreateMigration(dir, "Add-Stock", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
	assert.FileExists(t, filepath.Join(dir, "000002_add_stock.down.sql"))
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "???", "")
	assert.Error(t, err)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	list, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	for i, m := range list {
		assert.Equal(t, uint(i+1), m.Version, "versions are contiguous")
		_, err := fs.Stat(migrations.FS, m.String()+".down.sql")
		assert.NoError(t, err, "missing down migration for %s", m)
	}
}
