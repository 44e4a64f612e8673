package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add offer ranking", "add_offer_ranking"},
		{"Add-Offer-Ranking", "add_offer_ranking"},
		{"ADD_OFFER_RANKING", "add_offer_ranking"},
		{"add__offer__ranking", "add_offer_ranking"},
		{"Billing Lines 2", "billing_lines_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "add offer ranking", "Track offer ranking changes")
	require.NoError(t, err)

	assert.Equal(t, "000001", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_offer_ranking.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_add_offer_ranking.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add offer ranking")
	assert.Contains(t, string(up), "Track offer ranking changes")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(down), "-- Revert add offer ranking"))
}

func TestCreateMigration_NumbersAfterExisting(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"000001_catalog.up.sql", "000001_catalog.down.sql", "000007_orders.up.sql", "000007_orders.down.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("--"), 0o644))
	}

	mf, err := CreateMigration(dir, "refund status", "")
	require.NoError(t, err)
	assert.Equal(t, "000008", mf.Version)
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "sql")

	_, err := CreateMigration(nested, "init", "first migration")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestCreateMigration_RejectsNonNumericVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "draft_orders.up.sql"), []byte("--"), 0o644))

	_, err := CreateMigration(dir, "orders", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000002_fulfillment.up.sql":   {Data: []byte("--")},
		"sql/000002_fulfillment.down.sql": {Data: []byte("--")},
		"sql/000001_catalog.up.sql":       {Data: []byte("--")},
		"sql/000001_catalog.down.sql":     {Data: []byte("--")},
		"sql/README.md":                   {Data: []byte("notes")},
		"sql/old.up.sql/keep":             {Data: []byte("")},
	}

	migrations, err := ListMigrations(fsys, "sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_catalog", "000002_fulfillment"}, migrations)
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	migrations, err := ListMigrations(fstest.MapFS{}, "sql")
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

func TestEmbedded(t *testing.T) {
	migrations, err := Embedded()
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_catalog", "000002_fulfillment"}, migrations)

	for _, base := range migrations {
		_, err := Files.ReadFile("sql/" + base + ".down.sql")
		assert.NoError(t, err, "missing down migration for %s", base)
	}
}
