package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes content as traject.toml in dir and returns its path.
func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const fullConfig = `
[store]
driver = "sqlite"
path = "state/traject.db"

[permissions]
alice = ["invoices.start_approval", "invoices.approve"]
bob = ["invoices.approve"]

[conditions]
small = "doc.amount < 500"

[[documents]]
type = "invoice"
id = "42"
attributes = { amount = 120, currency = "EUR" }

[[documents]]
type = "invoice"
id = "43"
attributes = { amount = 9000 }
`

// --- LoadFromFile tests ---

func TestLoadFromFile_ValidFull(t *testing.T) {
	t.Parallel()
	cfg, md, err := LoadFromFile(writeConfig(t, t.TempDir(), fullConfig))
	require.NoError(t, err)

	// Store section.
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "state/traject.db", cfg.Store.Path)

	// Permissions table.
	require.Len(t, cfg.Permissions, 2)
	assert.Equal(t, []string{"invoices.start_approval", "invoices.approve"}, cfg.Permissions["alice"])
	assert.Equal(t, []string{"invoices.approve"}, cfg.Permissions["bob"])

	// Conditions table.
	assert.Equal(t, "doc.amount < 500", cfg.Conditions["small"])

	// Documents.
	require.Len(t, cfg.Documents, 2)
	assert.Equal(t, "invoice", cfg.Documents[0].Type)
	assert.Equal(t, "42", cfg.Documents[0].ID)
	assert.Equal(t, int64(120), cfg.Documents[0].Attributes["amount"])
	assert.Equal(t, "EUR", cfg.Documents[0].Attributes["currency"])

	// Metadata should have no undecoded keys for a fully valid config.
	assert.Empty(t, md.Undecoded(), "expected no undecoded keys for a valid config")
}

func TestLoadFromFile_PartialConfig(t *testing.T) {
	t.Parallel()
	cfg, _, err := LoadFromFile(writeConfig(t, t.TempDir(), "[store]\ndriver = \"memory\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)

	// Fields not in file should be zero-valued.
	assert.Empty(t, cfg.Store.Path)
	assert.Nil(t, cfg.Permissions)
	assert.Nil(t, cfg.Conditions)
	assert.Nil(t, cfg.Documents)
}

func TestLoadFromFile_EmptyFile(t *testing.T) {
	t.Parallel()
	cfg, _, err := LoadFromFile(writeConfig(t, t.TempDir(), ""))
	require.NoError(t, err)

	assert.Empty(t, cfg.Store.Driver)
	assert.Nil(t, cfg.Permissions)
	assert.Nil(t, cfg.Documents)
}

func TestLoadFromFile_MalformedTOML(t *testing.T) {
	t.Parallel()
	_, _, err := LoadFromFile(writeConfig(t, t.TempDir(), "[store\ndriver ="))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestLoadFromFile_NonExistentFile(t *testing.T) {
	t.Parallel()
	_, _, err := LoadFromFile("/nonexistent/path/traject.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestLoadFromFile_ReturnsMetadata(t *testing.T) {
	t.Parallel()
	content := `
[store]
driver = "memory"
retries = 3

[mystery]
foo = 1
`
	_, md, err := LoadFromFile(writeConfig(t, t.TempDir(), content))
	require.NoError(t, err)

	undecoded := md.Undecoded()
	require.NotEmpty(t, undecoded, "expected undecoded keys for config with unknown keys")

	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	assert.Contains(t, keys, "store.retries")
	assert.Contains(t, keys, "mystery.foo")
}

// --- FindConfigFile tests ---

func TestFindConfigFile_InCurrentDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	configPath := writeConfig(t, dir, "# test\n")

	found, err := FindConfigFile(dir)
	require.NoError(t, err)
	assert.Equal(t, configPath, found)
}

func TestFindConfigFile_InParentDir(t *testing.T) {
	t.Parallel()
	parent := t.TempDir()
	child := filepath.Join(parent, "sub", "deep")
	require.NoError(t, os.MkdirAll(child, 0o755))

	configPath := writeConfig(t, parent, "# test\n")

	found, err := FindConfigFile(child)
	require.NoError(t, err)
	assert.Equal(t, configPath, found)
}

func TestFindConfigFile_NotFound(t *testing.T) {
	t.Parallel()
	found, err := FindConfigFile(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, found, "expected empty string when config not found")
}

func TestFindConfigFile_AtRoot(t *testing.T) {
	t.Parallel()
	// Start from filesystem root -- should not infinite loop.
	_, err := FindConfigFile("/")
	require.NoError(t, err)
}

func TestFindConfigFile_ReturnsAbsolutePath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeConfig(t, dir, "# test\n")

	found, err := FindConfigFile(dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(found), "expected absolute path, got %s", found)
}
