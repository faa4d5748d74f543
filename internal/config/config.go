package config

// Config is the top-level configuration structure mapping to traject.toml.
type Config struct {
	Store       StoreConfig         `toml:"store"`
	Permissions map[string][]string `toml:"permissions"`
	Conditions  map[string]string   `toml:"conditions"`
	Documents   []DocumentConfig    `toml:"documents"`
}

// StoreConfig maps to the [store] section in traject.toml.
type StoreConfig struct {
	// Driver selects the persistence backend: "sqlite" or "memory".
	Driver string `toml:"driver"`

	// Path is the SQLite database file. Ignored by the memory driver.
	Path string `toml:"path"`
}

// DocumentConfig maps to a [[documents]] entry in traject.toml. The CLI works
// against these statically declared documents; a real deployment would embed
// the engine and implement workflow.DocumentResolver over its own records.
type DocumentConfig struct {
	Type       string         `toml:"type"`
	ID         string         `toml:"id"`
	Attributes map[string]any `toml:"attributes"`
}
