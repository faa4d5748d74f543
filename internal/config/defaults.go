package config

// NewDefaults returns a Config populated with all default values: a SQLite
// store next to the config file and no statically declared permissions,
// conditions, or documents.
func NewDefaults() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "traject.db",
		},
		Permissions: map[string][]string{},
		Conditions:  map[string]string{},
	}
}
