package config

import "path/filepath"

type StorageConfig interface {
	GetDataFolder() string
	GetSessionDBPath() string
	GetSealKey() string
}

type Storage struct {
	env EnvVars
}

var _ StorageConfig = Storage{}

func (s Storage) GetDataFolder() string {
	return s.env.DataFolder
}

// GetSessionDBPath returns the location of the durable session database.
func (s Storage) GetSessionDBPath() string {
	return filepath.Join(s.env.DataFolder, "session.db")
}

// GetSealKey returns the passphrase used to seal durable session values at
// rest. Empty means a machine-local default key is derived by the store.
func (s Storage) GetSealKey() string {
	return s.env.SealKey
}
