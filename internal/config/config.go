package config

// Config aggregates all configuration surfaces of the Empower client.
// Construct one with New and inject it where needed.
type Config interface {
	EnvConfig
	OAuthConfig
	StorageConfig
}

type mainConfig struct {
	EnvVars
	OAuth
	Storage
}

func New() (Config, error) {
	envVars, err := NewEnvVars()
	if err != nil {
		return nil, err
	}
	return NewFromEnvVars(envVars), nil
}

// NewFromEnvVars builds a Config from explicit values, bypassing the
// environment. Useful for tests and for callers that resolve settings
// elsewhere (e.g. a config file).
func NewFromEnvVars(envVars EnvVars) Config {
	return mainConfig{
		EnvVars: envVars,
		OAuth:   OAuth{env: envVars},
		Storage: Storage{env: envVars},
	}
}
