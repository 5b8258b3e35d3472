package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/empowerhr/empower-client/internal/config"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	apiURLKey     = "api_url"
	appNameKey    = "app_name"
	clientIDKey   = "client_id"
	dataFolderKey = "data_folder"
	sealKeyKey    = "seal_key"
	envKey        = "env"
	logLevelKey   = "log_level"
)

func envBindings() map[string]string {
	return map[string]string{
		apiURLKey:     "EMPOWER_API_URL",
		appNameKey:    "EMPOWER_APP_NAME",
		clientIDKey:   "EMPOWER_CLIENT_ID",
		dataFolderKey: "EMPOWER_DATA_FOLDER",
		sealKeyKey:    "EMPOWER_SEAL_KEY",
		envKey:        "EMPOWER_ENV",
		logLevelKey:   "EMPOWER_LOG_LEVEL",
	}
}

// loadSettings layers an optional empower.yaml config file under any
// EMPOWER_* environment variables. Missing files are fine, settings then
// come from the environment and defaults alone.
func loadSettings() (config.EnvVars, error) {
	v := viper.New()
	v.AddConfigPath(defaultConfigFolder())
	v.AddConfigPath(".")
	v.SetConfigName("empower")
	v.SetConfigType("yaml")

	v.SetDefault(apiURLKey, "http://localhost:5001")
	v.SetDefault(appNameKey, "Empower Client")
	v.SetDefault(clientIDKey, "empower-go-client")
	// Same default as config.NewEnvVars, so the CLI and library resolve the
	// same session database location.
	v.SetDefault(dataFolderKey, "./data")
	v.SetDefault(envKey, "DEV")
	v.SetDefault(logLevelKey, "info")

	for configKey, envVar := range envBindings() {
		if err := v.BindEnv(configKey, envVar); err != nil {
			return config.EnvVars{}, fmt.Errorf("bind %s: %w", envVar, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config.EnvVars{}, fmt.Errorf("read config file: %w", err)
		}
	}

	settings := config.EnvVars{
		APIURL:     v.GetString(apiURLKey),
		AppName:    v.GetString(appNameKey),
		ClientID:   v.GetString(clientIDKey),
		DataFolder: v.GetString(dataFolderKey),
		SealKey:    v.GetString(sealKeyKey),
		Env:        v.GetString(envKey),
		LogLevel:   v.GetString(logLevelKey),
	}
	if err := validator.New().Struct(settings); err != nil {
		return config.EnvVars{}, fmt.Errorf("validate settings: %w", err)
	}
	return settings, nil
}

func defaultConfigFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".empower")
}
