package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type EnvConfig interface {
	GetAPIURL() string
	GetAppName() string
	GetClientID() string
	GetEnv() string
	GetLogLevel() string
}

// EnvVars holds all environment-driven settings. Defaults match the
// development backend the portal is normally pointed at.
type EnvVars struct {
	APIURL     string `env:"EMPOWER_API_URL" envDefault:"http://localhost:5001" validate:"required,url"`
	AppName    string `env:"EMPOWER_APP_NAME" envDefault:"Empower Client"`
	ClientID   string `env:"EMPOWER_CLIENT_ID" envDefault:"empower-go-client" validate:"required"`
	DataFolder string `env:"EMPOWER_DATA_FOLDER" envDefault:"./data"`
	SealKey    string `env:"EMPOWER_SEAL_KEY"`
	Env        string `env:"EMPOWER_ENV" envDefault:"DEV"`
	LogLevel   string `env:"EMPOWER_LOG_LEVEL" envDefault:"info"`
}

var _ EnvConfig = EnvVars{}

// NewEnvVars parses and validates the environment.
func NewEnvVars() (EnvVars, error) {
	var envVars EnvVars
	if err := env.Parse(&envVars); err != nil {
		return EnvVars{}, fmt.Errorf("config.NewEnvVars env.Parse: %w", err)
	}
	if err := validator.New().Struct(envVars); err != nil {
		return EnvVars{}, fmt.Errorf("config.NewEnvVars validation: %w", err)
	}
	return envVars, nil
}

func (e EnvVars) GetAPIURL() string {
	return e.APIURL
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetClientID() string {
	return e.ClientID
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}
