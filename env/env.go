// Package env fills configuration structs from the environment.
package env

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const DefaultEnvFile = ".env"

// InitConfig loads variables from .env (if present) and processes config
// with envconfig. Variables already set in the environment take precedence.
func InitConfig(config any) error {
	return InitConfigWithPrefix("", config)
}

// InitConfigWithPrefix is InitConfig with an envconfig prefix, so that
// e.g. prefix "MAIL" reads MAIL_FROM into a field tagged `envconfig:"FROM"`.
func InitConfigWithPrefix(prefix string, config any) error {
	// nolint:errcheck // .env file is optional
	_ = godotenv.Load(DefaultEnvFile)

	if err := envconfig.Process(prefix, config); err != nil {
		return errors.Wrap(err, "failed to envconfig.Process")
	}

	return nil
}
