package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/userhub/internal/flagx"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envFileName picks the dotenv file: the -env-file flag, else ".env.$ENV"
// when ENV is set, else ".env".
func envFileName() string {
	if f := flagx.EnvFileFlag(); f != "" {
		return f
	}
	if runtimeEnv := os.Getenv("ENV"); runtimeEnv != "" {
		return ".env." + runtimeEnv
	}
	return ".env"
}

// parseEnv loads the dotenv file, if present, into the process environment
// and then decodes the environment into config. Variables already set in the
// environment win over the file; unset variables leave config untouched.
func parseEnv(config *Config) error {
	name := envFileName()

	if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", name, err)
	}

	if err := envconfig.Process("", config); err != nil {
		return fmt.Errorf("error reading environment: %w", err)
	}

	return nil
}
