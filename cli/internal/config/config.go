package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppFs is the file system configuration and data model files are read
// from.
var AppFs = afero.NewOsFs()

// Config holds the application configuration
type Config struct {
	Datamodel       string
	DatabaseURL     string
	Schema          string
	LogLevel        string
	LogFormat       string
	RequiredVersion string
	Debug           bool
	// File is the configuration file that was read, if any.
	File string
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"datamodel":    "datamodel",
	"database-url": "database_url",
	"schema":       "schema",
	"debug":        "debug",
}

// Load reads the configuration. Sources from lowest to highest priority:
// defaults, the config file, .env and .env.local, LIFT_* environment
// variables and flags. An explicit configFile must exist; the default
// .lift.yaml is optional.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".lift")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
			v.AddConfigPath(filepath.Join(home, ".config", "lift"))
		}
	}

	v.SetEnvPrefix("LIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("datamodel", "schema.prisma")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for flag, key := range flagKeys {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	cfg := &Config{
		Datamodel:       v.GetString("datamodel"),
		DatabaseURL:     v.GetString("database_url"),
		Schema:          v.GetString("schema"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		RequiredVersion: v.GetString("required_version"),
		Debug:           v.GetBool("debug"),
		File:            v.ConfigFileUsed(),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// loadDotEnv loads .env without overriding the environment, then
// .env.local overriding everything.
func loadDotEnv() error {
	for _, file := range []string{".env", ".env.local"} {
		values, err := readEnvFile(file)
		if err != nil {
			return err
		}
		for k, val := range values {
			if _, set := os.LookupEnv(k); set && file == ".env" {
				continue
			}
			os.Setenv(k, val)
		}
	}
	return nil
}

func readEnvFile(path string) (map[string]string, error) {
	f, err := AppFs.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return values, nil
}

// Save writes the persistent keys of cfg to path.
func Save(cfg *Config, path string) error {
	v := viper.New()
	v.SetFs(AppFs)
	v.Set("datamodel", cfg.Datamodel)
	if cfg.Schema != "" {
		v.Set("schema", cfg.Schema)
	}
	if cfg.RequiredVersion != "" {
		v.Set("required_version", cfg.RequiredVersion)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := AppFs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return v.WriteConfigAs(path)
}
