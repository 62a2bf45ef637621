// Package config centralizes how ckv's command-line tools pick up
// settings: an optional ckv.yaml file, .env/.env.local files, and
// CKV_-prefixed environment variables, all funneled through viper so
// that a command's own flags (bound separately, per-command, since
// flag sets differ between ckv serve and ckv kv) can override any of
// them.
//
// Precedence, lowest to highest: YAML file defaults, environment
// variables, command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix ckv's environment variables carry, e.g.
// CKV_ENDPOINT for the "endpoint" flag.
const EnvPrefix = "ckv"

// Load prepares viper for a CLI invocation: it loads .env/.env.local
// (if present), reads yamlPath (if non-empty and present) as a flat
// key/value defaults file, and enables CKV_-prefixed environment
// variables. It does not touch command flags; call BindFlags for that
// once a command's flag set is known.
func Load(yamlPath string) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if yamlPath == "" {
		return nil
	}
	return loadYAMLDefaults(yamlPath)
}

// loadYAMLDefaults reads a YAML file of flag-name: value pairs and
// installs them as viper defaults, below environment variables and
// flags in precedence. A missing file is not an error, since the YAML
// file is meant to be optional.
func loadYAMLDefaults(path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	for key, value := range values {
		viper.SetDefault(key, value)
	}
	return nil
}

// BindFlags binds cmd's own flags into viper, giving them the highest
// precedence over the YAML defaults and environment variables Load
// installed.
func BindFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
