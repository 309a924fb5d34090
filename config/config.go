// Package config loads reelcore.toml, the REELCORE_* environment and the built-in defaults into viper.
package config

import (
	"errors"
	"strings"

	"github.com/reelcore/reelcore/constant"
	"github.com/reelcore/reelcore/filesystem"
	"github.com/reelcore/reelcore/where"
	"github.com/spf13/viper"
)

// EnvKeyReplacer turns config keys into environment variable suffixes.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup registers defaults and environment bindings and reads the config file when there is one.
func Setup() error {
	viper.SetConfigName(constant.Reelcore)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.Reelcore)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	return nil
}
