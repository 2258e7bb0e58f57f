package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads the config file and environment into viper. Without an explicit
// file the first config.* found in searchPaths is used, if any.
func Load(file, envPrefix string, searchPaths ...string) error {
	if file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.SetConfigName("config")
		for _, path := range searchPaths {
			viper.AddConfigPath(path)
		}
	}

	// MEDIAPIPE_HLS_RETRY_MAX overrides hls.retry-max
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if file == "" && errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("unable to read config file: %w", err)
}
