package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".tsfeatures"

const configType = "yaml"

// envPrefix is the environment variable prefix; server.addr is read from
// TSFEATURES_SERVER_ADDR.
const envPrefix = "TSFEATURES"

const envKeySeparator = "_"

// Load reads configuration from file, env vars and defaults.
// If configPath is non-empty it names the config file explicitly;
// otherwise .tsfeatures.yaml is searched in CWD and $HOME.
// A missing config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.max_body_bytes", DefaultMaxBodyBytes)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", false)
	v.SetDefault("telemetry.service_name", DefaultServiceName)

	v.SetDefault("collect.db", DefaultCollectDB)
	v.SetDefault("collect.include", []string{})
	v.SetDefault("collect.exclude", []string{})
	v.SetDefault("collect.workers", 0)

	v.SetDefault("bridge.attempts", DefaultBridgeAttempts)
	v.SetDefault("bridge.backoff", DefaultBridgeBackoff)
}
