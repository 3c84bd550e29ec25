package main

import (
	"os"
	"strings"

	"github.com/joeycumines/logiface"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const defaultConfigPath = "~/.reactor-run.yaml"

// config is the runner configuration, read from a YAML file and
// overridden by flags.
type config struct {
	LogLevel         string `mapstructure:"log_level"`
	MetricsAddr      string `mapstructure:"metrics_addr"`
	MaxEventsPerPoll int    `mapstructure:"max_events_per_poll"`
	ModuleName       string `mapstructure:"module_name"`
	// LogRateLimits maps a window such as "1m" to the number of repeated
	// warnings allowed per base within it.
	LogRateLimits map[string]int `mapstructure:"log_rate_limits"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("max_events_per_poll", 256)
	v.SetDefault("module_name", "luaevent.core")
	return v
}

// loadConfig reads the config file at path. A missing file is only an
// error if it is not the default.
func loadConfig(path string) (*config, error) {
	v := newViper()

	if path == "" {
		path = defaultConfigPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expand config path %q", path)
	}
	v.SetConfigFile(expanded)

	if err := v.ReadInConfig(); err != nil {
		if !(path == defaultConfigPath && isNotExist(err)) {
			return nil, errors.Wrapf(err, "read config %q", expanded)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	// not a viper default, as nested defaults merge with the file
	if cfg.LogRateLimits == nil {
		cfg.LogRateLimits = map[string]int{"1m": 10}
	}
	return &cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || os.IsNotExist(errors.Cause(err))
}

// parseLevel maps a level name, as used in log output, to a level.
func parseLevel(s string) (logiface.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logiface.LevelTrace, nil
	case "debug":
		return logiface.LevelDebug, nil
	case "info", "informational":
		return logiface.LevelInformational, nil
	case "notice":
		return logiface.LevelNotice, nil
	case "warn", "warning":
		return logiface.LevelWarning, nil
	case "err", "error":
		return logiface.LevelError, nil
	case "crit", "critical":
		return logiface.LevelCritical, nil
	case "disabled", "off", "none":
		return logiface.LevelDisabled, nil
	}
	return logiface.LevelDisabled, errors.Errorf("unknown log level %q", s)
}
