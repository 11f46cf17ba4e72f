package config

import (
	"time"

	"github.com/spf13/pflag"
)

// ServeConfig is RunConfig plus the HTTP trigger settings.
type ServeConfig struct {
	RunConfig
	Addr       string
	AuthHeader string
	AuthValue  string
	RunTimeout time.Duration
}

// LoadServe merges .env, config file, environment variables and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	defaults := runDefaults()
	defaults["addr"] = ":8080"
	defaults["run-timeout"] = 30 * time.Minute

	v, err := newViper(cfgFile, flags, defaults)
	if err != nil {
		return ServeConfig{}, err
	}
	return ServeConfig{
		RunConfig:  runFromViper(v),
		Addr:       v.GetString("addr"),
		AuthHeader: v.GetString("header-key"),
		AuthValue:  v.GetString("header-value"),
		RunTimeout: v.GetDuration("run-timeout"),
	}, nil
}
