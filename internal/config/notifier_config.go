package config

import (
	"fmt"
	"github.com/spf13/viper"
)

type NotifierConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

func (config NotifierConfig) Enabled() bool {
	return config.Token != ""
}

func (config NotifierConfig) validate() error {
	if config.Enabled() && config.ChatID == 0 {
		return fmt.Errorf("missing variable: chat_id")
	}
	return nil
}

func (config NotifierConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"notifier.token":   "TG_TOKEN",
		"notifier.chat_id": "TG_CHAT_ID",
	})
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

func (config MetricsConfig) validate() error {
	return nil
}

func (config MetricsConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return v.BindEnv("metrics.address", "METRICS_ADDRESS")
}
