package config

import (
	"fmt"
	"github.com/spf13/viper"
	"time"
)

type SeekConfig struct {
	Email                string        `mapstructure:"email"`
	ClientID             string        `mapstructure:"client_id"`
	LoginURL             string        `mapstructure:"login_url"`
	GraphQLURL           string        `mapstructure:"graphql_url"`
	RedirectURI          string        `mapstructure:"redirect_uri"`
	Zone                 string        `mapstructure:"zone"`
	Locale               string        `mapstructure:"locale"`
	RefreshMargin        time.Duration `mapstructure:"refresh_margin"`
	CodeSender           string        `mapstructure:"code_sender"`
	CodeInitialWait      time.Duration `mapstructure:"code_initial_wait"`
	CodePollAttempts     int           `mapstructure:"code_poll_attempts"`
	CodePollInterval     time.Duration `mapstructure:"code_poll_interval"`
	SettleDelay          time.Duration `mapstructure:"settle_delay"`
	MaxRequestsPerSecond float32       `mapstructure:"max_requests_per_second"`
	RefreshTokenPath     string        `mapstructure:"refresh_token_path"`
}

func (config SeekConfig) validate() error {

	var missingFields []string

	if config.Email == "" {
		missingFields = append(missingFields, "email")
	}
	if config.ClientID == "" {
		missingFields = append(missingFields, "client_id")
	}
	if config.LoginURL == "" {
		missingFields = append(missingFields, "login_url")
	}
	if config.GraphQLURL == "" {
		missingFields = append(missingFields, "graphql_url")
	}
	if config.CodeSender == "" {
		missingFields = append(missingFields, "code_sender")
	}

	if err := missingFieldsError(missingFields); err != nil {
		return err
	}

	if config.CodePollAttempts <= 0 {
		return fmt.Errorf("code_poll_attempts must be greater than zero")
	}

	return nil
}

func (config SeekConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"seek.email":              "SEEK_EMAIL",
		"seek.client_id":          "SEEK_CLIENT_ID",
		"seek.refresh_token_path": "SEEK_REFRESH_TOKEN_PATH",
	})
}
