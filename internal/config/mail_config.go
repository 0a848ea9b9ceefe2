package config

import (
	"github.com/spf13/viper"
)

type MailConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`
	From            string `mapstructure:"from"`
	ApplicantName   string `mapstructure:"applicant_name"`
}

func (config MailConfig) validate() error {

	var missingFields []string

	if config.CredentialsFile == "" {
		missingFields = append(missingFields, "credentials_file")
	}
	if config.TokenFile == "" {
		missingFields = append(missingFields, "token_file")
	}
	if config.ApplicantName == "" {
		missingFields = append(missingFields, "applicant_name")
	}

	return missingFieldsError(missingFields)
}

func (config MailConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"mail.from":           "EMAIL_ADDRESS",
		"mail.applicant_name": "APPLICANT_NAME",
	})
}
