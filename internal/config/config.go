package config

import (
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"os"
	"strings"
)

type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Seek     SeekConfig     `mapstructure:"seek"`
	Applier  ApplierConfig  `mapstructure:"applier"`
	AI       AIConfig       `mapstructure:"ai"`
	Mail     MailConfig     `mapstructure:"mail"`
	DB       DBConfig       `mapstructure:"db"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type section interface {
	validate() error
	bindEnvironmentVariables(v *viper.Viper) error
}

var configFile = "./configs/config.yaml"

func Get() *Config {

	_ = godotenv.Load()

	file := configFile
	if value, ok := os.LookupEnv("CONFIG_PATH"); ok && value != "" {
		file = value
	}

	config, err := loadConfig(file)
	if err != nil {
		log.Fatal(err)
	}

	return config
}

func loadConfig(file string) (*Config, error) {

	v := viper.New()
	v.SetConfigFile(file)

	err := bindEnvironmentVariables(v)
	if err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", file, err)
	}

	config := Config{}
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

func (config Config) sections() map[string]section {
	return map[string]section{
		"LoggerConfig":   config.Logger,
		"SeekConfig":     config.Seek,
		"ApplierConfig":  config.Applier,
		"AIConfig":       config.AI,
		"MailConfig":     config.Mail,
		"DBConfig":       config.DB,
		"NotifierConfig": config.Notifier,
		"MetricsConfig":  config.Metrics,
	}
}

func bindEnvironmentVariables(v *viper.Viper) error {
	var errs []error

	for name, s := range (Config{}).sections() {
		if err := s.bindEnvironmentVariables(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config Config) validate() error {
	var errs []error

	for name, s := range config.sections() {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if config.Applier.LedgerBackend == LedgerBackendDB && config.DB.ConnectionString == "" {
		errs = append(errs, fmt.Errorf("DBConfig: connection_string is required for the db ledger backend"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func missingFieldsError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required variables: %s", strings.Join(missing, ", "))
}

func bindAll(v *viper.Viper, bindings map[string]string) error {
	var errs []error
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
