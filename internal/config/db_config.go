package config

import (
	"fmt"
	"github.com/spf13/viper"
)

type dbDriver string

const (
	DriverSQLite   dbDriver = "sqlite"
	DriverPostgres dbDriver = "postgres"
)

type DBConfig struct {
	Driver           dbDriver `mapstructure:"driver"`
	ConnectionString string   `mapstructure:"connection_string"`
}

func (config DBConfig) validate() error {
	switch config.Driver {
	case "", DriverSQLite, DriverPostgres:
		return nil
	default:
		return fmt.Errorf("unknown db driver: %s", config.Driver)
	}
}

func (config DBConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"db.driver":            "DB_DRIVER",
		"db.connection_string": "DB_CONNECTION_STRING",
	})
}
