// Package config loads the ambient configuration Momo boots from: HTTP
// bind address, Postgres connection pieces, NATS URL, schedule name
// and ping interval. Loaded with viper, the same way the teacher loads
// its service config.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type ServiceConfig struct {
	Address      string        `mapstructure:"address"`
	ScheduleName string        `mapstructure:"scheduleName"`
	PingInterval time.Duration `mapstructure:"pingInterval"`
	DBConfig     DBConfig      `mapstructure:"database"`
	NATSConfig   NATSConfig    `mapstructure:"nats"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	User   string `mapstructure:"user"`
	DBName string `mapstructure:"dbname"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// LoadServiceConfig reads configPath as YAML and resolves the
// database password from the environment variable named
// dbPasswordEnv, mirroring the teacher's separation of config file
// from secret material.
func LoadServiceConfig(log *zap.Logger, configPath, dbPasswordEnv string) (ServiceConfig, string, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(configPath)
	v.SetDefault("address", ":8080")
	v.SetDefault("scheduleName", "momo")
	v.SetDefault("pingInterval", "30s")

	if err := v.ReadInConfig(); err != nil {
		log.Error("failed reading config", zap.Error(err))
		return ServiceConfig{}, "", fmt.Errorf("failed reading config at %q: %w", configPath, err)
	}

	var cfg ServiceConfig
	if err := v.Unmarshal(&cfg); err != nil {
		log.Error("failed unmarshaling config", zap.Error(err))
		return ServiceConfig{}, "", fmt.Errorf("failed unmarshaling config: %w", err)
	}

	var dsn string
	if cfg.DBConfig.Driver != "" {
		var err error
		dsn, err = cfg.dsn(dbPasswordEnv)
		if err != nil {
			log.Error("failed building database dsn", zap.Error(err))
			return ServiceConfig{}, "", err
		}
	}

	log.Info("loaded config", zap.Any("serviceConfig", cfg))
	return cfg, dsn, nil
}

func (c ServiceConfig) dsn(dbPasswordEnv string) (string, error) {
	password := os.Getenv(dbPasswordEnv)
	if password == "" {
		return "", fmt.Errorf("environment variable %s is not set", dbPasswordEnv)
	}

	return fmt.Sprintf("%s://%s:%s@%s:%d/%s",
		c.DBConfig.Driver, c.DBConfig.User, password, c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.DBName), nil
}
