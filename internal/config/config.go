package config

import (
	"fmt"
	"strconv"

	"github.com/kelseyhightower/envconfig"
)

const (
	defaultDBPort  = 5432
	defaultAppPort = 3000
)

// DatabaseConfig holds the connection parameters for the subscriptions store.
type DatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     uint16
	Name     string
}

// URL returns the connection URL understood by lib/pq.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Name)
}

// AppConfig holds process level settings.
type AppConfig struct {
	Port         uint16
	LogLevel     string
	LogFormat    string
	EnsureSchema bool
}

// ListenAddr is the address the HTTP server binds to.
func (c AppConfig) ListenAddr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}

// Ports are read as strings so that a malformed value falls back to the
// default instead of failing envconfig.Process.
type databaseEnv struct {
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT"`
	Name     string `envconfig:"DB_NAME" default:"postgres"`
}

type appEnv struct {
	Port         string `envconfig:"APP_PORT"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LOG_FORMAT" default:"json"`
	EnsureSchema string `envconfig:"DB_ENSURE_SCHEMA" default:"true"`
}

// LoadDatabase reads the database settings from the environment. It never
// fails: anything missing or unparsable takes its default.
func LoadDatabase() DatabaseConfig {
	var env databaseEnv
	if err := envconfig.Process("", &env); err != nil {
		env = databaseEnv{User: "postgres", Password: "postgres", Host: "localhost", Name: "postgres"}
	}

	return DatabaseConfig{
		User:     env.User,
		Password: env.Password,
		Host:     env.Host,
		Port:     parsePort(env.Port, defaultDBPort),
		Name:     env.Name,
	}
}

// LoadApp reads the process settings from the environment.
func LoadApp() AppConfig {
	var env appEnv
	if err := envconfig.Process("", &env); err != nil {
		env = appEnv{LogLevel: "info", LogFormat: "json", EnsureSchema: "true"}
	}

	ensure, err := strconv.ParseBool(env.EnsureSchema)
	if err != nil {
		ensure = true
	}

	return AppConfig{
		Port:         parsePort(env.Port, defaultAppPort),
		LogLevel:     env.LogLevel,
		LogFormat:    env.LogFormat,
		EnsureSchema: ensure,
	}
}

func parsePort(s string, def uint16) uint16 {
	p, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return def
	}
	return uint16(p)
}
