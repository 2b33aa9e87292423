package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type ConnectionConfig struct {
	// DSN, when set, is used verbatim and the individual fields below
	// are ignored.
	DSN                    string `toml:"dsn"`
	Host                   string `toml:"host"`
	Port                   uint16 `toml:"port"`
	Instance               string `toml:"instance"`
	Database               string `toml:"database"`
	Username               string `toml:"username"`
	Password               string `toml:"password"`
	Encrypt                string `toml:"encrypt"`
	TrustServerCertificate bool   `toml:"trust_server_certificate"`
	DialTimeout            uint16 `toml:"dial_timeout"`
}

type LoggerConfigs struct {
	ConsoleLevel string `toml:"console_level"`
	FileLevel    string `toml:"file_level"`
	FileOutput   string `toml:"file_output"`
}

type Config struct {
	Connection ConnectionConfig `toml:"connection"`
	Timeout    uint16           `toml:"timeout"`
	MaxRetries uint8            `toml:"max_retries"`
	MaxWorkers uint8            `toml:"max_workers"`
	Logging    LoggerConfigs    `toml:"logger"`
	EnvFile    string           `toml:"env_file"`
}

func NewConfig() *Config {
	return &Config{
		MaxRetries: 3,
		MaxWorkers: 4,
		Connection: ConnectionConfig{
			Port:        1433,
			Database:    "master",
			Encrypt:     "disable",
			DialTimeout: 15,
		},
		Logging: LoggerConfigs{
			ConsoleLevel: "info",
		},
	}
}

// FromFile loads the TOML config at path. A missing file is not an
// error: every setting can also arrive through flags or environment
// variables, so the defaults simply stand.
func FromFile(path string) (*Config, error) {
	conf := NewConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return conf, nil
	}

	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, fmt.Errorf("error loading config TOML: %w", err)
	}

	// .env values feed the ${VAR} indirections below; a missing .env is
	// fine, the variables may already be in the environment.
	if conf.EnvFile != "" {
		_ = godotenv.Load(conf.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	conf.Connection.Password = expandEnv(conf.Connection.Password)
	conf.Connection.DSN = expandEnv(conf.Connection.DSN)

	if err := conf.validateLoggerConfig(); err != nil {
		return nil, err
	}

	return conf, nil
}

func (c *Config) StatementTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *Config) validateLoggerConfig() error {
	levels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}

	if !levels[strings.ToLower(c.Logging.ConsoleLevel)] {
		return fmt.Errorf("%q is not a valid console log level", c.Logging.ConsoleLevel)
	}
	if !levels[strings.ToLower(c.Logging.FileLevel)] {
		return fmt.Errorf("%q is not a valid file log level", c.Logging.FileLevel)
	}

	return nil
}

// ResolveDSN renders the connection descriptor the driver consumes, as
// ADO-style key=value pairs.
func (c *ConnectionConfig) ResolveDSN() string {
	if c.DSN != "" {
		return c.DSN
	}

	parts := make([]string, 0, 8)

	if c.Instance != "" {
		parts = append(parts, fmt.Sprintf("server=%s\\%s", c.Host, c.Instance))
	} else {
		parts = append(parts, fmt.Sprintf("server=%s", c.Host))
		if c.Port != 0 {
			parts = append(parts, fmt.Sprintf("port=%d", c.Port))
		}
	}

	if c.Username != "" {
		parts = append(parts, fmt.Sprintf("user id=%s", c.Username))
		parts = append(parts, fmt.Sprintf("password=%s", c.Password))
	}

	if c.Database != "" {
		parts = append(parts, fmt.Sprintf("database=%s", c.Database))
	}

	if c.DialTimeout > 0 {
		parts = append(parts, fmt.Sprintf("dial timeout=%d", c.DialTimeout))
	}

	if c.Encrypt != "" {
		parts = append(parts, fmt.Sprintf("encrypt=%s", c.Encrypt))
	}
	if c.TrustServerCertificate {
		parts = append(parts, "TrustServerCertificate=true")
	}

	return strings.Join(parts, ";")
}

// expandEnv resolves the ${VAR} indirection so secrets can live in the
// environment instead of the config file.
func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
		return os.Getenv(envVar)
	}
	return value
}
