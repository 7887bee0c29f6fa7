package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// Supported values for the database driver.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all settings of the persona service. Values are read from an optional YAML file
// first, then overridden by environment variables.
type Config struct {
	Port            string        `yaml:"port"`
	DBDriver        string        `yaml:"dbdriver"`
	DBHost          string        `yaml:"dbhost"`
	DBUser          string        `yaml:"dbuser"`
	DBPwd           string        `yaml:"dbpwd"`
	DBName          string        `yaml:"dbname"`
	APIToken        string        `yaml:"api_token"`
	GinMode         string        `yaml:"gin_mode"`
	GinLogging      bool          `yaml:"gin_logging"`
	LogMode         string        `yaml:"log_mode"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Port:            "8080",
		DBDriver:        DriverMySQL,
		DBHost:          "localhost:3306",
		DBName:          "test",
		GinMode:         "release",
		GinLogging:      true,
		LogMode:         "production",
		CORSOrigins:     []string{"*"},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds the configuration from the file named by CONFIG_FILE (if any) and the process
// environment.
//
// Usage example on the command line:
// > CONFIG_FILE=service.yaml PORT=8080 DBUSER=dirk DBPWD=bullo92 API_TOKEN=s3cr3t go run main.go
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()
	if file := getenv("CONFIG_FILE"); file != "" {
		data, err := os.ReadFile(file) // nosemgrep
		if err != nil {
			return Config{}, fmt.Errorf("could not read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("could not parse config file: %w", err)
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString("PORT", &cfg.Port)
	setString("DBDRIVER", &cfg.DBDriver)
	setString("DBHOST", &cfg.DBHost)
	setString("DBUSER", &cfg.DBUser)
	setString("DBPWD", &cfg.DBPwd)
	setString("DBNAME", &cfg.DBName)
	setString("API_TOKEN", &cfg.APIToken)
	setString("GIN_MODE", &cfg.GinMode)
	setString("LOG_MODE", &cfg.LogMode)

	if v := getenv("GIN_LOGGING"); v != "" {
		cfg.GinLogging = !strings.EqualFold(v, "off")
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}
	if v := getenv("MIGRATE_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("could not parse MIGRATE_ON_START env variable: %w", err)
		}
		cfg.MigrateOnStart = b
	}
	if v := getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("could not parse SHUTDOWN_TIMEOUT env variable: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	return nil
}

// Validate checks the settings that would otherwise only fail once the server is running.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}
	if c.ShutdownTimeout < 0 {
		return errors.New("shutdown timeout must not be negative")
	}
	return nil
}

// DSN returns the connection string understood by the configured database/sql driver.
func (c Config) DSN() string {
	switch c.DBDriver {
	case DriverPostgres:
		host, port := splitHostPort(c.DBHost, "5432")
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, c.DBUser, c.DBPwd, c.DBName)
	default:
		mc := mysql.NewConfig()
		mc.User = c.DBUser
		mc.Passwd = c.DBPwd
		mc.Net = "tcp"
		mc.Addr = c.DBHost
		mc.DBName = c.DBName
		mc.ParseTime = true
		return mc.FormatDSN()
	}
}

// MigrationURL returns the database URL in the form expected by golang-migrate.
func (c Config) MigrationURL() string {
	switch c.DBDriver {
	case DriverPostgres:
		host, port := splitHostPort(c.DBHost, "5432")
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.DBUser, c.DBPwd),
			Host:     host + ":" + port,
			Path:     "/" + c.DBName,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	default:
		mc := mysql.NewConfig()
		mc.User = c.DBUser
		mc.Passwd = c.DBPwd
		mc.Net = "tcp"
		mc.Addr = c.DBHost
		mc.DBName = c.DBName
		mc.MultiStatements = true
		return "mysql://" + mc.FormatDSN()
	}
}

func splitHostPort(hostport string, defaultPort string) (string, string) {
	host, port, found := strings.Cut(hostport, ":")
	if !found || port == "" {
		return hostport, defaultPort
	}
	return host, port
}
