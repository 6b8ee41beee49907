package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Report   ReportConfig   `yaml:"report"`
	Redis    RedisConfig    `yaml:"redis"`
}

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           string `yaml:"port"`
	Mode           string `yaml:"mode"` // debug, release, test
	AllowedOrigins string `yaml:"allowed_origins"`
}

// Origins splits the comma-separated allowed_origins value. An empty value
// yields nil, which the CORS middleware treats as allow-all.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// ReportConfig controls the weekly digest job. Weekday 0 is Sunday, hour is
// in UTC.
type ReportConfig struct {
	Enabled bool `yaml:"enabled"`
	Weekday int  `yaml:"weekday"`
	Hour    int  `yaml:"hour"`
}

// RedisConfig for optional async digest delivery queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           "8080",
			Mode:           "debug",
			AllowedOrigins: "http://localhost:5173",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "taskboard.db",
		},
		JWT: JWTConfig{
			Secret:     "taskboard-secret-key-change-in-production",
			ExpireHour: 168,
		},
		Report: ReportConfig{
			Enabled: true,
			Weekday: 1, // Monday
			Hour:    9,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = origins
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if weekday := os.Getenv("REPORT_WEEKDAY"); weekday != "" {
		if d, err := strconv.Atoi(weekday); err == nil {
			c.Report.Weekday = d
		}
	}
	if hour := os.Getenv("REPORT_HOUR"); hour != "" {
		if h, err := strconv.Atoi(hour); err == nil {
			c.Report.Hour = h
		}
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}
