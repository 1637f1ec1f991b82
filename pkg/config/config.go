package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		URI    string `yaml:"uri"`
		DBName string `yaml:"dbname"`
	} `yaml:"database"`
	Redis struct {
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		Password    string `yaml:"password"`
		DB          int    `yaml:"db"`
		TLSEnabled  bool   `yaml:"tls_enabled"`
		TLSCertFile string `yaml:"tls_cert_file"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Search struct {
		DefaultPageSize         int `yaml:"default_page_size"`
		MaxPageSize             int `yaml:"max_page_size"`
		CacheTTLSeconds         int `yaml:"cache_ttl_seconds"`
		CursorTTLSeconds        int `yaml:"cursor_ttl_seconds"`
		PrefetchCooldownSeconds int `yaml:"prefetch_cooldown_seconds"`
	} `yaml:"search"`
	Hub struct {
		HeartbeatIntervalSeconds int `yaml:"heartbeat_interval_seconds"`
		HeartbeatTimeoutSeconds  int `yaml:"heartbeat_timeout_seconds"`
		SendTimeoutSeconds       int `yaml:"send_timeout_seconds"`
		SendBuffer               int `yaml:"send_buffer"`
	} `yaml:"hub"`
	Warmer struct {
		IntervalSeconds int         `yaml:"interval_seconds"`
		HotFilters      []HotFilter `yaml:"hot_filters"`
	} `yaml:"warmer"`
}

// HotFilter describes a filter signature warmed ahead of demand.
type HotFilter struct {
	Lat          float64 `yaml:"lat"`
	Lon          float64 `yaml:"lon"`
	RadiusMeters float64 `yaml:"radius_meters"`
	Category     string  `yaml:"category"`
	OpenNow      bool    `yaml:"open_now"`
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Search.CacheTTLSeconds) * time.Second
}

func (c *Config) CursorTTL() time.Duration {
	return time.Duration(c.Search.CursorTTLSeconds) * time.Second
}

func (c *Config) PrefetchCooldown() time.Duration {
	return time.Duration(c.Search.PrefetchCooldownSeconds) * time.Second
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Hub.HeartbeatIntervalSeconds) * time.Second
}

func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Hub.HeartbeatTimeoutSeconds) * time.Second
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Hub.SendTimeoutSeconds) * time.Second
}

func (c *Config) WarmerInterval() time.Duration {
	return time.Duration(c.Warmer.IntervalSeconds) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}

	// Override with environment variables if set
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		cfg.Database.URI = uri
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.Database.DBName = dbname
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Redis.Host = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		portNum, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT value: %v", err)
		}
		cfg.Redis.Port = portNum
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		dbNum, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB value: %v", err)
		}
		cfg.Redis.DB = dbNum
	}
	if tlsEnabled := os.Getenv("REDIS_TLS_ENABLED"); tlsEnabled != "" {
		cfg.Redis.TLSEnabled = tlsEnabled == "true"
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if port := os.Getenv("PORT"); port != "" {
		portNum, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT value: %v", err)
		}
		cfg.Server.Port = portNum
	}

	// Set default values
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Search.DefaultPageSize == 0 {
		cfg.Search.DefaultPageSize = 20
	}
	if cfg.Search.MaxPageSize == 0 {
		cfg.Search.MaxPageSize = 100
	}
	if cfg.Search.CacheTTLSeconds == 0 {
		cfg.Search.CacheTTLSeconds = 300
	}
	if cfg.Search.CursorTTLSeconds == 0 {
		cfg.Search.CursorTTLSeconds = 900
	}
	if cfg.Search.PrefetchCooldownSeconds == 0 {
		cfg.Search.PrefetchCooldownSeconds = 2
	}
	if cfg.Hub.HeartbeatIntervalSeconds == 0 {
		cfg.Hub.HeartbeatIntervalSeconds = 25
	}
	if cfg.Hub.HeartbeatTimeoutSeconds == 0 {
		cfg.Hub.HeartbeatTimeoutSeconds = 30
	}
	if cfg.Hub.SendTimeoutSeconds == 0 {
		cfg.Hub.SendTimeoutSeconds = 10
	}
	if cfg.Hub.SendBuffer == 0 {
		cfg.Hub.SendBuffer = 64
	}
	if cfg.Warmer.IntervalSeconds == 0 {
		cfg.Warmer.IntervalSeconds = 120
	}

	// Validation
	if cfg.Redis.Port <= 0 || cfg.Redis.Port > 65535 {
		return nil, fmt.Errorf("REDIS_PORT must be between 1 and 65535")
	}
	if cfg.Redis.DB < 0 {
		return nil, fmt.Errorf("REDIS_DB must be non-negative")
	}
	if cfg.Search.MaxPageSize < cfg.Search.DefaultPageSize {
		return nil, fmt.Errorf("search.max_page_size must be >= search.default_page_size")
	}
	if cfg.Hub.HeartbeatTimeoutSeconds <= cfg.Hub.HeartbeatIntervalSeconds {
		return nil, fmt.Errorf("hub.heartbeat_timeout_seconds must exceed hub.heartbeat_interval_seconds")
	}
	if cfg.Redis.TLSEnabled && cfg.Redis.TLSCertFile != "" {
		if _, err := os.Stat(cfg.Redis.TLSCertFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("TLS certificate file does not exist: %s", cfg.Redis.TLSCertFile)
		}
	}

	return &cfg, nil
}
