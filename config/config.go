package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	// MaxPageSize is the largest catalog.maxPageSize the API accepts.
	MaxPageSize = 1000
)

type JWTConfig struct {
	SecretKey      string        `mapstructure:"secretKey"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"accessTokenTTL"`
}

type PasswordConfig struct {
	MinLength  int `mapstructure:"minLength"`
	BcryptCost int `mapstructure:"bcryptCost"`
}

type CatalogConfig struct {
	DefaultPageSize int `mapstructure:"defaultPageSize"`
	MaxPageSize     int `mapstructure:"maxPageSize"`
	ExportLimit     int `mapstructure:"exportLimit"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
	Store struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"store"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort           string        `mapstructure:"HTTPPort"`
		Timeout            time.Duration `mapstructure:"HTTPTimeout"`
		LoginRatePerMinute int           `mapstructure:"loginRatePerMinute"`
	} `mapstructure:"server"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Password PasswordConfig `mapstructure:"password"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

// InitConfig loads config.yml from the usual locations, or from path when set,
// falling back to the embedded copy. Environment variables override file values
// with dots replaced by underscores (JWT_SECRETKEY, REPOSITORIES_POSTGRES_HOST).
func InitConfig(path string) (Config, error) {
	var config Config
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		v.AddConfigPath("/app/config")
		v.SetConfigName("config")
		v.SetConfigType("yml")
	}

	err := v.ReadInConfig()
	if err != nil {
		if path != "" {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		v.SetConfigType("yml")
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = StoreDriverPostgres
	}
	if c.JWT.AccessTokenTTL <= 0 {
		c.JWT.AccessTokenTTL = 30 * time.Minute
	}
	if c.Password.MinLength <= 0 {
		c.Password.MinLength = 8
	}
	if c.Catalog.DefaultPageSize <= 0 {
		c.Catalog.DefaultPageSize = 100
	}
	if c.Catalog.MaxPageSize <= 0 {
		c.Catalog.MaxPageSize = MaxPageSize
	}
	if c.Server.Timeout <= 0 {
		c.Server.Timeout = 60 * time.Second
	}
	if c.Server.LoginRatePerMinute <= 0 {
		c.Server.LoginRatePerMinute = 20
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("jwt.secretKey must be set (JWT_SECRETKEY)")
	}
	if c.Catalog.MaxPageSize > MaxPageSize {
		return fmt.Errorf("catalog.maxPageSize %d exceeds %d", c.Catalog.MaxPageSize, MaxPageSize)
	}
	if c.Catalog.DefaultPageSize > c.Catalog.MaxPageSize {
		return fmt.Errorf("catalog.defaultPageSize %d exceeds catalog.maxPageSize %d",
			c.Catalog.DefaultPageSize, c.Catalog.MaxPageSize)
	}
	return nil
}
