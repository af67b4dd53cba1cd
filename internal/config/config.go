// Package config is used to load the configuration file
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/blacktop/dexsig/pkg/resolver"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

// Resolver configures signature resolution.
type Resolver struct {
	Workers   int             `mapstructure:"workers" json:"workers"`
	Policy    resolver.Policy `mapstructure:"policy" json:"policy"`
	CacheSize int             `mapstructure:"cache-size" json:"cache_size"`
}

// Options returns the resolver options.
func (r Resolver) Options() *resolver.Options {
	return &resolver.Options{
		Workers:   r.Workers,
		Policy:    r.Policy,
		CacheSize: r.CacheSize,
	}
}

// Database configures where resolution runs are stored.
type Database struct {
	Driver    string `mapstructure:"driver" json:"driver"`
	Path      string `mapstructure:"path" json:"path"`
	Name      string `mapstructure:"name" json:"database"`
	Host      string `mapstructure:"host" json:"host"`
	Port      string `mapstructure:"port" json:"port"`
	User      string `mapstructure:"user" json:"user"`
	Password  string `mapstructure:"password" json:"password"`
	SSLMode   string `mapstructure:"sslmode" json:"sslmode"`
	BatchSize int    `mapstructure:"batch-size" json:"batch_size"`
}

// Config is the configuration struct
type Config struct {
	Resolver Resolver `mapstructure:"resolver" json:"resolver"`
	Database Database `mapstructure:"database" json:"database"`
}

// Dir returns the configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: failed to get user home directory: %v", err)
	}
	return filepath.Join(home, ".config", "dexsig"), nil
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("resolver.workers", 0)
	v.SetDefault("resolver.policy", resolver.PolicyLastMatch.String())
	v.SetDefault("resolver.cache-size", resolver.DefaultCacheSize)
	v.SetDefault("database.driver", DriverSqlite)
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.batch-size", 1000)
}

func (c *Config) verify() error {
	if c.Resolver.Workers < 0 {
		return fmt.Errorf("config: resolver.workers must not be negative")
	}
	if c.Resolver.CacheSize < 0 {
		return fmt.Errorf("config: resolver.cache-size must not be negative")
	}

	switch c.Database.Driver {
	case "":
		c.Database.Driver = DriverSqlite
		fallthrough
	case DriverSqlite, DriverMemory:
		if c.Database.Path == "" {
			dir, err := Dir()
			if err != nil {
				return err
			}
			name := "dexsig.db"
			if c.Database.Driver == DriverMemory {
				name = "dexsig.gob"
			}
			c.Database.Path = filepath.Join(dir, name)
		}
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			return fmt.Errorf("config: database.host, database.user and database.name must be set for postgres")
		}
		if _, err := strconv.ParseUint(c.Database.Port, 10, 16); err != nil {
			return fmt.Errorf("config: invalid database.port %q", c.Database.Port)
		}
	default:
		return fmt.Errorf("config: unsupported database.driver %q", c.Database.Driver)
	}
	if c.Database.BatchSize < 0 {
		return fmt.Errorf("config: database.batch-size must not be negative")
	}

	return nil
}

func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// Load loads the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var c *Config

	if err := v.Unmarshal(&c, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %v", err)
	}
	if c == nil {
		c = &Config{}
	}

	if err := c.verify(); err != nil {
		return nil, fmt.Errorf("config: failed to verify: %v", err)
	}

	return c, nil
}

// LoadConfig loads the configuration file
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}
