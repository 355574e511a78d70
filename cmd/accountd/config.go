package main

import (
	"encoding/json"
	"flag"
	"io"
	"os"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Config holds runtime settings for accountd.
type Config struct {
	HTTPAddr       string        `json:"http_addr"`
	DatabaseDriver string        `json:"database_driver"`
	DatabaseDSN    string        `json:"database_dsn"`
	PublicBaseURL  string        `json:"public_base_url"`
	TokenTTL       time.Duration `json:"token_ttl"`
	Hasher         string        `json:"hasher"`
	BcryptCost     int           `json:"bcrypt_cost"`
	Mailer         string        `json:"mailer"`
	RedisAddr      string        `json:"redis_addr"`
	RedisQueueKey  string        `json:"redis_queue_key"`
	DefaultRole    string        `json:"default_role"`
	Debug          bool          `json:"debug"`
}

// jsonConfig mirrors Config with durations as strings such as "24h".
type jsonConfig struct {
	HTTPAddr       *string `json:"http_addr"`
	DatabaseDriver *string `json:"database_driver"`
	DatabaseDSN    *string `json:"database_dsn"`
	PublicBaseURL  *string `json:"public_base_url"`
	TokenTTL       *string `json:"token_ttl"`
	Hasher         *string `json:"hasher"`
	BcryptCost     *int    `json:"bcrypt_cost"`
	Mailer         *string `json:"mailer"`
	RedisAddr      *string `json:"redis_addr"`
	RedisQueueKey  *string `json:"redis_queue_key"`
	DefaultRole    *string `json:"default_role"`
	Debug          *bool   `json:"debug"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:accounts.db?cache=shared"
	c.PublicBaseURL = "http://localhost:8080"
	c.TokenTTL = 24 * time.Hour
	c.Hasher = "argon2id"
	c.BcryptCost = 12
	c.Mailer = "log"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisQueueKey = "accounts:mail:outbox"
	c.DefaultRole = "user"
}

func (c Config) GetTokenTTL() time.Duration { return c.TokenTTL }
func (c Config) GetPublicBaseURL() string    { return c.PublicBaseURL }

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.DatabaseDSN != "" && c.DatabaseDriver == "postgres" {
		c.DatabaseDSN = "********"
	}
	return c
}

// LoadConfig applies defaults, then the JSON file named by -config, then
// the remaining flags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	fs := flag.NewFlagSet("accountd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configFile := fs.String("config", "", "path to a JSON config file")
	addr := fs.String("addr", "", "HTTP listen address")
	driver := fs.String("db-driver", "", "database driver: sqlite or postgres")
	dsn := fs.String("db-dsn", "", "database DSN")
	baseURL := fs.String("base-url", "", "public base URL used in verification links")
	ttl := fs.Duration("token-ttl", 0, "verification token lifetime")
	hasher := fs.String("hasher", "", "password hasher: argon2id or bcrypt")
	mailer := fs.String("mailer", "", "mail transport: log or redis")
	redisAddr := fs.String("redis-addr", "", "redis address for the mail queue")
	debug := fs.Bool("debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid command line flags")
	}

	if *configFile != "" {
		if err := cfg.overlayJSON(*configFile); err != nil {
			return nil, err
		}
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["addr"] {
		cfg.HTTPAddr = *addr
	}
	if set["db-driver"] {
		cfg.DatabaseDriver = *driver
	}
	if set["db-dsn"] {
		cfg.DatabaseDSN = *dsn
	}
	if set["base-url"] {
		cfg.PublicBaseURL = *baseURL
	}
	if set["token-ttl"] {
		cfg.TokenTTL = *ttl
	}
	if set["hasher"] {
		cfg.Hasher = *hasher
	}
	if set["mailer"] {
		cfg.Mailer = *mailer
	}
	if set["redis-addr"] {
		cfg.RedisAddr = *redisAddr
	}
	if set["debug"] {
		cfg.Debug = *debug
	}

	return cfg, cfg.Validate()
}

func (c *Config) overlayJSON(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read config file").
			WithMetadata(map[string]any{"path": path})
	}

	j := jsonConfig{}
	if err := json.Unmarshal(raw, &j); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse config file").
			WithMetadata(map[string]any{"path": path})
	}

	overlay(&c.HTTPAddr, j.HTTPAddr)
	overlay(&c.DatabaseDriver, j.DatabaseDriver)
	overlay(&c.DatabaseDSN, j.DatabaseDSN)
	overlay(&c.PublicBaseURL, j.PublicBaseURL)
	overlay(&c.Hasher, j.Hasher)
	overlay(&c.BcryptCost, j.BcryptCost)
	overlay(&c.Mailer, j.Mailer)
	overlay(&c.RedisAddr, j.RedisAddr)
	overlay(&c.RedisQueueKey, j.RedisQueueKey)
	overlay(&c.DefaultRole, j.DefaultRole)
	overlay(&c.Debug, j.Debug)

	if j.TokenTTL != nil {
		d, err := time.ParseDuration(*j.TokenTTL)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid token_ttl")
		}
		c.TokenTTL = d
	}
	return nil
}

func overlay[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	check := func(field, value string, allowed ...string) error {
		for _, a := range allowed {
			if value == a {
				return nil
			}
		}
		return goerrors.New("invalid configuration value", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"field": field, "value": value, "allowed": allowed})
	}

	if err := check("database_driver", c.DatabaseDriver, "sqlite", "postgres"); err != nil {
		return err
	}
	if err := check("hasher", c.Hasher, "argon2id", "bcrypt"); err != nil {
		return err
	}
	if err := check("mailer", c.Mailer, "log", "redis"); err != nil {
		return err
	}
	if c.TokenTTL <= 0 {
		return goerrors.New("token_ttl must be positive", goerrors.CategoryValidation)
	}
	return nil
}
