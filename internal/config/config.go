// Package config loads service configuration from flags, environment and an
// optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends
const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Run modes for the serve command
const (
	RunModeAPI    = "api"
	RunModeWorker = "worker"
	RunModeAll    = "all"
)

type Config struct {
	// RunMode selects what serve starts: the HTTP API, the state sweeper or both.
	RunMode string `mapstructure:"run_mode"`

	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// BaseURL is the web application origin users return to.
	BaseURL string `mapstructure:"base_url"`
	// PublicURL is this service's public origin, used for default redirect URIs.
	PublicURL string `mapstructure:"public_url"`

	SuccessPath       string   `mapstructure:"success_path"`
	CallbackErrorPath string   `mapstructure:"callback_error_path"`
	AllowedOrigins    []string `mapstructure:"allowed_origins"`

	Store              string `mapstructure:"store"`
	DatabaseURL        string `mapstructure:"database_url"`
	RedisURL           string `mapstructure:"redis_url"`
	TokenEncryptionKey string `mapstructure:"token_encryption_key"`

	IdentityJWTSecret string `mapstructure:"identity_jwt_secret"`

	StateTTL           time.Duration `mapstructure:"state_ttl"`
	ProviderTimeout    time.Duration `mapstructure:"provider_timeout"`
	StateSweepInterval time.Duration `mapstructure:"state_sweep_interval"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Twitter ProviderConfig `mapstructure:"twitter"`
	Reddit  ProviderConfig `mapstructure:"reddit"`
	Spotify ProviderConfig `mapstructure:"spotify"`
}

// ProviderConfig is one provider's client registration.
// Env: {TWITTER,REDDIT,SPOTIFY}_CLIENT_ID, _CLIENT_SECRET, _REDIRECT_URI.
type ProviderConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	UserAgent    string `mapstructure:"user_agent"`
}

// Configured reports whether a client ID was supplied.
func (p ProviderConfig) Configured() bool {
	return p.ClientID != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run_mode", RunModeAll)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("base_url", "http://localhost:3000")
	v.SetDefault("public_url", "http://localhost:8080")
	v.SetDefault("success_path", "/profile-setup")
	v.SetDefault("callback_error_path", "")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("store", "")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("token_encryption_key", "")
	v.SetDefault("identity_jwt_secret", "")
	v.SetDefault("state_ttl", 10*time.Minute)
	v.SetDefault("provider_timeout", 10*time.Second)
	v.SetDefault("state_sweep_interval", time.Hour)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Every nested key needs a default so AutomaticEnv can see it on Unmarshal.
	for _, p := range []string{"twitter", "reddit", "spotify"} {
		v.SetDefault(p+".client_id", "")
		v.SetDefault(p+".client_secret", "")
		v.SetDefault(p+".redirect_uri", "")
		v.SetDefault(p+".user_agent", "")
	}
}

// Load reads configuration. Precedence: flags, environment, config file,
// defaults. flags may be nil. Flag names use dashes for underscores.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var configFile string
	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" {
				configFile = f.Value.String()
				return
			}
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
				bindErr = errors.Join(bindErr, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/neurasense")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDerived()
	return &cfg, nil
}

// applyDerived fills values computed from other settings.
func (c *Config) applyDerived() {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")

	if c.Store == "" {
		if c.DatabaseURL != "" {
			c.Store = StorePostgres
		} else {
			c.Store = StoreRedis
		}
	}
	if len(c.AllowedOrigins) == 0 && c.BaseURL != "" {
		c.AllowedOrigins = []string{c.BaseURL}
	}

	for name, p := range c.providers() {
		if p.RedirectURI == "" && p.ClientID != "" {
			p.RedirectURI = c.PublicURL + "/connect/" + name + "/callback"
		}
	}
}

func (c *Config) providers() map[string]*ProviderConfig {
	return map[string]*ProviderConfig{
		"twitter": &c.Twitter,
		"reddit":  &c.Reddit,
		"spotify": &c.Spotify,
	}
}

// Validate reports every missing or malformed value at once.
func (c *Config) Validate() error {
	var errs []error

	if c.IdentityJWTSecret == "" {
		errs = append(errs, errors.New("IDENTITY_JWT_SECRET is required"))
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BASE_URL must be an absolute URL, got %q", c.BaseURL))
	}
	if !strings.HasPrefix(c.SuccessPath, "/") {
		errs = append(errs, fmt.Errorf("SUCCESS_PATH must start with '/', got %q", c.SuccessPath))
	}
	if c.CallbackErrorPath != "" && !strings.HasPrefix(c.CallbackErrorPath, "/") {
		errs = append(errs, fmt.Errorf("CALLBACK_ERROR_PATH must start with '/', got %q", c.CallbackErrorPath))
	}
	switch c.RunMode {
	case RunModeAPI, RunModeWorker, RunModeAll:
	default:
		errs = append(errs, fmt.Errorf("RUN_MODE must be api, worker or all, got %q", c.RunMode))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.StateTTL <= 0 {
		errs = append(errs, errors.New("STATE_TTL must be positive"))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("PROVIDER_TIMEOUT must be positive"))
	}

	switch c.Store {
	case StoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis store"))
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
		if c.TokenEncryptionKey == "" {
			errs = append(errs, errors.New("TOKEN_ENCRYPTION_KEY is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StoreRedis, StorePostgres, c.Store))
	}

	configured := 0
	for _, name := range []string{"twitter", "reddit", "spotify"} {
		p := c.providers()[name]
		if !p.Configured() {
			continue
		}
		configured++
		if p.ClientSecret == "" {
			errs = append(errs, fmt.Errorf("%s_CLIENT_SECRET is required when %s_CLIENT_ID is set",
				strings.ToUpper(name), strings.ToUpper(name)))
		}
	}
	if configured == 0 {
		errs = append(errs, errors.New("at least one provider client ID must be set"))
	}

	return errors.Join(errs...)
}
