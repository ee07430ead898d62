package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SHOPADMIN"

// Config is the full runtime configuration of the API server.
type Config struct {
	HTTPAddr     string    `mapstructure:"http_addr" yaml:"http_addr"`
	GRPCAddr     string    `mapstructure:"grpc_addr" yaml:"grpc_addr"`
	DatabaseURL  string    `mapstructure:"database_url" yaml:"database_url"`
	LogLevel     string    `mapstructure:"log_level" yaml:"log_level"`
	AutoMigrate  bool      `mapstructure:"auto_migrate" yaml:"auto_migrate"`
	MaxBodyBytes int64     `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	CORSOrigins  []string  `mapstructure:"cors_origins" yaml:"cors_origins"`
	Auth         Auth      `mapstructure:"auth" yaml:"auth"`
	Bootstrap    Bootstrap `mapstructure:"bootstrap" yaml:"bootstrap"`
	Audit        Audit     `mapstructure:"audit" yaml:"audit"`
	Views        Views     `mapstructure:"views" yaml:"views"`
	RateLimit    RateLimit `mapstructure:"rate_limit" yaml:"rate_limit"`
}

type Auth struct {
	TokenSecret      string        `mapstructure:"token_secret" yaml:"token_secret"`
	Issuer           string        `mapstructure:"issuer" yaml:"issuer"`
	AdminTokenTTL    time.Duration `mapstructure:"admin_token_ttl" yaml:"admin_token_ttl"`
	CustomerTokenTTL time.Duration `mapstructure:"customer_token_ttl" yaml:"customer_token_ttl"`
	PasswordCost     int           `mapstructure:"password_cost" yaml:"password_cost"`
}

// Bootstrap describes the superadmin ensured at startup. An empty
// password skips the bootstrap.
type Bootstrap struct {
	Username string `mapstructure:"username" yaml:"username"`
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"password"`
}

type Audit struct {
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

type Views struct {
	Capacity int           `mapstructure:"capacity" yaml:"capacity"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
}

type RateLimit struct {
	PerSecond          float64 `mapstructure:"per_second" yaml:"per_second"`
	Burst              int     `mapstructure:"burst" yaml:"burst"`
	AnalyticsPerMinute int     `mapstructure:"analytics_per_minute" yaml:"analytics_per_minute"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTPAddr:     ":8080",
		GRPCAddr:     ":9090",
		LogLevel:     "info",
		MaxBodyBytes: 1 << 20,
		Auth: Auth{
			Issuer:           "shopadmin",
			AdminTokenTTL:    24 * time.Hour,
			CustomerTokenTTL: 30 * 24 * time.Hour,
		},
		Bootstrap: Bootstrap{
			Username: "superadmin",
		},
		Audit: Audit{WriteTimeout: 5 * time.Second},
		Views: Views{Capacity: 10_000, Window: time.Hour},
		RateLimit: RateLimit{
			PerSecond:          20,
			Burst:              40,
			AnalyticsPerMinute: 30,
		},
	}
}

// envAliases are the short variable names accepted next to the
// SHOPADMIN_<SECTION>_<KEY> form.
var envAliases = map[string]string{
	"auth.token_secret":               "TOKEN_SECRET",
	"auth.issuer":                     "TOKEN_ISSUER",
	"auth.admin_token_ttl":            "ADMIN_TOKEN_TTL",
	"auth.customer_token_ttl":         "CUSTOMER_TOKEN_TTL",
	"auth.password_cost":              "PASSWORD_COST",
	"bootstrap.username":              "SUPERADMIN_USERNAME",
	"bootstrap.email":                 "SUPERADMIN_EMAIL",
	"bootstrap.password":              "SUPERADMIN_PASSWORD",
	"views.capacity":                  "VIEW_CACHE_SIZE",
	"views.window":                    "VIEW_WINDOW",
	"rate_limit.per_second":           "RATE_LIMIT_RPS",
	"rate_limit.analytics_per_minute": "ANALYTICS_PER_MINUTE",
}

// Load builds the configuration from defaults, the optional YAML file at
// path, then SHOPADMIN_* environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		if err := v.BindEnv(key, envPrefix+"_"+alias); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORSOrigins = cleanList(cfg.CORSOrigins)
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("grpc_addr", d.GRPCAddr)
	v.SetDefault("database_url", d.DatabaseURL)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("auto_migrate", d.AutoMigrate)
	v.SetDefault("max_body_bytes", d.MaxBodyBytes)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("auth.token_secret", d.Auth.TokenSecret)
	v.SetDefault("auth.issuer", d.Auth.Issuer)
	v.SetDefault("auth.admin_token_ttl", d.Auth.AdminTokenTTL)
	v.SetDefault("auth.customer_token_ttl", d.Auth.CustomerTokenTTL)
	v.SetDefault("auth.password_cost", d.Auth.PasswordCost)
	v.SetDefault("bootstrap.username", d.Bootstrap.Username)
	v.SetDefault("bootstrap.email", d.Bootstrap.Email)
	v.SetDefault("bootstrap.password", d.Bootstrap.Password)
	v.SetDefault("audit.write_timeout", d.Audit.WriteTimeout)
	v.SetDefault("views.capacity", d.Views.Capacity)
	v.SetDefault("views.window", d.Views.Window)
	v.SetDefault("rate_limit.per_second", d.RateLimit.PerSecond)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)
	v.SetDefault("rate_limit.analytics_per_minute", d.RateLimit.AnalyticsPerMinute)
}

// Validate reports configuration that cannot start a server.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.TokenSecret) == "" {
		errs = append(errs, errors.New("auth.token_secret (SHOPADMIN_TOKEN_SECRET) is required"))
	}
	if c.Auth.AdminTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.admin_token_ttl must be positive"))
	}
	if c.Auth.CustomerTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.customer_token_ttl must be positive"))
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if c.RateLimit.PerSecond < 0 || c.RateLimit.Burst < 0 || c.RateLimit.AnalyticsPerMinute < 0 {
		errs = append(errs, errors.New("rate limits cannot be negative"))
	}
	if c.Bootstrap.Password != "" && strings.TrimSpace(c.Bootstrap.Username) == "" {
		errs = append(errs, errors.New("bootstrap.username is required with bootstrap.password"))
	}
	return errors.Join(errs...)
}

const redacted = "[redacted]"

// Redacted returns a copy safe to print: secrets are masked and the
// database URL loses its password.
func (c Config) Redacted() Config {
	if c.Auth.TokenSecret != "" {
		c.Auth.TokenSecret = redacted
	}
	if c.Bootstrap.Password != "" {
		c.Bootstrap.Password = redacted
	}
	if u, err := url.Parse(c.DatabaseURL); err == nil && u.User != nil {
		c.DatabaseURL = u.Redacted()
	}
	c.CORSOrigins = append([]string(nil), c.CORSOrigins...)
	return c
}

// YAML renders the redacted configuration in the file format Load reads.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}

func cleanList(in []string) []string {
	var out []string
	for _, part := range in {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
