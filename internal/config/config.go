package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr        string `yaml:"addr"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // postgres | memory
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Auth struct {
		Session struct {
			TTL    string `yaml:"ttl"`
			Secure bool   `yaml:"secure"`
		} `yaml:"session"`
		CodeTTL  string `yaml:"code_ttl"`  // authorization code validity
		TokenTTL string `yaml:"token_ttl"` // access token validity
		Rate     struct {
			Max    int    `yaml:"max"`    // hits por ventana e IP en /v1/auth
			Window string `yaml:"window"` // tamaño de la ventana fija
		} `yaml:"rate"`
	} `yaml:"auth"`

	Broker struct {
		// EmailDomain es el dominio de los aliases generados (ej: "mailveil.dev").
		EmailDomain string `yaml:"email_domain"`
		// BaseURL del servicio, usado para URLs por defecto (icono de cliente).
		BaseURL string `yaml:"base_url"`
		// FreeAliasLimit es el techo de aliases para el plan free (y trial vencido).
		FreeAliasLimit int `yaml:"free_alias_limit"`
		// AliasDisclosure: "always" (crear alias si la cuota lo permite) | "never" (email real).
		AliasDisclosure string `yaml:"alias_disclosure"`
	} `yaml:"broker"`

	Files struct {
		Driver string `yaml:"driver"` // s3 | local
		S3     struct {
			Bucket   string `yaml:"bucket"`
			Region   string `yaml:"region"`
			Endpoint string `yaml:"endpoint"`
			TTL      string `yaml:"url_ttl"`
		} `yaml:"s3"`
		Local struct {
			Root    string `yaml:"root"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"local"`
	} `yaml:"files"`

	Billing struct {
		StripeAPIKey string `yaml:"stripe_api_key"`
		// Promos: código -> duración de trial que otorga (ej: "720h").
		Promos map[string]string `yaml:"promos"`
	} `yaml:"billing"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default construye una configuración con valores por defecto (sin YAML).
// Útil para tests y para correr con storage en memoria.
func Default() *Config {
	var c Config
	c.applyDefaults()
	c.applyEnvOverrides()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = ":9090"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Auth.Session.TTL == "" {
		c.Auth.Session.TTL = "12h"
	}
	if c.Auth.Rate.Max == 0 {
		c.Auth.Rate.Max = 20
	}
	if c.Auth.Rate.Window == "" {
		c.Auth.Rate.Window = "1m"
	}
	if c.Auth.CodeTTL == "" {
		c.Auth.CodeTTL = "10m"
	}
	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = "720h" // 30d
	}
	if c.Broker.EmailDomain == "" {
		c.Broker.EmailDomain = "mailveil.dev"
	}
	if c.Broker.BaseURL == "" {
		c.Broker.BaseURL = "http://localhost:8080"
	}
	if c.Broker.FreeAliasLimit == 0 {
		c.Broker.FreeAliasLimit = 3
	}
	if c.Broker.AliasDisclosure == "" {
		c.Broker.AliasDisclosure = "always"
	}
	if c.Files.Driver == "" {
		c.Files.Driver = "local"
	}
	if c.Files.S3.TTL == "" {
		c.Files.S3.TTL = "15m"
	}
	if c.Files.Local.Root == "" {
		c.Files.Local.Root = "./data/files"
	}
}

// Validate chequea valores críticos y formatos de duración.
func (c *Config) Validate() error {
	for _, d := range []struct{ name, val string }{
		{"auth.session.ttl", c.Auth.Session.TTL},
		{"auth.code_ttl", c.Auth.CodeTTL},
		{"auth.token_ttl", c.Auth.TokenTTL},
		{"auth.rate.window", c.Auth.Rate.Window},
		{"cache.memory.default_ttl", c.Cache.Memory.DefaultTTL},
		{"files.s3.url_ttl", c.Files.S3.TTL},
	} {
		if d.val == "" {
			continue
		}
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("config: invalid duration %s=%q: %w", d.name, d.val, err)
		}
	}
	for code, val := range c.Billing.Promos {
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("config: invalid duration billing.promos[%s]=%q: %w", code, val, err)
		}
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return fmt.Errorf("config: invalid duration storage.postgres.conn_max_lifetime: %w", err)
		}
	}
	switch c.Broker.AliasDisclosure {
	case "always", "never":
	default:
		return fmt.Errorf("config: broker.alias_disclosure must be always|never, got %q", c.Broker.AliasDisclosure)
	}
	if c.Broker.FreeAliasLimit < 1 {
		return fmt.Errorf("config: broker.free_alias_limit must be >= 1")
	}
	return nil
}

// CodeTTL retorna la duración parseada del TTL de authorization codes.
func (c *Config) CodeTTL() time.Duration { return mustDur(c.Auth.CodeTTL, 10*time.Minute) }

// TokenTTL retorna la duración parseada del TTL de access tokens.
func (c *Config) TokenTTL() time.Duration { return mustDur(c.Auth.TokenTTL, 720*time.Hour) }

// SessionTTL retorna la duración parseada del TTL de sesión.
func (c *Config) SessionTTL() time.Duration { return mustDur(c.Auth.Session.TTL, 12*time.Hour) }

// RateWindow retorna la ventana del rate limiter ya parseada.
func (c *Config) RateWindow() time.Duration { return mustDur(c.Auth.Rate.Window, time.Minute) }

// PromoDurations retorna los promos ya parseados. Validate garantiza el formato.
func (c *Config) PromoDurations() map[string]time.Duration {
	if len(c.Billing.Promos) == 0 {
		return nil
	}
	out := make(map[string]time.Duration, len(c.Billing.Promos))
	for code, val := range c.Billing.Promos {
		if d, err := time.ParseDuration(val); err == nil {
			out[code] = d
		}
	}
	return out
}

func mustDur(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("METRICS_ADDR"); ok {
		c.Server.MetricsAddr = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvStr("CACHE_MEMORY_DEFAULT_TTL"); ok {
		c.Cache.Memory.DefaultTTL = v
	}

	// AUTH
	if v, ok := getEnvStr("AUTH_SESSION_TTL"); ok {
		c.Auth.Session.TTL = v
	}
	if v, ok := getEnvBool("AUTH_SESSION_SECURE"); ok {
		c.Auth.Session.Secure = v
	}
	if v, ok := getEnvInt("AUTH_RATE_MAX"); ok {
		c.Auth.Rate.Max = v
	}
	if v, ok := getEnvStr("AUTH_RATE_WINDOW"); ok {
		c.Auth.Rate.Window = v
	}
	if v, ok := getEnvStr("AUTH_CODE_TTL"); ok {
		c.Auth.CodeTTL = v
	}
	if v, ok := getEnvStr("AUTH_TOKEN_TTL"); ok {
		c.Auth.TokenTTL = v
	}

	// BROKER
	if v, ok := getEnvStr("BROKER_EMAIL_DOMAIN"); ok {
		c.Broker.EmailDomain = v
	}
	if v, ok := getEnvStr("BROKER_BASE_URL"); ok {
		c.Broker.BaseURL = v
	}
	if v, ok := getEnvInt("BROKER_FREE_ALIAS_LIMIT"); ok {
		c.Broker.FreeAliasLimit = v
	}
	if v, ok := getEnvStr("BROKER_ALIAS_DISCLOSURE"); ok {
		c.Broker.AliasDisclosure = strings.ToLower(strings.TrimSpace(v))
	}

	// FILES
	if v, ok := getEnvStr("FILES_DRIVER"); ok {
		c.Files.Driver = v
	}
	if v, ok := getEnvStr("FILES_S3_BUCKET"); ok {
		c.Files.S3.Bucket = v
	}
	if v, ok := getEnvStr("FILES_S3_REGION"); ok {
		c.Files.S3.Region = v
	}
	if v, ok := getEnvStr("FILES_S3_ENDPOINT"); ok {
		c.Files.S3.Endpoint = v
	}
	if v, ok := getEnvStr("FILES_LOCAL_ROOT"); ok {
		c.Files.Local.Root = v
	}
	if v, ok := getEnvStr("FILES_LOCAL_BASE_URL"); ok {
		c.Files.Local.BaseURL = v
	}

	// BILLING
	if v, ok := getEnvStr("STRIPE_API_KEY"); ok {
		c.Billing.StripeAPIKey = v
	}

	// FLAGS
	if v, ok := getEnvBool("FLAGS_MIGRATE"); ok {
		c.Flags.Migrate = v
	}
}
