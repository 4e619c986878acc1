// Package config carga la configuración desde YAML con overrides por
// variables de entorno. El YAML es la base; el entorno siempre gana.
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
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		Driver   string `yaml:"driver"` // memory | postgres
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Driver string `yaml:"driver"` // memory | redis
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	OAuth2 struct {
		Issuer         string `yaml:"issuer"`
		LoginURL       string `yaml:"login_url"`
		IdentityIssuer string `yaml:"identity_issuer"`
		AccessTTL      string `yaml:"access_ttl"`
		RefreshTTL     string `yaml:"refresh_ttl"`
		AuthRequestTTL string `yaml:"auth_request_ttl"`
		CodeTTL        string `yaml:"code_ttl"`
		// RotateRefresh: refresh tokens de un solo uso (rotación en cada refresh).
		RotateRefresh   *bool    `yaml:"rotate_refresh"`
		ScopesSupported []string `yaml:"scopes_supported"`
		CIMD            struct {
			Enabled bool `yaml:"enabled"`
			// AllowInsecure habilita client_ids http:// y desactiva las
			// protecciones SSRF. Sólo dev; en prod se fuerza a false.
			AllowInsecure bool `yaml:"allow_insecure"`
		} `yaml:"cimd"`
	} `yaml:"oauth2"`

	Sweeper struct {
		Interval string `yaml:"interval"`
	} `yaml:"sweeper"`
}

// Load lee el YAML (si path existe), aplica defaults, overrides por env
// y valida. path vacío ⇒ sólo defaults + env.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	// Salvaguarda: en prod jamás corremos CIMD sin protecciones SSRF.
	if strings.EqualFold(c.App.Env, "prod") {
		c.OAuth2.CIMD.AllowInsecure = false
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.OAuth2.Issuer == "" {
		c.OAuth2.Issuer = "http://localhost:8080"
	}
	if c.OAuth2.LoginURL == "" {
		c.OAuth2.LoginURL = strings.TrimRight(c.OAuth2.Issuer, "/") + "/login"
	}
	if c.OAuth2.IdentityIssuer == "" {
		c.OAuth2.IdentityIssuer = c.OAuth2.Issuer
	}
	if c.OAuth2.AccessTTL == "" {
		c.OAuth2.AccessTTL = "15m"
	}
	if c.OAuth2.RefreshTTL == "" {
		c.OAuth2.RefreshTTL = "720h"
	}
	if c.OAuth2.AuthRequestTTL == "" {
		c.OAuth2.AuthRequestTTL = "10m"
	}
	if c.OAuth2.CodeTTL == "" {
		c.OAuth2.CodeTTL = "2m"
	}
	if c.OAuth2.RotateRefresh == nil {
		t := true
		c.OAuth2.RotateRefresh = &t
	}
	if len(c.OAuth2.ScopesSupported) == 0 {
		c.OAuth2.ScopesSupported = []string{"openid", "profile", "email", "phone", "offline_access"}
	}
	if c.Sweeper.Interval == "" {
		c.Sweeper.Interval = "1m"
	}
}

// applyEnvOverrides: pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("CACHE_DRIVER"); ok {
		c.Cache.Driver = v
	}
	if v, ok := getEnvStr("CACHE_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("CACHE_REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("CACHE_REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("OAUTH2_ISSUER"); ok {
		c.OAuth2.Issuer = v
	}
	if v, ok := getEnvStr("OAUTH2_LOGIN_URL"); ok {
		c.OAuth2.LoginURL = v
	}
	if v, ok := getEnvStr("OAUTH2_IDENTITY_ISSUER"); ok {
		c.OAuth2.IdentityIssuer = v
	}
	if v, ok := getEnvBool("OAUTH2_ROTATE_REFRESH"); ok {
		c.OAuth2.RotateRefresh = &v
	}
	if v, ok := getEnvBool("OAUTH2_CIMD_ENABLED"); ok {
		c.OAuth2.CIMD.Enabled = v
	}
	if v, ok := getEnvBool("OAUTH2_CIMD_ALLOW_INSECURE"); ok {
		c.OAuth2.CIMD.AllowInsecure = v
	}
}

func (c *Config) validate() error {
	for _, d := range []struct{ name, val string }{
		{"oauth2.access_ttl", c.OAuth2.AccessTTL},
		{"oauth2.refresh_ttl", c.OAuth2.RefreshTTL},
		{"oauth2.auth_request_ttl", c.OAuth2.AuthRequestTTL},
		{"oauth2.code_ttl", c.OAuth2.CodeTTL},
		{"sweeper.interval", c.Sweeper.Interval},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("config: %s: %w", d.name, err)
		}
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return fmt.Errorf("config: storage.postgres.conn_max_lifetime: %w", err)
		}
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("config: storage.dsn requerido con driver postgres")
	}
	if !strings.HasPrefix(c.OAuth2.Issuer, "http://") && !strings.HasPrefix(c.OAuth2.Issuer, "https://") {
		return fmt.Errorf("config: oauth2.issuer debe ser una URL http(s)")
	}
	return nil
}

// ---- Accessors de duración (ya validadas) ----

func (c *Config) AccessTTL() time.Duration      { return mustDur(c.OAuth2.AccessTTL) }
func (c *Config) RefreshTTL() time.Duration     { return mustDur(c.OAuth2.RefreshTTL) }
func (c *Config) AuthRequestTTL() time.Duration { return mustDur(c.OAuth2.AuthRequestTTL) }
func (c *Config) CodeTTL() time.Duration        { return mustDur(c.OAuth2.CodeTTL) }
func (c *Config) SweeperInterval() time.Duration {
	return mustDur(c.Sweeper.Interval)
}
func (c *Config) RotateRefresh() bool {
	return c.OAuth2.RotateRefresh == nil || *c.OAuth2.RotateRefresh
}

func mustDur(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
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
