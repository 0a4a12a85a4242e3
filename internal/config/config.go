// Package config loads runtime settings from an optional YAML file, a .env
// file and MAJO_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dukerupert/majo/internal/middleware"
)

const DefaultFile = "majo.yaml"

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type VAPIDConfig struct {
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
	Subscriber string `yaml:"subscriber"`
}

type Config struct {
	Port      string      `yaml:"port"`
	DBPath    string      `yaml:"db_path"`
	LogLevel  string      `yaml:"log_level"`
	LogFormat string      `yaml:"log_format"`
	Timezone  string      `yaml:"timezone"`
	WSOrigins []string    `yaml:"ws_origins"`
	S3        S3Config    `yaml:"s3"`
	VAPID     VAPIDConfig `yaml:"vapid"`

	// TrustedProxies lists the reverse proxies (IPs or CIDRs) whose
	// forwarding headers identify the client. Empty trusts nobody.
	TrustedProxies []string `yaml:"trusted_proxies"`

	location *time.Location
	proxies  *middleware.TrustedProxies
}

func defaults() Config {
	return Config{
		Port:      "8080",
		DBPath:    "majo.db",
		LogLevel:  "info",
		LogFormat: "text",
		Timezone:  "Local",
		S3:        S3Config{Region: "auto"},
		VAPID:     VAPIDConfig{Subscriber: "mailto:noreply@majo.app"},
	}
}

// Load reads .env (if present), then the YAML file named by MAJO_CONFIG or
// majo.yaml (if present), then applies environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv("MAJO_CONFIG")
	required := path != ""
	if path == "" {
		path = DefaultFile
	}
	return LoadFrom(path, required, os.Getenv)
}

// LoadFrom builds a Config from the YAML file at path and the getenv lookup.
// A missing file is an error only when required is true. ${VAR} references
// in the file are expanded with getenv.
func LoadFrom(path string, required bool, getenv func(string) string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		content := os.Expand(string(data), getenv)
		if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	overrides := []struct {
		env string
		dst *string
	}{
		{"MAJO_PORT", &cfg.Port},
		{"MAJO_DB_PATH", &cfg.DBPath},
		{"MAJO_LOG_LEVEL", &cfg.LogLevel},
		{"MAJO_LOG_FORMAT", &cfg.LogFormat},
		{"MAJO_TIMEZONE", &cfg.Timezone},
		{"MAJO_S3_ENDPOINT", &cfg.S3.Endpoint},
		{"MAJO_S3_BUCKET", &cfg.S3.Bucket},
		{"MAJO_S3_REGION", &cfg.S3.Region},
		{"MAJO_S3_ACCESS_KEY", &cfg.S3.AccessKey},
		{"MAJO_S3_SECRET_KEY", &cfg.S3.SecretKey},
		{"MAJO_VAPID_PUBLIC_KEY", &cfg.VAPID.PublicKey},
		{"MAJO_VAPID_PRIVATE_KEY", &cfg.VAPID.PrivateKey},
		{"MAJO_VAPID_SUBSCRIBER", &cfg.VAPID.Subscriber},
	}
	for _, o := range overrides {
		if v := getenv(o.env); v != "" {
			*o.dst = v
		}
	}
	if v := getenv("MAJO_WS_ORIGINS"); v != "" {
		cfg.WSOrigins = splitList(v)
	}
	if v := getenv("MAJO_TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitList(v)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	cfg.proxies, err = middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Location is the time zone that decides where a tracked day begins.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Proxies returns the parsed trusted proxy list. It is nil, trusting
// nobody, for a Config not built by Load.
func (c *Config) Proxies() *middleware.TrustedProxies {
	return c.proxies
}

func (c *Config) PushConfigured() bool {
	return c.VAPID.PublicKey != "" && c.VAPID.PrivateKey != ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
