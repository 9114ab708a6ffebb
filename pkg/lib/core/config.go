package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config is a read-only view over layered configuration sources.
type Config struct {
	k         *koanf.Koanf
	namespace string
}

var defaults = map[string]interface{}{
	"log.level":                  "info",
	"web.port":                   ":8080",
	"grpc.port":                  ":9090",
	"db.driver":                  "mongo",
	"db.mongo.url":               "mongodb://localhost:27017",
	"db.mongo.name":              "kiosk",
	"realtime.adapter":           "memory",
	"realtime.prefix":            "kiosk",
	"nats.url":                   "nats://localhost:4222",
	"redis.url":                  "redis://localhost:6379/0",
	"changestream.initial.delay": "2s",
	"changestream.max.retries":   5,
	"sumup.api.url":              "https://api.sumup.com",
	"sumup.currency":             "DKK",
	"session.cookie.name":        "kiosk_session",
	"session.ttl":                "12h",
	"debug.endpoints":            false,
}

// LoadConfig builds the configuration for namespace from defaults, an optional
// YAML file given with --config and NAMESPACE_ prefixed environment variables,
// in increasing order of precedence.
func LoadConfig(namespace string, args []string) (*Config, error) {
	flags := pflag.NewFlagSet(strings.ToLower(namespace), pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a YAML config file")
	logLevel := flags.String("log-level", "", "log level (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("cannot parse flags: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("cannot load defaults: %w", err)
	}

	if *configPath != "" {
		if err := k.Load(file.Provider(*configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("cannot load config file %s: %w", *configPath, err)
		}
	}

	prefix := strings.ToUpper(namespace) + "_"
	err := k.Load(env.Provider(prefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, prefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("cannot load environment: %w", err)
	}

	if *logLevel != "" {
		if err := k.Load(confmap.Provider(map[string]interface{}{"log.level": *logLevel}, "."), nil); err != nil {
			return nil, fmt.Errorf("cannot apply flags: %w", err)
		}
	}

	return &Config{k: k, namespace: namespace}, nil
}

// NewConfigFromMap is used by tests and tools that do not read the environment.
func NewConfigFromMap(values map[string]interface{}) *Config {
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(values, "."), nil)
	return &Config{k: k}
}

func (c *Config) GetString(key string) (string, bool) {
	if c == nil || !c.k.Exists(key) {
		return "", false
	}
	return c.k.String(key), true
}

func (c *Config) GetStringOrDef(key, def string) string {
	v, ok := c.GetString(key)
	if !ok || v == "" {
		return def
	}
	return v
}

func (c *Config) GetIntOrDef(key string, def int) int {
	if c == nil || !c.k.Exists(key) {
		return def
	}
	return c.k.Int(key)
}

func (c *Config) GetBoolOrDef(key string, def bool) bool {
	if c == nil || !c.k.Exists(key) {
		return def
	}
	return c.k.Bool(key)
}

func (c *Config) GetDurationOrDef(key string, def time.Duration) time.Duration {
	v, ok := c.GetString(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
