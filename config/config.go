// Package config loads client and dev-server settings through koanf:
// built-in defaults, an optional yaml file, then BURGER_* env overrides.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "BURGER_"

// Config collects every tunable of the client and the companion dev server.
type Config struct {
	API struct {
		BaseURL string        `json:"baseURL" yaml:"baseURL"`
		Timeout time.Duration `json:"timeout" yaml:"timeout"`
	} `json:"api" yaml:"api"`

	Feed struct {
		PublicURL  string        `json:"publicURL" yaml:"publicURL"`
		UserURL    string        `json:"userURL" yaml:"userURL"`
		RetryBase  time.Duration `json:"retryBase" yaml:"retryBase"`
		MaxRetries int           `json:"maxRetries" yaml:"maxRetries"`
	} `json:"feed" yaml:"feed"`

	Log struct {
		Level  string `json:"level" yaml:"level"`
		Pretty bool   `json:"pretty" yaml:"pretty"`
	} `json:"log" yaml:"log"`

	// TokenDir overrides where the token store lives; empty selects the
	// per-user default.
	TokenDir string `json:"tokenDir" yaml:"tokenDir"`

	Server struct {
		Addr       string        `json:"addr" yaml:"addr"`
		JWTKey     string        `json:"jwtKey" yaml:"jwtKey"`
		AccessTTL  time.Duration `json:"accessTTL" yaml:"accessTTL"`
		RefreshTTL time.Duration `json:"refreshTTL" yaml:"refreshTTL"`
	} `json:"server" yaml:"server"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = "https://norma.nomoreparties.space/api"
	cfg.API.Timeout = 15 * time.Second
	cfg.Feed.PublicURL = "wss://norma.nomoreparties.space/orders/all"
	cfg.Feed.UserURL = "wss://norma.nomoreparties.space/orders"
	cfg.Feed.RetryBase = 2 * time.Second
	cfg.Feed.MaxRetries = 3
	cfg.Log.Level = "info"
	cfg.Server.Addr = ":8080"
	cfg.Server.AccessTTL = 20 * time.Minute
	cfg.Server.RefreshTTL = 30 * 24 * time.Hour
	return cfg
}

// Load reads path (yaml, optional: a missing unnamed file is fine) and env
// overrides on top of the defaults. Pass "" to skip the file entirely.
func Load(path string) (*Config, error) {
	cfg := defaults()
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// BURGER_API_BASEURL -> api.baseurl; matching below is
			// case-insensitive.
			key = strings.TrimPrefix(key, envPrefix)
			return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
		},
	}), nil); err != nil {
		return nil, err
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}
