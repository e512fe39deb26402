// Package settings loads pongd's server configuration: a YAML file, then
// environment overrides, then command-line flags applied by the caller.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Settings is the whole server configuration
type Settings struct {
	Server  ServerSettings `yaml:"server"`
	Log     LogSettings    `yaml:"log"`
	Game    GameSettings   `yaml:"game"`
	Presets PresetSettings `yaml:"presets"`
	Auth    RemoteSettings `yaml:"auth"`
	Setup   RemoteSettings `yaml:"setup"`
	Stats   StatsSettings  `yaml:"stats"`
	Ngrok   NgrokSettings  `yaml:"ngrok"`
}

type ServerSettings struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port" validate:"gte=0,lte=65535"`
	StaticDir      string   `yaml:"static_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogSettings struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// GameSettings controls session housekeeping
type GameSettings struct {
	// MaxIdle is how long an empty, unstarted session may linger before the
	// janitor purges it.
	MaxIdle         time.Duration `yaml:"max_idle" validate:"gt=0"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" validate:"gt=0"`
}

type PresetSettings struct {
	Dir     string `yaml:"dir" validate:"required"`
	Default string `yaml:"default"`
}

// RemoteSettings points at an optional HTTP collaborator. An empty URL
// disables it.
type RemoteSettings struct {
	URL     string        `yaml:"url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

type StatsSettings struct {
	Dir      string           `yaml:"dir"`
	Timeout  time.Duration    `yaml:"timeout" validate:"gt=0"`
	NATS     NATSSettings     `yaml:"nats"`
	Redis    RedisSettings    `yaml:"redis"`
	Postgres PostgresSettings `yaml:"postgres"`
}

type NATSSettings struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	Prefix string `yaml:"prefix" validate:"required_with=URL"`
}

type RedisSettings struct {
	Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Key      string `yaml:"key" validate:"required_with=Addr"`
	Keep     int64  `yaml:"keep" validate:"gte=0"`
}

// PostgresSettings enables the SQL match sink. The schema is migrated on
// startup.
type PostgresSettings struct {
	URL string `yaml:"url" validate:"omitempty,url"`
}

type NgrokSettings struct {
	Enabled   bool   `yaml:"enabled"`
	Authtoken string `yaml:"authtoken"`
	Domain    string `yaml:"domain"`
}

// Default returns the settings used when no file is given
func Default() *Settings {
	return &Settings{
		Server: ServerSettings{
			Host: "localhost",
			Port: 8080,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "console",
		},
		Game: GameSettings{
			MaxIdle:         10 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Presets: PresetSettings{
			Dir:     "configs",
			Default: "classic",
		},
		Auth:  RemoteSettings{Timeout: 5 * time.Second},
		Setup: RemoteSettings{Timeout: 5 * time.Second},
		Stats: StatsSettings{
			Dir:     "matches",
			Timeout: 5 * time.Second,
			NATS:    NATSSettings{Prefix: "pong.matches"},
			Redis:   RedisSettings{Key: "pong:matches", Keep: 1000},
		},
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path skips the file. The result is not validated; call
// Validate after applying flags.
func Load(path string) (*Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
		if err := s.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
		}
	}

	if err := s.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides file values with the deployment environment
func (s *Settings) applyEnv(getenv func(string) string) error {
	if v := getenv("PONGD_HOST"); v != "" {
		s.Server.Host = v
	}
	if v := getenv("PONGD_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PONGD_PORT %q: %w", v, err)
		}
		s.Server.Port = port
	}
	if v := getenv("PONGD_LOG_LEVEL"); v != "" {
		s.Log.Level = v
	}
	if v := getenv("CONFIG_DIR"); v != "" {
		s.Presets.Dir = v
	}
	if v := getenv("AUTH_URL"); v != "" {
		s.Auth.URL = v
	}
	if v := getenv("SETUP_URL"); v != "" {
		s.Setup.URL = v
	}
	if v := getenv("NATS_URL"); v != "" {
		s.Stats.NATS.URL = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		s.Stats.Redis.Addr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		s.Stats.Redis.Password = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		s.Stats.Postgres.URL = v
	}
	if v := getenv("NGROK_AUTHTOKEN"); v != "" {
		s.Ngrok.Authtoken = v
	}
	return nil
}

// Validate checks field constraints
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if s.Ngrok.Enabled && s.Ngrok.Authtoken == "" {
		return errors.New("invalid settings: ngrok enabled without an authtoken (set NGROK_AUTHTOKEN)")
	}
	return nil
}

// Addr is the listen address of the HTTP server
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)
}
