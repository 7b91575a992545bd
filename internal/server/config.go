// Package server provides configuration helpers that define runtime defaults,
// environment loading and validation for the chat relay.
package server

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

// DefaultAllowedOrigins are accepted when ALLOWED_ORIGINS is unset. The page
// served by the relay itself is always allowed as same-origin.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
}

// Config holds the server configuration settings.
type Config struct {
	Host            string        `env:"HOST"`
	Port            int           `env:"PORT,default=5001" validate:"min=1,max=65535"`
	Origins         string        `env:"ALLOWED_ORIGINS"`
	MaxMessageSize  int           `env:"MAX_MESSAGE_SIZE,default=4096" validate:"gt=0"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=256" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`

	// AllowedOrigins is derived from Origins.
	AllowedOrigins []string
}

// NewConfig returns the configuration obtained with no variables set, i.e.
// the defaults declared on Config's env tags.
func NewConfig() *Config {
	cfg, err := ParseConfig(map[string]string{})
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return finalizeConfig(&cfg)
}

// ParseConfig reads the configuration from an explicit set of variables.
func ParseConfig(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.Unmarshal(env.EnvSet(vars), &cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return finalizeConfig(&cfg)
}

func finalizeConfig(cfg *Config) (*Config, error) {
	cfg.LogLevel = strings.ToUpper(strings.TrimSpace(cfg.LogLevel))
	if cfg.Origins != "" {
		cfg.AllowedOrigins = parseOrigins(cfg.Origins)
	} else {
		cfg.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Addr returns the listen address, e.g. ":5001".
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
