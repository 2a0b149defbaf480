// Package config loads server settings from defaults, an optional YAML file
// and PRACTICUM_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dukerupert/practicum/internal/password"
)

const envPrefix = "PRACTICUM_"

type Config struct {
	Port string `yaml:"port"`
	Dev  bool   `yaml:"dev"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Session struct {
		Secret   string        `yaml:"secret"`
		Audience string        `yaml:"audience"`
		TTL      time.Duration `yaml:"ttl"`
		Scheme   string        `yaml:"password_scheme"`
		Cleanup  time.Duration `yaml:"cleanup_interval"`
	} `yaml:"session"`

	Questions struct {
		Dir string `yaml:"dir"`
	} `yaml:"questions"`

	Gemini struct {
		APIKey     string `yaml:"api_key"`
		ModelName  string `yaml:"model_name"`
		MaxRetries int    `yaml:"max_retries"`
	} `yaml:"gemini"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	c := &Config{Port: "8080"}
	c.Database.Path = "practicum.db"
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.Session.Audience = "practicum"
	c.Session.TTL = 24 * time.Hour
	c.Session.Scheme = string(password.SchemeSHA2)
	c.Session.Cleanup = time.Hour
	c.Questions.Dir = "questions"
	c.Gemini.ModelName = "gemini-2.0-flash"
	c.Gemini.MaxRetries = 3
	return c
}

// Load applies the YAML file at path (skipped when path is empty) and then
// the environment on top of Default.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(c); err != nil {
			return nil, fmt.Errorf("decode config file: %w", err)
		}
		c.Session.Secret = os.ExpandEnv(c.Session.Secret)
		c.Gemini.APIKey = os.ExpandEnv(c.Gemini.APIKey)
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("DB_PATH", &c.Database.Path)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("SESSION_SECRET", &c.Session.Secret)
	str("TOKEN_AUDIENCE", &c.Session.Audience)
	str("PASSWORD_SCHEME", &c.Session.Scheme)
	str("QUESTIONS_DIR", &c.Questions.Dir)
	str("GEMINI_API_KEY", &c.Gemini.APIKey)
	str("GEMINI_MODEL", &c.Gemini.ModelName)

	if v, ok := lookup(envPrefix + "DEV"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %sDEV: %w", envPrefix, err)
		}
		c.Dev = b
	}
	for key, dst := range map[string]*time.Duration{
		"SESSION_TTL":      &c.Session.TTL,
		"CLEANUP_INTERVAL": &c.Session.Cleanup,
	} {
		v, ok := lookup(envPrefix + key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", envPrefix, key, err)
		}
		*dst = d
	}
	return nil
}

// PasswordScheme is the hashing scheme for new registrations and password
// changes.
func (c *Config) PasswordScheme() (password.Scheme, error) {
	return password.ParseScheme(c.Session.Scheme)
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Session.Secret == "" && !c.Dev {
		errs = append(errs, errors.New("session secret is required outside dev mode"))
	}
	if _, err := c.PasswordScheme(); err != nil {
		errs = append(errs, err)
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("session ttl must be positive, got %s", c.Session.TTL))
	}
	if c.Session.Cleanup <= 0 {
		errs = append(errs, fmt.Errorf("cleanup interval must be positive, got %s", c.Session.Cleanup))
	}
	if c.Session.Audience == "" {
		errs = append(errs, errors.New("token audience is required"))
	}
	return errors.Join(errs...)
}
