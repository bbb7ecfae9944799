package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings
type Config struct {
	Port            string
	Host            string
	LobbyTTL        time.Duration
	JanitorInterval time.Duration
	LocationsFile   string
	QuestionsFile   string
	NatsURL         string
	NatsPrefix      string
	EventBuffer     int
	PublicURL       string
	Debug           bool
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		Port:            "8080",
		LobbyTTL:        30 * time.Minute,
		JanitorInterval: time.Minute,
		NatsPrefix:      "sus",
		EventBuffer:     32,
	}
}

// Load reads an optional .env file and then the process environment
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, falling back to defaults for unset keys
func FromEnv(getenv func(string) string) (Config, error) {
	c := Default()

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return Config{}, fmt.Errorf("PORT must be a port number, got %q", v)
		}
		c.Port = v
	}
	c.Host = getenv("HOST")

	var err error
	if c.LobbyTTL, err = duration(getenv, "LOBBY_TTL", c.LobbyTTL); err != nil {
		return Config{}, err
	}
	if c.JanitorInterval, err = duration(getenv, "JANITOR_INTERVAL", c.JanitorInterval); err != nil {
		return Config{}, err
	}
	if c.LobbyTTL > 0 && c.JanitorInterval <= 0 {
		return Config{}, errors.New("JANITOR_INTERVAL must be positive when LOBBY_TTL is set")
	}

	c.LocationsFile = getenv("CATALOG_LOCATIONS")
	c.QuestionsFile = getenv("CATALOG_QUESTIONS")
	c.NatsURL = getenv("NATS_URL")
	if v := getenv("NATS_SUBJECT_PREFIX"); v != "" {
		c.NatsPrefix = v
	}

	if v := getenv("EVENT_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("EVENT_BUFFER must be a positive integer, got %q", v)
		}
		c.EventBuffer = n
	}

	if v := getenv("PUBLIC_URL"); v != "" {
		u, err := url.Parse(v)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Config{}, fmt.Errorf("PUBLIC_URL must be an absolute http(s) URL, got %q", v)
		}
		c.PublicURL = strings.TrimSuffix(v, "/")
	}

	c.Debug = getenv("DEBUG") != ""
	return c, nil
}

func duration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	if v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s must be a non-negative duration like 30m, got %q", key, v)
	}
	return d, nil
}

// Addr is the listen address
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
