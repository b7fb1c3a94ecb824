package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Config is everything the client and the dev server read from the environment.
type Config struct {
	APIURL      string        // LIBRARY_API_URL
	DBPath      string        // LIBRARY_DB
	SortLocale  string        // LIBRARY_SORT_LOCALE: BCP 47 tag or "ordinal"
	SessionKey  string        // LIBRARY_SESSION_KEY: seals the stored token when set
	HTTPTimeout time.Duration // LIBRARY_HTTP_TIMEOUT: 0 means no timeout

	RedisURL     string        // REDIS_URL: enables the recommendation cache
	RecommendTTL time.Duration // RECOMMEND_CACHE_TTL

	AMQPURL  string // AMQP_URL or RABBITMQ_USER/PASSWORD/IP/PORT
	Exchange string // LIBRARY_EXCHANGE

	DevAddr      string // DEVSERVER_ADDR
	DevJWTSecret string // DEVSERVER_JWT_SECRET
	DevTokenTTL  time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		APIURL:       env("LIBRARY_API_URL", "http://localhost:8000/api"),
		DBPath:       env("LIBRARY_DB", defaultDBPath()),
		SortLocale:   env("LIBRARY_SORT_LOCALE", "ja"),
		SessionKey:   os.Getenv("LIBRARY_SESSION_KEY"),
		RedisURL:     os.Getenv("REDIS_URL"),
		AMQPURL:      amqpURL(),
		Exchange:     env("LIBRARY_EXCHANGE", "library.books"),
		DevAddr:      env("DEVSERVER_ADDR", ":8000"),
		DevJWTSecret: os.Getenv("DEVSERVER_JWT_SECRET"),
	}

	var err error
	if cfg.HTTPTimeout, err = envDuration("LIBRARY_HTTP_TIMEOUT", "0s"); err != nil {
		return cfg, fmt.Errorf("LIBRARY_HTTP_TIMEOUT: %w", err)
	}
	if cfg.RecommendTTL, err = envDuration("RECOMMEND_CACHE_TTL", "24h"); err != nil {
		return cfg, fmt.Errorf("RECOMMEND_CACHE_TTL: %w", err)
	}
	if cfg.DevTokenTTL, err = envDuration("DEVSERVER_TOKEN_TTL", "24h"); err != nil {
		return cfg, fmt.Errorf("DEVSERVER_TOKEN_TTL: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate fails fast on settings the client cannot work with.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("LIBRARY_API_URL %q is not an absolute URL", c.APIURL)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("LIBRARY_DB must not be empty")
	}
	if !strings.EqualFold(c.SortLocale, "ordinal") {
		if _, err := language.Parse(c.SortLocale); err != nil {
			return fmt.Errorf("LIBRARY_SORT_LOCALE %q: %w", c.SortLocale, err)
		}
	}
	if c.HTTPTimeout < 0 {
		return errors.New("LIBRARY_HTTP_TIMEOUT must not be negative")
	}
	return nil
}

// Warnings lists non-fatal issues worth logging at startup.
func (c Config) Warnings() []string {
	var warns []string
	if c.SessionKey == "" {
		warns = append(warns, "LIBRARY_SESSION_KEY not set; the session token is stored unsealed")
	}
	if strings.HasPrefix(c.RedisURL, "redis://") && !isLocal(c.RedisURL) {
		warns = append(warns, "REDIS_URL uses redis:// (no TLS). Prefer rediss:// for remote hosts")
	}
	if c.DevJWTSecret != "" && len(c.DevJWTSecret) < 32 {
		warns = append(warns, "DEVSERVER_JWT_SECRET is shorter than 32 characters")
	}
	return warns
}

// --- helpers ---

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key, def string) (time.Duration, error) {
	s := env(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func amqpURL() string {
	if u := os.Getenv("AMQP_URL"); u != "" {
		return u
	}
	user := os.Getenv("RABBITMQ_USER")
	password := os.Getenv("RABBITMQ_PASSWORD")
	host := os.Getenv("RABBITMQ_IP")
	port := env("RABBITMQ_PORT", "5672")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", url.QueryEscape(user), url.QueryEscape(password), host, port)
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "session.db"
	}
	return filepath.Join(dir, "library-lending", "session.db")
}

func isLocal(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	h := u.Hostname()
	return h == "localhost" || h == "127.0.0.1" || h == "::1"
}
