package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	DatabaseURL string
	// StoreDriver is "postgres" (the default) or "memory". The memory driver
	// is only used when STORE_DRIVER asks for it.
	StoreDriver string

	RateLimitPerMinute     int
	RateLimitBurst         int
	UserRateLimitPerMinute int
	UserRateLimitBurst     int

	SessionCookieName   string
	SessionTTL          time.Duration
	SessionHashKey      string
	SessionBlockKey     string
	SessionCookieSecure bool

	LogLevel string
	LogFile  string
	LogDev   bool

	SeedAdminEmail    string
	SeedAdminPassword string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first, and the YAML file named by CONFIG_FILE supplies
// defaults for any key the environment leaves unset.
func Load() (Config, error) {
	_ = godotenv.Load()

	src := source{file: map[string]string{}}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = file
	}

	databaseURL := src.get("DB_DSN")
	driver := strings.ToLower(src.get("STORE_DRIVER"))
	if driver == "" {
		driver = "postgres"
	}
	if driver != "memory" && driver != "postgres" {
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
	if driver == "postgres" && databaseURL == "" {
		return Config{}, errors.New("DB_DSN is required unless STORE_DRIVER=memory")
	}

	return Config{
		Port:                   src.readString("ADMIN_PORT", "8080"),
		DatabaseURL:            databaseURL,
		StoreDriver:            driver,
		RateLimitPerMinute:     src.readInt("ADMIN_RATE_LIMIT_PER_MIN", 300),
		RateLimitBurst:         src.readInt("ADMIN_RATE_LIMIT_BURST", 60),
		UserRateLimitPerMinute: src.readInt("ADMIN_USER_RATE_LIMIT_PER_MIN", 600),
		UserRateLimitBurst:     src.readInt("ADMIN_USER_RATE_LIMIT_BURST", 120),
		SessionCookieName:      src.readString("SESSION_COOKIE_NAME", "volterra_session"),
		SessionTTL:             src.readDuration("SESSION_TTL", 8*time.Hour),
		SessionHashKey:         src.get("SESSION_HASH_KEY"),
		SessionBlockKey:        src.get("SESSION_BLOCK_KEY"),
		SessionCookieSecure:    src.readBool("SESSION_COOKIE_SECURE", false),
		LogLevel:               src.readString("LOG_LEVEL", "info"),
		LogFile:                src.get("LOG_FILE"),
		LogDev:                 src.readBool("LOG_DEV", false),
		SeedAdminEmail:         src.get("SEED_ADMIN_EMAIL"),
		SeedAdminPassword:      src.get("SEED_ADMIN_PASSWORD"),
	}, nil
}

// readFile parses a flat YAML mapping of environment keys to values.
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	values := make(map[string]string, len(raw))
	for key, value := range raw {
		if value == nil {
			continue
		}
		values[strings.ToUpper(key)] = fmt.Sprint(value)
	}
	return values, nil
}

type source struct {
	file map[string]string
}

func (s source) get(key string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(s.file[key])
}

func (s source) readString(key, fallback string) string {
	if value := s.get(key); value != "" {
		return value
	}
	return fallback
}

func (s source) readInt(key string, fallback int) int {
	raw := s.get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func (s source) readBool(key string, fallback bool) bool {
	raw := s.get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

// readDuration accepts Go duration strings ("8h") or a bare number of seconds.
func (s source) readDuration(key string, fallback time.Duration) time.Duration {
	raw := s.get(key)
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return fallback
		}
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
