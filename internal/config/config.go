package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Secrets are plain strings; TTLs are kept in the
// units the callers use (minutes for access tokens, days for refresh and
// guest tokens).
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	AccessSecret  string // signing secret for access tokens
	RefreshSecret string // signing secret for refresh tokens
	GuestSecret   string // signing secret for guest tokens

	AccessTTLMin       int // access token time-to-live in minutes
	RefreshTTLDays     int // refresh token TTL in days for default sessions
	RememberTTLDays    int // refresh token TTL in days for "remember me" sessions
	GuestTTLDays       int // guest token TTL in days
	BcryptCost         int // bcrypt cost for password and secret hashing
	MaxActiveKeys      int // ceiling on concurrently active API keys per user
	DefaultMinuteLimit int // default per-minute request cap for new API keys
	DefaultDailyLimit  int // default per-day request cap for new API keys

	CookieSecure bool // set Secure on auth cookies (disable only in dev)
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values cause
// the program to exit with a fatal log message. The three token secrets must
// be pairwise distinct so a token of one kind can never verify as another.
func Load() Config {
	cfg := Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"), // empty allowed
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		AccessSecret:  must("ACCESS_TOKEN_SECRET"),
		RefreshSecret: must("REFRESH_TOKEN_SECRET"),
		GuestSecret:   must("GUEST_TOKEN_SECRET"),

		AccessTTLMin:       intOr("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:     intOr("REFRESH_TOKEN_TTL_DAYS", 1),
		RememberTTLDays:    intOr("REMEMBER_TOKEN_TTL_DAYS", 90),
		GuestTTLDays:       intOr("GUEST_TOKEN_TTL_DAYS", 30),
		BcryptCost:         intOr("BCRYPT_COST", 10),
		MaxActiveKeys:      intOr("API_KEY_MAX_ACTIVE", 10),
		DefaultMinuteLimit: intOr("API_KEY_MINUTE_LIMIT", 60),
		DefaultDailyLimit:  intOr("API_KEY_DAILY_LIMIT", 2000),

		CookieSecure: getenv("COOKIE_SECURE", "true") == "true",
	}
	if cfg.AccessSecret == cfg.RefreshSecret || cfg.AccessSecret == cfg.GuestSecret || cfg.RefreshSecret == cfg.GuestSecret {
		log.Fatal("token secrets must be pairwise distinct")
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intOr reads an integer environment variable, falling back to def when the
// variable is unset. A malformed value is still fatal.
func intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
