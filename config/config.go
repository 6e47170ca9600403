package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingAllowedOrigins = errors.New("missing-allowed-origins")
	ErrMissingJWTKey         = errors.New("missing-jwt-key")
)

const defaultPort = "3001"

type Config struct {
	Port           string
	AllowedOrigins []string
	PostgresURL    string
	JWTKey         string
	NatsURL        string
	PublicURL      string
	Debug          bool
}

// PersistenceEnabled reports whether a database was configured.
func (c Config) PersistenceEnabled() bool {
	return c.PostgresURL != ""
}

func (c Config) Addr() string {
	return ":" + c.Port
}

// Load reads the optional .env files then the process environment. Values already set in
// the environment win over .env entries.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("file", f).Msg("could not read env file")
		}
	}
	return fromEnv()
}

func fromEnv() (Config, error) {
	cfg := Config{
		Port:        getenv("PORT", defaultPort),
		PostgresURL: os.Getenv("POSTGRES_URL"),
		JWTKey:      os.Getenv("JWT_KEY"),
		NatsURL:     os.Getenv("NATS_URL"),
		Debug:       os.Getenv("DEBUG") != "",
	}

	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, strings.TrimSuffix(origin, "/"))
		}
	}
	if len(cfg.AllowedOrigins) == 0 {
		return Config{}, ErrMissingAllowedOrigins
	}
	if cfg.PersistenceEnabled() && cfg.JWTKey == "" {
		return Config{}, ErrMissingJWTKey
	}

	cfg.PublicURL = strings.TrimSuffix(getenv("PUBLIC_URL", cfg.AllowedOrigins[0]), "/")
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
