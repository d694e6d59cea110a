package config

import (
	"path"
	"time"

	"github.com/nightswipe/api/internal/env"

	"go.uber.org/zap"
)

const (
	PortEnv        = "PORT"
	DatabaseUrlEnv = "DATABASE_URL"
	RootPathEnv    = "ROOT_PATH"

	JWTSecretEnv   = "JWT_SECRET"
	JoinURLBaseEnv = "JOIN_URL_BASE"
	SessionTTLEnv  = "SESSION_TTL"

	PlacesAPIKeyEnv  = "PLACES_API_KEY"
	PlacesBaseURLEnv = "PLACES_BASE_URL"
)

const defaultPlacesBaseURL = "https://maps.googleapis.com/maps/api/place"

type PlacesConfiguration struct {
	APIKey  string
	BaseURL string
}

type Config struct {
	Logger *zap.Logger

	Port           int
	DatabaseURL    string
	MigrationsPath string

	JWTSecret   string
	JoinURLBase string
	SessionTTL  time.Duration

	Places PlacesConfiguration
}

func Load() (Config, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return Config{}, err
	}

	port := env.MustGetInt(PortEnv)
	dbURL := env.MustGetString(DatabaseUrlEnv)

	rootPath := env.MustGetString(RootPathEnv)
	migrationsPath := path.Join(rootPath, "db", "migrations")

	jwtSecret := env.MustGetString(JWTSecretEnv)
	joinURLBase := env.GetStringOrDefault(JoinURLBaseEnv, "https://nightswipe.app/join")
	sessionTTL := env.GetDurationOrDefault(SessionTTLEnv, 24*time.Hour)

	placesAPIKey := env.MustGetString(PlacesAPIKeyEnv)
	placesBaseURL := env.GetStringOrDefault(PlacesBaseURLEnv, defaultPlacesBaseURL)

	return Config{
		Logger:         logger,
		Port:           port,
		DatabaseURL:    dbURL,
		MigrationsPath: migrationsPath,
		JWTSecret:      jwtSecret,
		JoinURLBase:    joinURLBase,
		SessionTTL:     sessionTTL,
		Places: PlacesConfiguration{
			APIKey:  placesAPIKey,
			BaseURL: placesBaseURL,
		},
	}, nil
}
