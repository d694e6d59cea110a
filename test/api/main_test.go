package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path"
	"testing"

	"github.com/nightswipe/api/internal/config"
	"github.com/nightswipe/api/internal/modules/tests"
	"github.com/nightswipe/api/internal/server"

	"github.com/docker/go-connections/nat"
	"github.com/joho/godotenv"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type IntegrationTestFixture struct {
	client    *http.Client
	baseURL   string
	db        *sql.DB
	jwtSecret string
	venues    *stubVenueProvider
}

var fixture = IntegrationTestFixture{}

func TestMain(m *testing.M) {
	rootPath := "../../"
	if err := os.Setenv(config.RootPathEnv, rootPath); err != nil {
		log.Fatal(err)
	}

	localConfigPath := path.Join(rootPath, "config.local.env")
	if _, err := os.Stat(localConfigPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f, err := os.Create(localConfigPath)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := f.Close(); err != nil {
					log.Fatal(err)
				}
			}()

			if _, err := f.Write([]byte("SKIP_INFRASTRUCTURE=false")); err != nil {
				log.Fatal(err)
			}
		}
	}

	if err := godotenv.Load(path.Join(rootPath, "config.local.env")); err != nil {
		log.Fatal(err)
	}

	if err := godotenv.Load(path.Join(rootPath, "config.env")); err != nil {
		log.Fatal(err)
	}

	venues := newStubVenueProvider()
	venueServer := httptest.NewServer(venues)
	defer venueServer.Close()

	if err := os.Setenv(config.PlacesBaseURLEnv, venueServer.URL); err != nil {
		log.Fatal(err)
	}

	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	conf.Logger = zap.NewNop()

	pgPort := nat.Port(fmt.Sprintf("%d", 5432))

	waitStrategies := map[string]wait.Strategy{
		"nightswipe-postgres": wait.ForSQL(pgPort, "postgres", func(string, nat.Port) string { return conf.DatabaseURL }),
	}

	ctx := context.Background()

	composePath := path.Join(rootPath, "docker-compose.yml")
	f, err := tests.NewLocalTestFixture(composePath, waitStrategies)
	if err != nil {
		log.Fatal(err)
	}

	defer func() {
		if err := recover(); err != nil {
			fmt.Printf("unrecoverable error occurred: %+v", err)
		}
	}()

	defer func() {
		if err := f.Stop(ctx); err != nil {
			log.Fatal(err)
		}
	}()

	if err := f.Start(ctx); err != nil {
		log.Fatal(err)
	}

	if err := initFixture(conf, venues); err != nil {
		log.Fatal(err)
	}

	srv, err := server.NewHTTPServer(conf)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal(err)
		}
	}()

	_ = m.Run()
}

func initFixture(conf config.Config, venues *stubVenueProvider) error {
	fixture.client = &http.Client{}
	fixture.jwtSecret = conf.JWTSecret
	fixture.venues = venues

	u := url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", "localhost", conf.Port),
	}
	fixture.baseURL = u.String()

	db, err := sql.Open("postgres", conf.DatabaseURL)
	if err != nil {
		return err
	}

	fixture.db = db

	return nil
}

// stubVenueProvider serves nearby-search responses in the provider's
// wire format. Tests swap the venue list per scenario; the near/far
// split lets them observe the radius-expansion retry, and rate-limit
// mode makes every search fail with the provider's quota status.
type stubVenueProvider struct {
	near        []stubVenue
	far         []stubVenue
	rateLimited bool
}

type stubVenue struct {
	PlaceID        string
	Name           string
	Lat            float64
	Lng            float64
	Rating         *float64
	ReviewCount    int
	Types          []string
	Vicinity       string
	PhotoReference string
}

func newStubVenueProvider() *stubVenueProvider {
	return &stubVenueProvider{}
}

func (s *stubVenueProvider) serve(venues []stubVenue) {
	s.near = venues
	s.far = venues
	s.rateLimited = false
}

func (s *stubVenueProvider) serveByRadius(near, far []stubVenue) {
	s.near = near
	s.far = far
	s.rateLimited = false
}

func (s *stubVenueProvider) rateLimit() {
	s.rateLimited = true
}

func (s *stubVenueProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "OVER_QUERY_LIMIT",
			"results": []any{},
		})
		return
	}

	venues := s.near
	if r.URL.Query().Get("radius") == "10000" {
		venues = s.far
	}

	type location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	type geometry struct {
		Location location `json:"location"`
	}
	type photo struct {
		PhotoReference string `json:"photo_reference"`
	}
	type result struct {
		PlaceID          string   `json:"place_id"`
		Name             string   `json:"name"`
		Geometry         geometry `json:"geometry"`
		Rating           *float64 `json:"rating"`
		UserRatingsTotal int      `json:"user_ratings_total"`
		Photos           []photo  `json:"photos"`
		Types            []string `json:"types"`
		Vicinity         string   `json:"vicinity"`
	}

	results := make([]result, 0, len(venues))
	for _, v := range venues {
		r := result{
			PlaceID:          v.PlaceID,
			Name:             v.Name,
			Geometry:         geometry{Location: location{Lat: v.Lat, Lng: v.Lng}},
			Rating:           v.Rating,
			UserRatingsTotal: v.ReviewCount,
			Types:            v.Types,
			Vicinity:         v.Vicinity,
		}

		if v.PhotoReference != "" {
			r.Photos = []photo{{PhotoReference: v.PhotoReference}}
		}

		results = append(results, r)
	}

	status := "OK"
	if len(results) == 0 {
		status = "ZERO_RESULTS"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"results": results,
	})
}
