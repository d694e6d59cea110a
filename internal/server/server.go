package server

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nightswipe/api/internal/config"
	"github.com/nightswipe/api/internal/modules/auth"
	"github.com/nightswipe/api/internal/modules/core"
	"github.com/nightswipe/api/internal/modules/places"
	"github.com/nightswipe/api/internal/modules/profile"
	sessioncommands "github.com/nightswipe/api/internal/modules/session/commands"
	sessionqueries "github.com/nightswipe/api/internal/modules/session/queries"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/migrate-go"
	"github.com/go-chi/chi"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const expirySweepInterval = 5 * time.Minute

type Server interface {
	Start() error
	Stop() error
}

var _ Server = &HTTPServer{}

// HTTPServer acts as the composition root for the application.
type HTTPServer struct {
	server      *http.Server
	db          *sql.DB
	stopSweeper context.CancelFunc
}

func NewHTTPServer(config config.Config) (Server, error) {
	baseCtx := context.Background()

	db, err := sql.Open("postgres", config.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := migrate.Run(baseCtx, db, config.MigrationsPath); err != nil {
		return nil, err
	}

	core.SetLogger(config.Logger)

	requestLoggingBehavior := core.RequestLoggingBehavior{Logger: config.Logger}
	handlerErrorLoggingBehavior := core.HandlerErrorLoggingBehavior{Logger: config.Logger}
	requestValidationBehavior := core.RequestValidationBehavior{}

	mediator.RegisterPipelineBehavior(&requestLoggingBehavior)
	mediator.RegisterPipelineBehavior(&handlerErrorLoggingBehavior)
	mediator.RegisterPipelineBehavior(&requestValidationBehavior)

	venues := places.NewHTTPClient(config.Places.BaseURL, config.Places.APIKey)

	// handler registration

	// session

	createSessionHandler := sessioncommands.NewCreateSessionCommandHandler(db, config.JoinURLBase)
	err = mediator.RegisterRequestHandler[sessioncommands.CreateSessionCommand, sessioncommands.CreateSessionResponse](
		createSessionHandler,
	)
	if err != nil {
		return nil, err
	}

	joinSessionHandler := sessioncommands.NewJoinSessionCommandHandler(db)
	err = mediator.RegisterRequestHandler[sessioncommands.JoinSessionCommand, sessioncommands.JoinSessionResponse](
		joinSessionHandler,
	)
	if err != nil {
		return nil, err
	}

	generateDeckHandler := sessioncommands.NewGenerateDeckCommandHandler(db, venues, config.Places.APIKey)
	err = mediator.RegisterRequestHandler[sessioncommands.GenerateDeckCommand, sessioncommands.GenerateDeckResponse](
		generateDeckHandler,
	)
	if err != nil {
		return nil, err
	}

	submitSwipeHandler := sessioncommands.NewSubmitSwipeCommandHandler(db)
	err = mediator.RegisterRequestHandler[sessioncommands.SubmitSwipeCommand, sessioncommands.SubmitSwipeResponse](
		submitSwipeHandler,
	)
	if err != nil {
		return nil, err
	}

	confirmActionHandler := sessioncommands.NewConfirmActionCommandHandler(db, venues, config.Places.APIKey)
	err = mediator.RegisterRequestHandler[sessioncommands.ConfirmActionCommand, sessioncommands.ConfirmActionResponse](
		confirmActionHandler,
	)
	if err != nil {
		return nil, err
	}

	cancelSessionHandler := sessioncommands.NewCancelSessionCommandHandler(db)
	err = mediator.RegisterRequestHandler[sessioncommands.CancelSessionCommand, core.Unit](
		cancelSessionHandler,
	)
	if err != nil {
		return nil, err
	}

	expireSessionsHandler := sessioncommands.NewExpireStaleSessionsCommandHandler(db)
	err = mediator.RegisterRequestHandler[sessioncommands.ExpireStaleSessionsCommand, sessioncommands.ExpireStaleSessionsResponse](
		expireSessionsHandler,
	)
	if err != nil {
		return nil, err
	}

	getSessionHandler := sessionqueries.NewGetSessionQueryHandler(db)
	err = mediator.RegisterRequestHandler[sessionqueries.GetSessionQuery, sessionqueries.SessionView](
		getSessionHandler,
	)
	if err != nil {
		return nil, err
	}

	resolveJoinCodeHandler := sessionqueries.NewResolveJoinCodeQueryHandler(db)
	err = mediator.RegisterRequestHandler[sessionqueries.ResolveJoinCodeQuery, sessionqueries.ResolveJoinCodeResponse](
		resolveJoinCodeHandler,
	)
	if err != nil {
		return nil, err
	}

	getDeckHandler := sessionqueries.NewGetDeckQueryHandler(db)
	err = mediator.RegisterRequestHandler[sessionqueries.GetDeckQuery, sessionqueries.DeckView](
		getDeckHandler,
	)
	if err != nil {
		return nil, err
	}

	getStatusHandler := sessionqueries.NewGetStatusQueryHandler(db)
	err = mediator.RegisterRequestHandler[sessionqueries.GetStatusQuery, sessionqueries.StatusView](
		getStatusHandler,
	)
	if err != nil {
		return nil, err
	}

	getMatchesHandler := sessionqueries.NewGetMatchesQueryHandler(db)
	err = mediator.RegisterRequestHandler[sessionqueries.GetMatchesQuery, sessionqueries.MatchesView](
		getMatchesHandler,
	)
	if err != nil {
		return nil, err
	}

	// profile

	upsertProfileHandler := profile.NewUpsertProfileCommandHandler(db)
	err = mediator.RegisterRequestHandler[profile.UpsertProfileCommand, profile.Profile](
		upsertProfileHandler,
	)
	if err != nil {
		return nil, err
	}

	// http

	verifier := auth.NewTokenVerifier(config.JWTSecret)

	router := chi.NewRouter()
	router.Use(core.CorrelationIDHTTPMiddleware)

	router.Get("/health", handleHealth(db))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.IdentityMiddleware(verifier))

		r.Put("/profile", profile.HandleUpsertProfile)

		r.Route("/session", func(r chi.Router) {
			r.Post("/", sessioncommands.HandleCreateSession)
			r.Get("/by-code/{joinCode}", sessionqueries.HandleResolveJoinCode)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionqueries.HandleGetSession)
				r.Post("/join", sessioncommands.HandleJoinSession)
				r.Post("/deck", sessioncommands.HandleGenerateDeck)
				r.Get("/deck", sessionqueries.HandleGetDeck)
				r.Post("/swipe", sessioncommands.HandleSubmitSwipe)
				r.Get("/status", sessionqueries.HandleGetStatus)
				r.Get("/matches", sessionqueries.HandleGetMatches)
				r.Post("/load-more-confirm", sessioncommands.HandleConfirmLoadMore)
				r.Post("/restart-confirm", sessioncommands.HandleConfirmRestart)
				r.Post("/cancel", sessioncommands.HandleCancelSession)
			})
		})
	})

	server := http.Server{
		Addr:    net.JoinHostPort("", strconv.Itoa(config.Port)),
		Handler: router,
	}

	sweeperCtx, stopSweeper := context.WithCancel(baseCtx)
	go runExpirySweeper(sweeperCtx, config.Logger, config.SessionTTL)

	return &HTTPServer{
		server:      &server,
		db:          db,
		stopSweeper: stopSweeper,
	}, nil
}

func (s *HTTPServer) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop() error {
	s.stopSweeper()
	return s.server.Close()
}

func handleHealth(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			core.WriteResponse(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}

		core.WriteOK(w, r, map[string]string{"status": "ok"})
	}
}

// runExpirySweeper periodically transitions stale pending and active
// sessions to expired until the context is cancelled.
func runExpirySweeper(ctx context.Context, logger *zap.Logger, ttl time.Duration) {
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			command := sessioncommands.ExpireStaleSessionsCommand{TTL: ttl}
			response, err := mediator.Send[sessioncommands.ExpireStaleSessionsCommand, sessioncommands.ExpireStaleSessionsResponse](ctx, command)
			if err != nil {
				logger.Error("failed to expire stale sessions", zap.Error(err))
				continue
			}

			if response.Expired > 0 {
				logger.Info("expired stale sessions", zap.Int64("count", response.Expired))
			}
		}
	}
}
