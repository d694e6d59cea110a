package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nightswipe/api/internal/modules/core"
	"github.com/nightswipe/api/internal/modules/places"
	"github.com/nightswipe/api/internal/modules/session/domain"
	"github.com/nightswipe/api/internal/modules/shuffle"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/go-chi/chi"
)

const (
	initialRadiusMeters  = 5_000
	expandedRadiusMeters = 10_000
	sparseResultCutoff   = 20
	maxDeckSize          = 25
)

type GenerateDeckCommand struct {
	SessionID string `json:"-"`
	UserID    string `json:"-"`
}

func (c GenerateDeckCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", c.SessionID)
	}

	if c.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", c.UserID)
	}

	return nil
}

type GenerateDeckResponse struct {
	SessionID  string         `json:"session_id"`
	Deck       []domain.Place `json:"deck"`
	DeckSeed   string         `json:"deck_seed"`
	TotalCount int            `json:"total_count"`
}

func HandleGenerateDeck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	command := GenerateDeckCommand{
		SessionID: chi.URLParam(r, "id"),
		UserID:    core.CallerIdentity(ctx).UserID,
	}

	response, err := mediator.Send[GenerateDeckCommand, GenerateDeckResponse](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type GenerateDeckCommandHandler struct {
	db     *sql.DB
	venues places.Client
	apiKey string
}

func NewGenerateDeckCommandHandler(db *sql.DB, venues places.Client, apiKey string) *GenerateDeckCommandHandler {
	return &GenerateDeckCommandHandler{db, venues, apiKey}
}

func (h *GenerateDeckCommandHandler) Handle(
	ctx context.Context,
	request GenerateDeckCommand,
) (GenerateDeckResponse, error) {
	session, err := sessionByID(ctx, h.db, request.SessionID)
	if err != nil {
		return GenerateDeckResponse{}, err
	}

	if _, err := requireMember(ctx, h.db, request.SessionID, request.UserID); err != nil {
		return GenerateDeckResponse{}, err
	}

	if session.DeckSeed != nil {
		return GenerateDeckResponse{}, core.NewCommandError(
			409,
			fmt.Errorf("deck already generated for this session"),
			core.WithCode(core.CodeInvalidState),
			core.WithReason("this session already has a deck"),
		)
	}

	seed, deck, err := generateForEpoch(ctx, h.db, h.venues, h.apiKey, session)
	if err != nil {
		return GenerateDeckResponse{}, err
	}

	return GenerateDeckResponse{
		SessionID:  session.ID,
		Deck:       deck,
		DeckSeed:   seed,
		TotalCount: len(deck),
	}, nil
}

// generateForEpoch runs the full deck pipeline for the session's current
// epoch: venue search with one radius-expansion retry, normalization,
// truncation, seeded shuffle, and an atomic persist guarded so only one
// caller can ever attach a deck to an epoch.
func generateForEpoch(
	ctx context.Context,
	db *sql.DB,
	venues places.Client,
	apiKey string,
	session domain.Session,
) (string, []domain.Place, error) {
	rawVenues, err := venues.Nearby(ctx, session.HostLat, session.HostLng, initialRadiusMeters)
	if err != nil {
		return "", nil, upstreamError(err)
	}

	// Sparse results: retry once with a wider radius. The second result
	// set replaces the first, it is not merged.
	if len(rawVenues) < sparseResultCutoff {
		rawVenues, err = venues.Nearby(ctx, session.HostLat, session.HostLng, expandedRadiusMeters)
		if err != nil {
			return "", nil, upstreamError(err)
		}
	}

	if len(rawVenues) == 0 {
		return "", nil, core.NewCommandError(
			404,
			fmt.Errorf("no venues found near host location"),
			core.WithCode(core.CodeNoResultsFound),
			core.WithReason("no restaurants, bars, or cafes found in your area"),
		)
	}

	normalized := core.Map(rawVenues, func(v places.RawVenue) places.Place {
		return places.Normalize(v, session.HostLat, session.HostLng, apiKey)
	})

	// Truncation happens before shuffling, in provider-returned order.
	if len(normalized) > maxDeckSize {
		normalized = normalized[:maxDeckSize]
	}

	seed := domain.NewDeckSeed(session.HostLat, session.HostLng, time.Now())
	shuffled := shuffle.Deterministic(normalized, seed)

	deck := make([]domain.Place, 0, len(shuffled))
	for i, p := range shuffled {
		deck = append(deck, domain.Place{
			SessionID:   session.ID,
			Epoch:       session.Epoch,
			PlaceID:     p.PlaceID,
			Name:        p.Name,
			PhotoURL:    p.PhotoURL,
			Category:    p.Category,
			Rating:      p.Rating,
			ReviewCount: p.ReviewCount,
			Address:     p.Address,
			DistanceKm:  p.DistanceKm,
			CardOrder:   i,
		})
	}

	err = core.Tx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		// Conditional on the seed still being unset for this epoch -
		// a concurrent generation for the same epoch loses here and the
		// whole transaction rolls back.
		const seedStmt = `
			UPDATE
				session
			SET
				deck_seed = $2, updated_at = $3
			WHERE
				id = $1 AND epoch = $4 AND deck_seed IS NULL;`
		result, err := tql.Exec(ctx, tx, seedStmt, session.ID, seed, time.Now().UTC(), session.Epoch)
		if err != nil {
			return err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return core.NewCommandError(
				409,
				fmt.Errorf("deck already generated for this session"),
				core.WithCode(core.CodeInvalidState),
				core.WithReason("this session already has a deck"),
			)
		}

		const placeStmt = `
			INSERT INTO
				deck_place (session_id, epoch, place_id, name, photo_url, category, rating, review_count, address, distance_km, card_order)
			VALUES
				(:session_id, :epoch, :place_id, :name, :photo_url, :category, :rating, :review_count, :address, :distance_km, :card_order);`
		for _, place := range deck {
			if _, err := tql.Exec(ctx, tx, placeStmt, place); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if _, ok := err.(core.CommandError); ok {
			return "", nil, err
		}
		return "", nil, core.NewCommandError(500, err)
	}

	return seed, deck, nil
}

func upstreamError(err error) error {
	if errors.Is(err, places.ErrRateLimited) {
		return core.NewCommandError(
			429,
			err,
			core.WithCode(core.CodeUpstreamUnavailable),
			core.WithReason("venue provider quota exceeded, try again later"),
		)
	}

	return core.NewCommandError(
		502,
		err,
		core.WithCode(core.CodeUpstreamUnavailable),
		core.WithReason("venue provider is unavailable"),
	)
}
