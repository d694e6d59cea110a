package queries

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/nightswipe/api/internal/modules/core"
	"github.com/nightswipe/api/internal/modules/session/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/go-chi/chi"
)

type GetDeckQuery struct {
	SessionID string
	UserID    string
}

func (q GetDeckQuery) Validate() error {
	if q.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", q.SessionID)
	}

	if q.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", q.UserID)
	}

	return nil
}

type DeckView struct {
	SessionID  string         `json:"session_id"`
	Deck       []domain.Place `json:"deck"`
	DeckSeed   string         `json:"deck_seed"`
	TotalCount int            `json:"total_count"`
}

func HandleGetDeck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := GetDeckQuery{
		SessionID: chi.URLParam(r, "id"),
		UserID:    core.CallerIdentity(ctx).UserID,
	}

	response, err := mediator.Send[GetDeckQuery, DeckView](ctx, query)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type GetDeckQueryHandler struct {
	db *sql.DB
}

func NewGetDeckQueryHandler(db *sql.DB) *GetDeckQueryHandler {
	return &GetDeckQueryHandler{db}
}

func (h *GetDeckQueryHandler) Handle(
	ctx context.Context,
	request GetDeckQuery,
) (DeckView, error) {
	session, err := sessionByID(ctx, h.db, request.SessionID)
	if err != nil {
		return DeckView{}, err
	}

	if _, err := requireMember(ctx, h.db, request.SessionID, request.UserID); err != nil {
		return DeckView{}, err
	}

	if session.DeckSeed == nil {
		return DeckView{}, core.NewCommandError(
			404,
			fmt.Errorf("deck has not been generated for this session"),
			core.WithCode(core.CodeNotFound),
			core.WithReason("deck has not been generated for this session yet"),
		)
	}

	const query = `
		SELECT
			*
		FROM
			deck_place
		WHERE
			session_id = $1 AND epoch = $2
		ORDER BY
			card_order;`
	deck, err := tql.Query[domain.Place](ctx, h.db, query, request.SessionID, session.Epoch)
	if err != nil {
		return DeckView{}, core.NewCommandError(500, err)
	}

	return DeckView{
		SessionID:  session.ID,
		Deck:       deck,
		DeckSeed:   *session.DeckSeed,
		TotalCount: len(deck),
	}, nil
}
