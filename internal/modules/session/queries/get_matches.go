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

type GetMatchesQuery struct {
	SessionID string
	UserID    string
}

func (q GetMatchesQuery) Validate() error {
	if q.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", q.SessionID)
	}

	if q.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", q.UserID)
	}

	return nil
}

type MatchesView struct {
	SessionID  string         `json:"session_id"`
	Matches    []domain.Place `json:"matches"`
	MatchCount int            `json:"match_count"`
}

func HandleGetMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := GetMatchesQuery{
		SessionID: chi.URLParam(r, "id"),
		UserID:    core.CallerIdentity(ctx).UserID,
	}

	response, err := mediator.Send[GetMatchesQuery, MatchesView](ctx, query)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type GetMatchesQueryHandler struct {
	db *sql.DB
}

func NewGetMatchesQueryHandler(db *sql.DB) *GetMatchesQueryHandler {
	return &GetMatchesQueryHandler{db}
}

func (h *GetMatchesQueryHandler) Handle(
	ctx context.Context,
	request GetMatchesQuery,
) (MatchesView, error) {
	session, err := sessionByID(ctx, h.db, request.SessionID)
	if err != nil {
		return MatchesView{}, err
	}

	members, err := requireMember(ctx, h.db, request.SessionID, request.UserID)
	if err != nil {
		return MatchesView{}, err
	}

	deckSize, swipeCounts, err := epochProgress(ctx, h.db, session)
	if err != nil {
		return MatchesView{}, err
	}

	if deckSize == 0 {
		return MatchesView{}, core.NewCommandError(
			http.StatusConflict,
			fmt.Errorf("session %s has no deck", session.ID),
			core.WithCode(core.CodeInvalidState),
			core.WithReason("deck has not been generated yet"),
		)
	}

	for _, member := range members {
		if swipeCounts[member.UserID] < deckSize {
			return MatchesView{}, core.NewCommandError(
				http.StatusConflict,
				fmt.Errorf("member %s has not finished swiping", member.UserID),
				core.WithCode(core.CodeInvalidState),
				core.WithReason("not all members have finished swiping"),
			)
		}
	}

	// Places every member right-swiped in the current epoch, in deck
	// order. Zero rows is a legitimate outcome.
	const query = `
		SELECT
			dp.*
		FROM
			deck_place dp
		JOIN
			swipe s
		ON
			s.session_id = dp.session_id
			AND s.epoch = dp.epoch
			AND s.place_id = dp.place_id
		WHERE
			dp.session_id = $1
			AND dp.epoch = $2
			AND s.direction = $3
		GROUP BY
			dp.session_id, dp.epoch, dp.place_id
		HAVING
			count(DISTINCT s.user_id) = $4
		ORDER BY
			dp.card_order;`
	matches, err := tql.Query[domain.Place](
		ctx,
		h.db,
		query,
		session.ID,
		session.Epoch,
		domain.DirectionRight,
		len(members),
	)
	if err != nil {
		return MatchesView{}, core.NewCommandError(500, err)
	}

	return MatchesView{
		SessionID:  session.ID,
		Matches:    matches,
		MatchCount: len(matches),
	}, nil
}
