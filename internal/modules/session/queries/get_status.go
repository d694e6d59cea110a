package queries

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/nightswipe/api/internal/modules/core"
	"github.com/nightswipe/api/internal/modules/profile"
	"github.com/nightswipe/api/internal/modules/session/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/go-chi/chi"
)

type GetStatusQuery struct {
	SessionID string
	UserID    string
}

func (q GetStatusQuery) Validate() error {
	if q.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", q.SessionID)
	}

	if q.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", q.UserID)
	}

	return nil
}

type MemberStatusView struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	SwipesCount int    `json:"swipes_count"`
	DeckSize    int    `json:"deck_size"`
	Finished    bool   `json:"finished"`
}

// StatusView is recomputed on every read rather than stored, so a failed
// swipe write can never leave a stale completion flag behind.
type StatusView struct {
	SessionID string             `json:"session_id"`
	Status    string             `json:"status"`
	Users     []MemberStatusView `json:"users"`
}

func HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := GetStatusQuery{
		SessionID: chi.URLParam(r, "id"),
		UserID:    core.CallerIdentity(ctx).UserID,
	}

	response, err := mediator.Send[GetStatusQuery, StatusView](ctx, query)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type GetStatusQueryHandler struct {
	db *sql.DB
}

func NewGetStatusQueryHandler(db *sql.DB) *GetStatusQueryHandler {
	return &GetStatusQueryHandler{db}
}

func (h *GetStatusQueryHandler) Handle(
	ctx context.Context,
	request GetStatusQuery,
) (StatusView, error) {
	session, err := sessionByID(ctx, h.db, request.SessionID)
	if err != nil {
		return StatusView{}, err
	}

	members, err := requireMember(ctx, h.db, request.SessionID, request.UserID)
	if err != nil {
		return StatusView{}, err
	}

	deckSize, swipeCounts, err := epochProgress(ctx, h.db, session)
	if err != nil {
		return StatusView{}, err
	}

	view := StatusView{
		SessionID: session.ID,
		Users:     make([]MemberStatusView, 0, len(members)),
	}

	allFinished := true
	for _, member := range members {
		swipesCount := swipeCounts[member.UserID]
		finished := deckSize > 0 && swipesCount >= deckSize
		if !finished {
			allFinished = false
		}

		view.Users = append(view.Users, MemberStatusView{
			UserID:      member.UserID,
			DisplayName: profile.DisplayName(ctx, h.db, member.UserID),
			Role:        member.Role,
			SwipesCount: swipesCount,
			DeckSize:    deckSize,
			Finished:    finished,
		})
	}

	view.Status = domain.StatusActive
	if allFinished {
		view.Status = domain.StatusCompleted
	}

	return view, nil
}

type memberSwipeCount struct {
	UserID string `db:"user_id"`
	Count  int    `db:"count"`
}

// epochProgress returns the current deck size and per-member swipe
// counts, both scoped to the session's current epoch so prior-epoch
// swipes never count toward completion.
func epochProgress(
	ctx context.Context,
	db *sql.DB,
	session domain.Session,
) (int, map[string]int, error) {
	const deckSizeQuery = `
		SELECT
			count(*)
		FROM
			deck_place
		WHERE
			session_id = $1 AND epoch = $2;`
	deckSize, err := tql.QueryFirst[int](ctx, db, deckSizeQuery, session.ID, session.Epoch)
	if err != nil {
		return 0, nil, core.NewCommandError(500, err)
	}

	const swipesQuery = `
		SELECT
			user_id, count(*) AS count
		FROM
			swipe
		WHERE
			session_id = $1 AND epoch = $2
		GROUP BY
			user_id;`
	counts, err := tql.Query[memberSwipeCount](ctx, db, swipesQuery, session.ID, session.Epoch)
	if err != nil {
		return 0, nil, core.NewCommandError(500, err)
	}

	swipeCounts := make(map[string]int, len(counts))
	for _, c := range counts {
		swipeCounts[c.UserID] = c.Count
	}

	return deckSize, swipeCounts, nil
}
