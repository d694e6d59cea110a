package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nightswipe/api/internal/modules/core"
	"github.com/nightswipe/api/internal/modules/session/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

type SubmitSwipeCommand struct {
	SessionID string `json:"-"`
	UserID    string `json:"-"`
	PlaceID   string `json:"place_id"`
	Direction string `json:"direction"`
}

func (c SubmitSwipeCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", c.SessionID)
	}

	if c.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", c.UserID)
	}

	if c.PlaceID == "" {
		return fmt.Errorf("invalid PlaceID - '%s'", c.PlaceID)
	}

	if !domain.ValidDirection(c.Direction) {
		return fmt.Errorf("invalid Direction - '%s', must be left or right", c.Direction)
	}

	return nil
}

type SubmitSwipeResponse struct {
	Swipe     domain.Swipe
	Duplicate bool
}

func HandleSubmitSwipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	command, err := core.RequestBody[SubmitSwipeCommand](r)
	if err != nil {
		core.WriteBadRequest(w, r, err.Error())
		return
	}
	command.SessionID = chi.URLParam(r, "id")
	command.UserID = core.CallerIdentity(ctx).UserID

	response, err := mediator.Send[SubmitSwipeCommand, SubmitSwipeResponse](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	// A duplicate is success-with-conflict: the already stored swipe is
	// returned so the client can reconcile, never a second row.
	if response.Duplicate {
		core.WriteResponse(w, r, 409, map[string]interface{}{
			"error":   core.CodeDuplicateSwipe,
			"message": "you have already swiped on this place",
			"swipe":   response.Swipe,
		})
		return
	}

	core.WriteOK(w, r, response.Swipe)
}

type SubmitSwipeCommandHandler struct {
	db *sql.DB
}

func NewSubmitSwipeCommandHandler(db *sql.DB) *SubmitSwipeCommandHandler {
	return &SubmitSwipeCommandHandler{db}
}

func (h *SubmitSwipeCommandHandler) Handle(
	ctx context.Context,
	request SubmitSwipeCommand,
) (SubmitSwipeResponse, error) {
	session, err := sessionByID(ctx, h.db, request.SessionID)
	if err != nil {
		return SubmitSwipeResponse{}, err
	}

	if _, err := requireMember(ctx, h.db, request.SessionID, request.UserID); err != nil {
		return SubmitSwipeResponse{}, err
	}

	const placeQuery = `
		SELECT
			count(*)
		FROM
			deck_place
		WHERE
			session_id = $1 AND epoch = $2 AND place_id = $3;`
	placeCount, err := tql.QueryFirst[int](ctx, h.db, placeQuery, request.SessionID, session.Epoch, request.PlaceID)
	if err != nil {
		return SubmitSwipeResponse{}, core.NewCommandError(500, err)
	}

	if placeCount == 0 {
		return SubmitSwipeResponse{}, core.NewCommandError(
			400,
			fmt.Errorf("place %s is not in the session's current deck", request.PlaceID),
			core.WithCode(core.CodeInvalidPlace),
			core.WithReason("place_id does not exist in this session's deck"),
		)
	}

	if existing, found, err := h.existingSwipe(ctx, session, request); err != nil {
		return SubmitSwipeResponse{}, err
	} else if found {
		return SubmitSwipeResponse{Swipe: existing, Duplicate: true}, nil
	}

	swipe := domain.Swipe{
		ID:        uuid.NewString(),
		SessionID: request.SessionID,
		Epoch:     session.Epoch,
		UserID:    request.UserID,
		PlaceID:   request.PlaceID,
		Direction: request.Direction,
		SwipedAt:  time.Now().UTC(),
	}

	const stmt = `
		INSERT INTO
			swipe (id, session_id, epoch, user_id, place_id, direction, swiped_at)
		VALUES
			(:id, :session_id, :epoch, :user_id, :place_id, :direction, :swiped_at);`
	if _, err := tql.Exec(ctx, h.db, stmt, swipe); err != nil {
		// Lost a race against the same caller re-submitting - surface
		// the row that won.
		if isUniqueViolation(err) {
			existing, found, lookupErr := h.existingSwipe(ctx, session, request)
			if lookupErr != nil {
				return SubmitSwipeResponse{}, lookupErr
			}
			if found {
				return SubmitSwipeResponse{Swipe: existing, Duplicate: true}, nil
			}
		}
		return SubmitSwipeResponse{}, core.NewCommandError(500, err)
	}

	return SubmitSwipeResponse{Swipe: swipe}, nil
}

func (h *SubmitSwipeCommandHandler) existingSwipe(
	ctx context.Context,
	session domain.Session,
	request SubmitSwipeCommand,
) (domain.Swipe, bool, error) {
	const query = `
		SELECT
			*
		FROM
			swipe
		WHERE
			session_id = $1 AND epoch = $2 AND user_id = $3 AND place_id = $4;`

	swipe, err := tql.QueryFirst[domain.Swipe](ctx, h.db, query, request.SessionID, session.Epoch, request.UserID, request.PlaceID)
	switch {
	case err != nil && errors.Is(err, sql.ErrNoRows):
		return domain.Swipe{}, false, nil
	case err != nil:
		return domain.Swipe{}, false, core.NewCommandError(500, err)
	}

	return swipe, true, nil
}
