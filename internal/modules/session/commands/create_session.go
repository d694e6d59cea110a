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
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Bounded retry on join-code collision. The code space makes collisions
// nearly impossible; the unique index makes them impossible to admit.
const joinCodeAttempts = 3

type CreateSessionCommand struct {
	HostID  string  `json:"-"`
	HostLat float64 `json:"host_lat"`
	HostLng float64 `json:"host_lng"`
}

func (c CreateSessionCommand) Validate() error {
	if c.HostID == "" {
		return fmt.Errorf("invalid HostID - '%s'", c.HostID)
	}

	if !domain.ValidCoordinates(c.HostLat, c.HostLng) {
		return fmt.Errorf("invalid coordinates - lat %v lng %v", c.HostLat, c.HostLng)
	}

	return nil
}

type HostLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type CreateSessionResponse struct {
	SessionID    string       `json:"session_id"`
	JoinCode     string       `json:"join_code"`
	SessionURL   string       `json:"session_url"`
	HostLocation HostLocation `json:"host_location"`
	Status       string       `json:"status"`
}

func HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	command, err := core.RequestBody[CreateSessionCommand](r)
	if err != nil {
		core.WriteBadRequest(w, r, err.Error())
		return
	}
	command.HostID = core.CallerIdentity(r.Context()).UserID

	response, err := mediator.Send[CreateSessionCommand, CreateSessionResponse](r.Context(), command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	location := fmt.Sprintf("/api/v1/session/%s", response.SessionID)
	core.WriteCreated(w, r, location, response)
}

type CreateSessionCommandHandler struct {
	db          *sql.DB
	joinURLBase string
}

func NewCreateSessionCommandHandler(db *sql.DB, joinURLBase string) *CreateSessionCommandHandler {
	return &CreateSessionCommandHandler{db, joinURLBase}
}

func (h *CreateSessionCommandHandler) Handle(
	ctx context.Context,
	request CreateSessionCommand,
) (CreateSessionResponse, error) {
	var session domain.Session

	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		now := time.Now().UTC()
		session = domain.Session{
			ID:        uuid.NewString(),
			HostID:    request.HostID,
			JoinCode:  domain.NewJoinCode(),
			HostLat:   request.HostLat,
			HostLng:   request.HostLng,
			Status:    domain.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err := core.Tx(ctx, h.db, func(ctx context.Context, tx *sql.Tx) error {
			const sessionStmt = `
				INSERT INTO
					session (id, host_id, join_code, host_lat, host_lng, status, created_at, updated_at)
				VALUES
					(:id, :host_id, :join_code, :host_lat, :host_lng, :status, :created_at, :updated_at);`
			if _, err := tql.Exec(ctx, tx, sessionStmt, session); err != nil {
				return err
			}

			const memberStmt = `
				INSERT INTO
					session_member (session_id, user_id, role, joined_at)
				VALUES
					($1, $2, $3, $4);`
			_, err := tql.Exec(ctx, tx, memberStmt, session.ID, session.HostID, domain.RoleHost, now)
			return err
		})
		if err != nil {
			if isUniqueViolation(err) && attempt < joinCodeAttempts-1 {
				continue
			}
			return CreateSessionResponse{}, core.NewCommandError(500, err)
		}

		break
	}

	return CreateSessionResponse{
		SessionID:    session.ID,
		JoinCode:     session.JoinCode,
		SessionURL:   fmt.Sprintf("%s/%s", h.joinURLBase, session.JoinCode),
		HostLocation: HostLocation{Lat: session.HostLat, Lng: session.HostLng},
		Status:       session.Status,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
