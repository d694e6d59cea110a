package queries

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/nightswipe/api/internal/modules/core"
	"github.com/nightswipe/api/internal/modules/profile"
	"github.com/nightswipe/api/internal/modules/session/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/go-chi/chi"
)

type GetSessionQuery struct {
	SessionID string
	UserID    string
}

func (q GetSessionQuery) Validate() error {
	if q.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", q.SessionID)
	}

	if q.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", q.UserID)
	}

	return nil
}

type SessionMemberView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type HostLocationView struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type SessionView struct {
	SessionID    string             `json:"session_id"`
	Status       string             `json:"status"`
	JoinCode     string             `json:"join_code"`
	Host         *SessionMemberView `json:"host"`
	Guest        *SessionMemberView `json:"guest"`
	CreatedAt    time.Time          `json:"created_at"`
	HostLocation HostLocationView   `json:"host_location"`
}

func HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := GetSessionQuery{
		SessionID: chi.URLParam(r, "id"),
		UserID:    core.CallerIdentity(ctx).UserID,
	}

	response, err := mediator.Send[GetSessionQuery, SessionView](ctx, query)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type GetSessionQueryHandler struct {
	db *sql.DB
}

func NewGetSessionQueryHandler(db *sql.DB) *GetSessionQueryHandler {
	return &GetSessionQueryHandler{db}
}

func (h *GetSessionQueryHandler) Handle(
	ctx context.Context,
	request GetSessionQuery,
) (SessionView, error) {
	session, err := sessionByID(ctx, h.db, request.SessionID)
	if err != nil {
		return SessionView{}, err
	}

	members, err := requireMember(ctx, h.db, request.SessionID, request.UserID)
	if err != nil {
		return SessionView{}, err
	}

	view := SessionView{
		SessionID: session.ID,
		Status:    session.Status,
		JoinCode:  session.JoinCode,
		CreatedAt: session.CreatedAt,
		HostLocation: HostLocationView{
			Lat: session.HostLat,
			Lng: session.HostLng,
		},
	}

	for _, member := range members {
		memberView := &SessionMemberView{
			ID:          member.UserID,
			DisplayName: profile.DisplayName(ctx, h.db, member.UserID),
		}

		switch member.Role {
		case domain.RoleHost:
			view.Host = memberView
		case domain.RoleGuest:
			view.Guest = memberView
		}
	}

	return view, nil
}
