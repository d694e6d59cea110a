package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/nightswipe/api/internal/modules/core"
	"github.com/nightswipe/api/internal/modules/profile"
	"github.com/nightswipe/api/internal/modules/session/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/go-chi/chi"
)

// ResolveJoinCodeQuery is the guest deep-link flow: look a session up by
// its join code before becoming a member.
type ResolveJoinCodeQuery struct {
	JoinCode string
}

func (q ResolveJoinCodeQuery) Validate() error {
	if q.JoinCode == "" {
		return fmt.Errorf("invalid JoinCode - '%s'", q.JoinCode)
	}

	return nil
}

type ResolveJoinCodeResponse struct {
	SessionID string            `json:"session_id"`
	JoinCode  string            `json:"join_code"`
	Status    string            `json:"status"`
	Host      SessionMemberView `json:"host"`
}

func HandleResolveJoinCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := ResolveJoinCodeQuery{JoinCode: chi.URLParam(r, "joinCode")}

	response, err := mediator.Send[ResolveJoinCodeQuery, ResolveJoinCodeResponse](ctx, query)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type ResolveJoinCodeQueryHandler struct {
	db *sql.DB
}

func NewResolveJoinCodeQueryHandler(db *sql.DB) *ResolveJoinCodeQueryHandler {
	return &ResolveJoinCodeQueryHandler{db}
}

func (h *ResolveJoinCodeQueryHandler) Handle(
	ctx context.Context,
	request ResolveJoinCodeQuery,
) (ResolveJoinCodeResponse, error) {
	// Terminal sessions release their code for reuse, so only joinable
	// sessions are candidates here.
	const query = `
		SELECT
			*
		FROM
			session
		WHERE
			join_code = $1 AND status IN ($2, $3);`

	session, err := tql.QueryFirst[domain.Session](ctx, h.db, query, request.JoinCode, domain.StatusPending, domain.StatusActive)
	switch {
	case err != nil && errors.Is(err, sql.ErrNoRows):
		return ResolveJoinCodeResponse{}, core.NewCommandError(
			404,
			fmt.Errorf("no session found with this join code"),
			core.WithCode(core.CodeNotFound),
			core.WithReason("no session found with this join code"),
		)
	case err != nil:
		return ResolveJoinCodeResponse{}, core.NewCommandError(500, err)
	}

	return ResolveJoinCodeResponse{
		SessionID: session.ID,
		JoinCode:  session.JoinCode,
		Status:    session.Status,
		Host: SessionMemberView{
			ID:          session.HostID,
			DisplayName: profile.DisplayName(ctx, h.db, session.HostID),
		},
	}, nil
}
