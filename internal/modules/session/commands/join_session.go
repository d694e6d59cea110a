package commands

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
	"github.com/eskrenkovic/tql"
	"github.com/go-chi/chi"
)

type JoinSessionCommand struct {
	SessionID string `json:"-"`
	GuestID   string `json:"-"`
	JoinCode  string `json:"join_code"`
}

func (c JoinSessionCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", c.SessionID)
	}

	if c.GuestID == "" {
		return fmt.Errorf("invalid GuestID - '%s'", c.GuestID)
	}

	return nil
}

type MemberProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type JoinSessionResponse struct {
	SessionID string        `json:"session_id"`
	Status    string        `json:"status"`
	Host      MemberProfile `json:"host"`
	Guest     MemberProfile `json:"guest"`
}

func HandleJoinSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	command, err := core.RequestBody[JoinSessionCommand](r)
	if err != nil {
		core.WriteBadRequest(w, r, err.Error())
		return
	}
	command.SessionID = chi.URLParam(r, "id")
	command.GuestID = core.CallerIdentity(ctx).UserID

	response, err := mediator.Send[JoinSessionCommand, JoinSessionResponse](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type JoinSessionCommandHandler struct {
	db *sql.DB
}

func NewJoinSessionCommandHandler(db *sql.DB) *JoinSessionCommandHandler {
	return &JoinSessionCommandHandler{db}
}

func (h *JoinSessionCommandHandler) Handle(
	ctx context.Context,
	request JoinSessionCommand,
) (JoinSessionResponse, error) {
	var session domain.Session

	err := core.Tx(ctx, h.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		session, err = sessionForUpdate(ctx, tx, request.SessionID)
		if err != nil {
			return err
		}

		if request.JoinCode != "" && request.JoinCode != session.JoinCode {
			return core.NewCommandError(
				400,
				fmt.Errorf("join code mismatch"),
				core.WithCode(core.CodeInvalidJoinCode),
				core.WithReason("the join code provided is incorrect"),
			)
		}

		if !session.Joinable() {
			return core.NewCommandError(
				400,
				fmt.Errorf("session status is %s", session.Status),
				core.WithCode(core.CodeInvalidState),
				core.WithReason(fmt.Sprintf("session is %s and cannot be joined", session.Status)),
			)
		}

		if session.HostID == request.GuestID {
			return core.NewCommandError(
				400,
				fmt.Errorf("caller is the session host"),
				core.WithCode(core.CodeSelfJoin),
				core.WithReason("you are already the host of this session"),
			)
		}

		members, err := sessionMembers(ctx, tx, request.SessionID)
		if err != nil {
			return err
		}

		if len(members) >= domain.MaxMembers {
			return core.NewCommandError(
				400,
				fmt.Errorf("session already has %d members", len(members)),
				core.WithCode(core.CodeSessionFull),
				core.WithReason("this session already has 2 members"),
			)
		}

		if memberOf(members, request.GuestID) {
			return core.NewCommandError(
				400,
				fmt.Errorf("caller already joined"),
				core.WithCode(core.CodeAlreadyJoined),
				core.WithReason("you have already joined this session"),
			)
		}

		now := time.Now().UTC()

		const memberStmt = `
			INSERT INTO
				session_member (session_id, user_id, role, joined_at)
			VALUES
				($1, $2, $3, $4);`
		if _, err := tql.Exec(ctx, tx, memberStmt, request.SessionID, request.GuestID, domain.RoleGuest, now); err != nil {
			return err
		}

		const sessionStmt = `
			UPDATE
				session
			SET
				status = $2, updated_at = $3
			WHERE
				id = $1;`
		if _, err := tql.Exec(ctx, tx, sessionStmt, request.SessionID, domain.StatusActive, now); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		if _, ok := err.(core.CommandError); ok {
			return JoinSessionResponse{}, err
		}
		return JoinSessionResponse{}, core.NewCommandError(500, err)
	}

	return JoinSessionResponse{
		SessionID: session.ID,
		Status:    domain.StatusActive,
		Host: MemberProfile{
			ID:          session.HostID,
			DisplayName: profile.DisplayName(ctx, h.db, session.HostID),
		},
		Guest: MemberProfile{
			ID:          request.GuestID,
			DisplayName: profile.DisplayName(ctx, h.db, request.GuestID),
		},
	}, nil
}
