package commands

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/nightswipe/api/internal/modules/core"
	"github.com/nightswipe/api/internal/modules/session/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/go-chi/chi"
)

type CancelSessionCommand struct {
	SessionID string `json:"-"`
	UserID    string `json:"-"`
}

func (c CancelSessionCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", c.SessionID)
	}

	if c.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", c.UserID)
	}

	return nil
}

func HandleCancelSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	command := CancelSessionCommand{
		SessionID: chi.URLParam(r, "id"),
		UserID:    core.CallerIdentity(ctx).UserID,
	}

	_, err := mediator.Send[CancelSessionCommand, core.Unit](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, map[string]string{"session_id": command.SessionID, "status": domain.StatusCancelled})
}

type CancelSessionCommandHandler struct {
	db *sql.DB
}

func NewCancelSessionCommandHandler(db *sql.DB) *CancelSessionCommandHandler {
	return &CancelSessionCommandHandler{db}
}

func (h *CancelSessionCommandHandler) Handle(
	ctx context.Context,
	request CancelSessionCommand,
) (core.Unit, error) {
	err := core.Tx(ctx, h.db, func(ctx context.Context, tx *sql.Tx) error {
		session, err := sessionForUpdate(ctx, tx, request.SessionID)
		if err != nil {
			return err
		}

		// Only the host may abort.
		if session.HostID != request.UserID {
			return core.NewCommandError(
				403,
				fmt.Errorf("caller is not the session host"),
				core.WithCode(core.CodeForbidden),
				core.WithReason("only the host can cancel a session"),
			)
		}

		if session.Terminal() {
			return core.NewCommandError(
				409,
				fmt.Errorf("session status is %s", session.Status),
				core.WithCode(core.CodeInvalidState),
				core.WithReason(fmt.Sprintf("session is already %s", session.Status)),
			)
		}

		const stmt = `
			UPDATE
				session
			SET
				status = $2, updated_at = $3
			WHERE
				id = $1;`
		_, err = tql.Exec(ctx, tx, stmt, request.SessionID, domain.StatusCancelled, time.Now().UTC())
		return err
	})
	if err != nil {
		if _, ok := err.(core.CommandError); ok {
			return core.Unit{}, err
		}
		return core.Unit{}, core.NewCommandError(500, err)
	}

	return core.Unit{}, nil
}
