package profile

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nightswipe/api/internal/modules/core"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
)

type UpsertProfileCommand struct {
	UserID      string `json:"-"`
	DisplayName string `json:"display_name"`
}

func (c UpsertProfileCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", c.UserID)
	}

	if strings.TrimSpace(c.DisplayName) == "" {
		return fmt.Errorf("invalid DisplayName - '%s'", c.DisplayName)
	}

	return nil
}

func HandleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	command, err := core.RequestBody[UpsertProfileCommand](r)
	if err != nil {
		core.WriteBadRequest(w, r, err.Error())
		return
	}
	command.UserID = core.CallerIdentity(r.Context()).UserID

	response, err := mediator.Send[UpsertProfileCommand, Profile](r.Context(), command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type UpsertProfileCommandHandler struct {
	db *sql.DB
}

func NewUpsertProfileCommandHandler(db *sql.DB) *UpsertProfileCommandHandler {
	return &UpsertProfileCommandHandler{db}
}

func (h *UpsertProfileCommandHandler) Handle(
	ctx context.Context,
	request UpsertProfileCommand,
) (Profile, error) {
	p := Profile{
		UserID:      request.UserID,
		DisplayName: strings.TrimSpace(request.DisplayName),
		UpdatedAt:   time.Now().UTC(),
	}

	const stmt = `
		INSERT INTO
			user_profile (user_id, display_name, updated_at)
		VALUES
			(:user_id, :display_name, :updated_at)
		ON CONFLICT (user_id) DO UPDATE
		SET
			display_name = EXCLUDED.display_name,
			updated_at = EXCLUDED.updated_at;`
	if _, err := tql.Exec(ctx, h.db, stmt, p); err != nil {
		return Profile{}, core.NewCommandError(500, err)
	}

	return p, nil
}
