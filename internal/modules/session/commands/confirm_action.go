package commands

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/nightswipe/api/internal/modules/core"
	"github.com/nightswipe/api/internal/modules/places"
	"github.com/nightswipe/api/internal/modules/session/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/tql"
	"github.com/go-chi/chi"
)

// ConfirmActionCommand is the shared "all members must agree" protocol
// behind both load-more and restart. Confirming is idempotent per
// caller; the caller whose confirmation completes the set advances the
// epoch and triggers exactly one deck regeneration.
type ConfirmActionCommand struct {
	SessionID string `json:"-"`
	UserID    string `json:"-"`
	Kind      string `json:"-"`
}

func (c ConfirmActionCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", c.SessionID)
	}

	if c.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", c.UserID)
	}

	if !domain.ValidConfirmationKind(c.Kind) {
		return fmt.Errorf("invalid Kind - '%s'", c.Kind)
	}

	return nil
}

type ConfirmActionResponse struct {
	AllConfirmed     bool     `json:"all_confirmed"`
	ConfirmedUsers   []string `json:"confirmed_users"`
	TotalUsers       int      `json:"total_users"`
	NewDeckGenerated bool     `json:"new_deck_generated"`
}

func HandleConfirmLoadMore(w http.ResponseWriter, r *http.Request) {
	handleConfirm(w, r, domain.KindLoadMore)
}

func HandleConfirmRestart(w http.ResponseWriter, r *http.Request) {
	handleConfirm(w, r, domain.KindRestart)
}

func handleConfirm(w http.ResponseWriter, r *http.Request, kind string) {
	ctx := r.Context()

	command := ConfirmActionCommand{
		SessionID: chi.URLParam(r, "id"),
		UserID:    core.CallerIdentity(ctx).UserID,
		Kind:      kind,
	}

	response, err := mediator.Send[ConfirmActionCommand, ConfirmActionResponse](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type ConfirmActionCommandHandler struct {
	db     *sql.DB
	venues places.Client
	apiKey string
}

func NewConfirmActionCommandHandler(db *sql.DB, venues places.Client, apiKey string) *ConfirmActionCommandHandler {
	return &ConfirmActionCommandHandler{db, venues, apiKey}
}

func (h *ConfirmActionCommandHandler) Handle(
	ctx context.Context,
	request ConfirmActionCommand,
) (ConfirmActionResponse, error) {
	var (
		response        ConfirmActionResponse
		advancedSession domain.Session
		completedSet    bool
	)

	err := core.Tx(ctx, h.db, func(ctx context.Context, tx *sql.Tx) error {
		session, err := sessionForUpdate(ctx, tx, request.SessionID)
		if err != nil {
			return err
		}

		if session.Terminal() {
			return core.NewCommandError(
				409,
				fmt.Errorf("session status is %s", session.Status),
				core.WithCode(core.CodeInvalidState),
				core.WithReason(fmt.Sprintf("session is %s", session.Status)),
			)
		}

		members, err := sessionMembers(ctx, tx, request.SessionID)
		if err != nil {
			return err
		}

		if !memberOf(members, request.UserID) {
			return errNotAMember
		}

		// Re-confirming is a no-op, not an error.
		const confirmStmt = `
			INSERT INTO
				confirmation (session_id, epoch, kind, user_id, confirmed_at)
			VALUES
				($1, $2, $3, $4, $5)
			ON CONFLICT DO NOTHING;`
		if _, err := tql.Exec(ctx, tx, confirmStmt, session.ID, session.Epoch, request.Kind, request.UserID, time.Now().UTC()); err != nil {
			return err
		}

		const confirmedQuery = `
			SELECT
				user_id
			FROM
				confirmation
			WHERE
				session_id = $1 AND epoch = $2 AND kind = $3
			ORDER BY
				confirmed_at;`
		confirmedUsers, err := tql.Query[string](ctx, tx, confirmedQuery, session.ID, session.Epoch, request.Kind)
		if err != nil {
			return err
		}

		response = ConfirmActionResponse{
			ConfirmedUsers: confirmedUsers,
			TotalUsers:     len(members),
		}

		confirmed := make(map[string]bool, len(confirmedUsers))
		for _, userID := range confirmedUsers {
			confirmed[userID] = true
		}

		for _, member := range members {
			if !confirmed[member.UserID] {
				return nil // still waiting
			}
		}

		response.AllConfirmed = true

		// The set is complete: advance the epoch under the row lock.
		// Prior-epoch confirmations and swipes become irrelevant to the
		// new epoch by virtue of the epoch tag - they are kept for audit.
		counterColumn := "load_more_count"
		if request.Kind == domain.KindRestart {
			counterColumn = "restart_count"
		}

		advanceStmt := fmt.Sprintf(`
			UPDATE
				session
			SET
				deck_seed = NULL, epoch = epoch + 1, %s = %s + 1, updated_at = $3
			WHERE
				id = $1 AND epoch = $2;`, counterColumn, counterColumn)
		result, err := tql.Exec(ctx, tx, advanceStmt, session.ID, session.Epoch, time.Now().UTC())
		if err != nil {
			return err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Another caller already advanced this epoch.
			return nil
		}

		completedSet = true
		advancedSession = session
		advancedSession.DeckSeed = nil
		advancedSession.Epoch = session.Epoch + 1

		return nil
	})
	if err != nil {
		if _, ok := err.(core.CommandError); ok {
			return ConfirmActionResponse{}, err
		}
		return ConfirmActionResponse{}, core.NewCommandError(500, err)
	}

	if !completedSet {
		return response, nil
	}

	// Regenerate immediately with the same host location; the fresh
	// timestamp yields a new seed and therefore a new shuffle. The
	// epoch-guarded seed write keeps this to one regeneration even if
	// two callers raced on the final confirmation.
	if _, _, err := generateForEpoch(ctx, h.db, h.venues, h.apiKey, advancedSession); err != nil {
		// The epoch has advanced; either member can retry deck
		// generation explicitly.
		return ConfirmActionResponse{}, err
	}

	response.NewDeckGenerated = true
	return response, nil
}
