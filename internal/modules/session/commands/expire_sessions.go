package commands

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nightswipe/api/internal/modules/core"
	"github.com/nightswipe/api/internal/modules/session/domain"

	"github.com/eskrenkovic/tql"
)

// ExpireStaleSessionsCommand flips sessions that have seen no activity
// within the TTL to expired. Run periodically from the composition root.
// Expiry is a status transition only - rows are never removed.
type ExpireStaleSessionsCommand struct {
	TTL time.Duration
}

func (c ExpireStaleSessionsCommand) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("invalid TTL - %s", c.TTL)
	}

	return nil
}

type ExpireStaleSessionsResponse struct {
	Expired int64
}

type ExpireStaleSessionsCommandHandler struct {
	db *sql.DB
}

func NewExpireStaleSessionsCommandHandler(db *sql.DB) *ExpireStaleSessionsCommandHandler {
	return &ExpireStaleSessionsCommandHandler{db}
}

func (h *ExpireStaleSessionsCommandHandler) Handle(
	ctx context.Context,
	request ExpireStaleSessionsCommand,
) (ExpireStaleSessionsResponse, error) {
	cutoff := time.Now().UTC().Add(-request.TTL)

	const stmt = `
		UPDATE
			session
		SET
			status = $1, updated_at = $2
		WHERE
			status IN ($3, $4) AND updated_at < $5;`
	result, err := tql.Exec(
		ctx,
		h.db,
		stmt,
		domain.StatusExpired,
		time.Now().UTC(),
		domain.StatusPending,
		domain.StatusActive,
		cutoff,
	)
	if err != nil {
		return ExpireStaleSessionsResponse{}, core.NewCommandError(500, err)
	}

	expired, err := result.RowsAffected()
	if err != nil {
		return ExpireStaleSessionsResponse{}, core.NewCommandError(500, err)
	}

	return ExpireStaleSessionsResponse{Expired: expired}, nil
}
