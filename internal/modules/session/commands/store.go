package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nightswipe/api/internal/modules/core"
	"github.com/nightswipe/api/internal/modules/session/domain"

	"github.com/eskrenkovic/tql"
)

var errSessionNotFound = core.NewCommandError(
	404,
	fmt.Errorf("session does not exist"),
	core.WithCode(core.CodeNotFound),
	core.WithReason("session does not exist"),
)

var errNotAMember = core.NewCommandError(
	403,
	fmt.Errorf("caller is not a member of this session"),
	core.WithCode(core.CodeForbidden),
	core.WithReason("you are not a member of this session"),
)

func sessionByID(ctx context.Context, q tql.Querier, sessionID string) (domain.Session, error) {
	const query = `
		SELECT
			*
		FROM
			session
		WHERE
			id = $1;`

	session, err := tql.QueryFirst[domain.Session](ctx, q, query, sessionID)
	switch {
	case err != nil && errors.Is(err, sql.ErrNoRows):
		return domain.Session{}, errSessionNotFound
	case err != nil:
		return domain.Session{}, core.NewCommandError(500, err)
	}

	return session, nil
}

// sessionForUpdate locks the session row for the remainder of the
// transaction. Every mutation conditions on the state observed under
// this lock.
func sessionForUpdate(ctx context.Context, tx *sql.Tx, sessionID string) (domain.Session, error) {
	const query = `
		SELECT
			*
		FROM
			session
		WHERE
			id = $1
		FOR UPDATE;`

	session, err := tql.QueryFirst[domain.Session](ctx, tx, query, sessionID)
	switch {
	case err != nil && errors.Is(err, sql.ErrNoRows):
		return domain.Session{}, errSessionNotFound
	case err != nil:
		return domain.Session{}, core.NewCommandError(500, err)
	}

	return session, nil
}

func sessionMembers(ctx context.Context, q tql.Querier, sessionID string) ([]domain.Member, error) {
	const query = `
		SELECT
			*
		FROM
			session_member
		WHERE
			session_id = $1
		ORDER BY
			joined_at;`

	members, err := tql.Query[domain.Member](ctx, q, query, sessionID)
	if err != nil {
		return nil, core.NewCommandError(500, err)
	}

	return members, nil
}

func memberOf(members []domain.Member, userID string) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// requireMember returns the session members after verifying the caller
// is one of them.
func requireMember(ctx context.Context, q tql.Querier, sessionID, userID string) ([]domain.Member, error) {
	members, err := sessionMembers(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}

	if !memberOf(members, userID) {
		return nil, errNotAMember
	}

	return members, nil
}
