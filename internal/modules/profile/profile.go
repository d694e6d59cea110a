package profile

import (
	"context"
	"time"

	"github.com/eskrenkovic/tql"
)

// UnknownDisplayName is returned when a user has no stored profile.
const UnknownDisplayName = "Unknown"

type Profile struct {
	UserID      string    `db:"user_id" json:"user_id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName looks up a user's display name, falling back to
// UnknownDisplayName when no profile exists.
func DisplayName(ctx context.Context, q tql.Querier, userID string) string {
	const query = `
		SELECT
			display_name
		FROM
			user_profile
		WHERE
			user_id = $1;`

	name, err := tql.QueryFirstOrDefault[string](ctx, q, UnknownDisplayName, query, userID)
	if err != nil || name == "" {
		return UnknownDisplayName
	}

	return name
}
