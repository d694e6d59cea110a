package core

import "context"

type ContextKey string

const IdentityContextKey ContextKey = "identity"

// Identity is the verified caller identity placed into the request context
// by the authentication middleware. The engine trusts it completely.
type Identity struct {
	UserID string
}

func CallerIdentity(ctx context.Context) Identity {
	rawVal := ctx.Value(IdentityContextKey)
	if rawVal == nil {
		return Identity{}
	}

	identity, ok := rawVal.(Identity)
	if !ok {
		return Identity{}
	}

	return identity
}
