package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tableforge/tableforge/go/internal/models"
	"github.com/tableforge/tableforge/go/internal/users"
)

// UserLookup resolves an opaque identity claim to a user.
type UserLookup interface {
	LookupByClaim(ctx context.Context, claim string) (*models.User, error)
}

// Authenticator validates the identity claim carried in the connection
// handshake. Failure is fatal to the connection: the caller must reconnect
// with new credentials.
type Authenticator struct {
	users UserLookup
}

// NewAuthenticator creates a new connection authenticator
func NewAuthenticator(lookup UserLookup) *Authenticator {
	return &Authenticator{users: lookup}
}

// Authenticate resolves the claim. An unknown user yields a
// CodeAuthenticationFailed error; no side effects besides the lookup.
func (a *Authenticator) Authenticate(ctx context.Context, claim string) (*models.User, *Error) {
	if claim == "" {
		return nil, &Error{Code: CodeAuthenticationFailed, Message: "missing identity claim"}
	}
	user, err := a.users.LookupByClaim(ctx, claim)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, &Error{Code: CodeAuthenticationFailed, Message: "unknown user"}
		}
		log.Error().Err(err).Msg("user lookup failed")
		return nil, &Error{Code: CodeAuthenticationFailed, Message: "authentication unavailable"}
	}
	return user, nil
}

func displayName(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("user-%s", u.ID.String()[:8])
}
