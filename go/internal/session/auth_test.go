package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tableforge/tableforge/go/internal/models"
)

func TestAuthenticate(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "mira", DisplayName: "Mira"}
	lookup := &fakeLookup{users: map[string]*models.User{
		user.ID.String():   user,
		"mira@example.com": user,
	}}
	auth := NewAuthenticator(lookup)

	t.Run("resolves id claim", func(t *testing.T) {
		got, sessErr := auth.Authenticate(context.Background(), user.ID.String())
		if sessErr != nil {
			t.Fatalf("authenticate: %v", sessErr)
		}
		if got.ID != user.ID {
			t.Fatalf("expected user %s, got %s", user.ID, got.ID)
		}
	})

	t.Run("resolves email claim", func(t *testing.T) {
		got, sessErr := auth.Authenticate(context.Background(), "mira@example.com")
		if sessErr != nil {
			t.Fatalf("authenticate: %v", sessErr)
		}
		if got.ID != user.ID {
			t.Fatalf("expected user %s, got %s", user.ID, got.ID)
		}
	})

	t.Run("empty claim rejected", func(t *testing.T) {
		_, sessErr := auth.Authenticate(context.Background(), "")
		if sessErr == nil || sessErr.Code != CodeAuthenticationFailed {
			t.Fatalf("expected AUTHENTICATION_FAILED, got %v", sessErr)
		}
	})

	t.Run("unknown claim rejected", func(t *testing.T) {
		_, sessErr := auth.Authenticate(context.Background(), uuid.NewString())
		if sessErr == nil || sessErr.Code != CodeAuthenticationFailed {
			t.Fatalf("expected AUTHENTICATION_FAILED, got %v", sessErr)
		}
	})

	t.Run("lookup outage rejected", func(t *testing.T) {
		broken := NewAuthenticator(&fakeLookup{err: errors.New("db down")})
		_, sessErr := broken.Authenticate(context.Background(), "whoever")
		if sessErr == nil || sessErr.Code != CodeAuthenticationFailed {
			t.Fatalf("expected AUTHENTICATION_FAILED, got %v", sessErr)
		}
	})
}

func TestDisplayName(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name string
		user models.User
		want string
	}{
		{"display name wins", models.User{ID: id, Username: "u", DisplayName: "Display"}, "Display"},
		{"falls back to username", models.User{ID: id, Username: "u"}, "u"},
		{"falls back to id prefix", models.User{ID: id}, "user-" + id.String()[:8]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := displayName(&tc.user); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
