// Package session holds the authenticated editing session. A session is
// created once the identity check passes and discarded on logout; all
// operations that need authorship metadata take it explicitly rather than
// reading ambient global state.
package session

import (
	"context"
	"fmt"

	"github.com/syrthax/blogsync/github"
	errs "github.com/syrthax/blogsync/internal/errors"
)

// Session carries the verified identity for the lifetime of one login.
type Session struct {
	User github.User
}

// Establish verifies the client's credential against the identity endpoint
// and checks the login against the single allow-listed account. Any other
// identity is rejected with ErrAccessDenied even when the token is valid.
func Establish(ctx context.Context, client *github.Client, allowedLogin string) (*Session, error) {
	user, err := client.GetUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("verifying identity: %w", err)
	}

	if user.Login != allowedLogin {
		return nil, fmt.Errorf("%w: %q is not the allowed editor", errs.ErrAccessDenied, user.Login)
	}

	return &Session{User: *user}, nil
}

// CommitterName is the display name recorded on commits, falling back to
// the login when the profile has no name set.
func (s *Session) CommitterName() string {
	if s.User.Name != "" {
		return s.User.Name
	}

	return s.User.Login
}

// CommitterEmail is the email recorded on commits. Profiles with a private
// email get the deterministic noreply address.
func (s *Session) CommitterEmail() string {
	if s.User.Email != "" {
		return s.User.Email
	}

	return s.User.Login + "@users.noreply.github.com"
}

// Committer builds the authorship metadata attached to every write/delete.
func (s *Session) Committer() github.Committer {
	return github.Committer{
		Name:  s.CommitterName(),
		Email: s.CommitterEmail(),
	}
}
