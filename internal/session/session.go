// Package session maps signed session tokens to logged-in users.
package session

import (
	"time"

	"inkwell/internal/models"
)

// Session is the per-request view of who is logged in.
type Session struct {
	user      *models.User
	tokenID   string
	expiresAt time.Time
}

// Anonymous returns a session with no user.
func Anonymous() *Session {
	return &Session{}
}

// CurrentUser returns the logged-in user, if any.
func (s *Session) CurrentUser() (*models.User, bool) {
	if s == nil || s.user == nil {
		return nil, false
	}
	return s.user, true
}

func (s *Session) IsAuthenticated() bool {
	_, ok := s.CurrentUser()
	return ok
}

// RequireLogin returns the user or an Unauthorized error for anonymous sessions.
func (s *Session) RequireLogin() (*models.User, error) {
	user, ok := s.CurrentUser()
	if !ok {
		return nil, models.NewUnauthorizedError("Please log in to access this page.")
	}
	return user, nil
}

// TokenID is the jti of the token backing the session.
func (s *Session) TokenID() string {
	if s == nil {
		return ""
	}
	return s.tokenID
}

func (s *Session) ExpiresAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.expiresAt
}
