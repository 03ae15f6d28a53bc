package server

import (
	"time"

	"inkwell/internal/models"
)

// UserView is the public face of an account.
type UserView struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Bio       string    `json:"bio"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// PostView is a post with its author inlined.
type PostView struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Author    *UserView `json:"author,omitempty"`
	// CanDelete is true when the viewer owns the post.
	CanDelete bool `json:"can_delete"`
}

// Page is the envelope every page handler returns.
type Page struct {
	CurrentUser *UserView `json:"current_user"`
	Flashes     []Flash   `json:"flashes"`
	Data        any       `json:"data,omitempty"`
}

type IndexData struct {
	Posts []PostView `json:"posts"`
}

type ProfileData struct {
	User  UserView   `json:"user"`
	Posts []PostView `json:"posts"`
}

type SettingsData struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

type LoginData struct {
	Next string `json:"next,omitempty"`
}

// ActionResponse answers a JSON form submission.
type ActionResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
	Data     any    `json:"data,omitempty"`
}

func (s *Server) userView(u *models.User) *UserView {
	if u == nil {
		return nil
	}
	return &UserView{
		ID:        u.ID,
		Username:  u.Username,
		Bio:       u.Bio,
		AvatarURL: s.accounts.AvatarURL(u),
		CreatedAt: u.CreatedAt,
	}
}

func (s *Server) postViews(posts []*models.Post, viewer *models.User) []PostView {
	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		out = append(out, PostView{
			ID:        p.ID,
			Title:     p.Title,
			Body:      p.Body,
			CreatedAt: p.CreatedAt,
			Author:    s.userView(p.Author),
			CanDelete: p.OwnedBy(viewer),
		})
	}
	return out
}
