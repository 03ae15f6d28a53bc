package server

import (
	"net/url"
	"strconv"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LoginInput is the login form. Remember is read separately for browser forms, which send "on" or "y".
type LoginInput struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Remember bool   `json:"remember" form:"-"`
	Next     string `json:"next" form:"next"`
}

// RegisterPage shows the sign-up form.
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	return s.page(c, nil)
}

// Register creates an account and sends the new user to the login page.
func (s *Server) Register(c *fiber.Ctx) error {
	var in service.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), "/register")
	}

	user, err := s.accounts.Register(c.UserContext(), in)
	if err != nil {
		return s.fail(c, err, "/register")
	}

	return s.done(c, FlashSuccess, "🎉 Account created! You can now log in.", loginPath, s.userView(user))
}

// LoginPage shows the sign-in form.
func (s *Server) LoginPage(c *fiber.Ctx) error {
	return s.page(c, LoginData{Next: c.Query("next")})
}

// Login checks credentials and issues a session cookie.
func (s *Server) Login(c *fiber.Ctx) error {
	var in LoginInput
	if err := c.BodyParser(&in); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), loginPath)
	}
	if !c.Is("json") {
		in.Remember = isChecked(c.FormValue("remember"))
	}
	if in.Next == "" {
		in.Next = c.Query("next")
	}

	back := loginPath
	if in.Next != "" {
		back = loginPath + "?next=" + url.QueryEscape(in.Next)
	}

	ctx := c.UserContext()
	user, err := s.accounts.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return s.fail(c, err, back)
	}

	token, err := s.sessions.Login(ctx, user, in.Remember)
	if err != nil {
		return s.fail(c, err, back)
	}
	s.setSessionCookie(c, token)

	middleware.Logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "remember", in.Remember)
	return s.done(c, FlashSuccess, "✨ Welcome back, "+user.Username+"!", safeNext(in.Next), s.userView(user))
}

// Logout revokes the session and clears the cookie. It is safe to call while signed out.
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := s.sessions.Logout(ctx, currentSession(c)); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to revoke session", "error", err)
	}
	s.clearCookie(c, SessionCookieName)

	return s.done(c, FlashInfo, "🌙 You have been logged out.", "/", nil)
}

func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "y", "yes":
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
