package server

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"inkwell/internal/session"

	"github.com/gofiber/fiber/v2"
)

const (
	SessionCookieName = "inkwell_session"
	FlashCookieName   = "inkwell_flash"
)

// Flash categories.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
	FlashInfo    = "info"
)

// Flash is a one-shot message for the next page the browser loads.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token *session.Token) {
	cookie := &fiber.Cookie{
		Name:     SessionCookieName,
		Value:    token.Value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if token.Persistent {
		cookie.Expires = token.ExpiresAt
	} else {
		cookie.SessionOnly = true
	}
	c.Cookie(cookie)
}

func (s *Server) clearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// flash queues a message for the next page. Emoji and other non-ASCII text is base64 encoded to stay cookie-safe.
func (s *Server) flash(c *fiber.Ctx, category, message string) {
	raw, err := json.Marshal([]Flash{{Category: category, Message: message}})
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     FlashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// takeFlashes returns pending messages and clears them.
func (s *Server) takeFlashes(c *fiber.Ctx) []Flash {
	value := c.Cookies(FlashCookieName)
	if value == "" {
		return []Flash{}
	}
	s.clearCookie(c, FlashCookieName)

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return []Flash{}
	}
	var flashes []Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return []Flash{}
	}
	return flashes
}

// DecodeFlashCookie parses a flash cookie value.
func DecodeFlashCookie(value string) ([]Flash, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, err
	}
	var flashes []Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil, err
	}
	return flashes, nil
}
