package server

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/write", "/write"},
		{"/profile/alice?x=1", "/profile/alice?x=1"},
		{"//evil.example", "/"},
		{"/\\evil.example", "/"},
		{"https://evil.example", "/"},
		{"write", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.in), tt.in)
	}
}

func TestIsChecked(t *testing.T) {
	for _, v := range []string{"on", "y", "yes", "true", "1", "ON"} {
		assert.True(t, isChecked(v), v)
	}
	for _, v := range []string{"", "off", "no", "0", "false"} {
		assert.False(t, isChecked(v), v)
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 0, 0},
		{"?limit=10&offset=5", 10, 5},
		{"?limit=-1&offset=-3", 0, 0},
		{"?limit=1000", maxPaginationLimit, 0},
	}

	for _, tt := range tests {
		app := fiber.New()
		app.Get("/", func(c *fiber.Ctx) error {
			p := parsePagination(c)
			assert.Equal(t, tt.wantLimit, p.Limit, tt.query)
			assert.Equal(t, tt.wantOffset, p.Offset, tt.query)
			return c.SendStatus(fiber.StatusNoContent)
		})
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		accept      string
		want        bool
	}{
		{"browser form", fiber.MIMEApplicationForm, "text/html,application/xhtml+xml,*/*;q=0.8", false},
		{"no headers", "", "", false},
		{"json body", fiber.MIMEApplicationJSON, "", true},
		{"accepts json", fiber.MIMEApplicationForm, fiber.MIMEApplicationJSON, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			var got bool
			app.Post("/", func(c *fiber.Ctx) error {
				got = wantsJSON(c)
				return nil
			})
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			_, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeFlashCookie(t *testing.T) {
	_, err := DecodeFlashCookie("%%%")
	assert.Error(t, err)
}
