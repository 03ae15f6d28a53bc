package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/url"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SettingsInput is the profile form. The avatar arrives as a multipart file.
type SettingsInput struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Bio      string `json:"bio" form:"bio"`
}

// SettingsPage shows the profile form filled with the current values.
func (s *Server) SettingsPage(c *fiber.Ctx) error {
	user := currentUser(c)
	return s.page(c, SettingsData{
		Username:  user.Username,
		Email:     user.Email,
		Bio:       user.Bio,
		AvatarURL: s.accounts.AvatarURL(user),
	})
}

// UpdateSettings saves the profile and, if one was sent, a new avatar.
func (s *Server) UpdateSettings(c *fiber.Ctx) error {
	var in SettingsInput
	if err := c.BodyParser(&in); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), "/settings")
	}

	avatar, err := readAvatar(c)
	if err != nil {
		return s.fail(c, err, "/settings")
	}

	updated, err := s.accounts.UpdateProfile(c.UserContext(), currentUser(c), service.UpdateProfileInput{
		Username: in.Username,
		Email:    in.Email,
		Bio:      in.Bio,
		Avatar:   avatar,
	})
	if err != nil {
		return s.fail(c, err, "/settings")
	}

	return s.done(c, FlashSuccess, "🌸 Your magical identity has been updated!",
		"/profile/"+url.PathEscape(updated.Username), s.userView(updated))
}

// ChangePassword always lands back on the settings page.
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var in service.ChangePasswordInput
	if err := c.BodyParser(&in); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), "/settings")
	}

	if err := s.accounts.ChangePassword(c.UserContext(), currentUser(c), in); err != nil {
		return s.fail(c, err, "/settings")
	}
	return s.done(c, FlashSuccess, "🔐 Your password has been changed!", "/settings", nil)
}

// readAvatar returns the uploaded avatar, or nil when the form has no file.
// Browsers send an empty part when no file was chosen.
func readAvatar(c *fiber.Ctx) (*service.AvatarUpload, error) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return nil, nil
	}
	if fh.Filename == "" && fh.Size == 0 {
		return nil, nil
	}

	content, err := readFormFile(fh)
	if err != nil {
		return nil, models.NewFieldError("avatar", "Could not read the uploaded file.")
	}
	return &service.AvatarUpload{Filename: fh.Filename, Content: content}, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
