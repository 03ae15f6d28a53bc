// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinUsernameLength = 2
	MaxUsernameLength = 20
	MaxEmailLength    = 120
	MinPasswordLength = 6
	MaxPasswordLength = 72
	MaxBioLength      = 160
	MaxTitleLength    = 100
)

// AllowedAvatarExtensions lists the image types accepted for profile pictures.
var AllowedAvatarExtensions = []string{"jpg", "png", "jpeg", "gif", "webp"}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("username is required")
	}
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return fmt.Errorf("username must be between %d and %d characters long", MinUsernameLength, MaxUsernameLength)
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword checks the password length bounds.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLength)
	}
	return nil
}

// ValidatePasswordConfirmation checks that both password entries match.
func ValidatePasswordConfirmation(password, confirm string) error {
	if confirm == "" {
		return fmt.Errorf("please confirm the password")
	}
	if password != confirm {
		return fmt.Errorf("passwords must match")
	}
	return nil
}

// ValidateBio checks the bio length.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return fmt.Errorf("bio must not exceed %d characters", MaxBioLength)
	}
	return nil
}

// ValidateTitle checks that a post title is present and short enough.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLength)
	}
	return nil
}

// ValidateBody checks that a post body is present.
func ValidateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}

// AvatarExtension returns the lower-cased extension of filename without the dot.
func AvatarExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// ValidateAvatarFilename checks the upload's extension against the allow-list.
func ValidateAvatarFilename(filename string) error {
	ext := AvatarExtension(filename)
	for _, allowed := range AllowedAvatarExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("images only")
}
