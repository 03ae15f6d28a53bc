// Package service holds the business rules for accounts, avatars and posts.
package service

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AccountService registers users, checks credentials and edits profiles.
type AccountService struct {
	userRepo      repository.UserRepository
	avatars       *AvatarStore
	bcryptCost    int
	avatarBaseURL string
}

type RegisterInput struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm" form:"confirm"`
}

type UpdateProfileInput struct {
	Username string
	Email    string
	Bio      string
	Avatar   *AvatarUpload
}

type ChangePasswordInput struct {
	Current string `json:"current_password" form:"current_password"`
	New     string `json:"new_password" form:"new_password"`
	Confirm string `json:"confirm_password" form:"confirm_password"`
}

func NewAccountService(userRepo repository.UserRepository, avatars *AvatarStore, cfg *config.Config) *AccountService {
	cost := bcrypt.DefaultCost
	baseURL := "/" + DefaultAvatarUploadDir
	if cfg != nil {
		if cfg.BcryptCost >= bcrypt.MinCost && cfg.BcryptCost <= bcrypt.MaxCost {
			cost = cfg.BcryptCost
		}
		if cfg.AvatarBaseURL != "" {
			baseURL = cfg.AvatarBaseURL
		}
	}
	return &AccountService{
		userRepo:      userRepo,
		avatars:       avatars,
		bcryptCost:    cost,
		avatarBaseURL: strings.TrimRight(baseURL, "/"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)

	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewFieldError("username", err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewFieldError("email", err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewFieldError("password", err.Error())
	}
	if err := validation.ValidatePasswordConfirmation(in.Password, in.ConfirmPassword); err != nil {
		return nil, models.NewFieldError("confirm", err.Error())
	}

	if err := s.ensureUsernameFree(ctx, username); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.AccountsRegistered.Inc()
	middleware.Logger.InfoContext(ctx, "account registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Authenticate returns the user whose stored hash matches password. Unknown emails and wrong passwords look the same.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		observability.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, models.NewInvalidCredentialsError()
	}
	observability.LoginAttempts.WithLabelValues("success").Inc()
	return user, nil
}

// UpdateProfile applies in to user and returns the stored result.
// A new avatar is written before the row is committed and the old file is removed after.
func (s *AccountService) UpdateProfile(ctx context.Context, user *models.User, in UpdateProfileInput) (*models.User, error) {
	if user == nil {
		return nil, models.NewUnauthorizedError("Please log in to access this page.")
	}

	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)

	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewFieldError("username", err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewFieldError("email", err.Error())
	}
	if err := validation.ValidateBio(in.Bio); err != nil {
		return nil, models.NewFieldError("bio", err.Error())
	}

	if username != user.Username {
		if err := s.ensureUsernameFree(ctx, username); err != nil {
			return nil, err
		}
	}
	if email != user.Email {
		if err := s.ensureEmailFree(ctx, email); err != nil {
			return nil, err
		}
	}

	var newAvatar string
	if in.Avatar != nil {
		stored, err := s.avatars.Save(ctx, *in.Avatar)
		if err != nil {
			return nil, err
		}
		newAvatar = stored
	}

	updated := *user
	updated.Username = username
	updated.Email = email
	updated.Bio = in.Bio
	if newAvatar != "" {
		updated.Avatar = newAvatar
	}

	if err := s.userRepo.UpdateProfile(ctx, &updated); err != nil {
		if newAvatar != "" {
			if rmErr := s.avatars.Remove(newAvatar); rmErr != nil {
				middleware.Logger.WarnContext(ctx, "failed to remove orphaned avatar", "file", newAvatar, "error", rmErr)
			}
		}
		return nil, err
	}

	if newAvatar != "" && user.HasCustomAvatar() && user.Avatar != newAvatar {
		if err := s.avatars.Remove(user.Avatar); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove previous avatar", "file", user.Avatar, "error", err)
		}
	}

	return &updated, nil
}

// ChangePassword replaces the password hash after checking the current password.
// The new password is validated first; the stored hash is untouched on any failure.
func (s *AccountService) ChangePassword(ctx context.Context, user *models.User, in ChangePasswordInput) error {
	if user == nil {
		return models.NewUnauthorizedError("Please log in to access this page.")
	}
	if in.Current == "" {
		return models.NewFieldError("current_password", "current password is required")
	}
	if err := validation.ValidatePassword(in.New); err != nil {
		return models.NewFieldError("new_password", err.Error())
	}
	if err := validation.ValidatePasswordConfirmation(in.New, in.Confirm); err != nil {
		return models.NewFieldError("confirm_password", err.Error())
	}

	// The session copy may come from the cache, which never holds the hash.
	stored, err := s.userRepo.GetByIDUncached(ctx, user.ID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(in.Current)) != nil {
		return &models.AppError{
			Code:    models.CodeInvalidCredentials,
			Message: "Current password is incorrect.",
			Field:   "current_password",
		}
	}

	hash, err := s.hashPassword(in.New)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "password changed", "user_id", user.ID)
	return nil
}

func (s *AccountService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}

func (s *AccountService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// AvatarURL is the public URL of the user's avatar, or of the default one when the file is gone.
func (s *AccountService) AvatarURL(user *models.User) string {
	if user != nil && user.Avatar != "" && s.avatars != nil && s.avatars.Exists(user.Avatar) {
		return s.avatarBaseURL + "/" + user.Avatar
	}
	return s.avatarBaseURL + "/" + models.DefaultAvatar
}

func (s *AccountService) ensureUsernameFree(ctx context.Context, username string) error {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return models.NewFieldError("username", "Username taken.")
	}
	return nil
}

func (s *AccountService) ensureEmailFree(ctx context.Context, email string) error {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return models.NewFieldError("email", "Email taken.")
	}
	return nil
}

func (s *AccountService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", models.NewFieldError("password", err.Error())
		}
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}
