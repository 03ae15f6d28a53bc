package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	Issuer   = "inkwell"
	Audience = "inkwell-web"
)

// UserLoader fetches the user a token refers to.
type UserLoader func(ctx context.Context, id uint) (*models.User, error)

// Token is a freshly issued session credential.
type Token struct {
	Value     string
	ExpiresAt time.Time
	// Persistent tokens outlive the browser session.
	Persistent bool
}

// Manager issues, resolves and revokes session tokens.
type Manager struct {
	secret      []byte
	rdb         *redis.Client
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

// NewManager builds a Manager. rdb may be nil, in which case the signed token alone is trusted and logout cannot revoke.
func NewManager(secret string, rdb *redis.Client, ttl, rememberTTL time.Duration) *Manager {
	return &Manager{
		secret:      []byte(secret),
		rdb:         rdb,
		ttl:         ttl,
		rememberTTL: rememberTTL,
		now:         time.Now,
	}
}

// Login issues a token for user. remember selects the long-lived variant.
func (m *Manager) Login(ctx context.Context, user *models.User, remember bool) (*Token, error) {
	if user == nil || user.ID == 0 {
		return nil, errors.New("session: cannot log in an unsaved user")
	}
	if len(m.secret) == 0 {
		return nil, errors.New("session: secret not configured")
	}

	ttl := m.ttl
	if remember {
		ttl = m.rememberTTL
	}
	now := m.now()
	expiresAt := now.Add(ttl)
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(user.ID), 10),
		"iss": Issuer,
		"aud": Audience,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": jti,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("session: sign token: %w", err)
	}

	if m.rdb != nil {
		if err := m.rdb.Set(ctx, cache.SessionKey(jti), user.ID, ttl).Err(); err != nil {
			return nil, fmt.Errorf("session: store record: %w", err)
		}
	}

	return &Token{Value: signed, ExpiresAt: expiresAt, Persistent: remember}, nil
}

// Logout revokes the session's token. Anonymous sessions are a no-op.
func (m *Manager) Logout(ctx context.Context, sess *Session) error {
	if sess == nil || sess.tokenID == "" || m.rdb == nil {
		return nil
	}
	if err := m.rdb.Del(ctx, cache.SessionKey(sess.tokenID)).Err(); err != nil {
		return fmt.Errorf("session: revoke: %w", err)
	}
	return nil
}

// Resolve turns a raw token into a Session. Any defect in the token, a revoked
// record or a deleted user yields an anonymous session.
func (m *Manager) Resolve(ctx context.Context, raw string, load UserLoader) *Session {
	if raw == "" {
		return Anonymous()
	}

	userID, jti, expiresAt, err := m.parse(raw)
	if err != nil {
		middleware.Logger.DebugContext(ctx, "session token rejected", "error", err)
		return Anonymous()
	}

	if m.rdb != nil {
		stored, err := m.rdb.Get(ctx, cache.SessionKey(jti)).Uint64()
		switch {
		case errors.Is(err, redis.Nil):
			return Anonymous()
		case err != nil:
			// Redis trouble degrades to trusting the signature.
			middleware.Logger.WarnContext(ctx, "session store unavailable", "error", err)
		case uint(stored) != userID:
			return Anonymous()
		}
	}

	user, err := load(ctx, userID)
	if err != nil || user == nil {
		return Anonymous()
	}
	return &Session{user: user, tokenID: jti, expiresAt: expiresAt}
}

func (m *Manager) parse(raw string) (uint, string, time.Time, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return 0, "", time.Time{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", time.Time{}, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, "", time.Time{}, errors.New("missing subject")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, "", time.Time{}, errors.New("invalid user ID in token")
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return 0, "", time.Time{}, errors.New("missing token id")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, "", time.Time{}, errors.New("missing expiry")
	}

	return uint(userID), jti, exp.Time, nil
}
