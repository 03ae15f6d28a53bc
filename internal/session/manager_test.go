package session

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func setupManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewManager(testSecret, rdb, 24*time.Hour, 30*24*time.Hour), mr
}

func loaderFor(users ...*models.User) UserLoader {
	return func(_ context.Context, id uint) (*models.User, error) {
		for _, u := range users {
			if u.ID == id {
				return u, nil
			}
		}
		return nil, models.NewNotFoundError("User", id)
	}
}

func TestManager_LoginResolveLogout(t *testing.T) {
	m, mr := setupManager(t)
	ctx := context.Background()
	ada := &models.User{ID: 7, Username: "ada"}

	token, err := m.Login(ctx, ada, false)
	require.NoError(t, err)
	assert.False(t, token.Persistent)

	sess := m.Resolve(ctx, token.Value, loaderFor(ada))
	user, ok := sess.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, ada.ID, user.ID)
	assert.NotEmpty(t, sess.TokenID())
	assert.True(t, mr.Exists("session:"+sess.TokenID()))

	require.NoError(t, m.Logout(ctx, sess))
	assert.False(t, mr.Exists("session:"+sess.TokenID()))
	assert.False(t, m.Resolve(ctx, token.Value, loaderFor(ada)).IsAuthenticated())
}

func TestManager_RememberSelectsLifetime(t *testing.T) {
	m, mr := setupManager(t)
	ctx := context.Background()
	ada := &models.User{ID: 1}
	fixed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	short, err := m.Login(ctx, ada, false)
	require.NoError(t, err)
	long, err := m.Login(ctx, ada, true)
	require.NoError(t, err)

	assert.Equal(t, fixed.Add(24*time.Hour), short.ExpiresAt)
	assert.Equal(t, fixed.Add(30*24*time.Hour), long.ExpiresAt)
	assert.True(t, long.Persistent)

	sess := m.Resolve(ctx, long.Value, loaderFor(ada))
	require.True(t, sess.IsAuthenticated())
	assert.Equal(t, 30*24*time.Hour, mr.TTL("session:"+sess.TokenID()))
}

func TestManager_ResolveRejects(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()
	ada := &models.User{ID: 1}

	token, err := m.Login(ctx, ada, false)
	require.NoError(t, err)

	t.Run("empty token", func(t *testing.T) {
		assert.False(t, m.Resolve(ctx, "", loaderFor(ada)).IsAuthenticated())
	})

	t.Run("garbage", func(t *testing.T) {
		assert.False(t, m.Resolve(ctx, "not-a-jwt", loaderFor(ada)).IsAuthenticated())
	})

	t.Run("tampered signature", func(t *testing.T) {
		tampered := token.Value[:len(token.Value)-2] + "xx"
		assert.False(t, m.Resolve(ctx, tampered, loaderFor(ada)).IsAuthenticated())
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewManager("another-secret-another-secret-1234", m.rdb, time.Hour, time.Hour)
		assert.False(t, other.Resolve(ctx, token.Value, loaderFor(ada)).IsAuthenticated())
	})

	t.Run("expired", func(t *testing.T) {
		later := NewManager(testSecret, m.rdb, time.Hour, time.Hour)
		later.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
		assert.False(t, later.Resolve(ctx, token.Value, loaderFor(ada)).IsAuthenticated())
	})

	t.Run("user no longer exists", func(t *testing.T) {
		assert.False(t, m.Resolve(ctx, token.Value, loaderFor()).IsAuthenticated())
	})
}

func TestManager_WithoutRedis(t *testing.T) {
	m := NewManager(testSecret, nil, time.Hour, 24*time.Hour)
	ctx := context.Background()
	ada := &models.User{ID: 3}

	token, err := m.Login(ctx, ada, true)
	require.NoError(t, err)

	sess := m.Resolve(ctx, token.Value, loaderFor(ada))
	require.True(t, sess.IsAuthenticated())
	assert.NoError(t, m.Logout(ctx, sess))
}

func TestManager_RedisOutageTrustsSignature(t *testing.T) {
	m, mr := setupManager(t)
	ctx := context.Background()
	ada := &models.User{ID: 4}

	token, err := m.Login(ctx, ada, false)
	require.NoError(t, err)

	mr.Close()
	assert.True(t, m.Resolve(ctx, token.Value, loaderFor(ada)).IsAuthenticated())
}

func TestManager_LoginErrors(t *testing.T) {
	m, _ := setupManager(t)
	_, err := m.Login(context.Background(), nil, false)
	assert.Error(t, err)
	_, err = m.Login(context.Background(), &models.User{}, false)
	assert.Error(t, err)

	blank := NewManager("", nil, time.Hour, time.Hour)
	_, err = blank.Login(context.Background(), &models.User{ID: 1}, false)
	assert.Error(t, err)
}

func TestSession_RequireLogin(t *testing.T) {
	_, err := Anonymous().RequireLogin()
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	var nilSession *Session
	assert.False(t, nilSession.IsAuthenticated())

	sess := &Session{user: &models.User{ID: 1}}
	user, err := sess.RequireLogin()
	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)
}
