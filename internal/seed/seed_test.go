package seed

import (
	"testing"
	"unicode/utf8"

	"inkwell/internal/models"
	"inkwell/internal/testutil"
	"inkwell/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeed_CreatesUsersAndPosts(t *testing.T) {
	db := testutil.NewTestDB(t)

	users, err := Seed(db, Options{NumUsers: 3, NumPosts: 10, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	assert.Len(t, users, 3)

	var userCount, postCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&postCount).Error)
	assert.EqualValues(t, 3, userCount)
	assert.EqualValues(t, 10, postCount)

	var stored models.User
	require.NoError(t, db.First(&stored, users[0].ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(DefaultPassword)))
	assert.Equal(t, models.DefaultAvatar, stored.Avatar)
}

func TestSeed_CleanReplacesData(t *testing.T) {
	db := testutil.NewTestDB(t)

	_, err := Seed(db, Options{NumUsers: 2, NumPosts: 4, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	_, err = Seed(db, Options{NumUsers: 1, NumPosts: 1, ShouldClean: true, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	var userCount, postCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&postCount).Error)
	assert.EqualValues(t, 1, userCount)
	assert.EqualValues(t, 1, postCount)
}

func TestSeed_NoUsersMeansNoPosts(t *testing.T) {
	db := testutil.NewTestDB(t)

	users, err := Seed(db, Options{NumUsers: 0, NumPosts: 5, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFactory_BuildsValidEntities(t *testing.T) {
	f, err := NewFactory(nil, Options{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	for i := 1; i <= 50; i++ {
		user := f.BuildUser(i)
		assert.NoError(t, validation.ValidateUsername(user.Username), user.Username)
		assert.NoError(t, validation.ValidateEmail(user.Email), user.Email)
		assert.NoError(t, validation.ValidateBio(user.Bio))

		post := f.BuildPost(&models.User{ID: 1})
		assert.NoError(t, validation.ValidateTitle(post.Title), post.Title)
		assert.NoError(t, validation.ValidateBody(post.Body))
		assert.LessOrEqual(t, utf8.RuneCountInString(post.Title), validation.MaxTitleLength)
	}
}
