package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_Publish_Validation(t *testing.T) {
	t.Parallel()
	author := &models.User{ID: 1, Username: "ada"}

	tests := []struct {
		name  string
		in    PublishInput
		field string
	}{
		{"empty title", PublishInput{Title: "", Body: "body"}, "title"},
		{"blank title", PublishInput{Title: "   ", Body: "body"}, "title"},
		{"title too long", PublishInput{Title: strings.Repeat("t", 101), Body: "body"}, "title"},
		{"empty body", PublishInput{Title: "title", Body: ""}, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := noopPostRepo()
			repo.createFn = func(context.Context, *models.Post) error {
				t.Fatal("create must not be called")
				return nil
			}
			svc := NewPostService(repo, noopUserRepo())
			_, err := svc.Publish(context.Background(), author, tt.in)
			appErr := assertValidationError(t, err)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestPostService_Publish(t *testing.T) {
	t.Parallel()
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("CEST", 2*60*60))

	var stored *models.Post
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 11
		stored = p
		return nil
	}
	svc := NewPostService(repo, noopUserRepo())
	svc.now = func() time.Time { return fixed }

	author := &models.User{ID: 3, Username: "ada"}
	post, err := svc.Publish(context.Background(), author, PublishInput{Title: strings.Repeat("t", 100), Body: "hello"})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, uint(11), post.ID)
	assert.Equal(t, uint(3), post.UserID)
	assert.Equal(t, time.UTC, post.CreatedAt.Location())
	assert.True(t, fixed.Equal(post.CreatedAt))
	assert.Same(t, author, post.Author)

	_, err = svc.Publish(context.Background(), nil, PublishInput{Title: "t", Body: "b"})
	assertCode(t, err, models.CodeUnauthorized)
}

func TestPostService_Delete(t *testing.T) {
	t.Parallel()
	owner := &models.User{ID: 1}
	stranger := &models.User{ID: 2}

	newRepo := func(deleted *[]uint) *postRepoStub {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
			if id == 5 {
				return &models.Post{ID: 5, UserID: owner.ID}, nil
			}
			return nil, models.NewNotFoundError("Post", id)
		}
		repo.deleteFn = func(_ context.Context, id uint) error {
			*deleted = append(*deleted, id)
			return nil
		}
		return repo
	}

	t.Run("owner deletes", func(t *testing.T) {
		t.Parallel()
		var deleted []uint
		svc := NewPostService(newRepo(&deleted), noopUserRepo())
		require.NoError(t, svc.Delete(context.Background(), 5, owner))
		assert.Equal(t, []uint{5}, deleted)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		t.Parallel()
		var deleted []uint
		svc := NewPostService(newRepo(&deleted), noopUserRepo())
		err := svc.Delete(context.Background(), 5, stranger)
		assertCode(t, err, models.CodeForbidden)
		assert.Empty(t, deleted)
	})

	t.Run("missing post", func(t *testing.T) {
		t.Parallel()
		var deleted []uint
		svc := NewPostService(newRepo(&deleted), noopUserRepo())
		err := svc.Delete(context.Background(), 404, owner)
		assertCode(t, err, models.CodeNotFound)
		assert.Empty(t, deleted)
	})

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		var deleted []uint
		svc := NewPostService(newRepo(&deleted), noopUserRepo())
		err := svc.Delete(context.Background(), 5, nil)
		assertCode(t, err, models.CodeUnauthorized)
	})
}

func TestPostService_ListByAuthor_UnknownUser(t *testing.T) {
	t.Parallel()
	svc := NewPostService(noopPostRepo(), noopUserRepo())
	_, _, err := svc.ListByAuthor(context.Background(), "ghost", repository.Page{})
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_ListingWithDatabase(t *testing.T) {
	db := testutil.NewTestDB(t)
	users := repository.NewUserRepository(db)
	svc := NewPostService(repository.NewPostRepository(db), users)
	ctx := context.Background()

	ada := &models.User{Username: "ada", Email: "ada@example.com", PasswordHash: "h"}
	bob := &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "h"}
	require.NoError(t, users.Create(ctx, ada))
	require.NoError(t, users.Create(ctx, bob))

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first, err := svc.Publish(ctx, ada, PublishInput{Title: "first", Body: "a"})
	require.NoError(t, err)
	second, err := svc.Publish(ctx, bob, PublishInput{Title: "second", Body: "b"})
	require.NoError(t, err)
	third, err := svc.Publish(ctx, ada, PublishInput{Title: "third", Body: "c"})
	require.NoError(t, err)

	all, err := svc.ListAll(ctx, repository.Page{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint{third.ID, second.ID, first.ID}, []uint{all[0].ID, all[1].ID, all[2].ID})

	author, mine, err := svc.ListByAuthor(ctx, "ada", repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, ada.ID, author.ID)
	require.Len(t, mine, 2)
	assert.Equal(t, third.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	require.NoError(t, svc.Delete(ctx, first.ID, ada))
	_, err = svc.Get(ctx, first.ID)
	assertCode(t, err, models.CodeNotFound)

	err = svc.Delete(ctx, second.ID, ada)
	assertCode(t, err, models.CodeForbidden)
	_, err = svc.Get(ctx, second.ID)
	assert.NoError(t, err)
}
