package service

import (
	"context"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// PostService publishes, lists and deletes posts.
type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	now      func() time.Time
}

type PublishInput struct {
	Title string `json:"title" form:"title"`
	Body  string `json:"body" form:"body"`
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		now:      time.Now,
	}
}

func (s *PostService) Publish(ctx context.Context, author *models.User, in PublishInput) (post *models.Post, err error) {
	if author == nil {
		return nil, models.NewUnauthorizedError("Please log in to access this page.")
	}
	if err := validation.ValidateTitle(in.Title); err != nil {
		return nil, models.NewFieldError("title", err.Error())
	}
	if err := validation.ValidateBody(in.Body); err != nil {
		return nil, models.NewFieldError("body", err.Error())
	}

	ctx, span := observability.StartSpan(ctx, "post.publish", attribute.Int64("user.id", int64(author.ID)))
	defer func() { observability.EndSpan(span, err) }()

	post = &models.Post{
		Title:     in.Title,
		Body:      in.Body,
		CreatedAt: s.now().UTC(),
		UserID:    author.ID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	post.Author = author

	observability.PostsPublished.Inc()
	middleware.Logger.InfoContext(ctx, "post published", "post_id", post.ID, "user_id", author.ID)
	return post, nil
}

// ListAll returns every post, newest first.
func (s *PostService) ListAll(ctx context.Context, page repository.Page) ([]*models.Post, error) {
	return s.postRepo.List(ctx, page)
}

// ListByAuthor returns the posts of one user, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, username string, page repository.Page) (*models.User, []*models.Post, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, models.NewNotFoundError("User", username)
	}
	posts, err := s.postRepo.ListByUser(ctx, user.ID, page)
	if err != nil {
		return nil, nil, err
	}
	return user, posts, nil
}

func (s *PostService) Get(ctx context.Context, postID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID)
}

// Delete removes a post owned by requester.
func (s *PostService) Delete(ctx context.Context, postID uint, requester *models.User) error {
	if requester == nil {
		return models.NewUnauthorizedError("Please log in to access this page.")
	}
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if !post.OwnedBy(requester) {
		return models.NewForbiddenError("You cannot delete this post.")
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}

	observability.PostsDeleted.Inc()
	middleware.Logger.InfoContext(ctx, "post deleted", "post_id", postID, "user_id", requester.ID)
	return nil
}
