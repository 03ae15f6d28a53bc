package server

import (
	"net/url"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Index lists every post, newest first.
func (s *Server) Index(c *fiber.Ctx) error {
	posts, err := s.posts.ListAll(c.UserContext(), parsePagination(c))
	if err != nil {
		return s.pageError(c, err)
	}
	return s.page(c, IndexData{Posts: s.postViews(posts, currentUser(c))})
}

// WritePage shows the post editor.
func (s *Server) WritePage(c *fiber.Ctx) error {
	return s.page(c, nil)
}

// Write publishes a post as the signed-in user.
func (s *Server) Write(c *fiber.Ctx) error {
	var in service.PublishInput
	if err := c.BodyParser(&in); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), "/write")
	}

	user := currentUser(c)
	post, err := s.posts.Publish(c.UserContext(), user, in)
	if err != nil {
		return s.fail(c, err, "/write")
	}

	views := s.postViews([]*models.Post{post}, user)
	return s.done(c, FlashSuccess, "✨ Your story has been published!", "/", views[0])
}

// Profile shows a user and their posts.
func (s *Server) Profile(c *fiber.Ctx) error {
	username, err := url.PathUnescape(c.Params("username"))
	if err != nil {
		return s.pageError(c, models.NewNotFoundError("User", c.Params("username")))
	}

	user, posts, err := s.posts.ListByAuthor(c.UserContext(), username, parsePagination(c))
	if err != nil {
		return s.pageError(c, err)
	}
	return s.page(c, ProfileData{
		User:  *s.userView(user),
		Posts: s.postViews(posts, currentUser(c)),
	})
}

// DeletePost removes one of the signed-in user's posts.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}

	if err := s.posts.Delete(c.UserContext(), postID, currentUser(c)); err != nil {
		return s.fail(c, err, "/")
	}
	return s.done(c, FlashSuccess, "🌪️ Your post has vanished into the ether.", "/", nil)
}
