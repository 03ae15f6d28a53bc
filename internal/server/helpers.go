package server

import (
	"errors"
	"net/url"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/session"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	maxPaginationLimit = 100
	loginPath          = "/login"
	loginPrompt        = "Please log in to access this page."
	genericFailure     = "Something went wrong. Please try again."
)

// parsePagination reads limit and offset. A missing limit lists everything.
func parsePagination(c *fiber.Ctx) repository.Page {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		limit = 0
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return repository.Page{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 404 response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Post", c.Params(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// wantsJSON reports whether the client talks JSON rather than submitting a browser form.
func wantsJSON(c *fiber.Ctx) bool {
	if c.Is("json") {
		return true
	}
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

// currentSession returns the session resolved for this request.
func currentSession(c *fiber.Ctx) *session.Session {
	if sess, ok := c.Locals("session").(*session.Session); ok && sess != nil {
		return sess
	}
	return session.Anonymous()
}

// currentUser returns the signed-in user, or nil.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := currentSession(c).CurrentUser()
	return user
}

// page renders a page model with the viewer and any pending flashes.
func (s *Server) page(c *fiber.Ctx, data any) error {
	return c.JSON(Page{
		CurrentUser: s.userView(currentUser(c)),
		Flashes:     s.takeFlashes(c),
		Data:        data,
	})
}

// done reports a successful form action: a JSON acknowledgement, or a flash and a 303 to next.
func (s *Server) done(c *fiber.Ctx, category, message, next string, data any) error {
	if wantsJSON(c) {
		return c.JSON(ActionResponse{Message: message, Redirect: next, Data: data})
	}
	s.flash(c, category, message)
	return c.Redirect(next, fiber.StatusSeeOther)
}

// fail reports a failed action. Browser forms are redirected to back with a danger flash,
// except Unauthorized, which goes to the login page.
func (s *Server) fail(c *fiber.Ctx, err error, back string) error {
	err = s.logFailure(c, err)
	status := models.StatusFor(err)

	if wantsJSON(c) || status == fiber.StatusNotFound {
		return models.RespondWithError(c, status, err)
	}

	switch {
	case models.IsCode(err, models.CodeUnauthorized):
		s.flash(c, FlashInfo, loginPrompt)
		return c.Redirect(loginRedirect(c), fiber.StatusSeeOther)
	case status == fiber.StatusInternalServerError:
		s.flash(c, FlashDanger, "❌ "+genericFailure)
	default:
		var appErr *models.AppError
		errors.As(err, &appErr)
		s.flash(c, FlashDanger, "❌ "+appErr.Message)
	}
	return c.Redirect(back, fiber.StatusSeeOther)
}

// pageError answers a failed page load with the error itself.
func (s *Server) pageError(c *fiber.Ctx, err error) error {
	err = s.logFailure(c, err)
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// logFailure logs internal errors and wraps foreign ones so their text never reaches the client.
func (s *Server) logFailure(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		err = models.NewInternalError(err)
	}
	if models.StatusFor(err) == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
	}
	return err
}

// loginRedirect points at the login page, remembering where a GET was headed.
func loginRedirect(c *fiber.Ctx) string {
	if c.Method() != fiber.MethodGet {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(c.OriginalURL())
}

// safeNext accepts only same-site absolute paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
