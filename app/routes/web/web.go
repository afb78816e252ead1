// Package web holds what every route package shares: the handler
// dependencies, the per-request actor, and page rendering helpers.
package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hungnqdz/exam-management/app/config"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/security"
	"github.com/hungnqdz/exam-management/app/services"
)

const AppName = "Exam Management"

// Deps is passed to every Setup*Routes function.
type Deps struct {
	Config   *config.Config
	Auth     *services.AuthService
	Accounts *services.AccountService
	Exams    *services.ExamService
	Files    *services.FileService
	Subjects services.SubjectStore
	CSRF     *security.CSRF
}

// Locals keys. PassLocalsToViews exposes them to every template.
const (
	localActor = "Actor"
	// LocalCSRF holds the form token, for the session or the pre-session guard.
	LocalCSRF = "CSRFToken"
)

// SetActor stores the authenticated principal and its CSRF token once per request.
func SetActor(c *fiber.Ctx, actor *models.Actor, csrfToken string) {
	c.Locals(localActor, actor)
	c.Locals(LocalCSRF, csrfToken)
}

// Actor returns the request principal, or nil before authentication.
func Actor(c *fiber.Ctx) *models.Actor {
	actor, _ := c.Locals(localActor).(*models.Actor)
	return actor
}

func CSRFToken(c *fiber.Ctx) string {
	token, _ := c.Locals(LocalCSRF).(string)
	return token
}

// IsAPI reports whether the request should be answered with JSON.
func IsAPI(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/") || c.Path() == "/api"
}

// Render renders a page inside the main layout with the standard fields set.
func Render(c *fiber.Ctx, view, title, currentPage string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["Title"] = title + " - " + AppName
	data["CurrentPage"] = currentPage
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = Flash(c)
	}
	return c.Render(view, data)
}

// FormValues returns every value posted for key, for multi-selects.
func FormValues(c *fiber.Ctx, key string) []string {
	if form, err := c.MultipartForm(); err == nil {
		return form.Value[key]
	}
	var out []string
	for _, v := range c.Request().PostArgs().PeekMulti(key) {
		out = append(out, string(v))
	}
	return out
}
