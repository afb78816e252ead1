package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hungnqdz/exam-management/app/config"
	"github.com/hungnqdz/exam-management/app/services"
)

const (
	CookieName = "access_token"
	CSRFHeader = "X-CSRF-Token"
	CSRFField  = "_csrf"

	PreSessionCookie = "csrf_"
)

// sessionToken reads the cookie first, then the Authorization header.
func sessionToken(c *fiber.Ctx) string {
	if token := c.Cookies(CookieName); token != "" {
		return token
	}
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func setSessionCookie(c *fiber.Ctx, cfg *config.Config, s *services.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HTTPOnly: true,
		Secure:   !cfg.IsDevelopment(),
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
