package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/routes/web"
)

func SetupAuthRoutes(app *fiber.App, d *web.Deps) {
	auth := app.Group("/Auth")
	guard := PreSessionCSRF(d)

	// Public routes
	auth.Get("/Login", guard, ShowLoginPage(d))
	auth.Post("/Login", guard, LoginAPI(d))
	auth.Get("/Register", guard, ShowRegisterPage(d))
	auth.Post("/Register", guard, RegisterAPI(d))

	// Protected routes
	auth.Post("/Logout", AuthMiddleware(d), CSRFMiddleware(d), LogoutAPI(d))
}

func ShowLoginPage(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Already logged in
		if raw := sessionToken(c); raw != "" {
			if _, err := d.Auth.Resolve(c.UserContext(), raw); err == nil {
				return c.Redirect("/Home/Index")
			}
		}
		return web.Render(c, "auth/login", "Login", "login", nil)
	}
}

func ShowRegisterPage(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return renderRegister(c, d, fiber.StatusOK, "")
	}
}

func renderRegister(c *fiber.Ctx, d *web.Deps, status int, errMsg string) error {
	subjects, err := d.Subjects.ListSubjects(c.UserContext())
	if err != nil {
		return err
	}
	return web.Render(c.Status(status), "auth/register", "Register", "register", fiber.Map{
		"Subjects": subjects,
		"Error":    errMsg,
	})
}

// AuthMiddleware resolves the session token from the cookie or a Bearer
// header and stores the actor for the rest of the request.
func AuthMiddleware(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := sessionToken(c)
		if raw == "" {
			return unauthenticated(c, false)
		}

		actor, err := d.Auth.Resolve(c.UserContext(), raw)
		if err != nil {
			if apperr.KindOf(err) == apperr.Unauthenticated {
				return unauthenticated(c, true)
			}
			return err
		}

		web.SetActor(c, actor, d.CSRF.Token(actor.TokenID))
		return c.Next()
	}
}

func unauthenticated(c *fiber.Ctx, clear bool) error {
	if clear {
		clearSessionCookie(c)
	}
	if web.IsAPI(c) {
		return apperr.New(apperr.Unauthenticated, apperr.MsgUnauthenticated)
	}
	return c.Redirect("/Auth/Login")
}

// RoleMiddleware checks if the actor holds one of the allowed roles
func RoleMiddleware(allowed ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := web.Actor(c)
		if actor == nil {
			return apperr.New(apperr.Unauthenticated, apperr.MsgUnauthenticated)
		}
		for _, role := range allowed {
			if actor.Is(role) {
				return c.Next()
			}
		}
		return apperr.Forbid()
	}
}

// PreSessionCSRF protects the login and register forms, which are posted
// before a session exists, with a double-submit cookie token. One instance
// must serve both the GET and the POST of a form since it holds the tokens.
func PreSessionCSRF(d *web.Deps) fiber.Handler {
	return csrf.New(csrf.Config{
		KeyLookup:      "form:" + CSRFField,
		CookieName:     PreSessionCookie,
		CookiePath:     "/Auth",
		CookieSecure:   !d.Config.IsDevelopment(),
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteStrictMode,
		ContextKey:     web.LocalCSRF,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return apperr.Forbid()
		},
	})
}

// CSRFMiddleware requires a token bound to the caller's session on every
// state-changing request. It must run after AuthMiddleware.
func CSRFMiddleware(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		actor := web.Actor(c)
		if actor == nil {
			return apperr.New(apperr.Unauthenticated, apperr.MsgUnauthenticated)
		}
		token := c.Get(CSRFHeader)
		if token == "" {
			token = c.FormValue(CSRFField)
		}
		if !d.CSRF.Verify(actor.TokenID, token) {
			return apperr.Forbid()
		}
		return c.Next()
	}
}
