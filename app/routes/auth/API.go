package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/routes/web"
	"github.com/hungnqdz/exam-management/app/services"
)

func LoginAPI(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := d.Auth.Login(c.UserContext(), c.FormValue("username"), c.FormValue("password"))
		if err != nil {
			switch apperr.KindOf(err) {
			case apperr.InvalidCredentials, apperr.ValidationFailed:
				return web.Render(c.Status(fiber.StatusUnauthorized), "auth/login", "Login", "login", fiber.Map{
					"Error": apperr.MsgInvalidCredentials,
				})
			}
			return err
		}

		setSessionCookie(c, d.Config, session)
		return c.Redirect("/Home/Index")
	}
}

func RegisterAPI(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, err := d.Auth.Register(c.UserContext(), services.RegisterInput{
			Username:   c.FormValue("username"),
			Password:   c.FormValue("password"),
			FullName:   c.FormValue("full_name"),
			Gender:     models.ParseGender(c.FormValue("gender")),
			SubjectIDs: web.FormValues(c, "subject_ids"),
		})
		if err != nil {
			switch apperr.KindOf(err) {
			case apperr.ValidationFailed, apperr.Conflict:
				return renderRegister(c, d, apperr.Status(apperr.KindOf(err)), apperr.PublicMessage(err))
			}
			return err
		}
		return web.RedirectWith(c, "/Auth/Login", web.FlashRegistered)
	}
}

func LogoutAPI(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clearSessionCookie(c)
		return web.RedirectWith(c, "/Auth/Login", web.FlashLoggedOut)
	}
}
