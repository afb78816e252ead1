package home

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/routes/auth"
	"github.com/hungnqdz/exam-management/app/routes/web"
	"github.com/hungnqdz/exam-management/app/services"
)

func SetupHomeRoutes(app *fiber.App, d *web.Deps) {
	home := app.Group("/Home", auth.AuthMiddleware(d), auth.CSRFMiddleware(d))

	home.Get("/Index", IndexPage(d))
	home.Get("/Profile", ProfilePage(d))
	home.Post("/UpdateProfile", UpdateProfile(d))
	home.Post("/UploadAvatar", UploadAvatar(d))
	home.Get("/ChangePassword", ChangePasswordPage)
	home.Post("/ChangePassword", ChangePassword(d))
}

// IndexPage is the dashboard: the exams visible to the actor, plus system
// counts for admins.
func IndexPage(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		actor := web.Actor(c)
		exams, err := d.Exams.ListForActor(ctx, actor)
		if err != nil {
			return err
		}
		data := fiber.Map{"Exams": exams}
		if actor.IsAdmin() {
			stats, err := d.Accounts.Dashboard(ctx, actor)
			if err != nil {
				return err
			}
			data["Stats"] = stats
		}
		return web.Render(c, "home/index", "Dashboard", "home", data)
	}
}

func ProfilePage(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		acc, err := d.Accounts.Profile(c.UserContext(), web.Actor(c))
		if err != nil {
			return err
		}
		return web.Render(c, "home/profile", "Profile", "profile", fiber.Map{
			"Account": acc,
			"Genders": []models.Gender{models.Male, models.Female, models.Other},
		})
	}
}

func UpdateProfile(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, err := d.Accounts.UpdateProfile(c.UserContext(), web.Actor(c), ProfileForm(c))
		if err != nil {
			return err
		}
		return web.RedirectWith(c, "/Home/Profile", web.FlashProfileUpdated)
	}
}

func UploadAvatar(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("avatar")
		if err != nil {
			return apperr.Validation("Please choose an image to upload.")
		}
		if _, err := d.Accounts.UpdateAvatar(c.UserContext(), web.Actor(c), services.UploadFromHeader(fh)); err != nil {
			return err
		}
		return web.RedirectWith(c, "/Home/Profile", web.FlashAvatarUpdated)
	}
}

func ChangePasswordPage(c *fiber.Ctx) error {
	return web.Render(c, "home/change_password", "Change Password", "profile", nil)
}

func ChangePassword(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		next := c.FormValue("new_password")
		if next != c.FormValue("confirm_password") {
			return apperr.Validation("The new passwords do not match.")
		}
		if err := d.Auth.ChangePassword(c.UserContext(), web.Actor(c), c.FormValue("current_password"), next); err != nil {
			return err
		}
		return web.RedirectWith(c, "/Home/Profile", web.FlashPasswordChanged)
	}
}

// ProfileForm reads the editable profile fields of a posted form.
func ProfileForm(c *fiber.Ctx) services.ProfileInput {
	return services.ProfileInput{
		FullName: c.FormValue("full_name"),
		Gender:   models.ParseGender(c.FormValue("gender")),
		Phone:    c.FormValue("phone"),
		Address:  c.FormValue("address"),
	}
}
