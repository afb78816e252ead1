package admin

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/routes/auth"
	"github.com/hungnqdz/exam-management/app/routes/home"
	"github.com/hungnqdz/exam-management/app/routes/web"
	"github.com/hungnqdz/exam-management/app/services"
)

func SetupAdminRoutes(app *fiber.App, d *web.Deps) {
	admin := app.Group("/Admin",
		auth.AuthMiddleware(d),
		auth.RoleMiddleware(models.RoleAdmin),
		auth.CSRFMiddleware(d),
	)

	admin.Get("/", AccountsPage(d))
	admin.Post("/Create", CreateAccount(d))
	admin.Get("/Detail/:id", AccountDetailPage(d))
	admin.Post("/Edit/:id", UpdateAccount(d))
	admin.Post("/Delete/:id", DeleteAccount(d))
	admin.Post("/Export", ExportAccounts(d))
}

// AccountsPage lists accounts, filtered by the q search term.
func AccountsPage(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		search := c.Query("q")
		accounts, err := d.Accounts.List(ctx, web.Actor(c), search)
		if err != nil {
			return err
		}
		subjects, err := d.Subjects.ListSubjects(ctx)
		if err != nil {
			return err
		}
		return web.Render(c, "admin/index", "Accounts", "admin", fiber.Map{
			"Accounts": accounts,
			"Subjects": subjects,
			"Search":   search,
			"Roles":    []models.Role{models.RoleTeacher, models.RoleStudent},
			"Genders":  []models.Gender{models.Male, models.Female, models.Other},
		})
	}
}

func AccountDetailPage(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		acc, err := d.Accounts.Get(c.UserContext(), web.Actor(c), c.Params("id"))
		if err != nil {
			return err
		}
		return web.Render(c, "admin/detail", acc.FullName, "admin", fiber.Map{
			"Account": acc,
			"Roles":   []models.Role{models.RoleTeacher, models.RoleStudent},
			"Genders": []models.Gender{models.Male, models.Female, models.Other},
		})
	}
}

func CreateAccount(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := d.Accounts.Create(c.UserContext(), web.Actor(c), AccountForm(c)); err != nil {
			return err
		}
		return web.RedirectWith(c, "/Admin", web.FlashCreated)
	}
}

func UpdateAccount(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		acc, err := d.Accounts.Update(c.UserContext(), web.Actor(c), c.Params("id"), AccountForm(c))
		if err != nil {
			return err
		}
		return web.RedirectWith(c, "/Admin/Detail/"+acc.ID, web.FlashSaved)
	}
}

func DeleteAccount(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := d.Accounts.Delete(c.UserContext(), web.Actor(c), c.Params("id")); err != nil {
			return err
		}
		return web.RedirectWith(c, "/Admin", web.FlashDeleted)
	}
}

// ExportAccounts writes the CSV export and sends the admin to its download.
func ExportAccounts(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := d.Accounts.ExportCSV(c.UserContext(), web.Actor(c))
		if err != nil {
			return err
		}
		return c.Redirect(services.ExportURLPrefix + name)
	}
}

// AccountForm reads an account form. An unknown role is left empty and
// rejected by the service.
func AccountForm(c *fiber.Ctx) services.AccountInput {
	role, _ := models.ParseRole(c.FormValue("role"))
	profile := home.ProfileForm(c)
	return services.AccountInput{
		Username:   c.FormValue("username"),
		Password:   c.FormValue("password"),
		FullName:   profile.FullName,
		Role:       role,
		Gender:     profile.Gender,
		Phone:      profile.Phone,
		Address:    profile.Address,
		SubjectIDs: web.FormValues(c, "subject_ids"),
	}
}
