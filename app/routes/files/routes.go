// Package files serves stored uploads. Every response goes through the
// file service, which validates the name and authorizes the caller before
// storage is touched.
package files

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hungnqdz/exam-management/app/routes/auth"
	"github.com/hungnqdz/exam-management/app/routes/web"
	"github.com/hungnqdz/exam-management/app/storage"
)

const sandboxPolicy = "default-src 'none'; sandbox"

func SetupFilesRoutes(app *fiber.App, d *web.Deps) {
	files := app.Group("/Files", auth.AuthMiddleware(d))

	files.Get("/Avatar/:name", ServeFile(d, storage.Avatars))
	files.Get("/Submission/:name", ServeFile(d, storage.Submissions))
	files.Get("/Export/:name", ServeFile(d, storage.Exports))
}

// ServeFile streams a stored file of one fixed category.
func ServeFile(d *web.Deps, category storage.Category) fiber.Handler {
	return func(c *fiber.Ctx) error {
		file, err := d.Files.Open(c.UserContext(), web.Actor(c), category, c.Params("name"))
		if err != nil {
			return err
		}

		if file.Inline {
			c.Set(fiber.HeaderContentDisposition, "inline")
		} else {
			c.Attachment(file.Name)
		}
		c.Set(fiber.HeaderContentType, file.ContentType)
		c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
		c.Set(fiber.HeaderContentSecurityPolicy, sandboxPolicy)
		return c.SendStream(file.Body)
	}
}
