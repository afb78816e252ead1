// Package server assembles the Fiber application: views, middleware, the
// error handler and every route group.
package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/template/html/v2"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/routes/admin"
	"github.com/hungnqdz/exam-management/app/routes/api"
	"github.com/hungnqdz/exam-management/app/routes/auth"
	"github.com/hungnqdz/exam-management/app/routes/files"
	"github.com/hungnqdz/exam-management/app/routes/home"
	"github.com/hungnqdz/exam-management/app/routes/student"
	"github.com/hungnqdz/exam-management/app/routes/teacher"
	"github.com/hungnqdz/exam-management/app/routes/web"
	"github.com/hungnqdz/exam-management/app/templates"
)

// formOverhead is added to the largest upload cap for the other multipart
// fields.
const formOverhead = 1 << 20

func New(d *web.Deps) *fiber.App {
	engine := html.NewFileSystem(http.FS(templates.FS), ".html")
	engine.AddFunc("score", formatScore)
	engine.Reload(d.Config.IsDevelopment())

	app := fiber.New(fiber.Config{
		AppName:           web.AppName,
		Views:             engine,
		ViewsLayout:       "layouts/main",
		PassLocalsToViews: true,
		ErrorHandler:      customErrorHandler,
		BodyLimit:         bodyLimit(d),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(helmet.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/Home/Index")
	})

	auth.SetupAuthRoutes(app, d)
	home.SetupHomeRoutes(app, d)
	admin.SetupAdminRoutes(app, d)
	teacher.SetupTeacherRoutes(app, d)
	student.SetupStudentRoutes(app, d)
	api.SetupAPIRoutes(app, d)
	files.SetupFilesRoutes(app, d)

	// Catch-all route for 404 errors (must be last)
	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	return app
}

func bodyLimit(d *web.Deps) int {
	largest := d.Config.MaxSubmissionSize
	if d.Config.MaxAvatarSize > largest {
		largest = d.Config.MaxAvatarSize
	}
	return int(largest) + formOverhead
}

func formatScore(score *float64) string {
	if score == nil {
		return "Not graded"
	}
	return strconv.FormatFloat(*score, 'f', -1, 64)
}

// customErrorHandler answers API paths with JSON and pages with the error
// template. Only fixed or service-defined messages reach the client.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := apperr.MsgInternal

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = utils.StatusMessage(code)
		if code == fiber.StatusNotFound {
			message = "Page not found."
		}
	} else {
		code = apperr.Status(apperr.KindOf(err))
		message = apperr.PublicMessage(err)
		if apperr.Loggable(err) {
			log.Printf("%s %s: %v", c.Method(), c.Path(), err)
		}
	}

	if web.IsAPI(c) {
		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   message,
			"code":    code,
		})
	}

	renderErr := c.Status(code).Render("error", fiber.Map{
		"Title":        utils.StatusMessage(code) + " - " + web.AppName,
		"CurrentPage":  "",
		"ErrorCode":    code,
		"ErrorTitle":   utils.StatusMessage(code),
		"ErrorMessage": message,
	})
	if renderErr != nil {
		log.Printf("render error page: %v", renderErr)
		return c.Status(code).SendString(message)
	}
	return nil
}
