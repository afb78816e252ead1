package student

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/routes/auth"
	"github.com/hungnqdz/exam-management/app/routes/web"
	"github.com/hungnqdz/exam-management/app/services"
)

func SetupStudentRoutes(app *fiber.App, d *web.Deps) {
	student := app.Group("/Student",
		auth.AuthMiddleware(d),
		auth.RoleMiddleware(models.RoleStudent),
		auth.CSRFMiddleware(d),
	)

	student.Get("/", ExamsPage(d))
	student.Get("/Exam/:id", ExamPage(d))
	student.Post("/Exam/Submit", SubmitExam(d))
}

func ExamsPage(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		exams, err := d.Exams.ListForActor(c.UserContext(), web.Actor(c))
		if err != nil {
			return err
		}
		return web.Render(c, "student/index", "My Exams", "student", fiber.Map{
			"Exams": exams,
		})
	}
}

// ExamPage shows the exam and the student's own submission, if any.
func ExamPage(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		actor := web.Actor(c)
		exam, err := d.Exams.Get(ctx, actor, c.Params("id"))
		if err != nil {
			return err
		}
		sub, err := d.Exams.StudentSubmission(ctx, actor, exam.ID)
		if err != nil {
			return err
		}
		return web.Render(c, "student/exam", exam.Title, "student", fiber.Map{
			"Exam":       exam,
			"Submission": sub,
		})
	}
}

func SubmitExam(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, err := Submit(c, d)
		if err != nil {
			return err
		}
		return web.RedirectWith(c, "/Student/Exam/"+sub.ExamID, web.FlashSubmitted)
	}
}

// Submit reads the exam_id field and the file part of a multipart upload.
func Submit(c *fiber.Ctx, d *web.Deps) (*models.Submission, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, apperr.Validation("Please choose a file to upload.")
	}
	return d.Exams.Submit(c.UserContext(), web.Actor(c), c.FormValue("exam_id"), services.UploadFromHeader(fh))
}
