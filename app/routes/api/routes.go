package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/routes/auth"
	"github.com/hungnqdz/exam-management/app/routes/student"
	"github.com/hungnqdz/exam-management/app/routes/web"
)

func SetupAPIRoutes(app *fiber.App, d *web.Deps) {
	api := app.Group("/api", auth.AuthMiddleware(d), auth.CSRFMiddleware(d))

	api.Get("/csrf", GetCSRFTokenAPI)

	studentAPI := api.Group("/Student", auth.RoleMiddleware(models.RoleStudent))
	studentAPI.Get("/Exams", GetExamsAPI(d))
	studentAPI.Get("/Exam/:id", GetExamAPI(d))
	studentAPI.Post("/SubmitExam", SubmitExamAPI(d))

	teacherAPI := api.Group("/Teacher", auth.RoleMiddleware(models.RoleTeacher))
	teacherAPI.Get("/Exams/:id/Submissions", GetSubmissionsAPI(d))
	teacherAPI.Post("/Grade", GradeAPI(d))
}

func GetCSRFTokenAPI(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"token":   web.CSRFToken(c),
	})
}

func GetExamsAPI(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		exams, err := d.Exams.ListForActor(c.UserContext(), web.Actor(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "exams": exams})
	}
}

func GetExamAPI(d *web.Deps) fiber.Handler {
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
		return c.JSON(fiber.Map{"success": true, "exam": exam, "submission": sub})
	}
}

func SubmitExamAPI(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, err := student.Submit(c, d)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "submission": sub})
	}
}

func GetSubmissionsAPI(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		exam, subs, err := d.Exams.Submissions(c.UserContext(), web.Actor(c), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "exam": exam, "submissions": subs})
	}
}

// GradeRequest accepts JSON or form bodies.
type GradeRequest struct {
	SubmissionID string   `json:"submission_id" form:"submission_id"`
	Score        *float64 `json:"score" form:"score"`
}

func GradeAPI(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req GradeRequest
		if err := c.BodyParser(&req); err != nil || req.Score == nil {
			return apperr.Validation("Score must be a number between 0 and 10.")
		}
		sub, err := d.Exams.Grade(c.UserContext(), web.Actor(c), req.SubmissionID, *req.Score)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "submission": sub})
	}
}
