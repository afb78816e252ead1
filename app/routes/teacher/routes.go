package teacher

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/routes/admin"
	"github.com/hungnqdz/exam-management/app/routes/auth"
	"github.com/hungnqdz/exam-management/app/routes/home"
	"github.com/hungnqdz/exam-management/app/routes/web"
	"github.com/hungnqdz/exam-management/app/services"
)

func SetupTeacherRoutes(app *fiber.App, d *web.Deps) {
	teacher := app.Group("/Teacher",
		auth.AuthMiddleware(d),
		auth.RoleMiddleware(models.RoleTeacher),
		auth.CSRFMiddleware(d),
	)

	// Students
	teacher.Get("/Students", StudentsPage(d))
	teacher.Post("/Students/Create", CreateStudent(d))
	teacher.Post("/Students/Edit/:id", UpdateStudent(d))
	teacher.Post("/Students/Delete/:id", DeleteStudent(d))

	// Exams
	teacher.Get("/Exams", ExamsPage(d))
	teacher.Get("/Exams/Create", CreateExamPage(d))
	teacher.Post("/Exams/Create", CreateExam(d))
	teacher.Get("/Exams/Detail/:id", ExamDetailPage(d))
	teacher.Post("/Exams/Edit/:id", UpdateExam(d))
	teacher.Post("/Exams/Delete/:id", DeleteExam(d))
	teacher.Post("/Exams/Grade", GradeSubmission(d))
}

func StudentsPage(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		actor := web.Actor(c)
		search := c.Query("q")
		students, err := d.Accounts.StudentsForTeacher(ctx, actor, search)
		if err != nil {
			return err
		}
		subjects, err := d.Subjects.SubjectsForAccount(ctx, actor.ID)
		if err != nil {
			return err
		}
		return web.Render(c, "teacher/students", "Students", "students", fiber.Map{
			"Students": students,
			"Subjects": subjects,
			"Search":   search,
			"Genders":  []models.Gender{models.Male, models.Female, models.Other},
		})
	}
}

func CreateStudent(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := d.Accounts.CreateStudent(c.UserContext(), web.Actor(c), admin.AccountForm(c)); err != nil {
			return err
		}
		return web.RedirectWith(c, "/Teacher/Students", web.FlashCreated)
	}
}

func UpdateStudent(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := d.Accounts.UpdateStudent(c.UserContext(), web.Actor(c), c.Params("id"), home.ProfileForm(c)); err != nil {
			return err
		}
		return web.RedirectWith(c, "/Teacher/Students", web.FlashSaved)
	}
}

func DeleteStudent(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := d.Accounts.DeleteStudent(c.UserContext(), web.Actor(c), c.Params("id")); err != nil {
			return err
		}
		return web.RedirectWith(c, "/Teacher/Students", web.FlashDeleted)
	}
}

func ExamsPage(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		exams, err := d.Exams.ListForActor(c.UserContext(), web.Actor(c))
		if err != nil {
			return err
		}
		return web.Render(c, "teacher/exams", "Exams", "exams", fiber.Map{
			"Exams": exams,
		})
	}
}

func CreateExamPage(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subjects, err := d.Subjects.SubjectsForAccount(c.UserContext(), web.Actor(c).ID)
		if err != nil {
			return err
		}
		return web.Render(c, "teacher/exam_create", "New Exam", "exams", fiber.Map{
			"Subjects": subjects,
		})
	}
}

func CreateExam(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		exam, err := d.Exams.Create(c.UserContext(), web.Actor(c), examForm(c))
		if err != nil {
			return err
		}
		return web.RedirectWith(c, "/Teacher/Exams/Detail/"+exam.ID, web.FlashCreated)
	}
}

// ExamDetailPage shows an exam with its submissions for grading.
func ExamDetailPage(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		actor := web.Actor(c)
		exam, subs, err := d.Exams.Submissions(ctx, actor, c.Params("id"))
		if err != nil {
			return err
		}
		subjects, err := d.Subjects.SubjectsForAccount(ctx, actor.ID)
		if err != nil {
			return err
		}
		return web.Render(c, "teacher/exam_detail", exam.Title, "exams", fiber.Map{
			"Exam":        exam,
			"Submissions": subs,
			"Subjects":    subjects,
			"MinScore":    services.MinScore,
			"MaxScore":    services.MaxScore,
		})
	}
}

func UpdateExam(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		exam, err := d.Exams.Update(c.UserContext(), web.Actor(c), c.Params("id"), examForm(c))
		if err != nil {
			return err
		}
		return web.RedirectWith(c, "/Teacher/Exams/Detail/"+exam.ID, web.FlashSaved)
	}
}

func DeleteExam(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := d.Exams.Delete(c.UserContext(), web.Actor(c), c.Params("id")); err != nil {
			return err
		}
		return web.RedirectWith(c, "/Teacher/Exams", web.FlashDeleted)
	}
}

func GradeSubmission(d *web.Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		score, err := ParseScore(c.FormValue("score"))
		if err != nil {
			return err
		}
		sub, err := d.Exams.Grade(c.UserContext(), web.Actor(c), c.FormValue("submission_id"), score)
		if err != nil {
			return err
		}
		return web.RedirectWith(c, "/Teacher/Exams/Detail/"+sub.ExamID, web.FlashGraded)
	}
}

// ParseScore reads a decimal score from a form field.
func ParseScore(raw string) (float64, error) {
	score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, apperr.Validation("Score must be a number between 0 and 10.")
	}
	return score, nil
}

func examForm(c *fiber.Ctx) services.ExamInput {
	return services.ExamInput{
		Title:     c.FormValue("title"),
		Content:   c.FormValue("content"),
		SubjectID: c.FormValue("subject_id"),
	}
}
