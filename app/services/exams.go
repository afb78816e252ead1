package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/storage"
)

const (
	maxTitleLength = 200
	MinScore       = 0.0
	MaxScore       = 10.0
)

type ExamInput struct {
	Title     string
	Content   string
	SubjectID string
}

func (in *ExamInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.SubjectID = strings.TrimSpace(in.SubjectID)
	if in.Title == "" {
		return apperr.Validation("Title is required.")
	}
	if utf8.RuneCountInString(in.Title) > maxTitleLength {
		return apperr.Validation("Title must be at most 200 characters.")
	}
	if in.Content == "" {
		return apperr.Validation("Content is required.")
	}
	if in.SubjectID == "" {
		return apperr.Validation("Subject is required.")
	}
	return nil
}

type ExamService struct {
	repo          Repository
	policy        *Policy
	files         storage.Store
	maxSubmission int64
}

func NewExamService(repo Repository, policy *Policy, files storage.Store, maxSubmission int64) *ExamService {
	return &ExamService{repo: repo, policy: policy, files: files, maxSubmission: maxSubmission}
}

// ListForActor returns the exams the actor can see: all of them for admins,
// otherwise those of the actor's subjects.
func (s *ExamService) ListForActor(ctx context.Context, actor *models.Actor) ([]*models.Exam, error) {
	if actor == nil {
		return nil, apperr.New(apperr.Unauthenticated, apperr.MsgUnauthenticated)
	}
	if actor.IsAdmin() {
		return s.repo.ListExams(ctx)
	}
	return s.repo.ListExamsForAccount(ctx, actor.ID)
}

// exam loads an exam and authorizes action on it.
func (s *ExamService) exam(ctx context.Context, actor *models.Actor, action Action, id string) (*models.Exam, error) {
	if actor == nil {
		return nil, apperr.New(apperr.Unauthenticated, apperr.MsgUnauthenticated)
	}
	exam, err := s.repo.GetExam(ctx, id)
	if err != nil {
		return nil, concealMissing(actor, err)
	}
	res := Resource{Type: ResourceExam, SubjectID: exam.SubjectID}
	if err := s.policy.Authorize(ctx, actor, action, res); err != nil {
		return nil, err
	}
	return exam, nil
}

func (s *ExamService) Get(ctx context.Context, actor *models.Actor, id string) (*models.Exam, error) {
	return s.exam(ctx, actor, ActionView, id)
}

func (s *ExamService) Create(ctx context.Context, actor *models.Actor, in ExamInput) (*models.Exam, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	res := Resource{Type: ResourceExam, SubjectID: in.SubjectID}
	if err := s.policy.Authorize(ctx, actor, ActionCreate, res); err != nil {
		return nil, err
	}
	exam := &models.Exam{
		Title:     in.Title,
		Content:   in.Content,
		SubjectID: in.SubjectID,
		CreatedBy: actor.ID,
	}
	if err := s.repo.CreateExam(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// Update edits an exam. Moving it to another subject requires the same
// rights on the new subject.
func (s *ExamService) Update(ctx context.Context, actor *models.Actor, id string, in ExamInput) (*models.Exam, error) {
	exam, err := s.exam(ctx, actor, ActionUpdate, id)
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if in.SubjectID != exam.SubjectID {
		res := Resource{Type: ResourceExam, SubjectID: in.SubjectID}
		if err := s.policy.Authorize(ctx, actor, ActionUpdate, res); err != nil {
			return nil, err
		}
	}
	exam.Title, exam.Content, exam.SubjectID = in.Title, in.Content, in.SubjectID
	if err := s.repo.UpdateExam(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// Delete removes the exam, its submissions and their stored files.
func (s *ExamService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	exam, err := s.exam(ctx, actor, ActionDelete, id)
	if err != nil {
		return err
	}
	subs, err := s.repo.ListSubmissionsForExam(ctx, exam.ID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteExam(ctx, exam.ID); err != nil {
		return err
	}
	for _, sub := range subs {
		discard(ctx, s.files, storage.Submissions, sub.FileName)
	}
	return nil
}

// Submissions lists an exam's submissions for grading.
func (s *ExamService) Submissions(ctx context.Context, actor *models.Actor, examID string) (*models.Exam, []*models.Submission, error) {
	exam, err := s.exam(ctx, actor, ActionListSubmissions, examID)
	if err != nil {
		return nil, nil, err
	}
	subs, err := s.repo.ListSubmissionsForExam(ctx, exam.ID)
	if err != nil {
		return nil, nil, err
	}
	return exam, subs, nil
}

// StudentSubmission returns the actor's own submission for the exam, or nil
// when there is none yet.
func (s *ExamService) StudentSubmission(ctx context.Context, actor *models.Actor, examID string) (*models.Submission, error) {
	exam, err := s.exam(ctx, actor, ActionView, examID)
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.GetStudentSubmission(ctx, exam.ID, actor.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

// Submit stores a student's answer file. The bytes are kept verbatim under a
// generated name; nothing about them is interpreted beyond the signature
// check in validation.
func (s *ExamService) Submit(ctx context.Context, actor *models.Actor, examID string, up Upload) (*models.Submission, error) {
	exam, err := s.exam(ctx, actor, ActionSubmit, examID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetStudentSubmission(ctx, exam.ID, actor.ID); err == nil {
		return nil, apperr.Conflictf("You have already submitted this exam.")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	file, err := submissionUploads.validate(up, s.maxSubmission)
	if err != nil {
		return nil, err
	}

	name := "exam_" + exam.ID + "_student_" + actor.ID + "_" + uuid.NewString() + file.ext
	size, err := putUpload(ctx, s.files, storage.Submissions, name, file.Upload, s.maxSubmission)
	if err != nil {
		return nil, err
	}

	sub := &models.Submission{
		ExamID:       exam.ID,
		StudentID:    actor.ID,
		FileName:     name,
		OriginalName: file.originalName,
		ContentType:  file.contentType,
		Size:         size,
		StudentName:  actor.FullName,
		SubjectID:    exam.SubjectID,
		ExamTitle:    exam.Title,
	}
	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		discard(ctx, s.files, storage.Submissions, name)
		return nil, err
	}
	return sub, nil
}

// Grade records a score in [0, 10]. Invalid scores change nothing.
func (s *ExamService) Grade(ctx context.Context, actor *models.Actor, submissionID string, score float64) (*models.Submission, error) {
	if actor == nil {
		return nil, apperr.New(apperr.Unauthenticated, apperr.MsgUnauthenticated)
	}
	sub, err := s.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, concealMissing(actor, err)
	}
	res := Resource{Type: ResourceSubmission, SubjectID: sub.SubjectID, OwnerID: sub.StudentID}
	if err := s.policy.Authorize(ctx, actor, ActionGrade, res); err != nil {
		return nil, err
	}
	if math.IsNaN(score) || math.IsInf(score, 0) || score < MinScore || score > MaxScore {
		return nil, apperr.Validation("Score must be between 0 and 10.")
	}
	if err := s.repo.GradeSubmission(ctx, sub.ID, score, actor.ID); err != nil {
		return nil, err
	}
	grader := actor.ID
	sub.Score, sub.GradedBy = &score, &grader
	return sub, nil
}
