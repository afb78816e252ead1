// Package servicestest provides an in-memory repository for tests of code
// built on the services package.
package servicestest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
)

// Repo is an in-memory services.Repository with the uniqueness and
// not-found behavior of the Postgres store. Subjects math, physics and
// literature exist from the start.
type Repo struct {
	mu       sync.Mutex
	seq      int
	accounts map[string]*models.Account
	subjects map[string]*models.Subject
	enroll   map[string]map[string]models.Role
	exams    map[string]*models.Exam
	subs     map[string]*models.Submission
}

func NewRepo() *Repo {
	r := &Repo{
		accounts: map[string]*models.Account{},
		subjects: map[string]*models.Subject{},
		enroll:   map[string]map[string]models.Role{},
		exams:    map[string]*models.Exam{},
		subs:     map[string]*models.Submission{},
	}
	for _, name := range []string{"Math", "Physics", "Literature"} {
		id := strings.ToLower(name)
		r.subjects[id] = &models.Subject{ID: id, Name: name}
	}
	return r
}

func (r *Repo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s%d", prefix, r.seq)
}

func (r *Repo) accountCopy(a *models.Account) *models.Account {
	c := *a
	c.Subjects = nil
	ids := make([]string, 0)
	for sid := range r.enroll[a.ID] {
		ids = append(ids, sid)
	}
	sort.Strings(ids)
	for _, sid := range ids {
		c.Subjects = append(c.Subjects, r.subjects[sid])
	}
	return &c
}

func (r *Repo) CreateAccount(_ context.Context, acc *models.Account, subjectIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if strings.EqualFold(a.Username, acc.Username) {
			return apperr.Conflictf("Username is already taken.")
		}
	}
	for _, sid := range subjectIDs {
		if _, ok := r.subjects[sid]; !ok {
			return apperr.Validation("Unknown subject.")
		}
	}
	acc.ID = r.nextID("acc")
	acc.CreatedAt, acc.UpdatedAt = time.Now(), time.Now()
	stored := *acc
	r.accounts[acc.ID] = &stored
	if acc.Role != models.RoleAdmin {
		r.enroll[acc.ID] = map[string]models.Role{}
		for _, sid := range subjectIDs {
			r.enroll[acc.ID][sid] = acc.Role
		}
	}
	return nil
}

func (r *Repo) GetAccountByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, apperr.NotFoundf("account not found")
	}
	return r.accountCopy(a), nil
}

func (r *Repo) GetAccountByUsername(_ context.Context, username string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if strings.EqualFold(a.Username, username) {
			return r.accountCopy(a), nil
		}
	}
	return nil, apperr.NotFoundf("account not found")
}

func (r *Repo) sortedAccounts(keep func(*models.Account) bool) []*models.Account {
	out := []*models.Account{}
	for _, a := range r.accounts {
		if keep(a) {
			out = append(out, r.accountCopy(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (r *Repo) ListAccounts(_ context.Context) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedAccounts(func(*models.Account) bool { return true }), nil
}

func (r *Repo) SearchAccounts(_ context.Context, term string) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	term = strings.ToLower(term)
	return r.sortedAccounts(func(a *models.Account) bool {
		return strings.Contains(strings.ToLower(a.Username), term) ||
			strings.Contains(strings.ToLower(a.FullName), term)
	}), nil
}

func (r *Repo) ListStudentsForTeacher(_ context.Context, teacherID string) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedAccounts(func(a *models.Account) bool {
		return a.Role == models.RoleStudent && r.shares(teacherID, a.ID)
	}), nil
}

func (r *Repo) UpdateAccount(_ context.Context, acc *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[acc.ID]
	if !ok {
		return apperr.NotFoundf("account not found")
	}
	a.FullName, a.Role, a.Gender, a.Phone, a.Address = acc.FullName, acc.Role, acc.Gender, acc.Phone, acc.Address
	if acc.Role != models.RoleAdmin {
		for sid := range r.enroll[acc.ID] {
			r.enroll[acc.ID][sid] = acc.Role
		}
	}
	return nil
}

func (r *Repo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return apperr.NotFoundf("account not found")
	}
	a.PasswordHash = hash
	return nil
}

func (r *Repo) UpdateAvatar(_ context.Context, id, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return apperr.NotFoundf("account not found")
	}
	a.AvatarURL = url
	return nil
}

func (r *Repo) DeleteAccount(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return apperr.NotFoundf("account not found")
	}
	for _, s := range r.subs {
		if s.StudentID == id || (s.GradedBy != nil && *s.GradedBy == id) {
			return apperr.Conflictf("account is referenced by other records")
		}
	}
	for _, e := range r.exams {
		if e.CreatedBy == id {
			return apperr.Conflictf("account is referenced by other records")
		}
	}
	delete(r.accounts, id)
	delete(r.enroll, id)
	return nil
}

func (r *Repo) GetDashboardStats(_ context.Context) (*models.DashboardStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.DashboardStats{Exams: len(r.exams), Submissions: len(r.subs)}
	for _, a := range r.accounts {
		switch a.Role {
		case models.RoleTeacher:
			stats.Teachers++
		case models.RoleStudent:
			stats.Students++
		}
	}
	for _, sub := range r.subs {
		if sub.Score == nil {
			stats.Ungraded++
		}
	}
	return stats, nil
}

func (r *Repo) ListSubjects(_ context.Context) ([]*models.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Subject{}
	for _, s := range r.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Repo) SubjectsExist(_ context.Context, ids []string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.subjects[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r *Repo) SubjectsForAccount(ctx context.Context, accountID string) ([]*models.Subject, error) {
	acc, err := r.GetAccountByID(ctx, accountID)
	if err != nil {
		return []*models.Subject{}, nil
	}
	return acc.Subjects, nil
}

func (r *Repo) Teaches(_ context.Context, teacherID, subjectID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enroll[teacherID][subjectID] == models.RoleTeacher, nil
}

func (r *Repo) IsEnrolled(_ context.Context, studentID, subjectID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enroll[studentID][subjectID] == models.RoleStudent, nil
}

func (r *Repo) shares(teacherID, studentID string) bool {
	for sid, standing := range r.enroll[teacherID] {
		if standing == models.RoleTeacher && r.enroll[studentID][sid] == models.RoleStudent {
			return true
		}
	}
	return false
}

func (r *Repo) SharesSubject(_ context.Context, teacherID, studentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shares(teacherID, studentID), nil
}

func (r *Repo) CreateExam(_ context.Context, exam *models.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	subject, ok := r.subjects[exam.SubjectID]
	if !ok {
		return apperr.Validation("Unknown subject.")
	}
	exam.ID = r.nextID("exam")
	exam.SubjectName = subject.Name
	exam.CreatedAt, exam.UpdatedAt = time.Now(), time.Now()
	stored := *exam
	r.exams[exam.ID] = &stored
	return nil
}

func (r *Repo) GetExam(_ context.Context, id string) (*models.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exams[id]
	if !ok {
		return nil, apperr.NotFoundf("exam not found")
	}
	c := *e
	return &c, nil
}

func (r *Repo) UpdateExam(_ context.Context, exam *models.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exams[exam.ID]
	if !ok {
		return apperr.NotFoundf("exam not found")
	}
	e.Title, e.Content, e.SubjectID = exam.Title, exam.Content, exam.SubjectID
	return nil
}

func (r *Repo) DeleteExam(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exams[id]; !ok {
		return apperr.NotFoundf("exam not found")
	}
	delete(r.exams, id)
	for sid, s := range r.subs {
		if s.ExamID == id {
			delete(r.subs, sid)
		}
	}
	return nil
}

func (r *Repo) listExams(keep func(*models.Exam) bool) []*models.Exam {
	out := []*models.Exam{}
	for _, e := range r.exams {
		if keep(e) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Repo) ListExams(_ context.Context) ([]*models.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listExams(func(*models.Exam) bool { return true }), nil
}

func (r *Repo) ListExamsForAccount(_ context.Context, accountID string) ([]*models.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listExams(func(e *models.Exam) bool {
		_, ok := r.enroll[accountID][e.SubjectID]
		return ok
	}), nil
}

func (r *Repo) CreateSubmission(_ context.Context, sub *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.ExamID == sub.ExamID && s.StudentID == sub.StudentID {
			return apperr.Conflictf("You have already submitted this exam.")
		}
	}
	sub.ID = r.nextID("sub")
	sub.SubmittedAt = time.Now()
	stored := *sub
	r.subs[sub.ID] = &stored
	return nil
}

func (r *Repo) joined(s *models.Submission) *models.Submission {
	c := *s
	if e, ok := r.exams[s.ExamID]; ok {
		c.SubjectID, c.ExamTitle = e.SubjectID, e.Title
	}
	if a, ok := r.accounts[s.StudentID]; ok {
		c.StudentName = a.FullName
	}
	return &c
}

func (r *Repo) findSubmission(keep func(*models.Submission) bool) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if keep(s) {
			return r.joined(s), nil
		}
	}
	return nil, apperr.NotFoundf("submission not found")
}

func (r *Repo) GetSubmission(_ context.Context, id string) (*models.Submission, error) {
	return r.findSubmission(func(s *models.Submission) bool { return s.ID == id })
}

func (r *Repo) GetSubmissionByFileName(_ context.Context, name string) (*models.Submission, error) {
	return r.findSubmission(func(s *models.Submission) bool { return s.FileName == name })
}

func (r *Repo) GetStudentSubmission(_ context.Context, examID, studentID string) (*models.Submission, error) {
	return r.findSubmission(func(s *models.Submission) bool {
		return s.ExamID == examID && s.StudentID == studentID
	})
}

func (r *Repo) ListSubmissionsForExam(_ context.Context, examID string) ([]*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Submission{}
	for _, s := range r.subs {
		if s.ExamID == examID {
			out = append(out, r.joined(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repo) GradeSubmission(_ context.Context, id string, score float64, graderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return apperr.NotFoundf("submission not found")
	}
	grader := graderID
	s.Score, s.GradedBy = &score, &grader
	return nil
}
