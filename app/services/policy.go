package services

import (
	"context"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
)

type ResourceType string

const (
	ResourceExam       ResourceType = "Exam"
	ResourceSubmission ResourceType = "Submission"
	ResourceStudent    ResourceType = "Student"
	ResourceAccount    ResourceType = "Account"
	ResourceAvatar     ResourceType = "Avatar"
	ResourceExport     ResourceType = "Export"
)

type Action string

const (
	ActionView            Action = "View"
	ActionList            Action = "List"
	ActionCreate          Action = "Create"
	ActionUpdate          Action = "Update"
	ActionDelete          Action = "Delete"
	ActionExport          Action = "Export"
	ActionSubmit          Action = "Submit"
	ActionGrade           Action = "Grade"
	ActionListSubmissions Action = "ListSubmissions"
)

// Resource describes the target of an action. Only the fields the matching
// rule looks at need to be set.
type Resource struct {
	Type ResourceType
	// SubjectID is the exam's subject, for exams and submissions.
	SubjectID string
	// OwnerID is the submitting student of a submission, or the target
	// student account.
	OwnerID string
	// SubjectIDs are the subjects a new student is to be enrolled in.
	SubjectIDs []string
}

// relation is a relationship gate. It runs only for non-admin actors that
// already passed the role gate.
type relation func(ctx context.Context, s SubjectStore, actor *models.Actor, res Resource) (bool, error)

type rule struct {
	roles    []models.Role
	relation relation
}

func (r rule) allows(role models.Role) bool {
	for _, allowed := range r.roles {
		if allowed == role {
			return true
		}
	}
	return false
}

var (
	staff      = []models.Role{models.RoleAdmin, models.RoleTeacher}
	everyone   = []models.Role{models.RoleAdmin, models.RoleTeacher, models.RoleStudent}
	adminsOnly = []models.Role{models.RoleAdmin}
)

var rules = map[ResourceType]map[Action]rule{
	ResourceExam: {
		ActionView:            {everyone, examMember},
		ActionCreate:          {staff, teachesSubject},
		ActionUpdate:          {staff, teachesSubject},
		ActionDelete:          {staff, teachesSubject},
		ActionListSubmissions: {staff, teachesSubject},
		ActionSubmit:          {[]models.Role{models.RoleStudent}, enrolledInSubject},
	},
	ResourceSubmission: {
		ActionView:  {everyone, submissionParty},
		ActionGrade: {staff, teachesSubject},
	},
	ResourceStudent: {
		ActionView:   {staff, sharesSubject},
		ActionUpdate: {staff, sharesSubject},
		ActionDelete: {staff, sharesSubject},
		ActionCreate: {staff, teachesAll},
	},
	ResourceAccount: {
		ActionList:   {adminsOnly, nil},
		ActionView:   {adminsOnly, nil},
		ActionCreate: {adminsOnly, nil},
		ActionUpdate: {adminsOnly, nil},
		ActionDelete: {adminsOnly, nil},
		ActionExport: {adminsOnly, nil},
	},
	ResourceAvatar: {
		ActionView: {everyone, nil},
	},
	ResourceExport: {
		ActionView: {adminsOnly, nil},
	},
}

// Policy is the single authorization evaluator.
type Policy struct {
	subjects SubjectStore
}

func NewPolicy(subjects SubjectStore) *Policy {
	return &Policy{subjects: subjects}
}

// Authorize returns nil when actor may perform action on res and a generic
// Forbidden error otherwise. Unknown (resource, action) pairs are denied.
func (p *Policy) Authorize(ctx context.Context, actor *models.Actor, action Action, res Resource) error {
	if actor == nil {
		return apperr.New(apperr.Unauthenticated, apperr.MsgUnauthenticated)
	}
	r, ok := rules[res.Type][action]
	if !ok || !r.allows(actor.Role) {
		return apperr.Forbid()
	}
	if actor.IsAdmin() || r.relation == nil {
		return nil
	}
	allowed, err := r.relation(ctx, p.subjects, actor, res)
	if err != nil {
		return err
	}
	if !allowed {
		return apperr.Forbid()
	}
	return nil
}

func teachesSubject(ctx context.Context, s SubjectStore, actor *models.Actor, res Resource) (bool, error) {
	if !actor.Is(models.RoleTeacher) || res.SubjectID == "" {
		return false, nil
	}
	return s.Teaches(ctx, actor.ID, res.SubjectID)
}

func enrolledInSubject(ctx context.Context, s SubjectStore, actor *models.Actor, res Resource) (bool, error) {
	if !actor.Is(models.RoleStudent) || res.SubjectID == "" {
		return false, nil
	}
	return s.IsEnrolled(ctx, actor.ID, res.SubjectID)
}

func examMember(ctx context.Context, s SubjectStore, actor *models.Actor, res Resource) (bool, error) {
	if actor.Is(models.RoleTeacher) {
		return teachesSubject(ctx, s, actor, res)
	}
	return enrolledInSubject(ctx, s, actor, res)
}

func submissionParty(ctx context.Context, s SubjectStore, actor *models.Actor, res Resource) (bool, error) {
	if actor.Is(models.RoleStudent) {
		return res.OwnerID != "" && res.OwnerID == actor.ID, nil
	}
	return teachesSubject(ctx, s, actor, res)
}

func sharesSubject(ctx context.Context, s SubjectStore, actor *models.Actor, res Resource) (bool, error) {
	if !actor.Is(models.RoleTeacher) || res.OwnerID == "" {
		return false, nil
	}
	return s.SharesSubject(ctx, actor.ID, res.OwnerID)
}

func teachesAll(ctx context.Context, s SubjectStore, actor *models.Actor, res Resource) (bool, error) {
	if !actor.Is(models.RoleTeacher) || len(res.SubjectIDs) == 0 {
		return false, nil
	}
	for _, id := range res.SubjectIDs {
		ok, err := s.Teaches(ctx, actor.ID, id)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
