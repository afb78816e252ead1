package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hungnqdz/exam-management/app/apperr"
	"github.com/hungnqdz/exam-management/app/models"
)

func TestPolicyRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mathExam := Resource{Type: ResourceExam, SubjectID: "math"}
	litExam := Resource{Type: ResourceExam, SubjectID: "literature"}

	tests := []struct {
		name   string
		actor  *models.Actor
		action Action
		res    Resource
		allow  bool
	}{
		{"student views exam of enrolled subject", f.alice, ActionView, mathExam, true},
		{"student views exam of other subject", f.alice, ActionView, litExam, false},
		{"student submits to enrolled subject", f.alice, ActionSubmit, mathExam, true},
		{"student cannot create exams", f.alice, ActionCreate, mathExam, false},
		{"teacher views taught subject", f.mathTeacher, ActionView, mathExam, true},
		{"teacher views other subject", f.mathTeacher, ActionView, litExam, false},
		{"teacher creates in taught subject", f.mathTeacher, ActionCreate, mathExam, true},
		{"teacher creates in other subject", f.mathTeacher, ActionCreate, litExam, false},
		{"teacher cannot submit", f.mathTeacher, ActionSubmit, mathExam, false},
		{"admin bypasses subject gate", f.admin, ActionDelete, litExam, true},
		{"admin cannot submit", f.admin, ActionSubmit, mathExam, false},

		{"owner views submission", f.alice, ActionView,
			Resource{Type: ResourceSubmission, SubjectID: "math", OwnerID: f.alice.ID}, true},
		{"classmate cannot view submission", f.bob, ActionView,
			Resource{Type: ResourceSubmission, SubjectID: "math", OwnerID: f.alice.ID}, false},
		{"subject teacher grades", f.mathTeacher, ActionGrade,
			Resource{Type: ResourceSubmission, SubjectID: "math", OwnerID: f.alice.ID}, true},
		{"other teacher cannot grade", f.litTeacher, ActionGrade,
			Resource{Type: ResourceSubmission, SubjectID: "math", OwnerID: f.alice.ID}, false},
		{"student cannot grade own submission", f.alice, ActionGrade,
			Resource{Type: ResourceSubmission, SubjectID: "math", OwnerID: f.alice.ID}, false},

		{"teacher edits own student", f.mathTeacher, ActionUpdate,
			Resource{Type: ResourceStudent, OwnerID: f.alice.ID}, true},
		{"teacher edits unrelated student", f.litTeacher, ActionUpdate,
			Resource{Type: ResourceStudent, OwnerID: f.alice.ID}, false},
		{"teacher creates student in taught subjects", f.mathTeacher, ActionCreate,
			Resource{Type: ResourceStudent, SubjectIDs: []string{"math"}}, true},
		{"teacher creates student in untaught subject", f.mathTeacher, ActionCreate,
			Resource{Type: ResourceStudent, SubjectIDs: []string{"math", "physics"}}, false},
		{"teacher creates student without subjects", f.mathTeacher, ActionCreate,
			Resource{Type: ResourceStudent}, false},

		{"admin lists accounts", f.admin, ActionList, Resource{Type: ResourceAccount}, true},
		{"teacher cannot list accounts", f.mathTeacher, ActionList, Resource{Type: ResourceAccount}, false},
		{"student views avatars", f.alice, ActionView, Resource{Type: ResourceAvatar}, true},
		{"student cannot view exports", f.alice, ActionView, Resource{Type: ResourceExport}, false},
		{"admin views exports", f.admin, ActionView, Resource{Type: ResourceExport}, true},
		{"unknown action is denied", f.admin, ActionGrade, Resource{Type: ResourceAvatar}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.policy.Authorize(ctx, tt.actor, tt.action, tt.res)
			if tt.allow {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, apperr.ErrForbidden), "got %v", err)
			assert.Equal(t, apperr.MsgForbidden, apperr.PublicMessage(err))
		})
	}
}

func TestPolicyRequiresActor(t *testing.T) {
	f := newFixture(t)
	err := f.policy.Authorize(context.Background(), nil, ActionView, Resource{Type: ResourceAvatar})
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

// Every (resource, action) pair is reachable from the same rule table, so
// the gates for a resource are the same whichever handler asks.
func TestPolicyRulesCoverEveryRoleGate(t *testing.T) {
	for typ, actions := range rules {
		for action, r := range actions {
			assert.NotEmpty(t, r.roles, "%s/%s has no roles", typ, action)
		}
	}
}
