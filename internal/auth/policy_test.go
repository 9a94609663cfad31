package auth

import (
	"testing"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func deptPtr(id uint) *uint { return &id }

func TestCan(t *testing.T) {
	hod := &Session{UserID: "hod-1", Role: models.RoleHOD, DepartmentID: deptPtr(1)}
	teacher := &Session{UserID: "t-1", Role: models.RoleTeacher, DepartmentID: deptPtr(1)}
	asst := &Session{UserID: "a-1", Role: models.RoleAsstDean}
	dean := &Session{UserID: "d-1", Role: models.RoleDean}
	admin := &Session{UserID: "root", Role: models.RoleAdmin}

	tests := []struct {
		name    string
		session *Session
		action  Action
		owner   Owner
		want    bool
	}{
		{"admin manages terms", admin, ActionManageTerms, Owner{}, true},
		{"dean cannot manage terms", dean, ActionManageTerms, Owner{}, false},
		{"hod manages own department questions", hod, ActionManageQuestions, InDepartment(1), true},
		{"hod cannot manage other department questions", hod, ActionManageQuestions, InDepartment(2), false},
		{"hod needs a known department", hod, ActionManageQuestions, Owner{}, false},
		{"teacher cannot manage questions", teacher, ActionManageQuestions, InDepartment(1), false},
		{"teacher submits for self", teacher, ActionSubmitEvaluation, OwnedBy("t-1", deptPtr(1)), true},
		{"teacher cannot submit for others", teacher, ActionSubmitEvaluation, OwnedBy("t-2", deptPtr(1)), false},
		{"hod reviews own department teacher", hod, ActionHodReview, OwnedBy("t-1", deptPtr(1)), true},
		{"hod cannot review other department", hod, ActionHodReview, OwnedBy("t-9", deptPtr(2)), false},
		{"asst dean reviews any teacher", asst, ActionAsstReview, OwnedBy("t-9", deptPtr(2)), true},
		{"hod cannot do asst review", hod, ActionAsstReview, OwnedBy("t-1", deptPtr(1)), false},
		{"dean finalizes", dean, ActionFinalReview, OwnedBy("t-1", deptPtr(1)), true},
		{"asst dean cannot finalize", asst, ActionFinalReview, OwnedBy("t-1", deptPtr(1)), false},
		{"admin cannot finalize", admin, ActionFinalReview, OwnedBy("t-1", deptPtr(1)), false},
		{"hod views own performance pipeline", hod, ActionViewHodPipeline, OwnedBy("hod-1", deptPtr(1)), true},
		{"hod cannot view peer pipeline", hod, ActionViewHodPipeline, OwnedBy("hod-2", deptPtr(1)), false},
		{"teacher cannot view reports", teacher, ActionViewReports, InDepartment(1), false},
		{"nil session", nil, ActionViewQuestions, InDepartment(1), false},
		{"unknown action", admin, Action("nope"), Owner{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.session, tt.action, tt.owner))
		})
	}
}

func TestRolesFor(t *testing.T) {
	assert.Equal(t, []models.UserRole{models.RoleDean}, RolesFor(ActionFinalReview))
	assert.Equal(t, []models.UserRole{models.RoleHOD, models.RoleAdmin}, RolesFor(ActionCompleteVisibility))
}
