package auth

import "github.com/SAP-F-2025/evaluation-service/internal/models"

// Action is a workflow capability checked by Can
type Action string

const (
	ActionManageTerms        Action = "terms:manage"
	ActionManageVisibility   Action = "visibility:manage"
	ActionCompleteVisibility Action = "visibility:complete"
	ActionViewTermState      Action = "term_state:view"

	ActionManageQuestions  Action = "questions:manage"
	ActionPublishQuestions Action = "questions:publish"
	ActionViewQuestions    Action = "questions:view"

	ActionSubmitEvaluation Action = "evaluation:submit"
	ActionViewEvaluation   Action = "evaluation:view"

	ActionHodReview         Action = "review:hod"
	ActionAsstReview        Action = "review:asst"
	ActionFinalReview       Action = "review:final"
	ActionViewPipeline      Action = "review:view"
	ActionAsstDeanHodReview Action = "hod_review:asst"
	ActionDeanHodReview     Action = "hod_review:dean"
	ActionViewHodPipeline   Action = "hod_review:view"

	ActionViewReports  Action = "reports:view"
	ActionViewActivity Action = "activity:view"
)

// Owner identifies who a resource belongs to. Zero fields are unknown.
type Owner struct {
	UserID       string
	DepartmentID *uint
}

// OwnedBy builds an Owner for a user-owned record
func OwnedBy(userID string, departmentID *uint) Owner {
	return Owner{UserID: userID, DepartmentID: departmentID}
}

// InDepartment builds an Owner for a department-owned record
func InDepartment(departmentID uint) Owner {
	return Owner{DepartmentID: &departmentID}
}

type scope int

const (
	scopeAny scope = iota
	scopeDepartment
	scopeSelf
)

var capabilities = map[Action]map[models.UserRole]scope{
	ActionManageTerms: {
		models.RoleAdmin: scopeAny,
	},
	ActionManageVisibility: {
		models.RoleAdmin: scopeAny,
	},
	ActionCompleteVisibility: {
		models.RoleAdmin: scopeAny,
		models.RoleHOD:   scopeDepartment,
	},
	ActionViewTermState: {
		models.RoleAdmin:    scopeAny,
		models.RoleDean:     scopeAny,
		models.RoleAsstDean: scopeAny,
		models.RoleHOD:      scopeDepartment,
		models.RoleTeacher:  scopeDepartment,
	},
	ActionManageQuestions: {
		models.RoleHOD: scopeDepartment,
	},
	ActionPublishQuestions: {
		models.RoleHOD: scopeDepartment,
	},
	ActionViewQuestions: {
		models.RoleAdmin:    scopeAny,
		models.RoleDean:     scopeAny,
		models.RoleAsstDean: scopeAny,
		models.RoleHOD:      scopeDepartment,
		models.RoleTeacher:  scopeDepartment,
	},
	ActionSubmitEvaluation: {
		models.RoleTeacher: scopeSelf,
	},
	ActionViewEvaluation: {
		models.RoleAdmin:    scopeAny,
		models.RoleDean:     scopeAny,
		models.RoleAsstDean: scopeAny,
		models.RoleHOD:      scopeDepartment,
		models.RoleTeacher:  scopeSelf,
	},
	ActionHodReview: {
		models.RoleHOD: scopeDepartment,
	},
	ActionAsstReview: {
		models.RoleAsstDean: scopeAny,
	},
	ActionFinalReview: {
		models.RoleDean: scopeAny,
	},
	ActionViewPipeline: {
		models.RoleAdmin:    scopeAny,
		models.RoleDean:     scopeAny,
		models.RoleAsstDean: scopeAny,
		models.RoleHOD:      scopeDepartment,
		models.RoleTeacher:  scopeSelf,
	},
	ActionAsstDeanHodReview: {
		models.RoleAsstDean: scopeAny,
	},
	ActionDeanHodReview: {
		models.RoleDean: scopeAny,
	},
	ActionViewHodPipeline: {
		models.RoleAdmin:    scopeAny,
		models.RoleDean:     scopeAny,
		models.RoleAsstDean: scopeAny,
		models.RoleHOD:      scopeSelf,
	},
	ActionViewReports: {
		models.RoleAdmin:    scopeAny,
		models.RoleDean:     scopeAny,
		models.RoleAsstDean: scopeAny,
		models.RoleHOD:      scopeDepartment,
	},
	ActionViewActivity: {
		models.RoleAdmin:    scopeAny,
		models.RoleDean:     scopeAny,
		models.RoleAsstDean: scopeAny,
		models.RoleHOD:      scopeDepartment,
	},
}

// Can is the single authorization check for every workflow operation.
// Department scope needs the owner's department to equal the session's;
// self scope needs the owner to be the session user.
func Can(s *Session, action Action, owner Owner) bool {
	if s == nil {
		return false
	}
	roles, ok := capabilities[action]
	if !ok {
		return false
	}
	sc, ok := roles[s.Role]
	if !ok {
		return false
	}

	switch sc {
	case scopeAny:
		return true
	case scopeDepartment:
		return owner.DepartmentID != nil && s.InDepartment(*owner.DepartmentID)
	case scopeSelf:
		return owner.UserID != "" && owner.UserID == s.UserID
	}
	return false
}

// RolesFor lists the roles holding a capability, for error messages
func RolesFor(action Action) []models.UserRole {
	roles := make([]models.UserRole, 0)
	for _, r := range models.AllRoles {
		if _, ok := capabilities[action][r]; ok {
			roles = append(roles, r)
		}
	}
	return roles
}
