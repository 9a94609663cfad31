package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleTeacher  UserRole = "TEACHER"
	RoleHOD      UserRole = "HOD"
	RoleAsstDean UserRole = "ASST_DEAN"
	RoleDean     UserRole = "DEAN"
	RoleAdmin    UserRole = "ADMIN"
)

// AllRoles lists the closed set of roles known to the workflow.
var AllRoles = []UserRole{RoleTeacher, RoleHOD, RoleAsstDean, RoleDean, RoleAdmin}

func (r UserRole) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User is provisioned by the identity provider; the service only reads it.
type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role     UserRole `json:"role" gorm:"not null;size:20;index"`

	DepartmentID *uint       `json:"department_id" gorm:"index"`
	Department   *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`

	IsActive bool `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// InDepartment reports whether the user belongs to the given department.
func (u *User) InDepartment(departmentID uint) bool {
	return u.DepartmentID != nil && *u.DepartmentID == departmentID
}
