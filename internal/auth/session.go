package auth

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrInvalidRole  = errors.New("token carries an unknown role")
)

// Session is the identity attached to every authenticated request
type Session struct {
	UserID       string          `json:"user_id"`
	Role         models.UserRole `json:"role"`
	DepartmentID *uint           `json:"department_id,omitempty"`
}

// InDepartment reports whether the session belongs to the given department
func (s *Session) InDepartment(departmentID uint) bool {
	return s != nil && s.DepartmentID != nil && *s.DepartmentID == departmentID
}

// SessionProvider turns a bearer token into a Session
type SessionProvider interface {
	Authenticate(ctx context.Context, token string) (*Session, error)
}

func newSession(userID, role string, departmentID *uint) (*Session, error) {
	if userID == "" {
		return nil, ErrInvalidToken
	}
	r := models.UserRole(role)
	if !r.IsValid() {
		return nil, ErrInvalidRole
	}
	return &Session{UserID: userID, Role: r, DepartmentID: departmentID}, nil
}
