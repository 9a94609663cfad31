package inmem

import (
	"context"
	"sort"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type userStore struct {
	*Repository
}

func (s *userStore) Create(_ context.Context, user *models.User) error {
	return s.write(func(t *tables) error {
		if _, exists := t.users[user.ID]; exists {
			return repositories.ErrDuplicate
		}
		now := s.now()
		user.CreatedAt, user.UpdatedAt = now, now
		t.users[user.ID] = *user
		return nil
	})
}

func (s *userStore) GetByID(_ context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.read(func(t *tables) error {
		found, ok := t.users[id]
		if !ok {
			return repositories.ErrNotFound
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userStore) ListByDepartment(_ context.Context, departmentID uint, role *models.UserRole) ([]*models.User, error) {
	return s.filter(func(u models.User) bool {
		return u.InDepartment(departmentID) && (role == nil || u.Role == *role)
	}), nil
}

func (s *userStore) ListByRole(_ context.Context, role models.UserRole) ([]*models.User, error) {
	return s.filter(func(u models.User) bool { return u.Role == role }), nil
}

func (s *userStore) filter(keep func(models.User) bool) []*models.User {
	var users []*models.User
	_ = s.read(func(t *tables) error {
		for _, u := range t.users {
			if u.IsActive && keep(u) {
				u := u
				users = append(users, &u)
			}
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool {
		if users[i].FullName == users[j].FullName {
			return users[i].ID < users[j].ID
		}
		return users[i].FullName < users[j].FullName
	})
	return users
}

type departmentStore struct {
	*Repository
}

func (s *departmentStore) Create(_ context.Context, department *models.Department) error {
	return s.write(func(t *tables) error {
		for _, d := range t.departments {
			if d.Name == department.Name {
				return repositories.ErrDuplicate
			}
		}
		if department.ID == 0 {
			department.ID = t.nextID()
		}
		now := s.now()
		department.CreatedAt, department.UpdatedAt = now, now
		t.departments[department.ID] = *department
		return nil
	})
}

func (s *departmentStore) GetByID(_ context.Context, id uint) (*models.Department, error) {
	var department models.Department
	err := s.read(func(t *tables) error {
		found, ok := t.departments[id]
		if !ok {
			return repositories.ErrNotFound
		}
		department = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &department, nil
}

func (s *departmentStore) List(_ context.Context) ([]*models.Department, error) {
	var departments []*models.Department
	_ = s.read(func(t *tables) error {
		for _, d := range t.departments {
			d := d
			departments = append(departments, &d)
		}
		return nil
	})
	sort.Slice(departments, func(i, j int) bool { return departments[i].Name < departments[j].Name })
	return departments, nil
}

type auditStore struct {
	*Repository
}

func (s *auditStore) Create(_ context.Context, entry *models.AuditLog) error {
	return s.write(func(t *tables) error {
		entry.ID = t.nextID()
		entry.CreatedAt = s.now()
		t.audit = append(t.audit, *entry)
		return nil
	})
}

func (s *auditStore) List(_ context.Context, filters repositories.AuditFilters) ([]*models.AuditLog, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	var entries []*models.AuditLog
	_ = s.read(func(t *tables) error {
		for i := len(t.audit) - 1; i >= 0 && len(entries) < limit; i-- {
			e := t.audit[i]
			if filters.DepartmentID != nil && (e.DepartmentID == nil || *e.DepartmentID != *filters.DepartmentID) {
				continue
			}
			if filters.ActorID != nil && e.ActorID != *filters.ActorID {
				continue
			}
			if filters.EventType != nil && e.EventType != *filters.EventType {
				continue
			}
			entries = append(entries, &e)
		}
		return nil
	})
	return entries, nil
}
