package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"gorm.io/gorm"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	if err := u.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translateError(err))
	}
	return nil
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// ListByDepartment returns active users of a department, optionally restricted to a role
func (u *UserPostgreSQL) ListByDepartment(ctx context.Context, departmentID uint, role *models.UserRole) ([]*models.User, error) {
	query := u.db.WithContext(ctx).
		Where("department_id = ? AND is_active = ?", departmentID, true)
	if role != nil {
		query = query.Where("role = ?", *role)
	}

	var users []*models.User
	if err := query.Order("full_name ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list department users: %w", err)
	}
	return users, nil
}

func (u *UserPostgreSQL) ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	var users []*models.User
	err := u.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", role, true).
		Order("full_name ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	return users, nil
}

type DepartmentPostgreSQL struct {
	db *gorm.DB
}

func NewDepartmentPostgreSQL(db *gorm.DB) repositories.DepartmentRepository {
	return &DepartmentPostgreSQL{db: db}
}

func (d *DepartmentPostgreSQL) Create(ctx context.Context, department *models.Department) error {
	if err := d.db.WithContext(ctx).Create(department).Error; err != nil {
		return fmt.Errorf("failed to create department: %w", translateError(err))
	}
	return nil
}

func (d *DepartmentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Department, error) {
	var department models.Department
	if err := d.db.WithContext(ctx).First(&department, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &department, nil
}

func (d *DepartmentPostgreSQL) List(ctx context.Context) ([]*models.Department, error) {
	var departments []*models.Department
	if err := d.db.WithContext(ctx).Order("name ASC").Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return departments, nil
}
