package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TermPostgreSQL struct {
	db *gorm.DB
}

func NewTermPostgreSQL(db *gorm.DB) repositories.TermRepository {
	return &TermPostgreSQL{db: db}
}

// Create stores the term and its join rows without touching department records
func (t *TermPostgreSQL) Create(ctx context.Context, term *models.Term) error {
	if err := t.db.WithContext(ctx).Omit("Departments.*").Create(term).Error; err != nil {
		return fmt.Errorf("failed to create term: %w", translateError(err))
	}
	return nil
}

func (t *TermPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Term, error) {
	var term models.Term
	if err := t.db.WithContext(ctx).Preload("Departments").First(&term, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &term, nil
}

func (t *TermPostgreSQL) GetForDepartment(ctx context.Context, departmentID uint, status models.TermStatus) (*models.Term, error) {
	var term models.Term
	err := t.db.WithContext(ctx).
		Joins("JOIN term_departments ON term_departments.term_id = terms.id").
		Where("term_departments.department_id = ? AND terms.status = ?", departmentID, status).
		Order("terms.created_at DESC").
		Preload("Departments").
		First(&term).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &term, nil
}

type TermStatePostgreSQL struct {
	db *gorm.DB
}

func NewTermStatePostgreSQL(db *gorm.DB) repositories.TermStateRepository {
	return &TermStatePostgreSQL{db: db}
}

func (s *TermStatePostgreSQL) Get(ctx context.Context, departmentID uint, year int) (*models.TermState, error) {
	return findOne[models.TermState](s.db.WithContext(ctx), "department_id = ? AND year = ?", departmentID, year)
}

func (s *TermStatePostgreSQL) GetForUpdate(ctx context.Context, departmentID uint, year int) (*models.TermState, error) {
	return findOne[models.TermState](
		s.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}),
		"department_id = ? AND year = ?", departmentID, year,
	)
}

// Upsert relies on the unique (department_id, year) index so concurrent
// first writes collapse onto one row
func (s *TermStatePostgreSQL) Upsert(ctx context.Context, state *models.TermState) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "department_id"},
			{Name: "year"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"active_term",
			"visibility",
			"start_term_visibility",
			"end_term_visibility",
			"updated_at",
		}),
	}).Create(state).Error
	if err != nil {
		return fmt.Errorf("failed to upsert term state: %w", translateError(err))
	}
	return nil
}

func (s *TermStatePostgreSQL) ListByYear(ctx context.Context, year int) ([]*models.TermState, error) {
	states, err := findMany[models.TermState](s.db.WithContext(ctx), "department_id ASC", "year = ?", year)
	if err != nil {
		return nil, fmt.Errorf("failed to list term states: %w", err)
	}
	return states, nil
}

func (s *TermStatePostgreSQL) ResetVisibility(ctx context.Context, year int) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.TermState{}).
		Where("year = ?", year).
		Updates(map[string]interface{}{
			"visibility":            models.VisibilityDraft,
			"start_term_visibility": models.VisibilityDraft,
			"end_term_visibility":   models.VisibilityDraft,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reset visibility: %w", result.Error)
	}
	return result.RowsAffected, nil
}
