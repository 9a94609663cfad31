package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", translateError(err))
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, question *models.Question) error {
	result := q.db.WithContext(ctx).
		Model(question).
		Select("text", "type", "options", "option_scores", "sort_order", "is_active", "updated_at").
		Updates(question)
	if result.Error != nil {
		return fmt.Errorf("failed to update question: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := q.db.WithContext(ctx).Delete(&models.Question{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete question: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (q *QuestionPostgreSQL) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, error) {
	query := q.db.WithContext(ctx).
		Where("department_id = ? AND term = ? AND year = ?", filters.DepartmentID, filters.Term, filters.Year)
	if filters.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filters.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var questions []*models.Question
	if err := query.Order("sort_order ASC, id ASC").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) NextOrder(ctx context.Context, departmentID uint, term models.TermStatus, year int) (int, error) {
	var maxOrder int
	err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("department_id = ? AND term = ? AND year = ?", departmentID, term, year).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&maxOrder).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get next order: %w", err)
	}
	return maxOrder + 1, nil
}

func (q *QuestionPostgreSQL) PublishPending(ctx context.Context, departmentID uint, term models.TermStatus, year int) (int64, error) {
	result := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("department_id = ? AND term = ? AND year = ? AND is_active = ? AND is_published = ?",
			departmentID, term, year, true, false).
		Update("is_published", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to publish questions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
