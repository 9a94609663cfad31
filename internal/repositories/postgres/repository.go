package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"gorm.io/gorm"
)

type postgresRepository struct {
	db *gorm.DB

	user           repositories.UserRepository
	department     repositories.DepartmentRepository
	term           repositories.TermRepository
	termState      repositories.TermStateRepository
	question       repositories.QuestionRepository
	submission     repositories.SubmissionRepository
	review         repositories.ReviewRepository
	hodPerformance repositories.HodPerformanceRepository
	audit          repositories.AuditRepository
}

// NewRepository wires every PostgreSQL store around one gorm handle.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &postgresRepository{
		db:             db,
		user:           NewUserPostgreSQL(db),
		department:     NewDepartmentPostgreSQL(db),
		term:           NewTermPostgreSQL(db),
		termState:      NewTermStatePostgreSQL(db),
		question:       NewQuestionPostgreSQL(db),
		submission:     NewSubmissionPostgreSQL(db),
		review:         NewReviewPostgreSQL(db),
		hodPerformance: NewHodPerformancePostgreSQL(db),
		audit:          NewAuditPostgreSQL(db),
	}
}

func (r *postgresRepository) User() repositories.UserRepository {
	return r.user
}

func (r *postgresRepository) Department() repositories.DepartmentRepository {
	return r.department
}

func (r *postgresRepository) Term() repositories.TermRepository {
	return r.term
}

func (r *postgresRepository) TermState() repositories.TermStateRepository {
	return r.termState
}

func (r *postgresRepository) Question() repositories.QuestionRepository {
	return r.question
}

func (r *postgresRepository) Submission() repositories.SubmissionRepository {
	return r.submission
}

func (r *postgresRepository) Review() repositories.ReviewRepository {
	return r.review
}

func (r *postgresRepository) HodPerformance() repositories.HodPerformanceRepository {
	return r.hodPerformance
}

func (r *postgresRepository) Audit() repositories.AuditRepository {
	return r.audit
}

// WithTransaction runs fn inside one database transaction. Nested calls use savepoints.
func (r *postgresRepository) WithTransaction(ctx context.Context, fn func(tx repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// Migrate creates or updates every table used by the service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Department{},
		&models.User{},
		&models.Term{},
		&models.TermState{},
		&models.Question{},
		&models.TeacherAnswer{},
		&models.SelfComment{},
		&models.HodReview{},
		&models.AsstReview{},
		&models.FinalReview{},
		&models.AsstDeanHodReview{},
		&models.DeanHodReview{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// translateError maps gorm sentinel errors to repository errors.
// The gorm handle must be opened with TranslateError enabled.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repositories.ErrDuplicate
	default:
		return err
	}
}

func findOne[T any](db *gorm.DB, query string, args ...any) (*T, error) {
	var row T
	if err := db.Where(query, args...).First(&row).Error; err != nil {
		return nil, translateError(err)
	}
	return &row, nil
}

func findMany[T any](db *gorm.DB, order string, query string, args ...any) ([]*T, error) {
	var rows []*T
	if err := db.Where(query, args...).Order(order).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
