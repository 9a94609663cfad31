package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"gorm.io/gorm"
)

type versioned interface {
	Record() *models.ReviewRecord
}

// saveVersioned inserts a new review at version 1, or updates an existing one
// only while its stored version equals the in-memory version.
func saveVersioned(db *gorm.DB, row versioned) error {
	record := row.Record()

	if record.ID == 0 {
		record.Version = 1
		if err := db.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return repositories.ErrVersionConflict
			}
			return err
		}
		return nil
	}

	expected := record.Version
	record.Version = expected + 1

	result := db.Model(row).
		Where("version = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(row)
	if result.Error != nil {
		record.Version = expected
		return result.Error
	}
	if result.RowsAffected == 0 {
		record.Version = expected
		return repositories.ErrVersionConflict
	}
	return nil
}

const teacherKeyQuery = "teacher_id = ? AND term = ? AND year = ?"
const teacherListQuery = "teacher_id IN ? AND term = ? AND year = ?"

type ReviewPostgreSQL struct {
	db *gorm.DB
}

func NewReviewPostgreSQL(db *gorm.DB) repositories.ReviewRepository {
	return &ReviewPostgreSQL{db: db}
}

func (r *ReviewPostgreSQL) GetHodReview(ctx context.Context, key repositories.EvaluationKey) (*models.HodReview, error) {
	return findOne[models.HodReview](r.db.WithContext(ctx), teacherKeyQuery, key.SubjectID, key.Term, key.Year)
}

func (r *ReviewPostgreSQL) SaveHodReview(ctx context.Context, review *models.HodReview) error {
	if err := saveVersioned(r.db.WithContext(ctx), review); err != nil {
		return fmt.Errorf("failed to save hod review: %w", err)
	}
	return nil
}

func (r *ReviewPostgreSQL) ListHodReviews(ctx context.Context, teacherIDs []string, term models.TermStatus, year int) ([]*models.HodReview, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	return findMany[models.HodReview](r.db.WithContext(ctx), "teacher_id ASC", teacherListQuery, teacherIDs, term, year)
}

func (r *ReviewPostgreSQL) GetAsstReview(ctx context.Context, key repositories.EvaluationKey) (*models.AsstReview, error) {
	return findOne[models.AsstReview](r.db.WithContext(ctx), teacherKeyQuery, key.SubjectID, key.Term, key.Year)
}

func (r *ReviewPostgreSQL) SaveAsstReview(ctx context.Context, review *models.AsstReview) error {
	if err := saveVersioned(r.db.WithContext(ctx), review); err != nil {
		return fmt.Errorf("failed to save assistant dean review: %w", err)
	}
	return nil
}

func (r *ReviewPostgreSQL) ListAsstReviews(ctx context.Context, teacherIDs []string, term models.TermStatus, year int) ([]*models.AsstReview, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	return findMany[models.AsstReview](r.db.WithContext(ctx), "teacher_id ASC", teacherListQuery, teacherIDs, term, year)
}

func (r *ReviewPostgreSQL) GetFinalReview(ctx context.Context, key repositories.EvaluationKey) (*models.FinalReview, error) {
	return findOne[models.FinalReview](r.db.WithContext(ctx), teacherKeyQuery, key.SubjectID, key.Term, key.Year)
}

func (r *ReviewPostgreSQL) SaveFinalReview(ctx context.Context, review *models.FinalReview) error {
	if err := saveVersioned(r.db.WithContext(ctx), review); err != nil {
		return fmt.Errorf("failed to save final review: %w", err)
	}
	return nil
}

func (r *ReviewPostgreSQL) ListFinalReviews(ctx context.Context, teacherIDs []string, term models.TermStatus, year int) ([]*models.FinalReview, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	return findMany[models.FinalReview](r.db.WithContext(ctx), "teacher_id ASC", teacherListQuery, teacherIDs, term, year)
}

const hodKeyQuery = "hod_id = ? AND term = ? AND year = ?"

type HodPerformancePostgreSQL struct {
	db *gorm.DB
}

func NewHodPerformancePostgreSQL(db *gorm.DB) repositories.HodPerformanceRepository {
	return &HodPerformancePostgreSQL{db: db}
}

func (h *HodPerformancePostgreSQL) GetAsstDeanReview(ctx context.Context, key repositories.EvaluationKey) (*models.AsstDeanHodReview, error) {
	return findOne[models.AsstDeanHodReview](h.db.WithContext(ctx), hodKeyQuery, key.SubjectID, key.Term, key.Year)
}

func (h *HodPerformancePostgreSQL) SaveAsstDeanReview(ctx context.Context, review *models.AsstDeanHodReview) error {
	if err := saveVersioned(h.db.WithContext(ctx), review); err != nil {
		return fmt.Errorf("failed to save assistant dean hod review: %w", err)
	}
	return nil
}

func (h *HodPerformancePostgreSQL) ListAsstDeanReviews(ctx context.Context, term models.TermStatus, year int) ([]*models.AsstDeanHodReview, error) {
	return findMany[models.AsstDeanHodReview](h.db.WithContext(ctx), "hod_id ASC", "term = ? AND year = ?", term, year)
}

func (h *HodPerformancePostgreSQL) GetDeanReview(ctx context.Context, key repositories.EvaluationKey) (*models.DeanHodReview, error) {
	return findOne[models.DeanHodReview](h.db.WithContext(ctx), hodKeyQuery, key.SubjectID, key.Term, key.Year)
}

func (h *HodPerformancePostgreSQL) SaveDeanReview(ctx context.Context, review *models.DeanHodReview) error {
	if err := saveVersioned(h.db.WithContext(ctx), review); err != nil {
		return fmt.Errorf("failed to save dean hod review: %w", err)
	}
	return nil
}

func (h *HodPerformancePostgreSQL) ListDeanReviews(ctx context.Context, term models.TermStatus, year int) ([]*models.DeanHodReview, error) {
	return findMany[models.DeanHodReview](h.db.WithContext(ctx), "hod_id ASC", "term = ? AND year = ?", term, year)
}
