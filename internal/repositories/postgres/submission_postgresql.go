package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{db: db}
}

func (s *SubmissionPostgreSQL) UpsertAnswers(ctx context.Context, answers []*models.TeacherAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "teacher_id"},
			{Name: "question_id"},
			{Name: "term"},
			{Name: "year"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"answer", "selected", "score", "updated_at"}),
	}).Create(answers).Error
	if err != nil {
		return fmt.Errorf("failed to upsert answers: %w", translateError(err))
	}
	return nil
}

func (s *SubmissionPostgreSQL) ListAnswers(ctx context.Context, key repositories.EvaluationKey) ([]*models.TeacherAnswer, error) {
	answers, err := findMany[models.TeacherAnswer](s.db.WithContext(ctx), "question_id ASC",
		"teacher_id = ? AND term = ? AND year = ?", key.SubjectID, key.Term, key.Year)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return answers, nil
}

func (s *SubmissionPostgreSQL) CountAnswers(ctx context.Context, key repositories.EvaluationKey) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.TeacherAnswer{}).
		Where("teacher_id = ? AND term = ? AND year = ?", key.SubjectID, key.Term, key.Year).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count answers: %w", err)
	}
	return count, nil
}

func (s *SubmissionPostgreSQL) CountAnswersForQuestion(ctx context.Context, questionID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.TeacherAnswer{}).
		Where("question_id = ?", questionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count question answers: %w", err)
	}
	return count, nil
}

func (s *SubmissionPostgreSQL) CountAnswersByTeacher(ctx context.Context, teacherIDs []string, term models.TermStatus, year int) (map[string]int64, error) {
	counts := make(map[string]int64, len(teacherIDs))
	if len(teacherIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		TeacherID string
		Count     int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.TeacherAnswer{}).
		Select("teacher_id, COUNT(*) AS count").
		Where("teacher_id IN ? AND term = ? AND year = ?", teacherIDs, term, year).
		Group("teacher_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count answers by teacher: %w", err)
	}

	for _, row := range rows {
		counts[row.TeacherID] = row.Count
	}
	return counts, nil
}

func (s *SubmissionPostgreSQL) CreateSelfComment(ctx context.Context, comment *models.SelfComment) error {
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return fmt.Errorf("failed to create self comment: %w", translateError(err))
	}
	return nil
}

func (s *SubmissionPostgreSQL) GetSelfComment(ctx context.Context, key repositories.EvaluationKey) (*models.SelfComment, error) {
	return findOne[models.SelfComment](s.db.WithContext(ctx),
		"teacher_id = ? AND term = ? AND year = ?", key.SubjectID, key.Term, key.Year)
}

func (s *SubmissionPostgreSQL) ListSelfComments(ctx context.Context, teacherIDs []string, term models.TermStatus, year int) ([]*models.SelfComment, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	comments, err := findMany[models.SelfComment](s.db.WithContext(ctx), "teacher_id ASC",
		"teacher_id IN ? AND term = ? AND year = ?", teacherIDs, term, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list self comments: %w", err)
	}
	return comments, nil
}
