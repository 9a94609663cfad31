package inmem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/clock"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) (*Repository, context.Context) {
	t.Helper()
	return NewRepository(Open(clock.NewFixed(now))), context.Background()
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	repo, ctx := newRepo(t)
	boom := errors.New("boom")

	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		require.NoError(t, tx.Department().Create(ctx, &models.Department{Name: "Physics"}))
		require.NoError(t, tx.TermState().Upsert(ctx, &models.TermState{DepartmentID: 1, Year: 2025, ActiveTerm: models.TermStart}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	departments, err := repo.Department().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, departments)

	_, err = repo.TermState().Get(ctx, 1, 2025)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestWithTransaction_CommitsAndNests(t *testing.T) {
	repo, ctx := newRepo(t)

	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Department().Create(ctx, &models.Department{Name: "Physics"}); err != nil {
			return err
		}
		return tx.WithTransaction(ctx, func(inner repositories.Repository) error {
			return inner.Department().Create(ctx, &models.Department{Name: "Chemistry"})
		})
	})
	require.NoError(t, err)

	departments, err := repo.Department().List(ctx)
	require.NoError(t, err)
	assert.Len(t, departments, 2)
}

func TestDirectory_Constraints(t *testing.T) {
	repo, ctx := newRepo(t)

	dept := &models.Department{Name: "Physics"}
	require.NoError(t, repo.Department().Create(ctx, dept))
	assert.NotZero(t, dept.ID)
	assert.ErrorIs(t, repo.Department().Create(ctx, &models.Department{Name: "Physics"}), repositories.ErrDuplicate)

	user := &models.User{ID: "u-1", FullName: "Lise Meitner", Role: models.RoleTeacher, DepartmentID: &dept.ID, IsActive: true}
	require.NoError(t, repo.User().Create(ctx, user))
	assert.ErrorIs(t, repo.User().Create(ctx, user), repositories.ErrDuplicate)

	err := repo.Term().Create(ctx, &models.Term{
		Name:        "Start",
		Status:      models.TermStart,
		Departments: []models.Department{{ID: 404}},
	})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestTermState_UpsertAndReset(t *testing.T) {
	repo, ctx := newRepo(t)

	state := &models.TermState{
		DepartmentID:        1,
		Year:                2025,
		ActiveTerm:          models.TermStart,
		Visibility:          models.VisibilityPublished,
		StartTermVisibility: models.VisibilityPublished,
		EndTermVisibility:   models.VisibilityDraft,
	}
	require.NoError(t, repo.TermState().Upsert(ctx, state))
	require.NoError(t, repo.TermState().Upsert(ctx, &models.TermState{DepartmentID: 2, Year: 2024, ActiveTerm: models.TermEnd, Visibility: models.VisibilityComplete}))

	touched, err := repo.TermState().ResetVisibility(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(1), touched)

	got, err := repo.TermState().Get(ctx, 1, 2025)
	require.NoError(t, err)
	assert.Equal(t, models.TermStart, got.ActiveTerm)
	assert.Equal(t, models.VisibilityDraft, got.Visibility)
	assert.Equal(t, models.VisibilityDraft, got.StartTermVisibility)

	other, err := repo.TermState().Get(ctx, 2, 2024)
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityComplete, other.Visibility)
}

func TestReviewStore_CompareAndSwap(t *testing.T) {
	repo, ctx := newRepo(t)
	key := repositories.EvaluationKey{SubjectID: "t-1", Term: models.TermStart, Year: 2025}

	review := &models.HodReview{TeacherID: "t-1", Term: models.TermStart, Year: 2025}
	require.NoError(t, repo.Review().SaveHodReview(ctx, review))
	assert.Equal(t, 1, review.Version)

	duplicate := &models.HodReview{TeacherID: "t-1", Term: models.TermStart, Year: 2025}
	assert.ErrorIs(t, repo.Review().SaveHodReview(ctx, duplicate), repositories.ErrVersionConflict)

	first, err := repo.Review().GetHodReview(ctx, key)
	require.NoError(t, err)
	second, err := repo.Review().GetHodReview(ctx, key)
	require.NoError(t, err)

	first.Comments = "first writer"
	require.NoError(t, repo.Review().SaveHodReview(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Comments = "second writer"
	assert.ErrorIs(t, repo.Review().SaveHodReview(ctx, second), repositories.ErrVersionConflict)

	stored, err := repo.Review().GetHodReview(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "first writer", stored.Comments)
	assert.Equal(t, 2, stored.Version)
}

func TestAudit_NewestFirst(t *testing.T) {
	repo, ctx := newRepo(t)
	dept := uint(3)

	for _, eventType := range []models.AuditEventType{models.AuditTermCreated, models.AuditTermActivated, models.AuditQuestionCreated} {
		require.NoError(t, repo.Audit().Create(ctx, &models.AuditLog{EventType: eventType, ActorID: "admin", DepartmentID: &dept}))
	}
	require.NoError(t, repo.Audit().Create(ctx, &models.AuditLog{EventType: models.AuditVisibilityReset, ActorID: "admin"}))

	entries, err := repo.Audit().List(ctx, repositories.AuditFilters{DepartmentID: &dept})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.AuditQuestionCreated, entries[0].EventType)
	assert.Equal(t, now, entries[0].CreatedAt)

	limited, err := repo.Audit().List(ctx, repositories.AuditFilters{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, models.AuditVisibilityReset, limited[0].EventType)
}
