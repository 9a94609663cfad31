package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("record already exists")
	ErrVersionConflict = errors.New("record was modified by another request")
)

// ===== SHARED KEYS AND FILTERS =====

// EvaluationKey identifies one evaluation subject (teacher or HOD) for a term and year.
type EvaluationKey struct {
	SubjectID string            `json:"subject_id"`
	Term      models.TermStatus `json:"term"`
	Year      int               `json:"year"`
}

type QuestionFilters struct {
	DepartmentID  uint              `json:"department_id"`
	Term          models.TermStatus `json:"term"`
	Year          int               `json:"year"`
	ActiveOnly    bool              `json:"active_only"`
	PublishedOnly bool              `json:"published_only"`
}

type AuditFilters struct {
	DepartmentID *uint                  `json:"department_id"`
	ActorID      *string                `json:"actor_id"`
	EventType    *models.AuditEventType `json:"event_type"`
	Limit        int                    `json:"limit"`
}

// ===== REPOSITORY INTERFACES =====

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListByDepartment(ctx context.Context, departmentID uint, role *models.UserRole) ([]*models.User, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error)
}

type DepartmentRepository interface {
	Create(ctx context.Context, department *models.Department) error
	GetByID(ctx context.Context, id uint) (*models.Department, error)
	List(ctx context.Context) ([]*models.Department, error)
}

type TermRepository interface {
	// Create stores the term and its department links.
	Create(ctx context.Context, term *models.Term) error
	GetByID(ctx context.Context, id uint) (*models.Term, error)
	// GetForDepartment returns the most recent term with the status linked to the department.
	GetForDepartment(ctx context.Context, departmentID uint, status models.TermStatus) (*models.Term, error)
}

type TermStateRepository interface {
	Get(ctx context.Context, departmentID uint, year int) (*models.TermState, error)
	// GetForUpdate locks the row for the rest of the transaction where the store supports it.
	GetForUpdate(ctx context.Context, departmentID uint, year int) (*models.TermState, error)
	// Upsert writes the state keyed on (department, year).
	Upsert(ctx context.Context, state *models.TermState) error
	ListByYear(ctx context.Context, year int) ([]*models.TermState, error)
	// ResetVisibility sets every visibility flag of the year to DRAFT and returns the rows touched.
	ResetVisibility(ctx context.Context, year int) (int64, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters QuestionFilters) ([]*models.Question, error)
	NextOrder(ctx context.Context, departmentID uint, term models.TermStatus, year int) (int, error)
	// PublishPending publishes every active unpublished question of the scope.
	PublishPending(ctx context.Context, departmentID uint, term models.TermStatus, year int) (int64, error)
}

type SubmissionRepository interface {
	// UpsertAnswers writes answers keyed on (teacher, question, term, year).
	UpsertAnswers(ctx context.Context, answers []*models.TeacherAnswer) error
	ListAnswers(ctx context.Context, key EvaluationKey) ([]*models.TeacherAnswer, error)
	CountAnswers(ctx context.Context, key EvaluationKey) (int64, error)
	CountAnswersForQuestion(ctx context.Context, questionID uint) (int64, error)
	// CountAnswersByTeacher returns answer counts for the given teachers.
	CountAnswersByTeacher(ctx context.Context, teacherIDs []string, term models.TermStatus, year int) (map[string]int64, error)

	CreateSelfComment(ctx context.Context, comment *models.SelfComment) error
	GetSelfComment(ctx context.Context, key EvaluationKey) (*models.SelfComment, error)
	ListSelfComments(ctx context.Context, teacherIDs []string, term models.TermStatus, year int) ([]*models.SelfComment, error)
}

// ReviewRepository stores the teacher pipeline. Save methods insert when the
// row has no id and otherwise update only if the stored version still equals
// the row's version, returning ErrVersionConflict when it does not.
type ReviewRepository interface {
	GetHodReview(ctx context.Context, key EvaluationKey) (*models.HodReview, error)
	SaveHodReview(ctx context.Context, review *models.HodReview) error
	ListHodReviews(ctx context.Context, teacherIDs []string, term models.TermStatus, year int) ([]*models.HodReview, error)

	GetAsstReview(ctx context.Context, key EvaluationKey) (*models.AsstReview, error)
	SaveAsstReview(ctx context.Context, review *models.AsstReview) error
	ListAsstReviews(ctx context.Context, teacherIDs []string, term models.TermStatus, year int) ([]*models.AsstReview, error)

	GetFinalReview(ctx context.Context, key EvaluationKey) (*models.FinalReview, error)
	SaveFinalReview(ctx context.Context, review *models.FinalReview) error
	ListFinalReviews(ctx context.Context, teacherIDs []string, term models.TermStatus, year int) ([]*models.FinalReview, error)
}

// HodPerformanceRepository stores the HOD pipeline with the same save semantics.
type HodPerformanceRepository interface {
	GetAsstDeanReview(ctx context.Context, key EvaluationKey) (*models.AsstDeanHodReview, error)
	SaveAsstDeanReview(ctx context.Context, review *models.AsstDeanHodReview) error
	ListAsstDeanReviews(ctx context.Context, term models.TermStatus, year int) ([]*models.AsstDeanHodReview, error)

	GetDeanReview(ctx context.Context, key EvaluationKey) (*models.DeanHodReview, error)
	SaveDeanReview(ctx context.Context, review *models.DeanHodReview) error
	ListDeanReviews(ctx context.Context, term models.TermStatus, year int) ([]*models.DeanHodReview, error)
}

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filters AuditFilters) ([]*models.AuditLog, error)
}

// Repository is the entry point to every store. WithTransaction runs fn
// against a repository bound to one transaction; returning an error rolls
// every write back.
type Repository interface {
	User() UserRepository
	Department() DepartmentRepository
	Term() TermRepository
	TermState() TermStateRepository
	Question() QuestionRepository
	Submission() SubmissionRepository
	Review() ReviewRepository
	HodPerformance() HodPerformanceRepository
	Audit() AuditRepository

	WithTransaction(ctx context.Context, fn func(tx Repository) error) error
}
