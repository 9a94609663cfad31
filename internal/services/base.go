package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/auth"
	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/clock"
	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
	"gorm.io/datatypes"
)

const reportCachePattern = "report:*"

// workflow carries the collaborators every service shares
type workflow struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	cache     cache.CacheService
	clock     clock.Clock
	validator *validator.Validator
	log       *ServiceLogger
	cacheTTL  time.Duration
}

func (w *workflow) logger() *slog.Logger {
	return w.log.Slog()
}

func (w *workflow) now() time.Time {
	return w.clock.Now()
}

func (w *workflow) currentYear() int {
	return clock.Year(w.clock)
}

// yearOr resolves a zero year to the current one
func (w *workflow) yearOr(year int) int {
	if year == 0 {
		return w.currentYear()
	}
	return year
}

func (w *workflow) validate(req interface{}) error {
	return w.validator.ValidateStruct(req)
}

// authorize runs the capability check and builds the denial error
func (w *workflow) authorize(actor *auth.Session, action auth.Action, owner auth.Owner, resource string, resourceID interface{}) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if auth.Can(actor, action, owner) {
		return nil
	}

	roles := auth.RolesFor(action)
	reason := fmt.Sprintf("requires one of %v", roles)
	if containsRole(roles, actor.Role) {
		reason = "resource is outside the caller's scope"
	}
	return NewPermissionError(actor.UserID, resourceID, resource, string(action), reason)
}

// departmentOf returns the department bound to the session
func (w *workflow) departmentOf(actor *auth.Session, action auth.Action) (uint, error) {
	if actor == nil {
		return 0, ErrUnauthorized
	}
	if actor.DepartmentID == nil {
		return 0, NewPermissionError(actor.UserID, "", "department", string(action), "session has no department")
	}
	return *actor.DepartmentID, nil
}

func containsRole(roles []models.UserRole, role models.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// loadUser fetches a user and checks its role; a user with another role is
// reported as notFound.
func (w *workflow) loadUser(ctx context.Context, repo repositories.Repository, id string, role models.UserRole, notFound error) (*models.User, error) {
	user, err := repo.User().GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, notFound, "get user")
	}
	if user.Role != role {
		return nil, notFound
	}
	return user, nil
}

// termState returns nil without error when the department has no state for the year
func (w *workflow) termState(ctx context.Context, repo repositories.Repository, departmentID uint, year int) (*models.TermState, error) {
	state, err := repo.TermState().Get(ctx, departmentID, year)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get term state: %w", err)
	}
	return state, nil
}

// termDeadline returns the deadline of the department's term, if one is configured
func (w *workflow) termDeadline(ctx context.Context, repo repositories.Repository, departmentID uint, term models.TermStatus) (*models.Term, error) {
	t, err := repo.Term().GetForDepartment(ctx, departmentID, term)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get term: %w", err)
	}
	return t, nil
}

// evaluationQuestions is the question set a teacher answers: active and
// published questions of the department for the term and year.
func (w *workflow) evaluationQuestions(ctx context.Context, repo repositories.Repository, departmentID uint, term models.TermStatus, year int) ([]*models.Question, error) {
	questions, err := repo.Question().List(ctx, repositories.QuestionFilters{
		DepartmentID:  departmentID,
		Term:          term,
		Year:          year,
		ActiveOnly:    true,
		PublishedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// auditEntry is written in the same transaction as the change it records
type auditEntry struct {
	Type         models.AuditEventType
	DepartmentID *uint
	TargetType   string
	TargetID     string
	Term         models.TermStatus
	Year         int
	Description  string
	Metadata     interface{}
}

func (w *workflow) audit(ctx context.Context, tx repositories.Repository, actor *auth.Session, entry auditEntry) error {
	log := &models.AuditLog{
		EventType:    entry.Type,
		ActorID:      actor.UserID,
		ActorRole:    actor.Role,
		DepartmentID: entry.DepartmentID,
		TargetType:   entry.TargetType,
		TargetID:     entry.TargetID,
		Term:         entry.Term,
		Year:         entry.Year,
		Description:  entry.Description,
		CreatedAt:    w.now(),
	}
	if entry.Metadata != nil {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		log.Metadata = datatypes.JSON(data)
	}
	if err := tx.Audit().Create(ctx, log); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// publish sends a workflow event after commit. Failures are logged only.
func (w *workflow) publish(ctx context.Context, actor *auth.Session, eventType events.EventType, data interface{}) {
	event := events.NewWorkflowEvent(eventType, actor.UserID, w.now(), data)
	if err := w.publisher.PublishWorkflowEvent(ctx, event); err != nil {
		w.logger().Warn("Failed to publish workflow event",
			"event_id", event.ID,
			"event_type", eventType,
			"error", err)
	}
}

func (w *workflow) invalidateReports(ctx context.Context) {
	cache.Invalidate(ctx, w.cache, w.logger(), reportCachePattern)
}

func uintPtr(v uint) *uint {
	return &v
}

func intPtr(v int) *int {
	return &v
}
