package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/auth"
	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

// TermService owns terms and the per-department visibility switchboard
type TermService interface {
	CreateTerm(ctx context.Context, actor *auth.Session, req *CreateTermRequest) (*models.Term, error)
	ActivateTerm(ctx context.Context, actor *auth.Session, termID uint, req *ActivateTermRequest) (*ActivateTermResponse, error)
	PublishQuestions(ctx context.Context, actor *auth.Session, req *PublishQuestionsRequest) (*PublishQuestionsResponse, error)

	SetVisibility(ctx context.Context, actor *auth.Session, departmentID uint, req *SetVisibilityRequest) (*models.TermState, error)
	CompleteVisibility(ctx context.Context, actor *auth.Session, departmentID uint, req *CompleteVisibilityRequest) (*models.TermState, error)
	ResetVisibility(ctx context.Context, actor *auth.Session, req *ResetVisibilityRequest) (*ResetVisibilityResponse, error)

	GetTermState(ctx context.Context, actor *auth.Session, departmentID uint, year int) (*models.TermState, error)
	ListTermStates(ctx context.Context, actor *auth.Session, year int) ([]*models.TermState, error)
}

type termService struct {
	*workflow
}

func NewTermService(w *workflow) TermService {
	return &termService{workflow: w}
}

func (s *termService) CreateTerm(ctx context.Context, actor *auth.Session, req *CreateTermRequest) (*models.Term, error) {
	op := s.log.WithOperation(ctx, "create_term", actor)

	if err := s.validate(req); err != nil {
		op.LogResult("", "term", err)
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionManageTerms, auth.Owner{}, "term", ""); err != nil {
		op.LogResult("", "term", err)
		return nil, err
	}

	term := &models.Term{
		Name:     req.Name,
		Status:   req.Status,
		Deadline: req.Deadline,
	}
	for _, id := range uniqueIDs(req.DepartmentIDs) {
		term.Departments = append(term.Departments, models.Department{ID: id})
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Term().Create(ctx, term); err != nil {
			return translateRepoError(err, ErrDepartmentNotFound, "create term")
		}
		return s.audit(ctx, tx, actor, auditEntry{
			Type:        models.AuditTermCreated,
			TargetType:  "term",
			TargetID:    fmt.Sprint(term.ID),
			Term:        term.Status,
			Description: fmt.Sprintf("Term %q created for %d department(s)", term.Name, len(term.Departments)),
			Metadata:    map[string]interface{}{"department_ids": term.DepartmentIDs()},
		})
	})
	op.LogResult(term.ID, "term", err)
	if err != nil {
		return nil, err
	}
	return term, nil
}

// ActivateTerm switches every target department to the term in one
// transaction. A department already on the term aborts the whole batch.
func (s *termService) ActivateTerm(ctx context.Context, actor *auth.Session, termID uint, req *ActivateTermRequest) (*ActivateTermResponse, error) {
	op := s.log.WithOperation(ctx, "activate_term", actor)
	resp, err := s.activateTerm(ctx, actor, termID, req)
	op.LogResult(termID, "term", err)
	return resp, err
}

func (s *termService) activateTerm(ctx context.Context, actor *auth.Session, termID uint, req *ActivateTermRequest) (*ActivateTermResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionManageTerms, auth.Owner{}, "term", termID); err != nil {
		return nil, err
	}

	term, err := s.repo.Term().GetByID(ctx, termID)
	if err != nil {
		return nil, translateRepoError(err, ErrTermNotFound, "get term")
	}

	targets := term.DepartmentIDs()
	if len(req.DepartmentIDs) > 0 {
		targets = uniqueIDs(req.DepartmentIDs)
		for _, id := range targets {
			if !term.LinksDepartment(id) {
				return nil, fmt.Errorf("%w: department %d is not linked to term %d", ErrDepartmentNotFound, id, term.ID)
			}
		}
	}
	if len(targets) == 0 {
		return nil, ValidationErrors{*NewValidationError("department_ids", "term has no linked departments", nil)}
	}
	year := s.yearOr(req.Year)

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		for _, deptID := range targets {
			state, err := tx.TermState().GetForUpdate(ctx, deptID, year)
			switch {
			case errors.Is(err, repositories.ErrNotFound):
				state = &models.TermState{DepartmentID: deptID, Year: year}
			case err != nil:
				return fmt.Errorf("failed to lock term state: %w", err)
			case state.ActiveTerm == term.Status:
				return NewBusinessRuleError(RuleAlreadyActive, ErrTermAlreadyActive,
					fmt.Sprintf("%s term is already active", term.Status),
					map[string]interface{}{"department_id": deptID, "year": year, "term": term.Status})
			}

			state.ActiveTerm = term.Status
			state.ResetVisibility()
			if err := tx.TermState().Upsert(ctx, state); err != nil {
				return fmt.Errorf("failed to save term state: %w", err)
			}

			if err := s.audit(ctx, tx, actor, auditEntry{
				Type:         models.AuditTermActivated,
				DepartmentID: uintPtr(deptID),
				TargetType:   "term",
				TargetID:     fmt.Sprint(term.ID),
				Term:         term.Status,
				Year:         year,
				Description:  fmt.Sprintf("%s term activated", term.Status),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	s.publish(ctx, actor, events.EventTermActivated, events.TermActivatedEvent{
		TermID:        term.ID,
		ActiveTerm:    term.Status,
		Year:          year,
		DepartmentIDs: targets,
	})

	return &ActivateTermResponse{ActiveTerm: term.Status, DepartmentIDs: targets, Year: year}, nil
}

func (s *termService) PublishQuestions(ctx context.Context, actor *auth.Session, req *PublishQuestionsRequest) (*PublishQuestionsResponse, error) {
	op := s.log.WithOperation(ctx, "publish_questions", actor)
	resp, err := s.publishQuestions(ctx, actor, req)
	op.LogResult(req.Term, "questions", err)
	return resp, err
}

func (s *termService) publishQuestions(ctx context.Context, actor *auth.Session, req *PublishQuestionsRequest) (*PublishQuestionsResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	deptID, err := s.departmentOf(actor, auth.ActionPublishQuestions)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionPublishQuestions, auth.InDepartment(deptID), "department", deptID); err != nil {
		return nil, err
	}
	year := s.currentYear()

	var published int64
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		state, err := tx.TermState().GetForUpdate(ctx, deptID, year)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("failed to lock term state: %w", err)
		}
		if state == nil || state.ActiveTerm != req.Term {
			return NewBusinessRuleError(RuleTermNotActive, ErrTermNotActive,
				fmt.Sprintf("%s term is not active", req.Term),
				map[string]interface{}{"department_id": deptID, "year": year})
		}

		published, err = tx.Question().PublishPending(ctx, deptID, req.Term, year)
		if err != nil {
			return fmt.Errorf("failed to publish questions: %w", err)
		}
		if published == 0 {
			return NewBusinessRuleError(RuleNoUnpublishedQuestions, ErrNoUnpublishedQuestions,
				"no unpublished questions to publish",
				map[string]interface{}{"department_id": deptID, "term": req.Term, "year": year})
		}

		state.SetFlag(models.FlagVisibility, models.VisibilityPublished)
		state.SetFlag(models.FlagFor(req.Term), models.VisibilityPublished)
		if err := tx.TermState().Upsert(ctx, state); err != nil {
			return fmt.Errorf("failed to save term state: %w", err)
		}

		return s.audit(ctx, tx, actor, auditEntry{
			Type:         models.AuditQuestionsPublished,
			DepartmentID: uintPtr(deptID),
			TargetType:   "department",
			TargetID:     fmt.Sprint(deptID),
			Term:         req.Term,
			Year:         year,
			Description:  fmt.Sprintf("%d question(s) published", published),
			Metadata:     map[string]interface{}{"published_count": published},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	s.publish(ctx, actor, events.EventQuestionsPublish, events.QuestionsPublishedEvent{
		DepartmentID:   deptID,
		Term:           req.Term,
		Year:           year,
		PublishedCount: published,
	})

	return &PublishQuestionsResponse{
		PublishedCount: published,
		DepartmentID:   deptID,
		Term:           req.Term,
		Year:           year,
	}, nil
}

func (s *termService) SetVisibility(ctx context.Context, actor *auth.Session, departmentID uint, req *SetVisibilityRequest) (*models.TermState, error) {
	op := s.log.WithOperation(ctx, "set_visibility", actor)

	if err := s.validate(req); err != nil {
		op.LogResult(departmentID, "term_state", err)
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionManageVisibility, auth.InDepartment(departmentID), "term_state", departmentID); err != nil {
		op.LogResult(departmentID, "term_state", err)
		return nil, err
	}

	state, err := s.writeFlags(ctx, actor, departmentID, s.yearOr(req.Year), req.State, req.Flag)
	op.LogResult(departmentID, "term_state", err)
	return state, err
}

func (s *termService) CompleteVisibility(ctx context.Context, actor *auth.Session, departmentID uint, req *CompleteVisibilityRequest) (*models.TermState, error) {
	op := s.log.WithOperation(ctx, "complete_visibility", actor)

	if err := s.validate(req); err != nil {
		op.LogResult(departmentID, "term_state", err)
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionCompleteVisibility, auth.InDepartment(departmentID), "term_state", departmentID); err != nil {
		op.LogResult(departmentID, "term_state", err)
		return nil, err
	}

	state, err := s.writeFlags(ctx, actor, departmentID, s.yearOr(req.Year), models.VisibilityComplete,
		models.FlagVisibility, models.FlagFor(req.Term))
	op.LogResult(departmentID, "term_state", err)
	return state, err
}

// writeFlags sets the given flags of an existing TermState
func (s *termService) writeFlags(ctx context.Context, actor *auth.Session, departmentID uint, year int, value models.VisibilityState, flags ...models.VisibilityFlag) (*models.TermState, error) {
	var state *models.TermState
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		state, err = tx.TermState().GetForUpdate(ctx, departmentID, year)
		if err != nil {
			return translateRepoError(err, ErrTermStateNotFound, "lock term state")
		}
		for _, flag := range flags {
			state.SetFlag(flag, value)
		}
		if err := tx.TermState().Upsert(ctx, state); err != nil {
			return fmt.Errorf("failed to save term state: %w", err)
		}
		return s.audit(ctx, tx, actor, auditEntry{
			Type:         models.AuditVisibilityChanged,
			DepartmentID: uintPtr(departmentID),
			TargetType:   "term_state",
			TargetID:     fmt.Sprint(state.ID),
			Term:         state.ActiveTerm,
			Year:         year,
			Description:  fmt.Sprintf("Visibility %v set to %s", flags, value),
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	for _, flag := range flags {
		s.publish(ctx, actor, events.EventVisibilityChanged, events.VisibilityChangedEvent{
			DepartmentID: departmentID,
			Year:         year,
			Flag:         flag,
			State:        value,
		})
	}
	return state, nil
}

// ResetVisibility puts every flag of the year back to DRAFT. The active term
// is left alone and repeating the call changes nothing.
func (s *termService) ResetVisibility(ctx context.Context, actor *auth.Session, req *ResetVisibilityRequest) (*ResetVisibilityResponse, error) {
	op := s.log.WithOperation(ctx, "reset_visibility", actor)

	if err := s.validate(req); err != nil {
		op.LogResult("", "term_state", err)
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionManageVisibility, auth.Owner{}, "term_state", ""); err != nil {
		op.LogResult("", "term_state", err)
		return nil, err
	}
	year := s.yearOr(req.Year)

	var touched int64
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		touched, err = tx.TermState().ResetVisibility(ctx, year)
		if err != nil {
			return fmt.Errorf("failed to reset visibility: %w", err)
		}
		return s.audit(ctx, tx, actor, auditEntry{
			Type:        models.AuditVisibilityReset,
			TargetType:  "term_state",
			Year:        year,
			Description: fmt.Sprintf("Visibility reset for %d department(s)", touched),
			Metadata:    map[string]interface{}{"states_reset": touched},
		})
	})
	op.LogResult(year, "term_state", err)
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	s.publish(ctx, actor, events.EventVisibilityReset, events.VisibilityResetEvent{Year: year, StatesTouched: touched})

	return &ResetVisibilityResponse{Year: year, StatesReset: touched}, nil
}

func (s *termService) GetTermState(ctx context.Context, actor *auth.Session, departmentID uint, year int) (*models.TermState, error) {
	if err := s.authorize(actor, auth.ActionViewTermState, auth.InDepartment(departmentID), "term_state", departmentID); err != nil {
		return nil, err
	}
	state, err := s.repo.TermState().Get(ctx, departmentID, s.yearOr(year))
	if err != nil {
		return nil, translateRepoError(err, ErrTermStateNotFound, "get term state")
	}
	return state, nil
}

// ListTermStates returns the states of the year the caller may see
func (s *termService) ListTermStates(ctx context.Context, actor *auth.Session, year int) ([]*models.TermState, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	states, err := s.repo.TermState().ListByYear(ctx, s.yearOr(year))
	if err != nil {
		return nil, fmt.Errorf("failed to list term states: %w", err)
	}

	visible := make([]*models.TermState, 0, len(states))
	for _, state := range states {
		if auth.Can(actor, auth.ActionViewTermState, auth.InDepartment(state.DepartmentID)) {
			visible = append(visible, state)
		}
	}
	return visible, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
