package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/evaluation-service/internal/auth"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/scoring"
)

// QuestionService manages the per-department question catalog
type QuestionService interface {
	Create(ctx context.Context, actor *auth.Session, req *CreateQuestionRequest) (*models.Question, error)
	Update(ctx context.Context, actor *auth.Session, id uint, req *UpdateQuestionRequest) (*models.Question, error)
	Delete(ctx context.Context, actor *auth.Session, id uint) error
	List(ctx context.Context, actor *auth.Session, req *ListQuestionsRequest) ([]*models.Question, error)
	InsertRubricTemplate(ctx context.Context, actor *auth.Session) (*RubricTemplateResponse, error)
}

// rubricTemplate is the standard set of rubric items. Keys carry the
// category prefix the score aggregator groups by.
var rubricTemplate = []string{
	"[Professionalism] Punctuality and attendance",
	"[Professionalism] Compliance with institutional policies",
	"[Professionalism] Ethical conduct with students and colleagues",
	"[Professionalism] Preparation and organisation of classes",
	"[Responsibilities] Completion of assigned duties",
	"[Responsibilities] Timely submission of grades and reports",
	"[Leadership] Initiative in departmental activities",
	"[Leadership] Mentoring of colleagues and students",
	"[Development] Participation in training and workshops",
	"[Development] Research and scholarly output",
	"[Development] Adoption of new teaching methods",
	"[Engagement] Student engagement in class",
	"[Engagement] Collaboration within the department",
	"[Service] Community and extension service",
	"[Service] Contribution to institutional committees",
}

type questionService struct {
	*workflow
}

func NewQuestionService(w *workflow) QuestionService {
	return &questionService{workflow: w}
}

func (s *questionService) Create(ctx context.Context, actor *auth.Session, req *CreateQuestionRequest) (*models.Question, error) {
	op := s.log.WithOperation(ctx, "create_question", actor)
	question, err := s.create(ctx, actor, req)
	var id uint
	if question != nil {
		id = question.ID
	}
	op.LogResult(id, "question", err)
	return question, err
}

func (s *questionService) create(ctx context.Context, actor *auth.Session, req *CreateQuestionRequest) (*models.Question, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	deptID, err := s.departmentOf(actor, auth.ActionManageQuestions)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionManageQuestions, auth.InDepartment(deptID), "department", deptID); err != nil {
		return nil, err
	}
	year := s.currentYear()

	question := &models.Question{
		DepartmentID: deptID,
		Term:         req.Term,
		Year:         year,
		Text:         strings.TrimSpace(req.Question),
		Type:         req.Type,
		Options:      req.Options,
		OptionScores: req.OptionScores,
		IsActive:     true,
		CreatedBy:    actor.UserID,
	}
	if req.IsActive != nil {
		question.IsActive = *req.IsActive
	}
	if err := s.validator.Question().ValidateQuestion(question); err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := s.requireActiveTerm(ctx, tx, deptID, year, req.Term); err != nil {
			return err
		}
		if req.Order != nil {
			question.SortOrder = *req.Order
		} else {
			next, err := tx.Question().NextOrder(ctx, deptID, req.Term, year)
			if err != nil {
				return fmt.Errorf("failed to compute question order: %w", err)
			}
			question.SortOrder = next
		}
		if err := tx.Question().Create(ctx, question); err != nil {
			return translateRepoError(err, ErrQuestionNotFound, "create question")
		}
		return s.audit(ctx, tx, actor, auditEntry{
			Type:         models.AuditQuestionCreated,
			DepartmentID: uintPtr(deptID),
			TargetType:   "question",
			TargetID:     fmt.Sprint(question.ID),
			Term:         question.Term,
			Year:         year,
			Description:  fmt.Sprintf("Question #%d created", question.SortOrder),
		})
	})
	if err != nil {
		return nil, err
	}
	return question, nil
}

func (s *questionService) Update(ctx context.Context, actor *auth.Session, id uint, req *UpdateQuestionRequest) (*models.Question, error) {
	op := s.log.WithOperation(ctx, "update_question", actor)
	question, err := s.update(ctx, actor, id, req)
	op.LogResult(id, "question", err)
	return question, err
}

func (s *questionService) update(ctx context.Context, actor *auth.Session, id uint, req *UpdateQuestionRequest) (*models.Question, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	var question *models.Question
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		question, err = s.loadMutable(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		if req.Question != nil {
			question.Text = strings.TrimSpace(*req.Question)
		}
		if req.Type != nil {
			question.Type = *req.Type
		}
		if req.Options != nil {
			question.Options = req.Options
		}
		if req.OptionScores != nil {
			question.OptionScores = req.OptionScores
		}
		if !question.Type.HasOptions() {
			question.Options, question.OptionScores = nil, nil
		}
		if req.Order != nil {
			question.SortOrder = *req.Order
		}
		if req.IsActive != nil {
			question.IsActive = *req.IsActive
		}
		if err := s.validator.Question().ValidateQuestion(question); err != nil {
			return err
		}

		if err := tx.Question().Update(ctx, question); err != nil {
			return translateRepoError(err, ErrQuestionNotFound, "update question")
		}
		return s.audit(ctx, tx, actor, auditEntry{
			Type:         models.AuditQuestionUpdated,
			DepartmentID: uintPtr(question.DepartmentID),
			TargetType:   "question",
			TargetID:     fmt.Sprint(question.ID),
			Term:         question.Term,
			Year:         question.Year,
			Description:  "Question updated",
		})
	})
	if err != nil {
		return nil, err
	}
	s.invalidateReports(ctx)
	return question, nil
}

func (s *questionService) Delete(ctx context.Context, actor *auth.Session, id uint) error {
	op := s.log.WithOperation(ctx, "delete_question", actor)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		question, err := s.loadMutable(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.Question().Delete(ctx, id); err != nil {
			return translateRepoError(err, ErrQuestionNotFound, "delete question")
		}
		return s.audit(ctx, tx, actor, auditEntry{
			Type:         models.AuditQuestionDeleted,
			DepartmentID: uintPtr(question.DepartmentID),
			TargetType:   "question",
			TargetID:     fmt.Sprint(id),
			Term:         question.Term,
			Year:         question.Year,
			Description:  "Question deleted",
		})
	})
	op.LogResult(id, "question", err)
	if err == nil {
		s.invalidateReports(ctx)
	}
	return err
}

// loadMutable fetches a question the actor may change. Questions with at
// least one answer are frozen.
func (s *questionService) loadMutable(ctx context.Context, tx repositories.Repository, actor *auth.Session, id uint) (*models.Question, error) {
	question, err := tx.Question().GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, ErrQuestionNotFound, "get question")
	}
	if err := s.authorize(actor, auth.ActionManageQuestions, auth.InDepartment(question.DepartmentID), "question", id); err != nil {
		return nil, err
	}

	answers, err := tx.Submission().CountAnswersForQuestion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count answers: %w", err)
	}
	if answers > 0 {
		return nil, NewBusinessRuleError(RuleQuestionAnswered, ErrQuestionAnswered,
			"question already has answers and can no longer change",
			map[string]interface{}{"question_id": id, "answers": answers})
	}
	return question, nil
}

// List applies the caller's view: teachers see the open evaluation only,
// the HOD sees the whole department catalog.
func (s *questionService) List(ctx context.Context, actor *auth.Session, req *ListQuestionsRequest) ([]*models.Question, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	deptID := req.DepartmentID
	if actor.Role == models.RoleTeacher || actor.Role == models.RoleHOD || deptID == 0 {
		id, err := s.departmentOf(actor, auth.ActionViewQuestions)
		if err != nil {
			if deptID == 0 {
				return nil, ValidationErrors{*NewValidationError("department_id", "is required", nil)}
			}
			return nil, err
		}
		deptID = id
	}
	if err := s.authorize(actor, auth.ActionViewQuestions, auth.InDepartment(deptID), "department", deptID); err != nil {
		return nil, err
	}
	year := s.yearOr(req.Year)

	if actor.Role == models.RoleTeacher {
		state, err := s.termState(ctx, s.repo, deptID, year)
		if err != nil {
			return nil, err
		}
		term := req.Term
		if term == "" && state != nil {
			term = state.ActiveTerm
		}
		if state == nil || !state.IsOpenFor(term) {
			return []*models.Question{}, nil
		}
		return s.evaluationQuestions(ctx, s.repo, deptID, term, year)
	}

	if req.Term == "" {
		var all []*models.Question
		for _, term := range models.AllTerms {
			questions, err := s.repo.Question().List(ctx, repositories.QuestionFilters{DepartmentID: deptID, Term: term, Year: year})
			if err != nil {
				return nil, fmt.Errorf("failed to list questions: %w", err)
			}
			all = append(all, questions...)
		}
		return all, nil
	}

	questions, err := s.repo.Question().List(ctx, repositories.QuestionFilters{DepartmentID: deptID, Term: req.Term, Year: year})
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// InsertRubricTemplate adds the standard rubric items to the active term,
// skipping any whose text already exists.
func (s *questionService) InsertRubricTemplate(ctx context.Context, actor *auth.Session) (*RubricTemplateResponse, error) {
	op := s.log.WithOperation(ctx, "insert_rubric_template", actor)
	resp, err := s.insertRubricTemplate(ctx, actor)
	op.LogResult("", "question", err)
	return resp, err
}

func (s *questionService) insertRubricTemplate(ctx context.Context, actor *auth.Session) (*RubricTemplateResponse, error) {
	deptID, err := s.departmentOf(actor, auth.ActionManageQuestions)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionManageQuestions, auth.InDepartment(deptID), "department", deptID); err != nil {
		return nil, err
	}
	year := s.currentYear()

	resp := &RubricTemplateResponse{Year: year, Questions: []*models.Question{}}
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		state, err := s.termState(ctx, tx, deptID, year)
		if err != nil {
			return err
		}
		if state == nil || state.ActiveTerm == "" {
			return NewBusinessRuleError(RuleTermNotActive, ErrTermNotActive,
				"no term is active for the department",
				map[string]interface{}{"department_id": deptID, "year": year})
		}
		resp.Term = state.ActiveTerm

		existing, err := tx.Question().List(ctx, repositories.QuestionFilters{DepartmentID: deptID, Term: state.ActiveTerm, Year: year})
		if err != nil {
			return fmt.Errorf("failed to list questions: %w", err)
		}
		present := make(map[string]bool, len(existing))
		for _, q := range existing {
			present[strings.TrimSpace(q.Text)] = true
		}

		next, err := tx.Question().NextOrder(ctx, deptID, state.ActiveTerm, year)
		if err != nil {
			return fmt.Errorf("failed to compute question order: %w", err)
		}
		for _, text := range rubricTemplate {
			if present[text] {
				resp.Skipped++
				continue
			}
			question := rubricQuestion(text, deptID, state.ActiveTerm, year, next, actor.UserID)
			if err := tx.Question().Create(ctx, question); err != nil {
				return translateRepoError(err, ErrQuestionNotFound, "create rubric question")
			}
			resp.Questions = append(resp.Questions, question)
			resp.Inserted++
			next++
		}
		if resp.Inserted == 0 {
			return nil
		}

		return s.audit(ctx, tx, actor, auditEntry{
			Type:         models.AuditRubricInserted,
			DepartmentID: uintPtr(deptID),
			TargetType:   "department",
			TargetID:     fmt.Sprint(deptID),
			Term:         state.ActiveTerm,
			Year:         year,
			Description:  fmt.Sprintf("Rubric template inserted (%d new, %d skipped)", resp.Inserted, resp.Skipped),
		})
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func rubricQuestion(text string, deptID uint, term models.TermStatus, year, order int, createdBy string) *models.Question {
	options := make([]string, 0, scoring.MaxItemScore)
	scores := make([]float64, 0, scoring.MaxItemScore)
	for v := scoring.MinItemScore; v <= scoring.MaxItemScore; v++ {
		options = append(options, fmt.Sprint(v))
		scores = append(scores, float64(v))
	}
	return &models.Question{
		DepartmentID: deptID,
		Term:         term,
		Year:         year,
		Text:         text,
		Type:         models.QuestionMCQ,
		Options:      options,
		OptionScores: scores,
		SortOrder:    order,
		IsActive:     true,
		CreatedBy:    createdBy,
	}
}

// requireActiveTerm fails unless term is the department's active term
func (w *workflow) requireActiveTerm(ctx context.Context, repo repositories.Repository, deptID uint, year int, term models.TermStatus) error {
	state, err := w.termState(ctx, repo, deptID, year)
	if err != nil {
		return err
	}
	if state == nil || state.ActiveTerm != term {
		return NewBusinessRuleError(RuleTermNotActive, ErrTermNotActive,
			fmt.Sprintf("%s term is not active", term),
			map[string]interface{}{"department_id": deptID, "year": year})
	}
	return nil
}
