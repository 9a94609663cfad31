package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/SAP-F-2025/evaluation-service/internal/auth"
	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

// SubmissionService records teacher self-evaluations
type SubmissionService interface {
	Submit(ctx context.Context, actor *auth.Session, req *SubmitEvaluationRequest) (*SubmitEvaluationResponse, error)
	SaveDraft(ctx context.Context, actor *auth.Session, req *SaveDraftRequest) (*SaveDraftResponse, error)
	Status(ctx context.Context, actor *auth.Session) (*EvaluationStatusResponse, error)
	GetEvaluation(ctx context.Context, actor *auth.Session, teacherID string, term models.TermStatus, year int) (*EvaluationResponse, error)
}

type submissionService struct {
	*workflow
}

func NewSubmissionService(w *workflow) SubmissionService {
	return &submissionService{workflow: w}
}

func (s *submissionService) Submit(ctx context.Context, actor *auth.Session, req *SubmitEvaluationRequest) (*SubmitEvaluationResponse, error) {
	op := s.log.WithOperation(ctx, "submit_evaluation", actor)
	resp, err := s.submit(ctx, actor, req)
	op.LogResult(userIDOf(actor), "evaluation", err)
	return resp, err
}

func (s *submissionService) submit(ctx context.Context, actor *auth.Session, req *SubmitEvaluationRequest) (*SubmitEvaluationResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	teacher, deptID, err := s.currentTeacher(ctx, actor)
	if err != nil {
		return nil, err
	}
	year := s.currentYear()
	key := repositories.EvaluationKey{SubjectID: teacher.ID, Term: req.Term, Year: year}

	resp := &SubmitEvaluationResponse{Status: models.StatusSubmitted}
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := s.requireOpenTerm(ctx, tx, deptID, year, req.Term); err != nil {
			return err
		}

		progress, err := s.loadProgress(ctx, tx, teacher, key)
		if err != nil {
			return err
		}
		if progress.Locked() {
			return NewBusinessRuleError(RuleAlreadySubmitted, ErrAlreadySubmitted,
				"evaluation has already been submitted",
				map[string]interface{}{"term": req.Term, "year": year})
		}

		questions, err := s.evaluationQuestions(ctx, tx, deptID, req.Term, year)
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			return NewBusinessRuleError(RuleNoQuestions, ErrNoQuestions,
				"there are no questions to answer",
				map[string]interface{}{"term": req.Term, "year": year})
		}
		if err := checkCoverage(questions, req.Answers); err != nil {
			return err
		}

		rows, err := s.answerRows(teacher.ID, req.Term, year, questions, req.Answers, true)
		if err != nil {
			return err
		}
		if err := tx.Submission().UpsertAnswers(ctx, rows); err != nil {
			return fmt.Errorf("failed to save answers: %w", err)
		}
		resp.Answers = rows

		comment, err := tx.Submission().GetSelfComment(ctx, key)
		if errors.Is(err, repositories.ErrNotFound) {
			comment = &models.SelfComment{
				TeacherID:   teacher.ID,
				Term:        req.Term,
				Year:        year,
				Comment:     req.SelfComment,
				SubmittedAt: s.now(),
			}
			err = tx.Submission().CreateSelfComment(ctx, comment)
		}
		if err != nil {
			return translateRepoError(err, ErrNotFound, "save self comment")
		}
		resp.SelfComment = comment

		return s.audit(ctx, tx, actor, auditEntry{
			Type:         models.AuditEvaluationSubmitted,
			DepartmentID: uintPtr(deptID),
			TargetType:   "teacher",
			TargetID:     teacher.ID,
			Term:         req.Term,
			Year:         year,
			Description:  fmt.Sprintf("%s submitted the %s term self-evaluation", teacher.FullName, req.Term),
			Metadata:     map[string]interface{}{"answers": len(rows)},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	s.publish(ctx, actor, events.EventEvaluationSubmitted, events.EvaluationSubmittedEvent{
		TeacherID:    teacher.ID,
		DepartmentID: deptID,
		Term:         req.Term,
		Year:         year,
		AnswerCount:  len(resp.Answers),
	})
	return resp, nil
}

func (s *submissionService) SaveDraft(ctx context.Context, actor *auth.Session, req *SaveDraftRequest) (*SaveDraftResponse, error) {
	op := s.log.WithOperation(ctx, "save_draft", actor)
	resp, err := s.saveDraft(ctx, actor, req)
	op.LogResult(userIDOf(actor), "evaluation", err)
	return resp, err
}

func (s *submissionService) saveDraft(ctx context.Context, actor *auth.Session, req *SaveDraftRequest) (*SaveDraftResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	teacher, deptID, err := s.currentTeacher(ctx, actor)
	if err != nil {
		return nil, err
	}
	year := s.currentYear()
	key := repositories.EvaluationKey{SubjectID: teacher.ID, Term: req.Term, Year: year}

	resp := &SaveDraftResponse{}
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := s.requireOpenTerm(ctx, tx, deptID, year, req.Term); err != nil {
			return err
		}

		progress, err := s.loadProgress(ctx, tx, teacher, key)
		if err != nil {
			return err
		}
		if progress.Locked() {
			return NewBusinessRuleError(RuleLocked, ErrSubmissionLocked,
				"evaluation is submitted and locked",
				map[string]interface{}{"term": req.Term, "year": year})
		}

		questions, err := s.evaluationQuestions(ctx, tx, deptID, req.Term, year)
		if err != nil {
			return err
		}
		rows, err := s.answerRows(teacher.ID, req.Term, year, questions, req.Answers, false)
		if err != nil {
			return err
		}
		if err := tx.Submission().UpsertAnswers(ctx, rows); err != nil {
			return fmt.Errorf("failed to save answers: %w", err)
		}

		after, err := s.loadProgress(ctx, tx, teacher, key)
		if err != nil {
			return err
		}
		resp.Saved = len(rows)
		resp.Answered = after.Answered
		resp.Total = after.Questions
		resp.Status = after.Status()

		return s.audit(ctx, tx, actor, auditEntry{
			Type:         models.AuditDraftSaved,
			DepartmentID: uintPtr(deptID),
			TargetType:   "teacher",
			TargetID:     teacher.ID,
			Term:         req.Term,
			Year:         year,
			Description:  fmt.Sprintf("%d draft answer(s) saved", len(rows)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	return resp, nil
}

// Status projects the caller's evaluation state for every term of the current year
func (s *submissionService) Status(ctx context.Context, actor *auth.Session) (*EvaluationStatusResponse, error) {
	teacher, deptID, err := s.currentTeacher(ctx, actor)
	if err != nil {
		return nil, err
	}
	year := s.currentYear()

	state, err := s.termState(ctx, s.repo, deptID, year)
	if err != nil {
		return nil, err
	}

	resp := &EvaluationStatusResponse{Year: year, Terms: make([]TermEvaluationStatus, 0, len(models.AllTerms))}
	if state != nil && state.ActiveTerm != "" {
		active := state.ActiveTerm
		resp.ActiveTerm = &active
	}

	for _, term := range models.AllTerms {
		key := repositories.EvaluationKey{SubjectID: teacher.ID, Term: term, Year: year}
		progress, err := s.loadProgress(ctx, s.repo, teacher, key)
		if err != nil {
			return nil, err
		}
		deadline, err := s.termDeadline(ctx, s.repo, deptID, term)
		if err != nil {
			return nil, err
		}

		entry := TermEvaluationStatus{
			Term:     term,
			Status:   progress.Status(),
			Answered: progress.Answered,
			Total:    progress.Questions,
		}
		open := false
		if state != nil {
			entry.Visibility = state.VisibilityFor(term)
			open = state.IsOpenFor(term)
		}
		closed := false
		if deadline != nil {
			entry.Deadline = deadline.Deadline
			closed = deadline.Closed(s.now())
		}
		entry.CanSubmit = open && !closed &&
			entry.Status != models.StatusSubmitted && entry.Status != models.StatusNotAvailable

		resp.Terms = append(resp.Terms, entry)
	}
	return resp, nil
}

func (s *submissionService) GetEvaluation(ctx context.Context, actor *auth.Session, teacherID string, term models.TermStatus, year int) (*EvaluationResponse, error) {
	if !term.IsValid() {
		return nil, ValidationErrors{*NewValidationError("term", "must be START or END", term)}
	}
	teacher, err := s.loadUser(ctx, s.repo, teacherID, models.RoleTeacher, ErrTeacherNotFound)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionViewEvaluation, auth.OwnedBy(teacher.ID, teacher.DepartmentID), "teacher", teacher.ID); err != nil {
		return nil, err
	}
	year = s.yearOr(year)
	key := repositories.EvaluationKey{SubjectID: teacher.ID, Term: term, Year: year}

	resp := &EvaluationResponse{
		TeacherID: teacher.ID,
		Term:      term,
		Year:      year,
		Questions: []*models.Question{},
	}
	if teacher.DepartmentID != nil {
		if resp.Questions, err = s.evaluationQuestions(ctx, s.repo, *teacher.DepartmentID, term, year); err != nil {
			return nil, err
		}
	}
	if resp.Answers, err = s.repo.Submission().ListAnswers(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	if resp.SelfComment, err = optional(s.repo.Submission().GetSelfComment(ctx, key)); err != nil {
		return nil, fmt.Errorf("failed to get self comment: %w", err)
	}

	progress := submissionProgress{
		Questions:  len(resp.Questions),
		Answered:   int64(len(resp.Answers)),
		HasComment: resp.SelfComment != nil,
	}
	resp.Status = progress.Status()
	return resp, nil
}

// ===== HELPERS =====

// currentTeacher resolves the session to a teacher with a department
func (s *submissionService) currentTeacher(ctx context.Context, actor *auth.Session) (*models.User, uint, error) {
	if actor == nil {
		return nil, 0, ErrUnauthorized
	}
	if err := s.authorize(actor, auth.ActionSubmitEvaluation, auth.OwnedBy(actor.UserID, actor.DepartmentID), "evaluation", actor.UserID); err != nil {
		return nil, 0, err
	}
	teacher, err := s.loadUser(ctx, s.repo, actor.UserID, models.RoleTeacher, ErrTeacherNotFound)
	if err != nil {
		return nil, 0, err
	}
	if teacher.DepartmentID == nil {
		return nil, 0, NewPermissionError(teacher.ID, teacher.ID, "evaluation", string(auth.ActionSubmitEvaluation), "teacher has no department")
	}
	return teacher, *teacher.DepartmentID, nil
}

// requireOpenTerm is the answer-creation gate: the term is active, its
// questions are published and the deadline has not passed.
func (s *submissionService) requireOpenTerm(ctx context.Context, repo repositories.Repository, deptID uint, year int, term models.TermStatus) error {
	if err := s.requireActiveTerm(ctx, repo, deptID, year, term); err != nil {
		return err
	}
	state, err := s.termState(ctx, repo, deptID, year)
	if err != nil {
		return err
	}
	if state.VisibilityFor(term) != models.VisibilityPublished {
		return NewBusinessRuleError(RuleTermNotPublished, ErrTermNotPublished,
			fmt.Sprintf("%s term questions are not open for answers", term),
			map[string]interface{}{"department_id": deptID, "visibility": state.VisibilityFor(term)})
	}

	t, err := s.termDeadline(ctx, repo, deptID, term)
	if err != nil {
		return err
	}
	if t != nil && t.Closed(s.now()) {
		return NewBusinessRuleError(RuleTermClosed, ErrTermClosed,
			fmt.Sprintf("%s term deadline has passed", term),
			map[string]interface{}{"deadline": t.Deadline})
	}
	return nil
}

// checkCoverage requires the answered question ids to equal the question set
func checkCoverage(questions []*models.Question, answers []AnswerInput) error {
	expected := make(map[uint]bool, len(questions))
	for _, q := range questions {
		expected[q.ID] = true
	}

	given := make(map[uint]bool, len(answers))
	var unexpected, duplicate []uint
	for _, a := range answers {
		switch {
		case given[a.QuestionID]:
			duplicate = append(duplicate, a.QuestionID)
		case !expected[a.QuestionID]:
			unexpected = append(unexpected, a.QuestionID)
		}
		given[a.QuestionID] = true
	}

	var missing []uint
	for id := range expected {
		if !given[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 && len(unexpected) == 0 && len(duplicate) == 0 {
		return nil
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return NewBusinessRuleError(RuleIncompleteAnswers, ErrIncompleteAnswers,
		"answers must cover every question exactly once",
		map[string]interface{}{
			"missing":    missing,
			"unexpected": unexpected,
			"duplicate":  duplicate,
		})
}

// answerRows validates each answer against its question and scores it
func (s *submissionService) answerRows(teacherID string, term models.TermStatus, year int, questions []*models.Question, answers []AnswerInput, final bool) ([]*models.TeacherAnswer, error) {
	byID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	qv := s.validator.Question()
	var errs ValidationErrors
	rows := make([]*models.TeacherAnswer, 0, len(answers))
	for _, a := range answers {
		question, ok := byID[a.QuestionID]
		if !ok {
			errs = append(errs, *NewValidationError(fmt.Sprintf("answers[%d]", a.QuestionID), "is not a question of this evaluation", a.QuestionID))
			continue
		}
		if err := qv.ValidateAnswer(question, a.Answer, a.Selected, final); err != nil {
			var ve ValidationErrors
			if errors.As(err, &ve) {
				errs = append(errs, ve...)
				continue
			}
			return nil, err
		}
		rows = append(rows, &models.TeacherAnswer{
			TeacherID:  teacherID,
			QuestionID: question.ID,
			Term:       term,
			Year:       year,
			Answer:     a.Answer,
			Selected:   a.Selected,
			Score:      qv.ScoreAnswer(question, a.Selected),
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return rows, nil
}
