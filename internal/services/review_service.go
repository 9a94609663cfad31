package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/auth"
	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/scoring"
)

// ReviewService runs the teacher pipeline: HOD review, Assistant Dean review
// and the Dean's final review.
type ReviewService interface {
	SubmitHodReview(ctx context.Context, actor *auth.Session, req *TeacherReviewRequest) (*models.HodReview, error)
	SubmitAsstReview(ctx context.Context, actor *auth.Session, req *TeacherReviewRequest) (*models.AsstReview, error)
	SubmitFinalReview(ctx context.Context, actor *auth.Session, req *FinalReviewRequest) (*models.FinalReview, error)

	PipelineState(ctx context.Context, teacherID string, term models.TermStatus, year int) (models.PipelineState, error)
	GetTeacherPipeline(ctx context.Context, actor *auth.Session, teacherID string, term models.TermStatus, year int) (*TeacherPipelineResponse, error)
}

type reviewService struct {
	*workflow
}

func NewReviewService(w *workflow) ReviewService {
	return &reviewService{workflow: w}
}

func (s *reviewService) SubmitHodReview(ctx context.Context, actor *auth.Session, req *TeacherReviewRequest) (*models.HodReview, error) {
	op := s.log.WithOperation(ctx, "submit_hod_review", actor)
	review, err := s.submitHodReview(ctx, actor, req)
	op.LogResult(req.TeacherID, "hod_review", err)
	return review, err
}

func (s *reviewService) submitHodReview(ctx context.Context, actor *auth.Session, req *TeacherReviewRequest) (*models.HodReview, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	teacher, err := s.loadUser(ctx, s.repo, req.TeacherID, models.RoleTeacher, ErrTeacherNotFound)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionHodReview, auth.OwnedBy(teacher.ID, teacher.DepartmentID), "teacher", teacher.ID); err != nil {
		return nil, err
	}
	year := s.yearOr(req.Year)

	var saved *models.HodReview
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		snap, err := s.loadPipeline(ctx, tx, teacher, req.Term, year)
		if err != nil {
			return err
		}
		if err := guardNotFinalized(snap); err != nil {
			return err
		}
		if !snap.Progress.Submitted() {
			return NewBusinessRuleError(RulePrecursorMissing, ErrPrecursorMissing,
				"the teacher has not submitted the self-evaluation", snapContext(snap))
		}

		review := snap.Hod
		existed := review != nil
		if !existed {
			review = &models.HodReview{TeacherID: teacher.ID, Term: req.Term, Year: year}
		}
		if err := s.applyReview(&review.ReviewRecord, actor, req.ReviewInput, existed, true); err != nil {
			return err
		}
		if err := tx.Review().SaveHodReview(ctx, review); err != nil {
			return translateRepoError(err, ErrReviewNotFound, "save HOD review")
		}
		saved = review

		return s.audit(ctx, tx, actor, auditEntry{
			Type:         models.AuditHodReviewSaved,
			DepartmentID: teacher.DepartmentID,
			TargetType:   "teacher",
			TargetID:     teacher.ID,
			Term:         req.Term,
			Year:         year,
			Description:  reviewDescription("HOD review", teacher.FullName, review.Submitted),
			Metadata:     map[string]interface{}{"version": review.Version, "total_score": review.TotalScore},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	if saved.Submitted {
		s.publish(ctx, actor, events.EventHodReviewSubmitted, reviewEvent(teacher.ID, actor, req.Term, year, saved.TotalScore, nil))
	}
	return saved, nil
}

func (s *reviewService) SubmitAsstReview(ctx context.Context, actor *auth.Session, req *TeacherReviewRequest) (*models.AsstReview, error) {
	op := s.log.WithOperation(ctx, "submit_asst_review", actor)
	review, err := s.submitAsstReview(ctx, actor, req)
	op.LogResult(req.TeacherID, "asst_review", err)
	return review, err
}

func (s *reviewService) submitAsstReview(ctx context.Context, actor *auth.Session, req *TeacherReviewRequest) (*models.AsstReview, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	teacher, err := s.loadUser(ctx, s.repo, req.TeacherID, models.RoleTeacher, ErrTeacherNotFound)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionAsstReview, auth.OwnedBy(teacher.ID, teacher.DepartmentID), "teacher", teacher.ID); err != nil {
		return nil, err
	}
	year := s.yearOr(req.Year)

	var saved *models.AsstReview
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		snap, err := s.loadPipeline(ctx, tx, teacher, req.Term, year)
		if err != nil {
			return err
		}
		if err := guardNotFinalized(snap); err != nil {
			return err
		}
		if snap.Hod == nil || !snap.Hod.Submitted {
			return NewBusinessRuleError(RuleHodReviewIncomplete, ErrHodReviewIncomplete,
				"the HOD review must be submitted first", snapContext(snap))
		}

		review := snap.Asst
		existed := review != nil
		if !existed {
			review = &models.AsstReview{TeacherID: teacher.ID, Term: req.Term, Year: year}
		}
		if err := s.applyReview(&review.ReviewRecord, actor, req.ReviewInput, existed, true); err != nil {
			return err
		}
		if err := tx.Review().SaveAsstReview(ctx, review); err != nil {
			return translateRepoError(err, ErrReviewNotFound, "save assistant dean review")
		}
		saved = review

		return s.audit(ctx, tx, actor, auditEntry{
			Type:         models.AuditAsstReviewSaved,
			DepartmentID: teacher.DepartmentID,
			TargetType:   "teacher",
			TargetID:     teacher.ID,
			Term:         req.Term,
			Year:         year,
			Description:  reviewDescription("Assistant Dean review", teacher.FullName, review.Submitted),
			Metadata:     map[string]interface{}{"version": review.Version, "total_score": review.TotalScore},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	if saved.Submitted {
		s.publish(ctx, actor, events.EventAsstReviewSubmitted, reviewEvent(teacher.ID, actor, req.Term, year, saved.TotalScore, nil))
	}
	return saved, nil
}

func (s *reviewService) SubmitFinalReview(ctx context.Context, actor *auth.Session, req *FinalReviewRequest) (*models.FinalReview, error) {
	op := s.log.WithOperation(ctx, "submit_final_review", actor)
	review, err := s.submitFinalReview(ctx, actor, req)
	op.LogResult(req.TeacherID, "final_review", err)
	return review, err
}

func (s *reviewService) submitFinalReview(ctx context.Context, actor *auth.Session, req *FinalReviewRequest) (*models.FinalReview, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	teacher, err := s.loadUser(ctx, s.repo, req.TeacherID, models.RoleTeacher, ErrTeacherNotFound)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionFinalReview, auth.OwnedBy(teacher.ID, teacher.DepartmentID), "teacher", teacher.ID); err != nil {
		return nil, err
	}
	year := s.yearOr(req.Year)

	var saved *models.FinalReview
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		snap, err := s.loadPipeline(ctx, tx, teacher, req.Term, year)
		if err != nil {
			return err
		}
		if err := guardNotFinalized(snap); err != nil {
			return err
		}
		if snap.Asst == nil || !snap.Asst.Submitted {
			return NewBusinessRuleError(RuleAsstReviewIncomplete, ErrAsstReviewIncomplete,
				"the assistant dean review must be submitted first", snapContext(snap))
		}

		review := snap.Final
		existed := review != nil
		if !existed {
			review = &models.FinalReview{TeacherID: teacher.ID, Term: req.Term, Year: year}
		}
		if err := s.applyReview(&review.ReviewRecord, actor, req.ReviewInput, existed, false); err != nil {
			return err
		}
		if req.Status != "" {
			review.Status = req.Status
		}
		// a status saved with an earlier draft is enough to finalize
		if review.Submitted && review.Status == "" {
			return ValidationErrors{*NewValidationError("status", "is required to finalize a review", nil)}
		}
		if req.FinalComment != "" {
			review.FinalComment = req.FinalComment
		}
		review.FinalScore = resolveFinalScore(req.FinalScore, review, snap)

		if err := tx.Review().SaveFinalReview(ctx, review); err != nil {
			return translateRepoError(err, ErrReviewNotFound, "save final review")
		}
		saved = review

		return s.audit(ctx, tx, actor, auditEntry{
			Type:         models.AuditFinalReviewSaved,
			DepartmentID: teacher.DepartmentID,
			TargetType:   "teacher",
			TargetID:     teacher.ID,
			Term:         req.Term,
			Year:         year,
			Description:  reviewDescription("final review", teacher.FullName, review.Submitted),
			Metadata: map[string]interface{}{
				"version":     review.Version,
				"status":      review.Status,
				"final_score": review.FinalScore,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	if saved.Submitted {
		status := saved.Status
		s.publish(ctx, actor, events.EventFinalReviewSubmitted, reviewEvent(teacher.ID, actor, req.Term, year, saved.FinalScore, &status))
	}
	return saved, nil
}

func (s *reviewService) PipelineState(ctx context.Context, teacherID string, term models.TermStatus, year int) (models.PipelineState, error) {
	teacher, err := s.loadUser(ctx, s.repo, teacherID, models.RoleTeacher, ErrTeacherNotFound)
	if err != nil {
		return "", err
	}
	snap, err := s.loadPipeline(ctx, s.repo, teacher, term, s.yearOr(year))
	if err != nil {
		return "", err
	}
	return snap.State(), nil
}

func (s *reviewService) GetTeacherPipeline(ctx context.Context, actor *auth.Session, teacherID string, term models.TermStatus, year int) (*TeacherPipelineResponse, error) {
	if !term.IsValid() {
		return nil, ValidationErrors{*NewValidationError("term", "must be START or END", term)}
	}
	teacher, err := s.loadUser(ctx, s.repo, teacherID, models.RoleTeacher, ErrTeacherNotFound)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionViewPipeline, auth.OwnedBy(teacher.ID, teacher.DepartmentID), "teacher", teacher.ID); err != nil {
		return nil, err
	}
	year = s.yearOr(year)

	snap, err := s.loadPipeline(ctx, s.repo, teacher, term, year)
	if err != nil {
		return nil, err
	}

	resp := &TeacherPipelineResponse{
		TeacherID:   teacher.ID,
		Term:        term,
		Year:        year,
		State:       snap.State(),
		Evaluation:  snap.Progress.Status(),
		HodReview:   snap.Hod,
		AsstReview:  snap.Asst,
		FinalReview: snap.Final,
	}
	resp.DisplayScore, resp.Promoted = finalDisplay(snap.Final)
	return resp, nil
}

// ===== HELPERS =====

// applyReview writes the shared review fields. A supplied version must match
// the stored one; the store re-checks it when the row is written.
func (w *workflow) applyReview(rec *models.ReviewRecord, actor *auth.Session, in ReviewInput, existed, requireScores bool) error {
	if in.Version != nil && (!existed || *in.Version != rec.Version) {
		return ErrVersionConflict
	}

	set, err := scoring.ParseScores(in.Scores)
	if err != nil {
		return err
	}

	var sheet models.ScoreSheet
	switch {
	case existed && set.Len() == 0 && in.TotalScore == nil:
		sheet = rec.Sheet()
	default:
		sheet = models.ScoreSheet{Rubric: set.Flat()}
		if in.TotalScore != nil {
			sheet.TotalScore = intPtr(*in.TotalScore)
		} else if set.Len() > 0 {
			sheet.TotalScore = intPtr(scoring.Aggregate(set).TotalScore)
		}
	}

	submitting := in.Submitted || rec.Submitted
	if submitting && requireScores && sheet.TotalScore == nil {
		return ValidationErrors{*NewValidationError("scores", "are required to submit a review", nil)}
	}

	if err := rec.SetSheet(sheet); err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}
	if in.Comments != "" || !existed {
		rec.Comments = in.Comments
	}
	rec.ReviewerID = actor.UserID
	if in.Submitted && !rec.Submitted {
		now := w.now()
		rec.Submitted = true
		rec.SubmittedAt = &now
	}
	return nil
}

// guardNotFinalized rejects writes once the Dean has finalized the pipeline
func guardNotFinalized(snap *pipelineSnapshot) error {
	if snap.State() == models.PipelineFinalized {
		return NewBusinessRuleError(RuleAlreadyFinalized, ErrAlreadyFinalized,
			"the final review is submitted and can no longer change", snapContext(snap))
	}
	return nil
}

// resolveFinalScore picks the explicit score, then the review's own total,
// then the assistant dean total, then the HOD total.
func resolveFinalScore(explicit *int, review *models.FinalReview, snap *pipelineSnapshot) *int {
	if explicit != nil {
		return intPtr(*explicit)
	}
	if review.FinalScore != nil {
		return review.FinalScore
	}
	if review.TotalScore != nil {
		return intPtr(*review.TotalScore)
	}
	if snap.Asst != nil {
		if total := reviewTotal(&snap.Asst.ReviewRecord); total != nil {
			return total
		}
	}
	if snap.Hod != nil {
		return reviewTotal(&snap.Hod.ReviewRecord)
	}
	return nil
}

func snapContext(snap *pipelineSnapshot) map[string]interface{} {
	return map[string]interface{}{
		"subject_id": snap.Key.SubjectID,
		"term":       snap.Key.Term,
		"year":       snap.Key.Year,
		"state":      snap.State(),
	}
}

func reviewDescription(kind, subject string, submitted bool) string {
	if submitted {
		return fmt.Sprintf("%s submitted for %s", kind, subject)
	}
	return fmt.Sprintf("%s draft saved for %s", kind, subject)
}

func reviewEvent(subjectID string, actor *auth.Session, term models.TermStatus, year int, total *int, status *models.FinalStatus) events.ReviewSubmittedEvent {
	return events.ReviewSubmittedEvent{
		SubjectID:  subjectID,
		ReviewerID: actor.UserID,
		Term:       term,
		Year:       year,
		TotalScore: total,
		Status:     status,
	}
}
