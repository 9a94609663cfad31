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

// HodReviewService runs the HOD performance track: Assistant Dean review,
// then the Dean's review.
type HodReviewService interface {
	SubmitAsstDeanReview(ctx context.Context, actor *auth.Session, req *HodReviewRequest) (*models.AsstDeanHodReview, error)
	SubmitDeanReview(ctx context.Context, actor *auth.Session, req *DeanHodReviewRequest) (*models.DeanHodReview, error)
	GetHodPipeline(ctx context.Context, actor *auth.Session, hodID string, term models.TermStatus, year int) (*HodPipelineResponse, error)
}

type hodReviewService struct {
	*workflow
}

func NewHodReviewService(w *workflow) HodReviewService {
	return &hodReviewService{workflow: w}
}

type hodSnapshot struct {
	Key  repositories.EvaluationKey
	Asst *models.AsstDeanHodReview
	Dean *models.DeanHodReview
}

func (h *hodSnapshot) State() models.HodPipelineState {
	return hodPipelineState(h.Asst, h.Dean)
}

func (w *workflow) loadHodPipeline(ctx context.Context, repo repositories.Repository, hodID string, term models.TermStatus, year int) (*hodSnapshot, error) {
	key := repositories.EvaluationKey{SubjectID: hodID, Term: term, Year: year}
	snap := &hodSnapshot{Key: key}

	var err error
	perf := repo.HodPerformance()
	if snap.Asst, err = optional(perf.GetAsstDeanReview(ctx, key)); err != nil {
		return nil, fmt.Errorf("failed to get assistant dean HOD review: %w", err)
	}
	if snap.Dean, err = optional(perf.GetDeanReview(ctx, key)); err != nil {
		return nil, fmt.Errorf("failed to get dean HOD review: %w", err)
	}
	return snap, nil
}

func (s *hodReviewService) SubmitAsstDeanReview(ctx context.Context, actor *auth.Session, req *HodReviewRequest) (*models.AsstDeanHodReview, error) {
	op := s.log.WithOperation(ctx, "submit_asst_dean_hod_review", actor)
	review, err := s.submitAsstDeanReview(ctx, actor, req)
	op.LogResult(req.HodID, "hod_review", err)
	return review, err
}

func (s *hodReviewService) submitAsstDeanReview(ctx context.Context, actor *auth.Session, req *HodReviewRequest) (*models.AsstDeanHodReview, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	hod, err := s.loadUser(ctx, s.repo, req.HodID, models.RoleHOD, ErrHodNotFound)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionAsstDeanHodReview, auth.OwnedBy(hod.ID, hod.DepartmentID), "hod", hod.ID); err != nil {
		return nil, err
	}
	year := s.yearOr(req.Year)

	var saved *models.AsstDeanHodReview
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		snap, err := s.loadHodPipeline(ctx, tx, hod.ID, req.Term, year)
		if err != nil {
			return err
		}
		if snap.State() == models.HodPipelineFinalized {
			return NewBusinessRuleError(RuleAlreadyFinalized, ErrAlreadyFinalized,
				"the dean review is submitted and the HOD review can no longer change", hodContext(snap))
		}

		review := snap.Asst
		existed := review != nil
		if !existed {
			review = &models.AsstDeanHodReview{HodID: hod.ID, Term: req.Term, Year: year}
		}
		if err := s.applyReview(&review.ReviewRecord, actor, req.ReviewInput, existed, true); err != nil {
			return err
		}
		if err := tx.HodPerformance().SaveAsstDeanReview(ctx, review); err != nil {
			return translateRepoError(err, ErrReviewNotFound, "save assistant dean HOD review")
		}
		saved = review

		return s.audit(ctx, tx, actor, auditEntry{
			Type:         models.AuditAsstDeanHodReviewSet,
			DepartmentID: hod.DepartmentID,
			TargetType:   "hod",
			TargetID:     hod.ID,
			Term:         req.Term,
			Year:         year,
			Description:  reviewDescription("Assistant Dean HOD review", hod.FullName, review.Submitted),
			Metadata:     map[string]interface{}{"version": review.Version, "total_score": review.TotalScore},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	if saved.Submitted {
		s.publish(ctx, actor, events.EventAsstDeanHodReviewSubmitted, reviewEvent(hod.ID, actor, req.Term, year, saved.TotalScore, nil))
	}
	return saved, nil
}

func (s *hodReviewService) SubmitDeanReview(ctx context.Context, actor *auth.Session, req *DeanHodReviewRequest) (*models.DeanHodReview, error) {
	op := s.log.WithOperation(ctx, "submit_dean_hod_review", actor)
	review, err := s.submitDeanReview(ctx, actor, req)
	op.LogResult(req.HodID, "hod_review", err)
	return review, err
}

func (s *hodReviewService) submitDeanReview(ctx context.Context, actor *auth.Session, req *DeanHodReviewRequest) (*models.DeanHodReview, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	hod, err := s.loadUser(ctx, s.repo, req.HodID, models.RoleHOD, ErrHodNotFound)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionDeanHodReview, auth.OwnedBy(hod.ID, hod.DepartmentID), "hod", hod.ID); err != nil {
		return nil, err
	}
	year := s.yearOr(req.Year)

	var saved *models.DeanHodReview
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		snap, err := s.loadHodPipeline(ctx, tx, hod.ID, req.Term, year)
		if err != nil {
			return err
		}
		if snap.State() == models.HodPipelineFinalized {
			return NewBusinessRuleError(RuleAlreadyFinalized, ErrAlreadyFinalized,
				"the dean review is already submitted", hodContext(snap))
		}
		if snap.Asst == nil || !snap.Asst.Submitted {
			return NewBusinessRuleError(RuleAsstReviewIncomplete, ErrAsstReviewIncomplete,
				"the assistant dean review must be submitted first", hodContext(snap))
		}

		review := snap.Dean
		existed := review != nil
		if !existed {
			review = &models.DeanHodReview{HodID: hod.ID, Term: req.Term, Year: year}
		}
		if err := s.applyReview(&review.ReviewRecord, actor, req.ReviewInput, existed, false); err != nil {
			return err
		}
		if req.Status != "" {
			review.Status = req.Status
		}
		if review.TotalScore == nil {
			if total := reviewTotal(&snap.Asst.ReviewRecord); total != nil {
				sheet := review.Sheet()
				sheet.TotalScore = total
				if err := review.SetSheet(sheet); err != nil {
					return fmt.Errorf("failed to encode scores: %w", err)
				}
			}
		}

		if err := tx.HodPerformance().SaveDeanReview(ctx, review); err != nil {
			return translateRepoError(err, ErrReviewNotFound, "save dean HOD review")
		}
		saved = review

		return s.audit(ctx, tx, actor, auditEntry{
			Type:         models.AuditDeanHodReviewSet,
			DepartmentID: hod.DepartmentID,
			TargetType:   "hod",
			TargetID:     hod.ID,
			Term:         req.Term,
			Year:         year,
			Description:  reviewDescription("Dean HOD review", hod.FullName, review.Submitted),
			Metadata: map[string]interface{}{
				"version":     review.Version,
				"status":      review.Status,
				"total_score": review.TotalScore,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	if saved.Submitted {
		status := saved.Status
		s.publish(ctx, actor, events.EventDeanHodReviewSubmitted, reviewEvent(hod.ID, actor, req.Term, year, saved.TotalScore, &status))
	}
	return saved, nil
}

func (s *hodReviewService) GetHodPipeline(ctx context.Context, actor *auth.Session, hodID string, term models.TermStatus, year int) (*HodPipelineResponse, error) {
	if !term.IsValid() {
		return nil, ValidationErrors{*NewValidationError("term", "must be START or END", term)}
	}
	hod, err := s.loadUser(ctx, s.repo, hodID, models.RoleHOD, ErrHodNotFound)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionViewHodPipeline, auth.OwnedBy(hod.ID, hod.DepartmentID), "hod", hod.ID); err != nil {
		return nil, err
	}
	year = s.yearOr(year)

	snap, err := s.loadHodPipeline(ctx, s.repo, hod.ID, term, year)
	if err != nil {
		return nil, err
	}
	resp := &HodPipelineResponse{
		HodID:          hod.ID,
		Term:           term,
		Year:           year,
		State:          snap.State(),
		AsstDeanReview: snap.Asst,
		DeanReview:     snap.Dean,
	}
	resp.DisplayScore, resp.Promoted = deanDisplay(snap.Dean)
	return resp, nil
}

// deanDisplay applies the PROMOTED override to a submitted dean HOD review
func deanDisplay(dean *models.DeanHodReview) (*int, bool) {
	if dean == nil || !dean.Submitted {
		return nil, false
	}
	total := reviewTotal(&dean.ReviewRecord)
	score, promoted := scoring.DisplayScore(dean.Status, total)
	if !promoted && total == nil {
		return nil, false
	}
	return intPtr(score), promoted
}

func hodContext(snap *hodSnapshot) map[string]interface{} {
	return map[string]interface{}{
		"hod_id": snap.Key.SubjectID,
		"term":   snap.Key.Term,
		"year":   snap.Key.Year,
		"state":  snap.State(),
	}
}
