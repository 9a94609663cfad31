package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/scoring"
)

// submissionProgress holds the counts the evaluation status is derived from.
// No status is ever stored.
type submissionProgress struct {
	Questions  int
	Answered   int64
	HasComment bool
}

// Submitted is the completeness invariant: every question answered and a
// self comment present.
func (p submissionProgress) Submitted() bool {
	return p.Answered == int64(p.Questions) && p.HasComment
}

// Locked reports whether Submit has run. Only Submit writes the self comment,
// so later published questions never reopen the evaluation.
func (p submissionProgress) Locked() bool {
	return p.HasComment
}

func (p submissionProgress) Status() models.EvaluationStatus {
	switch {
	case p.Questions == 0:
		return models.StatusNotAvailable
	case p.Answered == 0:
		return models.StatusNotStarted
	case p.Submitted():
		return models.StatusSubmitted
	default:
		return models.StatusInProgress
	}
}

// pipelineState is the single derivation of where a teacher's evaluation
// stands. Every guard and projection goes through it.
func pipelineState(progress submissionProgress, hod *models.HodReview, asst *models.AsstReview, final *models.FinalReview) models.PipelineState {
	switch {
	case final != nil && final.Submitted:
		return models.PipelineFinalized
	case asst != nil && asst.Submitted:
		return models.PipelineAsstReviewed
	case hod != nil && hod.Submitted:
		return models.PipelineHodReviewed
	case progress.Submitted():
		return models.PipelineSelfSubmitted
	default:
		return models.PipelineNoSubmission
	}
}

func hodPipelineState(asst *models.AsstDeanHodReview, dean *models.DeanHodReview) models.HodPipelineState {
	switch {
	case dean != nil && dean.Submitted:
		return models.HodPipelineFinalized
	case asst != nil && asst.Submitted:
		return models.HodPipelineAsstDean
	default:
		return models.HodPipelineNotReviewed
	}
}

type pipelineSnapshot struct {
	Key      repositories.EvaluationKey
	Progress submissionProgress
	Hod      *models.HodReview
	Asst     *models.AsstReview
	Final    *models.FinalReview
}

func (s *pipelineSnapshot) State() models.PipelineState {
	return pipelineState(s.Progress, s.Hod, s.Asst, s.Final)
}

// loadProgress counts the teacher's answers against the evaluation questions
func (w *workflow) loadProgress(ctx context.Context, repo repositories.Repository, teacher *models.User, key repositories.EvaluationKey) (submissionProgress, error) {
	var progress submissionProgress
	if teacher.DepartmentID != nil {
		questions, err := w.evaluationQuestions(ctx, repo, *teacher.DepartmentID, key.Term, key.Year)
		if err != nil {
			return progress, err
		}
		progress.Questions = len(questions)
	}

	answered, err := repo.Submission().CountAnswers(ctx, key)
	if err != nil {
		return progress, fmt.Errorf("failed to count answers: %w", err)
	}
	progress.Answered = answered

	_, err = repo.Submission().GetSelfComment(ctx, key)
	switch {
	case err == nil:
		progress.HasComment = true
	case !errors.Is(err, repositories.ErrNotFound):
		return progress, fmt.Errorf("failed to get self comment: %w", err)
	}
	return progress, nil
}

func (w *workflow) loadPipeline(ctx context.Context, repo repositories.Repository, teacher *models.User, term models.TermStatus, year int) (*pipelineSnapshot, error) {
	key := repositories.EvaluationKey{SubjectID: teacher.ID, Term: term, Year: year}
	snap := &pipelineSnapshot{Key: key}

	progress, err := w.loadProgress(ctx, repo, teacher, key)
	if err != nil {
		return nil, err
	}
	snap.Progress = progress

	reviews := repo.Review()
	if snap.Hod, err = optional(reviews.GetHodReview(ctx, key)); err != nil {
		return nil, fmt.Errorf("failed to get HOD review: %w", err)
	}
	if snap.Asst, err = optional(reviews.GetAsstReview(ctx, key)); err != nil {
		return nil, fmt.Errorf("failed to get assistant dean review: %w", err)
	}
	if snap.Final, err = optional(reviews.GetFinalReview(ctx, key)); err != nil {
		return nil, fmt.Errorf("failed to get final review: %w", err)
	}
	return snap, nil
}

// optional turns a not-found lookup into a nil result
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// reviewTotal resolves the score shown for a review: the stored total, or the
// total derived from the stored rubric.
func reviewTotal(r *models.ReviewRecord) *int {
	if r == nil {
		return nil
	}
	if r.TotalScore != nil {
		return intPtr(*r.TotalScore)
	}
	sheet := r.Sheet()
	if sheet.TotalScore != nil {
		return intPtr(*sheet.TotalScore)
	}
	set, err := scoring.ParseScores(sheet.Rubric)
	if err != nil || set.Len() == 0 {
		return nil
	}
	return intPtr(scoring.ResolveTotal(nil, set))
}

// finalDisplay applies the PROMOTED override on top of the final score
func finalDisplay(final *models.FinalReview) (*int, bool) {
	if final == nil || !final.Submitted {
		return nil, false
	}
	score, promoted := scoring.DisplayScore(final.Status, final.FinalScore)
	if !promoted && final.FinalScore == nil {
		return nil, false
	}
	return intPtr(score), promoted
}
