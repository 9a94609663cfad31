package services

import (
	"testing"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// submittedTeacher opens the START term and submits teacher-1's evaluation
func submittedTeacher(t *testing.T) *fixture {
	f := newFixture(t)
	questions := f.openStartTerm(2)
	f.submit("teacher-1", questions)
	return f
}

func TestReviewService_HodReviewNeedsSubmission(t *testing.T) {
	f := newFixture(t)
	f.openStartTerm(2)

	_, err := f.hodReview("teacher-1", true, rubric(4, 4))
	require.ErrorIs(t, err, ErrPrecursorMissing)
	assert.Equal(t, RulePrecursorMissing, RuleOf(err))
	assert.Equal(t, models.PipelineNoSubmission, f.pipelineState("teacher-1"))
}

func TestReviewService_HodReviewTotals(t *testing.T) {
	f := submittedTeacher(t)

	review, err := f.svc.Review().SubmitHodReview(f.ctx, f.as("hod-cs"), &TeacherReviewRequest{
		TeacherID: "teacher-1",
		ReviewInput: ReviewInput{
			Term: models.TermStart,
			Scores: map[string]int{
				"[Professionalism] Compliance":  4,
				"[Professionalism] Punctuality": 5,
			},
			Submitted: true,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, review.TotalScore)
	assert.Equal(t, 90, *review.TotalScore)
	assert.Equal(t, "hod-cs", review.ReviewerID)
	assert.Equal(t, 1, review.Version)
	require.NotNil(t, review.SubmittedAt)
	assert.Equal(t, testNow, *review.SubmittedAt)
	assert.Equal(t, models.PipelineHodReviewed, f.pipelineState("teacher-1"))

	explicit := 72
	review, err = f.svc.Review().SubmitHodReview(f.ctx, f.as("hod-cs"), &TeacherReviewRequest{
		TeacherID: "teacher-1",
		ReviewInput: ReviewInput{
			Term:       models.TermStart,
			Scores:     rubric(1, 1),
			TotalScore: &explicit,
			Submitted:  false,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 72, *review.TotalScore, "an explicit total wins over the rubric")
	assert.True(t, review.Submitted, "submission is not withdrawn by a later save")
	assert.Equal(t, 2, review.Version)

	assert.Len(t, f.publisher.EventsOfType(events.EventHodReviewSubmitted), 2)
}

func TestReviewService_HodReviewDraftDoesNotAdvance(t *testing.T) {
	f := submittedTeacher(t)

	review, err := f.hodReview("teacher-1", false, nil)
	require.NoError(t, err)
	assert.False(t, review.Submitted)
	assert.Nil(t, review.TotalScore)
	assert.Equal(t, models.PipelineSelfSubmitted, f.pipelineState("teacher-1"))
	assert.Empty(t, f.publisher.EventsOfType(events.EventHodReviewSubmitted))

	_, err = f.asstReview("teacher-1", true, rubric(3, 3))
	assert.ErrorIs(t, err, ErrHodReviewIncomplete)

	_, err = f.hodReview("teacher-1", true, nil)
	assert.Equal(t, KindInvalidInput, KindOf(err), "a submitted HOD review needs scores")
}

func TestReviewService_VersionConflict(t *testing.T) {
	f := submittedTeacher(t)

	_, err := f.hodReview("teacher-1", false, rubric(3))
	require.NoError(t, err)

	v1 := 1
	req := &TeacherReviewRequest{
		TeacherID: "teacher-1",
		ReviewInput: ReviewInput{
			Term:     models.TermStart,
			Comments: "First edit",
			Version:  &v1,
		},
	}
	review, err := f.svc.Review().SubmitHodReview(f.ctx, f.as("hod-cs"), req)
	require.NoError(t, err)
	assert.Equal(t, 2, review.Version)
	assert.Equal(t, "First edit", review.Comments)

	req.Comments = "Second edit from a stale form"
	_, err = f.svc.Review().SubmitHodReview(f.ctx, f.as("hod-cs"), req)
	require.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, KindConflict, KindOf(err))

	pipeline, err := f.svc.Review().GetTeacherPipeline(f.ctx, f.as("hod-cs"), "teacher-1", models.TermStart, 0)
	require.NoError(t, err)
	assert.Equal(t, "First edit", pipeline.HodReview.Comments)
}

func TestReviewService_AsstReviewRequiresHodReview(t *testing.T) {
	f := submittedTeacher(t)

	_, err := f.asstReview("teacher-1", true, rubric(3, 3))
	require.ErrorIs(t, err, ErrHodReviewIncomplete)
	assert.Equal(t, RuleHodReviewIncomplete, RuleOf(err))
	assert.Equal(t, models.PipelineSelfSubmitted, f.pipelineState("teacher-1"))

	_, err = f.hodReview("teacher-1", true, rubric(4, 4))
	require.NoError(t, err)

	review, err := f.asstReview("teacher-1", true, rubric(3, 3, 3, 3))
	require.NoError(t, err)
	assert.Equal(t, 60, *review.TotalScore)
	assert.Equal(t, models.PipelineAsstReviewed, f.pipelineState("teacher-1"))
}

func TestReviewService_FinalReview(t *testing.T) {
	f := submittedTeacher(t)

	_, err := f.finalReview("teacher-1", models.FinalPromoted)
	require.ErrorIs(t, err, ErrAsstReviewIncomplete)

	_, err = f.hodReview("teacher-1", true, rubric(4, 4))
	require.NoError(t, err)
	_, err = f.asstReview("teacher-1", true, rubric(3, 3, 3, 3))
	require.NoError(t, err)

	_, err = f.finalReview("teacher-1", "")
	require.Equal(t, KindInvalidInput, KindOf(err), "finalizing needs a status")

	final, err := f.finalReview("teacher-1", models.FinalPromoted)
	require.NoError(t, err)
	assert.Equal(t, models.FinalPromoted, final.Status)
	require.NotNil(t, final.FinalScore)
	assert.Equal(t, 60, *final.FinalScore, "final score falls back to the assistant dean total")
	assert.Equal(t, models.PipelineFinalized, f.pipelineState("teacher-1"))

	pipeline, err := f.svc.Review().GetTeacherPipeline(f.ctx, f.as("teacher-1"), "teacher-1", models.TermStart, 0)
	require.NoError(t, err)
	assert.True(t, pipeline.Promoted)
	require.NotNil(t, pipeline.DisplayScore)
	assert.Equal(t, 100, *pipeline.DisplayScore)

	published := f.publisher.EventsOfType(events.EventFinalReviewSubmitted)
	require.Len(t, published, 1)
	payload, ok := published[0].Data.(events.ReviewSubmittedEvent)
	require.True(t, ok)
	require.NotNil(t, payload.Status)
	assert.Equal(t, models.FinalPromoted, *payload.Status)
}

func TestReviewService_FinalizedPipelineIsFrozen(t *testing.T) {
	f := submittedTeacher(t)
	_, err := f.hodReview("teacher-1", true, rubric(4, 4))
	require.NoError(t, err)
	_, err = f.asstReview("teacher-1", true, rubric(4, 4))
	require.NoError(t, err)
	_, err = f.finalReview("teacher-1", models.FinalOnHold)
	require.NoError(t, err)

	_, err = f.finalReview("teacher-1", models.FinalPromoted)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
	assert.Equal(t, RuleAlreadyFinalized, RuleOf(err))

	_, err = f.hodReview("teacher-1", true, rubric(1, 1))
	assert.ErrorIs(t, err, ErrAlreadyFinalized)

	_, err = f.asstReview("teacher-1", true, rubric(1, 1))
	assert.ErrorIs(t, err, ErrAlreadyFinalized)

	pipeline, err := f.svc.Review().GetTeacherPipeline(f.ctx, f.as("dean"), "teacher-1", models.TermStart, 0)
	require.NoError(t, err)
	assert.Equal(t, models.FinalOnHold, pipeline.FinalReview.Status)
	assert.False(t, pipeline.Promoted)
	require.NotNil(t, pipeline.DisplayScore)
	assert.Equal(t, 80, *pipeline.DisplayScore)
}

func TestReviewService_FinalReviewKeepsDraftStatus(t *testing.T) {
	f := submittedTeacher(t)
	_, err := f.hodReview("teacher-1", true, rubric(4, 4))
	require.NoError(t, err)
	_, err = f.asstReview("teacher-1", true, rubric(4, 4))
	require.NoError(t, err)

	draft, err := f.svc.Review().SubmitFinalReview(f.ctx, f.as("dean"), &FinalReviewRequest{
		TeacherID:   "teacher-1",
		ReviewInput: ReviewInput{Term: models.TermStart},
		Status:      models.FinalOnHold,
	})
	require.NoError(t, err)
	assert.False(t, draft.Submitted)
	assert.Equal(t, models.PipelineAsstReviewed, f.pipelineState("teacher-1"))

	final, err := f.finalReview("teacher-1", "")
	require.NoError(t, err)
	assert.True(t, final.Submitted)
	assert.Equal(t, models.FinalOnHold, final.Status)
	assert.Equal(t, models.PipelineFinalized, f.pipelineState("teacher-1"))
}

func TestReviewService_ExplicitFinalScore(t *testing.T) {
	f := submittedTeacher(t)
	_, err := f.hodReview("teacher-1", true, rubric(4, 4))
	require.NoError(t, err)
	_, err = f.asstReview("teacher-1", true, rubric(4, 4))
	require.NoError(t, err)

	score := 67
	final, err := f.svc.Review().SubmitFinalReview(f.ctx, f.as("dean"), &FinalReviewRequest{
		TeacherID:    "teacher-1",
		ReviewInput:  ReviewInput{Term: models.TermStart, Submitted: true},
		Status:       models.FinalNeedsImprovement,
		FinalScore:   &score,
		FinalComment: "Needs a mentoring plan",
	})
	require.NoError(t, err)
	assert.Equal(t, 67, *final.FinalScore)
	assert.Equal(t, "Needs a mentoring plan", final.FinalComment)
}

func TestReviewService_Permissions(t *testing.T) {
	f := submittedTeacher(t)

	_, err := f.svc.Review().SubmitHodReview(f.ctx, f.as("hod-math"), &TeacherReviewRequest{
		TeacherID:   "teacher-1",
		ReviewInput: ReviewInput{Term: models.TermStart, Scores: rubric(3)},
	})
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.svc.Review().SubmitAsstReview(f.ctx, f.as("dean"), &TeacherReviewRequest{
		TeacherID:   "teacher-1",
		ReviewInput: ReviewInput{Term: models.TermStart, Scores: rubric(3)},
	})
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.svc.Review().SubmitHodReview(f.ctx, f.as("hod-cs"), &TeacherReviewRequest{
		TeacherID:   "hod-cs",
		ReviewInput: ReviewInput{Term: models.TermStart, Scores: rubric(3)},
	})
	assert.ErrorIs(t, err, ErrTeacherNotFound)

	_, err = f.svc.Review().GetTeacherPipeline(f.ctx, f.as("teacher-2"), "teacher-1", models.TermStart, 0)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.svc.Review().SubmitHodReview(f.ctx, f.as("hod-cs"), &TeacherReviewRequest{
		TeacherID:   "teacher-1",
		ReviewInput: ReviewInput{Term: models.TermStart, Scores: map[string]int{"[Service] Committees": 9}},
	})
	assert.Equal(t, KindInvalidInput, KindOf(err))
}
