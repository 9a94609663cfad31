package services

import (
	"testing"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionService_Submit(t *testing.T) {
	f := newFixture(t)
	questions := f.openStartTerm(3)

	resp, err := f.svc.Submission().Submit(f.ctx, f.as("teacher-1"), &SubmitEvaluationRequest{
		Term:        models.TermStart,
		Answers:     answersFor(questions, "4"),
		SelfComment: "Taught three sections",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, resp.Status)
	require.Len(t, resp.Answers, 3)
	for _, a := range resp.Answers {
		require.NotNil(t, a.Score)
		assert.Equal(t, 4.0, *a.Score)
	}
	require.NotNil(t, resp.SelfComment)
	assert.Equal(t, testNow, resp.SelfComment.SubmittedAt)

	key := repositories.EvaluationKey{SubjectID: "teacher-1", Term: models.TermStart, Year: testYear}
	count, err := f.repo.Submission().CountAnswers(f.ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, models.PipelineSelfSubmitted, f.pipelineState("teacher-1"))

	published := f.publisher.EventsOfType(events.EventEvaluationSubmitted)
	require.Len(t, published, 1)
	payload, ok := published[0].Data.(events.EvaluationSubmittedEvent)
	require.True(t, ok)
	assert.Equal(t, "teacher-1", payload.TeacherID)
	assert.Equal(t, 3, payload.AnswerCount)
}

func TestSubmissionService_SubmitRequiresEveryQuestion(t *testing.T) {
	f := newFixture(t)
	questions := f.openStartTerm(3)

	_, err := f.svc.Submission().Submit(f.ctx, f.as("teacher-1"), &SubmitEvaluationRequest{
		Term:        models.TermStart,
		Answers:     answersFor(questions[:2], "3"),
		SelfComment: "Partial",
	})
	require.ErrorIs(t, err, ErrIncompleteAnswers)
	assert.Equal(t, RuleIncompleteAnswers, RuleOf(err))

	var bre *BusinessRuleError
	require.ErrorAs(t, err, &bre)
	assert.Equal(t, []uint{questions[2].ID}, bre.Context["missing"])

	key := repositories.EvaluationKey{SubjectID: "teacher-1", Term: models.TermStart, Year: testYear}
	count, err := f.repo.Submission().CountAnswers(f.ctx, key)
	require.NoError(t, err)
	assert.Zero(t, count)
	_, err = f.repo.Submission().GetSelfComment(f.ctx, key)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.Empty(t, f.publisher.EventsOfType(events.EventEvaluationSubmitted))
}

func TestSubmissionService_SubmitRejectsDuplicatesAndStrangers(t *testing.T) {
	f := newFixture(t)
	questions := f.openStartTerm(2)

	answers := append(answersFor(questions, "2"), AnswerInput{QuestionID: questions[0].ID, Selected: []string{"2"}})
	_, err := f.svc.Submission().Submit(f.ctx, f.as("teacher-1"), &SubmitEvaluationRequest{
		Term:        models.TermStart,
		Answers:     answers,
		SelfComment: "Twice",
	})
	assert.ErrorIs(t, err, ErrIncompleteAnswers)

	answers = append(answersFor(questions, "2"), AnswerInput{QuestionID: 9999, Selected: []string{"2"}})
	_, err = f.svc.Submission().Submit(f.ctx, f.as("teacher-1"), &SubmitEvaluationRequest{
		Term:        models.TermStart,
		Answers:     answers,
		SelfComment: "Stranger",
	})
	assert.ErrorIs(t, err, ErrIncompleteAnswers)

	_, err = f.svc.Submission().Submit(f.ctx, f.as("teacher-1"), &SubmitEvaluationRequest{
		Term:        models.TermStart,
		Answers:     answersFor(questions, "7"),
		SelfComment: "Out of range",
	})
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestSubmissionService_SubmittedEvaluationIsLocked(t *testing.T) {
	f := newFixture(t)
	questions := f.openStartTerm(2)
	f.submit("teacher-1", questions)

	_, err := f.svc.Submission().SaveDraft(f.ctx, f.as("teacher-1"), &SaveDraftRequest{
		Term:    models.TermStart,
		Answers: answersFor(questions[:1], "1"),
	})
	require.ErrorIs(t, err, ErrSubmissionLocked)
	assert.Equal(t, RuleLocked, RuleOf(err))

	_, err = f.svc.Submission().Submit(f.ctx, f.as("teacher-1"), &SubmitEvaluationRequest{
		Term:        models.TermStart,
		Answers:     answersFor(questions, "1"),
		SelfComment: "Again",
	})
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, KindPreconditionFailed, KindOf(err))

	evaluation, err := f.svc.Submission().GetEvaluation(f.ctx, f.as("teacher-1"), "teacher-1", models.TermStart, 0)
	require.NoError(t, err)
	for _, a := range evaluation.Answers {
		assert.Equal(t, []string{"4"}, []string(a.Selected))
	}
	assert.Equal(t, "A productive term.", evaluation.SelfComment.Comment)
}

func TestSubmissionService_LateQuestionKeepsSubmissionLocked(t *testing.T) {
	f := newFixture(t)
	questions := f.openStartTerm(3)
	f.submit("teacher-1", questions)
	_, err := f.hodReview("teacher-1", true, rubric(4, 4))
	require.NoError(t, err)

	late := f.mcq("hod-cs", models.TermStart, "Late question")
	resp, err := f.svc.Term().PublishQuestions(f.ctx, f.as("hod-cs"), &PublishQuestionsRequest{Term: models.TermStart})
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.PublishedCount)

	_, err = f.svc.Submission().SaveDraft(f.ctx, f.as("teacher-1"), &SaveDraftRequest{
		Term:    models.TermStart,
		Answers: answersFor(questions[:1], "1"),
	})
	require.ErrorIs(t, err, ErrSubmissionLocked)

	_, err = f.svc.Submission().Submit(f.ctx, f.as("teacher-1"), &SubmitEvaluationRequest{
		Term:        models.TermStart,
		Answers:     answersFor(append(questions, late), "1"),
		SelfComment: "Second attempt",
	})
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	evaluation, err := f.svc.Submission().GetEvaluation(f.ctx, f.as("hod-cs"), "teacher-1", models.TermStart, testYear)
	require.NoError(t, err)
	require.Len(t, evaluation.Answers, 3)
	for _, a := range evaluation.Answers {
		assert.Equal(t, []string{"4"}, []string(a.Selected))
	}
	assert.Equal(t, "A productive term.", evaluation.SelfComment.Comment)
	assert.Equal(t, models.PipelineHodReviewed, f.pipelineState("teacher-1"))
}

func TestSubmissionService_SaveDraft(t *testing.T) {
	f := newFixture(t)
	questions := f.openStartTerm(3)

	resp, err := f.svc.Submission().SaveDraft(f.ctx, f.as("teacher-1"), &SaveDraftRequest{
		Term:    models.TermStart,
		Answers: answersFor(questions[:2], "5"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Saved)
	assert.Equal(t, int64(2), resp.Answered)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, models.StatusInProgress, resp.Status)

	resp, err = f.svc.Submission().SaveDraft(f.ctx, f.as("teacher-1"), &SaveDraftRequest{
		Term:    models.TermStart,
		Answers: answersFor(questions[:1], "3"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Answered, "saving a draft twice overwrites the answer")

	f.submit("teacher-1", questions)
	evaluation, err := f.svc.Submission().GetEvaluation(f.ctx, f.as("hod-cs"), "teacher-1", models.TermStart, testYear)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, evaluation.Status)
	assert.Len(t, evaluation.Answers, 3)
}

func TestSubmissionService_TermGates(t *testing.T) {
	t.Run("term not published", func(t *testing.T) {
		f := newFixture(t)
		term := f.createTerm(models.TermStart, f.cs)
		f.activate(term)
		q := f.mcq("hod-cs", models.TermStart, "Q1")

		_, err := f.svc.Submission().Submit(f.ctx, f.as("teacher-1"), &SubmitEvaluationRequest{
			Term:        models.TermStart,
			Answers:     answersFor([]*models.Question{q}, "1"),
			SelfComment: "Early",
		})
		assert.ErrorIs(t, err, ErrTermNotPublished)
	})

	t.Run("term not active", func(t *testing.T) {
		f := newFixture(t)
		questions := f.openStartTerm(1)

		_, err := f.svc.Submission().Submit(f.ctx, f.as("teacher-1"), &SubmitEvaluationRequest{
			Term:        models.TermEnd,
			Answers:     answersFor(questions, "1"),
			SelfComment: "Wrong term",
		})
		assert.ErrorIs(t, err, ErrTermNotActive)
	})

	t.Run("deadline passed", func(t *testing.T) {
		f := newFixture(t)
		deadline := testNow.Add(time.Hour)
		term, err := f.svc.Term().CreateTerm(f.ctx, f.as("admin"), &CreateTermRequest{
			Name:          "Start with deadline",
			Status:        models.TermStart,
			Deadline:      &deadline,
			DepartmentIDs: []uint{f.cs},
		})
		require.NoError(t, err)
		f.activate(term)
		q := f.mcq("hod-cs", models.TermStart, "Q1")
		_, err = f.svc.Term().PublishQuestions(f.ctx, f.as("hod-cs"), &PublishQuestionsRequest{Term: models.TermStart})
		require.NoError(t, err)

		f.clock.Advance(2 * time.Hour)
		_, err = f.svc.Submission().Submit(f.ctx, f.as("teacher-1"), &SubmitEvaluationRequest{
			Term:        models.TermStart,
			Answers:     answersFor([]*models.Question{q}, "1"),
			SelfComment: "Late",
		})
		assert.ErrorIs(t, err, ErrTermClosed)
		assert.Equal(t, RuleTermClosed, RuleOf(err))
	})

	t.Run("only teachers submit", func(t *testing.T) {
		f := newFixture(t)
		questions := f.openStartTerm(1)

		_, err := f.svc.Submission().Submit(f.ctx, f.as("hod-cs"), &SubmitEvaluationRequest{
			Term:        models.TermStart,
			Answers:     answersFor(questions, "1"),
			SelfComment: "Not mine",
		})
		assert.Equal(t, KindForbidden, KindOf(err))
	})
}

func TestSubmissionService_Status(t *testing.T) {
	f := newFixture(t)

	status, err := f.svc.Submission().Status(f.ctx, f.as("teacher-1"))
	require.NoError(t, err)
	assert.Nil(t, status.ActiveTerm)
	require.Len(t, status.Terms, 2)
	for _, entry := range status.Terms {
		assert.Equal(t, models.StatusNotAvailable, entry.Status)
		assert.False(t, entry.CanSubmit)
	}

	questions := f.openStartTerm(2)
	status, err = f.svc.Submission().Status(f.ctx, f.as("teacher-1"))
	require.NoError(t, err)
	require.NotNil(t, status.ActiveTerm)
	assert.Equal(t, models.TermStart, *status.ActiveTerm)
	start := status.Terms[0]
	assert.Equal(t, models.TermStart, start.Term)
	assert.Equal(t, models.StatusNotStarted, start.Status)
	assert.Equal(t, models.VisibilityPublished, start.Visibility)
	assert.Equal(t, 2, start.Total)
	assert.True(t, start.CanSubmit)
	assert.False(t, status.Terms[1].CanSubmit)

	f.submit("teacher-1", questions)
	status, err = f.svc.Submission().Status(f.ctx, f.as("teacher-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, status.Terms[0].Status)
	assert.False(t, status.Terms[0].CanSubmit)
}

func TestSubmissionService_GetEvaluationScope(t *testing.T) {
	f := newFixture(t)
	questions := f.openStartTerm(1)
	f.submit("teacher-1", questions)

	_, err := f.svc.Submission().GetEvaluation(f.ctx, f.as("teacher-2"), "teacher-1", models.TermStart, 0)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.svc.Submission().GetEvaluation(f.ctx, f.as("hod-math"), "teacher-1", models.TermStart, 0)
	assert.Equal(t, KindForbidden, KindOf(err))

	evaluation, err := f.svc.Submission().GetEvaluation(f.ctx, f.as("dean"), "teacher-1", models.TermStart, 0)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, evaluation.Status)

	_, err = f.svc.Submission().GetEvaluation(f.ctx, f.as("dean"), "hod-cs", models.TermStart, 0)
	assert.ErrorIs(t, err, ErrTeacherNotFound)

	_, err = f.svc.Submission().GetEvaluation(f.ctx, f.as("dean"), "teacher-1", "MIDDLE", 0)
	assert.Equal(t, KindInvalidInput, KindOf(err))
}
