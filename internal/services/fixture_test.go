package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/auth"
	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/clock"
	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories/inmem"
	"github.com/stretchr/testify/require"
)

const testYear = 2025

var testNow = time.Date(testYear, time.March, 10, 9, 0, 0, 0, time.UTC)

// fixture wires the services to the in-memory store with two departments and
// one user per role.
type fixture struct {
	t         *testing.T
	ctx       context.Context
	clock     *clock.Fixed
	repo      *inmem.Repository
	publisher *events.MockEventPublisher
	cache     cache.CacheService
	svc       ServiceManager

	cs   uint
	math uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewFixed(testNow)
	repo := inmem.NewRepository(inmem.Open(clk))
	publisher := events.NewMockEventPublisher(logger)
	memCache := cache.NewMemoryCache(clk)

	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		clock:     clk,
		repo:      repo,
		publisher: publisher,
		cache:     memCache,
	}
	f.svc = NewServiceManager(Dependencies{
		Repo:      repo,
		Publisher: publisher,
		Cache:     memCache,
		Clock:     clk,
		Logger:    logger,
		CacheTTL:  time.Minute,
	})

	cs := &models.Department{Name: "Computer Science", Code: "CS"}
	math := &models.Department{Name: "Mathematics", Code: "MATH"}
	require.NoError(t, repo.Department().Create(f.ctx, cs))
	require.NoError(t, repo.Department().Create(f.ctx, math))
	f.cs, f.math = cs.ID, math.ID

	f.addUser("teacher-1", "Ada Lovelace", models.RoleTeacher, &f.cs)
	f.addUser("teacher-2", "Alan Turing", models.RoleTeacher, &f.cs)
	f.addUser("teacher-3", "Emmy Noether", models.RoleTeacher, &f.math)
	f.addUser("hod-cs", "Grace Hopper", models.RoleHOD, &f.cs)
	f.addUser("hod-math", "Carl Gauss", models.RoleHOD, &f.math)
	f.addUser("asst-dean", "Barbara Liskov", models.RoleAsstDean, nil)
	f.addUser("dean", "Donald Knuth", models.RoleDean, nil)
	f.addUser("admin", "Root Admin", models.RoleAdmin, nil)
	return f
}

func (f *fixture) addUser(id, name string, role models.UserRole, dept *uint) {
	f.t.Helper()
	user := &models.User{
		ID:           id,
		FullName:     name,
		Email:        id + "@faculty.test",
		Role:         role,
		DepartmentID: dept,
		IsActive:     true,
	}
	require.NoError(f.t, f.repo.User().Create(f.ctx, user))
}

// as returns the session of a seeded user
func (f *fixture) as(userID string) *auth.Session {
	f.t.Helper()
	user, err := f.repo.User().GetByID(f.ctx, userID)
	require.NoError(f.t, err)
	return &auth.Session{UserID: user.ID, Role: user.Role, DepartmentID: user.DepartmentID}
}

func (f *fixture) createTerm(status models.TermStatus, deptIDs ...uint) *models.Term {
	f.t.Helper()
	term, err := f.svc.Term().CreateTerm(f.ctx, f.as("admin"), &CreateTermRequest{
		Name:          fmt.Sprintf("%s term %d", status, testYear),
		Status:        status,
		DepartmentIDs: deptIDs,
	})
	require.NoError(f.t, err)
	return term
}

func (f *fixture) activate(term *models.Term, deptIDs ...uint) {
	f.t.Helper()
	_, err := f.svc.Term().ActivateTerm(f.ctx, f.as("admin"), term.ID, &ActivateTermRequest{DepartmentIDs: deptIDs})
	require.NoError(f.t, err)
}

// mcq creates an MCQ question scored 1..5 in the HOD's department
func (f *fixture) mcq(hodID string, term models.TermStatus, text string) *models.Question {
	f.t.Helper()
	q, err := f.svc.Question().Create(f.ctx, f.as(hodID), &CreateQuestionRequest{
		Question:     text,
		Type:         models.QuestionMCQ,
		Term:         term,
		Options:      []string{"1", "2", "3", "4", "5"},
		OptionScores: []float64{1, 2, 3, 4, 5},
	})
	require.NoError(f.t, err)
	return q
}

// openStartTerm activates START for Computer Science and publishes n questions
func (f *fixture) openStartTerm(n int) []*models.Question {
	f.t.Helper()
	term := f.createTerm(models.TermStart, f.cs)
	f.activate(term)

	questions := make([]*models.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, f.mcq("hod-cs", models.TermStart, fmt.Sprintf("Question %d", i+1)))
	}
	resp, err := f.svc.Term().PublishQuestions(f.ctx, f.as("hod-cs"), &PublishQuestionsRequest{Term: models.TermStart})
	require.NoError(f.t, err)
	require.Equal(f.t, int64(n), resp.PublishedCount)
	return questions
}

func answersFor(questions []*models.Question, option string) []AnswerInput {
	answers := make([]AnswerInput, 0, len(questions))
	for _, q := range questions {
		answers = append(answers, AnswerInput{QuestionID: q.ID, Selected: []string{option}})
	}
	return answers
}

func (f *fixture) submit(teacherID string, questions []*models.Question) {
	f.t.Helper()
	_, err := f.svc.Submission().Submit(f.ctx, f.as(teacherID), &SubmitEvaluationRequest{
		Term:        models.TermStart,
		Answers:     answersFor(questions, "4"),
		SelfComment: "A productive term.",
	})
	require.NoError(f.t, err)
}

func rubric(values ...int) map[string]int {
	keys := []string{
		"[Professionalism] Punctuality",
		"[Leadership] Mentoring",
		"[Development] Training",
		"[Service] Committees",
	}
	scores := make(map[string]int, len(values))
	for i, v := range values {
		scores[keys[i%len(keys)]] = v
	}
	return scores
}

func (f *fixture) hodReview(teacherID string, submitted bool, scores map[string]int) (*models.HodReview, error) {
	return f.svc.Review().SubmitHodReview(f.ctx, f.as("hod-cs"), &TeacherReviewRequest{
		TeacherID: teacherID,
		ReviewInput: ReviewInput{
			Term:      models.TermStart,
			Comments:  "Solid work",
			Scores:    scores,
			Submitted: submitted,
		},
	})
}

func (f *fixture) asstReview(teacherID string, submitted bool, scores map[string]int) (*models.AsstReview, error) {
	return f.svc.Review().SubmitAsstReview(f.ctx, f.as("asst-dean"), &TeacherReviewRequest{
		TeacherID: teacherID,
		ReviewInput: ReviewInput{
			Term:      models.TermStart,
			Scores:    scores,
			Submitted: submitted,
		},
	})
}

func (f *fixture) finalReview(teacherID string, status models.FinalStatus) (*models.FinalReview, error) {
	return f.svc.Review().SubmitFinalReview(f.ctx, f.as("dean"), &FinalReviewRequest{
		TeacherID: teacherID,
		ReviewInput: ReviewInput{
			Term:      models.TermStart,
			Submitted: true,
		},
		Status: status,
	})
}

func (f *fixture) pipelineState(teacherID string) models.PipelineState {
	f.t.Helper()
	state, err := f.svc.Review().PipelineState(f.ctx, teacherID, models.TermStart, testYear)
	require.NoError(f.t, err)
	return state
}

func (f *fixture) termState(dept uint) *models.TermState {
	f.t.Helper()
	state, err := f.repo.TermState().Get(f.ctx, dept, testYear)
	require.NoError(f.t, err)
	return state
}
