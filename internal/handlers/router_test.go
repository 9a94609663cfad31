package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/auth"
	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/clock"
	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories/inmem"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

type testServer struct {
	t      *testing.T
	router *gin.Engine
	repo   *inmem.Repository
	cs     uint
}

func newTestServer(t *testing.T, checks map[string]HealthCheck) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewFixed(time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))
	repo := inmem.NewRepository(inmem.Open(clk))
	v := validator.New()

	svc := services.NewServiceManager(services.Dependencies{
		Repo:      repo,
		Publisher: events.NewMockEventPublisher(slogger),
		Cache:     cache.NewMemoryCache(clk),
		Clock:     clk,
		Validator: v,
		Logger:    slogger,
	})

	ctx := context.Background()
	dept := &models.Department{Name: "Computer Science", Code: "CS"}
	require.NoError(t, repo.Department().Create(ctx, dept))
	for _, u := range []*models.User{
		{ID: "admin", FullName: "Root Admin", Role: models.RoleAdmin},
		{ID: "hod-cs", FullName: "Grace Hopper", Role: models.RoleHOD, DepartmentID: &dept.ID},
		{ID: "teacher-1", FullName: "Ada Lovelace", Role: models.RoleTeacher, DepartmentID: &dept.ID},
		{ID: "dean", FullName: "Donald Knuth", Role: models.RoleDean},
	} {
		u.IsActive = true
		require.NoError(t, repo.User().Create(ctx, u))
	}

	logger := utils.NewSlogLogger(slogger)
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestID())
	NewHandlerManager(svc, v, logger, checks).
		SetupRoutes(router, auth.Middleware(auth.NewJWTProvider(testSecret), slogger))

	return &testServer{t: t, router: router, repo: repo, cs: dept.ID}
}

func (s *testServer) token(userID string, role models.UserRole, departmentID *uint) string {
	s.t.Helper()
	claims := auth.Claims{
		UserID:       userID,
		Role:         string(role),
		DepartmentID: departmentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(s.t, err)
	return signed
}

func (s *testServer) admin() string   { return s.token("admin", models.RoleAdmin, nil) }
func (s *testServer) hod() string     { return s.token("hod-cs", models.RoleHOD, &s.cs) }
func (s *testServer) teacher() string { return s.token("teacher-1", models.RoleTeacher, &s.cs) }
func (s *testServer) dean() string    { return s.token("dean", models.RoleDean, nil) }

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			require.NoError(s.t, err)
			raw = string(encoded)
		}
		reader = bytes.NewBufferString(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// openTerm creates and activates START for the department and publishes one MCQ
func (s *testServer) openTerm() uint {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/terms", s.admin(), services.CreateTermRequest{
		Name:          "Spring start",
		Status:        models.TermStart,
		DepartmentIDs: []uint{s.cs},
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	term := decode[models.Term](s.t, w)

	w = s.do(http.MethodPost, fmt.Sprintf("/api/v1/terms/%d/activate", term.ID), s.admin(), nil)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/questions", s.hod(), services.CreateQuestionRequest{
		Question:     "Rate your course delivery",
		Type:         models.QuestionMCQ,
		Term:         models.TermStart,
		Options:      []string{"1", "2", "3", "4", "5"},
		OptionScores: []float64{1, 2, 3, 4, 5},
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	question := decode[models.Question](s.t, w)

	w = s.do(http.MethodPost, "/api/v1/questions/publish", s.hod(), services.PublishQuestionsRequest{Term: models.TermStart})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return question.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, map[string]HealthCheck{
		"store": func(context.Context) error { return nil },
	})
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "healthy", body["status"])

	down := newTestServer(t, map[string]HealthCheck{
		"cache": func(context.Context) error { return errors.New("connection refused") },
	})
	w = down.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/v1/evaluations/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "MISSING_TOKEN", decode[map[string]string](t, w)["code"])

	w = s.do(http.MethodGet, "/api/v1/evaluations/status", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", decode[map[string]string](t, w)["code"])
}

func TestEvaluationFlow(t *testing.T) {
	s := newTestServer(t, nil)
	questionID := s.openTerm()

	submit := services.SubmitEvaluationRequest{
		Term:        models.TermStart,
		Answers:     []services.AnswerInput{{QuestionID: questionID, Selected: []string{"4"}}},
		SelfComment: "Taught two new courses.",
	}
	w := s.do(http.MethodPost, "/api/v1/evaluations/submit", s.teacher(), submit)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, models.StatusSubmitted, decode[services.SubmitEvaluationResponse](t, w).Status)

	w = s.do(http.MethodPost, "/api/v1/evaluations/submit", s.teacher(), submit)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errBody := decode[ErrorResponse](t, w)
	assert.Equal(t, services.RuleAlreadySubmitted, errBody.Code)

	w = s.do(http.MethodGet, "/api/v1/evaluations/teachers/teacher-1?term=START", s.hod(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	evaluation := decode[services.EvaluationResponse](t, w)
	assert.Len(t, evaluation.Answers, 1)
	assert.Equal(t, "Taught two new courses.", evaluation.SelfComment.Comment)

	w = s.do(http.MethodGet, "/api/v1/evaluations/teachers/teacher-1?term=MIDDLE", s.hod(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewPipelineOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	questionID := s.openTerm()

	w := s.do(http.MethodPost, "/api/v1/reviews/hod", s.hod(), map[string]interface{}{
		"teacher_id": "teacher-1",
		"term":       "START",
		"scores":     map[string]int{"[Professionalism] Punctuality": 4},
		"submitted":  true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.RulePrecursorMissing, decode[ErrorResponse](t, w).Code)

	w = s.do(http.MethodPost, "/api/v1/evaluations/submit", s.teacher(), services.SubmitEvaluationRequest{
		Term:        models.TermStart,
		Answers:     []services.AnswerInput{{QuestionID: questionID, Selected: []string{"5"}}},
		SelfComment: "Done.",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/reviews/hod", s.hod(), map[string]interface{}{
		"teacher_id": "teacher-1",
		"term":       "START",
		"scores":     map[string]int{"[Professionalism] Punctuality": 4},
		"submitted":  true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	review := decode[models.HodReview](t, w)
	assert.Equal(t, 1, review.Version)

	w = s.do(http.MethodPost, "/api/v1/reviews/hod", s.hod(), map[string]interface{}{
		"teacher_id": "teacher-1",
		"term":       "START",
		"scores":     map[string]int{"[Professionalism] Punctuality": 5},
		"submitted":  true,
		"version":    5,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(services.KindConflict), decode[ErrorResponse](t, w).Code)

	w = s.do(http.MethodGet, "/api/v1/reviews/teachers/teacher-1?term=START", s.teacher(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.PipelineHodReviewed, decode[services.TeacherPipelineResponse](t, w).State)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
		code   string
	}{
		{
			name:   "teacher cannot create terms",
			method: http.MethodPost,
			path:   "/api/v1/terms",
			token:  s.teacher(),
			body:   services.CreateTermRequest{Name: "x", Status: models.TermStart, DepartmentIDs: []uint{s.cs}},
			status: http.StatusForbidden,
			code:   string(services.KindForbidden),
		},
		{
			name:   "malformed json",
			method: http.MethodPost,
			path:   "/api/v1/terms",
			token:  s.admin(),
			body:   `{"name":`,
			status: http.StatusBadRequest,
			code:   string(services.KindInvalidInput),
		},
		{
			name:   "struct validation",
			method: http.MethodPost,
			path:   "/api/v1/terms",
			token:  s.admin(),
			body:   services.CreateTermRequest{Name: "x", Status: "MIDDLE", DepartmentIDs: []uint{s.cs}},
			status: http.StatusBadRequest,
			code:   string(services.KindInvalidInput),
		},
		{
			name:   "unknown term",
			method: http.MethodPost,
			path:   "/api/v1/terms/404/activate",
			token:  s.admin(),
			status: http.StatusNotFound,
			code:   string(services.KindNotFound),
		},
		{
			name:   "bad id",
			method: http.MethodPost,
			path:   "/api/v1/terms/abc/activate",
			token:  s.admin(),
			status: http.StatusBadRequest,
			code:   string(services.KindInvalidInput),
		},
		{
			name:   "submit before activation",
			method: http.MethodPost,
			path:   "/api/v1/evaluations/submit",
			token:  s.teacher(),
			body:   services.SubmitEvaluationRequest{Term: models.TermStart, SelfComment: "early"},
			status: http.StatusBadRequest,
			code:   services.RuleTermNotActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestScoringAggregate(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/v1/scoring/aggregate", s.dean(), services.AggregateRequest{
		Scores: map[string]int{
			"[Professionalism] Compliance":  4,
			"[Professionalism] Punctuality": 5,
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[services.AggregateResponse](t, w)
	assert.Equal(t, 90, resp.TotalScore)
	assert.Equal(t, 2, resp.ItemCount)

	w = s.do(http.MethodPost, "/api/v1/scoring/aggregate", s.dean(), services.AggregateRequest{
		Scores: map[string]int{"[Service] Committees": 9},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/scoring/aggregate", s.dean(), map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportExport(t *testing.T) {
	s := newTestServer(t, nil)
	s.openTerm()

	path := fmt.Sprintf("/api/v1/reports/departments/%d/export?term=START", s.cs)
	w := s.do(http.MethodGet, path, s.dean(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("department-%d-START-2025-report.xlsx", s.cs))
	assert.NotZero(t, w.Body.Len())

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/reports/departments/%d?term=START", s.cs), s.teacher(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/reports/activity?limit=2", s.dean(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]models.AuditLog](t, w), 2)
}
