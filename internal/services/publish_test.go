package services

import (
	"context"
	"errors"
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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEventPublisher is a mock implementation of events.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishWorkflowEvent(ctx context.Context, event *events.WorkflowEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestWorkflow_PublishFailureKeepsCommittedWrite(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewFixed(testNow)
	repo := inmem.NewRepository(inmem.Open(clk))

	publisher := new(MockEventPublisher)
	publisher.On("PublishWorkflowEvent", mock.Anything, mock.MatchedBy(func(e *events.WorkflowEvent) bool {
		return e.Type == events.EventTermActivated
	})).Return(errors.New("broker unavailable")).Once()

	svc := NewServiceManager(Dependencies{
		Repo:      repo,
		Publisher: publisher,
		Cache:     cache.NewMemoryCache(clk),
		Clock:     clk,
		Logger:    logger,
		CacheTTL:  time.Minute,
	})

	dept := &models.Department{Name: "Physics", Code: "PHY"}
	require.NoError(t, repo.Department().Create(ctx, dept))
	require.NoError(t, repo.User().Create(ctx, &models.User{ID: "admin", FullName: "Admin", Role: models.RoleAdmin, IsActive: true}))
	admin := &auth.Session{UserID: "admin", Role: models.RoleAdmin}

	term, err := svc.Term().CreateTerm(ctx, admin, &CreateTermRequest{
		Name:          "Start",
		Status:        models.TermStart,
		DepartmentIDs: []uint{dept.ID},
	})
	require.NoError(t, err)

	_, err = svc.Term().ActivateTerm(ctx, admin, term.ID, &ActivateTermRequest{})
	require.NoError(t, err)

	state, err := repo.TermState().Get(ctx, dept.ID, testYear)
	require.NoError(t, err)
	assert.Equal(t, models.TermStart, state.ActiveTerm)
	publisher.AssertExpectations(t)
}
