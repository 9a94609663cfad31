package services

import (
	"log/slog"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/clock"
	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

const defaultCacheTTL = 5 * time.Minute

// ServiceManager exposes every workflow service to the handlers
type ServiceManager interface {
	Term() TermService
	Question() QuestionService
	Submission() SubmissionService
	Review() ReviewService
	HodReview() HodReviewService
	Report() ReportService
}

// Dependencies are the collaborators shared by all services. Nil optional
// fields get in-process defaults.
type Dependencies struct {
	Repo      repositories.Repository
	Publisher events.EventPublisher
	Cache     cache.CacheService
	Clock     clock.Clock
	Validator *validator.Validator
	Logger    *slog.Logger
	CacheTTL  time.Duration
}

type serviceManager struct {
	term       TermService
	question   QuestionService
	submission SubmissionService
	review     ReviewService
	hodReview  HodReviewService
	report     ReportService
}

func NewServiceManager(deps Dependencies) ServiceManager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemoryCache(deps.Clock)
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewMockEventPublisher(deps.Logger)
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = defaultCacheTTL
	}

	w := &workflow{
		repo:      deps.Repo,
		publisher: deps.Publisher,
		cache:     deps.Cache,
		clock:     deps.Clock,
		validator: deps.Validator,
		log: NewServiceLogger(deps.Logger, LogConfig{
			Service:   "evaluation-service",
			Component: "workflow",
		}),
		cacheTTL: deps.CacheTTL,
	}

	return &serviceManager{
		term:       NewTermService(w),
		question:   NewQuestionService(w),
		submission: NewSubmissionService(w),
		review:     NewReviewService(w),
		hodReview:  NewHodReviewService(w),
		report:     NewReportService(w),
	}
}

func (m *serviceManager) Term() TermService             { return m.term }
func (m *serviceManager) Question() QuestionService     { return m.question }
func (m *serviceManager) Submission() SubmissionService { return m.submission }
func (m *serviceManager) Review() ReviewService         { return m.review }
func (m *serviceManager) HodReview() HodReviewService   { return m.hodReview }
func (m *serviceManager) Report() ReportService         { return m.report }
