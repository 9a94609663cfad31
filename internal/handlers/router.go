package handlers

import (
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	termHandler       *TermHandler
	questionHandler   *QuestionHandler
	evaluationHandler *EvaluationHandler
	reviewHandler     *ReviewHandler
	reportHandler     *ReportHandler
	scoringHandler    *ScoringHandler
	healthHandler     *HealthHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	healthChecks map[string]HealthCheck,
) *HandlerManager {
	return &HandlerManager{
		termHandler:       NewTermHandler(serviceManager.Term(), logger),
		questionHandler:   NewQuestionHandler(serviceManager.Question(), logger),
		evaluationHandler: NewEvaluationHandler(serviceManager.Submission(), logger),
		reviewHandler:     NewReviewHandler(serviceManager.Review(), serviceManager.HodReview(), logger),
		reportHandler:     NewReportHandler(serviceManager.Report(), logger),
		scoringHandler:    NewScoringHandler(validator, logger),
		healthHandler:     NewHealthHandler("evaluation-service", healthChecks),
	}
}

// SetupRoutes sets up all API routes. authn runs before every /api/v1 route.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, authn gin.HandlerFunc) {
	// Health check endpoint
	router.GET("/health", hm.healthHandler.Health)

	// API v1 routes
	v1 := router.Group("/api/v1", authn)
	{
		terms := v1.Group("/terms")
		{
			terms.POST("", hm.termHandler.CreateTerm)
			terms.POST("/:id/activate", hm.termHandler.ActivateTerm)
		}

		termStates := v1.Group("/term-states")
		{
			termStates.GET("", hm.termHandler.ListTermStates)
			termStates.POST("/reset", hm.termHandler.ResetVisibility)
			termStates.GET("/:department_id", hm.termHandler.GetTermState)
			termStates.PUT("/:department_id/visibility", hm.termHandler.SetVisibility)
			termStates.POST("/:department_id/complete", hm.termHandler.CompleteVisibility)
		}

		questions := v1.Group("/questions")
		{
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.POST("", hm.questionHandler.CreateQuestion)
			questions.POST("/publish", hm.termHandler.PublishQuestions)
			questions.POST("/rubric-template", hm.questionHandler.InsertRubricTemplate)
			questions.PUT("/:id", hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
		}

		evaluations := v1.Group("/evaluations")
		{
			evaluations.POST("/submit", hm.evaluationHandler.SubmitEvaluation)
			evaluations.PUT("/draft", hm.evaluationHandler.SaveDraft)
			evaluations.GET("/status", hm.evaluationHandler.Status)
			evaluations.GET("/teachers/:teacher_id", hm.evaluationHandler.GetEvaluation)
		}

		// Teacher review pipeline
		reviews := v1.Group("/reviews")
		{
			reviews.POST("/hod", hm.reviewHandler.SubmitHodReview)
			reviews.POST("/asst", hm.reviewHandler.SubmitAsstReview)
			reviews.POST("/final", hm.reviewHandler.SubmitFinalReview)
			reviews.GET("/teachers/:teacher_id", hm.reviewHandler.GetTeacherPipeline)
		}

		// HOD performance pipeline
		hodReviews := v1.Group("/hod-reviews")
		{
			hodReviews.POST("/asst", hm.reviewHandler.SubmitAsstDeanHodReview)
			hodReviews.POST("/dean", hm.reviewHandler.SubmitDeanHodReview)
			hodReviews.GET("/:hod_id", hm.reviewHandler.GetHodPipeline)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/departments/:department_id", hm.reportHandler.DepartmentReport)
			reports.GET("/departments/:department_id/export", hm.reportHandler.ExportDepartmentReport)
			reports.GET("/hod-performance", hm.reportHandler.HodPerformance)
			reports.GET("/activity", hm.reportHandler.Activity)
		}

		v1.POST("/scoring/aggregate", hm.scoringHandler.Aggregate)
	}
}
