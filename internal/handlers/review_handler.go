package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// ReviewHandler serves both review pipelines: teachers reviewed by HOD, assistant
// dean and dean, and HODs reviewed by assistant dean and dean.
type ReviewHandler struct {
	BaseHandler
	reviewService    services.ReviewService
	hodReviewService services.HodReviewService
}

func NewReviewHandler(
	reviewService services.ReviewService,
	hodReviewService services.HodReviewService,
	logger utils.Logger,
) *ReviewHandler {
	return &ReviewHandler{
		BaseHandler:      NewBaseHandler(logger),
		reviewService:    reviewService,
		hodReviewService: hodReviewService,
	}
}

// SubmitHodReview saves the HOD stage of a teacher's pipeline
// @Summary HOD review of a teacher
// @Tags reviews
// @Accept json
// @Produce json
// @Param review body services.TeacherReviewRequest true "Review"
// @Success 200 {object} models.HodReview
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /reviews/hod [post]
func (h *ReviewHandler) SubmitHodReview(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	var req services.TeacherReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}

	review, err := h.reviewService.SubmitHodReview(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// SubmitAsstReview saves the assistant dean stage of a teacher's pipeline
// @Router /reviews/asst [post]
func (h *ReviewHandler) SubmitAsstReview(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	var req services.TeacherReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}

	review, err := h.reviewService.SubmitAsstReview(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// SubmitFinalReview records the dean's decision and freezes the pipeline
// @Router /reviews/final [post]
func (h *ReviewHandler) SubmitFinalReview(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	var req services.FinalReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Finalizing teacher review", "teacher_id", req.TeacherID, "status", req.Status)

	review, err := h.reviewService.SubmitFinalReview(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// GetTeacherPipeline returns every stage of a teacher's pipeline
// @Router /reviews/teachers/{teacher_id} [get]
func (h *ReviewHandler) GetTeacherPipeline(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	term, year, ok := h.parseTermQuery(c)
	if !ok {
		return
	}

	resp, err := h.reviewService.GetTeacherPipeline(c.Request.Context(), actor, c.Param("teacher_id"), term, year)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitAsstDeanHodReview saves the assistant dean stage of a HOD's pipeline
// @Router /hod-reviews/asst [post]
func (h *ReviewHandler) SubmitAsstDeanHodReview(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	var req services.HodReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}

	review, err := h.hodReviewService.SubmitAsstDeanReview(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// SubmitDeanHodReview records the dean's decision on a HOD
// @Router /hod-reviews/dean [post]
func (h *ReviewHandler) SubmitDeanHodReview(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	var req services.DeanHodReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}

	review, err := h.hodReviewService.SubmitDeanReview(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// GetHodPipeline returns both stages of a HOD's pipeline
// @Router /hod-reviews/{hod_id} [get]
func (h *ReviewHandler) GetHodPipeline(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	term, year, ok := h.parseTermQuery(c)
	if !ok {
		return
	}

	resp, err := h.hodReviewService.GetHodPipeline(c.Request.Context(), actor, c.Param("hod_id"), term, year)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
