package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type EvaluationHandler struct {
	BaseHandler
	submissionService services.SubmissionService
}

func NewEvaluationHandler(submissionService services.SubmissionService, logger utils.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		BaseHandler:       NewBaseHandler(logger),
		submissionService: submissionService,
	}
}

// SubmitEvaluation records the teacher's answers and self comment for a term
// @Summary Submit self evaluation
// @Tags evaluations
// @Accept json
// @Produce json
// @Param evaluation body services.SubmitEvaluationRequest true "Answers"
// @Success 201 {object} services.SubmitEvaluationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /evaluations/submit [post]
func (h *EvaluationHandler) SubmitEvaluation(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	var req services.SubmitEvaluationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Submitting evaluation", "term", req.Term, "answers", len(req.Answers))

	resp, err := h.submissionService.Submit(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// SaveDraft upserts answers without submitting
// @Router /evaluations/draft [put]
func (h *EvaluationHandler) SaveDraft(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	var req services.SaveDraftRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.submissionService.SaveDraft(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Status reports the caller's per-term evaluation status
// @Router /evaluations/status [get]
func (h *EvaluationHandler) Status(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}

	resp, err := h.submissionService.Status(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetEvaluation returns a teacher's questions, answers and self comment
// @Router /evaluations/teachers/{teacher_id} [get]
func (h *EvaluationHandler) GetEvaluation(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	term, year, ok := h.parseTermQuery(c)
	if !ok {
		return
	}

	resp, err := h.submissionService.GetEvaluation(c.Request.Context(), actor, c.Param("teacher_id"), term, year)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
