package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type TermHandler struct {
	BaseHandler
	termService services.TermService
}

func NewTermHandler(termService services.TermService, logger utils.Logger) *TermHandler {
	return &TermHandler{
		BaseHandler: NewBaseHandler(logger),
		termService: termService,
	}
}

// CreateTerm creates a term and links it to departments
// @Summary Create term
// @Tags terms
// @Accept json
// @Produce json
// @Param term body services.CreateTermRequest true "Term data"
// @Success 201 {object} models.Term
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /terms [post]
func (h *TermHandler) CreateTerm(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	var req services.CreateTermRequest
	if !h.bindJSON(c, &req) {
		return
	}

	term, err := h.termService.CreateTerm(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, term)
}

// ActivateTerm makes the term active in its departments and resets their visibility
// @Summary Activate term
// @Tags terms
// @Param id path uint true "Term ID"
// @Param body body services.ActivateTermRequest false "Year and department subset"
// @Success 200 {object} services.ActivateTermResponse
// @Failure 400 {object} ErrorResponse
// @Router /terms/{id}/activate [post]
func (h *TermHandler) ActivateTerm(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ActivateTermRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Activating term", "term_id", id)

	resp, err := h.termService.ActivateTerm(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// PublishQuestions publishes the actor department's pending questions for a term
// @Router /questions/publish [post]
func (h *TermHandler) PublishQuestions(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	var req services.PublishQuestionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.termService.PublishQuestions(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListTermStates returns every department state for a year
// @Router /term-states [get]
func (h *TermHandler) ListTermStates(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	year, ok := h.parseYearQuery(c)
	if !ok {
		return
	}

	states, err := h.termService.ListTermStates(c.Request.Context(), actor, year)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, states)
}

// GetTermState returns one department's state for a year
// @Router /term-states/{department_id} [get]
func (h *TermHandler) GetTermState(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	departmentID, ok := h.parseIDParam(c, "department_id")
	if !ok {
		return
	}
	year, ok := h.parseYearQuery(c)
	if !ok {
		return
	}

	state, err := h.termService.GetTermState(c.Request.Context(), actor, departmentID, year)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// SetVisibility writes one visibility flag of a department state
// @Router /term-states/{department_id}/visibility [put]
func (h *TermHandler) SetVisibility(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	departmentID, ok := h.parseIDParam(c, "department_id")
	if !ok {
		return
	}
	var req services.SetVisibilityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	state, err := h.termService.SetVisibility(c.Request.Context(), actor, departmentID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// CompleteVisibility marks a term's visibility COMPLETE for a department
// @Router /term-states/{department_id}/complete [post]
func (h *TermHandler) CompleteVisibility(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	departmentID, ok := h.parseIDParam(c, "department_id")
	if !ok {
		return
	}
	var req services.CompleteVisibilityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	state, err := h.termService.CompleteVisibility(c.Request.Context(), actor, departmentID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// ResetVisibility puts every department state of a year back to DRAFT
// @Router /term-states/reset [post]
func (h *TermHandler) ResetVisibility(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	var req services.ResetVisibilityRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.termService.ResetVisibility(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
