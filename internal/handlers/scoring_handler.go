package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/evaluation-service/internal/scoring"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
	"github.com/gin-gonic/gin"
)

// ScoringHandler aggregates rubric scores without persisting them, for live
// feedback while a reviewer fills in the form.
type ScoringHandler struct {
	BaseHandler
	validator *validator.Validator
}

func NewScoringHandler(validator *validator.Validator, logger utils.Logger) *ScoringHandler {
	return &ScoringHandler{
		BaseHandler: NewBaseHandler(logger),
		validator:   validator,
	}
}

// Aggregate computes category subtotals and the 0-100 total
// @Router /scoring/aggregate [post]
func (h *ScoringHandler) Aggregate(c *gin.Context) {
	if _, ok := h.session(c); !ok {
		return
	}
	var req services.AggregateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	set, err := scoring.ParseScores(req.Scores)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, services.AggregateResponse{Summary: scoring.Aggregate(set)})
}
