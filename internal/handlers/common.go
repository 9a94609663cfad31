package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/evaluation-service/internal/auth"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

// NewBaseHandler creates a new base handler with logging capability
func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", utils.RequestIDFromContext(c),
		"user_id", h.extractUserID(c),
	}
	fields = append(fields, additionalFields...)

	h.logger.DebugContext(c.Request.Context(), message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"request_id", utils.RequestIDFromContext(c),
		"user_id", h.extractUserID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	fields = append(fields, additionalFields...)

	h.logger.LogError(err, message, fields...)
}

func (h *BaseHandler) extractUserID(c *gin.Context) interface{} {
	if userID, exists := c.Get("user_id"); exists {
		return userID
	}
	return nil
}

// session returns the authenticated actor or writes a 401
func (h *BaseHandler) session(c *gin.Context) (*auth.Session, bool) {
	s, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "User not authenticated",
			Code:  string(services.KindUnauthorized),
		})
		return nil, false
	}
	return s, true
}

// bindJSON decodes the request body, writing a 400 on malformed input
func (h *BaseHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request payload",
			Code:    string(services.KindInvalidInput),
			Details: err.Error(),
		})
		return false
	}
	return true
}

func (h *BaseHandler) bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid query parameters",
			Code:    string(services.KindInvalidInput),
			Details: err.Error(),
		})
		return false
	}
	return true
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid " + param,
			Code:    string(services.KindInvalidInput),
			Details: "must be a positive integer",
		})
		return 0, false
	}
	return uint(id), true
}

// parseTermQuery reads ?term=&year= for the read endpoints keyed by evaluation
func (h *BaseHandler) parseTermQuery(c *gin.Context) (models.TermStatus, int, bool) {
	term := models.TermStatus(c.Query("term"))
	if !term.IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid term",
			Code:    string(services.KindInvalidInput),
			Details: "term must be START or END",
		})
		return "", 0, false
	}
	year, ok := h.parseYearQuery(c)
	return term, year, ok
}

// parseYearQuery returns 0 when year is absent so services fall back to the current year
func (h *BaseHandler) parseYearQuery(c *gin.Context) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid year",
			Code:    string(services.KindInvalidInput),
			Details: err.Error(),
		})
		return 0, false
	}
	return year, true
}

var kindStatus = map[services.ErrorKind]int{
	services.KindUnauthorized:       http.StatusUnauthorized,
	services.KindForbidden:          http.StatusForbidden,
	services.KindNotFound:           http.StatusNotFound,
	services.KindInvalidInput:       http.StatusBadRequest,
	services.KindPreconditionFailed: http.StatusBadRequest,
	services.KindConflict:           http.StatusConflict,
	services.KindInternal:           http.StatusInternalServerError,
}

// handleServiceError maps a service error onto the HTTP error body
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		kind, status = services.KindInternal, http.StatusInternalServerError
	}

	resp := ErrorResponse{Error: err.Error(), Code: string(kind)}

	var validationErrors services.ValidationErrors
	var businessRuleError *services.BusinessRuleError
	var permissionError *services.PermissionError
	switch {
	case errors.As(err, &validationErrors):
		resp.Error = "Validation failed"
		resp.Details = validationErrors
	case errors.As(err, &businessRuleError):
		resp.Error = businessRuleError.Message
		resp.Code = businessRuleError.Rule
		resp.Details = businessRuleError.Context
	case errors.As(err, &permissionError):
		resp.Error = "Access denied"
		resp.Details = map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		}
	case kind == services.KindInternal:
		h.LogError(c, err, "Unhandled service error")
		resp.Error = "Internal server error"
	}

	c.JSON(status, resp)
}
