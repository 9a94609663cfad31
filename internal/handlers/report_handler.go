package handlers

import (
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	BaseHandler
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService, logger utils.Logger) *ReportHandler {
	return &ReportHandler{
		BaseHandler:   NewBaseHandler(logger),
		reportService: reportService,
	}
}

// DepartmentReport projects every teacher's evaluation and pipeline state
// @Summary Department report
// @Tags reports
// @Produce json
// @Param department_id path uint true "Department ID"
// @Param term query string true "START or END"
// @Param year query int false "Academic year"
// @Success 200 {object} services.DepartmentReport
// @Failure 403 {object} ErrorResponse
// @Router /reports/departments/{department_id} [get]
func (h *ReportHandler) DepartmentReport(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	departmentID, ok := h.parseIDParam(c, "department_id")
	if !ok {
		return
	}
	var query services.ReportQuery
	if !h.bindQuery(c, &query) {
		return
	}

	report, err := h.reportService.DepartmentReport(c.Request.Context(), actor, departmentID, &query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportDepartmentReport streams the department report as an xlsx workbook
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /reports/departments/{department_id}/export [get]
func (h *ReportHandler) ExportDepartmentReport(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	departmentID, ok := h.parseIDParam(c, "department_id")
	if !ok {
		return
	}
	var query services.ReportQuery
	if !h.bindQuery(c, &query) {
		return
	}

	data, filename, err := h.reportService.ExportDepartmentReport(c.Request.Context(), actor, departmentID, &query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// HodPerformance summarizes the HOD review track
// @Router /reports/hod-performance [get]
func (h *ReportHandler) HodPerformance(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	var query services.ReportQuery
	if !h.bindQuery(c, &query) {
		return
	}

	stats, err := h.reportService.HodPerformanceStats(c.Request.Context(), actor, &query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Activity lists recent audit entries, newest first
// @Router /reports/activity [get]
func (h *ReportHandler) Activity(c *gin.Context) {
	actor, ok := h.session(c)
	if !ok {
		return
	}
	var req services.ActivityRequest
	if !h.bindQuery(c, &req) {
		return
	}

	logs, err := h.reportService.Activity(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, logs)
}
