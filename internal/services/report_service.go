package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/auth"
	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

const defaultActivityLimit = 50

// ReportService builds the read-only dashboard projections
type ReportService interface {
	DepartmentReport(ctx context.Context, actor *auth.Session, departmentID uint, req *ReportQuery) (*DepartmentReport, error)
	ExportDepartmentReport(ctx context.Context, actor *auth.Session, departmentID uint, req *ReportQuery) ([]byte, string, error)
	HodPerformanceStats(ctx context.Context, actor *auth.Session, req *ReportQuery) (*HodPerformanceStats, error)
	Activity(ctx context.Context, actor *auth.Session, req *ActivityRequest) ([]*models.AuditLog, error)
}

type reportService struct {
	*workflow
}

func NewReportService(w *workflow) ReportService {
	return &reportService{workflow: w}
}

func departmentReportKey(departmentID uint, term models.TermStatus, year int) string {
	return fmt.Sprintf("report:department:%d:%s:%d", departmentID, term, year)
}

func hodReportKey(term models.TermStatus, year int) string {
	return fmt.Sprintf("report:hod:%s:%d", term, year)
}

func (s *reportService) DepartmentReport(ctx context.Context, actor *auth.Session, departmentID uint, req *ReportQuery) (*DepartmentReport, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionViewReports, auth.InDepartment(departmentID), "department", departmentID); err != nil {
		return nil, err
	}
	year := s.yearOr(req.Year)

	return cache.GetOrSet(ctx, s.cache, s.logger(), departmentReportKey(departmentID, req.Term, year), s.cacheTTL,
		func(ctx context.Context) (*DepartmentReport, error) {
			return s.buildDepartmentReport(ctx, departmentID, req.Term, year)
		})
}

// buildDepartmentReport reads every table of the department in parallel and
// derives each teacher's row with the shared pipeline derivation.
func (s *reportService) buildDepartmentReport(ctx context.Context, departmentID uint, term models.TermStatus, year int) (*DepartmentReport, error) {
	dept, err := s.repo.Department().GetByID(ctx, departmentID)
	if err != nil {
		return nil, translateRepoError(err, ErrDepartmentNotFound, "get department")
	}
	role := models.RoleTeacher
	teachers, err := s.repo.User().ListByDepartment(ctx, departmentID, &role)
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	ids := make([]string, 0, len(teachers))
	for _, t := range teachers {
		ids = append(ids, t.ID)
	}

	var (
		questions []*models.Question
		counts    map[string]int64
		comments  []*models.SelfComment
		hods      []*models.HodReview
		assts     []*models.AsstReview
		finals    []*models.FinalReview
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		questions, err = s.evaluationQuestions(gctx, s.repo, departmentID, term, year)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.repo.Submission().CountAnswersByTeacher(gctx, ids, term, year)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = s.repo.Submission().ListSelfComments(gctx, ids, term, year)
		return err
	})
	g.Go(func() error {
		var err error
		hods, err = s.repo.Review().ListHodReviews(gctx, ids, term, year)
		return err
	})
	g.Go(func() error {
		var err error
		assts, err = s.repo.Review().ListAsstReviews(gctx, ids, term, year)
		return err
	})
	g.Go(func() error {
		var err error
		finals, err = s.repo.Review().ListFinalReviews(gctx, ids, term, year)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load department report: %w", err)
	}

	hasComment := make(map[string]bool, len(comments))
	for _, c := range comments {
		hasComment[c.TeacherID] = true
	}
	hodBy := make(map[string]*models.HodReview, len(hods))
	for _, r := range hods {
		hodBy[r.TeacherID] = r
	}
	asstBy := make(map[string]*models.AsstReview, len(assts))
	for _, r := range assts {
		asstBy[r.TeacherID] = r
	}
	finalBy := make(map[string]*models.FinalReview, len(finals))
	for _, r := range finals {
		finalBy[r.TeacherID] = r
	}

	report := &DepartmentReport{
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		Term:           term,
		Year:           year,
		QuestionCount:  len(questions),
		Teachers:       make([]TeacherReportRow, 0, len(teachers)),
		GeneratedAt:    s.now(),
	}

	for _, t := range teachers {
		progress := submissionProgress{
			Questions:  len(questions),
			Answered:   counts[t.ID],
			HasComment: hasComment[t.ID],
		}
		hod, asst, final := hodBy[t.ID], asstBy[t.ID], finalBy[t.ID]

		row := TeacherReportRow{
			TeacherID:     t.ID,
			Name:          t.FullName,
			Email:         t.Email,
			Status:        progress.Status(),
			PipelineState: pipelineState(progress, hod, asst, final),
			Answered:      progress.Answered,
			Total:         progress.Questions,
		}
		if hod != nil {
			row.HodTotal = reviewTotal(&hod.ReviewRecord)
		}
		if asst != nil {
			row.AsstTotal = reviewTotal(&asst.ReviewRecord)
		}
		if final != nil && final.Submitted {
			row.FinalStatus = final.Status
			row.FinalScore = final.FinalScore
		}
		row.DisplayScore, row.Promoted = finalDisplay(final)

		tally(&report.Summary, row)
		report.Teachers = append(report.Teachers, row)
	}
	return report, nil
}

func tally(sum *DepartmentReportSummary, row TeacherReportRow) {
	sum.Teachers++
	switch row.Status {
	case models.StatusNotStarted, models.StatusNotAvailable:
		sum.NotStarted++
	case models.StatusInProgress:
		sum.InProgress++
	case models.StatusSubmitted:
		sum.Submitted++
	}
	if row.PipelineState.AtLeast(models.PipelineHodReviewed) {
		sum.HodReviewed++
	}
	if row.PipelineState.AtLeast(models.PipelineAsstReviewed) {
		sum.AsstReviewed++
	}
	if row.PipelineState == models.PipelineFinalized {
		sum.Finalized++
	}
	if row.Promoted {
		sum.Promoted++
	}
}

// ExportDepartmentReport renders the department report as an xlsx workbook
func (s *reportService) ExportDepartmentReport(ctx context.Context, actor *auth.Session, departmentID uint, req *ReportQuery) ([]byte, string, error) {
	report, err := s.DepartmentReport(ctx, actor, departmentID, req)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Teachers"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, "", fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headers := []string{
		"Teacher ID", "Name", "Email", "Status", "Pipeline State", "Answered", "Total",
		"HOD Score", "Asst Dean Score", "Final Status", "Final Score", "Display Score",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, row := range report.Teachers {
		values := []interface{}{
			row.TeacherID,
			row.Name,
			row.Email,
			string(row.Status),
			string(row.PipelineState),
			row.Answered,
			row.Total,
			cellInt(row.HodTotal),
			cellInt(row.AsstTotal),
			string(row.FinalStatus),
			cellInt(row.FinalScore),
			cellInt(row.DisplayScore),
		}
		for colIndex, value := range values {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	summarySheet := "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, "", fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Department", report.DepartmentName},
		{"Term", string(report.Term)},
		{"Year", report.Year},
		{"Questions", report.QuestionCount},
		{"Teachers", report.Summary.Teachers},
		{"Not Started", report.Summary.NotStarted},
		{"In Progress", report.Summary.InProgress},
		{"Submitted", report.Summary.Submitted},
		{"HOD Reviewed", report.Summary.HodReviewed},
		{"Asst Dean Reviewed", report.Summary.AsstReviewed},
		{"Finalized", report.Summary.Finalized},
		{"Promoted", report.Summary.Promoted},
		{"Generated At", report.GeneratedAt.Format("2006-01-02 15:04:05")},
	}
	for i, pair := range summary {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), pair[0])
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), pair[1])
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write Excel file: %w", err)
	}

	filename := fmt.Sprintf("department-%d-%s-%d-report.xlsx", departmentID, report.Term, report.Year)
	return buf.Bytes(), filename, nil
}

func cellInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

// HodPerformanceStats counts the HOD track. Only Dean reviews count as completed.
func (s *reportService) HodPerformanceStats(ctx context.Context, actor *auth.Session, req *ReportQuery) (*HodPerformanceStats, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.authorize(actor, auth.ActionViewReports, auth.Owner{}, "hod_performance", ""); err != nil {
		return nil, err
	}
	year := s.yearOr(req.Year)

	return cache.GetOrSet(ctx, s.cache, s.logger(), hodReportKey(req.Term, year), s.cacheTTL,
		func(ctx context.Context) (*HodPerformanceStats, error) {
			return s.buildHodStats(ctx, req.Term, year)
		})
}

func (s *reportService) buildHodStats(ctx context.Context, term models.TermStatus, year int) (*HodPerformanceStats, error) {
	var (
		hods  []*models.User
		assts []*models.AsstDeanHodReview
		deans []*models.DeanHodReview
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hods, err = s.repo.User().ListByRole(gctx, models.RoleHOD)
		return err
	})
	g.Go(func() error {
		var err error
		assts, err = s.repo.HodPerformance().ListAsstDeanReviews(gctx, term, year)
		return err
	})
	g.Go(func() error {
		var err error
		deans, err = s.repo.HodPerformance().ListDeanReviews(gctx, term, year)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load HOD performance: %w", err)
	}

	asstBy := make(map[string]*models.AsstDeanHodReview, len(assts))
	for _, r := range assts {
		asstBy[r.HodID] = r
	}
	deanBy := make(map[string]*models.DeanHodReview, len(deans))
	for _, r := range deans {
		deanBy[r.HodID] = r
	}

	stats := &HodPerformanceStats{
		Term:      term,
		Year:      year,
		TotalHods: len(hods),
		Hods:      make([]HodPerformanceRow, 0, len(hods)),
	}
	for _, hod := range hods {
		asst, dean := asstBy[hod.ID], deanBy[hod.ID]
		row := HodPerformanceRow{
			HodID:        hod.ID,
			Name:         hod.FullName,
			DepartmentID: hod.DepartmentID,
			State:        hodPipelineState(asst, dean),
		}
		if asst != nil {
			row.AsstTotal = reviewTotal(&asst.ReviewRecord)
			if asst.Submitted {
				stats.AsstDeanReviewed++
			}
		}
		if dean != nil {
			row.DeanTotal = reviewTotal(&dean.ReviewRecord)
			if dean.Submitted {
				row.Status = dean.Status
				stats.Completed++
			}
		}
		row.DisplayScore, row.Promoted = deanDisplay(dean)
		if row.Promoted {
			stats.Promoted++
		}
		stats.Hods = append(stats.Hods, row)
	}
	return stats, nil
}

// Activity reads the audit trail. A HOD only ever sees the own department.
func (s *reportService) Activity(ctx context.Context, actor *auth.Session, req *ActivityRequest) ([]*models.AuditLog, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	filters := repositories.AuditFilters{DepartmentID: req.DepartmentID, Limit: req.Limit}
	if filters.Limit == 0 {
		filters.Limit = defaultActivityLimit
	}
	if actor.Role == models.RoleHOD {
		deptID, err := s.departmentOf(actor, auth.ActionViewActivity)
		if err != nil {
			return nil, err
		}
		filters.DepartmentID = uintPtr(deptID)
	}
	if err := s.authorize(actor, auth.ActionViewActivity, auth.Owner{DepartmentID: filters.DepartmentID}, "activity", ""); err != nil {
		return nil, err
	}

	entries, err := s.repo.Audit().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}
