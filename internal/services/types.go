package services

import (
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/scoring"
)

// ===== TERM & VISIBILITY =====

type CreateTermRequest struct {
	Name          string            `json:"name" validate:"required,max=150"`
	Status        models.TermStatus `json:"status" validate:"required,term_status"`
	Deadline      *time.Time        `json:"deadline"`
	DepartmentIDs []uint            `json:"department_ids" validate:"required,min=1,dive,gt=0"`
}

// ActivateTermRequest targets every linked department when DepartmentIDs is empty.
// A zero Year means the current year.
type ActivateTermRequest struct {
	Year          int    `json:"year" validate:"academic_year"`
	DepartmentIDs []uint `json:"department_ids" validate:"omitempty,dive,gt=0"`
}

type ActivateTermResponse struct {
	ActiveTerm    models.TermStatus `json:"activeTerm"`
	DepartmentIDs []uint            `json:"departmentIds"`
	Year          int               `json:"year"`
}

type PublishQuestionsRequest struct {
	Term models.TermStatus `json:"term" validate:"required,term_status"`
}

type PublishQuestionsResponse struct {
	PublishedCount int64             `json:"publishedCount"`
	DepartmentID   uint              `json:"departmentId"`
	Term           models.TermStatus `json:"term"`
	Year           int               `json:"year"`
}

type SetVisibilityRequest struct {
	Year  int                    `json:"year" validate:"academic_year"`
	Flag  models.VisibilityFlag  `json:"flag" validate:"required,visibility_flag"`
	State models.VisibilityState `json:"state" validate:"required,visibility_state"`
}

type CompleteVisibilityRequest struct {
	Year int               `json:"year" validate:"academic_year"`
	Term models.TermStatus `json:"term" validate:"required,term_status"`
}

type ResetVisibilityRequest struct {
	Year int `json:"year" validate:"academic_year"`
}

type ResetVisibilityResponse struct {
	Year        int   `json:"year"`
	StatesReset int64 `json:"statesReset"`
}

// ===== QUESTION CATALOG =====

type CreateQuestionRequest struct {
	Question     string              `json:"question" validate:"required,max=1000"`
	Type         models.QuestionType `json:"type" validate:"required,question_type"`
	Term         models.TermStatus   `json:"term" validate:"required,term_status"`
	Options      []string            `json:"options" validate:"omitempty,max=20"`
	OptionScores []float64           `json:"optionScores" validate:"omitempty,max=20"`
	Order        *int                `json:"order" validate:"omitempty,gte=1"`
	IsActive     *bool               `json:"isActive"`
}

// UpdateQuestionRequest leaves nil fields unchanged.
type UpdateQuestionRequest struct {
	Question     *string              `json:"question" validate:"omitempty,max=1000"`
	Type         *models.QuestionType `json:"type" validate:"omitempty,question_type"`
	Options      []string             `json:"options" validate:"omitempty,max=20"`
	OptionScores []float64            `json:"optionScores" validate:"omitempty,max=20"`
	Order        *int                 `json:"order" validate:"omitempty,gte=1"`
	IsActive     *bool                `json:"isActive"`
}

type ListQuestionsRequest struct {
	DepartmentID uint              `form:"department_id" json:"department_id"`
	Term         models.TermStatus `form:"term" json:"term" validate:"omitempty,term_status"`
	Year         int               `form:"year" json:"year" validate:"academic_year"`
}

type RubricTemplateResponse struct {
	Term      models.TermStatus  `json:"term"`
	Year      int                `json:"year"`
	Inserted  int                `json:"inserted"`
	Skipped   int                `json:"skipped"`
	Questions []*models.Question `json:"questions"`
}

// ===== SUBMISSION LEDGER =====

type AnswerInput struct {
	QuestionID uint     `json:"question_id" validate:"required,gt=0"`
	Answer     string   `json:"answer" validate:"max=5000"`
	Selected   []string `json:"selected" validate:"omitempty,max=20"`
}

type SubmitEvaluationRequest struct {
	Term        models.TermStatus `json:"term" validate:"required,term_status"`
	Answers     []AnswerInput     `json:"answers" validate:"dive"`
	SelfComment string            `json:"selfComment" validate:"required,max=5000"`
}

type SubmitEvaluationResponse struct {
	Answers     []*models.TeacherAnswer `json:"answers"`
	SelfComment *models.SelfComment     `json:"selfComment"`
	Status      models.EvaluationStatus `json:"status"`
}

type SaveDraftRequest struct {
	Term    models.TermStatus `json:"term" validate:"required,term_status"`
	Answers []AnswerInput     `json:"answers" validate:"required,min=1,dive"`
}

type SaveDraftResponse struct {
	Saved    int                     `json:"saved"`
	Answered int64                   `json:"answered"`
	Total    int                     `json:"total"`
	Status   models.EvaluationStatus `json:"status"`
}

type TermEvaluationStatus struct {
	Term       models.TermStatus       `json:"term"`
	Status     models.EvaluationStatus `json:"status"`
	Visibility models.VisibilityState  `json:"visibility,omitempty"`
	Deadline   *time.Time              `json:"deadline"`
	CanSubmit  bool                    `json:"canSubmit"`
	Answered   int64                   `json:"answered"`
	Total      int                     `json:"total"`
}

type EvaluationStatusResponse struct {
	Year       int                    `json:"year"`
	ActiveTerm *models.TermStatus     `json:"activeTerm"`
	Terms      []TermEvaluationStatus `json:"terms"`
}

type EvaluationResponse struct {
	TeacherID   string                  `json:"teacherId"`
	Term        models.TermStatus       `json:"term"`
	Year        int                     `json:"year"`
	Status      models.EvaluationStatus `json:"status"`
	Questions   []*models.Question      `json:"questions"`
	Answers     []*models.TeacherAnswer `json:"answers"`
	SelfComment *models.SelfComment     `json:"selfComment"`
}

// ===== REVIEW PIPELINE =====

// ReviewInput is shared by every review POST. Version, when given, must
// equal the stored version or the write fails with a conflict.
type ReviewInput struct {
	Term       models.TermStatus `json:"term" validate:"required,term_status"`
	Year       int               `json:"year" validate:"academic_year"`
	Comments   string            `json:"comments" validate:"max=10000"`
	Scores     map[string]int    `json:"scores"`
	TotalScore *int              `json:"totalScore" validate:"omitempty,gte=0,lte=100"`
	Submitted  bool              `json:"submitted"`
	Version    *int              `json:"version" validate:"omitempty,gte=1"`
}

type TeacherReviewRequest struct {
	TeacherID string `json:"teacher_id" validate:"required,max=255"`
	ReviewInput
}

type FinalReviewRequest struct {
	TeacherID string `json:"teacher_id" validate:"required,max=255"`
	ReviewInput
	Status       models.FinalStatus `json:"status" validate:"omitempty,final_status"`
	FinalScore   *int               `json:"finalScore" validate:"omitempty,gte=0,lte=100"`
	FinalComment string             `json:"finalComment" validate:"max=10000"`
}

type HodReviewRequest struct {
	HodID string `json:"hod_id" validate:"required,max=255"`
	ReviewInput
}

type DeanHodReviewRequest struct {
	HodID string `json:"hod_id" validate:"required,max=255"`
	ReviewInput
	Status models.FinalStatus `json:"status" validate:"omitempty,final_status"`
}

type TeacherPipelineResponse struct {
	TeacherID    string                  `json:"teacherId"`
	Term         models.TermStatus       `json:"term"`
	Year         int                     `json:"year"`
	State        models.PipelineState    `json:"state"`
	Evaluation   models.EvaluationStatus `json:"evaluationStatus"`
	HodReview    *models.HodReview       `json:"hodReview"`
	AsstReview   *models.AsstReview      `json:"asstReview"`
	FinalReview  *models.FinalReview     `json:"finalReview"`
	DisplayScore *int                    `json:"displayScore"`
	Promoted     bool                    `json:"promoted"`
}

type HodPipelineResponse struct {
	HodID          string                    `json:"hodId"`
	Term           models.TermStatus         `json:"term"`
	Year           int                       `json:"year"`
	State          models.HodPipelineState   `json:"state"`
	AsstDeanReview *models.AsstDeanHodReview `json:"asstDeanReview"`
	DeanReview     *models.DeanHodReview     `json:"deanReview"`
	DisplayScore   *int                      `json:"displayScore"`
	Promoted       bool                      `json:"promoted"`
}

// ===== REPORTS =====

type TeacherReportRow struct {
	TeacherID     string                  `json:"teacherId"`
	Name          string                  `json:"name"`
	Email         string                  `json:"email"`
	Status        models.EvaluationStatus `json:"status"`
	PipelineState models.PipelineState    `json:"pipelineState"`
	Answered      int64                   `json:"answered"`
	Total         int                     `json:"total"`
	HodTotal      *int                    `json:"hodTotal"`
	AsstTotal     *int                    `json:"asstTotal"`
	FinalStatus   models.FinalStatus      `json:"finalStatus,omitempty"`
	FinalScore    *int                    `json:"finalScore"`
	DisplayScore  *int                    `json:"displayScore"`
	Promoted      bool                    `json:"promoted"`
}

type DepartmentReportSummary struct {
	Teachers     int `json:"teachers"`
	NotStarted   int `json:"notStarted"`
	InProgress   int `json:"inProgress"`
	Submitted    int `json:"submitted"`
	HodReviewed  int `json:"hodReviewed"`
	AsstReviewed int `json:"asstReviewed"`
	Finalized    int `json:"finalized"`
	Promoted     int `json:"promoted"`
}

type DepartmentReport struct {
	DepartmentID   uint                    `json:"departmentId"`
	DepartmentName string                  `json:"departmentName"`
	Term           models.TermStatus       `json:"term"`
	Year           int                     `json:"year"`
	QuestionCount  int                     `json:"questionCount"`
	Summary        DepartmentReportSummary `json:"summary"`
	Teachers       []TeacherReportRow      `json:"teachers"`
	GeneratedAt    time.Time               `json:"generatedAt"`
}

type HodPerformanceRow struct {
	HodID        string                  `json:"hodId"`
	Name         string                  `json:"name"`
	DepartmentID *uint                   `json:"departmentId"`
	State        models.HodPipelineState `json:"state"`
	AsstTotal    *int                    `json:"asstTotal"`
	DeanTotal    *int                    `json:"deanTotal"`
	Status       models.FinalStatus      `json:"status,omitempty"`
	DisplayScore *int                    `json:"displayScore"`
	Promoted     bool                    `json:"promoted"`
}

type HodPerformanceStats struct {
	Term             models.TermStatus   `json:"term"`
	Year             int                 `json:"year"`
	TotalHods        int                 `json:"totalHods"`
	AsstDeanReviewed int                 `json:"asstDeanReviewed"`
	Completed        int                 `json:"completed"`
	Promoted         int                 `json:"promoted"`
	Hods             []HodPerformanceRow `json:"hods"`
}

type ReportQuery struct {
	Term models.TermStatus `form:"term" json:"term" validate:"required,term_status"`
	Year int               `form:"year" json:"year" validate:"academic_year"`
}

type ActivityRequest struct {
	DepartmentID *uint `form:"department_id" json:"department_id"`
	Limit        int   `form:"limit" json:"limit" validate:"omitempty,gte=1,lte=200"`
}

// AggregateRequest feeds live form validation.
type AggregateRequest struct {
	Scores map[string]int `json:"scores" validate:"required"`
}

type AggregateResponse struct {
	scoring.Summary
}
