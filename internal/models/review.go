package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type FinalStatus string

const (
	FinalPromoted         FinalStatus = "PROMOTED"
	FinalOnHold           FinalStatus = "ON_HOLD"
	FinalNeedsImprovement FinalStatus = "NEEDS_IMPROVEMENT"
)

func (s FinalStatus) IsValid() bool {
	return s == FinalPromoted || s == FinalOnHold || s == FinalNeedsImprovement
}

// PipelineState is the derived position of a teacher's evaluation in the review chain.
type PipelineState string

const (
	PipelineNoSubmission  PipelineState = "NO_SUBMISSION"
	PipelineSelfSubmitted PipelineState = "SELF_SUBMITTED"
	PipelineHodReviewed   PipelineState = "HOD_REVIEWED"
	PipelineAsstReviewed  PipelineState = "ASST_REVIEWED"
	PipelineFinalized     PipelineState = "DEAN_FINALIZED"
)

var pipelineRank = map[PipelineState]int{
	PipelineNoSubmission:  0,
	PipelineSelfSubmitted: 1,
	PipelineHodReviewed:   2,
	PipelineAsstReviewed:  3,
	PipelineFinalized:     4,
}

// AtLeast reports whether the state has reached the other state.
func (p PipelineState) AtLeast(other PipelineState) bool {
	return pipelineRank[p] >= pipelineRank[other]
}

// HodPipelineState is the derived position of a HOD performance review.
type HodPipelineState string

const (
	HodPipelineNotReviewed HodPipelineState = "NOT_REVIEWED"
	HodPipelineAsstDean    HodPipelineState = "ASST_DEAN_REVIEWED"
	HodPipelineFinalized   HodPipelineState = "DEAN_FINALIZED"
)

// ScoreSheet is the JSON shape stored in the scores column of every review.
type ScoreSheet struct {
	Rubric     map[string]int `json:"rubric"`
	TotalScore *int           `json:"totalScore,omitempty"`
}

// ReviewRecord holds the columns shared by every review table. Version is
// incremented on every write and guards concurrent edits.
type ReviewRecord struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	ReviewerID  string         `json:"reviewer_id" gorm:"not null;size:255;index"`
	Comments    string         `json:"comments" gorm:"type:text"`
	Scores      datatypes.JSON `json:"scores" gorm:"type:jsonb"`
	TotalScore  *int           `json:"total_score"`
	Submitted   bool           `json:"submitted" gorm:"not null;default:false"`
	SubmittedAt *time.Time     `json:"submitted_at"`
	Version     int            `json:"version" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *ReviewRecord) Record() *ReviewRecord {
	return r
}

// Sheet decodes the stored scores. A malformed blob yields an empty sheet.
func (r *ReviewRecord) Sheet() ScoreSheet {
	var sheet ScoreSheet
	if len(r.Scores) > 0 {
		_ = json.Unmarshal(r.Scores, &sheet)
	}
	if sheet.Rubric == nil {
		sheet.Rubric = map[string]int{}
	}
	return sheet
}

// SetSheet encodes the sheet into the scores column and mirrors its total.
func (r *ReviewRecord) SetSheet(sheet ScoreSheet) error {
	data, err := json.Marshal(sheet)
	if err != nil {
		return err
	}
	r.Scores = datatypes.JSON(data)
	r.TotalScore = sheet.TotalScore
	return nil
}

// HodReview is the department head's review of a teacher's self-evaluation.
type HodReview struct {
	ReviewRecord
	TeacherID string     `json:"teacher_id" gorm:"not null;size:255;uniqueIndex:idx_hod_reviews_key"`
	Term      TermStatus `json:"term" gorm:"not null;size:10;uniqueIndex:idx_hod_reviews_key"`
	Year      int        `json:"year" gorm:"not null;uniqueIndex:idx_hod_reviews_key"`
}

func (HodReview) TableName() string {
	return "hod_reviews"
}

type AsstReview struct {
	ReviewRecord
	TeacherID string     `json:"teacher_id" gorm:"not null;size:255;uniqueIndex:idx_asst_reviews_key"`
	Term      TermStatus `json:"term" gorm:"not null;size:10;uniqueIndex:idx_asst_reviews_key"`
	Year      int        `json:"year" gorm:"not null;uniqueIndex:idx_asst_reviews_key"`
}

func (AsstReview) TableName() string {
	return "asst_reviews"
}

// FinalReview is the Dean's decision. It is immutable once submitted.
type FinalReview struct {
	ReviewRecord
	TeacherID    string      `json:"teacher_id" gorm:"not null;size:255;uniqueIndex:idx_final_reviews_key"`
	Term         TermStatus  `json:"term" gorm:"not null;size:10;uniqueIndex:idx_final_reviews_key"`
	Year         int         `json:"year" gorm:"not null;uniqueIndex:idx_final_reviews_key"`
	Status       FinalStatus `json:"status" gorm:"size:30"`
	FinalScore   *int        `json:"final_score"`
	FinalComment string      `json:"final_comment" gorm:"type:text"`
}

func (FinalReview) TableName() string {
	return "final_reviews"
}

// AsstDeanHodReview is the Assistant Dean's review of a HOD.
type AsstDeanHodReview struct {
	ReviewRecord
	HodID string     `json:"hod_id" gorm:"not null;size:255;uniqueIndex:idx_asst_dean_hod_reviews_key"`
	Term  TermStatus `json:"term" gorm:"not null;size:10;uniqueIndex:idx_asst_dean_hod_reviews_key"`
	Year  int        `json:"year" gorm:"not null;uniqueIndex:idx_asst_dean_hod_reviews_key"`
}

func (AsstDeanHodReview) TableName() string {
	return "asst_dean_hod_reviews"
}

// DeanHodReview is the Dean's final review of a HOD. Only these rows count
// towards HOD performance completion.
type DeanHodReview struct {
	ReviewRecord
	HodID  string      `json:"hod_id" gorm:"not null;size:255;uniqueIndex:idx_dean_hod_reviews_key"`
	Term   TermStatus  `json:"term" gorm:"not null;size:10;uniqueIndex:idx_dean_hod_reviews_key"`
	Year   int         `json:"year" gorm:"not null;uniqueIndex:idx_dean_hod_reviews_key"`
	Status FinalStatus `json:"status" gorm:"size:30"`
}

func (DeanHodReview) TableName() string {
	return "dean_hod_reviews"
}
