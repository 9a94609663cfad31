package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionText     QuestionType = "TEXT"
	QuestionTextarea QuestionType = "TEXTAREA"
	QuestionMCQ      QuestionType = "MCQ"
	QuestionCheckbox QuestionType = "CHECKBOX"
)

var AllQuestionTypes = []QuestionType{QuestionText, QuestionTextarea, QuestionMCQ, QuestionCheckbox}

func (t QuestionType) IsValid() bool {
	for _, qt := range AllQuestionTypes {
		if t == qt {
			return true
		}
	}
	return false
}

// HasOptions reports whether answers are chosen from a fixed option list.
func (t QuestionType) HasOptions() bool {
	return t == QuestionMCQ || t == QuestionCheckbox
}

// Question belongs to exactly one (department, term, year).
type Question struct {
	ID           uint                         `json:"id" gorm:"primaryKey"`
	DepartmentID uint                         `json:"department_id" gorm:"not null;index:idx_questions_scope"`
	Term         TermStatus                   `json:"term" gorm:"not null;size:10;index:idx_questions_scope"`
	Year         int                          `json:"year" gorm:"not null;index:idx_questions_scope"`
	Text         string                       `json:"question" gorm:"not null;type:text"`
	Type         QuestionType                 `json:"type" gorm:"not null;size:20"`
	Options      datatypes.JSONSlice[string]  `json:"options" gorm:"type:jsonb"`
	OptionScores datatypes.JSONSlice[float64] `json:"option_scores" gorm:"type:jsonb"`
	SortOrder    int                          `json:"order" gorm:"not null;default:0"`
	IsActive     bool                         `json:"is_active" gorm:"not null;default:true"`
	IsPublished  bool                         `json:"is_published" gorm:"not null;default:false"`
	CreatedBy    string                       `json:"created_by" gorm:"size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Question) TableName() string {
	return "questions"
}

// OptionIndex returns the position of the option text, or -1.
func (q *Question) OptionIndex(option string) int {
	for i, o := range q.Options {
		if o == option {
			return i
		}
	}
	return -1
}

// ScoreOf returns the configured score of an option, if scores are present.
func (q *Question) ScoreOf(option string) (float64, bool) {
	idx := q.OptionIndex(option)
	if idx < 0 || idx >= len(q.OptionScores) {
		return 0, false
	}
	return q.OptionScores[idx], true
}
