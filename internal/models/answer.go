package models

import (
	"time"

	"gorm.io/datatypes"
)

type EvaluationStatus string

const (
	StatusNotAvailable EvaluationStatus = "NOT_AVAILABLE"
	StatusNotStarted   EvaluationStatus = "NOT_STARTED"
	StatusInProgress   EvaluationStatus = "IN_PROGRESS"
	StatusSubmitted    EvaluationStatus = "SUBMITTED"
)

// TeacherAnswer is unique per (teacher, question, term, year).
type TeacherAnswer struct {
	ID         uint                        `json:"id" gorm:"primaryKey"`
	TeacherID  string                      `json:"teacher_id" gorm:"not null;size:255;uniqueIndex:idx_teacher_answers_key"`
	QuestionID uint                        `json:"question_id" gorm:"not null;uniqueIndex:idx_teacher_answers_key;index"`
	Term       TermStatus                  `json:"term" gorm:"not null;size:10;uniqueIndex:idx_teacher_answers_key"`
	Year       int                         `json:"year" gorm:"not null;uniqueIndex:idx_teacher_answers_key"`
	Answer     string                      `json:"answer" gorm:"type:text"`
	Selected   datatypes.JSONSlice[string] `json:"selected,omitempty" gorm:"type:jsonb"`
	Score      *float64                    `json:"score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TeacherAnswer) TableName() string {
	return "teacher_answers"
}

// SelfComment is created exactly once, in the same transaction as the final answers.
type SelfComment struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	TeacherID   string     `json:"teacher_id" gorm:"not null;size:255;uniqueIndex:idx_self_comments_key"`
	Term        TermStatus `json:"term" gorm:"not null;size:10;uniqueIndex:idx_self_comments_key"`
	Year        int        `json:"year" gorm:"not null;uniqueIndex:idx_self_comments_key"`
	Comment     string     `json:"comment" gorm:"type:text"`
	SubmittedAt time.Time  `json:"submitted_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (SelfComment) TableName() string {
	return "self_comments"
}
