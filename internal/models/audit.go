package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditEventType string

const (
	AuditTermCreated          AuditEventType = "term_created"
	AuditTermActivated        AuditEventType = "term_activated"
	AuditVisibilityChanged    AuditEventType = "visibility_changed"
	AuditVisibilityReset      AuditEventType = "visibility_reset"
	AuditQuestionCreated      AuditEventType = "question_created"
	AuditQuestionUpdated      AuditEventType = "question_updated"
	AuditQuestionDeleted      AuditEventType = "question_deleted"
	AuditQuestionsPublished   AuditEventType = "questions_published"
	AuditRubricInserted       AuditEventType = "rubric_template_inserted"
	AuditDraftSaved           AuditEventType = "draft_saved"
	AuditEvaluationSubmitted  AuditEventType = "evaluation_submitted"
	AuditHodReviewSaved       AuditEventType = "hod_review_saved"
	AuditAsstReviewSaved      AuditEventType = "asst_review_saved"
	AuditFinalReviewSaved     AuditEventType = "final_review_saved"
	AuditAsstDeanHodReviewSet AuditEventType = "asst_dean_hod_review_saved"
	AuditDeanHodReviewSet     AuditEventType = "dean_hod_review_saved"
)

// AuditLog is written inside the transaction of every workflow mutation and
// backs the activity feed.
type AuditLog struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	EventType AuditEventType `json:"event_type" gorm:"not null;size:50;index"`

	ActorID   string   `json:"actor_id" gorm:"not null;size:255;index"`
	ActorRole UserRole `json:"actor_role" gorm:"not null;size:20"`

	DepartmentID *uint      `json:"department_id" gorm:"index"`
	TargetType   string     `json:"target_type" gorm:"size:50"`
	TargetID     string     `json:"target_id" gorm:"size:255"`
	Term         TermStatus `json:"term,omitempty" gorm:"size:10"`
	Year         int        `json:"year,omitempty"`

	Description string         `json:"description" gorm:"type:text"`
	Metadata    datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
