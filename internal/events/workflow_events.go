package events

import (
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/google/uuid"
)

// EventType represents the workflow transitions published to the bus
type EventType string

const (
	// Term events
	EventTermActivated     EventType = "term.activated"
	EventVisibilityChanged EventType = "visibility.changed"
	EventVisibilityReset   EventType = "visibility.reset"
	EventQuestionsPublish  EventType = "questions.published"

	// Submission events
	EventEvaluationSubmitted EventType = "evaluation.submitted"

	// Teacher pipeline events
	EventHodReviewSubmitted   EventType = "review.hod.submitted"
	EventAsstReviewSubmitted  EventType = "review.asst.submitted"
	EventFinalReviewSubmitted EventType = "review.final.submitted"

	// HOD performance events
	EventAsstDeanHodReviewSubmitted EventType = "hod_review.asst.submitted"
	EventDeanHodReviewSubmitted     EventType = "hod_review.dean.submitted"
)

const (
	eventSource  = "evaluation-service"
	eventVersion = "1.0"
)

// WorkflowEvent is the envelope for every published event
type WorkflowEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	ActorID   string                 `json:"actor_id"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewWorkflowEvent wraps a payload in an envelope with a fresh id
func NewWorkflowEvent(eventType EventType, actorID string, at time.Time, data interface{}) *WorkflowEvent {
	return &WorkflowEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: at.UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		ActorID:   actorID,
		Data:      data,
	}
}

// Payloads

type TermActivatedEvent struct {
	TermID        uint              `json:"term_id"`
	ActiveTerm    models.TermStatus `json:"active_term"`
	Year          int               `json:"year"`
	DepartmentIDs []uint            `json:"department_ids"`
}

type VisibilityChangedEvent struct {
	DepartmentID uint                   `json:"department_id"`
	Year         int                    `json:"year"`
	Flag         models.VisibilityFlag  `json:"flag"`
	State        models.VisibilityState `json:"state"`
}

type VisibilityResetEvent struct {
	Year          int   `json:"year"`
	StatesTouched int64 `json:"states_touched"`
}

type QuestionsPublishedEvent struct {
	DepartmentID   uint              `json:"department_id"`
	Term           models.TermStatus `json:"term"`
	Year           int               `json:"year"`
	PublishedCount int64             `json:"published_count"`
}

type EvaluationSubmittedEvent struct {
	TeacherID    string            `json:"teacher_id"`
	DepartmentID uint              `json:"department_id"`
	Term         models.TermStatus `json:"term"`
	Year         int               `json:"year"`
	AnswerCount  int               `json:"answer_count"`
}

type ReviewSubmittedEvent struct {
	SubjectID  string              `json:"subject_id"`
	ReviewerID string              `json:"reviewer_id"`
	Term       models.TermStatus   `json:"term"`
	Year       int                 `json:"year"`
	TotalScore *int                `json:"total_score,omitempty"`
	Status     *models.FinalStatus `json:"status,omitempty"`
}
