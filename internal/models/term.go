package models

import (
	"time"
)

type TermStatus string

const (
	TermStart TermStatus = "START"
	TermEnd   TermStatus = "END"
)

var AllTerms = []TermStatus{TermStart, TermEnd}

func (t TermStatus) IsValid() bool {
	return t == TermStart || t == TermEnd
}

type VisibilityState string

const (
	VisibilityDraft     VisibilityState = "DRAFT"
	VisibilityPublished VisibilityState = "PUBLISHED"
	VisibilityComplete  VisibilityState = "COMPLETE"
)

func (v VisibilityState) IsValid() bool {
	return v == VisibilityDraft || v == VisibilityPublished || v == VisibilityComplete
}

// VisibilityFlag names one of the three visibility columns of a TermState.
type VisibilityFlag string

const (
	FlagVisibility          VisibilityFlag = "visibility"
	FlagStartTermVisibility VisibilityFlag = "start_term_visibility"
	FlagEndTermVisibility   VisibilityFlag = "end_term_visibility"
)

func (f VisibilityFlag) IsValid() bool {
	return f == FlagVisibility || f == FlagStartTermVisibility || f == FlagEndTermVisibility
}

// FlagFor returns the term-specific visibility flag.
func FlagFor(term TermStatus) VisibilityFlag {
	if term == TermEnd {
		return FlagEndTermVisibility
	}
	return FlagStartTermVisibility
}

// Term is a named evaluation window linked to the departments it applies to.
type Term struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Name        string       `json:"name" gorm:"not null;size:150"`
	Status      TermStatus   `json:"status" gorm:"not null;size:10;index"`
	Deadline    *time.Time   `json:"deadline"`
	Departments []Department `json:"departments,omitempty" gorm:"many2many:term_departments"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Term) TableName() string {
	return "terms"
}

// LinksDepartment reports whether the term applies to the department.
func (t *Term) LinksDepartment(departmentID uint) bool {
	for _, d := range t.Departments {
		if d.ID == departmentID {
			return true
		}
	}
	return false
}

// DepartmentIDs returns the ids of the linked departments.
func (t *Term) DepartmentIDs() []uint {
	ids := make([]uint, 0, len(t.Departments))
	for _, d := range t.Departments {
		ids = append(ids, d.ID)
	}
	return ids
}

// Closed reports whether the deadline has passed at the given instant.
func (t *Term) Closed(now time.Time) bool {
	return t.Deadline != nil && now.After(*t.Deadline)
}

// TermState is the per (department, year) switchboard. Exactly one row exists
// per natural key; all writes are upserts on it.
type TermState struct {
	ID                  uint            `json:"id" gorm:"primaryKey"`
	DepartmentID        uint            `json:"department_id" gorm:"not null;uniqueIndex:idx_term_states_department_year"`
	Year                int             `json:"year" gorm:"not null;uniqueIndex:idx_term_states_department_year"`
	ActiveTerm          TermStatus      `json:"active_term" gorm:"not null;size:10"`
	Visibility          VisibilityState `json:"visibility" gorm:"not null;size:20;default:DRAFT"`
	StartTermVisibility VisibilityState `json:"start_term_visibility" gorm:"not null;size:20;default:DRAFT"`
	EndTermVisibility   VisibilityState `json:"end_term_visibility" gorm:"not null;size:20;default:DRAFT"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TermState) TableName() string {
	return "term_states"
}

// VisibilityFor returns the term-specific visibility.
func (s *TermState) VisibilityFor(term TermStatus) VisibilityState {
	if term == TermEnd {
		return s.EndTermVisibility
	}
	return s.StartTermVisibility
}

// Flag returns the value of the named visibility flag.
func (s *TermState) Flag(flag VisibilityFlag) VisibilityState {
	switch flag {
	case FlagStartTermVisibility:
		return s.StartTermVisibility
	case FlagEndTermVisibility:
		return s.EndTermVisibility
	default:
		return s.Visibility
	}
}

// SetFlag writes the named visibility flag.
func (s *TermState) SetFlag(flag VisibilityFlag, state VisibilityState) {
	switch flag {
	case FlagStartTermVisibility:
		s.StartTermVisibility = state
	case FlagEndTermVisibility:
		s.EndTermVisibility = state
	default:
		s.Visibility = state
	}
}

// ResetVisibility puts all three flags back to DRAFT.
func (s *TermState) ResetVisibility() {
	s.Visibility = VisibilityDraft
	s.StartTermVisibility = VisibilityDraft
	s.EndTermVisibility = VisibilityDraft
}

// IsOpenFor reports whether teachers may answer questions of the term.
func (s *TermState) IsOpenFor(term TermStatus) bool {
	return s.ActiveTerm == term && s.VisibilityFor(term) == VisibilityPublished
}
