package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/evaluation-service/internal/errors"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

// ErrorKind is the caller-facing category of a service error
type ErrorKind string

const (
	KindUnauthorized       ErrorKind = "UNAUTHORIZED"
	KindForbidden          ErrorKind = "FORBIDDEN"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindInvalidInput       ErrorKind = "INVALID_INPUT"
	KindPreconditionFailed ErrorKind = "PRECONDITION_FAILED"
	KindConflict           ErrorKind = "CONFLICT"
	KindInternal           ErrorKind = "INTERNAL"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrForbidden          = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed   = errors.New("validation failed")
	ErrConflict           = errors.New("resource conflict")
	ErrPreconditionFailed = errors.New("precondition failed")

	// Lookup errors
	ErrTermNotFound       = errors.New("term not found")
	ErrTermStateNotFound  = errors.New("term state not found")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrTeacherNotFound    = errors.New("teacher not found")
	ErrHodNotFound        = errors.New("head of department not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrReviewNotFound     = errors.New("review not found")

	// Term and visibility errors
	ErrTermAlreadyActive      = errors.New("term is already active")
	ErrTermNotActive          = errors.New("term is not the active term")
	ErrTermNotPublished       = errors.New("term questions are not published")
	ErrTermClosed             = errors.New("term deadline has passed")
	ErrNoUnpublishedQuestions = errors.New("no unpublished questions")

	// Question errors
	ErrQuestionAnswered = errors.New("question already has answers")

	// Submission errors
	ErrAlreadySubmitted  = errors.New("evaluation already submitted")
	ErrNoQuestions       = errors.New("no questions to answer")
	ErrIncompleteAnswers = errors.New("answers do not cover every question")
	ErrSubmissionLocked  = errors.New("evaluation is locked")

	// Review pipeline errors
	ErrPrecursorMissing     = errors.New("previous stage is missing")
	ErrHodReviewIncomplete  = errors.New("HOD review is not submitted")
	ErrAsstReviewIncomplete = errors.New("assistant dean review is not submitted")
	ErrAlreadyFinalized     = errors.New("review is already finalized")
	ErrVersionConflict      = errors.New("review was modified concurrently")
	ErrDuplicate            = errors.New("resource already exists")
)

// Rule codes carried by BusinessRuleError
const (
	RuleAlreadyActive          = "AlreadyActive"
	RuleNoUnpublishedQuestions = "NoUnpublishedQuestions"
	RuleQuestionAnswered       = "QuestionAnswered"
	RuleAlreadySubmitted       = "AlreadySubmitted"
	RuleNoQuestions            = "NoQuestions"
	RuleIncompleteAnswers      = "IncompleteAnswers"
	RuleLocked                 = "Locked"
	RulePrecursorMissing       = "PrecursorMissing"
	RuleHodReviewIncomplete    = "HodReviewIncomplete"
	RuleAsstReviewIncomplete   = "AsstReviewIncomplete"
	RuleAlreadyFinalized       = "AlreadyFinalized"
	RuleTermNotActive          = "TermNotActive"
	RuleTermNotPublished       = "TermNotPublished"
	RuleTermClosed             = "TermClosed"
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// BusinessRuleError is a failed workflow precondition. It unwraps to the
// sentinel for the rule.
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
	Err     error                  `json:"-"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

func (bre *BusinessRuleError) Unwrap() error {
	return bre.Err
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

func (pe *PermissionError) Unwrap() error {
	return ErrForbidden
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule string, sentinel error, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
		Err:     sentinel,
	}
}

func NewPermissionError(userID string, resourceID interface{}, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: fmt.Sprint(resourceID),
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

var sentinelKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrUnauthorized, KindUnauthorized},
	{ErrForbidden, KindForbidden},
	{ErrValidationFailed, KindInvalidInput},
	{ErrConflict, KindConflict},
	{ErrVersionConflict, KindConflict},
	{ErrDuplicate, KindConflict},
	{ErrPreconditionFailed, KindPreconditionFailed},
	{ErrNotFound, KindNotFound},
	{ErrTermNotFound, KindNotFound},
	{ErrTermStateNotFound, KindNotFound},
	{ErrDepartmentNotFound, KindNotFound},
	{ErrUserNotFound, KindNotFound},
	{ErrTeacherNotFound, KindNotFound},
	{ErrHodNotFound, KindNotFound},
	{ErrQuestionNotFound, KindNotFound},
	{ErrReviewNotFound, KindNotFound},
}

// KindOf classifies any error returned by a service. Unknown errors are Internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return KindInvalidInput
	}
	var single *apperrors.ValidationError
	if errors.As(err, &single) {
		return KindInvalidInput
	}
	var bre *BusinessRuleError
	if errors.As(err, &bre) {
		return KindPreconditionFailed
	}

	for _, sk := range sentinelKinds {
		if errors.Is(err, sk.err) {
			return sk.kind
		}
	}
	return KindInternal
}

// RuleOf returns the business rule code of err, if any
func RuleOf(err error) string {
	var bre *BusinessRuleError
	if errors.As(err, &bre) {
		return bre.Rule
	}
	return ""
}

// translateRepoError maps repository errors onto service sentinels. notFound
// replaces repositories.ErrNotFound.
func translateRepoError(err error, notFound error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return notFound
	case errors.Is(err, repositories.ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, repositories.ErrDuplicate):
		return ErrDuplicate
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
