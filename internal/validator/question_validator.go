package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

const (
	maxQuestionTextLength = 1000
	maxTextAnswerLength   = 1000
	maxTextareaLength     = 10000
	minChoiceOptions      = 2
)

// QuestionValidator handles question and answer validation per question type
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateQuestion checks text, type and the option/score alignment.
func (v *QuestionValidator) ValidateQuestion(question *models.Question) error {
	var errs ValidationErrors

	text := strings.TrimSpace(question.Text)
	if text == "" {
		errs = append(errs, ValidationError{Field: "question", Message: "is required", Rule: "required"})
	} else if utf8.RuneCountInString(text) > maxQuestionTextLength {
		errs = append(errs, ValidationError{
			Field:   "question",
			Message: fmt.Sprintf("must be at most %d characters", maxQuestionTextLength),
			Rule:    "max",
		})
	}

	if !question.Type.IsValid() {
		errs = append(errs, ValidationError{
			Field:   "type",
			Message: "must be a valid question type (TEXT, TEXTAREA, MCQ, CHECKBOX)",
			Value:   question.Type,
			Rule:    "question_type",
		})
		return errs
	}

	errs = append(errs, v.validateOptions(question)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *QuestionValidator) validateOptions(question *models.Question) ValidationErrors {
	var errs ValidationErrors

	if !question.Type.HasOptions() {
		if len(question.Options) > 0 || len(question.OptionScores) > 0 {
			errs = append(errs, ValidationError{
				Field:   "options",
				Message: fmt.Sprintf("must be empty for %s questions", question.Type),
				Rule:    "options_forbidden",
			})
		}
		return errs
	}

	if len(question.Options) < minChoiceOptions {
		errs = append(errs, ValidationError{
			Field:   "options",
			Message: fmt.Sprintf("must contain at least %d options", minChoiceOptions),
			Rule:    "min",
		})
	}

	if len(question.OptionScores) != len(question.Options) {
		errs = append(errs, ValidationError{
			Field:   "option_scores",
			Message: "must have exactly one score per option",
			Value:   len(question.OptionScores),
			Rule:    "options_aligned",
		})
	}

	seen := make(map[string]bool, len(question.Options))
	for i, option := range question.Options {
		trimmed := strings.TrimSpace(option)
		if trimmed == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("options[%d]", i),
				Message: "must not be empty",
				Rule:    "required",
			})
			continue
		}
		if seen[trimmed] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("options[%d]", i),
				Message: "duplicates another option",
				Value:   option,
				Rule:    "unique",
			})
		}
		seen[trimmed] = true
	}

	return errs
}

// ValidateAnswer checks an answer against its question. Drafts may leave a
// text answer empty; final submissions may not.
func (v *QuestionValidator) ValidateAnswer(question *models.Question, answer string, selected []string, requireValue bool) error {
	field := fmt.Sprintf("answers[%d]", question.ID)
	var errs ValidationErrors

	switch question.Type {
	case models.QuestionText, models.QuestionTextarea:
		limit := maxTextAnswerLength
		if question.Type == models.QuestionTextarea {
			limit = maxTextareaLength
		}
		if requireValue && strings.TrimSpace(answer) == "" {
			errs = append(errs, ValidationError{Field: field, Message: "is required", Rule: "required"})
		}
		if utf8.RuneCountInString(answer) > limit {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("must be at most %d characters", limit),
				Rule:    "max",
			})
		}
		if len(selected) > 0 {
			errs = append(errs, ValidationError{Field: field, Message: "text questions take no selected options", Rule: "options_forbidden"})
		}

	case models.QuestionMCQ:
		if len(selected) == 0 {
			if requireValue {
				errs = append(errs, ValidationError{Field: field, Message: "one option must be selected", Rule: "required"})
			}
			break
		}
		if len(selected) > 1 {
			errs = append(errs, ValidationError{Field: field, Message: "exactly one option must be selected", Value: selected, Rule: "max"})
			break
		}
		errs = append(errs, v.validateSelection(question, field, selected)...)

	case models.QuestionCheckbox:
		if len(selected) == 0 {
			if requireValue {
				errs = append(errs, ValidationError{Field: field, Message: "at least one option must be selected", Rule: "required"})
			}
			break
		}
		errs = append(errs, v.validateSelection(question, field, selected)...)

	default:
		errs = append(errs, ValidationError{Field: field, Message: "unsupported question type", Value: question.Type, Rule: "question_type"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *QuestionValidator) validateSelection(question *models.Question, field string, selected []string) ValidationErrors {
	var errs ValidationErrors
	seen := make(map[string]bool, len(selected))
	for _, option := range selected {
		if question.OptionIndex(option) < 0 {
			errs = append(errs, ValidationError{Field: field, Message: "is not one of the question options", Value: option, Rule: "oneof"})
			continue
		}
		if seen[option] {
			errs = append(errs, ValidationError{Field: field, Message: "selects the same option twice", Value: option, Rule: "unique"})
		}
		seen[option] = true
	}
	return errs
}

// ScoreAnswer derives the option score of a selection. Text questions and
// questions without option scores have no score.
func (v *QuestionValidator) ScoreAnswer(question *models.Question, selected []string) *float64 {
	if !question.Type.HasOptions() || len(question.OptionScores) == 0 || len(selected) == 0 {
		return nil
	}
	var total float64
	for _, option := range selected {
		if score, ok := question.ScoreOf(option); ok {
			total += score
		}
	}
	return &total
}
