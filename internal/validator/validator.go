package validator

import (
	"reflect"
	"strings"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags and converts failures to ValidationErrors
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// Question returns the question validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("term_status", validateTermStatus)
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("visibility_state", validateVisibilityState)
	validate.RegisterValidation("visibility_flag", validateVisibilityFlag)
	validate.RegisterValidation("final_status", validateFinalStatus)
	validate.RegisterValidation("user_role", validateUserRole)
	validate.RegisterValidation("academic_year", validateAcademicYear)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateTermStatus(fl validator.FieldLevel) bool {
	return models.TermStatus(fl.Field().String()).IsValid()
}

func validateQuestionType(fl validator.FieldLevel) bool {
	return models.QuestionType(fl.Field().String()).IsValid()
}

func validateVisibilityState(fl validator.FieldLevel) bool {
	return models.VisibilityState(fl.Field().String()).IsValid()
}

func validateVisibilityFlag(fl validator.FieldLevel) bool {
	return models.VisibilityFlag(fl.Field().String()).IsValid()
}

func validateFinalStatus(fl validator.FieldLevel) bool {
	return models.FinalStatus(fl.Field().String()).IsValid()
}

func validateUserRole(fl validator.FieldLevel) bool {
	return models.UserRole(fl.Field().String()).IsValid()
}

// Zero means "current year" and is accepted.
func validateAcademicYear(fl validator.FieldLevel) bool {
	year := fl.Field().Int()
	return year == 0 || (year >= 2000 && year <= 2100)
}
