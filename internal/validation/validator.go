package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/user-admin-api/internal/models"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error is returned when a record fails validation
type Error struct {
	Errors []ValidationError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		parts = append(parts, ve.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator checks user records against the model constraints
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so messages line up with the API
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// ValidateUser validates a stored user record
func (v *Validator) ValidateUser(user *models.User) []ValidationError {
	return v.collect(v.validate.Struct(user))
}

// ValidateNewUser validates a record that has not been assigned an id
func (v *Validator) ValidateNewUser(user *models.NewUser) []ValidationError {
	return v.collect(v.validate.Struct(user))
}

// CheckUser returns an *Error when the user is invalid
func (v *Validator) CheckUser(user *models.User) error {
	if errs := v.ValidateUser(user); len(errs) > 0 {
		return &Error{Errors: errs}
	}
	return nil
}

// CheckNewUser returns an *Error when the new user is invalid
func (v *Validator) CheckNewUser(user *models.NewUser) error {
	if errs := v.ValidateNewUser(user); len(errs) > 0 {
		return &Error{Errors: errs}
	}
	return nil
}

// ValidateMfaPolicy validates a single MFA policy value
func ValidateMfaPolicy(value string) error {
	if !models.MfaPolicy(value).IsValid() {
		return fmt.Errorf("invalid mfaPolicy %q, must be one of: Low, Medium, High", value)
	}
	return nil
}

func (v *Validator) collect(err error) []ValidationError {
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Field: "", Message: err.Error()}}
	}

	var errors []ValidationError
	for _, fe := range fieldErrs {
		errors = append(errors, ValidationError{
			Field:   fe.Field(),
			Message: message(fe),
			Value:   valueOf(fe),
		})
	}
	return errors
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "invalid email format"
	case "oneof":
		return fmt.Sprintf("invalid %s, must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func valueOf(fe validator.FieldError) interface{} {
	if fe.Tag() == "required" {
		return nil
	}
	return fe.Value()
}
