package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	upperRegex   = regexp.MustCompile(`[A-Z]`)
	lowerRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex   = regexp.MustCompile(`\d`)
	specialRegex = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// FieldError describes one invalid field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors is returned when a struct fails validation
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(e), strings.Join(messages, "; "))
}

// Fields maps field name to message, for error details
func (e FieldErrors) Fields() map[string]any {
	out := make(map[string]any, len(e))
	for _, err := range e {
		out[err.Field] = err.Message
	}
	return out
}

// StructValidator validates request structs using `validate` tags
type StructValidator struct {
	validate *validator.Validate
	phone    *PhoneValidator
}

// NewStructValidator registers the custom tags used by request models
func NewStructValidator() *StructValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	sv := &StructValidator{validate: v, phone: NewPhoneValidator()}

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	mustRegister(v, "event_phone", func(fl validator.FieldLevel) bool {
		return sv.phone.IsValid(fl.Field().String())
	})
	mustRegister(v, "event_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
	mustRegister(v, "strong_password", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})

	return sv
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("failed to register %q validator: %v", tag, err))
	}
}

// IsStrongPassword requires upper and lower case letters, a digit and a special character
func IsStrongPassword(password string) bool {
	return len(password) >= 8 &&
		upperRegex.MatchString(password) &&
		lowerRegex.MatchString(password) &&
		digitRegex.MatchString(password) &&
		specialRegex.MatchString(password)
}

// Validate checks s and returns FieldErrors on failure
func (sv *StructValidator) Validate(s interface{}) error {
	err := sv.validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return translate(validationErrs)
	}
	return err
}

func translate(errs validator.ValidationErrors) FieldErrors {
	var out FieldErrors
	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_if":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "event_phone":
			message = fmt.Sprintf("%s must be a valid 10-digit mobile number", err.Field())
		case "event_date":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "strong_password":
			message = "password must contain upper and lower case letters, a number and a special character"
		case "eq":
			message = fmt.Sprintf("%s must be accepted", err.Field())
		case "eqfield":
			message = fmt.Sprintf("%s does not match", err.Field())
		case "nefield":
			message = fmt.Sprintf("%s must be different from the current one", err.Field())
		}

		out = append(out, FieldError{Field: err.Field(), Message: message})
	}
	return out
}
