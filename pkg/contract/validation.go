package contract

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
)

var (
	phonePattern          = regexp.MustCompile(`^\+?[0-9][0-9 \-()]{6,19}$`)
	permissionNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z0-9_*]+)+$`)
)

// NewValidator returns a validator with the domain tags registered and JSON field names in errors.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	registerDomainValidations(v)
	return v
}

func registerDomainValidations(v *validator.Validate) {
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return isStrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("permname", func(fl validator.FieldLevel) bool {
		return permissionNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("userstatus", func(fl validator.FieldLevel) bool {
		return models.UserStatus(fl.Field().String()).Valid()
	})
}

func isStrongPassword(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

var messages = map[string]string{
	"required":       "is required",
	"email":          "must be a valid email address",
	"phone":          "must be a valid phone number",
	"strongpassword": "must be at least 8 characters with upper case, lower case and a digit",
	"permname":       "must be a dot-namespaced lower case name such as users.create",
	"userstatus":     "must be one of ACTIVE, INACTIVE, SUSPENDED, PENDING_VERIFICATION",
	"min":            "is too short",
	"max":            "is too long",
	"oneof":          "has an unsupported value",
	"uuid":           "must be a valid identifier",
	"gt":             "must not be empty",
	"gte":            "is below the minimum",
}

// Message is the field message reported for a failed validation tag.
func Message(tag string) string {
	if msg, ok := messages[tag]; ok {
		return msg
	}
	return "is invalid"
}

// ValidationError converts validator output into a VALIDATION_ERROR carrying one message per field.
func ValidationError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = Message(fe.Tag())
	}
	out := appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, message), fields)
	out.Err = err
	return out
}

// Validate checks req against its struct tags, returning a VALIDATION_ERROR with per-field messages.
func Validate(v *validator.Validate, req interface{}) error {
	if err := v.Struct(req); err != nil {
		return ValidationError(err, "validation failed")
	}
	return nil
}
