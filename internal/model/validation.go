package model

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/echocare/caregiver-api/internal/timezone"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

const (
	PhoneFormatMessage = "Please enter a valid phone number starting with '+' and only digits, e.g., +919999888877"
	DoseTimeMessage    = "Dose times must use HH:MM"
	InvalidDateMessage = "Please enter a valid date"
)

var (
	phonePattern    = regexp.MustCompile(`^\+\d{10,15}$`)
	doseTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the domain tags registered.
// Forms are checked with it through their validate tags. Request bodies are
// checked by gin's own engine through binding tags; the router installs the
// same tags there with RegisterValidations.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		RegisterValidations(validate)
	})
	return validate
}

// RegisterValidations installs the json tag name func and the phone,
// hhmm and zone tags on v.
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return doseTimePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("zone", func(fl validator.FieldLevel) bool {
		return timezone.Valid(fl.Field().String())
	})
	_ = v.RegisterValidation("localtime", func(fl validator.FieldLevel) bool {
		return timezone.ValidLocal(fl.Field().String())
	})
}

// BindingErrors converts validator output from gin binding into field
// errors keyed by json name.
func BindingErrors(err error) []apperrors.FieldError {
	return fieldErrors(err, nil)
}

// IsValidPhone checks the +<10-15 digits> contact format.
func IsValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// fieldErrors converts validator output into field errors. messages maps
// "field.tag" or "field" to a user-facing message.
func fieldErrors(err error, messages map[string]string) []apperrors.FieldError {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperrors.FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		msg, ok := messages[field+"."+fe.Tag()]
		if !ok {
			msg, ok = messages[field]
		}
		if !ok {
			msg = defaultMessage(fe)
		}
		out = append(out, apperrors.FieldError{Field: field, Message: msg})
	}
	return out
}

func defaultMessage(fe validator.FieldError) string {
	label := strings.ReplaceAll(fe.Field(), "_", " ")
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "oneof":
		return label + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return label + " must be at least " + fe.Param()
	case "max":
		return label + " must be at most " + fe.Param()
	case "phone":
		return PhoneFormatMessage
	case "hhmm":
		return DoseTimeMessage
	case "zone":
		return label + " must be a valid IANA time zone"
	case "localtime":
		return label + " must be a date and time"
	case "email":
		return "Please enter a valid email address"
	}
	return label + " is invalid"
}

func dateError(field string, d Date) []apperrors.FieldError {
	if d.Malformed() {
		return []apperrors.FieldError{{Field: field, Message: InvalidDateMessage}}
	}
	return nil
}

// check turns field errors into the banner error shown for a form. When a
// required field is missing the banner is requiredMsg, otherwise the first
// field message.
func check(fields []apperrors.FieldError, missing bool, requiredMsg string) error {
	if len(fields) == 0 && !missing {
		return nil
	}
	if missing {
		return apperrors.Validation(requiredMsg, fields)
	}
	return apperrors.Validation(fields[0].Message, fields)
}
