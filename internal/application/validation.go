package application

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateRecord checks the struct tags of record and reports failures keyed by
// JSON field name. It returns nil when the record is valid.
//
// Records implementing fieldChecker contribute rules struct tags cannot express.
func validateRecord(record any) *ValidationError {
	vErr := &ValidationError{}
	if err := recordValidator().Struct(record); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			vErr.add("record", err.Error())
			return vErr
		}
		for _, fe := range fieldErrs {
			vErr.add(fe.Field(), describe(fe))
		}
	}
	if checker, ok := record.(fieldChecker); ok {
		vErr.merge(checker.checkFields())
	}
	if !vErr.HasErrors() {
		return nil
	}
	return vErr
}

type fieldChecker interface {
	checkFields() *ValidationError
}

// checkFields rejects nicknames the login prompt cannot express.
func (u User) checkFields() *ValidationError {
	if strings.IndexFunc(u.Nickname, unicode.IsSpace) < 0 {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("nickname", "must not contain spaces")
	return vErr
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gtefield":
		return "must not be before " + lowerFirst(fe.Param())
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
