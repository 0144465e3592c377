package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	mobilePattern = regexp.MustCompile(`^(?:[0-9]{10}|91[0-9]{10})$`)
	otpPattern    = regexp.MustCompile(`^[0-9]{6}$`)
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

func init() {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// 10-digit national number or 12 digits with the 91 country code.
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
		return otpPattern.MatchString(fl.Field().String())
	})
}

// Errors maps a JSON field name to its failure messages. It is rendered as
// the "errors" object of a 422 response.
type Errors map[string][]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, strings.Join(e[f], "; "))
	}
	return strings.Join(msgs, "; ")
}

// Struct validates the given struct using its validate tags.
// Returns Errors on a validation failure, nil otherwise.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		out := Errors{}
		for _, fe := range ve {
			out[fe.Field()] = append(out[fe.Field()], message(fe))
		}
		return out
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", fe.Field())
	case "mobile":
		return fmt.Sprintf("The %s must be 10 digits, or 12 digits starting with 91.", fe.Field())
	case "otp":
		return fmt.Sprintf("The %s must be exactly 6 digits.", fe.Field())
	default:
		return fmt.Sprintf("The %s field failed '%s'.", fe.Field(), fe.Tag())
	}
}
