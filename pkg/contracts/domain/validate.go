package domain

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	filenamePattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
)

// Validator returns the shared struct validator for domain records. Error
// messages use JSON field names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterValidation("filename", isValidFilename)
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// Validate checks a domain record against its struct tags
func Validate(v interface{}) error {
	return Validator().Struct(v)
}

// isValidFilename accepts bare output table names (no path separators or extension)
func isValidFilename(fl validator.FieldLevel) bool {
	return filenamePattern.MatchString(fl.Field().String())
}
