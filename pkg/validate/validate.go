// Package validate wraps go-playground/validator and reports failures as
// apierror field details.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"outfit-db-api/pkg/apierror"
)

// Validator checks request structs against their `validate` tags.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the custom tags registered.
//
// Custom tags:
//   - jsonobject: a json.RawMessage that, when present and not null, holds a JSON object.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name, which is what clients send.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("jsonobject", isJSONObject)

	return &Validator{v: v}
}

func isJSONObject(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice || field.Type().Elem().Kind() != reflect.Uint8 {
		return false
	}
	raw := bytes.TrimSpace(field.Bytes())
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return true
	}
	var obj map[string]json.RawMessage
	return json.Unmarshal(raw, &obj) == nil
}

// Struct validates s. It returns nil when s is valid and a VALIDATION_ERROR
// otherwise.
func (v *Validator) Struct(s interface{}) *apierror.Error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierror.BadRequest("invalid request")
	}

	details := make([]apierror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apierror.FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return apierror.ValidationError("Validation failed", details...)
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "json":
		return field + " must be a valid JSON string"
	case "jsonobject":
		return field + " must be an object"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
