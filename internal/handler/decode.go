package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"outfit-db-api/pkg/apierror"
)

// decodeJSON reads one JSON value from the request body into dst.
// Type mismatches become field-level validation errors.
func decodeJSON(r *http.Request, dst interface{}) *apierror.Error {
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var (
		maxBytesErr *http.MaxBytesError
		typeErr     *json.UnmarshalTypeError
		syntaxErr   *json.SyntaxError
	)
	switch {
	case errors.As(err, &maxBytesErr):
		return apierror.PayloadTooLarge(fmt.Sprintf("Request body exceeds %d bytes", maxBytesErr.Limit))
	case errors.As(err, &typeErr):
		expected := describeType(typeErr.Type.Kind().String())
		if typeErr.Field == "" {
			return apierror.ValidationError("", apierror.FieldError{
				Field:   "body",
				Message: "body values must be " + expected,
			})
		}
		return apierror.ValidationError("", apierror.FieldError{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("%s must be %s", typeErr.Field, expected),
		})
	case errors.Is(err, io.EOF):
		return apierror.BadRequest("Request body is required")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apierror.BadRequest("Invalid JSON body")
	default:
		return apierror.BadRequest("Invalid JSON body")
	}
}

func describeType(kind string) string {
	switch kind {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return "an integer"
	case "string":
		return "a string"
	case "slice", "array":
		return "an array"
	case "map", "struct":
		return "an object"
	case "bool":
		return "a boolean"
	default:
		return "a " + kind
	}
}
