package handlers

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BindJSON binds the request body into out and responds on failure. Missing
// required fields classify as MISSING_FIELDS (the presence check comes
// first); any other violation classifies as VALIDATION_ERROR.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		code, message := classifyBindError(err, out)

		if code == CodeMissingFields {
			RespondMissingFields(ctx, message)
		} else {
			RespondValidationError(ctx, message)
		}

		return false
	}

	return true
}

func classifyBindError(err error, out interface{}) (code, message string) {
	rootType := baseStructType(out)

	// an empty body omits every field, which is a presence failure, not a
	// shape one
	if errors.Is(err, io.EOF) {
		if required := requiredFieldNames(rootType); len(required) > 0 {
			return CodeMissingFields, "Missing required fields: " + strings.Join(required, ", ")
		}

		return CodeValidationError, "Invalid request body"
	}

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		missing := make([]string, 0, len(validatorError))
		problems := make([]string, 0, len(validatorError))

		for _, fieldError := range validatorError {
			field := jsonFieldName(rootType, fieldError.Field())

			if fieldError.Tag() == "required" {
				missing = append(missing, field)
				continue
			}

			problems = append(problems, field+" "+validationMessage(fieldError.Tag(), fieldError.Param()))
		}

		// presence failures win: the original flow checks them before shape
		if len(missing) > 0 {
			return CodeMissingFields, "Missing required fields: " + strings.Join(missing, ", ")
		}

		return CodeValidationError, strings.Join(problems, ", ")
	}

	// bad json syntax, type mismatches, empty body
	return CodeValidationError, "Invalid request body"
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

func requiredFieldNames(rootType reflect.Type) []string {
	if rootType == nil {
		return nil
	}

	var names []string

	for i := 0; i < rootType.NumField(); i++ {
		sf := rootType.Field(i)

		rules := strings.Split(sf.Tag.Get("binding"), ",")

		for _, rule := range rules {
			if rule == "required" {
				names = append(names, jsonFieldName(rootType, sf.Name))
				break
			}
		}
	}

	return names
}

func jsonFieldName(rootType reflect.Type, structField string) string {
	if rootType == nil {
		return structField
	}

	sf, ok := rootType.FieldByName(structField)

	if !ok {
		return structField
	}

	tag := sf.Tag.Get("json")
	if tag == "" {
		return structField
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return structField
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
