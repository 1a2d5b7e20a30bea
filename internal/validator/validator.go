package validator

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError - ошибки по полям запроса: JSON путь -> сообщение
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("field '%s': %s", field, e.Errors[field]))
	}
	return "Validation failed: " + strings.Join(msgs, "; ")
}

// Validator - обертка над go-playground/validator с именами полей из json-тегов
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomRules(v)

	return &Validator{validate: v}
}

// Validate возвращает *ValidationError для невалидной структуры
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fields[fieldPath(fe)] = message(fe)
	}
	return &ValidationError{Errors: fields}
}

// fieldPath - путь без имени корневой структуры: "options.narrative"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Сообщения для тегов без параметров
var fixedMessages = map[string]string{
	"required":      "This field is required",
	"email":         "Must be a valid email address",
	"url":           "Must be a valid URL",
	"notblank":      "Must not be blank",
	"dream-mood":    "Must be one of: Happy, Calm, Sad, Fearful",
	"report-period": "Must be one of: 7, 30, all",
	"latitude":      "Must be a valid coordinate",
	"longitude":     "Must be a valid coordinate",
}

func message(fe validator.FieldError) string {
	if msg, ok := fixedMessages[fe.Tag()]; ok {
		return msg
	}

	switch fe.Tag() {
	case "aspect-ratio":
		return "Must be one of: " + strings.Join(AspectRatios, ", ")
	case "min":
		if isSized(fe.Kind()) {
			return fmt.Sprintf("Must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		if isSized(fe.Kind()) {
			return fmt.Sprintf("Must be at most %s characters long", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return fmt.Sprintf("Invalid value (failed on '%s' tag)", fe.Tag())
}

func isSized(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Slice || k == reflect.Map
}
