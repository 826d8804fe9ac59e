// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single failed field with a human-readable message.
type FieldError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the namespaced field that failed, e.g. "detection.channels[0].window".
func (e *FieldError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *FieldError) Tag() string { return e.tag }

// Param returns the tag parameter (e.g., "1" for "min=1").
func (e *FieldError) Param() string { return e.param }

// Value returns the rejected value.
func (e *FieldError) Value() interface{} { return e.value }

// Error returns the message.
func (e *FieldError) Error() string { return e.message }

// Errors collects every failed field of one validated struct.
type Errors struct {
	fields []FieldError
}

// Fields returns the failed fields.
func (ve *Errors) Fields() []FieldError {
	return ve.fields
}

// Error joins all field messages.
func (ve *Errors) Error() string {
	if len(ve.fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.fields))
	for i := range ve.fields {
		messages[i] = ve.fields[i].Error()
	}
	return strings.Join(messages, "; ")
}

// Details returns field -> message, for API error bodies.
func (ve *Errors) Details() map[string]string {
	out := make(map[string]string, len(ve.fields))
	for _, f := range ve.fields {
		out[f.field] = f.message
	}
	return out
}

// GetValidator returns the shared validator instance. Field names are taken
// from koanf or json tags so messages match the configuration keys.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(tagName)
		if err := validate.RegisterValidation("finite", isFinite); err != nil {
			panic(fmt.Sprintf("register finite validator: %v", err))
		}
	})
	return validate
}

func tagName(fld reflect.StructField) string {
	for _, key := range []string{"koanf", "json", "query"} {
		name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// isFinite rejects NaN and infinite floats.
func isFinite(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		v := f.Float()
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	default:
		return true
	}
}

// ValidateStruct validates s and returns nil or *Errors.
func ValidateStruct(s interface{}) *Errors {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &Errors{fields: []FieldError{{field: "unknown", tag: "unknown", message: err.Error()}}}
	}

	fields := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		name := fieldPath(fe)
		fields[i] = FieldError{
			field:   name,
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: translateError(fe, name),
		}
	}
	return &Errors{fields: fields}
}

// fieldPath drops the root struct name from the namespace:
// "Config.detection.gap_tolerance" -> "detection.gap_tolerance".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

var messageTemplates = map[string]string{
	"required": "%s is required",
	"finite":   "%s must be a finite number",
	"hostname": "%s must be a valid hostname",
	"ip":       "%s must be a valid IP address",
	"dive":     "%s has an invalid element",
	"unique":   "%s must not contain duplicates",
}

var paramTemplates = map[string]string{
	"oneof":           "%s must be one of: %s",
	"gte":             "%s must be greater than or equal to %s",
	"lte":             "%s must be less than or equal to %s",
	"gt":              "%s must be greater than %s",
	"lt":              "%s must be less than %s",
	"gtfield":         "%s must be greater than %s",
	"required_if":     "%s is required when %s",
	"required_unless": "%s is required unless %s",
}

func translateError(fe validator.FieldError, field string) string {
	tag := fe.Tag()
	if t, ok := messageTemplates[tag]; ok {
		return fmt.Sprintf(t, field)
	}
	if t, ok := paramTemplates[tag]; ok {
		return fmt.Sprintf(t, field, fe.Param())
	}

	isString := fe.Kind() == reflect.String
	hasLen := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map
	switch tag {
	case "min":
		switch {
		case isString:
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case hasLen:
			return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		switch {
		case isString:
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case hasLen:
			return fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
