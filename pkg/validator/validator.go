package validator

import (
	stderrors "errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/encounter-api/pkg/errors"
)

// FieldError is one failed rule, named by the field's JSON key.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var messages = map[string]string{
	"required": "is required",
	"min":      "is too short",
	"max":      "is too long",
	"gte":      "is below the allowed range",
	"lte":      "is above the allowed range",
	"gt":       "must be positive",
	"oneof":    "is not an allowed value",
	"notblank": "cannot be blank",
}

// Validator wraps validator/v10 with JSON field names. It also satisfies
// gin's binding.StructValidator so request binding and service code share
// one rule set.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("validate")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &Validator{v: v}
}

var std = New()

// Validate checks obj against its validate tags using the shared instance.
func Validate(obj interface{}) error {
	return std.Validate(obj)
}

// Validate returns a ValidationError listing every failed field, or nil.
func (v *Validator) Validate(obj interface{}) error {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}
	fields := Fields(err)
	if len(fields) == 0 {
		return errors.Validation("invalid payload", err)
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return errors.Validation(strings.Join(parts, "; "), err)
}

// Fields flattens validator errors into FieldErrors.
func Fields(err error) []FieldError {
	var errs validator.ValidationErrors
	if !stderrors.As(err, &errs) {
		return nil
	}
	out := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		msg := messages[e.Tag()]
		if msg == "" {
			msg = "failed " + e.Tag()
		}
		out = append(out, FieldError{Field: fieldPath(e.Namespace()), Message: msg})
	}
	return out
}

// fieldPath drops the root struct name from a namespace like
// "AppointmentPayload.vitals.temperature".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// ValidateStruct implements binding.StructValidator.
func (v *Validator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return v.Validate(obj)
}

// Engine implements binding.StructValidator.
func (v *Validator) Engine() any {
	return v.v
}
