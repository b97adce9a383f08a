package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// RequestValidator plugs go-playground/validator into echo.  Field names
// in errors are the json names of the request struct.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// decimal.Decimal is compared as a number by gte/lte.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &RequestValidator{v: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// fieldErrors maps a validation failure to json field -> message, keeping
// the struct order of the first failure per field.
func fieldErrors(err error) (map[string]string, string, bool) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return nil, "", false
	}
	out := make(map[string]string, len(ve))
	first := ""
	for _, fe := range ve {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		msg := messageFor(fe)
		out[fe.Field()] = msg
		if first == "" {
			first = msg
		}
	}
	return out, first, true
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "this field is required"
	case "notblank":
		return "this field may not be blank"
	case "email":
		return "enter a valid email address"
	case "datetime":
		return "date has wrong format, use YYYY-MM-DD"
	case "min":
		if fe.Kind() == reflect.String {
			return "ensure this field has at least " + fe.Param() + " characters"
		}
		return "ensure this value is greater than or equal to " + fe.Param()
	case "gte":
		return "ensure this value is greater than or equal to " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "ensure this field has no more than " + fe.Param() + " characters"
		}
		return "ensure this value is less than or equal to " + fe.Param()
	default:
		return "invalid value"
	}
}

// validate runs the echo validator on req and reports whether it passed.
// On failure the 400 (or 500 for a misconfigured validator) has already
// been written and err is the result of writing it.
func validate(c echo.Context, log logrus.FieldLogger, req interface{}) (bool, error) {
	err := c.Validate(req)
	if err == nil {
		return true, nil
	}
	details, first, ok := fieldErrors(err)
	if !ok {
		log.WithError(err).WithField("path", c.Path()).Error("request validation failed")
		return false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return false, c.JSON(http.StatusBadRequest, echo.Map{"error": first, "details": details})
}
