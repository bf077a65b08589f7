package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	maxAmountDecimals = int32(2)
	paymentIdRgx      = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterTagNameFunc(jsonFieldName)
	validator.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	validator.RegisterValidation("amount", validateAmount)
	validator.RegisterValidation("payment_id", validatePaymentId)

	return validator
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}

	return name
}

// decimalValue lets decimal fields be validated as their string form.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}

	return nil
}

func validateAmount(fl validator.FieldLevel) bool {
	amount, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}

	if !amount.IsPositive() {
		return false
	}

	return amount.Exponent() >= -maxAmountDecimals || amount.Equal(amount.Round(maxAmountDecimals))
}

func validatePaymentId(fl validator.FieldLevel) bool {
	return paymentIdRgx.MatchString(fl.Field().String())
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if isNumber(err.Kind()) {
			return fmt.Sprintf("must be at least %s", err.Param())
		}
		return fmt.Sprintf("must be at least %s characters long", err.Param())
	case "max":
		if err.Kind() == reflect.Map {
			return fmt.Sprintf("must have at most %s entries", err.Param())
		}
		if isNumber(err.Kind()) {
			return fmt.Sprintf("must be at most %s", err.Param())
		}
		return fmt.Sprintf("must be at most %s characters long", err.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(strings.Fields(err.Param()), ", "))
	case "iso4217":
		return "must be an ISO 4217 currency code"
	case "amount":
		return "must be a positive amount with at most two decimal places"
	case "payment_id":
		return "must contain only letters, digits, '-' and '_'"
	default:
		return "is invalid"
	}
}

func isNumber(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}
