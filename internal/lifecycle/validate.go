package lifecycle

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/shipdesk/shipdesk/internal/shared"
)

var (
	pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	// state code, PAN, entity number, the literal Z and a check character
	gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
)

// NewValidator returns a validator that reports fields by their db column
// and understands the pincode and gstin tags and decimal amounts.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("db"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return pincodePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("gstin", func(fl validator.FieldLevel) bool {
		return gstinPattern.MatchString(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
	})
	return v
}

// validationError converts validator output into a user facing
// ErrValidation using the schema labels.
func (s Schema[E]) validationError(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return shared.Validation(op, err.Error())
	}
	fe := verrs[0]
	label := s.label(fe.Field())
	switch fe.Tag() {
	case "required":
		return shared.Validation(op, label+" is required")
	case "pincode":
		return shared.Validation(op, label+" must be a valid 6 digit pincode")
	case "gstin":
		return shared.Validation(op, label+" must be a valid 15 character GSTIN")
	case "oneof":
		return shared.Validation(op, label+" must be one of "+fe.Param())
	case "email":
		return shared.Validation(op, label+" must be a valid email address")
	}
	return shared.Validation(op, label+" is invalid")
}
