package services

import (
	"errors"
	"reflect"
	"strings"

	"fx-client-portal/ledger"

	"github.com/go-playground/validator/v10"
)

// ErrConfirmationRequired guards destructive calls made without confirm=true.
var ErrConfirmationRequired = errors.New("confirmation required")

var ApplicationPlatforms = []string{
	"MetaTrader 4 (MT4)",
	"MetaTrader 5 (MT5)",
	"cTrader",
	"TradingView",
	"Other",
}

var BrokerPlatforms = []string{"MT4", "MT5", "cTrader", "TradingView"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("platform", oneOf(ApplicationPlatforms))
	_ = v.RegisterValidation("broker_platform", oneOf(BrokerPlatforms))
	return v
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		got := fl.Field().String()
		for _, a := range allowed {
			if a == got {
				return true
			}
		}
		return false
	}
}

// validateStruct runs the struct's validate tags and turns failures into a
// *ledger.ValidationError. messages is keyed by "field.tag" or just "field".
func validateStruct(s any, messages map[string]string) *ledger.ValidationError {
	verr := &ledger.ValidationError{}

	err := validate.Struct(s)
	if err == nil {
		return verr
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		verr.Add("request", "Invalid request")
		return verr
	}
	for _, fe := range ves {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg, ok = messages[fe.Field()]
		}
		if !ok {
			msg = "Invalid value"
		}
		verr.Add(fe.Field(), msg)
	}
	return verr
}
