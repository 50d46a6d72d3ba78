package validation

import (
	"github.com/go-playground/validator/v10"
)

var Validate = validator.New()

// EchoValidator adapts Validate to echo's Validator interface.
type EchoValidator struct {
	Validator *validator.Validate
}

func (v *EchoValidator) Validate(i interface{}) error {
	return v.Validator.Struct(i)
}
