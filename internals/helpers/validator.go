package helper

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// ValidateStruct runs the shared validator.v10 instance over a DTO.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}
