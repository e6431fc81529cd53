package profile

import (
	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator with the profile tags registered:
// "mbti", "trait" and "birthdate".
func NewValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("mbti", func(fl validator.FieldLevel) bool {
		return IsMBTIType(fl.Field().String())
	})
	_ = v.RegisterValidation("trait", func(fl validator.FieldLevel) bool {
		return IsTraitName(fl.Field().String())
	})
	_ = v.RegisterValidation("birthdate", func(fl validator.FieldLevel) bool {
		_, ok := BirthYear(fl.Field().String())
		return ok
	})
	return v
}

var validate = NewValidator()

// Validate checks p against its field constraints.
func (p *Profile) Validate() error {
	return validate.Struct(p)
}
