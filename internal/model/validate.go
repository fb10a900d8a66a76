package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the profile's required fields.
func (p *Profile) Validate() error {
	if p == nil {
		return errors.New("profile is nil")
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid profile: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid profile: %w", err)
	}
	return nil
}
