package service

import (
	"fmt"

	"simulation-server/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateEmail проверяет адрес получателя письма или плательщика.
func validateEmail(addr string) error {
	if err := validate.Var(addr, "required,email"); err != nil {
		return fmt.Errorf("%w: invalid email", models.ErrBadRequest)
	}
	return nil
}
