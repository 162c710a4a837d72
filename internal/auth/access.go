package auth

import (
	"fmt"

	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/models"
)

// Evaluate decides whether a caller presenting roleClaim may perform an
// operation that requires the given role. A nil return means allow.
// Unparseable claims are denied with ErrUnknownRole and ErrUnauthorized.
func Evaluate(required models.Role, roleClaim string) error {
	held, err := models.ParseRole(roleClaim)
	if err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrUnauthorized, err)
	}
	if !held.Satisfies(required) {
		return fmt.Errorf("role %s does not satisfy %s: %w", held, required, apperror.ErrUnauthorized)
	}
	return nil
}
