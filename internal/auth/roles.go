package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// RequireType ensures the caller has one of the allowed user types.
func RequireType(allowed ...domain.UserType) fiber.Handler {
	allowedSet := make(map[domain.UserType]struct{}, len(allowed))
	for _, t := range allowed {
		allowedSet[t] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		user := UserFromContext(c)
		if user == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, ok := allowedSet[user.Type]; !ok {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
