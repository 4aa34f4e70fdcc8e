package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// MailTokenHeader carries the inbound mail gateway's shared secret.
const MailTokenHeader = "X-Mail-Token"

// RequireGatewayToken admits callers presenting the shared secret in
// MailTokenHeader. With an empty secret every call is rejected.
func RequireGatewayToken(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		presented := c.Get(MailTokenHeader)
		if secret == "" || presented == "" ||
			subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			return apperrors.NewUnauthorized("invalid gateway token")
		}
		return c.Next()
	}
}
