package middleware

import (
	contextPkg "PaintVisualizer/pkg/context"
	"PaintVisualizer/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"regexp"
	"time"
)

const RequestIDKey = "X-Request-ID"

// Incoming ids that do not match are replaced with a fresh ULID.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

func NewRequestIDMiddleware() fiber.Handler {
	utilsInstance := utils.New()

	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDKey)

		if !requestIDPattern.MatchString(requestID) {
			requestID, _ = utilsInstance.NewULIDFromTimestamp(time.Now())
		}

		c.Locals(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)
		c.SetUserContext(contextPkg.WithRequestID(c.UserContext(), requestID))

		return c.Next()
	}
}
