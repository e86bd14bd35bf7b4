package response

import "github.com/gofiber/fiber/v2"

// Error codes
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeInvalidOrigin      = "INVALID_ORIGIN"
	CodeQuotaExceeded      = "QUOTA_EXCEEDED"
	CodeTileFetchExhausted = "TILE_FETCH_EXHAUSTED"
	CodeEngineError        = "ENGINE_ERROR"
	CodePublishError       = "PUBLISH_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeServiceError       = "SERVICE_ERROR"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(data)
}

func Error(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func ValidationError(c *fiber.Ctx, message string, details interface{}) error {
	return Error(c, fiber.StatusBadRequest, CodeValidationError, message, details)
}

// BadRequest reports a handled pipeline failure. Every failure kind the job
// pipeline can surface maps to a 400 with a code the client can branch on.
func BadRequest(c *fiber.Ctx, code, message string) error {
	return Error(c, fiber.StatusBadRequest, code, message, nil)
}

func InvalidOrigin(c *fiber.Ctx) error {
	return Error(c, fiber.StatusBadRequest, CodeInvalidOrigin, "Origin not in allowed origins!", nil)
}

func RateLimited(c *fiber.Ctx) error {
	return Error(c, fiber.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded", nil)
}

func ServiceError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeServiceError, message, nil)
}
