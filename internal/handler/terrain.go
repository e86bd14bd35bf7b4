package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/terradactile/api/internal/model"
	"github.com/terradactile/api/internal/service"
	"github.com/terradactile/api/pkg/response"
)

type TerrainHandler struct {
	service   *service.TerrainService
	validator *validator.Validate
}

func NewTerrainHandler(svc *service.TerrainService, v *validator.Validate) *TerrainHandler {
	return &TerrainHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/terrain: it runs the full tile→mosaic→products
// pipeline synchronously and responds with the job's store location prefix.
func (h *TerrainHandler) Create(c *fiber.Ctx) error {
	var req model.TerrainRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	prefix, err := h.service.Run(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuotaExceeded):
			return response.BadRequest(c, response.CodeQuotaExceeded, err.Error())
		case errors.Is(err, service.ErrTileFetchExhausted):
			return response.BadRequest(c, response.CodeTileFetchExhausted, err.Error())
		case errors.Is(err, service.ErrEngineFailure):
			return response.BadRequest(c, response.CodeEngineError, err.Error())
		case errors.Is(err, service.ErrPublishFailure):
			return response.BadRequest(c, response.CodePublishError, err.Error())
		default:
			return response.ServiceError(c, err.Error())
		}
	}

	return response.OK(c, prefix)
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
