package api

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"wedding-rsvp/internal/models"
)

type ErrorResponse struct {
	FailedField string `json:"failedField"`
	Tag         string `json:"tag"`
	Value       string `json:"value"`
}

var validate = validator.New()

// ValidateStruct returns one entry per failed field, or nil
func ValidateStruct(s interface{}) []*ErrorResponse {
	var errs []*ErrorResponse
	err := validate.Struct(s)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			errs = append(errs, &ErrorResponse{
				FailedField: fe.StructNamespace(),
				Tag:         fe.Tag(),
				Value:       fe.Param(),
			})
		}
	}
	return errs
}

func StandardCouldNotParse(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Could not parse request",
	})
}

// respondError maps the error taxonomy onto HTTP statuses
func respondError(c *fiber.Ctx, err error) error {
	var (
		verr *models.ValidationError
		nerr *models.NotFoundError
		cerr *models.ConflictError
		serr *models.StoreError
	)
	switch {
	case errors.As(err, &verr):
		body := fiber.Map{"error": verr.Message}
		if verr.Required > 0 {
			body["required"] = verr.Required
			body["missing"] = verr.Missing
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.As(err, &nerr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": nerr.Error()})
	case errors.As(err, &cerr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": cerr.Reason, "id": cerr.ID})
	case errors.As(err, &serr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":     "the guest list is unavailable, please try again",
			"retryable": true,
		})
	}
	return err
}

func errorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}
