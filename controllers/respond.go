package controllers

import (
	"errors"

	"tutorlink_go/services"
	"tutorlink_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// respondError maps service errors onto status codes.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	var perr *services.ProfanityError
	switch {
	case errors.As(err, &perr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":          "Content contains inappropriate language",
			"detected_words": perr.Words,
		})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredential):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Resource not found"})
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrAlreadySubmitted),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrBookingOverlap):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	logrus.WithError(err).WithField("path", c.Path()).Error(fallback)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
}

// parseBody decodes and validates a request body. It writes the 400 itself
// and returns false when the caller should stop.
func parseBody(c *fiber.Ctx, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if details := utils.ValidateStruct(out); details != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": details,
		})
	}
	return true, nil
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := utils.ParseUint(c.Params(name))
	return id, err == nil
}

func badID(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid " + what + " ID"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
}

func pagination(page, limit int, total int64) fiber.Map {
	return fiber.Map{"page": page, "limit": limit, "total": total}
}
