package controllers

import (
	"time"

	"tutorlink_go/services"

	"github.com/gofiber/fiber/v2"
)

// HealthController exposes liveness and detailed health endpoints.
type HealthController struct {
	service *services.HealthService
}

func NewHealthController(service *services.HealthService) *HealthController {
	if service == nil {
		service = services.NewHealthService("", "")
	}
	return &HealthController{service: service}
}

// Liveness answers without touching dependencies.
func (hc *HealthController) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
}

// GetHealthStatus returns the aggregated dependency report.
func (hc *HealthController) GetHealthStatus(c *fiber.Ctx) error {
	report := hc.service.GetHealthReport()
	return c.Status(hc.service.HTTPStatusForOverall(report.Status)).JSON(report)
}
