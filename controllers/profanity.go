package controllers

import (
	"tutorlink_go/middleware"
	"tutorlink_go/services"
	"tutorlink_go/utils"

	"github.com/gofiber/fiber/v2"
)

type ProfanityController struct{}

func (pc *ProfanityController) GetViolations(c *fiber.Ctx) error {
	page, limit, _ := utils.Pagination(c.QueryInt("page", 1), c.QueryInt("limit", 20))
	list, total, err := services.NewProfanityService().List(services.ViolationFilter{
		Status: c.Query("status"),
		UserID: uint(c.QueryInt("user_id")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return respondError(c, err, "Failed to fetch violations")
	}
	return c.JSON(fiber.Map{"violations": list, "pagination": pagination(page, limit, total)})
}

func (pc *ProfanityController) ReviewViolation(c *fiber.Ctx) error {
	reviewer, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "violation")
	}
	var req struct {
		Status string `json:"status" validate:"required,oneof=reviewed dismissed"`
	}
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	v, err := services.NewProfanityService().Review(id, reviewer.ID, req.Status)
	if err != nil {
		return respondError(c, err, "Failed to update violation")
	}
	middleware.LogActivity(c, "REVIEW", "profanity-violations", v.ID, fiber.Map{"status": req.Status})
	return c.JSON(fiber.Map{"message": "Violation updated", "violation": v})
}

func (pc *ProfanityController) GetStats(c *fiber.Ctx) error {
	stats, err := services.NewProfanityService().Stats()
	if err != nil {
		return respondError(c, err, "Failed to fetch violation stats")
	}
	return c.JSON(fiber.Map{"stats": stats})
}
