package controllers

import (
	"time"

	"tutorlink_go/middleware"
	"tutorlink_go/services"
	"tutorlink_go/utils"

	"github.com/gofiber/fiber/v2"
)

type TutorController struct{}

func (tc *TutorController) GetTutors(c *fiber.Ctx) error {
	tutors, err := services.NewTutorService().List(c.UserContext(), services.TutorFilter{
		Subject:   c.Query("subject"),
		Program:   c.Query("program"),
		YearLevel: c.QueryInt("year_level"),
		Specialty: c.Query("specialty"),
		MinRating: c.QueryFloat("min_rating"),
	})
	if err != nil {
		return respondError(c, err, "Failed to fetch tutors")
	}
	return c.JSON(fiber.Map{"tutors": tutors, "total": len(tutors)})
}

func (tc *TutorController) GetTutor(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "tutor")
	}
	tutor, err := services.NewTutorService().Get(id)
	if err != nil {
		return respondError(c, err, "Failed to fetch tutor")
	}
	return c.JSON(fiber.Map{"tutor": tutor})
}

func (tc *TutorController) UpdateTutor(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "tutor")
	}
	var req services.TutorUpdateRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	tutor, err := services.NewTutorService().Update(c.UserContext(), id, user, req)
	if err != nil {
		return respondError(c, err, "Failed to update tutor")
	}
	middleware.LogActivity(c, "UPDATE", "tutors", tutor.ID, req)
	return c.JSON(fiber.Map{"message": "Tutor updated successfully", "tutor": tutor})
}

// GetAvailability returns the hourly grid between from and to (default: the next 7 days).
func (tc *TutorController) GetAvailability(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "tutor")
	}
	from := utils.DateOnly(time.Now())
	if v := c.Query("from"); v != "" {
		d, err := utils.ParseDate(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "from must be YYYY-MM-DD"})
		}
		from = d
	}
	to := from.AddDate(0, 0, services.DefaultAvailabilityDays-1)
	if v := c.Query("to"); v != "" {
		d, err := utils.ParseDate(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to must be YYYY-MM-DD"})
		}
		to = d
	}
	days, err := services.NewBookingService().Availability(id, from, to)
	if err != nil {
		return respondError(c, err, "Failed to build availability")
	}
	return c.JSON(fiber.Map{
		"tutor_id":     id,
		"from":         from.Format("2006-01-02"),
		"to":           to.Format("2006-01-02"),
		"availability": days,
	})
}

// GetRecommended ranks tutors by the student's latest pre-assessment.
func (tc *TutorController) GetRecommended(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	tutors, subjects, err := services.NewTutorService().Recommended(c.UserContext(), user)
	if err != nil {
		return respondError(c, err, "Failed to fetch recommendations")
	}
	return c.JSON(fiber.Map{"tutors": tutors, "recommended_subjects": subjects})
}
