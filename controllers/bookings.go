package controllers

import (
	"tutorlink_go/middleware"
	"tutorlink_go/services"
	"tutorlink_go/utils"

	"github.com/gofiber/fiber/v2"
)

type BookingController struct{}

func (bc *BookingController) CreateBooking(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	var req services.BookingRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	booking, err := services.NewBookingService().Create(user, req)
	if err != nil {
		return respondError(c, err, "Failed to create booking")
	}
	middleware.LogActivity(c, "CREATE", "bookings", booking.ID, fiber.Map{
		"tutor_id": booking.TutorID,
		"subject":  booking.Subject,
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Booking requested successfully", "booking": booking})
}

func (bc *BookingController) GetBookings(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	page, limit, _ := utils.Pagination(c.QueryInt("page", 1), c.QueryInt("limit", 20))
	bookings, total, err := services.NewBookingService().List(user, services.BookingFilter{
		Status: c.Query("status"),
		Role:   c.Query("role"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return respondError(c, err, "Failed to fetch bookings")
	}
	return c.JSON(fiber.Map{"bookings": bookings, "pagination": pagination(page, limit, total)})
}

func (bc *BookingController) GetBooking(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "booking")
	}
	booking, err := services.NewBookingService().Get(id, user)
	if err != nil {
		return respondError(c, err, "Failed to fetch booking")
	}
	return c.JSON(fiber.Map{"booking": booking})
}

func (bc *BookingController) UpdateBookingStatus(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "booking")
	}
	var req struct {
		Status string `json:"status" validate:"required,booking_status"`
		Reason string `json:"reason" validate:"max=1000"`
	}
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	booking, err := services.NewBookingService().UpdateStatus(id, user, req.Status, req.Reason)
	if err != nil {
		return respondError(c, err, "Failed to update booking")
	}
	middleware.LogActivity(c, "UPDATE_STATUS", "bookings", booking.ID, fiber.Map{"status": req.Status})
	return c.JSON(fiber.Map{"message": "Booking " + booking.Status, "booking": booking})
}

func (bc *BookingController) RateBooking(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "booking")
	}
	var req services.RatingRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	booking, tutor, err := services.NewBookingService().Rate(id, user, req)
	if err != nil {
		return respondError(c, err, "Failed to rate booking")
	}
	middleware.LogActivity(c, "RATE", "bookings", booking.ID, fiber.Map{"rating": req.Rating})
	return c.JSON(fiber.Map{
		"message":      "Thanks for your feedback",
		"booking":      booking,
		"ratings":      tutor.Ratings,
		"rating_count": tutor.RatingCount,
	})
}
