package controllers

import (
	"fmt"
	"time"

	"tutorlink_go/middleware"
	"tutorlink_go/models"
	"tutorlink_go/services"
	"tutorlink_go/utils"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type TutorApplicationController struct{}

func (tc *TutorApplicationController) SubmitApplication(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	var req services.ApplicationRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	app, err := services.NewTutorApplicationService().Submit(user, req)
	if err != nil {
		return respondError(c, err, "Failed to submit application")
	}
	middleware.LogActivity(c, "CREATE", "tutor-applications", app.ID, fiber.Map{
		"subject": app.Subject,
		"passed":  app.AssessmentPassed,
	})
	msg := "Application submitted successfully"
	if app.Status == models.ApplicationRejected {
		msg = "Application recorded; the assessment was not passed"
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg, "application": app})
}

// GetApplications lists applications. Students only ever see their own.
func (tc *TutorApplicationController) GetApplications(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	page, limit, _ := utils.Pagination(c.QueryInt("page", 1), c.QueryInt("limit", 20))
	f := services.ApplicationFilter{Status: c.Query("status"), Page: page, Limit: limit}
	if user.IsStaff() {
		f.UserID = uint(c.QueryInt("user_id"))
	} else {
		f.UserID = user.ID
	}
	apps, total, err := services.NewTutorApplicationService().List(f)
	if err != nil {
		return respondError(c, err, "Failed to fetch applications")
	}
	return c.JSON(fiber.Map{"applications": apps, "pagination": pagination(page, limit, total)})
}

func (tc *TutorApplicationController) GetMyApplications(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	apps, _, err := services.NewTutorApplicationService().List(services.ApplicationFilter{UserID: user.ID, Limit: 100})
	if err != nil {
		return respondError(c, err, "Failed to fetch applications")
	}
	return c.JSON(fiber.Map{"applications": apps})
}

func (tc *TutorApplicationController) GetApplication(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "application")
	}
	app, err := services.NewTutorApplicationService().Get(id)
	if err != nil {
		return respondError(c, err, "Failed to fetch application")
	}
	if !user.IsStaff() && app.UserID != user.ID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Resource not found"})
	}
	return c.JSON(fiber.Map{"application": app})
}

func (tc *TutorApplicationController) ApproveApplication(c *fiber.Ctx) error {
	reviewer, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "application")
	}
	app, tutor, err := services.NewTutorApplicationService().Approve(id, reviewer.ID)
	if err != nil {
		return respondError(c, err, "Failed to approve application")
	}
	middleware.LogActivity(c, "APPROVE", "tutor-applications", app.ID, fiber.Map{"tutor_id": tutor.ID})
	return c.JSON(fiber.Map{"message": "Application approved", "application": app, "tutor": tutor})
}

func (tc *TutorApplicationController) RejectApplication(c *fiber.Ctx) error {
	reviewer, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "application")
	}
	var req struct {
		Reason string `json:"reason" validate:"max=1000"`
	}
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	app, err := services.NewTutorApplicationService().Reject(id, reviewer.ID, req.Reason)
	if err != nil {
		return respondError(c, err, "Failed to reject application")
	}
	middleware.LogActivity(c, "REJECT", "tutor-applications", app.ID, fiber.Map{"reason": req.Reason})
	return c.JSON(fiber.Map{"message": "Application rejected", "application": app})
}

// ExportApplications streams an XLSX of applications.
func (tc *TutorApplicationController) ExportApplications(c *fiber.Ctx) error {
	data, err := services.NewTutorApplicationService().Export(c.Query("status"))
	if err != nil {
		return respondError(c, err, "Failed to export applications")
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="tutor_applications_%s.xlsx"`, time.Now().Format("20060102")))
	return c.Send(data)
}
