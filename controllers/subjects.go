package controllers

import (
	"errors"

	"tutorlink_go/middleware"
	"tutorlink_go/services"

	"github.com/gofiber/fiber/v2"
)

type SubjectController struct{}

// GetSubjects lists subjects for a program and year level.
// Staff may pass include_inactive=true.
func (sc *SubjectController) GetSubjects(c *fiber.Ctx) error {
	includeInactive := false
	if user, err := middleware.GetCurrentUser(c); err == nil && user.IsStaff() {
		includeInactive = c.QueryBool("include_inactive")
	}
	subjects, err := services.NewSubjectService().List(c.Query("program"), c.QueryInt("year_level"), includeInactive)
	if err != nil {
		return respondError(c, err, "Failed to fetch subjects")
	}
	return c.JSON(fiber.Map{"subjects": subjects})
}

func (sc *SubjectController) GetSubject(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "subject")
	}
	subject, err := services.NewSubjectService().Get(id)
	if err != nil {
		return respondError(c, err, "Failed to fetch subject")
	}
	return c.JSON(fiber.Map{"subject": subject})
}

func (sc *SubjectController) CreateSubject(c *fiber.Ctx) error {
	var req services.SubjectRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	subject, err := services.NewSubjectService().Create(req)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Subject code already exists"})
		}
		return respondError(c, err, "Failed to create subject")
	}
	middleware.LogActivity(c, "CREATE", "subjects", subject.ID, fiber.Map{"code": subject.Code})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Subject created successfully", "subject": subject})
}

func (sc *SubjectController) UpdateSubject(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "subject")
	}
	var req services.SubjectRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	subject, err := services.NewSubjectService().Update(id, req)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Subject code already exists"})
		}
		return respondError(c, err, "Failed to update subject")
	}
	middleware.LogActivity(c, "UPDATE", "subjects", subject.ID, nil)
	return c.JSON(fiber.Map{"message": "Subject updated successfully", "subject": subject})
}

func (sc *SubjectController) DeleteSubject(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "subject")
	}
	if err := services.NewSubjectService().Delete(id); err != nil {
		return respondError(c, err, "Failed to delete subject")
	}
	middleware.LogActivity(c, "DELETE", "subjects", id, nil)
	return c.JSON(fiber.Map{"message": "Subject deleted successfully"})
}
