package controllers

import (
	"tutorlink_go/middleware"
	"tutorlink_go/services"

	"github.com/gofiber/fiber/v2"
)

type PostTestController struct{}

func (pc *PostTestController) CreatePostTest(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	var req services.PostTestRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	pt, err := services.NewPostTestService().Create(user, req)
	if err != nil {
		return respondError(c, err, "Failed to create post-test")
	}
	middleware.LogActivity(c, "CREATE", "post-tests", pt.ID, fiber.Map{"student_id": pt.StudentID})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Post-test created successfully", "post_test": pt})
}

func (pc *PostTestController) GetPostTests(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	list, err := services.NewPostTestService().List(user, c.Query("status"))
	if err != nil {
		return respondError(c, err, "Failed to fetch post-tests")
	}
	return c.JSON(fiber.Map{"post_tests": list})
}

func (pc *PostTestController) GetPostTest(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "post-test")
	}
	pt, err := services.NewPostTestService().Get(id, user)
	if err != nil {
		return respondError(c, err, "Failed to fetch post-test")
	}
	return c.JSON(fiber.Map{"post_test": pt})
}

func (pc *PostTestController) SubmitPostTest(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "post-test")
	}
	var req services.PostTestSubmission
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	result, err := services.NewPostTestService().Submit(id, user, req)
	if err != nil {
		return respondError(c, err, "Failed to submit post-test")
	}
	middleware.LogActivity(c, "SUBMIT", "post-tests", id, fiber.Map{"percentage": result.Percentage})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Post-test submitted", "result": result})
}

func (pc *PostTestController) GetPostTestResult(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "post-test")
	}
	result, err := services.NewPostTestService().Result(id, user)
	if err != nil {
		return respondError(c, err, "Failed to fetch result")
	}
	return c.JSON(fiber.Map{"result": result})
}

func (pc *PostTestController) GetAssignments(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	list, err := services.NewPostTestService().ListAssignments(user, c.Query("status"))
	if err != nil {
		return respondError(c, err, "Failed to fetch assignments")
	}
	return c.JSON(fiber.Map{"assignments": list})
}

// Templates

func (pc *PostTestController) CreateTemplate(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	var req services.TemplateRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	tpl, err := services.NewPostTestService().CreateTemplate(user, req)
	if err != nil {
		return respondError(c, err, "Failed to create template")
	}
	middleware.LogActivity(c, "CREATE", "post-test-templates", tpl.ID, nil)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Template created successfully", "template": tpl})
}

func (pc *PostTestController) GetTemplates(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	list, err := services.NewPostTestService().ListTemplates(user)
	if err != nil {
		return respondError(c, err, "Failed to fetch templates")
	}
	return c.JSON(fiber.Map{"templates": list})
}

func (pc *PostTestController) GetTemplate(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "template")
	}
	tpl, err := services.NewPostTestService().GetTemplate(id, user)
	if err != nil {
		return respondError(c, err, "Failed to fetch template")
	}
	return c.JSON(fiber.Map{"template": tpl})
}

func (pc *PostTestController) UpdateTemplate(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "template")
	}
	var req services.TemplateRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	tpl, err := services.NewPostTestService().UpdateTemplate(id, user, req)
	if err != nil {
		return respondError(c, err, "Failed to update template")
	}
	return c.JSON(fiber.Map{"message": "Template updated successfully", "template": tpl})
}

func (pc *PostTestController) DeleteTemplate(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "template")
	}
	if err := services.NewPostTestService().DeleteTemplate(id, user); err != nil {
		return respondError(c, err, "Failed to delete template")
	}
	return c.JSON(fiber.Map{"message": "Template deleted successfully"})
}

// AssignTemplate copies a template to a booking's student or a list of students.
func (pc *PostTestController) AssignTemplate(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "template")
	}
	var req services.AssignRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	assignments, err := services.NewPostTestService().Assign(id, user, req)
	if err != nil {
		return respondError(c, err, "Failed to assign template")
	}
	middleware.LogActivity(c, "ASSIGN", "post-test-templates", id, fiber.Map{"count": len(assignments)})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Template assigned successfully",
		"assignments": assignments,
		"count":       len(assignments),
	})
}
