package controllers

import (
	"fmt"

	"tutorlink_go/middleware"
	"tutorlink_go/services"

	"github.com/gofiber/fiber/v2"
)

type PreAssessmentController struct{}

func (pc *PreAssessmentController) GetPreAssessments(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	activeOnly := !user.IsStaff() || c.QueryBool("active_only")
	list, err := services.NewPreAssessmentService().List(c.Query("program"), c.QueryInt("year_level"), activeOnly)
	if err != nil {
		return respondError(c, err, "Failed to fetch pre-assessments")
	}
	return c.JSON(fiber.Map{"pre_assessments": list})
}

// GetPreAssessment hides correct answers from non-staff users.
func (pc *PreAssessmentController) GetPreAssessment(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "pre-assessment")
	}
	pa, err := services.NewPreAssessmentService().Get(id, !user.IsStaff())
	if err != nil {
		return respondError(c, err, "Failed to fetch pre-assessment")
	}
	if !user.IsStaff() && !pa.Active {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Resource not found"})
	}
	return c.JSON(fiber.Map{"pre_assessment": pa})
}

func (pc *PreAssessmentController) CreatePreAssessment(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	var req services.PreAssessmentRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	pa, err := services.NewPreAssessmentService().Create(user, req)
	if err != nil {
		return respondError(c, err, "Failed to create pre-assessment")
	}
	middleware.LogActivity(c, "CREATE", "pre-assessments", pa.ID, fiber.Map{"questions": len(pa.Questions)})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Pre-assessment created successfully", "pre_assessment": pa})
}

func (pc *PreAssessmentController) UpdatePreAssessment(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "pre-assessment")
	}
	var req services.PreAssessmentRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	pa, err := services.NewPreAssessmentService().Update(id, req)
	if err != nil {
		return respondError(c, err, "Failed to update pre-assessment")
	}
	return c.JSON(fiber.Map{"message": "Pre-assessment updated successfully", "pre_assessment": pa})
}

func (pc *PreAssessmentController) DeletePreAssessment(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "pre-assessment")
	}
	if err := services.NewPreAssessmentService().Delete(id); err != nil {
		return respondError(c, err, "Failed to delete pre-assessment")
	}
	return c.JSON(fiber.Map{"message": "Pre-assessment deleted successfully"})
}

func (pc *PreAssessmentController) AddQuestion(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "pre-assessment")
	}
	var req services.QuestionInput
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	q, err := services.NewPreAssessmentService().AddQuestion(id, req)
	if err != nil {
		return respondError(c, err, "Failed to add question")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Question added successfully", "question": q})
}

func (pc *PreAssessmentController) UpdateQuestion(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "question")
	}
	var req services.QuestionInput
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	q, err := services.NewPreAssessmentService().UpdateQuestion(id, req)
	if err != nil {
		return respondError(c, err, "Failed to update question")
	}
	return c.JSON(fiber.Map{"message": "Question updated successfully", "question": q})
}

func (pc *PreAssessmentController) DeleteQuestion(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "question")
	}
	if err := services.NewPreAssessmentService().DeleteQuestion(id); err != nil {
		return respondError(c, err, "Failed to delete question")
	}
	return c.JSON(fiber.Map{"message": "Question deleted successfully"})
}

// ImportQuestions reads an uploaded XLSX ("file" field) and appends its rows.
func (pc *PreAssessmentController) ImportQuestions(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "pre-assessment")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file uploaded"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to open file"})
	}
	defer f.Close()

	rows, err := services.ReadSheet(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid spreadsheet: " + err.Error()})
	}
	imported, rowErrs, err := services.NewPreAssessmentService().ImportQuestions(id, rows)
	if err != nil {
		return respondError(c, err, "Failed to import questions")
	}
	middleware.LogActivity(c, "IMPORT", "pre-assessments", id, fiber.Map{"imported": imported, "errors": len(rowErrs)})
	return c.JSON(fiber.Map{
		"message":  fmt.Sprintf("Imported %d questions", imported),
		"imported": imported,
		"errors":   rowErrs,
	})
}

func (pc *PreAssessmentController) SubmitPreAssessment(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "pre-assessment")
	}
	var req struct {
		Answers []services.SubmittedAnswer `json:"answers" validate:"dive"`
	}
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	result, bySubject, err := services.NewPreAssessmentService().Submit(id, user, req.Answers)
	if err != nil {
		return respondError(c, err, "Failed to submit answers")
	}
	middleware.LogActivity(c, "SUBMIT", "pre-assessments", id, fiber.Map{"percentage": result.Percentage})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Pre-assessment submitted",
		"result":     result,
		"by_subject": bySubject,
	})
}

func (pc *PreAssessmentController) GetResults(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "pre-assessment")
	}
	results, err := services.NewPreAssessmentService().Results(id)
	if err != nil {
		return respondError(c, err, "Failed to fetch results")
	}
	return c.JSON(fiber.Map{"results": results})
}

func (pc *PreAssessmentController) GetMyResults(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	results, err := services.NewPreAssessmentService().MyResults(user.ID)
	if err != nil {
		return respondError(c, err, "Failed to fetch results")
	}
	return c.JSON(fiber.Map{"results": results})
}

func (pc *PreAssessmentController) GetMyResult(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "pre-assessment")
	}
	result, err := services.NewPreAssessmentService().MyResult(id, user.ID)
	if err != nil {
		return respondError(c, err, "Failed to fetch result")
	}
	return c.JSON(fiber.Map{"result": result})
}

func (pc *PreAssessmentController) ExportResults(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "pre-assessment")
	}
	data, err := services.NewPreAssessmentService().ExportResults(id)
	if err != nil {
		return respondError(c, err, "Failed to export results")
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="pre_assessment_%d_results.xlsx"`, id))
	return c.Send(data)
}
