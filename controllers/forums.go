package controllers

import (
	"tutorlink_go/middleware"
	"tutorlink_go/services"
	"tutorlink_go/utils"

	"github.com/gofiber/fiber/v2"
)

type ForumController struct{}

func (fc *ForumController) GetForums(c *fiber.Ctx) error {
	page, limit, _ := utils.Pagination(c.QueryInt("page", 1), c.QueryInt("limit", 20))
	forums, total, err := services.NewForumService().List(services.ForumFilter{
		Subject: c.Query("subject"),
		Program: c.Query("program"),
		Search:  c.Query("search"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		return respondError(c, err, "Failed to fetch forums")
	}
	return c.JSON(fiber.Map{"forums": forums, "pagination": pagination(page, limit, total)})
}

func (fc *ForumController) GetForum(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "forum")
	}
	forum, err := services.NewForumService().Get(id)
	if err != nil {
		return respondError(c, err, "Failed to fetch forum")
	}
	return c.JSON(fiber.Map{"forum": forum})
}

func (fc *ForumController) CreateForum(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	var req services.ForumRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	forum, err := services.NewForumService().Create(user, req)
	if err != nil {
		return respondError(c, err, "Failed to create forum")
	}
	middleware.LogActivity(c, "CREATE", "forums", forum.ID, nil)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Forum created successfully", "forum": forum})
}

func (fc *ForumController) UpdateForum(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "forum")
	}
	var req services.ForumRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	forum, err := services.NewForumService().Update(id, user, req)
	if err != nil {
		return respondError(c, err, "Failed to update forum")
	}
	return c.JSON(fiber.Map{"message": "Forum updated successfully", "forum": forum})
}

func (fc *ForumController) DeleteForum(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "forum")
	}
	if err := services.NewForumService().Delete(id, user); err != nil {
		return respondError(c, err, "Failed to delete forum")
	}
	return c.JSON(fiber.Map{"message": "Forum deleted successfully"})
}

func (fc *ForumController) AddComment(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "forum")
	}
	var req services.CommentRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	comment, err := services.NewForumService().AddComment(id, user, req)
	if err != nil {
		return respondError(c, err, "Failed to add comment")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Comment added successfully", "comment": comment})
}

func (fc *ForumController) DeleteComment(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "comment")
	}
	if err := services.NewForumService().DeleteComment(id, user); err != nil {
		return respondError(c, err, "Failed to delete comment")
	}
	return c.JSON(fiber.Map{"message": "Comment deleted successfully"})
}
