package controllers

import (
	"tutorlink_go/middleware"
	"tutorlink_go/services"
	"tutorlink_go/utils"

	"github.com/gofiber/fiber/v2"
)

type ChatController struct{}

func (cc *ChatController) SendMessage(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	var req services.ChatMessageRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	msg, err := services.NewChatService().Send(user, req)
	if err != nil {
		return respondError(c, err, "Failed to send message")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Message sent", "chat_message": msg})
}

func (cc *ChatController) GetConversations(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	convs, err := services.NewChatService().Conversations(user.ID)
	if err != nil {
		return respondError(c, err, "Failed to fetch conversations")
	}
	return c.JSON(fiber.Map{"conversations": convs})
}

func (cc *ChatController) GetMessages(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	otherID, ok := paramID(c, "user_id")
	if !ok {
		return badID(c, "user")
	}
	page, limit, _ := utils.Pagination(c.QueryInt("page", 1), c.QueryInt("limit", 50))
	msgs, total, err := services.NewChatService().Messages(user.ID, otherID, page, limit)
	if err != nil {
		return respondError(c, err, "Failed to fetch messages")
	}
	return c.JSON(fiber.Map{"messages": msgs, "pagination": pagination(page, limit, total)})
}

func (cc *ChatController) MarkRead(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	otherID, ok := paramID(c, "user_id")
	if !ok {
		return badID(c, "user")
	}
	n, err := services.NewChatService().MarkRead(user.ID, otherID)
	if err != nil {
		return respondError(c, err, "Failed to mark messages as read")
	}
	return c.JSON(fiber.Map{"message": "Messages marked as read", "updated": n})
}
