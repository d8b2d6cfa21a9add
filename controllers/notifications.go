package controllers

import (
	"strconv"

	"tutorlink_go/middleware"
	"tutorlink_go/services/notifications"
	"tutorlink_go/utils"

	"github.com/gofiber/fiber/v2"
)

type NotificationController struct{}

// GetNotifications returns notifications for the current user
func (nc *NotificationController) GetNotifications(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	page, limit, _ = utils.Pagination(page, limit)

	f := notifications.ListFilter{Type: c.Query("type"), Page: page, Limit: limit}
	switch c.Query("read") {
	case "true":
		v := true
		f.Read = &v
	case "false":
		v := false
		f.Read = &v
	}

	list, total, err := notifications.NewService().List(user.ID, f)
	if err != nil {
		return respondError(c, err, "Failed to fetch notifications")
	}
	dtos := make([]utils.NotificationDTO, 0, len(list))
	for _, n := range list {
		n.User = *user
		dtos = append(dtos, utils.ToNotificationDTO(n))
	}

	return c.JSON(fiber.Map{
		"notifications": dtos,
		"pagination":    pagination(page, limit, total),
	})
}

// GetNotification returns a specific notification
func (nc *NotificationController) GetNotification(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "notification")
	}

	n, err := notifications.NewService().Get(user.ID, id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
	}
	n.User = *user
	return c.JSON(fiber.Map{"notification": utils.ToNotificationDTO(*n)})
}

// CreateNotification sends a notification to users picked by id, role or program (admin only)
func (nc *NotificationController) CreateNotification(c *fiber.Ctx) error {
	var req struct {
		UserID   uint     `json:"user_id"`
		UserIDs  []uint   `json:"user_ids"`
		Role     string   `json:"role" validate:"omitempty,role"`
		Program  string   `json:"program"`
		Title    string   `json:"title" validate:"required,max=255"`
		Message  string   `json:"message" validate:"required"`
		Type     string   `json:"type" validate:"required,oneof=info warning error success"`
		Channels []string `json:"channels"`
	}
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	ids := req.UserIDs
	if req.UserID != 0 {
		ids = append(ids, req.UserID)
	}
	svc := notifications.NewService()
	targets, err := svc.ResolveAudience(notifications.Audience{UserIDs: ids, Role: req.Role, Program: req.Program})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if len(targets) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No users found for the given audience"})
	}

	if err := svc.EnqueueOrCreate(targets, notifications.New(req.Title, req.Message, req.Type, req.Channels...)); err != nil {
		return respondError(c, err, "Failed to create notifications")
	}

	middleware.LogActivity(c, "CREATE", "notifications", 0, fiber.Map{
		"title":      req.Title,
		"recipients": len(targets),
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Notifications created successfully",
		"count":   len(targets),
	})
}

// MarkAsRead marks a notification as read
func (nc *NotificationController) MarkAsRead(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "notification")
	}

	svc := notifications.NewService()
	if _, err := svc.Get(user.ID, id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
	}
	if _, err := svc.MarkRead(user.ID, id); err != nil {
		return respondError(c, err, "Failed to mark notification as read")
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

// MarkAllAsRead marks all notifications as read for current user
func (nc *NotificationController) MarkAllAsRead(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	n, err := notifications.NewService().MarkRead(user.ID, 0)
	if err != nil {
		return respondError(c, err, "Failed to mark notifications as read")
	}
	return c.JSON(fiber.Map{"message": "All notifications marked as read", "updated": n})
}

// DeleteNotification deletes a notification
func (nc *NotificationController) DeleteNotification(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "notification")
	}
	if err := notifications.NewService().Delete(user.ID, id); err != nil {
		return respondError(c, err, "Failed to delete notification")
	}
	middleware.LogActivity(c, "DELETE", "notifications", id, nil)
	return c.JSON(fiber.Map{"message": "Notification deleted successfully"})
}

// GetUnreadCount returns count of unread notifications
func (nc *NotificationController) GetUnreadCount(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	count, err := notifications.NewService().UnreadCount(user.ID)
	if err != nil {
		return respondError(c, err, "Failed to count notifications")
	}
	return c.JSON(fiber.Map{"unread_count": count})
}

// GetNotificationStats returns notification statistics (admin only)
func (nc *NotificationController) GetNotificationStats(c *fiber.Ctx) error {
	stats, err := notifications.NewService().Stats()
	if err != nil {
		return respondError(c, err, "Failed to fetch notification stats")
	}
	return c.JSON(fiber.Map{"stats": stats})
}
