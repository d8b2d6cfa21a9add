package controllers

import (
	"errors"
	"strconv"

	"tutorlink_go/middleware"
	"tutorlink_go/services"
	"tutorlink_go/utils"

	"github.com/gofiber/fiber/v2"
)

type UserController struct{}

// GetUsers returns users with filters and pagination
func (uc *UserController) GetUsers(c *fiber.Ctx) error {
	page, limit, _ := utils.Pagination(c.QueryInt("page", 1), c.QueryInt("limit", 10))
	users, total, err := services.NewUserService().List(services.UserFilter{
		Role:      c.Query("role"),
		Program:   c.Query("program"),
		Status:    c.Query("status"),
		YearLevel: c.QueryInt("year_level"),
		Search:    c.Query("search"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return respondError(c, err, "Failed to fetch users")
	}
	return c.JSON(fiber.Map{"users": users, "pagination": pagination(page, limit, total)})
}

func (uc *UserController) GetUser(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "user")
	}
	user, err := services.NewUserService().Get(id)
	if err != nil {
		return respondError(c, err, "Failed to fetch user")
	}
	return c.JSON(fiber.Map{"user": user})
}

// CreateUser adds an account and emails a temporary password.
func (uc *UserController) CreateUser(c *fiber.Ctx) error {
	var req services.CreateUserRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	user, _, err := services.NewUserService().Create(req)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
		}
		return respondError(c, err, "Failed to create user")
	}
	middleware.LogActivity(c, "CREATE", "users", user.ID, fiber.Map{"email": user.Email, "role": user.Role})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully; credentials were emailed",
		"user":    user,
	})
}

func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "user")
	}
	var req services.UpdateUserRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	user, err := services.NewUserService().Update(id, req)
	if err != nil {
		return respondError(c, err, "Failed to update user")
	}
	middleware.LogActivity(c, "UPDATE", "users", user.ID, req)
	return c.JSON(fiber.Map{"message": "User updated successfully", "user": user})
}

func (uc *UserController) UpdateUserStatus(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "user")
	}
	var req struct {
		Status string `json:"status" validate:"required,user_status"`
	}
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	actor, _ := middleware.GetCurrentUser(c)
	if actor != nil && actor.ID == id && req.Status != "active" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot change your own status"})
	}
	user, err := services.NewUserService().SetStatus(id, req.Status)
	if err != nil {
		return respondError(c, err, "Failed to update status")
	}
	middleware.LogActivity(c, "UPDATE_STATUS", "users", user.ID, fiber.Map{"status": req.Status})
	return c.JSON(fiber.Map{"message": "Status updated successfully", "user": user})
}

// ResetUserPassword mails a fresh temporary password.
func (uc *UserController) ResetUserPassword(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "user")
	}
	user, _, err := services.NewUserService().ResetPassword(id)
	if err != nil {
		return respondError(c, err, "Failed to reset password")
	}
	middleware.LogActivity(c, "RESET_PASSWORD", "users", user.ID, nil)
	return c.JSON(fiber.Map{"message": "Temporary password sent to " + user.Email})
}

// DeleteUser deactivates the account; users are never hard-deleted.
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "user")
	}
	actor, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	if err := services.NewUserService().Deactivate(id, actor.ID); err != nil {
		return respondError(c, err, "Failed to deactivate user")
	}
	middleware.LogActivity(c, "DEACTIVATE", "users", id, nil)
	return c.JSON(fiber.Map{"message": "User " + strconv.FormatUint(uint64(id), 10) + " deactivated"})
}
