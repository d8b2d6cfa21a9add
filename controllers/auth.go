package controllers

import (
	"context"
	"errors"
	"time"

	"tutorlink_go/database"
	"tutorlink_go/middleware"
	"tutorlink_go/services"
	"tutorlink_go/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AuthController struct {
	store storage.ObjectStore
}

// NewAuthController takes the avatar store; nil disables avatar uploads.
func NewAuthController(store storage.ObjectStore) *AuthController {
	return &AuthController{store: store}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Signup registers a student account.
func (ac *AuthController) Signup(c *fiber.Ctx) error {
	var req services.SignupRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	user, err := services.NewUserService().Signup(req)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already registered"})
		}
		return respondError(c, err, "Failed to create account")
	}
	middleware.LogActivity(c, "SIGNUP", "users", user.ID, fiber.Map{"email": user.Email})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account created successfully",
		"user":    user,
	})
}

// Login authenticates a user and returns a JWT token
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	user, err := services.NewUserService().Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredential) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
		}
		return respondError(c, err, "Login failed")
	}

	token, err := middleware.GenerateToken(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	c.Locals("user", user)
	middleware.LogActivity(c, "LOGIN", "auth", user.ID, fiber.Map{"role": user.Role})

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// Logout blacklists the bearer token until it would have expired.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	token, ok := middleware.BearerToken(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing authorization header"})
	}
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return unauthorized(c)
	}
	if err := middleware.BlacklistToken(c.UserContext(), database.GetRedisClient(), token, claims); err != nil {
		logrus.WithError(err).Warn("failed to blacklist token")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Token could not be revoked; discard it on the client and retry later",
		})
	}
	middleware.LogActivity(c, "LOGOUT", "auth", claims.UserID, nil)
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (ac *AuthController) GetProfile(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	fresh, err := services.NewUserService().Get(user.ID)
	if err != nil {
		return respondError(c, err, "Failed to load profile")
	}
	return c.JSON(fiber.Map{"user": fresh})
}

func (ac *AuthController) UpdateProfile(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	var req services.ProfileRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	updated, err := services.NewUserService().UpdateProfile(user, req)
	if err != nil {
		return respondError(c, err, "Failed to update profile")
	}
	return c.JSON(fiber.Map{"message": "Profile updated successfully", "user": updated})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// ChangePassword allows users to change their own password
func (ac *AuthController) ChangePassword(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	var req ChangePasswordRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	if err := services.NewUserService().ChangePassword(user, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err, "Failed to change password")
	}
	middleware.LogActivity(c, "CHANGE_PASSWORD", "users", user.ID, nil)
	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

// UploadAvatar resizes the image and stores it in object storage.
func (ac *AuthController) UploadAvatar(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	file, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file uploaded"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 30*time.Second)
	defer cancel()
	url, err := storage.UploadAvatar(ctx, ac.store, file, user.ID)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "File storage is not configured"})
	case errors.Is(err, storage.ErrFileTooLarge), errors.Is(err, storage.ErrInvalidExtension):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		logrus.WithError(err).WithField("user_id", user.ID).Error("avatar upload failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to process avatar"})
	}

	old := user.Avatar
	if err := services.NewUserService().SetAvatar(user.ID, url); err != nil {
		return respondError(c, err, "Failed to save avatar")
	}
	if key := storage.KeyFromURL(old); key != "" {
		go func() {
			if err := ac.store.Delete(context.Background(), key); err != nil {
				logrus.WithError(err).WithField("key", key).Warn("failed to delete old avatar")
			}
		}()
	}
	middleware.LogActivity(c, "UPLOAD_AVATAR", "users", user.ID, fiber.Map{"avatar": url})
	return c.JSON(fiber.Map{"message": "Avatar updated successfully", "avatar": url})
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword always answers 200 so callers cannot tell which addresses are registered.
func (ac *AuthController) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	services.NewUserService().ForgotPassword(req.Email)
	return c.JSON(fiber.Map{"message": "If the address is registered, a temporary password has been sent"})
}

type GenerateResetTokenRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// GeneratePasswordResetToken lets an admin issue a one-hour reset token.
func (ac *AuthController) GeneratePasswordResetToken(c *fiber.Ctx) error {
	var req GenerateResetTokenRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	user, token, expires, err := services.NewUserService().GenerateResetToken(req.UserID)
	if err != nil {
		return respondError(c, err, "Failed to generate reset token")
	}
	middleware.LogActivity(c, "GENERATE_RESET_TOKEN", "users", user.ID, nil)
	return c.JSON(fiber.Map{
		"message":    "Reset token generated",
		"token":      token,
		"expires_at": expires,
	})
}

type ResetWithTokenRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func (ac *AuthController) ResetPasswordWithToken(c *fiber.Ctx) error {
	var req ResetWithTokenRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	user, err := services.NewUserService().ResetWithToken(req.Token, req.NewPassword)
	if err != nil {
		return respondError(c, err, "Failed to reset password")
	}
	middleware.LogActivity(c, "RESET_PASSWORD_TOKEN", "users", user.ID, nil)
	return c.JSON(fiber.Map{"message": "Password reset successfully"})
}

// LineLinkCode issues a short-lived code the user sends to the LINE bot.
func (ac *AuthController) LineLinkCode(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return unauthorized(c)
	}
	code, err := services.NewUserService().LineLinkCode(c.UserContext(), user.ID)
	if err != nil {
		if errors.Is(err, services.ErrLinkUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		}
		return respondError(c, err, "Failed to create link code")
	}
	return c.JSON(fiber.Map{
		"code":       code,
		"expires_in": int(services.LineLinkTTL.Seconds()),
	})
}
