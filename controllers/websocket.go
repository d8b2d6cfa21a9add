package controllers

import (
	"context"
	"errors"

	"tutorlink_go/database"
	"tutorlink_go/middleware"
	"tutorlink_go/models"
	"tutorlink_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type WebSocketController struct {
	hub *websocket.Hub
}

func NewWebSocketController(hub *websocket.Hub) *WebSocketController {
	return &WebSocketController{hub: hub}
}

// authenticate resolves ?token to an active user, rejecting revoked tokens.
func (wsc *WebSocketController) authenticate(token string) (*models.User, error) {
	if token == "" {
		return nil, errors.New("missing token")
	}
	claims, err := middleware.ParseToken(token)
	if err != nil {
		return nil, err
	}
	if rc := database.GetRedisClient(); rc != nil && middleware.IsTokenBlacklisted(context.Background(), rc, token) {
		return nil, errors.New("token revoked")
	}
	user, err := middleware.LoadUser(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.Status != models.UserActive {
		return nil, errors.New("user not active")
	}
	return user, nil
}

// Upgrade rejects plain HTTP requests before the websocket handler runs.
func (wsc *WebSocketController) Upgrade(c *fiber.Ctx) error {
	if !fiberws.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
			"error": "Use the WebSocket endpoint: ws://<host>/ws?token=YOUR_JWT",
		})
	}
	return c.Next()
}

// WebSocketHandler authenticates ?token and attaches the connection to the hub.
func (wsc *WebSocketController) WebSocketHandler() fiber.Handler {
	return fiberws.New(func(c *fiberws.Conn) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("panic", r).Error("websocket handler panic")
			}
		}()

		user, err := wsc.authenticate(c.Query("token"))
		if err != nil {
			logrus.WithError(err).Warn("websocket connection rejected")
			_ = c.WriteMessage(fiberws.CloseMessage,
				fiberws.FormatCloseMessage(fiberws.ClosePolicyViolation, "unauthorized"))
			_ = c.Close()
			return
		}

		logrus.WithField("user_id", user.ID).Info("websocket connection established")
		wsc.hub.ServeFiberWS(c, user.ID)
	})
}

// GetWebSocketStats returns connection statistics (admin only)
func (wsc *WebSocketController) GetWebSocketStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"connected_clients": wsc.hub.GetClientCount(),
		"status":            "active",
	})
}
