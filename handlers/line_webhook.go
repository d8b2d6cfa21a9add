package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"tutorlink_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/line/line-bot-sdk-go/linebot"
	"github.com/sirupsen/logrus"
)

const (
	replyLinked      = "Your LINE account is now linked. You will receive TutorLink notifications here."
	replyCodeInvalid = "That code is invalid or has expired. Request a new one from your TutorLink profile."
	replyHelp        = "Send the 6-digit code from your TutorLink profile to link this LINE account."
)

// AccountLinker binds a LINE user id to the account that issued a link code.
type AccountLinker interface {
	LinkLineAccount(ctx context.Context, code, lineUserID string) error
}

type Replier interface {
	Enabled() bool
	ReplyText(replyToken, text string) error
}

type userLinker struct{ users *services.UserService }

func (l userLinker) LinkLineAccount(ctx context.Context, code, lineUserID string) error {
	_, err := l.users.LinkLineAccount(ctx, code, lineUserID)
	return err
}

type LineWebhookHandler struct {
	secret string
	line   Replier
	linker AccountLinker
}

func NewLineWebhookHandler(secret string, line *services.LineMessagingService) *LineWebhookHandler {
	return &LineWebhookHandler{
		secret: secret,
		line:   line,
		linker: userLinker{users: services.NewUserService()},
	}
}

// Handle verifies the signature, acknowledges, then processes events in the background.
func (h *LineWebhookHandler) Handle(c *fiber.Ctx) error {
	if h.line == nil || !h.line.Enabled() {
		logrus.Debug("LINE webhook received while LINE is disabled")
		return c.SendStatus(fiber.StatusOK)
	}

	signature := c.Get("X-Line-Signature")
	if signature == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	body := append([]byte(nil), c.Body()...)
	if !validateSignature(h.secret, body, signature) {
		logrus.WithField("ip", c.IP()).Warn("LINE webhook signature mismatch")
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	events, err := parseEvents(body)
	if err != nil {
		logrus.WithError(err).Warn("failed to parse LINE webhook body")
		return c.SendStatus(fiber.StatusBadRequest)
	}
	go h.process(events)
	return c.SendStatus(fiber.StatusOK)
}

func parseEvents(body []byte) ([]*linebot.Event, error) {
	var webhook struct {
		Events []*linebot.Event `json:"events"`
	}
	if err := json.Unmarshal(body, &webhook); err != nil {
		return nil, err
	}
	return webhook.Events, nil
}

func (h *LineWebhookHandler) process(events []*linebot.Event) {
	for _, event := range events {
		if event == nil || event.Source == nil {
			continue
		}
		switch event.Type {
		case linebot.EventTypeFollow:
			h.reply(event.ReplyToken, replyHelp)
		case linebot.EventTypeMessage:
			msg, ok := event.Message.(*linebot.TextMessage)
			if !ok {
				continue
			}
			h.reply(event.ReplyToken, h.handleText(event.Source.UserID, msg.Text))
		}
	}
}

// handleText returns the reply for an incoming text message.
func (h *LineWebhookHandler) handleText(lineUserID, text string) string {
	text = strings.TrimSpace(text)
	if !services.IsLinkCode(text) || lineUserID == "" {
		return replyHelp
	}
	err := h.linker.LinkLineAccount(context.Background(), text, lineUserID)
	switch {
	case err == nil:
		logrus.WithField("line_user_id", lineUserID).Info("LINE account linked")
		return replyLinked
	case errors.Is(err, services.ErrNotFound):
		return replyCodeInvalid
	default:
		logrus.WithError(err).Error("LINE account link failed")
		return replyCodeInvalid
	}
}

func (h *LineWebhookHandler) reply(token, text string) {
	if token == "" {
		return
	}
	if err := h.line.ReplyText(token, text); err != nil {
		logrus.WithError(err).Warn("LINE reply failed")
	}
}

func computeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func validateSignature(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(computeSignature(secret, body)))
}
