package services

import (
	"fmt"
	"log"

	"tutorlink_go/config"

	"github.com/line/line-bot-sdk-go/linebot"
)

// LineMessagingService wraps the LINE Messaging API client.
type LineMessagingService struct {
	Bot *linebot.Client
}

// NewLineMessagingService returns a service with a nil Bot when LINE is not configured.
func NewLineMessagingService() *LineMessagingService {
	if config.AppConfig == nil || config.AppConfig.LineChannelSecret == "" || config.AppConfig.LineChannelToken == "" {
		log.Println("LINE Messaging API disabled: missing LINE_CHANNEL_SECRET or LINE_CHANNEL_ACCESS_TOKEN")
		return &LineMessagingService{}
	}
	bot, err := linebot.New(config.AppConfig.LineChannelSecret, config.AppConfig.LineChannelToken)
	if err != nil {
		log.Printf("Cannot create LINE bot client: %v", err)
		return &LineMessagingService{}
	}
	return &LineMessagingService{Bot: bot}
}

func (s *LineMessagingService) Enabled() bool { return s != nil && s.Bot != nil }

// PushText sends a text message to a LINE user id.
func (s *LineMessagingService) PushText(lineUserID, text string) error {
	if !s.Enabled() {
		return fmt.Errorf("LINE Bot client is not initialized")
	}
	if _, err := s.Bot.PushMessage(lineUserID, linebot.NewTextMessage(text)).Do(); err != nil {
		return fmt.Errorf("LINE Messaging API failed: %v", err)
	}
	return nil
}

// ReplyText answers a webhook event by its reply token.
func (s *LineMessagingService) ReplyText(replyToken, text string) error {
	if !s.Enabled() {
		return fmt.Errorf("LINE Bot client is not initialized")
	}
	_, err := s.Bot.ReplyMessage(replyToken, linebot.NewTextMessage(text)).Do()
	return err
}
