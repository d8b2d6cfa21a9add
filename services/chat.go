package services

import (
	"strings"
	"time"

	"tutorlink_go/database"
	"tutorlink_go/models"
	"tutorlink_go/services/notifications"
	"tutorlink_go/utils"

	"gorm.io/gorm"
)

type ChatService struct {
	db        *gorm.DB
	profanity *ProfanityService
	hub       notifications.WSHub
}

func NewChatService() *ChatService {
	return &ChatService{db: database.GetDB(), profanity: NewProfanityService(), hub: notifications.DefaultWSHub()}
}

type ChatMessageRequest struct {
	ReceiverID uint   `json:"receiver_id" validate:"required"`
	BookingID  *uint  `json:"booking_id"`
	Message    string `json:"message" validate:"required,max=5000"`
}

// Send stores a message and pushes it to the receiver's open sockets.
func (s *ChatService) Send(sender *models.User, req ChatMessageRequest) (*models.ChatMessage, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, InputError("message is empty")
	}
	if req.ReceiverID == sender.ID {
		return nil, InputError("cannot message yourself")
	}
	var receiver models.User
	if err := s.db.Select("id", "status").First(&receiver, req.ReceiverID).Error; err != nil {
		return nil, notFound(err)
	}
	if receiver.Status != models.UserActive {
		return nil, InputError("receiver is not active")
	}
	if req.BookingID != nil {
		var b models.Booking
		if err := s.db.Preload("Tutor").First(&b, *req.BookingID).Error; err != nil {
			return nil, notFound(err)
		}
		if !bookingBetween(&b, sender.ID, receiver.ID) {
			return nil, ErrForbidden
		}
	}
	if err := s.profanity.Screen(sender.ID, "chat", text); err != nil {
		return nil, err
	}

	msg := models.ChatMessage{SenderID: sender.ID, ReceiverID: receiver.ID, BookingID: req.BookingID, Message: text}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	if s.hub != nil {
		s.hub.BroadcastToUser(receiver.ID, map[string]interface{}{
			"type": "chat_message",
			"data": chatFrame(msg, sender),
		})
	}
	return &msg, nil
}

func bookingBetween(b *models.Booking, a, c uint) bool {
	return (b.StudentID == a && b.Tutor.UserID == c) || (b.StudentID == c && b.Tutor.UserID == a)
}

func chatFrame(m models.ChatMessage, sender *models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":          m.ID,
		"sender_id":   m.SenderID,
		"receiver_id": m.ReceiverID,
		"booking_id":  m.BookingID,
		"message":     m.Message,
		"created_at":  m.CreatedAt,
		"sender":      utils.ToUserShort(*sender),
	}
}

// Conversation summarises the thread with one counterpart.
type Conversation struct {
	User        utils.UserShort    `json:"user"`
	LastMessage models.ChatMessage `json:"last_message"`
	UnreadCount int64              `json:"unread_count"`
}

// Conversations returns one entry per counterpart, newest thread first.
func (s *ChatService) Conversations(userID uint) ([]Conversation, error) {
	var latestIDs []uint
	err := s.db.Raw(`SELECT MAX(id) FROM chat_messages
		WHERE deleted_at IS NULL AND (sender_id = ? OR receiver_id = ?)
		GROUP BY CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END`,
		userID, userID, userID).Scan(&latestIDs).Error
	if err != nil {
		return nil, err
	}
	if len(latestIDs) == 0 {
		return []Conversation{}, nil
	}
	var latest []models.ChatMessage
	if err := s.db.Where("id IN ?", latestIDs).Order("id DESC").Find(&latest).Error; err != nil {
		return nil, err
	}

	type unreadRow struct {
		SenderID uint
		Count    int64
	}
	var unread []unreadRow
	if err := s.db.Model(&models.ChatMessage{}).
		Select("sender_id, COUNT(*) AS count").
		Where("receiver_id = ? AND `read` = ?", userID, false).
		Group("sender_id").Scan(&unread).Error; err != nil {
		return nil, err
	}
	unreadBy := make(map[uint]int64, len(unread))
	for _, r := range unread {
		unreadBy[r.SenderID] = r.Count
	}

	counterpartIDs := make([]uint, 0, len(latest))
	for _, m := range latest {
		counterpartIDs = append(counterpartIDs, counterpart(m, userID))
	}
	var users []models.User
	if err := s.db.Where("id IN ?", counterpartIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]Conversation, 0, len(latest))
	for _, m := range latest {
		other := counterpart(m, userID)
		out = append(out, Conversation{
			User:        utils.ToUserShort(byID[other]),
			LastMessage: m,
			UnreadCount: unreadBy[other],
		})
	}
	return out, nil
}

func counterpart(m models.ChatMessage, userID uint) uint {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Messages pages the thread between userID and otherID, newest first.
func (s *ChatService) Messages(userID, otherID uint, page, limit int) ([]models.ChatMessage, int64, error) {
	_, limit, offset := utils.Pagination(page, limit)
	q := s.db.Model(&models.ChatMessage{}).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userID, otherID, otherID, userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.ChatMessage
	err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

// MarkRead flags every message from otherID to userID as read.
func (s *ChatService) MarkRead(userID, otherID uint) (int64, error) {
	now := time.Now()
	res := s.db.Model(&models.ChatMessage{}).
		Where("sender_id = ? AND receiver_id = ? AND `read` = ?", otherID, userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": &now})
	return res.RowsAffected, res.Error
}
