package utils

import (
	"encoding/json"
	"strings"
	"time"

	"tutorlink_go/models"
)

// Compact representations used across APIs
type UserShort struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

type Sender struct {
	Type string `json:"type"` // "system" or "user"
	ID   *uint  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Recipient struct {
	Type string `json:"type"`
	ID   uint   `json:"id"`
}

type NotificationDTO struct {
	ID        uint            `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	UserID    uint            `json:"user_id"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Type      string          `json:"type"`
	Channels  []string        `json:"channels"`
	Data      json.RawMessage `json:"data,omitempty"`
	Read      bool            `json:"read"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	User      UserShort       `json:"user"`
	Sender    Sender          `json:"sender"`
	Recipient Recipient       `json:"recipient"`
}

// ToUserShort falls back to the email local part when no name is set.
func ToUserShort(u models.User) UserShort {
	us := UserShort{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role, Avatar: u.Avatar}
	if us.FirstName == "" && u.Email != "" {
		us.FirstName = strings.SplitN(u.Email, "@", 2)[0]
	}
	return us
}

// ToNotificationDTO maps a models.Notification to the compact DTO.
// The caller should preload User.
func ToNotificationDTO(n models.Notification) NotificationDTO {
	channels, _ := DecodeStringArray(n.Channels)
	if len(channels) == 0 {
		channels = []string{"normal"}
	}
	var data json.RawMessage
	if len(n.Data) > 0 && string(n.Data) != "null" {
		data = json.RawMessage(n.Data)
	}
	user := ToUserShort(n.User)
	if user.ID == 0 {
		user.ID = n.UserID
	}
	return NotificationDTO{
		ID:        n.ID,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Channels:  channels,
		Data:      data,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		User:      user,
		Sender:    Sender{Type: "system", Name: "TutorLink"},
		Recipient: Recipient{Type: "user", ID: n.UserID},
	}
}
