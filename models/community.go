package models

import (
	"time"
)

const (
	ViolationPending   = "pending"
	ViolationReviewed  = "reviewed"
	ViolationDismissed = "dismissed"
)

type Forum struct {
	BaseModel
	UserID       uint   `json:"user_id" gorm:"not null;index"`
	Title        string `json:"title" gorm:"size:255;not null"`
	Content      string `json:"content" gorm:"type:text;not null"`
	Subject      string `json:"subject" gorm:"size:255;index"`
	Program      string `json:"program" gorm:"size:100;index"`
	CommentCount int    `json:"comment_count" gorm:"not null;default:0"`

	// Relationships
	User     User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Comments []Comment `json:"comments,omitempty" gorm:"foreignKey:ForumID"`
}

type Comment struct {
	BaseModel
	ForumID uint   `json:"forum_id" gorm:"not null;index"`
	UserID  uint   `json:"user_id" gorm:"not null;index"`
	Content string `json:"content" gorm:"type:text;not null"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

type ChatMessage struct {
	BaseModel
	SenderID   uint       `json:"sender_id" gorm:"not null;index:idx_chat_pair"`
	ReceiverID uint       `json:"receiver_id" gorm:"not null;index:idx_chat_pair"`
	BookingID  *uint      `json:"booking_id,omitempty"`
	Message    string     `json:"message" gorm:"type:text;not null"`
	Read       bool       `json:"read" gorm:"default:false"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

// ProfanityViolation records text rejected by the word filter.
type ProfanityViolation struct {
	BaseModel
	UserID        uint       `json:"user_id" gorm:"not null;index"`
	Source        string     `json:"source" gorm:"size:20;not null;type:enum('forum','comment','chat')"`
	Content       string     `json:"content" gorm:"type:text"`
	DetectedWords JSONList   `json:"detected_words" gorm:"type:json"`
	Status        string     `json:"status" gorm:"size:20;not null;default:'pending';type:enum('pending','reviewed','dismissed');index"`
	ReviewedBy    *uint      `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
