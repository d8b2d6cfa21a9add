package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Roles
const (
	RoleStudent = "Student"
	RoleTutor   = "Tutor"
	RoleFaculty = "Faculty"
	RoleAdmin   = "Admin"
)

// User statuses
const (
	UserActive    = "active"
	UserInactive  = "inactive"
	UserSuspended = "suspended"
)

// User model
type User struct {
	BaseModel
	FirstName            string     `json:"first_name" gorm:"size:100;not null"`
	MiddleName           string     `json:"middle_name" gorm:"size:100"`
	LastName             string     `json:"last_name" gorm:"size:100;not null"`
	Email                string     `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Password             string     `json:"-" gorm:"size:255;not null"`
	Program              string     `json:"program" gorm:"size:100;index"`
	Role                 string     `json:"role" gorm:"size:20;not null;default:'Student';type:enum('Student','Tutor','Faculty','Admin')"`
	Status               string     `json:"status" gorm:"size:20;not null;default:'active';type:enum('active','inactive','suspended')"`
	YearLevel            int        `json:"year_level" gorm:"not null;default:0"`
	FirstLogin           bool       `json:"first_login" gorm:"not null;default:false"`
	Avatar               string     `json:"avatar" gorm:"size:500"`
	LineUserID           string     `json:"line_user_id,omitempty" gorm:"size:100;index"`
	PasswordResetToken   string     `json:"-" gorm:"size:255"`
	PasswordResetExpires *time.Time `json:"-"`
}

// FullName joins the non-empty name parts.
func (u User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.FirstName, u.MiddleName, u.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func (u User) IsStaff() bool {
	return u.Role == RoleFaculty || u.Role == RoleAdmin
}

// Subject model
type Subject struct {
	BaseModel
	Name        string `json:"name" gorm:"size:255;not null"`
	Code        string `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Program     string `json:"program" gorm:"size:100;index"`
	YearLevel   int    `json:"year_level" gorm:"not null;default:0"` // 0 = every year
	Description string `json:"description" gorm:"type:text"`
	Active      bool   `json:"active" gorm:"default:true"`
}

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint           `json:"user_id" gorm:"index"`
	Action     string         `json:"action" gorm:"size:100;not null"`
	Resource   string         `json:"resource" gorm:"size:100;not null"`
	ResourceID uint           `json:"resource_id"`
	Details    datatypes.JSON `json:"details" gorm:"type:json"`
	IPAddress  string         `json:"ip_address" gorm:"size:45"`
	UserAgent  string         `json:"user_agent" gorm:"size:500"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Notification model
type Notification struct {
	BaseModel
	UserID   uint           `json:"user_id" gorm:"not null;index"`
	Title    string         `json:"title" gorm:"size:255;not null"`
	Message  string         `json:"message" gorm:"type:text;not null"`
	Type     string         `json:"type" gorm:"size:50;not null;type:enum('info','warning','error','success')"`
	Channels JSONList       `json:"channels" gorm:"type:json"`
	Data     datatypes.JSON `json:"data,omitempty" gorm:"type:json"`
	Read     bool           `json:"read" gorm:"default:false"`
	ReadAt   *time.Time     `json:"read_at"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// LogArchive model for tracking archived logs
type LogArchive struct {
	BaseModel
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	StartDate   time.Time `json:"start_date" gorm:"not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	RecordCount int       `json:"record_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','completed','failed')"` // pending, completed, failed
	Error       string    `json:"error" gorm:"type:text"`
}
