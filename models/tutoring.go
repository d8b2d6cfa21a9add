package models

import (
	"time"
)

// Application statuses
const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// Booking statuses
const (
	BookingPending   = "pending"
	BookingAccepted  = "accepted"
	BookingActive    = "active"
	BookingCompleted = "completed"
	BookingDeclined  = "declined"
	BookingCancelled = "cancelled"
)

// TutorApplication is a student's request to tutor one subject.
type TutorApplication struct {
	BaseModel
	UserID               uint       `json:"user_id" gorm:"not null;index"`
	Name                 string     `json:"name" gorm:"size:255;not null"`
	Subject              string     `json:"subject" gorm:"size:255;not null;index"`
	Program              string     `json:"program" gorm:"size:100"`
	YearLevel            int        `json:"year_level"`
	Specialties          JSONList   `json:"specialties" gorm:"type:json"`
	Status               string     `json:"status" gorm:"size:20;not null;default:'pending';type:enum('pending','approved','rejected');index"`
	AssessmentScore      float64    `json:"assessment_score"`
	AssessmentTotal      float64    `json:"assessment_total"`
	AssessmentPercentage float64    `json:"assessment_percentage"`
	AssessmentPassed     bool       `json:"assessment_passed"`
	RejectionReason      string     `json:"rejection_reason,omitempty" gorm:"type:text"`
	ReviewedBy           *uint      `json:"reviewed_by,omitempty"`
	ReviewedAt           *time.Time `json:"reviewed_at,omitempty"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (TutorApplication) TableName() string { return "tutorapplications" }

// Tutor is the approved copy of an application.
type Tutor struct {
	BaseModel
	UserID        uint     `json:"user_id" gorm:"not null;index"`
	ApplicationID *uint    `json:"application_id,omitempty"`
	Name          string   `json:"name" gorm:"size:255;not null"`
	Subject       string   `json:"subject" gorm:"size:255;not null;index"`
	Program       string   `json:"program" gorm:"size:100;index"`
	YearLevel     int      `json:"year_level"`
	Specialties   JSONList `json:"specialties" gorm:"type:json"`
	Ratings       float64  `json:"ratings" gorm:"not null;default:0"`
	RatingCount   int      `json:"rating_count" gorm:"not null;default:0"`
	Active        bool     `json:"active" gorm:"default:true"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Booking is a session request between a student and a tutor.
type Booking struct {
	BaseModel
	TutorID       uint       `json:"tutor_id" gorm:"not null;index"`
	StudentID     uint       `json:"student_id" gorm:"not null;index"`
	Subject       string     `json:"subject" gorm:"size:255;not null"`
	StartDate     time.Time  `json:"start_date" gorm:"type:date;not null"`
	EndDate       time.Time  `json:"end_date" gorm:"type:date;not null"`
	PreferredTime string     `json:"preferred_time" gorm:"size:11;not null"`
	Status        string     `json:"status" gorm:"size:20;not null;default:'pending';type:enum('pending','accepted','active','completed','declined','cancelled');index"`
	Notes         string     `json:"notes" gorm:"type:text"`
	DeclineReason string     `json:"decline_reason,omitempty" gorm:"type:text"`
	Rating        *int       `json:"rating,omitempty"`
	Feedback      string     `json:"feedback,omitempty" gorm:"type:text"`
	RatedAt       *time.Time `json:"rated_at,omitempty"`

	// Relationships
	Tutor   Tutor `json:"tutor,omitempty" gorm:"foreignKey:TutorID"`
	Student User  `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}
