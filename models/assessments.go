package models

import (
	"time"
)

// Question types
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionShortAnswer    = "short_answer"
)

const (
	PostTestPending   = "pending"
	PostTestCompleted = "completed"

	AssignmentAssigned  = "assigned"
	AssignmentCompleted = "completed"
	AssignmentOverdue   = "overdue"
)

// AnswerRecord is one scored answer stored in a result's answers column.
type AnswerRecord struct {
	QuestionID uint   `json:"question_id"`
	Answer     string `json:"answer"`
	Correct    bool   `json:"correct"`
}

type PreAssessment struct {
	BaseModel
	Title       string `json:"title" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`
	Program     string `json:"program" gorm:"size:100;index"`
	YearLevel   int    `json:"year_level"`
	CreatedBy   uint   `json:"created_by"`
	Active      bool   `json:"active" gorm:"default:true"`

	Questions []PreAssessmentQuestion `json:"questions,omitempty" gorm:"foreignKey:PreAssessmentID"`
}

type PreAssessmentQuestion struct {
	BaseModel
	PreAssessmentID uint     `json:"pre_assessment_id" gorm:"not null;index"`
	Question        string   `json:"question" gorm:"type:text;not null"`
	Options         JSONList `json:"options" gorm:"type:json"`
	CorrectAnswer   string   `json:"correct_answer,omitempty" gorm:"size:500;not null"`
	Subject         string   `json:"subject" gorm:"size:255"`
	Points          int      `json:"points" gorm:"not null;default:1"`
	Order           int      `json:"order" gorm:"column:sort_order;default:0"`
}

type PreAssessmentResult struct {
	BaseModel
	UserID              uint     `json:"user_id" gorm:"not null;uniqueIndex:idx_user_pre_assessment"`
	PreAssessmentID     uint     `json:"pre_assessment_id" gorm:"not null;uniqueIndex:idx_user_pre_assessment"`
	Answers             JSONList `json:"answers" gorm:"type:json"`
	Score               float64  `json:"score"`
	TotalPoints         float64  `json:"total_points"`
	Percentage          float64  `json:"percentage"`
	RecommendedSubjects JSONList `json:"recommended_subjects" gorm:"type:json"`

	// Relationships
	User          User          `json:"user,omitempty" gorm:"foreignKey:UserID"`
	PreAssessment PreAssessment `json:"pre_assessment,omitempty" gorm:"foreignKey:PreAssessmentID"`
}

type PostTest struct {
	BaseModel
	BookingID   *uint      `json:"booking_id,omitempty" gorm:"index"`
	TutorID     uint       `json:"tutor_id" gorm:"not null;index"`
	StudentID   uint       `json:"student_id" gorm:"not null;index"`
	Title       string     `json:"title" gorm:"size:255;not null"`
	Subject     string     `json:"subject" gorm:"size:255"`
	Description string     `json:"description" gorm:"type:text"`
	Status      string     `json:"status" gorm:"size:20;not null;default:'pending';type:enum('pending','completed')"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	TemplateID  *uint      `json:"template_id,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Questions []PostTestQuestion `json:"questions,omitempty" gorm:"foreignKey:PostTestID"`
	Tutor     Tutor              `json:"tutor,omitempty" gorm:"foreignKey:TutorID"`
	Student   User               `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

type PostTestQuestion struct {
	BaseModel
	PostTestID    uint     `json:"post_test_id" gorm:"not null;index"`
	QuestionType  string   `json:"question_type" gorm:"size:20;not null;default:'multiple_choice';type:enum('multiple_choice','true_false','short_answer')"`
	Question      string   `json:"question" gorm:"type:text;not null"`
	Options       JSONList `json:"options" gorm:"type:json"`
	CorrectAnswer string   `json:"correct_answer,omitempty" gorm:"size:500;not null"`
	Points        int      `json:"points" gorm:"not null;default:1"`
	Order         int      `json:"order" gorm:"column:sort_order;default:0"`
}

type PostTestResult struct {
	BaseModel
	PostTestID       uint     `json:"post_test_id" gorm:"not null;uniqueIndex"`
	StudentID        uint     `json:"student_id" gorm:"not null;index"`
	Answers          JSONList `json:"answers" gorm:"type:json"`
	Score            float64  `json:"score"`
	TotalPoints      float64  `json:"total_points"`
	Percentage       float64  `json:"percentage"`
	TimeTakenSeconds int      `json:"time_taken_seconds"`
}

type PostTestTemplate struct {
	BaseModel
	TutorID     uint   `json:"tutor_id" gorm:"not null;index"`
	Title       string `json:"title" gorm:"size:255;not null"`
	Subject     string `json:"subject" gorm:"size:255"`
	Description string `json:"description" gorm:"type:text"`

	Questions []PostTestTemplateQuestion `json:"questions,omitempty" gorm:"foreignKey:TemplateID"`
}

type PostTestTemplateQuestion struct {
	BaseModel
	TemplateID    uint     `json:"template_id" gorm:"not null;index"`
	QuestionType  string   `json:"question_type" gorm:"size:20;not null;default:'multiple_choice';type:enum('multiple_choice','true_false','short_answer')"`
	Question      string   `json:"question" gorm:"type:text;not null"`
	Options       JSONList `json:"options" gorm:"type:json"`
	CorrectAnswer string   `json:"correct_answer" gorm:"size:500;not null"`
	Points        int      `json:"points" gorm:"not null;default:1"`
	Order         int      `json:"order" gorm:"column:sort_order;default:0"`
}

type PostTestAssignment struct {
	BaseModel
	TemplateID  uint       `json:"template_id" gorm:"not null;index"`
	PostTestID  uint       `json:"post_test_id" gorm:"not null;uniqueIndex"`
	TutorID     uint       `json:"tutor_id" gorm:"not null;index"`
	StudentID   uint       `json:"student_id" gorm:"not null;index"`
	BookingID   *uint      `json:"booking_id,omitempty"`
	Status      string     `json:"status" gorm:"size:20;not null;default:'assigned';type:enum('assigned','completed','overdue');index"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	PostTest PostTest `json:"post_test,omitempty" gorm:"foreignKey:PostTestID"`
}
