package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutorlink_go/config"
	"tutorlink_go/database"
	"tutorlink_go/models"
	"tutorlink_go/services/email"
	"tutorlink_go/services/notifications"
	"tutorlink_go/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const reasonAssessmentFailed = "assessment not passed"

type TutorApplicationService struct {
	db *gorm.DB
}

func NewTutorApplicationService() *TutorApplicationService {
	return &TutorApplicationService{db: database.GetDB()}
}

type ApplicationRequest struct {
	Subject         string   `json:"subject" validate:"required,max=255"`
	Program         string   `json:"program" validate:"max=100"`
	YearLevel       int      `json:"year_level" validate:"omitempty,year_level"`
	Specialties     []string `json:"specialties" validate:"max=20,dive,max=100"`
	AssessmentScore float64  `json:"assessment_score" validate:"min=0"`
	AssessmentTotal float64  `json:"assessment_total" validate:"gt=0"`
}

func passingPercentage() float64 {
	if config.AppConfig != nil && config.AppConfig.AssessmentPassingPercentage > 0 {
		return config.AppConfig.AssessmentPassingPercentage
	}
	return 70
}

// Submit files an application. A failed assessment is stored as rejected.
func (s *TutorApplicationService) Submit(user *models.User, req ApplicationRequest) (*models.TutorApplication, error) {
	if req.AssessmentScore > req.AssessmentTotal {
		return nil, InputError("assessment_score cannot exceed assessment_total")
	}
	subject := utils.SanitizeString(req.Subject)

	pct, passed := ApplicationOutcome(req.AssessmentScore, req.AssessmentTotal, passingPercentage())
	app := models.TutorApplication{
		UserID:               user.ID,
		Name:                 user.FullName(),
		Subject:              subject,
		Program:              firstNonEmpty(utils.SanitizeString(req.Program), user.Program),
		YearLevel:            firstNonZero(req.YearLevel, user.YearLevel),
		Specialties:          models.JSONArray(cleanList(req.Specialties)),
		Status:               models.ApplicationPending,
		AssessmentScore:      req.AssessmentScore,
		AssessmentTotal:      req.AssessmentTotal,
		AssessmentPercentage: pct,
		AssessmentPassed:     passed,
	}
	if !passed {
		now := time.Now()
		app.Status = models.ApplicationRejected
		app.RejectionReason = reasonAssessmentFailed
		app.ReviewedAt = &now
	}

	// The applicant's user row serialises concurrent submits for the
	// pending-per-subject check.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&owner, user.ID).Error; err != nil {
			return notFound(err)
		}
		if app.Status == models.ApplicationPending {
			var pending int64
			if err := tx.Model(&models.TutorApplication{}).
				Where("user_id = ? AND subject = ? AND status = ?", user.ID, subject, models.ApplicationPending).
				Count(&pending).Error; err != nil {
				return err
			}
			if pending > 0 {
				return fmt.Errorf("%w: a pending application for %s already exists", ErrConflict, subject)
			}
		}
		return tx.Create(&app).Error
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

type ApplicationFilter struct {
	Status string
	UserID uint
	Page   int
	Limit  int
}

func (s *TutorApplicationService) List(f ApplicationFilter) ([]models.TutorApplication, int64, error) {
	_, limit, offset := utils.Pagination(f.Page, f.Limit)
	q := s.db.Model(&models.TutorApplication{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var apps []models.TutorApplication
	err := q.Preload("User").Order("created_at DESC").Offset(offset).Limit(limit).Find(&apps).Error
	return apps, total, err
}

func (s *TutorApplicationService) Get(id uint) (*models.TutorApplication, error) {
	var app models.TutorApplication
	if err := s.db.Preload("User").First(&app, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &app, nil
}

// Approve runs the whole approval in one transaction: status change,
// tutor row upsert and role promotion.
func (s *TutorApplicationService) Approve(id, reviewerID uint) (*models.TutorApplication, *models.Tutor, error) {
	var app models.TutorApplication
	var tutor models.Tutor

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&app, id).Error; err != nil {
			return notFound(err)
		}
		if err := CheckApplicationTransition(app.Status, models.ApplicationApproved); err != nil {
			return err
		}
		now := time.Now()
		if err := tx.Model(&app).Updates(map[string]interface{}{
			"status":           models.ApplicationApproved,
			"reviewed_by":      reviewerID,
			"reviewed_at":      &now,
			"rejection_reason": "",
		}).Error; err != nil {
			return err
		}
		app.Status, app.ReviewedBy, app.ReviewedAt = models.ApplicationApproved, &reviewerID, &now

		if err := upsertTutorFromApplication(tx, &app, &tutor); err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ? AND role = ?", app.UserID, models.RoleStudent).
			Update("role", models.RoleTutor).Error
	})
	if err != nil {
		return nil, nil, err
	}

	InvalidateTutorCache(context.Background())
	s.announceDecision(&app)
	return &app, &tutor, nil
}

// upsertTutorFromApplication reactivates the user's tutor row for the
// subject or inserts a new one.
func upsertTutorFromApplication(tx *gorm.DB, app *models.TutorApplication, tutor *models.Tutor) error {
	appID := app.ID
	err := tx.Unscoped().Where("user_id = ? AND subject = ?", app.UserID, app.Subject).First(tutor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		*tutor = models.Tutor{
			UserID:        app.UserID,
			ApplicationID: &appID,
			Name:          app.Name,
			Subject:       app.Subject,
			Program:       app.Program,
			YearLevel:     app.YearLevel,
			Specialties:   app.Specialties,
			Active:        true,
		}
		return tx.Create(tutor).Error
	}
	if err != nil {
		return err
	}
	if err := tx.Unscoped().Model(tutor).Updates(map[string]interface{}{
		"application_id": appID,
		"name":           app.Name,
		"program":        app.Program,
		"year_level":     app.YearLevel,
		"specialties":    app.Specialties,
		"active":         true,
		"deleted_at":     nil,
	}).Error; err != nil {
		return err
	}
	tutor.Active = true
	return nil
}

func (s *TutorApplicationService) Reject(id, reviewerID uint, reason string) (*models.TutorApplication, error) {
	var app models.TutorApplication
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&app, id).Error; err != nil {
			return notFound(err)
		}
		if err := CheckApplicationTransition(app.Status, models.ApplicationRejected); err != nil {
			return err
		}
		now := time.Now()
		app.Status, app.ReviewedBy, app.ReviewedAt = models.ApplicationRejected, &reviewerID, &now
		app.RejectionReason = strings.TrimSpace(reason)
		return tx.Model(&app).Updates(map[string]interface{}{
			"status":           app.Status,
			"reviewed_by":      reviewerID,
			"reviewed_at":      &now,
			"rejection_reason": app.RejectionReason,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.announceDecision(&app)
	return &app, nil
}

func (s *TutorApplicationService) announceDecision(app *models.TutorApplication) {
	approved := app.Status == models.ApplicationApproved
	title, typ := "Tutor application rejected", notifications.TypeWarning
	msg := fmt.Sprintf("Your application to tutor %s was not approved.", app.Subject)
	if approved {
		title, typ = "Tutor application approved", notifications.TypeSuccess
		msg = fmt.Sprintf("You are now a tutor for %s.", app.Subject)
	}
	notify([]uint{app.UserID}, title, msg, typ, map[string]interface{}{"application_id": app.ID}, "normal", "popup", "line")

	var user models.User
	if err := s.db.First(&user, app.UserID).Error; err != nil {
		return
	}
	mailer().SendAsync(email.Message{
		To:       email.To(user.FullName(), user.Email),
		Subject:  title,
		Template: email.TemplateApplicationDecision,
		Data: email.ApplicationDecisionData{
			Name:     user.FirstName,
			Subject:  app.Subject,
			Approved: approved,
			Reason:   app.RejectionReason,
		},
	})
}

var applicationExportHeader = []string{
	"ID", "Applicant", "Email", "Subject", "Program", "Year Level", "Specialties",
	"Score", "Total", "Percentage", "Passed", "Status", "Rejection Reason", "Submitted", "Reviewed",
}

// Export renders every application as an XLSX sheet.
func (s *TutorApplicationService) Export(status string) ([]byte, error) {
	q := s.db.Preload("User").Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var apps []models.TutorApplication
	if err := q.Find(&apps).Error; err != nil {
		return nil, err
	}
	rows := make([][]interface{}, 0, len(apps))
	for _, a := range apps {
		specialties, _ := utils.DecodeStringArray(a.Specialties)
		reviewed := ""
		if a.ReviewedAt != nil {
			reviewed = a.ReviewedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []interface{}{
			a.ID, a.Name, a.User.Email, a.Subject, a.Program, a.YearLevel, strings.Join(specialties, ", "),
			a.AssessmentScore, a.AssessmentTotal, a.AssessmentPercentage, a.AssessmentPassed,
			a.Status, a.RejectionReason, a.CreatedAt.Format("2006-01-02 15:04"), reviewed,
		})
	}
	return WriteSheet("Applications", applicationExportHeader, rows)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// cleanList trims entries and drops blanks and case-insensitive duplicates.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, v := range in {
		v = utils.SanitizeString(v)
		key := strings.ToLower(v)
		if v == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
