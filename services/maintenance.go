package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"tutorlink_go/database"
	"tutorlink_go/models"
	"tutorlink_go/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JSONColumn names an array-valued JSON column on a model.
type JSONColumn struct {
	Model  interface{}
	Table  string
	Column string
}

// ArrayColumns lists every column that must hold a JSON array.
var ArrayColumns = []JSONColumn{
	{&models.TutorApplication{}, "tutorapplications", "specialties"},
	{&models.Tutor{}, "tutors", "specialties"},
	{&models.PreAssessmentQuestion{}, "pre_assessment_questions", "options"},
	{&models.PreAssessmentResult{}, "pre_assessment_results", "answers"},
	{&models.PreAssessmentResult{}, "pre_assessment_results", "recommended_subjects"},
	{&models.PostTestQuestion{}, "post_test_questions", "options"},
	{&models.PostTestResult{}, "post_test_results", "answers"},
	{&models.PostTestTemplateQuestion{}, "post_test_template_questions", "options"},
	{&models.ProfanityViolation{}, "profanity_violations", "detected_words"},
	{&models.Notification{}, "notifications", "channels"},
}

// JSONColumnReport counts the shapes found in one column.
type JSONColumnReport struct {
	Table  string         `json:"table"`
	Column string         `json:"column"`
	Rows   int            `json:"rows"`
	Kinds  map[string]int `json:"kinds"`
	Fixed  int            `json:"fixed"`
}

// Bad is the number of rows that are not already arrays.
func (r JSONColumnReport) Bad() int { return r.Rows - r.Kinds[models.JSONKindArray] }

// ApplicationIssue describes one inconsistent tutor application.
type ApplicationIssue struct {
	ApplicationID uint   `json:"application_id"`
	Problem       string `json:"problem"`
}

// Application problems
const (
	IssueInvalidStatus      = "invalid_status"
	IssueStatusCasing       = "status_not_normalised"
	IssueMissingTutor       = "approved_without_tutor"
	IssueAssessmentMismatch = "assessment_fields_inconsistent"
)

type MaintenanceService struct {
	db *gorm.DB
}

func NewMaintenanceService() *MaintenanceService {
	return &MaintenanceService{db: database.GetDB()}
}

type jsonRow struct {
	ID    uint
	Value []byte
}

func (s *MaintenanceService) scanColumn(col JSONColumn) ([]jsonRow, error) {
	var rows []jsonRow
	err := s.db.Model(col.Model).Unscoped().
		Select("id, " + col.Column + " AS value").
		Order("id").
		Scan(&rows).Error
	return rows, err
}

// CheckJSON reports the shape of every array column.
func (s *MaintenanceService) CheckJSON() ([]JSONColumnReport, error) {
	return s.walkJSON(false, true)
}

// FixJSON rewrites every non-canonical array value. With dryRun nothing is written.
func (s *MaintenanceService) FixJSON(dryRun bool) ([]JSONColumnReport, error) {
	return s.walkJSON(true, dryRun)
}

func (s *MaintenanceService) walkJSON(fix, dryRun bool) ([]JSONColumnReport, error) {
	reports := make([]JSONColumnReport, 0, len(ArrayColumns))
	for _, col := range ArrayColumns {
		rows, err := s.scanColumn(col)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", col.Table, col.Column, err)
		}
		rep := JSONColumnReport{Table: col.Table, Column: col.Column, Rows: len(rows), Kinds: map[string]int{}}
		for _, r := range rows {
			rep.Kinds[models.ClassifyJSONArray(r.Value)]++
			if !fix {
				continue
			}
			canonical, changed := utils.CanonicalJSONArray(r.Value)
			if !changed {
				continue
			}
			rep.Fixed++
			if dryRun {
				continue
			}
			if err := s.db.Model(col.Model).Unscoped().Where("id = ?", r.ID).
				UpdateColumn(col.Column, datatypes.JSON(canonical)).Error; err != nil {
				return nil, fmt.Errorf("%s.%s id=%d: %w", col.Table, col.Column, r.ID, err)
			}
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// NormaliseApplicationStatus maps a stored status onto the allowed set.
func NormaliseApplicationStatus(v string) (string, bool) {
	switch s := strings.ToLower(strings.TrimSpace(v)); s {
	case models.ApplicationPending, models.ApplicationApproved, models.ApplicationRejected:
		return s, true
	}
	return "", false
}

// InspectApplication lists what is wrong with one application.
func InspectApplication(app models.TutorApplication, hasTutor bool, passing float64) []string {
	var problems []string
	status, ok := NormaliseApplicationStatus(app.Status)
	switch {
	case !ok:
		problems = append(problems, IssueInvalidStatus)
	case status != app.Status:
		problems = append(problems, IssueStatusCasing)
	}
	if status == models.ApplicationApproved && !hasTutor {
		problems = append(problems, IssueMissingTutor)
	}
	pct, passed := ApplicationOutcome(app.AssessmentScore, app.AssessmentTotal, passing)
	if math.Abs(pct-app.AssessmentPercentage) > 0.005 || passed != app.AssessmentPassed {
		problems = append(problems, IssueAssessmentMismatch)
	}
	return problems
}

func (s *MaintenanceService) applicationsWithTutors() ([]models.TutorApplication, map[uint]bool, error) {
	var apps []models.TutorApplication
	if err := s.db.Order("id").Find(&apps).Error; err != nil {
		return nil, nil, err
	}
	var linked []struct {
		UserID  uint
		Subject string
	}
	if err := s.db.Model(&models.Tutor{}).Select("user_id, subject").Scan(&linked).Error; err != nil {
		return nil, nil, err
	}
	has := make(map[string]bool, len(linked))
	for _, t := range linked {
		has[fmt.Sprintf("%d|%s", t.UserID, t.Subject)] = true
	}
	withTutor := make(map[uint]bool, len(apps))
	for _, a := range apps {
		withTutor[a.ID] = has[fmt.Sprintf("%d|%s", a.UserID, a.Subject)]
	}
	return apps, withTutor, nil
}

// CheckApplications lists inconsistent tutor applications.
func (s *MaintenanceService) CheckApplications() ([]ApplicationIssue, error) {
	apps, withTutor, err := s.applicationsWithTutors()
	if err != nil {
		return nil, err
	}
	passing := passingPercentage()
	var issues []ApplicationIssue
	for _, a := range apps {
		for _, p := range InspectApplication(a, withTutor[a.ID], passing) {
			issues = append(issues, ApplicationIssue{ApplicationID: a.ID, Problem: p})
		}
	}
	return issues, nil
}

// FixApplications repairs what CheckApplications reports. Invalid statuses
// that cannot be mapped are reset to pending. Returns the issues it handled.
func (s *MaintenanceService) FixApplications(dryRun bool) ([]ApplicationIssue, error) {
	issues, err := s.CheckApplications()
	if err != nil || dryRun || len(issues) == 0 {
		return issues, err
	}
	passing := passingPercentage()
	byID := map[uint][]string{}
	for _, is := range issues {
		byID[is.ApplicationID] = append(byID[is.ApplicationID], is.Problem)
	}
	for id := range byID {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var app models.TutorApplication
			if err := tx.First(&app, id).Error; err != nil {
				return err
			}
			status, ok := NormaliseApplicationStatus(app.Status)
			if !ok {
				status = models.ApplicationPending
			}
			pct, passed := ApplicationOutcome(app.AssessmentScore, app.AssessmentTotal, passing)
			if err := tx.Model(&app).Updates(map[string]interface{}{
				"status":                status,
				"assessment_percentage": pct,
				"assessment_passed":     passed,
			}).Error; err != nil {
				return err
			}
			app.Status = status
			if status != models.ApplicationApproved {
				return nil
			}
			var tutor models.Tutor
			return upsertTutorFromApplication(tx, &app, &tutor)
		})
		if err != nil {
			return nil, fmt.Errorf("application %d: %w", id, err)
		}
		logrus.WithFields(logrus.Fields{"application_id": id, "problems": byID[id]}).Info("application repaired")
	}
	InvalidateTutorCache(context.Background())
	return issues, nil
}
