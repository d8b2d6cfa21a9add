package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tutorlink_go/database"
	"tutorlink_go/models"
	"tutorlink_go/services/email"
	"tutorlink_go/services/notifications"
	"tutorlink_go/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Post tests and assignments point at tutors.id; templates belong to the
// authoring user (templates.tutor_id = users.id) so one template serves all
// of a tutor's subjects.
type PostTestService struct {
	db *gorm.DB
}

func NewPostTestService() *PostTestService {
	return &PostTestService{db: database.GetDB()}
}

var postTestBookingStatuses = []string{models.BookingAccepted, models.BookingActive, models.BookingCompleted}

type PostTestRequest struct {
	BookingID   uint            `json:"booking_id" validate:"required"`
	Title       string          `json:"title" validate:"required,max=255"`
	Subject     string          `json:"subject" validate:"max=255"`
	Description string          `json:"description"`
	DueDate     string          `json:"due_date"`
	Questions   []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

type TemplateRequest struct {
	Title       string          `json:"title" validate:"required,max=255"`
	Subject     string          `json:"subject" validate:"max=255"`
	Description string          `json:"description"`
	Questions   []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

type AssignRequest struct {
	BookingID  *uint  `json:"booking_id"`
	StudentIDs []uint `json:"student_ids"`
	DueDate    string `json:"due_date"`
}

func parseDueDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	d, err := utils.ParseDate(v)
	if err != nil {
		return nil, InputError("due_date must be YYYY-MM-DD or RFC3339")
	}
	end := d.Add(24*time.Hour - time.Second)
	return &end, nil
}

func questionType(t string) string {
	if t == "" {
		return models.QuestionMultipleChoice
	}
	return t
}

func toPostQuestions(in []QuestionInput) []models.PostTestQuestion {
	out := make([]models.PostTestQuestion, 0, len(in))
	for i, q := range in {
		points := q.Points
		if points <= 0 {
			points = 1
		}
		out = append(out, models.PostTestQuestion{
			QuestionType:  questionType(q.QuestionType),
			Question:      strings.TrimSpace(q.Question),
			Options:       models.JSONArray(cleanOptions(q.Options)),
			CorrectAnswer: strings.TrimSpace(q.CorrectAnswer),
			Points:        points,
			Order:         i + 1,
		})
	}
	return out
}

// tutorBooking loads a booking owned by the tutor user in a usable status.
func tutorBooking(tx *gorm.DB, bookingID uint, tutorUser *models.User) (*models.Booking, error) {
	var b models.Booking
	if err := tx.Preload("Tutor").First(&b, bookingID).Error; err != nil {
		return nil, notFound(err)
	}
	if b.Tutor.UserID != tutorUser.ID && tutorUser.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	for _, s := range postTestBookingStatuses {
		if b.Status == s {
			return &b, nil
		}
	}
	return nil, InputError("booking must be accepted, active or completed")
}

// Create writes a post test for the student of one of the tutor's bookings.
func (s *PostTestService) Create(tutorUser *models.User, req PostTestRequest) (*models.PostTest, error) {
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	var pt models.PostTest
	err = s.db.Transaction(func(tx *gorm.DB) error {
		b, err := tutorBooking(tx, req.BookingID, tutorUser)
		if err != nil {
			return err
		}
		bookingID := b.ID
		pt = models.PostTest{
			BookingID:   &bookingID,
			TutorID:     b.TutorID,
			StudentID:   b.StudentID,
			Title:       utils.SanitizeString(req.Title),
			Subject:     firstNonEmpty(utils.SanitizeString(req.Subject), b.Subject),
			Description: req.Description,
			Status:      models.PostTestPending,
			DueDate:     due,
			Questions:   toPostQuestions(req.Questions),
		}
		return tx.Create(&pt).Error
	})
	if err != nil {
		return nil, err
	}
	s.announceAssigned([]models.PostTest{pt}, tutorUser)
	return &pt, nil
}

// Templates

func (s *PostTestService) CreateTemplate(author *models.User, req TemplateRequest) (*models.PostTestTemplate, error) {
	tpl := models.PostTestTemplate{
		TutorID:     author.ID,
		Title:       utils.SanitizeString(req.Title),
		Subject:     utils.SanitizeString(req.Subject),
		Description: req.Description,
		Questions:   toTemplateQuestions(req.Questions),
	}
	if err := s.db.Create(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

func toTemplateQuestions(in []QuestionInput) []models.PostTestTemplateQuestion {
	pq := toPostQuestions(in)
	out := make([]models.PostTestTemplateQuestion, 0, len(pq))
	for _, q := range pq {
		out = append(out, models.PostTestTemplateQuestion{
			QuestionType:  q.QuestionType,
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
			Order:         q.Order,
		})
	}
	return out
}

func (s *PostTestService) ListTemplates(user *models.User) ([]models.PostTestTemplate, error) {
	q := s.db.Model(&models.PostTestTemplate{})
	if user.Role != models.RoleAdmin {
		q = q.Where("tutor_id = ?", user.ID)
	}
	var out []models.PostTestTemplate
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *PostTestService) GetTemplate(id uint, user *models.User) (*models.PostTestTemplate, error) {
	var tpl models.PostTestTemplate
	err := s.db.Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order, id") }).
		First(&tpl, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	if tpl.TutorID != user.ID && user.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	return &tpl, nil
}

// UpdateTemplate replaces the template fields and its questions.
func (s *PostTestService) UpdateTemplate(id uint, user *models.User, req TemplateRequest) (*models.PostTestTemplate, error) {
	tpl, err := s.GetTemplate(id, user)
	if err != nil {
		return nil, err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(tpl).Updates(map[string]interface{}{
			"title":       utils.SanitizeString(req.Title),
			"subject":     utils.SanitizeString(req.Subject),
			"description": req.Description,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("template_id = ?", id).Delete(&models.PostTestTemplateQuestion{}).Error; err != nil {
			return err
		}
		qs := toTemplateQuestions(req.Questions)
		for i := range qs {
			qs[i].TemplateID = id
		}
		return tx.Create(&qs).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetTemplate(id, user)
}

func (s *PostTestService) DeleteTemplate(id uint, user *models.User) error {
	tpl, err := s.GetTemplate(id, user)
	if err != nil {
		return err
	}
	return s.db.Delete(tpl).Error
}

// resolveTutorRow picks the author's tutor row for subject, falling back to
// any active row they own.
func resolveTutorRow(tx *gorm.DB, userID uint, subject string) (*models.Tutor, error) {
	var t models.Tutor
	err := tx.Where("user_id = ? AND subject = ? AND active = ?", userID, subject, true).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = tx.Where("user_id = ? AND active = ?", userID, true).Order("id").First(&t).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, InputError("you have no active tutor profile")
		}
		return nil, err
	}
	return &t, nil
}

// Assign copies a template into one post test per student and records an
// assignment for each.
func (s *PostTestService) Assign(templateID uint, user *models.User, req AssignRequest) ([]models.PostTestAssignment, error) {
	tpl, err := s.GetTemplate(templateID, user)
	if err != nil {
		return nil, err
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	if req.BookingID == nil && len(req.StudentIDs) == 0 {
		return nil, InputError("booking_id or student_ids is required")
	}

	var created []models.PostTest
	var assignments []models.PostTestAssignment
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var tutorID uint
		var students []uint
		var bookingID *uint
		if req.BookingID != nil {
			b, err := tutorBooking(tx, *req.BookingID, user)
			if err != nil {
				return err
			}
			id := b.ID
			tutorID, students, bookingID = b.TutorID, []uint{b.StudentID}, &id
		} else {
			t, err := resolveTutorRow(tx, tpl.TutorID, tpl.Subject)
			if err != nil {
				return err
			}
			tutorID = t.ID
			var count int64
			if err := tx.Model(&models.User{}).Where("id IN ? AND role = ?", req.StudentIDs, models.RoleStudent).
				Count(&count).Error; err != nil {
				return err
			}
			students = uniqueIDs(req.StudentIDs)
			if int(count) != len(students) {
				return InputError("student_ids must all be students")
			}
		}

		for _, sid := range students {
			tplID := tpl.ID
			qs := make([]QuestionInput, 0, len(tpl.Questions))
			for _, q := range tpl.Questions {
				opts, _ := utils.DecodeStringArray(q.Options)
				qs = append(qs, QuestionInput{QuestionType: q.QuestionType, Question: q.Question,
					Options: opts, CorrectAnswer: q.CorrectAnswer, Points: q.Points})
			}
			pt := models.PostTest{
				BookingID:   bookingID,
				TutorID:     tutorID,
				StudentID:   sid,
				Title:       tpl.Title,
				Subject:     tpl.Subject,
				Description: tpl.Description,
				Status:      models.PostTestPending,
				DueDate:     due,
				TemplateID:  &tplID,
				Questions:   toPostQuestions(qs),
			}
			if err := tx.Create(&pt).Error; err != nil {
				return err
			}
			a := models.PostTestAssignment{
				TemplateID: tpl.ID,
				PostTestID: pt.ID,
				TutorID:    tutorID,
				StudentID:  sid,
				BookingID:  bookingID,
				Status:     models.AssignmentAssigned,
				DueDate:    due,
			}
			if err := tx.Create(&a).Error; err != nil {
				return err
			}
			created = append(created, pt)
			assignments = append(assignments, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.announceAssigned(created, user)
	return assignments, nil
}

func uniqueIDs(in []uint) []uint {
	seen := map[uint]struct{}{}
	out := make([]uint, 0, len(in))
	for _, id := range in {
		if _, dup := seen[id]; dup || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *PostTestService) announceAssigned(tests []models.PostTest, tutorUser *models.User) {
	for _, pt := range tests {
		due := ""
		if pt.DueDate != nil {
			due = pt.DueDate.Format("2006-01-02")
		}
		notify([]uint{pt.StudentID}, "New post-test", fmt.Sprintf("%s assigned you \"%s\".", tutorUser.FullName(), pt.Title),
			notifications.TypeInfo, map[string]interface{}{"post_test_id": pt.ID}, "normal", "popup")

		var student models.User
		if err := s.db.First(&student, pt.StudentID).Error; err != nil {
			continue
		}
		mailer().SendAsync(email.Message{
			To:       email.To(student.FullName(), student.Email),
			Subject:  "New post-test: " + pt.Title,
			Template: email.TemplatePostTestAssigned,
			Data: email.PostTestAssignedData{
				Name: student.FirstName, Title: pt.Title, TutorName: tutorUser.FullName(), DueDate: due,
			},
		})
	}
}

// scopeFor restricts post tests to what user may see.
func (s *PostTestService) scopeFor(q *gorm.DB, user *models.User) *gorm.DB {
	switch user.Role {
	case models.RoleAdmin, models.RoleFaculty:
		return q
	case models.RoleTutor:
		tutorIDs := s.db.Model(&models.Tutor{}).Select("id").Where("user_id = ?", user.ID)
		return q.Where("student_id = ? OR tutor_id IN (?)", user.ID, tutorIDs)
	}
	return q.Where("student_id = ?", user.ID)
}

func (s *PostTestService) List(user *models.User, status string) ([]models.PostTest, error) {
	q := s.scopeFor(s.db.Model(&models.PostTest{}), user)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.PostTest
	err := q.Preload("Tutor").Preload("Student").Order("created_at DESC").Find(&out).Error
	return out, err
}

// Get returns a post test; students see correct answers only after completing it.
func (s *PostTestService) Get(id uint, user *models.User) (*models.PostTest, error) {
	var pt models.PostTest
	err := s.scopeFor(s.db.Model(&models.PostTest{}), user).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order, id") }).
		Preload("Tutor").Preload("Student").
		First(&pt, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	if pt.StudentID == user.ID && pt.Status != models.PostTestCompleted {
		for i := range pt.Questions {
			pt.Questions[i].CorrectAnswer = ""
		}
	}
	return &pt, nil
}

func (s *PostTestService) ListAssignments(user *models.User, status string) ([]models.PostTestAssignment, error) {
	q := s.db.Model(&models.PostTestAssignment{})
	switch user.Role {
	case models.RoleAdmin, models.RoleFaculty:
	case models.RoleTutor:
		tutorIDs := s.db.Model(&models.Tutor{}).Select("id").Where("user_id = ?", user.ID)
		q = q.Where("student_id = ? OR tutor_id IN (?)", user.ID, tutorIDs)
	default:
		q = q.Where("student_id = ?", user.ID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.PostTestAssignment
	err := q.Preload("PostTest").Order("created_at DESC").Find(&out).Error
	return out, err
}

type PostTestSubmission struct {
	Answers          []SubmittedAnswer `json:"answers" validate:"dive"`
	TimeTakenSeconds int               `json:"time_taken_seconds" validate:"min=0"`
}

// Submit grades the student's answers. Result insert, post test completion
// and assignment completion commit together.
func (s *PostTestService) Submit(id uint, student *models.User, sub PostTestSubmission) (*models.PostTestResult, error) {
	var result models.PostTestResult
	var pt models.PostTest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pt, id).Error; err != nil {
			return notFound(err)
		}
		if pt.StudentID != student.ID {
			return ErrForbidden
		}
		if pt.Status == models.PostTestCompleted {
			return ErrAlreadySubmitted
		}
		var questions []models.PostTestQuestion
		if err := tx.Where("post_test_id = ?", id).Order("sort_order, id").Find(&questions).Error; err != nil {
			return err
		}
		scorable := make([]ScorableQuestion, 0, len(questions))
		for _, q := range questions {
			scorable = append(scorable, ScorableQuestion{ID: q.ID, Type: q.QuestionType, CorrectAnswer: q.CorrectAnswer, Points: q.Points})
		}
		outcome := ScoreAnswers(scorable, sub.Answers)

		result = models.PostTestResult{
			PostTestID:       pt.ID,
			StudentID:        student.ID,
			Answers:          models.JSONArray(outcome.Records),
			Score:            outcome.Score,
			TotalPoints:      outcome.Total,
			Percentage:       outcome.Percentage,
			TimeTakenSeconds: sub.TimeTakenSeconds,
		}
		if err := tx.Create(&result).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadySubmitted
			}
			return err
		}
		now := time.Now()
		if err := tx.Model(&pt).Updates(map[string]interface{}{
			"status":       models.PostTestCompleted,
			"completed_at": &now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.PostTestAssignment{}).
			Where("post_test_id = ? AND status <> ?", pt.ID, models.AssignmentCompleted).
			Updates(map[string]interface{}{"status": models.AssignmentCompleted, "completed_at": &now}).Error
	})
	if err != nil {
		return nil, err
	}

	var tutor models.Tutor
	if err := s.db.First(&tutor, pt.TutorID).Error; err == nil {
		notify([]uint{tutor.UserID}, "Post-test submitted",
			fmt.Sprintf("%s scored %.2f%% on \"%s\".", student.FullName(), result.Percentage, pt.Title),
			notifications.TypeInfo, map[string]interface{}{"post_test_id": pt.ID})
	}
	return &result, nil
}

func (s *PostTestService) Result(id uint, user *models.User) (*models.PostTestResult, error) {
	if _, err := s.Get(id, user); err != nil {
		return nil, err
	}
	var r models.PostTestResult
	if err := s.db.Where("post_test_id = ?", id).First(&r).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// MarkOverdue flags open assignments whose due date has passed.
func (s *PostTestService) MarkOverdue(now time.Time) (int, error) {
	var due []models.PostTestAssignment
	if err := s.db.Preload("PostTest").
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", models.AssignmentAssigned, now).
		Find(&due).Error; err != nil {
		return 0, err
	}
	marked := 0
	for _, a := range due {
		res := s.db.Model(&models.PostTestAssignment{}).
			Where("id = ? AND status = ?", a.ID, models.AssignmentAssigned).
			Update("status", models.AssignmentOverdue)
		if res.Error != nil {
			logrus.WithError(res.Error).WithField("assignment_id", a.ID).Warn("overdue update failed")
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		marked++
		notify([]uint{a.StudentID}, "Post-test overdue",
			fmt.Sprintf("\"%s\" was due %s.", a.PostTest.Title, a.DueDate.Format("2006-01-02")),
			notifications.TypeWarning, map[string]interface{}{"post_test_id": a.PostTestID}, "normal", "line")
	}
	return marked, nil
}
