package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tutorlink_go/database"
	"tutorlink_go/metrics"
	"tutorlink_go/models"
	"tutorlink_go/services/email"
	"tutorlink_go/services/notifications"
	"tutorlink_go/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingService struct {
	db *gorm.DB
}

func NewBookingService() *BookingService {
	return &BookingService{db: database.GetDB()}
}

type BookingRequest struct {
	TutorID       uint   `json:"tutor_id" validate:"required"`
	Subject       string `json:"subject" validate:"required,max=255"`
	StartDate     string `json:"start_date" validate:"required"`
	EndDate       string `json:"end_date" validate:"required"`
	PreferredTime string `json:"preferred_time" validate:"required,preferred_time"`
	Notes         string `json:"notes" validate:"max=2000"`
}

// Create books a tutor for the student. The tutor row is locked while the
// overlap check runs so two requests cannot take the same window.
func (s *BookingService) Create(student *models.User, req BookingRequest) (*models.Booking, error) {
	start, err := utils.ParseDate(req.StartDate)
	if err != nil {
		return nil, InputError("start_date must be YYYY-MM-DD")
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		return nil, InputError("end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, InputError("end_date must not be before start_date")
	}
	window, err := utils.ParseTimeWindow(req.PreferredTime)
	if err != nil {
		return nil, InputError("%s", err.Error())
	}

	var booking models.Booking
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var tutor models.Tutor
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND active = ? AND user_id IN (?)", req.TutorID, true, activeAccountIDs(tx)).
			First(&tutor).Error; err != nil {
			return notFound(err)
		}
		if tutor.UserID == student.ID {
			return InputError("you cannot book yourself")
		}

		var existing []models.Booking
		if err := tx.Where("tutor_id = ? AND status IN ? AND start_date <= ? AND end_date >= ?",
			tutor.ID, BlockingBookingStatuses, end.Format("2006-01-02"), start.Format("2006-01-02")).
			Find(&existing).Error; err != nil {
			return err
		}
		if c := FindConflict(existing, start, end, window); c != nil {
			return fmt.Errorf("%w (booking %d, %s)", ErrBookingOverlap, c.ID, c.PreferredTime)
		}

		booking = models.Booking{
			TutorID:       tutor.ID,
			StudentID:     student.ID,
			Subject:       utils.SanitizeString(req.Subject),
			StartDate:     start,
			EndDate:       end,
			PreferredTime: window.String(),
			Status:        models.BookingPending,
			Notes:         strings.TrimSpace(req.Notes),
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		booking.Tutor = tutor
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify([]uint{booking.Tutor.UserID}, "New booking request",
		fmt.Sprintf("%s requested a %s session starting %s (%s).",
			student.FullName(), booking.Subject, req.StartDate, booking.PreferredTime),
		notifications.TypeInfo, map[string]interface{}{"booking_id": booking.ID}, "normal", "popup")
	return &booking, nil
}

type BookingFilter struct {
	Status string
	Role   string // student, tutor or empty for both
	Page   int
	Limit  int
}

// List returns bookings the user takes part in; admins see all.
func (s *BookingService) List(user *models.User, f BookingFilter) ([]models.Booking, int64, error) {
	_, limit, offset := utils.Pagination(f.Page, f.Limit)
	q := s.db.Model(&models.Booking{})

	if user.Role != models.RoleAdmin {
		tutorIDs := s.db.Model(&models.Tutor{}).Select("id").Where("user_id = ?", user.ID)
		switch f.Role {
		case "student":
			q = q.Where("student_id = ?", user.ID)
		case "tutor":
			q = q.Where("tutor_id IN (?)", tutorIDs)
		default:
			q = q.Where("student_id = ? OR tutor_id IN (?)", user.ID, tutorIDs)
		}
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var bookings []models.Booking
	err := q.Preload("Tutor").Preload("Student").
		Order("start_date DESC, id DESC").Offset(offset).Limit(limit).Find(&bookings).Error
	return bookings, total, err
}

// Get loads a booking visible to user.
func (s *BookingService) Get(id uint, user *models.User) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.Preload("Tutor").Preload("Student").First(&b, id).Error; err != nil {
		return nil, notFound(err)
	}
	if user.Role != models.RoleAdmin && b.StudentID != user.ID && b.Tutor.UserID != user.ID {
		return nil, ErrForbidden
	}
	return &b, nil
}

// actorFor works out in which capacity user acts on b.
func actorFor(user *models.User, b *models.Booking) (string, error) {
	switch {
	case user.Role == models.RoleAdmin:
		return ActorAdmin, nil
	case b.Tutor.UserID == user.ID:
		return ActorTutor, nil
	case b.StudentID == user.ID:
		return ActorStudent, nil
	}
	return "", ErrForbidden
}

// UpdateStatus applies one transition from the booking table.
func (s *BookingService) UpdateStatus(id uint, user *models.User, status, reason string) (*models.Booking, error) {
	var b models.Booking
	var actor string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.First(&b.Tutor, b.TutorID).Error; err != nil {
			return err
		}
		var err error
		if actor, err = actorFor(user, &b); err != nil {
			return err
		}
		return applyTransition(tx, &b, status, actor, reason)
	})
	if err != nil {
		return nil, err
	}

	s.announceStatus(&b, user.ID, reason)
	return &b, nil
}

func applyTransition(tx *gorm.DB, b *models.Booking, status, actor, reason string) error {
	if err := CheckBookingTransition(b.Status, status, actor); err != nil {
		return err
	}
	updates := map[string]interface{}{"status": status}
	if status == models.BookingDeclined || status == models.BookingCancelled {
		updates["decline_reason"] = strings.TrimSpace(reason)
		b.DeclineReason = strings.TrimSpace(reason)
	}
	res := tx.Model(&models.Booking{}).Where("id = ? AND status = ?", b.ID, b.Status).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	b.Status = status
	metrics.BookingTransitions.WithLabelValues(status, actor).Inc()
	return nil
}

// announceStatus tells the other party (or both, for scheduler and admin
// moves) about a status change.
func (s *BookingService) announceStatus(b *models.Booking, actorUserID uint, reason string) {
	var student, tutorUser models.User
	if err := s.db.First(&student, b.StudentID).Error; err != nil {
		return
	}
	if err := s.db.First(&tutorUser, b.Tutor.UserID).Error; err != nil {
		return
	}

	type party struct {
		user        models.User
		counterpart string
	}
	var recipients []party
	if actorUserID != student.ID {
		recipients = append(recipients, party{student, tutorUser.FullName()})
	}
	if actorUserID != tutorUser.ID {
		recipients = append(recipients, party{tutorUser, student.FullName()})
	}

	typ := notifications.TypeInfo
	switch b.Status {
	case models.BookingAccepted, models.BookingCompleted:
		typ = notifications.TypeSuccess
	case models.BookingDeclined, models.BookingCancelled:
		typ = notifications.TypeWarning
	}
	for _, r := range recipients {
		msg := fmt.Sprintf("Your %s booking with %s is now %s.", b.Subject, r.counterpart, b.Status)
		notify([]uint{r.user.ID}, "Booking "+b.Status, msg, typ,
			map[string]interface{}{"booking_id": b.ID, "status": b.Status}, "normal", "popup", "line")
		mailer().SendAsync(email.Message{
			To:       email.To(r.user.FullName(), r.user.Email),
			Subject:  "Booking " + b.Status,
			Template: email.TemplateBookingStatus,
			Data: email.BookingStatusData{
				Name:          r.user.FirstName,
				Counterpart:   r.counterpart,
				Subject:       b.Subject,
				Status:        b.Status,
				StartDate:     b.StartDate.Format("2006-01-02"),
				EndDate:       b.EndDate.Format("2006-01-02"),
				PreferredTime: b.PreferredTime,
				Reason:        reason,
			},
		})
	}
}

type RatingRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

// Rate stores the student's rating and recomputes the tutor average in the
// same transaction.
func (s *BookingService) Rate(id uint, student *models.User, req RatingRequest) (*models.Booking, *models.Tutor, error) {
	var b models.Booking
	var tutor models.Tutor
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, id).Error; err != nil {
			return notFound(err)
		}
		if b.StudentID != student.ID {
			return ErrForbidden
		}
		if b.Status != models.BookingCompleted {
			return InputError("only completed bookings can be rated")
		}
		if b.Rating != nil {
			return ErrAlreadySubmitted
		}
		now := time.Now()
		rating := req.Rating
		if err := tx.Model(&b).Updates(map[string]interface{}{
			"rating":   rating,
			"feedback": strings.TrimSpace(req.Feedback),
			"rated_at": &now,
		}).Error; err != nil {
			return err
		}
		b.Rating, b.Feedback, b.RatedAt = &rating, strings.TrimSpace(req.Feedback), &now

		var agg struct {
			Avg   float64
			Count int
		}
		if err := tx.Model(&models.Booking{}).
			Select("COALESCE(AVG(rating), 0) AS avg, COUNT(rating) AS count").
			Where("tutor_id = ? AND rating IS NOT NULL", b.TutorID).
			Scan(&agg).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&tutor, b.TutorID).Error; err != nil {
			return err
		}
		tutor.Ratings, tutor.RatingCount = utils.Round2(agg.Avg), agg.Count
		return tx.Model(&tutor).Updates(map[string]interface{}{
			"ratings":      tutor.Ratings,
			"rating_count": tutor.RatingCount,
		}).Error
	})
	if err != nil {
		return nil, nil, err
	}
	InvalidateTutorCache(context.Background())
	notify([]uint{tutor.UserID}, "New rating",
		fmt.Sprintf("%s rated your %s session %d/5.", student.FullName(), b.Subject, req.Rating),
		notifications.TypeInfo, map[string]interface{}{"booking_id": b.ID})
	return &b, &tutor, nil
}

// Availability returns the hourly grid for a tutor.
func (s *BookingService) Availability(tutorID uint, from, to time.Time) ([]DayAvailability, error) {
	var tutor models.Tutor
	if err := s.db.First(&tutor, tutorID).Error; err != nil {
		return nil, notFound(err)
	}
	var bookings []models.Booking
	if err := s.db.Where("tutor_id = ? AND status IN ? AND start_date <= ? AND end_date >= ?",
		tutorID, BlockingBookingStatuses, to.Format("2006-01-02"), from.Format("2006-01-02")).
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return BuildAvailability(from, to, bookings)
}

// PromoteByDate moves accepted bookings that have started to active and
// active bookings that have ended to completed.
func (s *BookingService) PromoteByDate(now time.Time) (activated, completed int, err error) {
	today := utils.DateOnly(now).Format("2006-01-02")

	var toActivate []models.Booking
	if err = s.db.Where("status = ? AND start_date <= ?", models.BookingAccepted, today).Find(&toActivate).Error; err != nil {
		return 0, 0, err
	}
	for i := range toActivate {
		if s.promote(&toActivate[i], models.BookingActive) {
			activated++
		}
	}

	var toComplete []models.Booking
	if err = s.db.Where("status = ? AND end_date < ?", models.BookingActive, today).Find(&toComplete).Error; err != nil {
		return activated, 0, err
	}
	for i := range toComplete {
		if s.promote(&toComplete[i], models.BookingCompleted) {
			completed++
		}
	}
	return activated, completed, nil
}

func (s *BookingService) promote(b *models.Booking, status string) bool {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return applyTransition(tx, b, status, ActorScheduler, "")
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"booking_id": b.ID, "to": status}).Warn("booking promotion skipped")
		return false
	}
	if err := s.db.First(&b.Tutor, b.TutorID).Error; err == nil {
		s.announceStatus(b, 0, "")
	}
	return true
}
