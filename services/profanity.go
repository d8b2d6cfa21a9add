package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutorlink_go/database"
	"tutorlink_go/metrics"
	"tutorlink_go/models"
	"tutorlink_go/services/notifications"
	"tutorlink_go/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AutoSuspendThreshold is the number of pending violations that suspends an account.
const AutoSuspendThreshold = 5

var defaultFilter = NewProfanityFilter(DefaultBannedWords)

type ProfanityService struct {
	db     *gorm.DB
	filter *ProfanityFilter
}

func NewProfanityService() *ProfanityService {
	return &ProfanityService{db: database.GetDB(), filter: defaultFilter}
}

// Screen checks texts written by userID. Offending content is recorded as a
// violation and a *ProfanityError is returned.
func (s *ProfanityService) Screen(userID uint, source string, texts ...string) error {
	joined := strings.Join(texts, "\n")
	words := s.filter.Detect(joined)
	if len(words) == 0 {
		return nil
	}
	metrics.ProfanityViolations.WithLabelValues(source).Inc()

	v := models.ProfanityViolation{
		UserID:        userID,
		Source:        source,
		Content:       joined,
		DetectedWords: models.JSONArray(words),
		Status:        models.ViolationPending,
	}
	if err := s.db.Create(&v).Error; err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("failed to record profanity violation")
	} else if err := s.enforce(userID); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("auto-suspend check failed")
	}
	return &ProfanityError{Words: words}
}

// enforce suspends a user that reached the pending violation threshold.
func (s *ProfanityService) enforce(userID uint) error {
	var pending int64
	if err := s.db.Model(&models.ProfanityViolation{}).
		Where("user_id = ? AND status = ?", userID, models.ViolationPending).
		Count(&pending).Error; err != nil {
		return err
	}
	if pending < AutoSuspendThreshold {
		return nil
	}
	res := s.db.Model(&models.User{}).
		Where("id = ? AND status = ? AND role <> ?", userID, models.UserActive, models.RoleAdmin).
		Update("status", models.UserSuspended)
	if res.Error != nil || res.RowsAffected == 0 {
		return res.Error
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "pending": pending}).Warn("user auto-suspended for profanity")
	InvalidateTutorCache(context.Background())
	notify([]uint{userID}, "Account suspended",
		fmt.Sprintf("Your account was suspended after %d content violations. Contact an administrator.", pending),
		notifications.TypeError, nil)
	return nil
}

type ViolationFilter struct {
	Status string
	UserID uint
	Page   int
	Limit  int
}

func (s *ProfanityService) List(f ViolationFilter) ([]models.ProfanityViolation, int64, error) {
	_, limit, offset := utils.Pagination(f.Page, f.Limit)
	q := s.db.Model(&models.ProfanityViolation{})
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
	var out []models.ProfanityViolation
	err := q.Preload("User").Order("created_at DESC").Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

// Review moves a pending violation to reviewed or dismissed.
func (s *ProfanityService) Review(id, reviewerID uint, status string) (*models.ProfanityViolation, error) {
	if status != models.ViolationReviewed && status != models.ViolationDismissed {
		return nil, InputError("status must be reviewed or dismissed")
	}
	var v models.ProfanityViolation
	if err := s.db.First(&v, id).Error; err != nil {
		return nil, notFound(err)
	}
	if v.Status != models.ViolationPending {
		return nil, ErrInvalidTransition
	}
	now := time.Now()
	if err := s.db.Model(&v).Updates(map[string]interface{}{
		"status":      status,
		"reviewed_by": reviewerID,
		"reviewed_at": &now,
	}).Error; err != nil {
		return nil, err
	}
	v.Status, v.ReviewedBy, v.ReviewedAt = status, &reviewerID, &now
	return &v, nil
}

type ViolationStat struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Status    string `json:"user_status"`
	Total     int64  `json:"total"`
	Pending   int64  `json:"pending"`
	Reviewed  int64  `json:"reviewed"`
	Dismissed int64  `json:"dismissed"`
}

// Stats returns per-user violation counts, most pending first.
func (s *ProfanityService) Stats() ([]ViolationStat, error) {
	var rows []ViolationStat
	err := s.db.Table("profanity_violations AS v").
		Select(`v.user_id, u.email, CONCAT(u.first_name, ' ', u.last_name) AS name, u.status,
			COUNT(*) AS total,
			SUM(CASE WHEN v.status = 'pending' THEN 1 ELSE 0 END) AS pending,
			SUM(CASE WHEN v.status = 'reviewed' THEN 1 ELSE 0 END) AS reviewed,
			SUM(CASE WHEN v.status = 'dismissed' THEN 1 ELSE 0 END) AS dismissed`).
		Joins("JOIN users u ON u.id = v.user_id").
		Where("v.deleted_at IS NULL").
		Group("v.user_id, u.email, u.first_name, u.last_name, u.status").
		Order("pending DESC, total DESC").
		Scan(&rows).Error
	return rows, err
}

// IsProfanity reports whether err came from Screen.
func IsProfanity(err error) bool { return errors.Is(err, ErrProfanity) }
