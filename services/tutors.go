package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"tutorlink_go/database"
	"tutorlink_go/models"
	"tutorlink_go/utils"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	tutorCacheKey = "cache:tutors:active"
	TutorCacheTTL = 2 * time.Minute
)

type TutorService struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewTutorService() *TutorService {
	return &TutorService{db: database.GetDB(), redis: database.GetRedisClient()}
}

// TutorFilter narrows the tutor directory. Zero values match everything.
type TutorFilter struct {
	Subject   string
	Program   string
	YearLevel int
	Specialty string
	MinRating float64
}

func (f TutorFilter) empty() bool {
	return f == TutorFilter{}
}

// MatchTutors filters tutors and sorts them by ratings desc, then name.
// A tutor qualifies for a year level when their own year level is at least
// that value. Tutors whose account is inactive or suspended never match.
func MatchTutors(tutors []models.Tutor, f TutorFilter) []models.Tutor {
	out := make([]models.Tutor, 0, len(tutors))
	for _, t := range tutors {
		if !t.Active || !accountActive(t) {
			continue
		}
		if f.Subject != "" && !strings.EqualFold(t.Subject, f.Subject) {
			continue
		}
		if f.Program != "" && !strings.EqualFold(t.Program, f.Program) {
			continue
		}
		if f.YearLevel > 0 && t.YearLevel < f.YearLevel {
			continue
		}
		if f.MinRating > 0 && t.Ratings < f.MinRating {
			continue
		}
		if f.Specialty != "" && !hasSpecialty(t.Specialties, f.Specialty) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ratings != out[j].Ratings {
			return out[i].Ratings > out[j].Ratings
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// accountActive is false only when the owning user was loaded and is not active.
func accountActive(t models.Tutor) bool {
	return t.User.Status == "" || t.User.Status == models.UserActive
}

// activeAccountIDs is a subquery over users allowed to be listed or booked.
func activeAccountIDs(db *gorm.DB) *gorm.DB {
	return db.Model(&models.User{}).Select("id").Where("status = ?", models.UserActive)
}

func hasSpecialty(raw []byte, want string) bool {
	list, err := utils.DecodeStringArray(raw)
	if err != nil {
		return false
	}
	want = strings.ToLower(strings.TrimSpace(want))
	for _, s := range list {
		if strings.Contains(strings.ToLower(s), want) {
			return true
		}
	}
	return false
}

// List returns active tutors matching f. The unfiltered listing is cached.
func (s *TutorService) List(ctx context.Context, f TutorFilter) ([]models.Tutor, error) {
	if f.empty() {
		if cached, ok := readTutorCache(ctx, s.redis); ok {
			return cached, nil
		}
	}

	q := s.db.Preload("User").Where("active = ? AND user_id IN (?)", true, activeAccountIDs(s.db))
	if f.Subject != "" {
		q = q.Where("subject = ?", f.Subject)
	}
	if f.Program != "" {
		q = q.Where("program = ?", f.Program)
	}
	var tutors []models.Tutor
	if err := q.Find(&tutors).Error; err != nil {
		return nil, err
	}
	tutors = MatchTutors(tutors, f)

	if f.empty() {
		writeTutorCache(ctx, s.redis, tutors)
	}
	return tutors, nil
}

func readTutorCache(ctx context.Context, rc *redis.Client) ([]models.Tutor, bool) {
	if rc == nil {
		return nil, false
	}
	raw, err := rc.Get(ctx, tutorCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var tutors []models.Tutor
	if err := json.Unmarshal(raw, &tutors); err != nil {
		return nil, false
	}
	return tutors, true
}

func writeTutorCache(ctx context.Context, rc *redis.Client, tutors []models.Tutor) {
	if rc == nil {
		return
	}
	b, err := json.Marshal(tutors)
	if err != nil {
		return
	}
	if err := rc.Set(ctx, tutorCacheKey, b, TutorCacheTTL).Err(); err != nil {
		logrus.WithError(err).Debug("tutor cache write failed")
	}
}

// InvalidateTutorCache drops the cached listing after any tutor write.
func InvalidateTutorCache(ctx context.Context) {
	if rc := database.GetRedisClient(); rc != nil {
		rc.Del(ctx, tutorCacheKey)
	}
}

func (s *TutorService) Get(id uint) (*models.Tutor, error) {
	var tutor models.Tutor
	if err := s.db.Preload("User").First(&tutor, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &tutor, nil
}

type TutorUpdateRequest struct {
	Specialties []string `json:"specialties" validate:"omitempty,max=20,dive,max=100"`
	Active      *bool    `json:"active"`
	YearLevel   *int     `json:"year_level" validate:"omitempty,year_level"`
}

// Update lets admins or the owning tutor edit specialties and visibility.
func (s *TutorService) Update(ctx context.Context, id uint, actor *models.User, req TutorUpdateRequest) (*models.Tutor, error) {
	tutor, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && tutor.UserID != actor.ID {
		return nil, ErrForbidden
	}
	updates := map[string]interface{}{}
	if req.Specialties != nil {
		updates["specialties"] = models.JSONArray(cleanList(req.Specialties))
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if req.YearLevel != nil {
		updates["year_level"] = *req.YearLevel
	}
	if len(updates) > 0 {
		if err := s.db.Model(tutor).Updates(updates).Error; err != nil {
			return nil, err
		}
		InvalidateTutorCache(ctx)
	}
	return s.Get(id)
}

// Recommended lists tutors for the subjects the student's latest
// pre-assessment flagged, same-program tutors first.
func (s *TutorService) Recommended(ctx context.Context, student *models.User) ([]models.Tutor, []string, error) {
	var result models.PreAssessmentResult
	err := s.db.Where("user_id = ?", student.ID).Order("created_at DESC").First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []models.Tutor{}, []string{}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	subjects, _ := utils.DecodeStringArray(result.RecommendedSubjects)
	if len(subjects) == 0 {
		return []models.Tutor{}, subjects, nil
	}

	all, err := s.List(ctx, TutorFilter{})
	if err != nil {
		return nil, nil, err
	}
	return RankRecommended(all, subjects, student), subjects, nil
}

// RankRecommended keeps tutors of the given subjects that are not the student,
// ordered by subject priority, then same program, then ratings.
func RankRecommended(tutors []models.Tutor, subjects []string, student *models.User) []models.Tutor {
	priority := make(map[string]int, len(subjects))
	for i, s := range subjects {
		priority[strings.ToLower(s)] = i
	}
	out := make([]models.Tutor, 0)
	for _, t := range tutors {
		if _, ok := priority[strings.ToLower(t.Subject)]; !ok || t.UserID == student.ID || !t.Active || !accountActive(t) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := priority[strings.ToLower(out[i].Subject)], priority[strings.ToLower(out[j].Subject)]
		if pi != pj {
			return pi < pj
		}
		si, sj := out[i].Program == student.Program, out[j].Program == student.Program
		if si != sj {
			return si
		}
		return out[i].Ratings > out[j].Ratings
	})
	return out
}
