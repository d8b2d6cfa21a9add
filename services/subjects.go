package services

import (
	"strings"

	"tutorlink_go/database"
	"tutorlink_go/models"
	"tutorlink_go/utils"

	"gorm.io/gorm"
)

type SubjectService struct {
	db *gorm.DB
}

func NewSubjectService() *SubjectService {
	return &SubjectService{db: database.GetDB()}
}

type SubjectRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Code        string `json:"code" validate:"required,max=50"`
	Program     string `json:"program" validate:"max=100"`
	YearLevel   int    `json:"year_level" validate:"min=0,max=5"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

// List returns active subjects for a program and year. Subjects with year
// level 0 apply to every year and subjects without a program to every program.
func (s *SubjectService) List(program string, yearLevel int, includeInactive bool) ([]models.Subject, error) {
	q := s.db.Model(&models.Subject{})
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	if program != "" {
		q = q.Where("(program = ? OR program = '')", program)
	}
	if yearLevel > 0 {
		q = q.Where("(year_level = 0 OR year_level = ?)", yearLevel)
	}
	var subjects []models.Subject
	err := q.Order("name").Find(&subjects).Error
	return subjects, err
}

func (s *SubjectService) Get(id uint) (*models.Subject, error) {
	var subject models.Subject
	if err := s.db.First(&subject, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &subject, nil
}

func (s *SubjectService) codeTaken(code string, exceptID uint) (bool, error) {
	var count int64
	q := s.db.Model(&models.Subject{}).Where("code = ?", code)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (s *SubjectService) Create(req SubjectRequest) (*models.Subject, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	taken, err := s.codeTaken(code, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}
	subject := models.Subject{
		Name:        utils.SanitizeString(req.Name),
		Code:        code,
		Program:     utils.SanitizeString(req.Program),
		YearLevel:   req.YearLevel,
		Description: req.Description,
		Active:      req.Active == nil || *req.Active,
	}
	if err := s.db.Create(&subject).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

func (s *SubjectService) Update(id uint, req SubjectRequest) (*models.Subject, error) {
	subject, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	taken, err := s.codeTaken(code, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}
	updates := map[string]interface{}{
		"name":        utils.SanitizeString(req.Name),
		"code":        code,
		"program":     utils.SanitizeString(req.Program),
		"year_level":  req.YearLevel,
		"description": req.Description,
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if err := s.db.Model(subject).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(id)
}

func (s *SubjectService) Delete(id uint) error {
	res := s.db.Delete(&models.Subject{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
