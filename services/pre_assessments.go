package services

import (
	"errors"
	"strings"

	"tutorlink_go/database"
	"tutorlink_go/models"
	"tutorlink_go/utils"

	"gorm.io/gorm"
)

type PreAssessmentService struct {
	db *gorm.DB
}

func NewPreAssessmentService() *PreAssessmentService {
	return &PreAssessmentService{db: database.GetDB()}
}

type PreAssessmentRequest struct {
	Title       string          `json:"title" validate:"required,max=255"`
	Description string          `json:"description"`
	Program     string          `json:"program" validate:"max=100"`
	YearLevel   int             `json:"year_level" validate:"min=0,max=5"`
	Active      *bool           `json:"active"`
	Questions   []QuestionInput `json:"questions" validate:"dive"`
}

func toPreQuestion(assessmentID uint, in QuestionInput, order int) models.PreAssessmentQuestion {
	points := in.Points
	if points <= 0 {
		points = 1
	}
	if in.Order > 0 {
		order = in.Order
	}
	return models.PreAssessmentQuestion{
		PreAssessmentID: assessmentID,
		Question:        strings.TrimSpace(in.Question),
		Options:         models.JSONArray(cleanOptions(in.Options)),
		CorrectAnswer:   strings.TrimSpace(in.CorrectAnswer),
		Subject:         utils.SanitizeString(in.Subject),
		Points:          points,
		Order:           order,
	}
}

func cleanOptions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (s *PreAssessmentService) Create(creator *models.User, req PreAssessmentRequest) (*models.PreAssessment, error) {
	pa := models.PreAssessment{
		Title:       utils.SanitizeString(req.Title),
		Description: req.Description,
		Program:     utils.SanitizeString(req.Program),
		YearLevel:   req.YearLevel,
		CreatedBy:   creator.ID,
		Active:      req.Active == nil || *req.Active,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&pa).Error; err != nil {
			return err
		}
		if len(req.Questions) == 0 {
			return nil
		}
		qs := make([]models.PreAssessmentQuestion, 0, len(req.Questions))
		for i, q := range req.Questions {
			qs = append(qs, toPreQuestion(pa.ID, q, i+1))
		}
		if err := tx.Create(&qs).Error; err != nil {
			return err
		}
		pa.Questions = qs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pa, nil
}

func (s *PreAssessmentService) Update(id uint, req PreAssessmentRequest) (*models.PreAssessment, error) {
	var pa models.PreAssessment
	if err := s.db.First(&pa, id).Error; err != nil {
		return nil, notFound(err)
	}
	updates := map[string]interface{}{
		"title":       utils.SanitizeString(req.Title),
		"description": req.Description,
		"program":     utils.SanitizeString(req.Program),
		"year_level":  req.YearLevel,
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if err := s.db.Model(&pa).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(id, false)
}

func (s *PreAssessmentService) Delete(id uint) error {
	res := s.db.Delete(&models.PreAssessment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns assessments for a program and year; year 0 and an empty
// program mean "any".
func (s *PreAssessmentService) List(program string, yearLevel int, activeOnly bool) ([]models.PreAssessment, error) {
	q := s.db.Model(&models.PreAssessment{})
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if program != "" {
		q = q.Where("(program = ? OR program = '')", program)
	}
	if yearLevel > 0 {
		q = q.Where("(year_level = 0 OR year_level = ?)", yearLevel)
	}
	var out []models.PreAssessment
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

// Get loads an assessment with ordered questions. hideAnswers blanks the
// correct answers for students.
func (s *PreAssessmentService) Get(id uint, hideAnswers bool) (*models.PreAssessment, error) {
	var pa models.PreAssessment
	err := s.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order, id")
	}).First(&pa, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	if hideAnswers {
		for i := range pa.Questions {
			pa.Questions[i].CorrectAnswer = ""
		}
	}
	return &pa, nil
}

func (s *PreAssessmentService) nextOrder(tx *gorm.DB, id uint) int {
	var max int
	tx.Model(&models.PreAssessmentQuestion{}).Where("pre_assessment_id = ?", id).
		Select("COALESCE(MAX(sort_order), 0)").Scan(&max)
	return max + 1
}

func (s *PreAssessmentService) AddQuestion(id uint, in QuestionInput) (*models.PreAssessmentQuestion, error) {
	var pa models.PreAssessment
	if err := s.db.First(&pa, id).Error; err != nil {
		return nil, notFound(err)
	}
	q := toPreQuestion(id, in, s.nextOrder(s.db, id))
	if err := s.db.Create(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *PreAssessmentService) UpdateQuestion(qid uint, in QuestionInput) (*models.PreAssessmentQuestion, error) {
	var q models.PreAssessmentQuestion
	if err := s.db.First(&q, qid).Error; err != nil {
		return nil, notFound(err)
	}
	next := toPreQuestion(q.PreAssessmentID, in, q.Order)
	if err := s.db.Model(&q).Updates(map[string]interface{}{
		"question":       next.Question,
		"options":        next.Options,
		"correct_answer": next.CorrectAnswer,
		"subject":        next.Subject,
		"points":         next.Points,
		"sort_order":     next.Order,
	}).Error; err != nil {
		return nil, err
	}
	if err := s.db.First(&q, qid).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *PreAssessmentService) DeleteQuestion(qid uint) error {
	res := s.db.Delete(&models.PreAssessmentQuestion{}, qid)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ImportQuestions appends parsed spreadsheet rows to an assessment.
func (s *PreAssessmentService) ImportQuestions(id uint, rows [][]string) (int, []RowError, error) {
	var pa models.PreAssessment
	if err := s.db.First(&pa, id).Error; err != nil {
		return 0, nil, notFound(err)
	}
	inputs, rowErrs := ParseQuestionRows(rows)
	if len(inputs) == 0 {
		return 0, rowErrs, nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		start := s.nextOrder(tx, id)
		qs := make([]models.PreAssessmentQuestion, 0, len(inputs))
		for i, in := range inputs {
			in.Order = 0
			qs = append(qs, toPreQuestion(id, in, start+i))
		}
		return tx.Create(&qs).Error
	})
	if err != nil {
		return 0, rowErrs, err
	}
	return len(inputs), rowErrs, nil
}

// Submit scores a student's answers once per assessment.
func (s *PreAssessmentService) Submit(id uint, student *models.User, answers []SubmittedAnswer) (*models.PreAssessmentResult, []SubjectScore, error) {
	var result models.PreAssessmentResult
	var bySubject []SubjectScore

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var pa models.PreAssessment
		if err := tx.Preload("Questions").Where("active = ?", true).First(&pa, id).Error; err != nil {
			return notFound(err)
		}
		var existing int64
		if err := tx.Model(&models.PreAssessmentResult{}).
			Where("user_id = ? AND pre_assessment_id = ?", student.ID, id).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadySubmitted
		}

		scorable := make([]ScorableQuestion, 0, len(pa.Questions))
		for _, q := range pa.Questions {
			scorable = append(scorable, ScorableQuestion{
				ID: q.ID, CorrectAnswer: q.CorrectAnswer, Subject: q.Subject, Points: q.Points,
			})
		}
		outcome := ScoreAnswers(scorable, answers)
		bySubject = outcome.BySubject

		result = models.PreAssessmentResult{
			UserID:              student.ID,
			PreAssessmentID:     id,
			Answers:             models.JSONArray(outcome.Records),
			Score:               outcome.Score,
			TotalPoints:         outcome.Total,
			Percentage:          outcome.Percentage,
			RecommendedSubjects: models.JSONArray(RecommendSubjects(outcome.BySubject, passingPercentage())),
		}
		if err := tx.Create(&result).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadySubmitted
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &result, bySubject, nil
}

func (s *PreAssessmentService) Results(id uint) ([]models.PreAssessmentResult, error) {
	var out []models.PreAssessmentResult
	err := s.db.Preload("User").Where("pre_assessment_id = ?", id).Order("percentage DESC").Find(&out).Error
	return out, err
}

func (s *PreAssessmentService) MyResults(userID uint) ([]models.PreAssessmentResult, error) {
	var out []models.PreAssessmentResult
	err := s.db.Preload("PreAssessment").Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *PreAssessmentService) MyResult(id, userID uint) (*models.PreAssessmentResult, error) {
	var r models.PreAssessmentResult
	if err := s.db.Where("pre_assessment_id = ? AND user_id = ?", id, userID).First(&r).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

var resultExportHeader = []string{
	"Student", "Email", "Program", "Year Level", "Score", "Total", "Percentage", "Recommended Subjects", "Submitted",
}

// ExportResults renders an assessment's results as XLSX.
func (s *PreAssessmentService) ExportResults(id uint) ([]byte, error) {
	results, err := s.Results(id)
	if err != nil {
		return nil, err
	}
	rows := make([][]interface{}, 0, len(results))
	for _, r := range results {
		subjects, _ := utils.DecodeStringArray(r.RecommendedSubjects)
		rows = append(rows, []interface{}{
			r.User.FullName(), r.User.Email, r.User.Program, r.User.YearLevel,
			r.Score, r.TotalPoints, r.Percentage, strings.Join(subjects, ", "),
			r.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return WriteSheet("Results", resultExportHeader, rows)
}
