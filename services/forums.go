package services

import (
	"fmt"
	"strings"

	"tutorlink_go/database"
	"tutorlink_go/models"
	"tutorlink_go/services/notifications"
	"tutorlink_go/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ForumService struct {
	db        *gorm.DB
	profanity *ProfanityService
}

func NewForumService() *ForumService {
	return &ForumService{db: database.GetDB(), profanity: NewProfanityService()}
}

type ForumRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
	Subject string `json:"subject" validate:"max=255"`
	Program string `json:"program" validate:"max=100"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

type ForumFilter struct {
	Subject string
	Program string
	Search  string
	Page    int
	Limit   int
}

func (s *ForumService) List(f ForumFilter) ([]models.Forum, int64, error) {
	_, limit, offset := utils.Pagination(f.Page, f.Limit)
	q := s.db.Model(&models.Forum{})
	if f.Subject != "" {
		q = q.Where("subject = ?", f.Subject)
	}
	if f.Program != "" {
		q = q.Where("program = ?", f.Program)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + term + "%"
		q = q.Where("title LIKE ? OR content LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Forum
	err := q.Preload("User").Order("created_at DESC").Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

func (s *ForumService) Get(id uint) (*models.Forum, error) {
	var f models.Forum
	err := s.db.Preload("User").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments.User").
		First(&f, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (s *ForumService) Create(author *models.User, req ForumRequest) (*models.Forum, error) {
	if err := s.profanity.Screen(author.ID, "forum", req.Title, req.Content); err != nil {
		return nil, err
	}
	f := models.Forum{
		UserID:  author.ID,
		Title:   utils.SanitizeString(req.Title),
		Content: strings.TrimSpace(req.Content),
		Subject: utils.SanitizeString(req.Subject),
		Program: firstNonEmpty(utils.SanitizeString(req.Program), author.Program),
	}
	if err := s.db.Create(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func canModerate(user *models.User, ownerID uint) bool {
	return user.ID == ownerID || user.Role == models.RoleAdmin
}

func (s *ForumService) Update(id uint, user *models.User, req ForumRequest) (*models.Forum, error) {
	f, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !canModerate(user, f.UserID) {
		return nil, ErrForbidden
	}
	if err := s.profanity.Screen(user.ID, "forum", req.Title, req.Content); err != nil {
		return nil, err
	}
	if err := s.db.Model(f).Updates(map[string]interface{}{
		"title":   utils.SanitizeString(req.Title),
		"content": strings.TrimSpace(req.Content),
		"subject": firstNonEmpty(utils.SanitizeString(req.Subject), f.Subject),
		"program": firstNonEmpty(utils.SanitizeString(req.Program), f.Program),
	}).Error; err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Delete removes a thread with its comments.
func (s *ForumService) Delete(id uint, user *models.User) error {
	var f models.Forum
	if err := s.db.First(&f, id).Error; err != nil {
		return notFound(err)
	}
	if !canModerate(user, f.UserID) {
		return ErrForbidden
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("forum_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&f).Error
	})
}

// AddComment inserts a comment and bumps comment_count in one transaction.
func (s *ForumService) AddComment(forumID uint, author *models.User, req CommentRequest) (*models.Comment, error) {
	if err := s.profanity.Screen(author.ID, "comment", req.Content); err != nil {
		return nil, err
	}
	var forum models.Forum
	c := models.Comment{ForumID: forumID, UserID: author.ID, Content: strings.TrimSpace(req.Content)}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&forum, forumID).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		return tx.Model(&forum).UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	if forum.UserID != author.ID {
		notify([]uint{forum.UserID}, "New comment",
			fmt.Sprintf("%s commented on \"%s\".", author.FullName(), forum.Title),
			notifications.TypeInfo, map[string]interface{}{"forum_id": forum.ID, "comment_id": c.ID})
	}
	c.User = *author
	return &c, nil
}

func (s *ForumService) DeleteComment(id uint, user *models.User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var c models.Comment
		if err := tx.First(&c, id).Error; err != nil {
			return notFound(err)
		}
		if !canModerate(user, c.UserID) {
			return ErrForbidden
		}
		if err := tx.Delete(&c).Error; err != nil {
			return err
		}
		return tx.Model(&models.Forum{}).
			Where("id = ? AND comment_count > 0", c.ForumID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	})
}
