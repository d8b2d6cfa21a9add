package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"tutorlink_go/config"
	"tutorlink_go/database"
	"tutorlink_go/models"
	"tutorlink_go/services/email"
	"tutorlink_go/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService() *UserService {
	return &UserService{db: database.GetDB()}
}

type SignupRequest struct {
	FirstName  string `json:"first_name" validate:"required,max=100"`
	MiddleName string `json:"middle_name" validate:"max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	Program    string `json:"program" validate:"required,max=100"`
	YearLevel  int    `json:"year_level" validate:"year_level"`
}

type CreateUserRequest struct {
	FirstName  string `json:"first_name" validate:"required,max=100"`
	MiddleName string `json:"middle_name" validate:"max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Program    string `json:"program" validate:"max=100"`
	Role       string `json:"role" validate:"required,role"`
	YearLevel  int    `json:"year_level" validate:"min=0,max=5"`
}

type UpdateUserRequest struct {
	FirstName  *string `json:"first_name" validate:"omitempty,max=100"`
	MiddleName *string `json:"middle_name" validate:"omitempty,max=100"`
	LastName   *string `json:"last_name" validate:"omitempty,max=100"`
	Program    *string `json:"program" validate:"omitempty,max=100"`
	YearLevel  *int    `json:"year_level" validate:"omitempty,min=0,max=5"`
	Role       *string `json:"role" validate:"omitempty,role"`
	Status     *string `json:"status" validate:"omitempty,user_status"`
}

func (s *UserService) emailTaken(addr string, exceptID uint) (bool, error) {
	var count int64
	q := s.db.Model(&models.User{}).Where("email = ?", addr)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// Signup registers a student account.
func (s *UserService) Signup(req SignupRequest) (*models.User, error) {
	addr := utils.NormalizeEmail(req.Email)
	taken, err := s.emailTaken(addr, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrConflict
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		FirstName:  utils.SanitizeString(req.FirstName),
		MiddleName: utils.SanitizeString(req.MiddleName),
		LastName:   utils.SanitizeString(req.LastName),
		Email:      addr,
		Password:   hash,
		Program:    utils.SanitizeString(req.Program),
		Role:       models.RoleStudent,
		Status:     models.UserActive,
		YearLevel:  req.YearLevel,
		FirstLogin: false,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate returns the active user matching the credentials.
func (s *UserService) Authenticate(emailAddr, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", utils.NormalizeEmail(emailAddr)).First(&user).Error; err != nil {
		return nil, ErrInvalidCredential
	}
	if utils.CheckPassword(password, user.Password) != nil {
		return nil, ErrInvalidCredential
	}
	if user.Status != models.UserActive {
		return nil, ErrInvalidCredential
	}
	return &user, nil
}

func (s *UserService) Get(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

type UserFilter struct {
	Role      string
	Program   string
	Status    string
	YearLevel int
	Search    string
	Page      int
	Limit     int
}

func (s *UserService) List(f UserFilter) ([]models.User, int64, error) {
	_, limit, offset := utils.Pagination(f.Page, f.Limit)
	q := s.db.Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Program != "" {
		q = q.Where("program = ?", f.Program)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.YearLevel > 0 {
		q = q.Where("year_level = ?", f.YearLevel)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + term + "%"
		q = q.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ?", like, like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := q.Order("last_name, first_name").Offset(offset).Limit(limit).Find(&users).Error
	return users, total, err
}

func tempPasswordLength() int {
	if config.AppConfig != nil && config.AppConfig.TempPasswordLength > 0 {
		return config.AppConfig.TempPasswordLength
	}
	return 12
}

// issueTemporaryPassword stores a fresh temporary password for user and
// emails it. The plain password is returned for the admin response.
func (s *UserService) issueTemporaryPassword(user *models.User) (string, error) {
	plain, err := utils.GenerateTemporaryPassword(tempPasswordLength())
	if err != nil {
		return "", err
	}
	hash, err := utils.HashPassword(plain)
	if err != nil {
		return "", err
	}
	if err := s.db.Model(user).Updates(map[string]interface{}{
		"password":    hash,
		"first_login": true,
	}).Error; err != nil {
		return "", err
	}
	user.FirstLogin = true

	mailer().SendAsync(email.Message{
		To:       email.To(user.FullName(), user.Email),
		Subject:  "Your temporary password",
		Template: email.TemplateTemporaryPassword,
		Data:     email.TemporaryPasswordData{Name: user.FirstName, Email: user.Email, Password: plain},
	})
	return plain, nil
}

// Create adds an account of any role with an emailed temporary password.
func (s *UserService) Create(req CreateUserRequest) (*models.User, string, error) {
	addr := utils.NormalizeEmail(req.Email)
	taken, err := s.emailTaken(addr, 0)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", ErrConflict
	}
	placeholder, err := utils.GenerateRandomString(32)
	if err != nil {
		return nil, "", err
	}
	hash, err := utils.HashPassword(placeholder)
	if err != nil {
		return nil, "", err
	}
	user := models.User{
		FirstName:  utils.SanitizeString(req.FirstName),
		MiddleName: utils.SanitizeString(req.MiddleName),
		LastName:   utils.SanitizeString(req.LastName),
		Email:      addr,
		Password:   hash,
		Program:    utils.SanitizeString(req.Program),
		Role:       req.Role,
		Status:     models.UserActive,
		YearLevel:  req.YearLevel,
		FirstLogin: true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, "", err
	}
	plain, err := s.issueTemporaryPassword(&user)
	if err != nil {
		return nil, "", err
	}
	return &user, plain, nil
}

func (s *UserService) Update(id uint, req UpdateUserRequest) (*models.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = utils.SanitizeString(*req.FirstName)
	}
	if req.MiddleName != nil {
		updates["middle_name"] = utils.SanitizeString(*req.MiddleName)
	}
	if req.LastName != nil {
		updates["last_name"] = utils.SanitizeString(*req.LastName)
	}
	if req.Program != nil {
		updates["program"] = utils.SanitizeString(*req.Program)
	}
	if req.YearLevel != nil {
		updates["year_level"] = *req.YearLevel
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	// Cached tutor listings embed the user and depend on its status.
	InvalidateTutorCache(context.Background())
	return s.Get(id)
}

func (s *UserService) SetStatus(id uint, status string) (*models.User, error) {
	if !utils.IsValidStatus(status) {
		return nil, InputError("invalid status %q", status)
	}
	return s.Update(id, UpdateUserRequest{Status: &status})
}

// Deactivate marks the account inactive; accounts are never hard-deleted.
func (s *UserService) Deactivate(id, actorID uint) error {
	if id == actorID {
		return InputError("cannot deactivate your own account")
	}
	_, err := s.SetStatus(id, models.UserInactive)
	return err
}

// ResetPassword issues a new temporary password for an account (admin).
func (s *UserService) ResetPassword(id uint) (*models.User, string, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, "", err
	}
	plain, err := s.issueTemporaryPassword(user)
	return user, plain, err
}

// ForgotPassword mails a temporary password when the address is known.
// Unknown addresses are silently ignored.
func (s *UserService) ForgotPassword(addr string) {
	var user models.User
	if err := s.db.Where("email = ? AND status = ?", utils.NormalizeEmail(addr), models.UserActive).First(&user).Error; err != nil {
		return
	}
	if _, err := s.issueTemporaryPassword(&user); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("forgot-password failed")
	}
}

// ChangePassword verifies the current password and clears first_login.
func (s *UserService) ChangePassword(user *models.User, current, next string) error {
	if utils.CheckPassword(current, user.Password) != nil {
		return InputError("current password is incorrect")
	}
	if len(next) < 8 {
		return InputError("new password must be at least 8 characters")
	}
	if current == next {
		return InputError("new password must differ from the current one")
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return err
	}
	return s.db.Model(user).Updates(map[string]interface{}{
		"password":    hash,
		"first_login": false,
	}).Error
}

type ProfileRequest struct {
	FirstName  *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	MiddleName *string `json:"middle_name" validate:"omitempty,max=100"`
	LastName   *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Program    *string `json:"program" validate:"omitempty,max=100"`
	YearLevel  *int    `json:"year_level" validate:"omitempty,year_level"`
}

func (s *UserService) UpdateProfile(user *models.User, req ProfileRequest) (*models.User, error) {
	return s.Update(user.ID, UpdateUserRequest{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		Program:    req.Program,
		YearLevel:  req.YearLevel,
	})
}

func (s *UserService) SetAvatar(userID uint, url string) error {
	return s.db.Model(&models.User{}).Where("id = ?", userID).Update("avatar", url).Error
}

// ResetTokenTTL bounds token-based password resets.
const ResetTokenTTL = time.Hour

// GenerateResetToken stores a one-hour reset token on the target account.
func (s *UserService) GenerateResetToken(targetID uint) (*models.User, string, time.Time, error) {
	user, err := s.Get(targetID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", time.Time{}, err
	}
	token := hex.EncodeToString(raw)
	expires := time.Now().Add(ResetTokenTTL)
	if err := s.db.Model(user).Updates(map[string]interface{}{
		"password_reset_token":   token,
		"password_reset_expires": expires,
	}).Error; err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expires, nil
}

// ResetWithToken sets a new password from a valid reset token.
func (s *UserService) ResetWithToken(token, next string) (*models.User, error) {
	if len(next) < 8 {
		return nil, InputError("new password must be at least 8 characters")
	}
	var user models.User
	if err := s.db.Where("password_reset_token = ? AND password_reset_expires > ?", token, time.Now()).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, InputError("invalid or expired reset token")
		}
		return nil, err
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return nil, err
	}
	err = s.db.Model(&user).Updates(map[string]interface{}{
		"password":               hash,
		"password_reset_token":   "",
		"password_reset_expires": nil,
		"first_login":            false,
	}).Error
	return &user, err
}
