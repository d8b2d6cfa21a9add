package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"tutorlink_go/models"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// CheckPassword compares a password with its hash
func CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// GenerateRandomString generates a random hex string of specified length
func GenerateRandomString(length int) (string, error) {
	bytes := make([]byte, (length+1)/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes)[:length], nil
}

// IsValidRole checks if a role is valid
func IsValidRole(role string) bool {
	switch role {
	case models.RoleStudent, models.RoleTutor, models.RoleFaculty, models.RoleAdmin:
		return true
	}
	return false
}

// IsValidStatus checks if a user status is valid
func IsValidStatus(status string) bool {
	switch status {
	case models.UserActive, models.UserInactive, models.UserSuspended:
		return true
	}
	return false
}

// SanitizeString removes dangerous characters from string
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Percentage returns score/total*100 rounded to 2 dp, or 0 when total is 0.
func Percentage(score, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(score / total * 100)
}

// ParseUint parses a path or query id. Zero is rejected.
func ParseUint(s string) (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, strconv.ErrRange
	}
	return uint(v), nil
}

// Pagination normalises page/limit query values.
func Pagination(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}
