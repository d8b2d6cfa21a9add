package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"tutorlink_go/database"
	"tutorlink_go/models"

	"github.com/go-redis/redis/v8"
)

const (
	lineLinkPrefix = "line:link:"
	LineLinkTTL    = 10 * time.Minute
)

var ErrLinkUnavailable = errors.New("account linking needs redis")

// issueLinkCode stores a fresh 6-digit code for userID. Any earlier code for
// the same user stops working.
func issueLinkCode(ctx context.Context, rc *redis.Client, userID uint) (string, error) {
	if rc == nil {
		return "", ErrLinkUnavailable
	}
	userKey := fmt.Sprintf("%suser:%d", lineLinkPrefix, userID)
	if old, err := rc.Get(ctx, userKey).Result(); err == nil {
		rc.Del(ctx, lineLinkPrefix+old)
	}
	for attempt := 0; attempt < 5; attempt++ {
		n, err := rand.Int(rand.Reader, big.NewInt(1000000))
		if err != nil {
			return "", err
		}
		code := fmt.Sprintf("%06d", n.Int64())
		ok, err := rc.SetNX(ctx, lineLinkPrefix+code, userID, LineLinkTTL).Result()
		if err != nil {
			return "", err
		}
		if ok {
			rc.Set(ctx, userKey, code, LineLinkTTL)
			return code, nil
		}
	}
	return "", errors.New("could not allocate a link code")
}

// takeLinkCode consumes code and returns the user it was issued for.
func takeLinkCode(ctx context.Context, rc *redis.Client, code string) (uint, error) {
	if rc == nil {
		return 0, ErrLinkUnavailable
	}
	code = strings.TrimSpace(code)
	val, err := rc.GetDel(ctx, lineLinkPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, err
	}
	rc.Del(ctx, fmt.Sprintf("%suser:%d", lineLinkPrefix, id))
	return uint(id), nil
}

// IsLinkCode reports whether text looks like a link code.
func IsLinkCode(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) != 6 {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// LineLinkCode issues a link code for the current user.
func (s *UserService) LineLinkCode(ctx context.Context, userID uint) (string, error) {
	return issueLinkCode(ctx, database.GetRedisClient(), userID)
}

// LinkLineAccount binds lineUserID to the account that owns code.
func (s *UserService) LinkLineAccount(ctx context.Context, code, lineUserID string) (*models.User, error) {
	userID, err := takeLinkCode(ctx, database.GetRedisClient(), code)
	if err != nil {
		return nil, err
	}
	// a LINE account links to one user at a time
	if err := s.db.Model(&models.User{}).Where("line_user_id = ? AND id <> ?", lineUserID, userID).
		Update("line_user_id", "").Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).Update("line_user_id", lineUserID).Error; err != nil {
		return nil, err
	}
	return s.Get(userID)
}
