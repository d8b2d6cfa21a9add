package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"
	"tutorlink_go/config"
	"tutorlink_go/database"
	"tutorlink_go/models"
	"tutorlink_go/utils"

	"github.com/go-redis/redis/v8"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Queue item stored in Redis. One payload may fan out to many users.
type queuedNotification struct {
	UserIDs   []uint    `json:"user_ids"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Channels  []string  `json:"channels,omitempty"`
	Data      any       `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const redisListKey = "notifications:queue"

// Notification types
const (
	TypeInfo    = "info"
	TypeWarning = "warning"
	TypeError   = "error"
	TypeSuccess = "success"
)

// Service exposes notification creation with an optional Redis queue.
// Without Redis it inserts directly.
type Service struct {
	db       *gorm.DB
	redis    *redis.Client
	useRedis bool
	wsHub    WSHub
	line     LinePusher
}

// WSHub interface for WebSocket broadcasting
type WSHub interface {
	BroadcastToUser(userID uint, message interface{})
}

// LinePusher sends a text to a linked LINE account.
type LinePusher interface {
	PushText(lineUserID, text string) error
}

// Package-level defaults so services built anywhere (handlers, cron jobs)
// share the same hub and LINE client.
var (
	defaultHub  WSHub
	defaultLine LinePusher
)

func SetDefaultWSHub(h WSHub)     { defaultHub = h }
func SetDefaultLine(l LinePusher) { defaultLine = l }
func DefaultWSHub() WSHub         { return defaultHub }

func NewService() *Service {
	return &Service{
		db:       database.GetDB(),
		redis:    database.GetRedisClient(),
		useRedis: config.AppConfig != nil && config.AppConfig.UseRedisNotifications && database.GetRedisClient() != nil,
		wsHub:    defaultHub,
		line:     defaultLine,
	}
}

// NormalizeChannels keeps only allowed values and ensures the default channel.
func NormalizeChannels(in []string) []string {
	allowed := map[string]struct{}{"normal": {}, "popup": {}, "line": {}}
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, ch := range in {
		ch = strings.ToLower(strings.TrimSpace(ch))
		if _, ok := allowed[ch]; !ok {
			continue
		}
		if _, dup := seen[ch]; dup {
			continue
		}
		out = append(out, ch)
		seen[ch] = struct{}{}
	}
	if len(out) == 0 {
		out = []string{"normal"}
	}
	return out
}

// New builds a queue item for EnqueueOrCreate.
func New(title, message, typ string, channels ...string) queuedNotification {
	return queuedNotification{Title: title, Message: message, Type: typ, Channels: NormalizeChannels(channels)}
}

// WithData builds a queue item carrying a deep-link payload.
func WithData(title, message, typ string, data any, channels ...string) queuedNotification {
	n := New(title, message, typ, channels...)
	n.Data = data
	return n
}

// EnqueueOrCreate stores notifications using the Redis queue if enabled, else directly.
func (s *Service) EnqueueOrCreate(userIDs []uint, n queuedNotification) error {
	if len(userIDs) == 0 {
		return errors.New("no user ids")
	}
	n.UserIDs = userIDs
	n.CreatedAt = time.Now().UTC()

	if s.useRedis {
		b, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err = s.redis.RPush(context.Background(), redisListKey, b).Err(); err == nil {
			return nil
		}
		log.Printf("[notif] Redis queue failed, falling back to direct insert: %v", err)
	}

	return s.createDirect(userIDs, n)
}

// createDirect writes to the DB then fans out over websocket and LINE.
func (s *Service) createDirect(userIDs []uint, n queuedNotification) error {
	if len(userIDs) == 0 {
		return nil
	}
	channels := NormalizeChannels(n.Channels)
	var dataJSON datatypes.JSON
	if n.Data != nil {
		if b, err := json.Marshal(n.Data); err == nil {
			dataJSON = b
		}
	}

	notifs := make([]models.Notification, 0, len(userIDs))
	for _, uid := range userIDs {
		notifs = append(notifs, models.Notification{
			UserID:   uid,
			Title:    n.Title,
			Message:  n.Message,
			Type:     n.Type,
			Channels: models.JSONArray(channels),
			Data:     dataJSON,
		})
	}
	if err := s.db.Create(&notifs).Error; err != nil {
		return err
	}

	if s.wsHub != nil {
		for _, notif := range notifs {
			s.db.Preload("User").First(&notif, notif.ID)
			s.wsHub.BroadcastToUser(notif.UserID, map[string]interface{}{
				"type": "notification",
				"data": utils.ToNotificationDTO(notif),
			})
		}
	}

	if s.line != nil && contains(channels, "line") {
		s.pushLine(userIDs, n)
	}
	return nil
}

func (s *Service) pushLine(userIDs []uint, n queuedNotification) {
	var users []models.User
	if err := s.db.Select("id", "line_user_id").
		Where("id IN ? AND line_user_id <> ''", userIDs).Find(&users).Error; err != nil {
		log.Printf("[notif] LINE lookup failed: %v", err)
		return
	}
	text := n.Title
	if n.Message != "" {
		text += "\n" + n.Message
	}
	for _, u := range users {
		if err := s.line.PushText(u.LineUserID, text); err != nil {
			log.Printf("[notif] LINE push to user %d failed: %v", u.ID, err)
		}
	}
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// StartWorker polls the Redis queue and flushes to the DB until stop closes.
func (s *Service) StartWorker(stop <-chan struct{}) {
	if !s.useRedis {
		log.Println("[notif] Redis notifications disabled; worker not started")
		return
	}
	go func() {
		log.Println("[notif] Redis notification worker started")
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		ctx := context.Background()
		for {
			select {
			case <-stop:
				log.Println("[notif] Worker stopping")
				return
			case <-ticker.C:
				s.flushBatch(ctx, 200)
			}
		}
	}()
}

// flushBatch drains up to five batches per tick.
func (s *Service) flushBatch(ctx context.Context, batchSize int) {
	if s.redis == nil {
		return
	}
	for i := 0; i < 5; i++ {
		vals, err := s.redis.LRange(ctx, redisListKey, 0, int64(batchSize-1)).Result()
		if err != nil || len(vals) == 0 {
			return
		}
		if err = s.redis.LTrim(ctx, redisListKey, int64(len(vals)), -1).Err(); err != nil {
			log.Printf("[notif] LTrim failed: %v", err)
		}
		for _, raw := range vals {
			var q queuedNotification
			if err := json.Unmarshal([]byte(raw), &q); err != nil {
				continue
			}
			if err := s.createDirect(q.UserIDs, q); err != nil {
				log.Printf("[notif] DB insert failed: %v", err)
			}
		}
		if len(vals) < batchSize {
			return
		}
	}
}

// ListFilter narrows a user's notification list.
type ListFilter struct {
	Read  *bool
	Type  string
	Page  int
	Limit int
}

func (s *Service) List(userID uint, f ListFilter) ([]models.Notification, int64, error) {
	_, limit, offset := utils.Pagination(f.Page, f.Limit)
	q := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if f.Read != nil {
		q = q.Where("`read` = ?", *f.Read)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Notification
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

func (s *Service) Get(userID, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Service) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).Where("user_id = ? AND `read` = ?", userID, false).Count(&count).Error
	return count, err
}

// MarkRead marks one notification, or all of them when id is 0.
func (s *Service) MarkRead(userID, id uint) (int64, error) {
	now := time.Now()
	q := s.db.Model(&models.Notification{}).Where("user_id = ? AND `read` = ?", userID, false)
	if id != 0 {
		q = q.Where("id = ?", id)
	}
	res := q.Updates(map[string]interface{}{"read": true, "read_at": &now})
	return res.RowsAffected, res.Error
}

func (s *Service) Delete(userID, id uint) error {
	res := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Audience selects broadcast targets; explicit ids win over role/program.
type Audience struct {
	UserIDs []uint
	Role    string
	Program string
}

func (s *Service) ResolveAudience(a Audience) ([]uint, error) {
	if len(a.UserIDs) > 0 {
		return a.UserIDs, nil
	}
	if a.Role == "" && a.Program == "" {
		return nil, errors.New("must specify user_ids, role, or program")
	}
	q := s.db.Model(&models.User{}).Where("status = ?", models.UserActive)
	if a.Role != "" {
		q = q.Where("role = ?", a.Role)
	}
	if a.Program != "" {
		q = q.Where("program = ?", a.Program)
	}
	var ids []uint
	err := q.Pluck("id", &ids).Error
	return ids, err
}

// Stats counts notifications by read flag and type.
func (s *Service) Stats() (map[string]interface{}, error) {
	var total, read int64
	if err := s.db.Model(&models.Notification{}).Count(&total).Error; err != nil {
		return nil, err
	}
	s.db.Model(&models.Notification{}).Where("`read` = ?", true).Count(&read)

	type row struct {
		Type  string
		Count int64
	}
	var rows []row
	s.db.Model(&models.Notification{}).Select("type, COUNT(*) AS count").Group("type").Scan(&rows)
	byType := map[string]int64{}
	for _, r := range rows {
		byType[r.Type] = r.Count
	}
	return map[string]interface{}{
		"total":   total,
		"read":    read,
		"unread":  total - read,
		"by_type": byType,
	}, nil
}
