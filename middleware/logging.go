package middleware

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"tutorlink_go/database"
	"tutorlink_go/models"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	RequestIDHeader = "X-Request-ID"
	LogQueueKey     = "logs:queue"
)

// RequestID reuses an incoming X-Request-ID or mints one.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("request_id", id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

func requestIDFrom(c *fiber.Ctx) string {
	if id, ok := c.Locals("request_id").(string); ok && id != "" {
		return id
	}
	return c.Get(RequestIDHeader)
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		logrus.WithFields(logrus.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"duration":   time.Since(start).String(),
			"ip":         c.IP(),
			"user_agent": c.Get("User-Agent"),
			"request_id": requestIDFrom(c),
		}).Info("HTTP Request")

		return err
	}
}

// LogActivity records a domain action. The record goes to Redis first and
// falls back to a direct insert.
func LogActivity(c *fiber.Ctx, action, resource string, resourceID uint, details interface{}) {
	var userID uint
	if user, err := GetCurrentUser(c); err == nil {
		userID = user.ID
	}

	activityLog := models.ActivityLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  c.IP(),
		UserAgent:  c.Get("User-Agent"),
	}
	activityLog.CreatedAt = time.Now()

	securityDetails := map[string]interface{}{
		"original_details": details,
		"integrity_hash":   generateIntegrityHash(activityLog),
		"request_id":       requestIDFrom(c),
		"forwarded_for":    c.Get("X-Forwarded-For"),
		"method":           c.Method(),
		"path":             c.Path(),
		"query":            string(c.Request().URI().QueryString()),
		"status_code":      c.Response().StatusCode(),
		"timestamp_utc":    time.Now().UTC().Unix(),
	}
	if b, err := json.Marshal(securityDetails); err == nil {
		activityLog.Details = datatypes.JSON(b)
	}

	go persistActivityLog(activityLog)
}

func persistActivityLog(al models.ActivityLog) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("panic recovered in LogActivity goroutine")
		}
	}()

	if err := CacheActivityLog(context.Background(), database.GetRedisClient(), al); err != nil {
		logrus.WithError(err).Debug("Failed to cache activity log, saving directly to database")
		if database.DB == nil {
			logrus.Error("database.DB is nil; cannot save activity log to database")
			return
		}
		if dbErr := database.DB.Create(&al).Error; dbErr != nil {
			logrus.WithError(dbErr).Error("Failed to save activity log to database")
		}
	}
}

// generateIntegrityHash creates a hash for tamper detection
func generateIntegrityHash(log models.ActivityLog) string {
	data := fmt.Sprintf("%d:%s:%s:%d:%s:%s:%s",
		log.UserID,
		log.Action,
		log.Resource,
		log.ResourceID,
		log.IPAddress,
		log.UserAgent,
		log.CreatedAt.Format(time.RFC3339),
	)
	return fmt.Sprintf("%x", md5.Sum([]byte(data)))
}

// CacheActivityLog stores the log under a log:* key for 24h and queues the key.
func CacheActivityLog(ctx context.Context, rc *redis.Client, log models.ActivityLog) error {
	if rc == nil {
		return fmt.Errorf("redis client is nil")
	}

	logData, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal log: %v", err)
	}

	cacheKey := fmt.Sprintf("log:%d:%s:%d", log.UserID, log.Action, time.Now().UnixNano())
	if err := rc.Set(ctx, cacheKey, logData, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to cache log: %v", err)
	}

	if err := rc.ZAdd(ctx, LogQueueKey, &redis.Z{
		Score:  float64(log.CreatedAt.Unix()),
		Member: cacheKey,
	}).Err(); err != nil {
		logrus.WithError(err).Error("Failed to add log to processing queue")
	}

	return nil
}

// LogActivityMiddleware records successful mutating requests
func LogActivityMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet || strings.Contains(c.Path(), "/auth/") {
			return c.Next()
		}

		err := c.Next()

		var action string
		switch c.Method() {
		case fiber.MethodPost:
			action = "CREATE"
		case fiber.MethodPut, fiber.MethodPatch:
			action = "UPDATE"
		case fiber.MethodDelete:
			action = "DELETE"
		default:
			return err
		}

		if c.Response().StatusCode() < 400 {
			resource, resourceID := resourceFromPath(c.Path())
			LogActivity(c, action, resource, resourceID, nil)
		}

		return err
	}
}

// resourceFromPath maps /api/<resource>/<id>/... to its resource and numeric id.
func resourceFromPath(path string) (string, uint) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	var resource string
	var id uint
	if len(parts) >= 2 {
		resource = parts[1]
	}
	if len(parts) >= 3 {
		fmt.Sscanf(parts[2], "%d", &id)
	}
	return resource, id
}
