package controllers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"tutorlink_go/database"
	"tutorlink_go/middleware"
	"tutorlink_go/models"
	"tutorlink_go/services"
	"tutorlink_go/storage"
	"tutorlink_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type LogController struct {
	archive *services.LogArchiveService
}

func NewLogController(store storage.ObjectStore) *LogController {
	return &LogController{archive: services.NewLogArchiveService(store)}
}

type LogsStatsResponse struct {
	Total             int64                  `json:"total"`
	TotalToday        int64                  `json:"total_today"`
	TotalThisWeek     int64                  `json:"total_this_week"`
	TotalThisMonth    int64                  `json:"total_this_month"`
	ActionBreakdown   map[string]int64       `json:"action_breakdown"`
	ResourceBreakdown map[string]int64       `json:"resource_breakdown"`
	HourlyActivity    map[string]int64       `json:"hourly_activity"`
	TopUsers          []UserActivitySummary  `json:"top_users"`
	RecentActivity    []services.ArchivedLog `json:"recent_activity"`
}

type UserActivitySummary struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Count  int64  `json:"count"`
}

// logQuery applies the shared filters of the list and export endpoints.
func logQuery(c *fiber.Ctx) *gorm.DB {
	query := database.DB.Model(&models.ActivityLog{}).Preload("User")
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if resource := c.Query("resource"); resource != "" {
		query = query.Where("resource = ?", resource)
	}
	if ip := c.Query("ip_address"); ip != "" {
		query = query.Where("ip_address = ?", ip)
	}
	if startDate := c.Query("start_date"); startDate != "" {
		if d, err := time.Parse("2006-01-02", startDate); err == nil {
			query = query.Where("created_at >= ?", d)
		}
	}
	if endDate := c.Query("end_date"); endDate != "" {
		if d, err := time.Parse("2006-01-02", endDate); err == nil {
			query = query.Where("created_at < ?", d.Add(24*time.Hour))
		}
	}
	return query
}

func toLogResponses(in []models.ActivityLog) []services.ArchivedLog {
	out := make([]services.ArchivedLog, 0, len(in))
	for _, l := range in {
		out = append(out, services.ToArchivedLog(l))
	}
	return out
}

// GetLogs retrieves paginated activity logs with filters
func (lc *LogController) GetLogs(c *fiber.Ctx) error {
	page, limit, offset := utils.Pagination(c.QueryInt("page", 1), c.QueryInt("limit", 50))
	query := logQuery(c)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return respondError(c, err, "Failed to retrieve logs count")
	}
	var activityLogs []models.ActivityLog
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&activityLogs).Error; err != nil {
		return respondError(c, err, "Failed to retrieve logs")
	}

	return c.JSON(fiber.Map{
		"logs":        toLogResponses(activityLogs),
		"total":       total,
		"page":        page,
		"limit":       limit,
		"total_pages": (total + int64(limit) - 1) / int64(limit),
	})
}

// GetLogStats summarises activity for today, this week and this month.
func (lc *LogController) GetLogStats(c *fiber.Ctx) error {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	thisWeek := today.AddDate(0, 0, -int(today.Weekday()))
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats := LogsStatsResponse{
		ActionBreakdown:   make(map[string]int64),
		ResourceBreakdown: make(map[string]int64),
		HourlyActivity:    make(map[string]int64),
	}
	db := database.DB
	base := func() *gorm.DB { return db.Model(&models.ActivityLog{}) }

	if err := base().Count(&stats.Total).Error; err != nil {
		return respondError(c, err, "Failed to compute log stats")
	}
	base().Where("created_at >= ?", today).Count(&stats.TotalToday)
	base().Where("created_at >= ?", thisWeek).Count(&stats.TotalThisWeek)
	base().Where("created_at >= ?", thisMonth).Count(&stats.TotalThisMonth)

	type keyCount struct {
		Key   string
		Count int64
	}
	var actions, resources []keyCount
	base().Select("action AS `key`, COUNT(*) AS count").Group("action").Scan(&actions)
	for _, s := range actions {
		stats.ActionBreakdown[s.Key] = s.Count
	}
	base().Select("resource AS `key`, COUNT(*) AS count").Group("resource").Scan(&resources)
	for _, s := range resources {
		stats.ResourceBreakdown[s.Key] = s.Count
	}

	for i := 0; i < 24; i++ {
		stats.HourlyActivity[fmt.Sprintf("%02d:00", i)] = 0
	}
	var hourly []struct {
		Hour  int
		Count int64
	}
	base().Select("HOUR(created_at) AS hour, COUNT(*) AS count").
		Where("created_at >= ?", today).Group("hour").Scan(&hourly)
	for _, h := range hourly {
		stats.HourlyActivity[fmt.Sprintf("%02d:00", h.Hour)] = h.Count
	}

	base().Select("activity_logs.user_id, users.email, users.role, COUNT(*) AS count").
		Joins("LEFT JOIN users ON activity_logs.user_id = users.id").
		Where("activity_logs.created_at >= ?", thisWeek).
		Group("activity_logs.user_id, users.email, users.role").
		Order("count DESC").
		Limit(10).
		Scan(&stats.TopUsers)

	var recent []models.ActivityLog
	db.Preload("User").Order("created_at DESC").Limit(10).Find(&recent)
	stats.RecentActivity = toLogResponses(recent)

	return c.JSON(stats)
}

func (lc *LogController) GetLog(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "log")
	}
	var activityLog models.ActivityLog
	if err := database.DB.Preload("User").First(&activityLog, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Log not found"})
		}
		return respondError(c, err, "Failed to retrieve log")
	}
	return c.JSON(services.ToArchivedLog(activityLog))
}

// DeleteOldLogs removes logs older than ?days (default 30).
func (lc *LogController) DeleteOldLogs(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", strconv.Itoa(services.ArchiveAfterDays)))
	if err != nil || days < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid days parameter"})
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	result := database.DB.Where("created_at < ?", cutoff).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return respondError(c, result.Error, "Failed to delete old logs")
	}
	middleware.LogActivity(c, "DELETE", "logs", 0, fiber.Map{"days": days, "deleted": result.RowsAffected})
	return c.JSON(fiber.Map{
		"message":       "Old logs deleted successfully",
		"deleted_count": result.RowsAffected,
		"cutoff_date":   cutoff,
	})
}

// ExportLogs streams the filtered logs as CSV.
func (lc *LogController) ExportLogs(c *fiber.Ctx) error {
	var logs []models.ActivityLog
	if err := logQuery(c).Order("created_at DESC").Find(&logs).Error; err != nil {
		return respondError(c, err, "Failed to retrieve logs for export")
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename=activity_logs.csv")

	w := csv.NewWriter(c.Response().BodyWriter())
	_ = w.Write([]string{"ID", "User ID", "Email", "Role", "Action", "Resource", "Resource ID", "IP Address", "User Agent", "Created At", "Details"})
	for _, l := range logs {
		_ = w.Write([]string{
			strconv.FormatUint(uint64(l.ID), 10),
			strconv.FormatUint(uint64(l.UserID), 10),
			l.User.Email,
			l.User.Role,
			l.Action,
			l.Resource,
			strconv.FormatUint(uint64(l.ResourceID), 10),
			l.IPAddress,
			l.UserAgent,
			l.CreatedAt.Format("2006-01-02 15:04:05"),
			string(l.Details),
		})
	}
	w.Flush()
	return w.Error()
}

// FlushCachedLogs moves queued Redis log entries into the database.
func (lc *LogController) FlushCachedLogs(c *fiber.Ctx) error {
	n, err := lc.archive.FlushCachedLogsToDatabase(c.UserContext())
	if err != nil {
		logrus.WithError(err).Error("Failed to flush cached logs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to flush cached logs"})
	}
	return c.JSON(fiber.Map{"message": "Cached logs flushing completed", "processed_count": n})
}

// ArchiveLogs runs the archive job on demand.
func (lc *LogController) ArchiveLogs(c *fiber.Ctx) error {
	days := c.QueryInt("days", services.ArchiveAfterDays)
	archive, err := lc.archive.ArchiveOldLogs(c.UserContext(), days)
	if errors.Is(err, storage.ErrNotConfigured) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Object storage is not configured"})
	}
	if err != nil {
		return respondError(c, err, "Failed to archive logs")
	}
	if archive == nil {
		return c.JSON(fiber.Map{"message": "No logs to archive"})
	}
	return c.JSON(fiber.Map{"message": "Logs archived", "archive": archive})
}

func (lc *LogController) GetArchives(c *fiber.Ctx) error {
	archives, err := lc.archive.GetArchivedLogs()
	if err != nil {
		return respondError(c, err, "Failed to fetch archives")
	}
	return c.JSON(fiber.Map{"archives": archives})
}

func (lc *LogController) DownloadArchive(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c, "archive")
	}
	r, name, err := lc.archive.DownloadArchivedLogs(c.UserContext(), id)
	if errors.Is(err, storage.ErrNotConfigured) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Object storage is not configured"})
	}
	if err != nil {
		return respondError(c, err, "Failed to download archive")
	}
	defer r.Close()
	body, err := io.ReadAll(r)
	if err != nil {
		return respondError(c, err, "Failed to download archive")
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+name)
	return c.Send(body)
}
