package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"tutorlink_go/database"
	"tutorlink_go/middleware"
	"tutorlink_go/models"
	"tutorlink_go/storage"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ArchiveAfterDays is the age at which activity logs leave the database.
const ArchiveAfterDays = 30

// LogArchiveService flushes cached activity logs and archives old ones to object storage.
type LogArchiveService struct {
	db    *gorm.DB
	redis *redis.Client
	store storage.ObjectStore
}

// ArchivedLog is the exported representation stored inside archives
type ArchivedLog struct {
	ID         uint                   `json:"id"`
	UserID     uint                   `json:"user_id"`
	Email      string                 `json:"email,omitempty"`
	UserRole   string                 `json:"user_role,omitempty"`
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource"`
	ResourceID uint                   `json:"resource_id"`
	Details    map[string]interface{} `json:"details,omitempty"`
	IPAddress  string                 `json:"ip_address"`
	UserAgent  string                 `json:"user_agent"`
	CreatedAt  time.Time              `json:"created_at"`
}

func NewLogArchiveService(store storage.ObjectStore) *LogArchiveService {
	return &LogArchiveService{db: database.GetDB(), redis: database.GetRedisClient(), store: store}
}

// FlushCachedLogsToDatabase moves every queued log:* entry into activity_logs.
func (las *LogArchiveService) FlushCachedLogsToDatabase(ctx context.Context) (int, error) {
	if las.redis == nil {
		return 0, fmt.Errorf("redis client not available")
	}
	keys, err := las.redis.ZRangeByScore(ctx, middleware.LogQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read log queue: %v", err)
	}

	processed, failed := 0, 0
	for _, key := range keys {
		raw, err := las.redis.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			// expired before flush
			las.redis.ZRem(ctx, middleware.LogQueueKey, key)
			continue
		}
		if err != nil {
			failed++
			continue
		}
		var entry models.ActivityLog
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			logrus.WithError(err).WithField("key", key).Error("dropping unreadable cached log")
			las.redis.Del(ctx, key)
			las.redis.ZRem(ctx, middleware.LogQueueKey, key)
			failed++
			continue
		}
		entry.ID = 0
		if err := las.db.Create(&entry).Error; err != nil {
			logrus.WithError(err).WithField("key", key).Error("failed to save cached log")
			failed++
			continue
		}
		pipe := las.redis.Pipeline()
		pipe.Del(ctx, key)
		pipe.ZRem(ctx, middleware.LogQueueKey, key)
		if _, err := pipe.Exec(ctx); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("failed to clear flushed log")
		}
		processed++
	}
	logrus.WithFields(logrus.Fields{"flushed": processed, "failed": failed}).Info("activity log flush finished")
	return processed, nil
}

// ToArchivedLog flattens a log row and its user for export.
func ToArchivedLog(l models.ActivityLog) ArchivedLog {
	a := ArchivedLog{
		ID:         l.ID,
		UserID:     l.UserID,
		Action:     l.Action,
		Resource:   l.Resource,
		ResourceID: l.ResourceID,
		IPAddress:  l.IPAddress,
		UserAgent:  l.UserAgent,
		CreatedAt:  l.CreatedAt,
	}
	if len(l.Details) > 0 {
		var details map[string]interface{}
		if err := json.Unmarshal(l.Details, &details); err == nil {
			a.Details = details
		}
	}
	if l.User.ID > 0 {
		a.Email = l.User.Email
		a.UserRole = l.User.Role
	}
	return a
}

// ArchiveOldLogs zips logs older than daysOld, uploads them and deletes them.
func (las *LogArchiveService) ArchiveOldLogs(ctx context.Context, daysOld int) (*models.LogArchive, error) {
	if daysOld < 7 {
		return nil, InputError("minimum archive age is 7 days")
	}
	if las.store == nil {
		return nil, storage.ErrNotConfigured
	}
	cutoff := time.Now().AddDate(0, 0, -daysOld)

	var all []ArchivedLog
	var maxID uint
	const batchSize = 1000
	for offset := 0; ; offset += batchSize {
		var batch []models.ActivityLog
		if err := las.db.Preload("User").Where("created_at < ?", cutoff).
			Order("id").Limit(batchSize).Offset(offset).Find(&batch).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch logs for archiving: %v", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, l := range batch {
			all = append(all, ToArchivedLog(l))
			if l.ID > maxID {
				maxID = l.ID
			}
		}
	}
	if len(all) == 0 {
		logrus.Info("no activity logs to archive")
		return nil, nil
	}

	name := fmt.Sprintf("activity_logs_%s.zip", cutoff.Format("2006-01-02"))
	buf, err := BuildLogArchive(all, name)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("logs/archived/%d/%02d/%s", cutoff.Year(), cutoff.Month(), name)

	record := models.LogArchive{
		FileName:    name,
		S3Key:       key,
		StartDate:   all[0].CreatedAt,
		EndDate:     cutoff,
		RecordCount: len(all),
		FileSize:    int64(buf.Len()),
		Status:      "completed",
	}
	if err := las.store.Put(ctx, key, buf.Bytes(), "application/zip"); err != nil {
		record.Status, record.Error = "failed", err.Error()
		las.db.Create(&record)
		return nil, fmt.Errorf("failed to upload archive: %v", err)
	}

	// Only rows that went into the archive are removed.
	res := las.db.Unscoped().Where("created_at < ? AND id <= ?", cutoff, maxID).Delete(&models.ActivityLog{})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to delete archived logs: %v", res.Error)
	}
	if err := las.db.Create(&record).Error; err != nil {
		logrus.WithError(err).Error("failed to save archive metadata")
	}
	logrus.WithFields(logrus.Fields{"key": key, "records": len(all), "deleted": res.RowsAffected}).Info("activity logs archived")
	return &record, nil
}

// BuildLogArchive writes activity_logs.json, activity_logs.csv and metadata.json into a zip.
func BuildLogArchive(logs []ArchivedLog, fileName string) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	jf, err := zw.Create("activity_logs.json")
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(jf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]interface{}{
		"export_date":    time.Now().UTC(),
		"record_count":   len(logs),
		"format_version": "1.0",
		"logs":           logs,
	}); err != nil {
		return nil, fmt.Errorf("failed to encode logs: %v", err)
	}

	cf, err := zw.Create("activity_logs.csv")
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(cf)
	_ = w.Write([]string{"ID", "User ID", "Email", "Role", "Action", "Resource", "Resource ID", "IP Address", "User Agent", "Created At", "Details"})
	for _, l := range logs {
		details := ""
		if l.Details != nil {
			if b, err := json.Marshal(l.Details); err == nil {
				details = string(b)
			}
		}
		_ = w.Write([]string{
			strconv.FormatUint(uint64(l.ID), 10),
			strconv.FormatUint(uint64(l.UserID), 10),
			l.Email,
			l.UserRole,
			l.Action,
			l.Resource,
			strconv.FormatUint(uint64(l.ResourceID), 10),
			l.IPAddress,
			l.UserAgent,
			l.CreatedAt.Format("2006-01-02 15:04:05"),
			details,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %v", err)
	}

	mf, err := zw.Create("metadata.json")
	if err != nil {
		return nil, err
	}
	meta := map[string]interface{}{
		"file_name":      fileName,
		"created_at":     time.Now().UTC(),
		"record_count":   len(logs),
		"schema_version": "1.0",
		"description":    "TutorLink activity log archive",
	}
	if len(logs) > 0 {
		meta["date_range"] = map[string]interface{}{"start": logs[0].CreatedAt, "end": logs[len(logs)-1].CreatedAt}
	}
	if err := json.NewEncoder(mf).Encode(meta); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip: %v", err)
	}
	return buf, nil
}

func (las *LogArchiveService) GetArchivedLogs() ([]models.LogArchive, error) {
	var archives []models.LogArchive
	err := las.db.Order("created_at DESC").Find(&archives).Error
	return archives, err
}

// DownloadArchivedLogs streams an archive back from object storage.
func (las *LogArchiveService) DownloadArchivedLogs(ctx context.Context, archiveID uint) (io.ReadCloser, string, error) {
	var archive models.LogArchive
	if err := las.db.First(&archive, archiveID).Error; err != nil {
		return nil, "", notFound(err)
	}
	if las.store == nil {
		return nil, "", storage.ErrNotConfigured
	}
	r, err := las.store.Get(ctx, archive.S3Key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download archive: %v", err)
	}
	return r, archive.FileName, nil
}
