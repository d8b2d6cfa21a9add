package services

import (
	"context"
	"time"

	"tutorlink_go/config"
	"tutorlink_go/storage"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the periodic jobs: booking lifecycle, post-test due dates and log maintenance.
type Scheduler struct {
	cron  *cron.Cron
	store storage.ObjectStore
}

func NewScheduler(store storage.ObjectStore) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		store: store,
	}
}

func cronSpec(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	bookingSpec, maintenanceSpec := "@every 15m", "@hourly"
	if config.AppConfig != nil {
		bookingSpec = cronSpec(config.AppConfig.BookingCron, bookingSpec)
		maintenanceSpec = cronSpec(config.AppConfig.LogMaintenanceCron, maintenanceSpec)
	}
	if _, err := s.cron.AddFunc(bookingSpec, s.RunBookingJobs); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(maintenanceSpec, s.RunLogMaintenance); err != nil {
		return err
	}
	s.cron.Start()
	logrus.WithFields(logrus.Fields{"booking": bookingSpec, "log_maintenance": maintenanceSpec}).Info("scheduler started")
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) RunBookingJobs() {
	now := time.Now()
	activated, completed, err := NewBookingService().PromoteByDate(now)
	if err != nil {
		logrus.WithError(err).Error("booking promotion failed")
	} else if activated+completed > 0 {
		logrus.WithFields(logrus.Fields{"activated": activated, "completed": completed}).Info("bookings promoted")
	}

	overdue, err := NewPostTestService().MarkOverdue(now)
	if err != nil {
		logrus.WithError(err).Error("post-test overdue check failed")
	} else if overdue > 0 {
		logrus.WithField("overdue", overdue).Info("post-test assignments marked overdue")
	}
}

func (s *Scheduler) RunLogMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	las := NewLogArchiveService(s.store)
	if _, err := las.FlushCachedLogsToDatabase(ctx); err != nil {
		logrus.WithError(err).Warn("activity log flush failed")
	}
	if s.store == nil {
		return
	}
	if _, err := las.ArchiveOldLogs(ctx, ArchiveAfterDays); err != nil {
		logrus.WithError(err).Warn("activity log archive failed")
	}
}
