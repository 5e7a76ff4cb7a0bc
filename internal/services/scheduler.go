package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SchedulerService triggers the update pipeline on a cron schedule.
type SchedulerService struct {
	updater   *UpdaterService
	logger    *logrus.Logger
	cron      *cron.Cron
	schedule  string
	mu        sync.Mutex
	isRunning bool
}

// NewSchedulerService creates a scheduler that fires RunAll on the given
// cron expression.
func NewSchedulerService(updater *UpdaterService, schedule string, logger *logrus.Logger) *SchedulerService {
	return &SchedulerService{
		updater:  updater,
		logger:   logger,
		cron:     cron.New(),
		schedule: schedule,
	}
}

// Start begins scheduled updates. When runImmediately is set an update is
// kicked off right away in the background.
func (s *SchedulerService) Start(runImmediately bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("update scheduler is already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runScheduled); err != nil {
		return fmt.Errorf("failed to schedule updates: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	if runImmediately {
		go s.runScheduled()
	}

	s.logger.WithFields(logrus.Fields{"schedule": s.schedule}).Info("Update scheduler started")
	return nil
}

// Stop halts scheduled updates and waits for a running cron job to return.
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Update scheduler stopped")
}

func (s *SchedulerService) runScheduled() {
	err := s.updater.RunAll(context.Background(), "schedule")
	if errors.Is(err, ErrRunInProgress) {
		s.logger.Warn("Skipped scheduled update, another run is in progress")
		return
	}
	if err != nil {
		s.logger.Errorf("Scheduled update failed: %v", err)
	}
}
