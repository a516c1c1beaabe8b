package timescheduler

import (
	"fmt"
	"time"

	"github.com/amalgam-labs/amalgamd/internal/core/ports"
	"github.com/go-co-op/gocron"
)

type service struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() ports.SchedulerService {
	svc := gocron.NewScheduler(time.UTC)
	return &service{svc}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
}

// ScheduleRecurring runs task every interval, starting one interval from now.
// A run still in progress when the next one is due makes the latter skip.
func (s *service) ScheduleRecurring(interval time.Duration, task func()) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s", interval)
	}
	if _, err := s.scheduler.Every(interval).WaitForSchedule().SingletonMode().Do(task); err != nil {
		return fmt.Errorf("failed to schedule task: %w", err)
	}
	return nil
}
