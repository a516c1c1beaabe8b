package ports

import "time"

type SchedulerService interface {
	Start()
	Stop()
	ScheduleRecurring(interval time.Duration, task func()) error
}
