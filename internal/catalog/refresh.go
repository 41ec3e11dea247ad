package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"showcase/internal/logger"
)

var refreshParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseRefresh validates a refresh schedule such as "@every 5m" or "0 */10 * * * *".
func ParseRefresh(spec string) (cron.Schedule, error) {
	s, err := refreshParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// ScheduleRefresh reloads the catalog on spec. Each run gets timeout to
// finish; a run that finds a load already in flight is skipped. The caller
// starts and stops the returned scheduler.
func (c *Controller) ScheduleRefresh(spec string, timeout time.Duration) (*cron.Cron, error) {
	sched := cron.New(cron.WithParser(refreshParser))
	_, err := sched.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := c.Load(ctx); err != nil {
			if IsTransient(err) {
				logger.Debugf("refresh skipped: %v", err)
				return
			}
			logger.Warnf("refresh failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	return sched, nil
}
