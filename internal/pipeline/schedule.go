package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ScheduleOff disables periodic reloads.
const ScheduleOff = "off"

// ValidateSchedule reports whether spec is a usable reload schedule.
func ValidateSchedule(spec string) error {
	if strings.EqualFold(spec, ScheduleOff) {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid reload schedule %q: %w", spec, err)
	}
	return nil
}

// Run reloads on the given cron schedule until ctx is cancelled. It does not
// perform an initial load. With ScheduleOff it only waits for ctx.
func (s *Service) Run(ctx context.Context, schedule string) error {
	if strings.EqualFold(schedule, ScheduleOff) {
		s.logger.Info("periodic reload disabled")
		<-ctx.Done()
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() { s.scheduledReload(ctx) }); err != nil {
		return fmt.Errorf("schedule reload: %w", err)
	}

	s.logger.Info("periodic reload started", "schedule", schedule)
	c.Start()
	<-ctx.Done()

	s.logger.Info("periodic reload stopping", "reason", ctx.Err())
	<-c.Stop().Done()
	return nil
}

func (s *Service) scheduledReload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// Reload logs its own failures.
	if _, err := s.Reload(ctx); err != nil && !errors.Is(err, ErrSuperseded) && ctx.Err() == nil {
		s.logger.Debug("scheduled reload did not complete", "error", err)
	}
}
