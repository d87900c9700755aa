package rebuild

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
)

// Scheduler triggers a rebuild at a fixed interval so content dated in the
// future appears once its date has passed.
type Scheduler struct {
	scheduler gocron.Scheduler
	interval  time.Duration
}

// NewScheduler registers a periodic rebuild of c. It does not run until Start.
func NewScheduler(c *Controller, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, ferrors.ValidationError("rebuild interval must be positive").Build()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "create scheduler").Build()
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { c.Trigger(Trigger{Source: SourceSchedule}) }),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "schedule periodic rebuild").Build()
	}
	return &Scheduler{scheduler: s, interval: interval}, nil
}

// Start begins the schedule.
func (s *Scheduler) Start() {
	slog.Info("Starting periodic rebuilds", slog.Duration("interval", s.interval))
	s.scheduler.Start()
}

// Stop shuts the scheduler down.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
