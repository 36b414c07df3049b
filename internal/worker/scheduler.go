// Package worker runs the bill rollover on a cron schedule.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"monthlynet/internal/log"
	"monthlynet/internal/services"

	"github.com/robfig/cron/v3"
)

// Processor is the job run on each tick. *services.RolloverProcessor implements it.
type Processor interface {
	Process(ctx context.Context, now time.Time) (services.RolloverResult, error)
}

// Scheduler triggers a Processor on a standard five-field cron expression.
type Scheduler struct {
	cron      *cron.Cron
	processor Processor
	logger    *log.Logger
	timeout   time.Duration
	now       func() time.Time

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler parses schedule and registers the job. The job does not run until Start.
func NewScheduler(schedule string, processor Processor, logger *log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentWorker})
	}
	s := &Scheduler{
		cron:      cron.New(),
		processor: processor,
		logger:    logger.WithComponent(log.ComponentWorker),
		timeout:   2 * time.Minute,
		now:       time.Now,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunNow runs the job once synchronously, typically at startup.
func (s *Scheduler) RunNow(ctx context.Context) (services.RolloverResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := s.now()
	res, err := s.processor.Process(ctx, start)
	if err != nil {
		s.logger.ErrorContext(ctx, "Bill worker run failed", log.FieldError, err)
		return res, err
	}
	s.logger.InfoContext(ctx, "Bill worker run finished",
		"reset", res.Reset,
		"reminders", res.Reminders,
		log.FieldDuration, s.now().Sub(start).Milliseconds())
	return res, nil
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	_, _ = s.RunNow(ctx)
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	if entries := s.cron.Entries(); len(entries) > 0 {
		s.logger.Info("Bill worker scheduled", "next_run", entries[0].Next.Format(time.RFC3339))
	}
}

// Stop cancels a running job and waits for it to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info("Bill worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
