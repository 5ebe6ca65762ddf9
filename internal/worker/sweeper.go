package worker

import (
	"context"
	"time"

	"github.com/mindease/booking-api/internal/service/notification"
	"github.com/mindease/booking-api/internal/service/scheduling"
	"github.com/mindease/booking-api/pkg/logger"
)

type SweeperConfig struct {
	Interval time.Duration
}

// Sweeper runs the periodic lifecycle maintenance: completing elapsed
// appointments, reissuing missing meeting links, and retrying refunds the
// gateway has not confirmed yet.
type Sweeper struct {
	scheduler  *scheduling.Service
	dispatcher *notification.Dispatcher
	interval   time.Duration
	logger     *logger.Logger
}

func NewSweeper(scheduler *scheduling.Service, dispatcher *notification.Dispatcher, cfg SweeperConfig, log *logger.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Sweeper{
		scheduler:  scheduler,
		dispatcher: dispatcher,
		interval:   cfg.Interval,
		logger:     log,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("starting lifecycle sweeper", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("lifecycle sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if n, err := s.scheduler.CompleteElapsed(ctx); err != nil {
		s.logger.Error(err, "completion sweep failed")
	} else if n > 0 {
		s.logger.Info("appointments completed", "count", n)
	}

	if n, err := s.dispatcher.RetryMissingLinks(ctx); err != nil {
		s.logger.Error(err, "meeting link sweep failed")
	} else if n > 0 {
		s.logger.Info("meeting links issued", "count", n)
	}

	if n, err := s.scheduler.RetryPendingRefunds(ctx); err != nil {
		s.logger.Error(err, "refund sweep failed")
	} else if n > 0 {
		s.logger.Info("refunds issued", "count", n)
	}
}
