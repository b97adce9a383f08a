// Package scheduler runs the periodic maintenance jobs of the booking
// lifecycle.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// PaymentExpirer fails payments left pending past the expiry window.
type PaymentExpirer interface {
	ExpirePending(ctx context.Context) (int64, error)
}

// StayCompleter moves confirmed bookings whose stay has ended to completed.
type StayCompleter interface {
	CompleteFinishedStays(ctx context.Context) (int64, error)
}

// PaymentSweeper runs both jobs every Interval.  Completer may be nil.
type PaymentSweeper struct {
	Payments  PaymentExpirer
	Completer StayCompleter
	Interval  time.Duration
	Log       logrus.FieldLogger
}

// Start runs one sweep immediately and then on every tick until ctx is
// cancelled.  It blocks; run it in its own goroutine.
func (s *PaymentSweeper) Start(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s.Log.WithField("interval", interval.String()).Info("payment sweeper started")
	s.RunOnce(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Log.Info("payment sweeper stopped")
			return
		case <-t.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep.  Errors are logged; the next tick
// retries.
func (s *PaymentSweeper) RunOnce(ctx context.Context) {
	if n, err := s.Payments.ExpirePending(ctx); err != nil {
		s.Log.WithError(err).Error("expire pending payments failed")
	} else if n > 0 {
		s.Log.WithField("count", n).Info("expired pending payments")
	}
	if s.Completer == nil {
		return
	}
	if n, err := s.Completer.CompleteFinishedStays(ctx); err != nil {
		s.Log.WithError(err).Error("complete finished stays failed")
	} else if n > 0 {
		s.Log.WithField("count", n).Info("completed finished stays")
	}
}
