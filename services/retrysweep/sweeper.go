// Package retrysweep implements the RetrySweeper component: a periodic
// background task that re-drives PENDING, retry-eligible notifications
// through the PushDispatcher, backing off between attempts and failing a
// notification once its retry window has elapsed.
package retrysweep

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/agusu/ppns-hub/metrics"
	"github.com/agusu/ppns-hub/models"
	"github.com/agusu/ppns-hub/services/notifications"
	"github.com/agusu/ppns-hub/services/push"
)

// Store is the slice of NotificationStore the sweeper needs.
type Store interface {
	StreamRetryable(ctx context.Context) (<-chan notifications.RetryablePair, <-chan error)
	UpdateStatus(ctx context.Context, notificationID uuid.UUID, status models.NotificationStatus) (models.Notification, error)
	UpdateRetryAfter(ctx context.Context, notificationID uuid.UUID, when time.Time) (models.Notification, error)
}

// Pusher is the slice of PushDispatcher the sweeper needs.
type Pusher interface {
	Push(ctx context.Context, box models.Box, notification models.Notification, message string) push.Result
}

// Sweeper is the RetrySweeper component.
type Sweeper struct {
	store    Store
	pusher   Pusher
	log      *zap.SugaredLogger
	schedule []time.Duration
	window   time.Duration
	interval time.Duration
	pushTO   time.Duration
}

func New(store Store, pusher Pusher, log *zap.SugaredLogger, schedule []time.Duration, window, sweepInterval, pushTimeout time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		pusher:   pusher,
		log:      log,
		schedule: schedule,
		window:   window,
		interval: sweepInterval,
		pushTO:   pushTimeout,
	}
}

// Run loops until ctx is cancelled, sweeping once per interval. It observes
// cancellation between items and between cycles, and never abandons a push
// mid-flight — it always awaits the gateway response or its timeout.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	pairs, errs := s.store.StreamRetryable(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case pair, ok := <-pairs:
			if !ok {
				if err := <-errs; err != nil {
					s.log.Errorw("retrysweep: stream error", "error", err)
				}
				return
			}
			s.driveOne(ctx, pair)
		}
	}
}

func (s *Sweeper) driveOne(ctx context.Context, pair notifications.RetryablePair) {
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pushTO)
	result := s.pusher.Push(pushCtx, pair.Box, pair.Notification, pair.Message)
	cancel()

	if result.Successful {
		if _, err := s.store.UpdateStatus(ctx, pair.Notification.NotificationID, models.StatusAcknowledged); err != nil {
			s.log.Errorw("retrysweep: failed to acknowledge after successful retry", "notificationId", pair.Notification.NotificationID, "error", err)
		}
		return
	}

	attempt := s.attemptNumber(pair.Notification)
	backoffDelay := s.backoffFor(attempt)
	nextRetry := time.Now().UTC().Add(backoffDelay)

	if nextRetry.After(pair.Notification.CreatedDateTime.Add(s.window)) {
		if _, err := s.store.UpdateStatus(ctx, pair.Notification.NotificationID, models.StatusFailed); err != nil {
			s.log.Errorw("retrysweep: failed to mark FAILED on exhaustion", "notificationId", pair.Notification.NotificationID, "error", err)
			return
		}
		metrics.RetryExhausted.Inc()
		s.log.Infow("retrysweep: retry window exhausted, marked FAILED", "notificationId", pair.Notification.NotificationID)
		return
	}

	if _, err := s.store.UpdateRetryAfter(ctx, pair.Notification.NotificationID, nextRetry); err != nil {
		s.log.Errorw("retrysweep: failed to set retryAfter", "notificationId", pair.Notification.NotificationID, "error", err)
	}
}

// attemptNumber infers how many pushes this notification has already had by
// how far its retryAfterDateTime already advanced past the schedule's first
// step. A fresh notification (retryAfterDateTime absent) is attempt 0.
func (s *Sweeper) attemptNumber(n models.Notification) int {
	if n.RetryAfterDateTime == nil {
		return 0
	}
	elapsed := n.RetryAfterDateTime.Sub(n.CreatedDateTime)
	count := 0
	var cumulative time.Duration
	for _, step := range s.schedule {
		cumulative += step
		if cumulative > elapsed {
			break
		}
		count++
	}
	return count
}

// backoffFor returns the configured schedule's delay for the given attempt;
// attempts past the end of the schedule use its final (maximum) step. The
// chosen step is then jittered by up to 20% either way, so a delay can land
// up to 20% above the final step.
func (s *Sweeper) backoffFor(attempt int) time.Duration {
	idx := attempt
	if idx >= len(s.schedule) {
		idx = len(s.schedule) - 1
	}
	base := s.schedule[idx]

	backoffPolicy := retry.NewConstant(base)
	backoffPolicy = retry.WithJitterPercent(20, backoffPolicy)

	delay, _ := backoffPolicy.Next()
	return delay
}
