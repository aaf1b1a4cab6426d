package polling

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"netstate-agent/internal/infrastructure/metrics"
)

// Strategy decides the delay before the next poll
type Strategy interface {
	// NextInterval returns the delay before the next poll
	NextInterval(success bool) time.Duration
	// Reset returns the strategy to its initial state
	Reset()
}

// ExponentialBackoffStrategy polls at a base interval and backs off
// exponentially while passes keep failing. Intervals carry no jitter.
type ExponentialBackoffStrategy struct {
	baseInterval time.Duration
	backOff      *backoff.ExponentialBackOff
	failures     int
	logger       *logrus.Logger
}

// NewExponentialBackoffStrategy creates a new ExponentialBackoffStrategy.
// Multipliers not above one fall back to two.
func NewExponentialBackoffStrategy(
	baseInterval time.Duration,
	maxInterval time.Duration,
	multiplier float64,
	logger *logrus.Logger,
) *ExponentialBackoffStrategy {
	if multiplier <= 1 {
		multiplier = 2.0
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     baseInterval,
		RandomizationFactor: 0,
		Multiplier:          multiplier,
		MaxInterval:         maxInterval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	return &ExponentialBackoffStrategy{
		baseInterval: baseInterval,
		backOff:      b,
		logger:       logger,
	}
}

// NextInterval returns the base interval after a success, otherwise
// base * multiplier^(failures-1) capped at the max interval
func (s *ExponentialBackoffStrategy) NextInterval(success bool) time.Duration {
	if success {
		if s.failures > 0 {
			s.logger.Debug("Resetting backoff after success")
			s.Reset()
		}
		return s.baseInterval
	}

	s.failures++
	metrics.SetBackoffLevel(float64(s.failures))
	next := s.backOff.NextBackOff()

	s.logger.WithFields(logrus.Fields{
		"failures":      s.failures,
		"next_interval": next,
		"max_interval":  s.backOff.MaxInterval,
	}).Debug("Exponential backoff calculated")

	return next
}

// Reset clears the failure count
func (s *ExponentialBackoffStrategy) Reset() {
	s.failures = 0
	s.backOff.Reset()
	metrics.SetBackoffLevel(0)
}

// PollingController runs a task repeatedly, spacing runs by its strategy
type PollingController struct {
	strategy Strategy
	timer    *time.Timer
	logger   *logrus.Logger
}

// NewPollingController creates a new PollingController
func NewPollingController(strategy Strategy, logger *logrus.Logger) *PollingController {
	return &PollingController{
		strategy: strategy,
		logger:   logger,
	}
}

// Start runs task immediately and then after every interval until ctx is
// done. Task errors only affect the interval.
func (c *PollingController) Start(ctx context.Context, task func(context.Context) error) error {
	c.timer = time.NewTimer(0)
	defer c.timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-c.timer.C:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			start := time.Now()
			err := task(ctx)
			metrics.RecordPollingCycle(time.Since(start).Seconds())

			if err != nil {
				c.logger.WithError(err).Error("Polling task failed")
			}
			c.timer.Reset(c.strategy.NextInterval(err == nil))
		}
	}
}
