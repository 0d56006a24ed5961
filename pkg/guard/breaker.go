package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/ports"
)

// Breaker defaults.
const (
	DefaultTripAfter   = 5
	DefaultOpenTimeout = 30 * time.Second
)

// ErrBreakerOpen is returned, marked permanent, while the scheduling service is considered down.
var ErrBreakerOpen = errors.New("scheduling service circuit is open")

// Breaker wraps a BookingService with a circuit breaker. After TripAfter consecutive
// transient failures every call fails fast until the open timeout elapses, so the
// conversation reaches its fallback without waiting on a dead backend.
// Permanent errors do not count as failures.
type Breaker struct {
	next   ports.BookingService
	cb     *gobreaker.CircuitBreaker[any]
	logger *slog.Logger
}

var _ ports.BookingService = (*Breaker)(nil)

type breakerConfig struct {
	tripAfter uint32
	timeout   time.Duration
	logger    *slog.Logger
}

// BreakerOption configures a Breaker.
type BreakerOption func(*breakerConfig)

// WithTripAfter sets how many consecutive failures open the circuit.
func WithTripAfter(n uint32) BreakerOption {
	return func(c *breakerConfig) {
		c.tripAfter = n
	}
}

// WithOpenTimeout sets how long the circuit stays open before a probe call is let through.
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(c *breakerConfig) {
		c.timeout = d
	}
}

// WithBreakerLogger logs state changes.
func WithBreakerLogger(l *slog.Logger) BreakerOption {
	return func(c *breakerConfig) {
		c.logger = l
	}
}

// NewBreaker wraps next.
func NewBreaker(next ports.BookingService, opts ...BreakerOption) *Breaker {
	cfg := breakerConfig{
		tripAfter: DefaultTripAfter,
		timeout:   DefaultOpenTimeout,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tripAfter == 0 {
		cfg.tripAfter = 1
	}

	b := &Breaker{next: next, logger: cfg.logger}
	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "booking",
		MaxRequests: 1,
		Timeout:     cfg.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.tripAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return b
}

// State reports the circuit state: "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func (b *Breaker) execute(fn func() (any, error)) (any, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, Permanent(ErrBreakerOpen)
	}
	return v, err
}

// Availability implements ports.BookingService.
func (b *Breaker) Availability(ctx context.Context, daysAhead int) ([]domain.AvailableDate, error) {
	v, err := b.execute(func() (any, error) {
		return b.next.Availability(ctx, daysAhead)
	})
	if err != nil {
		return nil, err
	}
	dates, _ := v.([]domain.AvailableDate)
	return dates, nil
}

// SlotsForDate implements ports.BookingService.
func (b *Breaker) SlotsForDate(ctx context.Context, date string) (domain.BookingCandidate, error) {
	v, err := b.execute(func() (any, error) {
		return b.next.SlotsForDate(ctx, date)
	})
	if err != nil {
		return domain.BookingCandidate{}, err
	}
	candidate, _ := v.(domain.BookingCandidate)
	return candidate, nil
}

// CreateBooking implements ports.BookingService.
func (b *Breaker) CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	v, err := b.execute(func() (any, error) {
		return b.next.CreateBooking(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	booking, _ := v.(*domain.Booking)
	return booking, nil
}
