package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/callflow"
	"github.com/aretw0/callflow/internal/config"
	"github.com/aretw0/callflow/pkg/adapters/calcom"
	"github.com/aretw0/callflow/pkg/adapters/file"
	"github.com/aretw0/callflow/pkg/adapters/memory"
	"github.com/aretw0/callflow/pkg/adapters/redis"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/guard"
	"github.com/aretw0/callflow/pkg/persistence/middleware"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/aretw0/callflow/pkg/prompts"
	"github.com/aretw0/callflow/pkg/session"
)

var errSchedulingOff = errors.New("scheduling is not configured (set CALCOM_API_KEY and CALCOM_EVENT_TYPE_ID)")

// offline stands in for the scheduling API when no credentials are set.
// Every booking step fails permanently, so calls reach the fallback node.
type offline struct{}

func (offline) Availability(context.Context, int) ([]domain.AvailableDate, error) {
	return nil, guard.Permanent(errSchedulingOff)
}

func (offline) SlotsForDate(context.Context, string) (domain.BookingCandidate, error) {
	return domain.BookingCandidate{}, guard.Permanent(errSchedulingOff)
}

func (offline) CreateBooking(context.Context, domain.BookingRequest) (*domain.Booking, error) {
	return nil, guard.Permanent(errSchedulingOff)
}

func persona(c config.Persona) prompts.Persona {
	p := prompts.Persona{
		Name:           c.Name,
		Company:        c.Company,
		Host:           c.Host,
		SchedulingLine: c.SchedulingLine,
		LocationLabel:  c.LocationLabel,
		Location:       time.UTC,
	}
	if loc, err := time.LoadLocation(c.TimeZone); err == nil {
		p.Location = loc
	} else {
		logger.Warn("unknown time zone, using UTC", "timezone", c.TimeZone)
	}
	return p
}

func bookingService(p prompts.Persona) ports.BookingService {
	if !cfg.BookingConfigured() {
		logger.Warn("booking disabled", "error", errSchedulingOff)
		return offline{}
	}
	client := calcom.New(cfg.Booking.APIKey, cfg.Booking.EventTypeID,
		calcom.WithBaseURL(cfg.Booking.BaseURL),
		calcom.WithLocation(p.Location),
		calcom.WithLogger(logger.With("component", "calcom")),
	)
	return guard.NewBreaker(client,
		guard.WithTripAfter(cfg.Booking.BreakerTrip),
		guard.WithOpenTimeout(cfg.Booking.BreakerTimeout),
		guard.WithBreakerLogger(logger),
	)
}

// newEngine builds the engine from the loaded configuration.
func newEngine(ctx context.Context, opts ...callflow.Option) (*callflow.Engine, error) {
	p := persona(cfg.Persona)
	all := []callflow.Option{
		callflow.WithBookingService(bookingService(p)),
		callflow.WithPersona(p),
		callflow.WithPolicy(guard.Policy{
			Retries:        cfg.Booking.Retries,
			Backoff:        cfg.Booking.Backoff,
			AttemptTimeout: cfg.Booking.Timeout,
		}),
		callflow.WithLogger(logger),
	}
	if cfg.FlowFile != "" {
		all = append(all, callflow.WithLoader(file.NewLoader(cfg.FlowFile)))
	}
	eng, err := callflow.New(ctx, append(all, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("initialize engine: %w", err)
	}
	return eng, nil
}

// backend holds the snapshot store and, for redis, the optional lock.
type backend struct {
	store  ports.StateStore
	locker ports.DistributedLocker
	close  func() error
}

func (b backend) sessionOptions() []session.Option {
	opts := []session.Option{
		session.WithStore(b.store),
		session.WithTTL(cfg.Session.TTL),
	}
	if b.locker != nil {
		opts = append(opts, session.WithLocker(b.locker, session.DefaultLockTTL))
	}
	return opts
}

func openBackend() (backend, error) {
	b, err := openStore()
	if err != nil {
		return backend{}, err
	}

	var mws []middleware.Middleware
	if cfg.Store.RedactPII {
		pii, err := middleware.NewPII(middleware.DefaultPIIPatterns)
		if err != nil {
			return backend{}, err
		}
		mws = append(mws, pii)
	}
	if cfg.Store.Key != "" {
		keys, err := middleware.DecodeKeys(cfg.Store.Key, cfg.Store.FallbackKeys...)
		if err != nil {
			return backend{}, err
		}
		seal, err := middleware.NewEncryption(keys)
		if err != nil {
			return backend{}, err
		}
		mws = append(mws, seal)
	}
	b.store = middleware.Chain(b.store, mws...)
	return b, nil
}

func openStore() (backend, error) {
	nop := func() error { return nil }
	switch cfg.Store.Kind {
	case "", "memory":
		return backend{store: memory.NewStore(), close: nop}, nil
	case "file":
		return backend{store: file.NewStore(cfg.Store.Dir), close: nop}, nil
	case "redis":
		store := redis.New(cfg.Store.RedisAddr, cfg.Store.RedisPass, cfg.Store.RedisDB,
			redis.WithTTL(cfg.Session.SnapshotTTL))
		b := backend{store: store, close: store.Close}
		if cfg.Store.Lock {
			b.locker = redis.NewLocker(store.Client(), "callflow:")
		}
		return b, nil
	default:
		return backend{}, fmt.Errorf("unknown store %q (memory, file or redis)", cfg.Store.Kind)
	}
}
