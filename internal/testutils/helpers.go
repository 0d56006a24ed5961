// Package testutils holds fixtures shared by adapter and session tests.
package testutils

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/callflow/internal/runtime"
	"github.com/aretw0/callflow/pkg/actions"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/flows/leadqual"
	"github.com/aretw0/callflow/pkg/graph"
	"github.com/aretw0/callflow/pkg/guard"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/aretw0/callflow/pkg/prompts"
)

// Clock is a fixed Saturday morning in London.
func Clock() time.Time {
	return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
}

// Booking is an in-process BookingService with canned answers.
type Booking struct {
	mu sync.Mutex

	Dates []domain.AvailableDate
	Fail  bool

	AvailabilityCalls int
	SlotCalls         int
	BookingCalls      int
}

var _ ports.BookingService = (*Booking)(nil)

// NewBooking offers Monday and Tuesday with a morning and an afternoon slot each.
func NewBooking() *Booking {
	return &Booking{
		Dates: []domain.AvailableDate{
			{Date: "2026-10-19", Label: "Monday 19 October"},
			{Date: "2026-10-20", Label: "Tuesday 20 October"},
		},
	}
}

var errDown = errors.New("scheduling service down")

func (b *Booking) Availability(ctx context.Context, daysAhead int) ([]domain.AvailableDate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.AvailabilityCalls++
	if b.Fail {
		return nil, errDown
	}
	return append([]domain.AvailableDate(nil), b.Dates...), nil
}

func (b *Booking) SlotsForDate(ctx context.Context, date string) (domain.BookingCandidate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.SlotCalls++
	if b.Fail {
		return domain.BookingCandidate{}, errDown
	}
	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return domain.BookingCandidate{}, guard.Permanent(err)
	}
	at := func(h int) *domain.Slot {
		start := day.Add(time.Duration(h) * time.Hour)
		return &domain.Slot{Date: date, Time: start.Format("3:04 PM"), Start: start}
	}
	return domain.BookingCandidate{Date: date, Morning: at(10), Afternoon: at(14)}, nil
}

func (b *Booking) CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.BookingCalls++
	if b.Fail {
		return nil, errDown
	}
	return &domain.Booking{ID: "bk_1", Start: req.Start, End: req.Start.Add(30 * time.Minute), Status: "accepted"}, nil
}

// Deps are handler dependencies with a fast, single-retry policy.
func Deps() actions.Deps {
	return actions.Deps{
		Persona: prompts.DefaultPersona(),
		Policy:  guard.Policy{Retries: 1, Backoff: time.Millisecond},
	}
}

// LeadQualGraph builds the default flow over svc.
func LeadQualGraph(t *testing.T, svc ports.BookingService) *graph.Graph {
	t.Helper()
	g, err := leadqual.New(svc, Deps())
	require.NoError(t, err, "failed to build lead qualification graph")
	return g
}

// Factory returns a dispatcher constructor over g, compatible with session.Factory.
func Factory(g *graph.Graph, opts ...runtime.Option) func(string, ports.ConversationContext) (*runtime.Dispatcher, error) {
	renderer := prompts.NewRenderer(prompts.DefaultPersona(), prompts.WithClock(Clock))
	return func(id string, convo ports.ConversationContext) (*runtime.Dispatcher, error) {
		all := append([]runtime.Option{
			runtime.WithSessionID(id),
			runtime.WithRenderer(renderer),
			runtime.WithClock(Clock),
		}, opts...)
		return runtime.New(g, convo, all...), nil
	}
}
