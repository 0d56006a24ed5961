package actions_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/callflow/pkg/actions"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/guard"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/aretw0/callflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBooking counts calls and fails the first N of each kind.
type fakeBooking struct {
	mu sync.Mutex

	dates     []domain.AvailableDate
	candidate domain.BookingCandidate
	booking   *domain.Booking

	failAvailability int
	failSlots        int
	failCreate       int

	availabilityCalls int
	slotCalls         int
	createCalls       int
	lastRequest       domain.BookingRequest
	lastDate          string
}

var errDown = errors.New("scheduling service down")

func (f *fakeBooking) Availability(_ context.Context, _ int) ([]domain.AvailableDate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availabilityCalls++
	if f.availabilityCalls <= f.failAvailability {
		return nil, errDown
	}
	return f.dates, nil
}

func (f *fakeBooking) SlotsForDate(_ context.Context, date string) (domain.BookingCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slotCalls++
	f.lastDate = date
	if f.slotCalls <= f.failSlots {
		return domain.BookingCandidate{}, errDown
	}
	return f.candidate, nil
}

func (f *fakeBooking) CreateBooking(_ context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.lastRequest = req
	if f.createCalls <= f.failCreate {
		return nil, errDown
	}
	return f.booking, nil
}

var (
	morning   = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	afternoon = time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC)
)

func newFake() *fakeBooking {
	return &fakeBooking{
		dates: []domain.AvailableDate{
			{Date: "2026-10-19", Label: "Monday 19 October"},
			{Date: "2026-10-20", Label: "Tuesday 20 October"},
			{Date: "2026-10-21", Label: "Wednesday 21 October"},
		},
		candidate: domain.BookingCandidate{
			Date:      "2026-10-19",
			Morning:   &domain.Slot{Date: "2026-10-19", Time: "10:00 AM", Start: morning},
			Afternoon: &domain.Slot{Date: "2026-10-19", Time: "2:30 PM", Start: afternoon},
		},
		booking: &domain.Booking{ID: "42", UID: "abc", Start: morning, Status: "accepted"},
	}
}

func newBooking(svc ports.BookingService) *actions.Booking {
	return actions.NewBooking(svc, actions.Deps{
		Policy: guard.Policy{Retries: 1, Backoff: time.Millisecond},
	})
}

func call(params, collected map[string]any) ports.ActionCall {
	return ports.ActionCall{SessionID: "s1", Params: params, Collected: collected}
}

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("Offers First Two Dates", func(t *testing.T) {
		svc := newFake()
		res, err := newBooking(svc).CheckAvailability(ctx, call(nil, nil))
		require.NoError(t, err)

		assert.True(t, res.OK())
		assert.Equal(t, "I see we have availability on Monday 19 October or Tuesday 20 October. Which day would work better for you?", res.Message)
		assert.Equal(t, []string{"Monday 19 October", "Tuesday 20 October"}, res.Data[actions.KeyAvailableDates])
		assert.Len(t, res.Data[actions.KeyOfferedDates], 2)
		assert.Equal(t, 1, svc.availabilityCalls)
	})

	t.Run("Single Failure Is Retried", func(t *testing.T) {
		svc := newFake()
		svc.failAvailability = 1
		res, err := newBooking(svc).CheckAvailability(ctx, call(nil, nil))
		require.NoError(t, err)

		assert.True(t, res.OK())
		assert.Equal(t, 2, svc.availabilityCalls)
	})

	t.Run("Two Failures Offer Callback", func(t *testing.T) {
		svc := newFake()
		svc.failAvailability = 5
		res, err := newBooking(svc).CheckAvailability(ctx, call(nil, nil))
		require.NoError(t, err)

		assert.Equal(t, domain.ResultError, res.Status)
		assert.Equal(t, domain.ReasonUnavailable, res.Reason)
		assert.Contains(t, res.Message, "call you back within the next hour")
		assert.Contains(t, res.Message, "555-0123")
		assert.Equal(t, true, res.Data[actions.KeyAvailabilityFail])
		assert.Equal(t, 2, svc.availabilityCalls, "exactly one retry")
	})

	t.Run("Nothing Open", func(t *testing.T) {
		svc := newFake()
		svc.dates = nil
		res, err := newBooking(svc).CheckAvailability(ctx, call(nil, nil))
		require.NoError(t, err)

		assert.Equal(t, domain.ReasonEmpty, res.Reason)
		assert.Contains(t, res.Message, "next 7 days")
		assert.Equal(t, true, res.Data[actions.KeyNoAvailability])
		assert.Equal(t, 1, svc.availabilityCalls, "empty answers are not retried")
	})

	t.Run("Scheduling Line From Persona", func(t *testing.T) {
		svc := newFake()
		svc.failAvailability = 2
		deps := actions.Deps{Policy: guard.Policy{Retries: 1, Backoff: time.Millisecond}}
		deps.Persona.SchedulingLine = "020 7946 0000"
		res, err := actions.NewBooking(svc, deps).CheckAvailability(ctx, call(nil, nil))
		require.NoError(t, err)
		assert.Contains(t, res.Message, "020 7946 0000")
	})
}

func offeredState() map[string]any {
	return map[string]any{
		actions.KeyOfferedDates: []any{
			map[string]any{"date": "2026-10-19", "label": "Monday 19 October"},
			map[string]any{"date": "2026-10-20", "label": "Tuesday 20 October"},
		},
	}
}

func TestSelectTimeSlot(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Date Makes No Calls", func(t *testing.T) {
		svc := newFake()
		res, err := newBooking(svc).SelectTimeSlot(ctx, call(map[string]any{}, offeredState()))
		require.NoError(t, err)

		assert.Equal(t, domain.ReasonIncomplete, res.Reason)
		assert.Equal(t, "I apologize, but I didn't catch which date you preferred. Could you please let me know if you'd prefer Monday 19 October or Tuesday 20 October?", res.Message)
		assert.Equal(t, true, res.Data[actions.KeyMissingDate])
		assert.Zero(t, svc.slotCalls)
	})

	t.Run("Unreadable Date Makes No Calls", func(t *testing.T) {
		svc := newFake()
		res, err := newBooking(svc).SelectTimeSlot(ctx, call(map[string]any{"selected_date": map[string]any{"day": 19}}, offeredState()))
		require.NoError(t, err)

		assert.Equal(t, domain.ReasonIncomplete, res.Reason)
		assert.Equal(t, "I'm sorry, I couldn't read the date. Could you say it again?", res.Message)
		assert.Equal(t, true, res.Data[actions.KeyMissingDate])
		assert.Zero(t, svc.slotCalls)
	})

	t.Run("Unknown Date Is Incomplete", func(t *testing.T) {
		svc := newFake()
		res, err := newBooking(svc).SelectTimeSlot(ctx, call(map[string]any{"selected_date": "Friday"}, offeredState()))
		require.NoError(t, err)
		assert.Equal(t, domain.ReasonIncomplete, res.Reason)
		assert.Zero(t, svc.slotCalls)
	})

	t.Run("Offers Both Slots", func(t *testing.T) {
		svc := newFake()
		res, err := newBooking(svc).SelectTimeSlot(ctx, call(map[string]any{"selected_date": "monday"}, offeredState()))
		require.NoError(t, err)

		assert.True(t, res.OK())
		assert.Equal(t, "Great. On Monday 19 October, I have slots at 10:00 AM or 2:30 PM. Which would you prefer?", res.Message)
		assert.Equal(t, "2026-10-19", svc.lastDate)
		assert.Equal(t, "2026-10-19", res.Data[actions.KeySelectedDateISO])
		assert.NotNil(t, res.Data[actions.KeyMorningSlot])
		assert.NotNil(t, res.Data[actions.KeyAfternoonSlot])
	})

	t.Run("Only Existing Slots Are Offered", func(t *testing.T) {
		svc := newFake()
		svc.candidate.Morning = nil
		res, err := newBooking(svc).SelectTimeSlot(ctx, call(map[string]any{"selected_date": "2026-10-19"}, offeredState()))
		require.NoError(t, err)

		assert.Equal(t, "Great. On Monday 19 October, I have slots at 2:30 PM. Which would you prefer?", res.Message)
		assert.NotContains(t, res.Data, actions.KeyMorningSlot)
		assert.Contains(t, res.Data, actions.KeyAfternoonSlot)
		assert.Contains(t, res.Clears, actions.KeyMorningSlot)
	})

	t.Run("ISO Date Without Offer", func(t *testing.T) {
		svc := newFake()
		res, err := newBooking(svc).SelectTimeSlot(ctx, call(map[string]any{"selected_date": "2026-10-19"}, nil))
		require.NoError(t, err)
		assert.True(t, res.OK())
		assert.Equal(t, "Monday 19 October", res.Data[actions.KeySelectedDate])
	})

	t.Run("No Slots Left", func(t *testing.T) {
		svc := newFake()
		svc.candidate = domain.BookingCandidate{Date: "2026-10-19"}
		res, err := newBooking(svc).SelectTimeSlot(ctx, call(map[string]any{"selected_date": "Monday 19 October"}, offeredState()))
		require.NoError(t, err)

		assert.Equal(t, domain.ReasonEmpty, res.Reason)
		assert.Equal(t, "I apologize, but it seems those time slots are no longer available. Let me check availability again.", res.Message)
		assert.Equal(t, true, res.Data[actions.KeyRetryAvailable])
		assert.Equal(t, 1, svc.slotCalls)
	})

	t.Run("Two Failures", func(t *testing.T) {
		svc := newFake()
		svc.failSlots = 2
		res, err := newBooking(svc).SelectTimeSlot(ctx, call(map[string]any{"selected_date": "monday"}, offeredState()))
		require.NoError(t, err)
		assert.Equal(t, domain.ReasonUnavailable, res.Reason)
		assert.Equal(t, 2, svc.slotCalls)
	})
}

func bookableState() map[string]any {
	return map[string]any{
		actions.KeyName:         "Ada",
		actions.KeyEmail:        "ada@example.com",
		actions.KeyPhone:        "+44 20 7946 0000",
		actions.KeyTimeZone:     "Europe/London",
		actions.KeySelectedDate: "Monday 19 October",
		actions.KeyMorningSlot: map[string]any{
			"date": "2026-10-19", "time": "10:00 AM", "start": morning.Format(time.RFC3339),
		},
		actions.KeyAfternoonSlot: map[string]any{
			"date": "2026-10-19", "time": "2:30 PM", "start": afternoon.Format(time.RFC3339),
		},
	}
}

func TestConfirmBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Slot Makes No Calls", func(t *testing.T) {
		svc := newFake()
		res, err := newBooking(svc).ConfirmBooking(ctx, call(nil, bookableState()))
		require.NoError(t, err)

		assert.Equal(t, domain.ReasonIncomplete, res.Reason)
		assert.Equal(t, true, res.Data[actions.KeyMissingTime])
		assert.Zero(t, svc.createCalls)
	})

	t.Run("Unreadable Slot Makes No Calls", func(t *testing.T) {
		svc := newFake()
		res, err := newBooking(svc).ConfirmBooking(ctx, call(map[string]any{"selected_slot": map[string]any{"hour": 10}}, bookableState()))
		require.NoError(t, err)

		assert.Equal(t, domain.ReasonIncomplete, res.Reason)
		assert.Contains(t, res.Message, "couldn't read the time slot")
		assert.Equal(t, true, res.Data[actions.KeyMissingTime])
		assert.Zero(t, svc.createCalls)
	})

	t.Run("Ambiguous Slot Is Incomplete", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			svc := newFake()
			res, err := newBooking(svc).ConfirmBooking(ctx, call(map[string]any{"selected_slot": "morning or afternoon"}, bookableState()))
			require.NoError(t, err)

			assert.Equal(t, domain.ReasonIncomplete, res.Reason)
			assert.Equal(t, true, res.Data[actions.KeyMissingTime])
			assert.Zero(t, svc.createCalls)
		}
	})

	t.Run("Missing Contact Details", func(t *testing.T) {
		svc := newFake()
		state := bookableState()
		delete(state, actions.KeyPhone)
		res, err := newBooking(svc).ConfirmBooking(ctx, call(map[string]any{"selected_slot": "morning"}, state))
		require.NoError(t, err)

		assert.Equal(t, domain.ReasonIncomplete, res.Reason)
		assert.Contains(t, res.Message, "phone")
		assert.Zero(t, svc.createCalls)
	})

	t.Run("Books Morning Slot", func(t *testing.T) {
		svc := newFake()
		res, err := newBooking(svc).ConfirmBooking(ctx, call(map[string]any{"selected_slot": "morning"}, bookableState()))
		require.NoError(t, err)

		assert.True(t, res.OK())
		assert.Equal(t, "Excellent! I've confirmed your demo for Monday 19 October at 10:00 AM. You'll receive a calendar invitation shortly with all the details. Is there anything else you'd like to know about the demo?", res.Message)
		assert.True(t, morning.Equal(svc.lastRequest.Start))
		assert.Equal(t, "Unknown", svc.lastRequest.Company)
		assert.Equal(t, actions.BookingNotes, svc.lastRequest.Notes)
		assert.Equal(t, "42", res.Data[actions.KeyBooking].(map[string]any)["id"])
	})

	t.Run("Books By Spoken Time", func(t *testing.T) {
		svc := newFake()
		res, err := newBooking(svc).ConfirmBooking(ctx, call(map[string]any{"selected_slot": "2:30 pm"}, bookableState()))
		require.NoError(t, err)
		assert.True(t, res.OK())
		assert.True(t, afternoon.Equal(svc.lastRequest.Start))
	})

	t.Run("Retry Then Success", func(t *testing.T) {
		svc := newFake()
		svc.failCreate = 1
		res, err := newBooking(svc).ConfirmBooking(ctx, call(map[string]any{"selected_slot": "afternoon"}, bookableState()))
		require.NoError(t, err)
		assert.True(t, res.OK())
		assert.Equal(t, 2, svc.createCalls)
	})

	t.Run("Two Failures Offer Callback", func(t *testing.T) {
		svc := newFake()
		svc.failCreate = 2
		res, err := newBooking(svc).ConfirmBooking(ctx, call(map[string]any{"selected_slot": "afternoon"}, bookableState()))
		require.NoError(t, err)

		assert.Equal(t, domain.ReasonUnavailable, res.Reason)
		assert.Contains(t, res.Message, "within the next 30 minutes")
		assert.Equal(t, true, res.Data[actions.KeyBookingFailed])
		assert.Equal(t, 2, svc.createCalls)
	})

	t.Run("Cancelled Context Is A Go Error", func(t *testing.T) {
		svc := newFake()
		svc.failCreate = 5
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := newBooking(svc).ConfirmBooking(cctx, call(map[string]any{"selected_slot": "afternoon"}, bookableState()))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestCollectHandlers(t *testing.T) {
	reg := registry.NewRegistry()
	actions.Register(reg, newFake(), actions.Deps{})

	exec := func(t *testing.T, name string, params map[string]any) domain.ActionResult {
		t.Helper()
		h, ok := reg.Lookup(name)
		require.True(t, ok, name)
		res, err := h.Execute(context.Background(), call(params, nil))
		require.NoError(t, err)
		return res
	}

	tests := []struct {
		name    string
		action  string
		params  map[string]any
		wantOK  bool
		wantKey string
		branch  string
	}{
		{"Consent Given", actions.CollectRecordingConsent, map[string]any{"recording_consent": true}, true, actions.KeyRecordingConsent, ""},
		{"Consent As String", actions.CollectRecordingConsent, map[string]any{"recording_consent": "true"}, true, actions.KeyRecordingConsent, ""},
		{"Consent Declined", actions.CollectRecordingConsent, map[string]any{"recording_consent": false}, true, actions.KeyRecordingConsent, actions.BranchDeclined},
		{"Consent Missing", actions.CollectRecordingConsent, map[string]any{}, false, "", ""},
		{"Name And Interest", actions.CollectNameAndInterest, map[string]any{"name": "Ada", "interest_type": "voice_agent_development"}, true, actions.KeyInterest, ""},
		{"Unknown Interest", actions.CollectNameAndInterest, map[string]any{"name": "Ada", "interest_type": "pizza"}, false, actions.KeyName, ""},
		{"Qualification", actions.CollectQualificationData, map[string]any{"use_case": "support", "timeline": "Q1", "budget": 5000}, true, actions.KeyBudget, ""},
		{"Qualification Gap", actions.CollectQualificationData, map[string]any{"use_case": "support"}, false, "", ""},
		{"Video Call", actions.ChooseVideoCall, nil, true, actions.KeyFollowUp, ""},
		{"Email Follow Up", actions.ChooseEmailFollowUp, map[string]any{"email": "ada@example.com"}, true, actions.KeyEmail, ""},
		{"Email Missing", actions.ChooseEmailFollowUp, map[string]any{"email": "nope"}, false, "", ""},
		{"Email Unreadable", actions.ChooseEmailFollowUp, map[string]any{"email": map[string]any{"user": "ada"}}, false, "", ""},
		{"Contact", actions.CollectContactDetails, map[string]any{"email": "ada@example.com", "phone": "123", "timezone": "Europe/London"}, true, actions.KeyTimeZone, ""},
		{"Contact Bad Zone", actions.CollectContactDetails, map[string]any{"email": "ada@example.com", "phone": "123", "timezone": "Mars/Olympus"}, false, "", ""},
		{"Fallback", actions.AcknowledgeFallback, map[string]any{"preference": "callback"}, true, actions.KeyFallbackChoice, ""},
		{"Fallback Unknown", actions.AcknowledgeFallback, map[string]any{"preference": "carrier pigeon"}, false, "", ""},
		{"Fallback Unreadable", actions.AcknowledgeFallback, map[string]any{"preference": []any{1, 2}}, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := exec(t, tt.action, tt.params)
			assert.NotEmpty(t, res.Message)
			if !tt.wantOK {
				assert.Equal(t, domain.ReasonIncomplete, res.Reason)
			} else {
				assert.True(t, res.OK())
			}
			if tt.wantKey != "" {
				assert.Contains(t, res.Data, tt.wantKey)
			}
			assert.Equal(t, tt.branch, res.Branch)
		})
	}
}

func TestRegisterCoversAllHandlers(t *testing.T) {
	reg := registry.NewRegistry()
	actions.Register(reg, newFake(), actions.Deps{})
	assert.Equal(t, []string{
		actions.AcknowledgeFallback,
		actions.CheckAvailability,
		actions.ChooseEmailFollowUp,
		actions.ChooseVideoCall,
		actions.CollectContactDetails,
		actions.CollectNameAndInterest,
		actions.CollectQualificationData,
		actions.CollectRecordingConsent,
		actions.ConfirmBooking,
		actions.DeclineRecordingConsent,
		actions.SelectTimeSlot,
	}, reg.Names())
}
