package leadqual_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/callflow/internal/runtime"
	"github.com/aretw0/callflow/pkg/actions"
	"github.com/aretw0/callflow/pkg/adapters/memory"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/flows/leadqual"
	"github.com/aretw0/callflow/pkg/guard"
	"github.com/aretw0/callflow/pkg/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBooking struct {
	down  bool
	calls int
}

func (s *stubBooking) Availability(ctx context.Context, days int) ([]domain.AvailableDate, error) {
	s.calls++
	if s.down {
		return nil, errors.New("503")
	}
	return []domain.AvailableDate{
		{Date: "2026-10-19", Label: "Monday 19 October"},
		{Date: "2026-10-20", Label: "Tuesday 20 October"},
	}, nil
}

func (s *stubBooking) SlotsForDate(ctx context.Context, date string) (domain.BookingCandidate, error) {
	s.calls++
	start := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	return domain.BookingCandidate{
		Date:    date,
		Morning: &domain.Slot{Date: date, Time: "9:00 AM", Start: start},
	}, nil
}

func (s *stubBooking) CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	s.calls++
	return &domain.Booking{ID: "b-1", Start: req.Start, Status: "accepted"}, nil
}

func newConversation(t *testing.T, svc *stubBooking) (*runtime.Dispatcher, *memory.Transcript) {
	t.Helper()
	g, err := leadqual.New(svc, actions.Deps{Policy: guard.Policy{Retries: 1, Backoff: time.Millisecond}})
	require.NoError(t, err)

	clock := func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) }
	tr := memory.NewTranscript()
	d := runtime.New(g, tr, runtime.WithRenderer(prompts.NewRenderer(prompts.DefaultPersona(), prompts.WithClock(clock))))
	_, err = d.Initialize(context.Background())
	require.NoError(t, err)
	return d, tr
}

func invoke(t *testing.T, d *runtime.Dispatcher, action string, params map[string]any) string {
	t.Helper()
	out, err := d.Invoke(context.Background(), action, params)
	require.NoError(t, err, action)
	return out.To
}

func TestGraphIsValid(t *testing.T) {
	g, err := leadqual.New(&stubBooking{}, actions.Deps{})
	require.NoError(t, err)
	assert.Equal(t, leadqual.NodeRecordingConsent, g.InitialNode())
	assert.Empty(t, g.Unreachable())
}

func TestInitialMessagesCarryPersonaAndDate(t *testing.T) {
	_, tr := newConversation(t, &stubBooking{})
	msgs := tr.Messages()
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0].Content, "Marissa")
	assert.Contains(t, msgs[0].Content, "Today's day of the week and date in the UK is: Saturday, 17 October 2026")
}

func TestHappyPathBooksDemo(t *testing.T) {
	svc := &stubBooking{}
	d, tr := newConversation(t, svc)

	assert.Equal(t, leadqual.NodeNameAndInterest, invoke(t, d, actions.CollectRecordingConsent, map[string]any{"recording_consent": true}))
	assert.Equal(t, leadqual.NodeQualification, invoke(t, d, actions.CollectNameAndInterest, map[string]any{"name": "Ada Lovelace", "interest_type": "voice_agent_development"}))
	assert.Equal(t, leadqual.NodeOfferFollowUp, invoke(t, d, actions.CollectQualificationData, map[string]any{"use_case": "support", "timeline": "Q1", "budget": "5000"}))
	assert.Equal(t, leadqual.NodeContactDetails, invoke(t, d, actions.ChooseVideoCall, nil))
	assert.Equal(t, leadqual.NodeAvailability, invoke(t, d, actions.CollectContactDetails, map[string]any{"email": "ada@example.com", "phone": "123", "timezone": "Europe/London"}))
	assert.Equal(t, leadqual.NodeTimeSlot, invoke(t, d, actions.CheckAvailability, nil))
	assert.Equal(t, leadqual.NodeConfirmBooking, invoke(t, d, actions.SelectTimeSlot, map[string]any{"selected_date": "Tuesday"}))
	assert.Equal(t, leadqual.NodeCloseCall, invoke(t, d, actions.ConfirmBooking, map[string]any{"selected_slot": "morning"}))

	st := d.State()
	assert.True(t, st.Terminated())
	assert.Contains(t, st.Collected, actions.KeyBooking)

	last := tr.Messages()[len(tr.Messages())-1]
	assert.Contains(t, last.Content, "Thank you for your time Ada Lovelace")
	assert.Equal(t, 3, svc.calls)
}

func TestDeclinedConsentEndsCall(t *testing.T) {
	d, _ := newConversation(t, &stubBooking{})
	assert.Equal(t, leadqual.NodeConsentDeclined, invoke(t, d, actions.CollectRecordingConsent, map[string]any{"recording_consent": false}))

	select {
	case <-d.Done():
	default:
		t.Fatal("conversation should have ended")
	}
}

func TestSchedulingOutageFallsBack(t *testing.T) {
	svc := &stubBooking{down: true}
	d, _ := newConversation(t, svc)

	invoke(t, d, actions.CollectRecordingConsent, map[string]any{"recording_consent": true})
	invoke(t, d, actions.CollectNameAndInterest, map[string]any{"name": "Ada", "interest_type": "technical_consultation"})
	invoke(t, d, actions.CollectQualificationData, map[string]any{"use_case": "x", "timeline": "y", "budget": "z"})
	invoke(t, d, actions.ChooseVideoCall, nil)
	invoke(t, d, actions.CollectContactDetails, map[string]any{"email": "a@b.co", "phone": "1", "timezone": "UTC"})

	out, err := d.Invoke(context.Background(), actions.CheckAvailability, nil)
	require.NoError(t, err)
	assert.Equal(t, leadqual.NodeFallback, out.To)
	assert.Contains(t, out.Result.Message, "555-0123")
	assert.Equal(t, 2, svc.calls)

	assert.Equal(t, leadqual.NodeCloseCall, invoke(t, d, actions.AcknowledgeFallback, map[string]any{"preference": "callback"}))
}

func TestEmailFollowUpSkipsBooking(t *testing.T) {
	svc := &stubBooking{}
	d, _ := newConversation(t, svc)

	invoke(t, d, actions.CollectRecordingConsent, map[string]any{"recording_consent": "true"})
	invoke(t, d, actions.CollectNameAndInterest, map[string]any{"name": "Ada", "interest_type": "technical_consultation"})
	invoke(t, d, actions.CollectQualificationData, map[string]any{"use_case": "x", "timeline": "y", "budget": "z"})
	assert.Equal(t, leadqual.NodeCloseCall, invoke(t, d, actions.ChooseEmailFollowUp, map[string]any{"email": "ada@example.com"}))
	assert.Zero(t, svc.calls)
}
