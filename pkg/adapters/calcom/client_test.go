package calcom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/guard"
)

func fixedClock() time.Time {
	return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	return New("secret", 42,
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithLocation(london),
		WithClock(fixedClock),
	)
}

func TestAvailability(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/slots", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, slotsAPIVersion, r.Header.Get("cal-api-version"))
		assert.Equal(t, "42", r.URL.Query().Get("eventTypeId"))
		assert.Equal(t, "2026-10-17", r.URL.Query().Get("start"))
		assert.Equal(t, "2026-10-24", r.URL.Query().Get("end"))
		assert.Equal(t, "Europe/London", r.URL.Query().Get("timeZone"))

		_, _ = w.Write([]byte(`{"status":"success","data":{
			"2026-10-20":[{"start":"2026-10-20T09:00:00.000+01:00"}],
			"2026-10-19":[{"start":"2026-10-19T14:00:00.000+01:00"}],
			"2026-10-21":[]
		}}`))
	})

	dates, err := c.Availability(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []domain.AvailableDate{
		{Date: "2026-10-19", Label: "Monday 19 October"},
		{Date: "2026-10-20", Label: "Tuesday 20 October"},
	}, dates)
}

func TestSlotsForDatePartitionsByNoon(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2026-10-20", r.URL.Query().Get("start"))
		assert.Equal(t, "2026-10-21", r.URL.Query().Get("end"))
		_, _ = w.Write([]byte(`{"status":"success","data":{"2026-10-20":[
			{"start":"2026-10-20T15:30:00+01:00"},
			{"start":"2026-10-20T10:00:00+01:00"},
			{"start":"2026-10-20T09:00:00+01:00"},
			{"start":"2026-10-20T13:00:00+01:00"}
		]}}`))
	})

	cand, err := c.SlotsForDate(context.Background(), "2026-10-20")
	require.NoError(t, err)
	require.NotNil(t, cand.Morning)
	require.NotNil(t, cand.Afternoon)
	assert.Equal(t, "9:00 AM", cand.Morning.Time)
	assert.Equal(t, "1:00 PM", cand.Afternoon.Time)
	assert.Equal(t, "2026-10-20", cand.Afternoon.Date)
}

func TestSlotsForDateMorningOnly(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"2026-10-20":[{"start":"2026-10-20T11:45:00+01:00"}]}}`))
	})

	cand, err := c.SlotsForDate(context.Background(), "2026-10-20")
	require.NoError(t, err)
	require.NotNil(t, cand.Morning)
	assert.Nil(t, cand.Afternoon)
	assert.Equal(t, "11:45 AM", cand.Morning.Time)
}

func TestSlotsForDateRejectsBadDate(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := c.SlotsForDate(context.Background(), "next tuesday")
	require.Error(t, err)
	assert.True(t, guard.IsPermanent(err))
	assert.Zero(t, calls.Load())
}

func TestCreateBooking(t *testing.T) {
	start := time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bookings", r.URL.Path)
		assert.Equal(t, bookingsAPIVersion, r.Header.Get("cal-api-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body bookingBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-10-20T08:00:00Z", body.Start)
		assert.Equal(t, 42, body.EventTypeID)
		assert.Equal(t, "Ada", body.Attendee.Name)
		assert.Equal(t, "+441234", body.Attendee.PhoneNumber)
		assert.Equal(t, "Acme", body.Metadata["company"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":7,"uid":"bk_1","start":"2026-10-20T08:00:00Z","end":"2026-10-20T08:30:00Z","status":"accepted"}}`))
	})

	b, err := c.CreateBooking(context.Background(), domain.BookingRequest{
		Name:     "Ada",
		Email:    "ada@example.com",
		Company:  "Acme",
		Phone:    "+441234",
		TimeZone: "Europe/London",
		Start:    start,
		Notes:    "note",
	})
	require.NoError(t, err)
	assert.Equal(t, "7", b.ID)
	assert.Equal(t, "bk_1", b.UID)
	assert.Equal(t, "accepted", b.Status)
	assert.True(t, b.Start.Equal(start))
}

func TestStatusErrorsAreRetryable(t *testing.T) {
	tests := []struct {
		name string
		code int
	}{
		{"bad request", http.StatusBadRequest},
		{"unauthorized", http.StatusUnauthorized},
		{"timeout", http.StatusRequestTimeout},
		{"rate limited", http.StatusTooManyRequests},
		{"server error", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(`{"status":"error"}`))
			})
			_, err := c.Availability(context.Background(), 7)
			require.Error(t, err)
			assert.False(t, guard.IsPermanent(err))

			var serr *StatusError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.code, serr.Code)
		})
	}
}

func TestGuardRetriesServerErrorOnce(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"2026-10-19":[{"start":"2026-10-19T10:00:00+01:00"}]}}`))
	})

	p := guard.Policy{Retries: 1, Backoff: time.Millisecond}
	dates, attempts, err := guard.Call(context.Background(), p, func(ctx context.Context) ([]domain.AvailableDate, error) {
		return c.Availability(ctx, 7)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Len(t, dates, 1)
}

func TestGuardRetriesRejectedBookingOnce(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusConflict} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(code)
				_, _ = w.Write([]byte(`{"status":"error","error":{"message":"slot no longer available"}}`))
			})

			p := guard.Policy{Retries: 1, Backoff: time.Millisecond}
			_, attempts, err := guard.Call(context.Background(), p, func(ctx context.Context) (*domain.Booking, error) {
				return c.CreateBooking(ctx, domain.BookingRequest{Name: "Ada", Start: fixedClock().Add(24 * time.Hour)})
			})
			require.Error(t, err)
			assert.Equal(t, 2, attempts)
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}
