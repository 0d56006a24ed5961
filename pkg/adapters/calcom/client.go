// Package calcom implements ports.BookingService against a Cal.com v2 style scheduling API.
package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/guard"
	"github.com/aretw0/callflow/pkg/ports"
)

const (
	DefaultBaseURL = "https://api.cal.com/v2"

	slotsAPIVersion    = "2024-09-04"
	bookingsAPIVersion = "2024-08-13"

	maxResponseBytes = 1 << 20
	noon             = 12
)

// Client talks to the scheduling API.
type Client struct {
	baseURL     string
	apiKey      string
	eventTypeID int
	httpClient  *http.Client
	location    *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

var _ ports.BookingService = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLocation sets the zone used to group slots into days and to label them.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		c.location = loc
	}
}

// WithClock overrides the time source used for availability windows.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the given API key and event type.
func New(apiKey string, eventTypeID int, opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		eventTypeID: eventTypeID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		location: time.UTC,
		now:      time.Now,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type slot struct {
	Start time.Time `json:"start"`
}

type envelope[T any] struct {
	Status string `json:"status"`
	Data   T      `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Availability lists the days with at least one slot between today and daysAhead days from now.
func (c *Client) Availability(ctx context.Context, daysAhead int) ([]domain.AvailableDate, error) {
	if daysAhead <= 0 {
		daysAhead = 1
	}
	today := c.today()
	slots, err := c.slots(ctx, today, today.AddDate(0, 0, daysAhead))
	if err != nil {
		return nil, err
	}

	dates := make([]domain.AvailableDate, 0, len(slots))
	for iso, day := range slots {
		if len(day) == 0 {
			continue
		}
		d, err := time.ParseInLocation(time.DateOnly, iso, c.location)
		if err != nil {
			c.logger.Warn("skipping malformed slot date", "date", iso, "error", err)
			continue
		}
		dates = append(dates, domain.AvailableDate{Date: iso, Label: d.Format("Monday 2 January")})
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Date < dates[j].Date })
	return dates, nil
}

// SlotsForDate returns the first morning and first afternoon slot of the day.
func (c *Client) SlotsForDate(ctx context.Context, date string) (domain.BookingCandidate, error) {
	day, err := time.ParseInLocation(time.DateOnly, date, c.location)
	if err != nil {
		return domain.BookingCandidate{}, guard.Permanent(fmt.Errorf("invalid date %q: %w", date, err))
	}
	slots, err := c.slots(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return domain.BookingCandidate{}, err
	}
	return partition(date, slots[date], c.location), nil
}

// partition keeps the earliest slot before noon and the earliest from noon on.
func partition(date string, slots []slot, loc *time.Location) domain.BookingCandidate {
	sorted := append([]slot(nil), slots...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	out := domain.BookingCandidate{Date: date}
	for _, s := range sorted {
		local := s.Start.In(loc)
		ds := &domain.Slot{Date: date, Time: local.Format("3:04 PM"), Start: s.Start}
		switch {
		case local.Hour() < noon && out.Morning == nil:
			out.Morning = ds
		case local.Hour() >= noon && out.Afternoon == nil:
			out.Afternoon = ds
		}
	}
	return out
}

func (c *Client) slots(ctx context.Context, from, to time.Time) (map[string][]slot, error) {
	q := make(map[string]string, 4)
	q["eventTypeId"] = strconv.Itoa(c.eventTypeID)
	q["start"] = from.Format(time.DateOnly)
	q["end"] = to.Format(time.DateOnly)
	q["timeZone"] = c.location.String()

	var env envelope[map[string][]slot]
	if err := c.do(ctx, http.MethodGet, "/slots", slotsAPIVersion, q, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

type attendee struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	TimeZone    string `json:"timeZone"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type bookingBody struct {
	Start                   string            `json:"start"`
	EventTypeID             int               `json:"eventTypeId"`
	Attendee                attendee          `json:"attendee"`
	BookingFieldsResponses  map[string]string `json:"bookingFieldsResponses,omitempty"`
	Metadata                map[string]string `json:"metadata,omitempty"`
}

type bookingData struct {
	ID     int       `json:"id"`
	UID    string    `json:"uid"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status"`
}

// CreateBooking books req.Start for the attendee.
func (c *Client) CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	if req.Start.IsZero() {
		return nil, guard.Permanent(fmt.Errorf("booking start is required"))
	}
	body := bookingBody{
		Start:       req.Start.UTC().Format(time.RFC3339),
		EventTypeID: c.eventTypeID,
		Attendee: attendee{
			Name:        req.Name,
			Email:       req.Email,
			TimeZone:    req.TimeZone,
			PhoneNumber: req.Phone,
		},
		BookingFieldsResponses: map[string]string{"notes": req.Notes},
		Metadata:               map[string]string{"company": req.Company},
	}

	var env envelope[bookingData]
	if err := c.do(ctx, http.MethodPost, "/bookings", bookingsAPIVersion, nil, body, &env); err != nil {
		return nil, err
	}
	return &domain.Booking{
		ID:     strconv.Itoa(env.Data.ID),
		UID:    env.Data.UID,
		Start:  env.Data.Start,
		End:    env.Data.End,
		Status: env.Data.Status,
	}, nil
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scheduling API returned %d: %s", e.Code, e.Body)
}

func (c *Client) do(ctx context.Context, method, path, version string, query map[string]string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return guard.Permanent(fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return guard.Permanent(fmt.Errorf("create request: %w", err))
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("cal-api-version", version)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("scheduling API call", "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Rejections get the same single retry as outages.
		return &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) today() time.Time {
	now := c.now().In(c.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.location)
}
