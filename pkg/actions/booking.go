package actions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/guard"
	"github.com/aretw0/callflow/pkg/ports"
)

// Booking holds the handlers that reach the external scheduling service.
type Booking struct {
	service ports.BookingService
	deps    Deps
	logger  *slog.Logger
}

// NewBooking creates the booking handlers over svc.
func NewBooking(svc ports.BookingService, deps Deps) *Booking {
	deps = deps.withDefaults()
	return &Booking{service: svc, deps: deps, logger: deps.Logger}
}

// CheckAvailability looks up open days and offers the first two.
func (b *Booking) CheckAvailability(ctx context.Context, call ports.ActionCall) (domain.ActionResult, error) {
	dates, attempts, err := guard.Call(ctx, b.deps.Policy, func(ctx context.Context) ([]domain.AvailableDate, error) {
		return b.service.Availability(ctx, LookAheadDays)
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.ActionResult{}, ctx.Err()
		}
		b.logger.Warn("availability check failed", "session", call.SessionID, "attempts", attempts, "error", err)
		return domain.Unavailable(
			fmt.Sprintf("I sincerely apologize, but we're experiencing some technical difficulties with our scheduling system. "+
				"Would it be alright if I had our scheduling team call you back within the next hour to set up the demo? "+
				"They can be reached directly at our scheduling line if you prefer: %s.", b.deps.Persona.SchedulingLine),
			map[string]any{KeyAvailabilityFail: true},
		), nil
	}

	if len(dates) == 0 {
		return domain.Empty(
			fmt.Sprintf("I apologize, but I'm not seeing any available slots in the next %d days. "+
				"Would it be alright if I had our scheduling team call you to find a time that works for you?", LookAheadDays),
			map[string]any{KeyNoAvailability: true},
		), nil
	}

	if len(dates) > maxOfferedDates {
		dates = dates[:maxOfferedDates]
	}
	labels := make([]string, 0, len(dates))
	offered := make([]any, 0, len(dates))
	for _, d := range dates {
		labels = append(labels, d.Label)
		offered = append(offered, map[string]any{"date": d.Date, "label": d.Label})
	}

	return domain.Success(
		fmt.Sprintf("I see we have availability on %s. Which day would work better for you?", joinOr(labels)),
		map[string]any{
			KeyAvailableDates: labels,
			KeyOfferedDates:   offered,
		},
	).Clearing(
		// a fresh offer invalidates any earlier pick
		KeyAvailabilityFail, KeyNoAvailability, KeyRetryAvailable,
		KeySelectedDate, KeySelectedDateISO,
		KeyMorningSlot, KeyAfternoonSlot, KeyOfferedSlots,
	), nil
}

type dateParams struct {
	SelectedDate string `mapstructure:"selected_date"`
}

// SelectTimeSlot offers the morning and afternoon slots of the chosen day.
func (b *Booking) SelectTimeSlot(ctx context.Context, call ports.ActionCall) (domain.ActionResult, error) {
	var p dateParams
	if err := decode(call.Params, &p); err != nil {
		return unreadable("the date", KeyMissingDate), nil
	}

	offered, err := offeredDates(call.Collected)
	if err != nil {
		b.logger.Warn("offered dates unreadable", "session", call.SessionID, "error", err)
	}
	date, ok := resolveDate(clean(p.SelectedDate), offered)
	if !ok {
		return domain.Incomplete(missingDateMessage(offered), map[string]any{KeyMissingDate: true}), nil
	}

	candidate, attempts, err := guard.Call(ctx, b.deps.Policy, func(ctx context.Context) (domain.BookingCandidate, error) {
		return b.service.SlotsForDate(ctx, date.Date)
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.ActionResult{}, ctx.Err()
		}
		b.logger.Warn("slot lookup failed", "session", call.SessionID, "date", date.Date, "attempts", attempts, "error", err)
		return domain.Unavailable(
			fmt.Sprintf("I sincerely apologize, but we're experiencing some technical difficulties with our scheduling system. "+
				"Would it be alright if I had our scheduling team call you back within the next hour to set up the demo? "+
				"They can be reached directly at our scheduling line if you prefer: %s.", b.deps.Persona.SchedulingLine),
			map[string]any{KeyAvailabilityFail: true},
		), nil
	}

	if candidate.Empty() {
		return domain.Empty(
			"I apologize, but it seems those time slots are no longer available. Let me check availability again.",
			map[string]any{KeyRetryAvailable: true},
		).Clearing(KeyMorningSlot, KeyAfternoonSlot, KeyOfferedSlots), nil
	}

	times := make([]string, 0, 2)
	for _, s := range candidate.Slots() {
		times = append(times, s.Time)
	}
	data := map[string]any{
		KeySelectedDate:    date.Label,
		KeySelectedDateISO: date.Date,
		KeyOfferedSlots:    times,
	}
	if candidate.Morning != nil {
		data[KeyMorningSlot] = slotData(*candidate.Morning)
	}
	if candidate.Afternoon != nil {
		data[KeyAfternoonSlot] = slotData(*candidate.Afternoon)
	}

	return domain.Success(
		fmt.Sprintf("Great. On %s, I have slots at %s. Which would you prefer?", date.Label, joinOr(times)),
		data,
	).Clearing(KeyMissingDate, KeyMorningSlot, KeyAfternoonSlot), nil
}

type slotParams struct {
	SelectedSlot string `mapstructure:"selected_slot"`
}

type contactFields struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Phone    string `mapstructure:"phone"`
	Company  string `mapstructure:"company"`
	TimeZone string `mapstructure:"timezone"`
}

// ConfirmBooking books the chosen slot for the caller.
func (b *Booking) ConfirmBooking(ctx context.Context, call ports.ActionCall) (domain.ActionResult, error) {
	var p slotParams
	if err := decode(call.Params, &p); err != nil {
		return unreadable("the time slot", KeyMissingTime), nil
	}

	slot, ok := resolveSlot(clean(p.SelectedSlot), call.Collected)
	if !ok {
		return domain.Incomplete(
			"I apologize, but I didn't catch which time slot you preferred. Could you please let me know which time works better for you?",
			map[string]any{KeyMissingTime: true},
		), nil
	}

	var contact contactFields
	if err := decode(call.Collected, &contact); err != nil {
		return unreadable("your contact details", KeyMissingContact), nil
	}
	if gaps := missing(map[string]string{
		KeyName:     contact.Name,
		KeyEmail:    contact.Email,
		KeyPhone:    contact.Phone,
		KeyTimeZone: contact.TimeZone,
	}); len(gaps) > 0 {
		return domain.Incomplete(
			fmt.Sprintf("Before I can book this I still need your %s.", joinAnd(gaps)),
			map[string]any{KeyMissingContact: true},
		), nil
	}

	company := clean(contact.Company)
	if company == "" {
		company = "Unknown"
	}
	req := domain.BookingRequest{
		Name:     clean(contact.Name),
		Email:    clean(contact.Email),
		Company:  company,
		Phone:    clean(contact.Phone),
		TimeZone: clean(contact.TimeZone),
		Start:    slot.Start,
		Notes:    BookingNotes,
	}

	booking, attempts, err := guard.Call(ctx, b.deps.Policy, func(ctx context.Context) (*domain.Booking, error) {
		return b.service.CreateBooking(ctx, req)
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.ActionResult{}, ctx.Err()
		}
		b.logger.Warn("booking failed", "session", call.SessionID, "start", req.Start, "attempts", attempts, "error", err)
		return domain.Unavailable(
			fmt.Sprintf("I sincerely apologize, but our booking system seems to be having issues right now. "+
				"To make sure you get this time slot, I can have our scheduling team call you back within the next 30 minutes to confirm it. "+
				"Alternatively, you can book directly through our scheduling line at %s. Which would you prefer?", b.deps.Persona.SchedulingLine),
			map[string]any{KeyBookingFailed: true},
		), nil
	}

	day := stringField(call.Collected, KeySelectedDate)
	if day == "" {
		day = slot.Date
	}
	return domain.Success(
		fmt.Sprintf("Excellent! I've confirmed your demo for %s at %s. "+
			"You'll receive a calendar invitation shortly with all the details. "+
			"Is there anything else you'd like to know about the demo?", day, slot.Time),
		map[string]any{
			KeyBooking:    bookingData(booking),
			KeyBookedSlot: slotData(slot),
		},
	).Clearing(KeyMissingTime, KeyMissingContact, KeyBookingFailed), nil
}

func offeredDates(collected map[string]any) ([]domain.AvailableDate, error) {
	var out []domain.AvailableDate
	raw, ok := collected[KeyOfferedDates]
	if !ok {
		return nil, nil
	}
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveDate matches the caller's pick against the offered days by ISO date,
// spoken label or weekday. Without an offer only an ISO date is accepted.
func resolveDate(pick string, offered []domain.AvailableDate) (domain.AvailableDate, bool) {
	if pick == "" {
		return domain.AvailableDate{}, false
	}
	if len(offered) == 0 {
		t, err := time.Parse(time.DateOnly, pick)
		if err != nil {
			return domain.AvailableDate{}, false
		}
		return domain.AvailableDate{Date: pick, Label: t.Format("Monday 2 January")}, true
	}

	want := strings.ToLower(pick)
	for _, d := range offered {
		if want == d.Date || want == strings.ToLower(d.Label) {
			return d, true
		}
	}
	for _, d := range offered {
		label := strings.ToLower(d.Label)
		if label == "" {
			continue
		}
		if strings.Contains(label, want) || strings.Contains(want, label) {
			return d, true
		}
	}
	return domain.AvailableDate{}, false
}

func missingDateMessage(offered []domain.AvailableDate) string {
	if len(offered) == 0 {
		return "I apologize, but I didn't catch which date you preferred. Could you please let me know which day works best for you?"
	}
	labels := make([]string, 0, len(offered))
	for _, d := range offered {
		labels = append(labels, d.Label)
	}
	return fmt.Sprintf("I apologize, but I didn't catch which date you preferred. Could you please let me know if you'd prefer %s?", joinOr(labels))
}

var slotParts = []struct{ name, key string }{
	{"morning", KeyMorningSlot},
	{"afternoon", KeyAfternoonSlot},
}

// resolveSlot picks the morning or afternoon candidate stored by SelectTimeSlot.
// A pick matching both candidates is ambiguous and resolves to nothing.
func resolveSlot(pick string, collected map[string]any) (domain.Slot, bool) {
	if pick == "" {
		return domain.Slot{}, false
	}
	want := normalizeTime(pick)

	var matches []domain.Slot
	for _, part := range slotParts {
		raw, ok := collected[part.key]
		if !ok || raw == nil {
			continue
		}
		var s domain.Slot
		if err := decode(raw, &s); err != nil || s.Start.IsZero() {
			continue
		}
		if strings.Contains(want, part.name) || want == normalizeTime(s.Time) {
			matches = append(matches, s)
		}
	}
	if len(matches) != 1 {
		return domain.Slot{}, false
	}
	return matches[0], true
}

func normalizeTime(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(" ", "", ".", "", ":00", "").Replace(s)
	return s
}

func slotData(s domain.Slot) map[string]any {
	return map[string]any{
		"date":  s.Date,
		"time":  s.Time,
		"start": s.Start.Format(time.RFC3339),
	}
}

func bookingData(b *domain.Booking) map[string]any {
	if b == nil {
		return map[string]any{}
	}
	out := map[string]any{
		"id":     b.ID,
		"start":  b.Start.Format(time.RFC3339),
		"status": b.Status,
	}
	if b.UID != "" {
		out["uid"] = b.UID
	}
	if !b.End.IsZero() {
		out["end"] = b.End.Format(time.RFC3339)
	}
	return out
}
