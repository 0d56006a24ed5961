package domain

import "time"

// AvailableDate is a day with at least one open slot.
type AvailableDate struct {
	// Date is the ISO calendar day (2006-01-02), used as the lookup key.
	Date string `json:"date"`
	// Label is the spoken form, e.g. "Monday 20 October".
	Label string `json:"label"`
}

// Slot is one offered appointment time.
type Slot struct {
	Date  string    `json:"date" mapstructure:"date"`
	Time  string    `json:"time" mapstructure:"time"`
	Start time.Time `json:"start" mapstructure:"start"`
}

// BookingCandidate pairs at most one morning and one afternoon slot for a date.
// It is re-derived from the scheduling service on every query.
type BookingCandidate struct {
	Date      string `json:"date"`
	Morning   *Slot  `json:"morning,omitempty"`
	Afternoon *Slot  `json:"afternoon,omitempty"`
}

// Empty reports whether neither slot exists.
func (c BookingCandidate) Empty() bool {
	return c.Morning == nil && c.Afternoon == nil
}

// Slots returns the existing slots, morning first.
func (c BookingCandidate) Slots() []Slot {
	var out []Slot
	if c.Morning != nil {
		out = append(out, *c.Morning)
	}
	if c.Afternoon != nil {
		out = append(out, *c.Afternoon)
	}
	return out
}

// BookingRequest carries the caller-identifying fields sent to the scheduling service.
type BookingRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Company  string    `json:"company"`
	Phone    string    `json:"phone"`
	TimeZone string    `json:"timezone"`
	Start    time.Time `json:"start"`
	Notes    string    `json:"notes,omitempty"`
}

// Booking is the confirmation returned by the scheduling service.
type Booking struct {
	ID     string    `json:"id"`
	UID    string    `json:"uid,omitempty"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end,omitempty"`
	Status string    `json:"status,omitempty"`
}
