package ports

import (
	"context"

	"github.com/aretw0/callflow/pkg/domain"
)

// BookingService is the external scheduling service used by the booking handlers.
// Every method is a fallible network call.
type BookingService interface {
	// Availability lists the days with open slots within the next daysAhead days.
	Availability(ctx context.Context, daysAhead int) ([]domain.AvailableDate, error)

	// SlotsForDate returns at most one morning and one afternoon slot for the given ISO date.
	SlotsForDate(ctx context.Context, date string) (domain.BookingCandidate, error)

	// CreateBooking submits a booking for the chosen slot.
	CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error)
}
