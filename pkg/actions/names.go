package actions

// Handler names as referenced by graph definitions.
const (
	CollectRecordingConsent  = "collect_recording_consent"
	DeclineRecordingConsent  = "decline_recording_consent"
	CollectNameAndInterest   = "collect_name_and_interest"
	CollectQualificationData = "collect_qualification_data"
	ChooseVideoCall          = "choose_video_call"
	ChooseEmailFollowUp      = "choose_email_follow_up"
	CollectContactDetails    = "collect_contact_details"
	CheckAvailability        = "check_availability"
	SelectTimeSlot           = "select_time_slot"
	ConfirmBooking           = "confirm_booking"
	AcknowledgeFallback      = "acknowledge_fallback"
)

// BranchDeclined routes a refused recording consent.
const BranchDeclined = "declined"

// Interest types accepted by collect_name_and_interest.
const (
	InterestTechnicalConsultation = "technical_consultation"
	InterestVoiceAgentDevelopment = "voice_agent_development"
)

// Keys written into the collected fields.
const (
	KeyRecordingConsent = "recording_consent"
	KeyName             = "name"
	KeyInterest         = "interest_type"
	KeyUseCase          = "use_case"
	KeyTimeline         = "timeline"
	KeyBudget           = "budget"
	KeyFeedback         = "interaction_feedback"
	KeyFollowUp         = "follow_up"
	KeyEmail            = "email"
	KeyPhone            = "phone"
	KeyCompany          = "company"
	KeyTimeZone         = "timezone"

	KeyAvailableDates   = "available_dates"
	KeyOfferedDates     = "offered_dates"
	KeySelectedDate     = "selected_date"
	KeySelectedDateISO  = "selected_date_iso"
	KeyMorningSlot      = "morning_slot"
	KeyAfternoonSlot    = "afternoon_slot"
	KeyOfferedSlots     = "offered_slots"
	KeyBooking          = "booking"
	KeyBookedSlot       = "booked_slot"
	KeyFallbackChoice   = "fallback_preference"
	KeyAvailabilityFail = "availability_check_failed"
	KeyNoAvailability   = "no_availability"
	KeyRetryAvailable   = "retry_availability"
	KeyBookingFailed    = "booking_failed"
	KeyMissingDate      = "missing_date"
	KeyMissingTime      = "missing_time"
	KeyMissingContact   = "missing_contact_details"
)

// LookAheadDays is the availability window requested from the scheduling service.
const LookAheadDays = 7

// maxOfferedDates keeps the spoken menu short.
const maxOfferedDates = 2

// BookingNotes is attached to every booking created by the flow.
const BookingNotes = "Booking from AI Lead Qualifier"
