// Package leadqual declares the stock lead-qualification and demo-booking flow.
package leadqual

import (
	"github.com/aretw0/callflow/pkg/actions"
	"github.com/aretw0/callflow/pkg/dsl"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/graph"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/aretw0/callflow/pkg/registry"
)

// Name of the flow.
const Name = "lead-qualification"

// Node names.
const (
	NodeRecordingConsent = "recording_consent"
	NodeConsentDeclined  = "consent_declined"
	NodeNameAndInterest  = "name_and_interest"
	NodeQualification    = "qualification"
	NodeOfferFollowUp    = "offer_follow_up"
	NodeContactDetails   = "contact_details"
	NodeAvailability     = "availability"
	NodeTimeSlot         = "time_slot"
	NodeConfirmBooking   = "confirm_booking"
	NodeFallback         = "scheduling_fallback"
	NodeCloseCall        = "close_call"
)

const role = `You are {{.Bot.Name}}, a friendly voice assistant at {{.Bot.Company}}. ` +
	`Your responses will be spoken aloud: keep them short and natural, with no lists or formatting. ` +
	`Call your functions as soon as you have what they need and never read their parameters out loud.
{{.DateLine}}`

// Builder returns the flow as an editable DSL builder.
func Builder() *dsl.Builder {
	b := dsl.New(Name)

	b.Add(NodeRecordingConsent).
		Role(role).
		Task(`Say: "Hi there, I'm {{.Bot.Name}}. We record our calls for quality assurance and training. Is that ok with you?" ` +
			`Only an unconditional yes counts as consent. If the caller asks why, explain that recordings help improve the service and ask again.`).
		Action(actions.CollectRecordingConsent, "Record whether the caller consents to being recorded").
		Param("recording_consent", "boolean", "true only for an explicit, unconditional yes", true).
		Go(NodeNameAndInterest).
		Branch(actions.BranchDeclined, NodeConsentDeclined).
		Action(actions.DeclineRecordingConsent, "The caller refused to be recorded").
		Go(NodeConsentDeclined)

	b.Add(NodeConsentDeclined).
		Task(`Say: "I'm afraid I'll have to end the call now." Then stop.`).
		Terminal()

	b.Add(NodeNameAndInterest).
		Task(`Ask for the caller's full name, then whether they are interested in technical consultancy or voice agent development. ` +
			`As soon as you have both, record them.`).
		Action(actions.CollectNameAndInterest, "Record the caller's full name and primary interest").
		Param("name", "string", "The caller's full name", true).
		Enum("interest_type", "The caller's primary interest", true,
			actions.InterestTechnicalConsultation, actions.InterestVoiceAgentDevelopment).
		Go(NodeQualification)

	b.Add(NodeQualification).
		Task(`Qualify the lead. Ask {{or .Collected.name "the caller"}} what the voice agent should handle, ` +
			`their timeline, their budget (development starts at £1,000) and how they rate this conversation so far. ` +
			`Record everything once you have it, using "None" for anything they will not share.`).
		Action(actions.CollectQualificationData, "Record use case, timeline, budget and interaction feedback").
		Param("use_case", "string", "What the voice agent should do", true).
		Param("timeline", "string", "When the project should be completed", true).
		Param("budget", "string", "Budget allocated for the project", true).
		Param("interaction_feedback", "string", "The caller's rating of this conversation", false).
		Go(NodeOfferFollowUp)

	b.Add(NodeOfferFollowUp).
		Task(`Offer the choice between booking a video call with {{.Bot.Host}} or receiving a follow-up by email.`).
		Action(actions.ChooseVideoCall, "The caller wants to book a video call").
		Go(NodeContactDetails).
		Action(actions.ChooseEmailFollowUp, "The caller prefers an email follow-up").
		Param("email", "string", "Where to send the follow-up", true).
		Go(NodeCloseCall)

	b.Add(NodeContactDetails).
		Task(`Collect the caller's email address, phone number and time zone so we can send the invitation. Company is optional.`).
		Action(actions.CollectContactDetails, "Record contact details for the booking").
		Param("email", "string", "Email address", true).
		Param("phone", "string", "Phone number", true).
		Param("timezone", "string", "IANA time zone, e.g. Europe/London", true).
		Param("company", "string", "Company name", false).
		Go(NodeAvailability)

	b.Add(NodeAvailability).
		Task(`Check the calendar for available days straight away.`).
		Action(actions.CheckAvailability, "Look up available days in the next week").
		Go(NodeTimeSlot).
		Error(NodeFallback).
		Empty(NodeFallback)

	b.Add(NodeTimeSlot).
		Task(`Ask which of the offered days suits the caller, then look up times for it.`).
		Action(actions.SelectTimeSlot, "Look up morning and afternoon slots for the chosen day").
		Param("selected_date", "string", "The day the caller picked, as offered", true).
		Go(NodeConfirmBooking).
		Error(NodeFallback).
		Empty(NodeAvailability)

	b.Add(NodeConfirmBooking).
		Task(`Ask which of the offered times the caller prefers, then book it.`).
		Action(actions.ConfirmBooking, "Book the chosen slot").
		Param("selected_slot", "string", "morning, afternoon or the spoken time", true).
		Go(NodeCloseCall).
		Error(NodeFallback)

	b.Add(NodeFallback).
		Task(`Our scheduling system is unavailable. Ask whether the caller would like a call back from the scheduling team ` +
			`or prefers to ring the scheduling line on {{.Bot.SchedulingLine}}.`).
		Action(actions.AcknowledgeFallback, "Record how the caller wants to be scheduled").
		Enum("preference", "The caller's choice", true, "callback", "scheduling_line").
		Go(NodeCloseCall)

	b.Add(NodeCloseCall).
		Task(`Say: "Thank you for your time {{or .Collected.name ""}}. Have a wonderful rest of your day."`).
		Terminal()

	b.Start(NodeRecordingConsent)
	return b
}

// Definition returns the flow as plain data.
func Definition() *domain.Definition {
	def, err := Builder().Build()
	if err != nil {
		panic(err)
	}
	return def
}

// Registry returns a registry with every handler the flow references.
func Registry(svc ports.BookingService, deps actions.Deps) *registry.Registry {
	reg := registry.NewRegistry()
	actions.Register(reg, svc, deps)
	return reg
}

// New builds and validates the flow over the given booking service.
func New(svc ports.BookingService, deps actions.Deps, opts ...graph.Option) (*graph.Graph, error) {
	return graph.New(Definition(), Registry(svc, deps), opts...)
}
