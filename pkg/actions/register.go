package actions

import (
	"log/slog"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/pkg/guard"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/aretw0/callflow/pkg/prompts"
	"github.com/aretw0/callflow/pkg/registry"
)

// Deps are the collaborators shared by the handlers.
type Deps struct {
	Persona prompts.Persona
	Policy  guard.Policy
	Logger  *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Policy == (guard.Policy{}) {
		d.Policy = guard.DefaultPolicy()
	}
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	if d.Persona.SchedulingLine == "" {
		d.Persona.SchedulingLine = prompts.DefaultPersona().SchedulingLine
	}
	return d
}

// Register installs every lead-qualification handler into reg.
// The booking handlers call svc.
func Register(reg *registry.Registry, svc ports.BookingService, deps Deps) {
	reg.RegisterFunc(CollectRecordingConsent, collectRecordingConsent)
	reg.RegisterFunc(DeclineRecordingConsent, declineRecordingConsent)
	reg.RegisterFunc(CollectNameAndInterest, collectNameAndInterest)
	reg.RegisterFunc(CollectQualificationData, collectQualificationData)
	reg.RegisterFunc(ChooseVideoCall, chooseVideoCall)
	reg.RegisterFunc(ChooseEmailFollowUp, chooseEmailFollowUp)
	reg.RegisterFunc(CollectContactDetails, collectContactDetails)
	reg.RegisterFunc(AcknowledgeFallback, acknowledgeFallback)

	b := NewBooking(svc, deps)
	reg.RegisterFunc(CheckAvailability, b.CheckAvailability)
	reg.RegisterFunc(SelectTimeSlot, b.SelectTimeSlot)
	reg.RegisterFunc(ConfirmBooking, b.ConfirmBooking)
}
