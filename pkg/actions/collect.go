package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/ports"
)

type consentParams struct {
	RecordingConsent *bool `mapstructure:"recording_consent"`
}

func collectRecordingConsent(_ context.Context, call ports.ActionCall) (domain.ActionResult, error) {
	var p consentParams
	if err := decode(call.Params, &p); err != nil || p.RecordingConsent == nil {
		return domain.Incomplete(
			"I'm sorry, I didn't catch that. We need your explicit consent to be recorded on this call. If you don't agree, I'll have to end the call.",
			nil,
		), nil
	}
	data := map[string]any{KeyRecordingConsent: *p.RecordingConsent}
	if !*p.RecordingConsent {
		return domain.Success("The caller declined to be recorded.", data).WithBranch(BranchDeclined), nil
	}
	return domain.Success("The caller consented to being recorded.", data), nil
}

func declineRecordingConsent(_ context.Context, _ ports.ActionCall) (domain.ActionResult, error) {
	return domain.Success("The caller declined to be recorded.", map[string]any{KeyRecordingConsent: false}), nil
}

type nameParams struct {
	Name         string `mapstructure:"name"`
	InterestType string `mapstructure:"interest_type"`
}

func collectNameAndInterest(_ context.Context, call ports.ActionCall) (domain.ActionResult, error) {
	var p nameParams
	if err := decode(call.Params, &p); err != nil {
		return domain.Incomplete("I'm sorry, could you tell me your name and what you're looking for help with?", nil), nil
	}
	p.Name = clean(p.Name)
	p.InterestType = strings.ToLower(clean(p.InterestType))

	if p.Name == "" {
		return domain.Incomplete("I'm sorry, I didn't catch your name. Could you tell me again?", nil), nil
	}
	switch p.InterestType {
	case InterestTechnicalConsultation, InterestVoiceAgentDevelopment:
	default:
		return domain.Incomplete(
			fmt.Sprintf("Thanks %s. Are you looking for a technical consultation, or help developing a voice agent?", p.Name),
			map[string]any{KeyName: p.Name},
		), nil
	}
	return domain.Success(
		fmt.Sprintf("Recorded name %q with interest %s.", p.Name, p.InterestType),
		map[string]any{KeyName: p.Name, KeyInterest: p.InterestType},
	), nil
}

type qualificationParams struct {
	UseCase             string `mapstructure:"use_case"`
	Timeline            string `mapstructure:"timeline"`
	Budget              string `mapstructure:"budget"`
	InteractionFeedback string `mapstructure:"interaction_feedback"`
}

func collectQualificationData(_ context.Context, call ports.ActionCall) (domain.ActionResult, error) {
	var p qualificationParams
	if err := decode(call.Params, &p); err != nil {
		return domain.Incomplete("I'm sorry, could you tell me a bit more about your project?", nil), nil
	}
	fields := map[string]string{
		KeyUseCase:  p.UseCase,
		KeyTimeline: p.Timeline,
		KeyBudget:   p.Budget,
	}
	if gaps := missing(fields); len(gaps) > 0 {
		return domain.Incomplete(
			fmt.Sprintf("Still missing: %s. Ask the caller about it before moving on.", strings.Join(gaps, ", ")),
			nil,
		), nil
	}
	data := map[string]any{
		KeyUseCase:  clean(p.UseCase),
		KeyTimeline: clean(p.Timeline),
		KeyBudget:   clean(p.Budget),
	}
	if fb := clean(p.InteractionFeedback); fb != "" {
		data[KeyFeedback] = fb
	}
	return domain.Success("Recorded the caller's use case, timeline and budget.", data), nil
}

func chooseVideoCall(_ context.Context, _ ports.ActionCall) (domain.ActionResult, error) {
	return domain.Success("The caller would like to book a video call.", map[string]any{KeyFollowUp: "video_call"}), nil
}

type emailParams struct {
	Email string `mapstructure:"email"`
}

func chooseEmailFollowUp(_ context.Context, call ports.ActionCall) (domain.ActionResult, error) {
	var p emailParams
	if err := decode(call.Params, &p); err != nil {
		return unreadable("the email address"), nil
	}
	email := clean(p.Email)
	if email == "" {
		email = stringField(call.Collected, KeyEmail)
	}
	if !plausibleEmail(email) {
		return domain.Incomplete("I'm sorry, what's the best email address to send the follow-up to?", nil), nil
	}
	return domain.Success(
		fmt.Sprintf("A follow-up email will be sent to %s.", email),
		map[string]any{KeyFollowUp: "email", KeyEmail: email},
	), nil
}

type contactParams struct {
	Email    string `mapstructure:"email"`
	Phone    string `mapstructure:"phone"`
	Company  string `mapstructure:"company"`
	TimeZone string `mapstructure:"timezone"`
}

func collectContactDetails(_ context.Context, call ports.ActionCall) (domain.ActionResult, error) {
	var p contactParams
	if err := decode(call.Params, &p); err != nil {
		return domain.Incomplete("I'm sorry, could you give me your email, phone number and time zone?", nil), nil
	}
	fields := map[string]string{
		KeyEmail:    p.Email,
		KeyPhone:    p.Phone,
		KeyTimeZone: p.TimeZone,
	}
	if gaps := missing(fields); len(gaps) > 0 {
		return domain.Incomplete(
			fmt.Sprintf("Still missing: %s. Ask the caller for it.", strings.Join(gaps, ", ")),
			nil,
		), nil
	}
	if !plausibleEmail(clean(p.Email)) {
		return domain.Incomplete("That email address doesn't look right. Could you spell it out for me?", nil), nil
	}
	tz := clean(p.TimeZone)
	if _, err := time.LoadLocation(tz); err != nil {
		return domain.Incomplete(
			fmt.Sprintf("%q is not a time zone I recognise. Ask the caller which city or region they're in.", tz),
			nil,
		), nil
	}

	data := map[string]any{
		KeyEmail:    clean(p.Email),
		KeyPhone:    clean(p.Phone),
		KeyTimeZone: tz,
	}
	if c := clean(p.Company); c != "" {
		data[KeyCompany] = c
	}
	return domain.Success("Recorded the caller's contact details.", data), nil
}

type fallbackParams struct {
	Preference string `mapstructure:"preference"`
}

func acknowledgeFallback(_ context.Context, call ports.ActionCall) (domain.ActionResult, error) {
	var p fallbackParams
	if err := decode(call.Params, &p); err != nil {
		return unreadable("your preference"), nil
	}
	pref := strings.ToLower(clean(p.Preference))
	switch pref {
	case "callback", "scheduling_line":
	default:
		return domain.Incomplete("Would you prefer a call back from our scheduling team, or to call our scheduling line yourself?", nil), nil
	}
	return domain.Success(
		fmt.Sprintf("The caller chose %s.", strings.ReplaceAll(pref, "_", " ")),
		map[string]any{KeyFallbackChoice: pref},
	), nil
}

func plausibleEmail(s string) bool {
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return clean(s)
}
