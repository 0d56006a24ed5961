// Package prompts renders node messages against an explicit persona.
//
// Node messages are text/template strings. They see the persona, the current
// date in the persona's locale and the fields collected so far:
//
//	You are {{.Bot.Name}} from {{.Bot.Company}}. Today is {{.Today}}.
//	Thank you {{or .Collected.name "for your time"}}.
package prompts

import (
	"fmt"
	"time"
)

// Persona is the configuration threaded into every rendered message.
type Persona struct {
	Name           string
	Company        string
	SchedulingLine string
	Host           string // person the demo is booked with

	// Location drives the date shown to the model.
	Location      *time.Location
	LocationLabel string
}

// DefaultPersona mirrors the stock lead-qualification deployment.
func DefaultPersona() Persona {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		loc = time.UTC
	}
	return Persona{
		Name:           "Marissa",
		Company:        "John George Voice AI Solutions",
		SchedulingLine: "555-0123",
		Host:           "John George",
		Location:       loc,
		LocationLabel:  "UK",
	}
}

// DateLine is the context line telling the model what day it is.
func (p Persona) DateLine(now time.Time) string {
	return fmt.Sprintf("Today's day of the week and date in the %s is: %s", p.label(), p.Today(now))
}

// Today formats now in the persona's location, e.g. "Monday, 19 October 2026".
func (p Persona) Today(now time.Time) string {
	return now.In(p.location()).Format("Monday, 2 January 2006")
}

func (p Persona) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p Persona) label() string {
	if p.LocationLabel == "" {
		return p.location().String()
	}
	return p.LocationLabel
}
