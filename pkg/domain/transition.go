package domain

import "time"

// Transition records one move between nodes caused by an action.
type Transition struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}
