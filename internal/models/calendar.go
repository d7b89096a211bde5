package models

import "time"

// CalendarEvent is one projected occurrence of a course on a concrete day.
// Events are derived per request from the schedule store and the enrollment
// ledger; they are never persisted.
type CalendarEvent struct {
	ID            int64                  `json:"id"`
	Title         string                 `json:"title"`
	Start         time.Time              `json:"start"`
	End           time.Time              `json:"end"`
	Color         string                 `json:"color"`
	ExtendedProps map[string]interface{} `json:"extended_props,omitempty"`
}
