package domain

import "time"

// Event is a calendar entry spanning one or more days.
type Event struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Color     string    `json:"color,omitempty"`
	DateStart string    `json:"date_start"`
	DateEnd   string    `json:"date_end"`
	Created   time.Time `json:"created"`
}

// NewEvent creates an event starting on the given ISO date. The end date
// defaults to the start date until updated.
func NewEvent(dateStartISO string) *Event {
	return &Event{
		ID:        NewID(),
		DateStart: dateStartISO,
		DateEnd:   dateStartISO,
		Created:   time.Now().UTC(),
	}
}

// EventUpdate carries partial-update fields; nil means leave untouched.
type EventUpdate struct {
	Title     *string
	Color     *string
	DateStart *string
	DateEnd   *string
}

// Update applies only the fields present in u, keeping the end date no
// earlier than the start date.
func (e *Event) Update(u EventUpdate) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Color != nil {
		e.Color = *u.Color
	}
	if u.DateStart != nil {
		e.DateStart = *u.DateStart
	}
	if u.DateEnd != nil {
		e.DateEnd = *u.DateEnd
	}
	if e.DateEnd == "" || e.DateEnd < e.DateStart {
		e.DateEnd = e.DateStart
	}
}
