package domain

import (
	"fmt"
	"time"
)

// Habit is a recurring behavior tracked day by day.
type Habit struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Color        string    `json:"color,omitempty"`
	Icon         string    `json:"icon,omitempty"`
	TargetWeekly int       `json:"tgt_weekly"`
	Archived     bool      `json:"archived"`
	Created      time.Time `json:"created"`
}

// NewHabit creates an empty habit owned by the calling user.
func NewHabit() *Habit {
	return &Habit{ID: NewID(), Created: time.Now().UTC()}
}

// HabitUpdate carries partial-update fields; nil means leave untouched.
type HabitUpdate struct {
	Name         *string
	Color        *string
	Icon         *string
	TargetWeekly *int
	Archived     *bool
}

// Update applies only the fields present in u.
func (h *Habit) Update(u HabitUpdate) {
	if u.Name != nil {
		h.Name = *u.Name
	}
	if u.Color != nil {
		h.Color = *u.Color
	}
	if u.Icon != nil {
		h.Icon = *u.Icon
	}
	if u.TargetWeekly != nil {
		h.TargetWeekly = *u.TargetWeekly
	}
	if u.Archived != nil {
		h.Archived = *u.Archived
	}
}

// HabitDay marks one habit on one calendar day. Records are created lazily:
// a day with no interaction has no stored row at all.
type HabitDay struct {
	ID        string `json:"id"`
	HabitID   int64  `json:"habit_id"`
	Date      string `json:"date"`
	Done      bool   `json:"done"`
	Committed bool   `json:"committed"`
}

// HabitDayID builds the deterministic (habit, day) identifier used both as
// storage key and as the habitdays lookup key on the wire.
func HabitDayID(habitID int64, dayISO string) string {
	return fmt.Sprintf("%d_%s", habitID, dayISO)
}

// NewHabitDay creates an unmarked record for the given habit and day.
func NewHabitDay(habitID int64, dayISO string) *HabitDay {
	return &HabitDay{
		ID:      HabitDayID(habitID, dayISO),
		HabitID: habitID,
		Date:    dayISO,
	}
}

// Toggle flips the done state and reports whether the day is now done,
// so the caller can pick a celebratory message.
func (hd *HabitDay) Toggle() bool {
	hd.Done = !hd.Done
	return hd.Done
}

// Commit marks the day committed. Committing is one-way and idempotent.
func (hd *HabitDay) Commit() {
	hd.Committed = true
}
