package domain

import "time"

// Task statuses. Status is a free-form integer on the wire; these are the
// values the web client uses.
const (
	TaskNotDone = 1
	TaskDone    = 2
)

// Hour boundaries for due-date defaulting, in the user's local time.
const (
	sameDayCutoffHour = 16
	sameDayDueHour    = 22
	journalDueHour    = 8
)

// Task is a to-do item with an optional due time.
type Task struct {
	ID       int64      `json:"id"`
	Title    string     `json:"title"`
	Status   int        `json:"status"`
	Due      *time.Time `json:"due,omitempty"`
	Archived bool       `json:"archived"`
	WIP      bool       `json:"wip"`
	Created  time.Time  `json:"created"`
}

// NewTask creates a task; due may be nil for no due date.
func NewTask(title string, due *time.Time) *Task {
	return &Task{
		ID:      NewID(),
		Title:   title,
		Status:  TaskNotDone,
		Due:     due,
		Created: time.Now().UTC(),
	}
}

// DefaultDue computes the due time for a task created interactively at
// localNow: 22:00 the same day when created before 16:00 local, otherwise
// no due date. The result is converted back to UTC.
func DefaultDue(localNow time.Time) *time.Time {
	if localNow.Hour() >= sameDayCutoffHour {
		return nil
	}
	due := time.Date(localNow.Year(), localNow.Month(), localNow.Day(),
		sameDayDueHour, 0, 0, 0, localNow.Location()).UTC()
	return &due
}

// JournalTaskDue computes the due time for tasks spawned from a journal
// submission: 08:00 on the day after next (32 hours out, truncated to date).
func JournalTaskDue(localNow time.Time) time.Time {
	d := localNow.Add(32 * time.Hour)
	return time.Date(d.Year(), d.Month(), d.Day(), journalDueHour, 0, 0, 0, d.Location()).UTC()
}

// TaskUpdate carries partial-update fields; nil means leave untouched.
type TaskUpdate struct {
	Title    *string
	Status   *int
	Archived *bool
	WIP      *bool
}

// Update applies only the fields present in u. When the task transitions to
// done a celebratory message is returned for the response envelope.
func (t *Task) Update(u TaskUpdate) string {
	message := ""
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Status != nil {
		if *u.Status == TaskDone && t.Status != TaskDone {
			message = randomReply(taskDoneReplies)
		}
		t.Status = *u.Status
	}
	if u.Archived != nil {
		t.Archived = *u.Archived
	}
	if u.WIP != nil {
		t.WIP = *u.WIP
	}
	return message
}

// Done reports whether the task has been completed.
func (t *Task) Done() bool { return t.Status == TaskDone }
