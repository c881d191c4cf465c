package domain

import (
	"fmt"
	"time"
)

// Goal holds up to four goal lines for a period. The id is the period
// itself: a 4-digit year for annual goals, a 6-digit year-month otherwise.
type Goal struct {
	ID         string    `json:"id"`
	Annual     bool      `json:"annual"`
	Text       []string  `json:"text,omitempty"`
	Assessment int       `json:"assessment"`
	Created    time.Time `json:"created"`
}

// NewGoal creates a goal for the given period id.
func NewGoal(id string) *Goal {
	return &Goal{
		ID:      id,
		Annual:  len(id) == 4,
		Created: time.Now().UTC(),
	}
}

// CurrentGoalIDs returns the period ids for now's annual and monthly goals.
func CurrentGoalIDs(now time.Time) (annual, monthly string) {
	annual = fmt.Sprintf("%04d", now.Year())
	monthly = fmt.Sprintf("%04d%02d", now.Year(), int(now.Month()))
	return annual, monthly
}

// ValidGoalID reports whether id is a 4-digit year or 6-digit year-month.
func ValidGoalID(id string) bool {
	if len(id) != 4 && len(id) != 6 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	if len(id) == 6 {
		month := int(id[4]-'0')*10 + int(id[5]-'0')
		if month < 1 || month > 12 {
			return false
		}
	}
	return true
}

// GoalUpdate carries partial-update fields; nil means leave untouched.
type GoalUpdate struct {
	Text       []string
	Assessment *int
}

// Update applies only the fields present in u.
func (g *Goal) Update(u GoalUpdate) {
	if u.Text != nil {
		g.Text = u.Text
	}
	if u.Assessment != nil {
		g.Assessment = *u.Assessment
	}
}
