package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Journal entries submitted between midnight and this hour are attributed
// to the previous calendar day.
const journalGraceHour = 8

// MiniJournal is the single journal document for one user and one day.
// The day's ISO date is the record identifier.
type MiniJournal struct {
	ID      string          `json:"id"`
	Date    string          `json:"date"`
	Data    json.RawMessage `json:"data,omitempty"`
	Lat     string          `json:"lat,omitempty"`
	Lon     string          `json:"lon,omitempty"`
	Tags    []string        `json:"tags,omitempty"`
	Created time.Time       `json:"created"`
}

// NewJournal creates the journal document for the given ISO day.
func NewJournal(dayISO string) *MiniJournal {
	return &MiniJournal{ID: dayISO, Date: dayISO, Created: time.Now().UTC()}
}

// JournalDay resolves the effective journal day for localNow. Within the
// early-morning grace window the day just ending is still "today".
func JournalDay(localNow time.Time) string {
	if localNow.Hour() < journalGraceHour {
		return ISODateStr(localNow.AddDate(0, 0, -1))
	}
	return ISODateStr(localNow)
}

// JournalUpdate carries partial-update fields; nil means leave untouched.
type JournalUpdate struct {
	Data json.RawMessage
	Lat  *string
	Lon  *string
	Tags []string
}

// Update applies only the fields present in u.
func (j *MiniJournal) Update(u JournalUpdate) {
	if u.Data != nil {
		j.Data = u.Data
	}
	if u.Lat != nil {
		j.Lat = *u.Lat
	}
	if u.Lon != nil {
		j.Lon = *u.Lon
	}
	if u.Tags != nil {
		j.Tags = u.Tags
	}
}

// JournalTag is a label referenced by journal entries.
type JournalTag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// TagsFromText splits free text into deduplicated tags. Tags may be
// separated by commas or written as #hashtags.
func TagsFromText(text string) []*JournalTag {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '#' || r == '\n'
	})
	seen := map[string]bool{}
	tags := []*JournalTag{}
	for _, f := range fields {
		label := strings.TrimSpace(f)
		if label == "" {
			continue
		}
		id := TagID(label)
		if seen[id] {
			continue
		}
		seen[id] = true
		tags = append(tags, &JournalTag{ID: id, Label: label})
	}
	return tags
}

// TagID derives the deterministic tag identifier from its label.
func TagID(label string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(label), " ", "-"))
}
