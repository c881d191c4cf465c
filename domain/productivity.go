package domain

import "encoding/json"

// Productivity is a per-day score, either derived from journal activity by
// the productivity sync or reported directly. Records are date-keyed.
type Productivity struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
}

// ProductivityScore extracts the day's self-reported rating from a journal
// document. Journals that never answered the rating question yield false.
func ProductivityScore(j *MiniJournal) (int, bool) {
	if j == nil || len(j.Data) == 0 {
		return 0, false
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(j.Data, &data); err != nil {
		return 0, false
	}
	raw, ok := data["productivity"]
	if !ok {
		return 0, false
	}
	var score float64
	if err := json.Unmarshal(raw, &score); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		var parsed float64
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return 0, false
		}
		score = parsed
	}
	return int(score), true
}
