package domain

import "time"

// Project is a long-running effort with optional reference links.
type Project struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Subhead  string    `json:"subhead,omitempty"`
	URLs     []string  `json:"urls,omitempty"`
	Starred  bool      `json:"starred"`
	Archived bool      `json:"archived"`
	Progress int       `json:"progress"`
	Created  time.Time `json:"created"`
}

// NewProject creates an empty project owned by the calling user.
func NewProject() *Project {
	return &Project{ID: NewID(), Created: time.Now().UTC()}
}

// ProjectUpdate carries partial-update fields; nil means leave untouched.
type ProjectUpdate struct {
	Title    *string
	Subhead  *string
	URLs     []string
	Starred  *bool
	Archived *bool
	Progress *int
}

// Update applies only the fields present in u.
func (p *Project) Update(u ProjectUpdate) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Subhead != nil {
		p.Subhead = *u.Subhead
	}
	if u.URLs != nil {
		p.URLs = u.URLs
	}
	if u.Starred != nil {
		p.Starred = *u.Starred
	}
	if u.Archived != nil {
		p.Archived = *u.Archived
	}
	if u.Progress != nil {
		p.Progress = *u.Progress
	}
}
