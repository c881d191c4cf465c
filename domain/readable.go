package domain

import "time"

// Readable sources.
const (
	SourcePocket    = "pocket"
	SourceGoodreads = "goodreads"
)

// Readable is a read-later article or book pulled in by a sync adapter.
// The identifier is source-scoped so resyncs upsert rather than duplicate.
type Readable struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Author   string    `json:"author,omitempty"`
	URL      string    `json:"url,omitempty"`
	Source   string    `json:"source"`
	SourceID string    `json:"source_id"`
	Read     bool      `json:"read"`
	Favorite bool      `json:"favorite"`
	Created  time.Time `json:"created"`
}

// ReadableID builds the source-scoped record identifier.
func ReadableID(source, sourceID string) string {
	return source + ":" + sourceID
}

// NewReadable creates a readable for the given source item.
func NewReadable(source, sourceID string) *Readable {
	return &Readable{
		ID:       ReadableID(source, sourceID),
		Source:   source,
		SourceID: sourceID,
		Created:  time.Now().UTC(),
	}
}

// ReadableUpdate carries partial-update fields; nil means leave untouched.
type ReadableUpdate struct {
	Read     *bool
	Favorite *bool
}

// Update applies only the fields present in u.
func (r *Readable) Update(u ReadableUpdate) {
	if u.Read != nil {
		r.Read = *u.Read
	}
	if u.Favorite != nil {
		r.Favorite = *u.Favorite
	}
}
