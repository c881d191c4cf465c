package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// User owns every other record in the store. Integration credentials and
// sync watermarks live in the Integrations map and are never serialized to
// the client.
type User struct {
	ID           int64             `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name,omitempty"`
	Timezone     string            `json:"timezone,omitempty"`
	Birthday     string            `json:"birthday,omitempty"`
	Settings     json.RawMessage   `json:"settings,omitempty"`
	Integrations map[string]string `json:"integrations,omitempty"`
	Created      time.Time         `json:"created"`
}

// NewUser creates a user record for a first sign-in.
func NewUser(email, name string) *User {
	return &User{
		ID:      NewID(),
		Email:   email,
		Name:    name,
		Created: time.Now().UTC(),
	}
}

// UserUpdate carries the self-update fields; nil means leave untouched.
type UserUpdate struct {
	Timezone *string
	Birthday *string
	Settings json.RawMessage
}

// Update applies only the fields present in u.
func (usr *User) Update(u UserUpdate) {
	if u.Timezone != nil {
		usr.Timezone = *u.Timezone
	}
	if u.Birthday != nil {
		usr.Birthday = *u.Birthday
	}
	if u.Settings != nil {
		usr.Settings = u.Settings
	}
}

// Location resolves the user's timezone, falling back to UTC.
func (usr *User) Location() *time.Location {
	if usr.Timezone != "" {
		if loc, err := time.LoadLocation(usr.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// IntegrationProp returns a stored integration property or the fallback.
func (usr *User) IntegrationProp(key, fallback string) string {
	if v, ok := usr.Integrations[key]; ok && v != "" {
		return v
	}
	return fallback
}

// IntegrationInt returns an integration property parsed as int64.
func (usr *User) IntegrationInt(key string, fallback int64) int64 {
	v, ok := usr.Integrations[key]
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// SetIntegrationProp stores an integration property. An empty value removes
// the key so disconnect flows leave no stale credentials behind.
func (usr *User) SetIntegrationProp(key, value string) {
	if usr.Integrations == nil {
		usr.Integrations = map[string]string{}
	}
	if value == "" {
		delete(usr.Integrations, key)
		return
	}
	usr.Integrations[key] = value
}

// Public returns the wire projection of the user, without credentials.
func (usr *User) Public() *User {
	pub := *usr
	pub.Integrations = nil
	return &pub
}
