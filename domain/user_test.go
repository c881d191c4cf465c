package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestIntegrationProps(t *testing.T) {
	u := NewUser("a@example.com", "A")

	if got := u.IntegrationProp("pocket_access_token", "none"); got != "none" {
		t.Fatalf("expected fallback, got %q", got)
	}

	u.SetIntegrationProp("pocket_access_token", "tok")
	if got := u.IntegrationProp("pocket_access_token", ""); got != "tok" {
		t.Fatalf("expected stored value, got %q", got)
	}

	u.SetIntegrationProp("pocket_last_timestamp", "1700000000")
	if got := u.IntegrationInt("pocket_last_timestamp", 0); got != 1700000000 {
		t.Fatalf("expected parsed int, got %d", got)
	}

	u.SetIntegrationProp("pocket_access_token", "")
	if _, ok := u.Integrations["pocket_access_token"]; ok {
		t.Fatal("empty value should remove the key")
	}
}

func TestPublicStripsIntegrations(t *testing.T) {
	u := NewUser("a@example.com", "A")
	u.SetIntegrationProp("pocket_access_token", "secret")

	data, err := json.Marshal(u.Public())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := out["integrations"]; ok {
		t.Fatal("integrations must not be serialized to the client")
	}
	if u.IntegrationProp("pocket_access_token", "") != "secret" {
		t.Fatal("Public must not mutate the source record")
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	u := NewUser("a@example.com", "A")
	u.Timezone = "Not/AZone"
	if u.Location() != time.UTC {
		t.Fatal("invalid timezone should fall back to UTC")
	}
}
