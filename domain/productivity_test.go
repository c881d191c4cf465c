package domain

import (
	"encoding/json"
	"testing"
)

func TestProductivityScore(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		want  int
		found bool
	}{
		{"number", `{"productivity": 7}`, 7, true},
		{"numericString", `{"productivity": "8"}`, 8, true},
		{"missing", `{"mood": 5}`, 0, false},
		{"garbage", `{"productivity": "high"}`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewJournal("2026-03-05")
			j.Data = json.RawMessage(tt.data)
			got, ok := ProductivityScore(j)
			if ok != tt.found || got != tt.want {
				t.Fatalf("ProductivityScore(%s) = (%d, %v), want (%d, %v)", tt.data, got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestProductivityScoreNilJournal(t *testing.T) {
	if _, ok := ProductivityScore(nil); ok {
		t.Fatal("nil journal should yield no score")
	}
}
