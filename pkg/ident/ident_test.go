package ident

import (
	"strings"
	"testing"
)

func TestStableIDDeterministic(t *testing.T) {
	a := StableID("drv", "VER")
	b := StableID("drv", "VER")
	if a != b {
		t.Errorf("same input produced different IDs: %s vs %s", a, b)
	}
}

func TestStableIDNormalization(t *testing.T) {
	ref := StableID("drv", "VER")
	tests := []struct {
		name   string
		values []string
	}{
		{name: "lowercase", values: []string{"ver"}},
		{name: "whitespace", values: []string{"  VER "}},
		{name: "mixed", values: []string{" Ver"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StableID("drv", tt.values...); got != ref {
				t.Errorf("StableID() = %s, want %s", got, ref)
			}
		})
	}
}

func TestStableIDShape(t *testing.T) {
	id := StableID("team", "Red Bull Racing")
	if !strings.HasPrefix(id, "team_") {
		t.Errorf("missing namespace prefix: %s", id)
	}
	if len(id) != len("team_")+16 {
		t.Errorf("unexpected digest length: %s", id)
	}
}

func TestStableIDDropsEmptyValues(t *testing.T) {
	if StableID("drv", "VER", "") != StableID("drv", "VER") {
		t.Error("empty values must not contribute to the digest")
	}
}

func TestStableIDEmptyValueList(t *testing.T) {
	// namespace-only hash, still deterministic
	if StableID("drv") != StableID("drv") {
		t.Error("namespace-only ID not stable")
	}
	if StableID("drv") == StableID("team") {
		t.Error("namespace must contribute to the digest")
	}
}

func TestRaceID(t *testing.T) {
	tests := []struct {
		season int
		round  int
		sType  string
		want   string
	}{
		{2024, 5, "R", "2024_05_R"},
		{2024, 12, "r", "2024_12_R"},
		{2018, 1, "Q", "2018_01_Q"},
	}
	for _, tt := range tests {
		if got := RaceID(tt.season, tt.round, tt.sType); got != tt.want {
			t.Errorf("RaceID(%d,%d,%s) = %s, want %s",
				tt.season, tt.round, tt.sType, got, tt.want)
		}
	}
}
