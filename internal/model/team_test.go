package model

import "testing"

func TestParseTeamSlot(t *testing.T) {
	cases := []struct {
		in   string
		want TeamSlot
		ok   bool
	}{
		{"All", TeamAll, true},
		{"ALL", TeamAll, true},
		{"both", TeamAll, true},
		{"", TeamAll, true},
		{"CT", TeamCT, true},
		{"ct", TeamCT, true},
		{"3", TeamCT, true},
		{"T", TeamT, true},
		{"t", TeamT, true},
		{"2", TeamT, true},
		{"spectator", "", false},
		{"1", "", false},
	}

	for _, c := range cases {
		got, ok := ParseTeamSlot(c.in)
		if ok != c.ok {
			t.Errorf("ParseTeamSlot(%q) ok = %v, want %v", c.in, ok, c.ok)
			continue
		}
		if ok && got != c.want {
			t.Errorf("ParseTeamSlot(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParsePlayableTeamRejectsAll(t *testing.T) {
	if _, ok := ParsePlayableTeam("All"); ok {
		t.Fatal("ParsePlayableTeam accepted All")
	}
	if _, ok := ParsePlayableTeam(""); ok {
		t.Fatal("ParsePlayableTeam accepted empty string")
	}

	team, ok := ParsePlayableTeam("CT")
	if !ok || team != TeamCT {
		t.Fatalf("ParsePlayableTeam(CT) = %q, %v", team, ok)
	}
}

func TestTeamSlotMatches(t *testing.T) {
	if !TeamAll.Matches(TeamCT) || !TeamAll.Matches(TeamT) {
		t.Fatal("All slot must match both playable teams")
	}
	if !TeamCT.Matches(TeamCT) {
		t.Fatal("CT slot must match CT")
	}
	if TeamCT.Matches(TeamT) {
		t.Fatal("CT slot must not match T")
	}
}

func TestPlayerContextHasPermission(t *testing.T) {
	p := &PlayerContext{Permissions: []string{"models.vip", "models.staff"}}

	if !p.HasPermission("models.vip") {
		t.Fatal("expected permission present")
	}
	if p.HasPermission("models.admin") {
		t.Fatal("unexpected permission")
	}
	if !p.HasPermission("") {
		t.Fatal("empty requirement must always pass")
	}
}
