package model

import "strings"

// TeamSlot is the scope at which an equipped-model choice applies. A
// TeamAll choice always overrides a team-specific one.
type TeamSlot string

const (
	TeamAll TeamSlot = "All"
	TeamCT  TeamSlot = "CT"
	TeamT   TeamSlot = "T"
)

// TeamSlots lists every slot, in resolution-priority order.
var TeamSlots = []TeamSlot{TeamAll, TeamCT, TeamT}

// ParseTeamSlot is the single normalization point between the outside world
// (engine team numbers, config strings, legacy "Both" spelling) and the
// closed enum. Internal code never compares raw team strings.
func ParseTeamSlot(s string) (TeamSlot, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ALL", "BOTH", "":
		return TeamAll, true
	case "CT", "3":
		return TeamCT, true
	case "T", "2":
		return TeamT, true
	default:
		return "", false
	}
}

// ParsePlayableTeam accepts only CT or T, the teams a live player can be on.
func ParsePlayableTeam(s string) (TeamSlot, bool) {
	slot, ok := ParseTeamSlot(s)
	if !ok || slot == TeamAll {
		return "", false
	}
	return slot, true
}

// Matches reports whether a model restricted to slot may be worn on team.
// TeamAll matches any team.
func (ts TeamSlot) Matches(team TeamSlot) bool {
	return ts == TeamAll || ts == team
}

// String implements fmt.Stringer.
func (ts TeamSlot) String() string {
	return string(ts)
}
