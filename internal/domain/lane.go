package domain

import "strings"

// Lane is both a queue preference and a team slot. The slot order
// top/jungle/mid/bot/support doubles as the team array index 0..4.
type Lane string

const (
	LaneTop     Lane = "top"
	LaneJungle  Lane = "jungle"
	LaneMid     Lane = "mid"
	LaneBot     Lane = "bot"
	LaneSupport Lane = "support"
	LaneFill    Lane = "fill"
)

// LaneSlots are the assignable positions, in team-index order.
var LaneSlots = [5]Lane{LaneTop, LaneJungle, LaneMid, LaneBot, LaneSupport}

// NormalizeLane lowercases and maps the legacy "adc" alias to "bot".
// Every external input (REST bodies, frames) goes through this before
// validation; the server never emits "adc".
func NormalizeLane(s string) Lane {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "adc" {
		v = "bot"
	}
	return Lane(v)
}

func (l Lane) IsValid() bool {
	switch l {
	case LaneTop, LaneJungle, LaneMid, LaneBot, LaneSupport, LaneFill:
		return true
	}
	return false
}

// IsSlot reports whether the lane names a concrete position (fill is not one).
func (l Lane) IsSlot() bool {
	return l.IsValid() && l != LaneFill
}

// Covers reports whether a preference satisfies a slot. Fill covers
// everything.
func (l Lane) Covers(slot Lane) bool {
	return l == LaneFill || l == slot
}

// SlotIndex returns the team array index for a slot lane, or -1.
func (l Lane) SlotIndex() int {
	for i, s := range LaneSlots {
		if s == l {
			return i
		}
	}
	return -1
}
