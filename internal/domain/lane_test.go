package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dom/league-customs/internal/domain"
)

func TestNormalizeLane(t *testing.T) {
	assert.Equal(t, domain.LaneBot, domain.NormalizeLane("adc"), "legacy adc alias maps to bot")
	assert.Equal(t, domain.LaneBot, domain.NormalizeLane(" ADC "))
	assert.Equal(t, domain.LaneTop, domain.NormalizeLane("TOP"))
	assert.Equal(t, domain.LaneFill, domain.NormalizeLane("fill"))
	assert.Equal(t, domain.Lane("feed"), domain.NormalizeLane("feed"))
	assert.False(t, domain.NormalizeLane("feed").IsValid())
}

func TestLane_SlotSemantics(t *testing.T) {
	for _, slot := range domain.LaneSlots {
		assert.True(t, slot.IsValid())
		assert.True(t, slot.IsSlot())
	}
	assert.True(t, domain.LaneFill.IsValid())
	assert.False(t, domain.LaneFill.IsSlot(), "fill is a preference, not a seat")

	assert.True(t, domain.LaneFill.Covers(domain.LaneMid))
	assert.True(t, domain.LaneMid.Covers(domain.LaneMid))
	assert.False(t, domain.LaneMid.Covers(domain.LaneTop))

	assert.Equal(t, 0, domain.LaneTop.SlotIndex())
	assert.Equal(t, 4, domain.LaneSupport.SlotIndex())
	assert.Equal(t, -1, domain.LaneFill.SlotIndex())
}

func TestQueuePlayer_ValidateLanes(t *testing.T) {
	tests := []struct {
		name      string
		primary   domain.Lane
		secondary domain.Lane
		wantErr   bool
	}{
		{"distinct lanes", domain.LaneTop, domain.LaneMid, false},
		{"fill twice", domain.LaneFill, domain.LaneFill, false},
		{"primary fill", domain.LaneFill, domain.LaneBot, false},
		{"same lane twice", domain.LaneJungle, domain.LaneJungle, true},
		{"invalid primary", domain.Lane("feed"), domain.LaneMid, true},
		{"empty secondary", domain.LaneTop, domain.Lane(""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qp := &domain.QueuePlayer{PrimaryLane: tt.primary, SecondaryLane: tt.secondary}
			err := qp.ValidateLanes()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidLane)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueuePlayer_CoverageFlags(t *testing.T) {
	qp := &domain.QueuePlayer{PrimaryLane: domain.LaneTop, SecondaryLane: domain.LaneJungle}

	assert.False(t, qp.Autofilled(domain.LaneTop))
	assert.False(t, qp.Autofilled(domain.LaneJungle))
	assert.True(t, qp.Autofilled(domain.LaneSupport))

	assert.False(t, qp.OffPrimary(domain.LaneTop))
	assert.True(t, qp.OffPrimary(domain.LaneJungle), "secondary still counts as off-primary")

	fill := &domain.QueuePlayer{PrimaryLane: domain.LaneFill, SecondaryLane: domain.LaneFill}
	for _, slot := range domain.LaneSlots {
		assert.False(t, fill.Autofilled(slot))
		assert.False(t, fill.OffPrimary(slot))
	}
}
