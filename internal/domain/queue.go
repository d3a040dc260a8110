package domain

import (
	"time"

	"github.com/google/uuid"
)

type AcceptanceStatus string

const (
	AcceptancePending  AcceptanceStatus = "pending"
	AcceptanceAccepted AcceptanceStatus = "accepted"
	AcceptanceDeclined AcceptanceStatus = "declined"
)

// QueuePlayer is a transient row: created on join, deleted on leave, on
// match creation, or on acceptance failure. At most one active row per
// summoner name.
type QueuePlayer struct {
	ID               uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PlayerID         uuid.UUID        `json:"playerId" gorm:"type:uuid;not null"`
	SummonerName     string           `json:"summonerName" gorm:"uniqueIndex;not null"`
	Region           string           `json:"region"`
	CustomMMR        int              `json:"customMmr" gorm:"not null;default:1000"`
	PrimaryLane      Lane             `json:"primaryLane" gorm:"not null"`
	SecondaryLane    Lane             `json:"secondaryLane" gorm:"not null"`
	JoinTime         time.Time        `json:"joinTime" gorm:"not null"`
	Active           bool             `json:"active" gorm:"not null;default:true"`
	AcceptanceStatus AcceptanceStatus `json:"acceptanceStatus" gorm:"not null;default:'pending'"`
}

func (QueuePlayer) TableName() string {
	return "queue_players"
}

// ValidateLanes enforces the admission rule: both lanes valid, and
// primary != secondary unless both are fill.
func (q *QueuePlayer) ValidateLanes() error {
	if !q.PrimaryLane.IsValid() || !q.SecondaryLane.IsValid() {
		return ErrInvalidLane
	}
	if q.PrimaryLane == q.SecondaryLane && q.PrimaryLane != LaneFill {
		return ErrInvalidLane
	}
	return nil
}

// Autofilled reports whether a slot sits outside both declared lanes.
func (q *QueuePlayer) Autofilled(slot Lane) bool {
	return !q.PrimaryLane.Covers(slot) && !q.SecondaryLane.Covers(slot)
}

// OffPrimary reports whether a slot misses the primary preference.
func (q *QueuePlayer) OffPrimary(slot Lane) bool {
	return !q.PrimaryLane.Covers(slot)
}

// QueueEntry is the lightweight view broadcast with queue.update.
type QueueEntry struct {
	SummonerName  string    `json:"summonerName"`
	PrimaryLane   Lane      `json:"primaryLane"`
	SecondaryLane Lane      `json:"secondaryLane"`
	JoinTime      time.Time `json:"joinTime"`
}

// QueueStatus is the response of the status operation.
type QueueStatus struct {
	PlayersInQueue       int          `json:"playersInQueue"`
	Players              []QueueEntry `json:"players"`
	EstimatedWaitSeconds int          `json:"estimatedWaitSeconds"`
	IsActive             bool         `json:"isActive"`
}
