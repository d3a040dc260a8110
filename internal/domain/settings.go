package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Setting is a free-form JSON configuration row. Settings are read at
// startup; the queue kill-switch is the only one rewritten at runtime.
type Setting struct {
	Key       string         `json:"key" gorm:"primaryKey"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (Setting) TableName() string {
	return "settings"
}

func (s *Setting) Decode(v any) error {
	return json.Unmarshal(s.Value, v)
}

const (
	// SettingPrivilegedVoters holds a JSON array of PrivilegedVoter rows
	// merged over the environment-provided list.
	SettingPrivilegedVoters = "privileged_voters"

	// SettingQueueActive is the queue kill-switch ("true"/"false").
	SettingQueueActive = "queue_active"
)

// EventInbox dedupes bus deliveries. The key is per consuming instance:
// every instance processes every event once (each pushes to its own
// connections), and the row absorbs the publisher's own Redis echo plus
// any re-delivery.
type EventInbox struct {
	InstanceID string    `json:"instanceId" gorm:"primaryKey"`
	EventID    string    `json:"eventId" gorm:"primaryKey"`
	EventType  string    `json:"eventType" gorm:"not null"`
	ReceivedAt time.Time `json:"receivedAt" gorm:"index"`
}

func (EventInbox) TableName() string {
	return "event_inbox"
}
