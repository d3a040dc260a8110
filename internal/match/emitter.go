package match

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dom/league-customs/internal/bus"
	"github.com/dom/league-customs/internal/domain"
)

// Emitter publishes the match lifecycle events. Publish failures are
// logged and swallowed: persisted state is the source of truth and every
// consumer can rebuild from it.
type Emitter struct {
	bus *bus.Bus
}

func NewEmitter(b *bus.Bus) *Emitter {
	return &Emitter{bus: b}
}

func (e *Emitter) publish(ctx context.Context, topic string, payload any) {
	if _, err := e.bus.Publish(ctx, topic, payload); err != nil {
		log.Printf("Emitter: publish %s: %v", topic, err)
	}
}

func (e *Emitter) Acceptance(ctx context.Context, m *domain.Match, doc *domain.PickBanDocument, name string, status domain.AcceptanceStatus) {
	accepted, total := doc.AcceptanceCounts()
	e.publish(ctx, bus.TopicMatchAcceptance, bus.MatchAcceptancePayload{
		MatchID:      m.ID,
		SummonerName: name,
		Status:       status,
		Accepted:     accepted,
		Total:        total,
		Participants: m.Participants(),
	})
}

func (e *Emitter) Cancelled(ctx context.Context, m *domain.Match, reason string, atFault []string) {
	e.publish(ctx, bus.TopicMatchCancelled, bus.MatchCancelledPayload{
		MatchID:      m.ID,
		Reason:       reason,
		AtFault:      atFault,
		Participants: m.Participants(),
	})
}

func (e *Emitter) DraftStarted(ctx context.Context, m *domain.Match, deadline time.Time) {
	e.publish(ctx, bus.TopicDraftStarted, bus.DraftStartedPayload{
		MatchID:      m.ID,
		CurrentIndex: 0,
		Deadline:     &deadline,
		Participants: m.Participants(),
	})
}

func (e *Emitter) DraftAction(ctx context.Context, m *domain.Match, action domain.DraftAction, nextIndex int, deadline *time.Time) {
	topic := bus.TopicDraftPick
	if action.Type == domain.ActionTypeBan {
		topic = bus.TopicDraftBan
	}
	e.publish(ctx, topic, bus.DraftActionPayload{
		MatchID:      m.ID,
		Index:        action.Index,
		Type:         action.Type,
		ByPlayer:     action.ByPlayer,
		ChampionID:   action.ChampionID,
		ChampionName: action.ChampionName,
		Skipped:      action.Status == domain.DraftActionSkipped,
		AutoFilled:   action.AutoFilled,
		NextIndex:    nextIndex,
		Deadline:     deadline,
		Participants: m.Participants(),
	})
}

func (e *Emitter) DraftEdit(ctx context.Context, m *domain.Match, action domain.DraftAction, reset bool) {
	championID := 0
	if action.ChampionID != nil {
		championID = *action.ChampionID
	}
	e.publish(ctx, bus.TopicDraftEdit, bus.DraftEditPayload{
		MatchID:            m.ID,
		Index:              action.Index,
		ByPlayer:           action.ByPlayer,
		ChampionID:         championID,
		ChampionName:       action.ChampionName,
		ConfirmationsReset: reset,
		Participants:       m.Participants(),
	})
}

func (e *Emitter) DraftConfirm(ctx context.Context, m *domain.Match, doc *domain.PickBanDocument, name string) {
	e.publish(ctx, bus.TopicDraftConfirm, bus.DraftConfirmPayload{
		MatchID:      m.ID,
		SummonerName: name,
		Confirmed:    doc.ConfirmedCount(),
		Total:        len(doc.Roster),
		Participants: m.Participants(),
	})
}

func (e *Emitter) DraftCompleted(ctx context.Context, m *domain.Match) {
	e.publish(ctx, bus.TopicDraftCompleted, bus.DraftCompletedPayload{
		MatchID:      m.ID,
		Participants: m.Participants(),
	})
}

func (e *Emitter) GameStarted(ctx context.Context, m *domain.Match) {
	e.publish(ctx, bus.TopicGameStarted, bus.GameStartedPayload{
		MatchID:      m.ID,
		Participants: m.Participants(),
	})
}

func (e *Emitter) GameEnded(ctx context.Context, m *domain.Match, candidateIDs []string) {
	e.publish(ctx, bus.TopicGameEnded, bus.GameEndedPayload{
		MatchID:      m.ID,
		CandidateIDs: candidateIDs,
		Participants: m.Participants(),
	})
}

func (e *Emitter) GameLinked(ctx context.Context, m *domain.Match, lcuGameID string, winnerTeam int) {
	e.publish(ctx, bus.TopicGameLinked, bus.GameLinkedPayload{
		MatchID:      m.ID,
		LcuGameID:    lcuGameID,
		WinnerTeam:   winnerTeam,
		Participants: m.Participants(),
	})
}

func (e *Emitter) Spectator(ctx context.Context, topic string, matchID uuid.UUID, name, mutedBy string) {
	e.publish(ctx, topic, bus.SpectatorPayload{
		MatchID:      matchID,
		SummonerName: name,
		MutedBy:      mutedBy,
	})
}
