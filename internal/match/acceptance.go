package match

import (
	"context"
	"log"
	"time"

	"github.com/dom/league-customs/internal/domain"
)

// applyAccept records one seat's accept. Accepting twice is a no-op, and
// an accept that arrives after the full lobby locked in is tolerated so
// slow clients don't see spurious errors.
func (r *Runner) applyAccept(ctx context.Context, name string) error {
	if r.match.Status != domain.MatchStatusFound && r.match.Status != domain.MatchStatusPending {
		if r.match.Status == domain.MatchStatusAccepted || r.match.Status == domain.MatchStatusDraft {
			return nil
		}
		return domain.ErrInvalidTransition
	}
	entry := r.doc.RosterFor(name)
	if entry == nil {
		return domain.ErrNotParticipant
	}
	if entry.AcceptanceStatus == domain.AcceptanceAccepted {
		return nil
	}
	if entry.AcceptanceStatus == domain.AcceptanceDeclined {
		return domain.ErrInvalidTransition
	}
	entry.AcceptanceStatus = domain.AcceptanceAccepted
	if err := r.saveOwned(ctx); err != nil {
		return err
	}
	r.c.emit.Acceptance(ctx, r.match, r.doc, name, domain.AcceptanceAccepted)

	accepted, total := r.doc.AcceptanceCounts()
	if accepted < total {
		return nil
	}
	return r.lockInAccepted(ctx)
}

// applyDecline cancels the match immediately with the decliner at fault.
func (r *Runner) applyDecline(ctx context.Context, name string) error {
	if r.match.Status != domain.MatchStatusFound && r.match.Status != domain.MatchStatusPending {
		return domain.ErrInvalidTransition
	}
	entry := r.doc.RosterFor(name)
	if entry == nil {
		return domain.ErrNotParticipant
	}
	entry.AcceptanceStatus = domain.AcceptanceDeclined
	if err := r.saveOwned(ctx); err != nil {
		return err
	}
	r.c.emit.Acceptance(ctx, r.match, r.doc, name, domain.AcceptanceDeclined)
	return r.cancelMatch(ctx, "declined by "+name, []string{name})
}

// lockInAccepted writes the accepted status as its own step so a crash
// between acceptance and the draft kickoff resumes into startDraft.
func (r *Runner) lockInAccepted(ctx context.Context) error {
	r.deadline.Disarm()
	r.match.Status = domain.MatchStatusAccepted
	if err := r.saveOwned(ctx); err != nil {
		return err
	}
	log.Printf("Runner %s: all %d accepted", r.matchID, len(r.doc.Roster))
	return r.startDraft(ctx)
}

// onAcceptanceDeadline fires when the window closes with seats still
// pending. Everyone who answered accept keeps their queue spot.
func (r *Runner) onAcceptanceDeadline(ctx context.Context) {
	accepted, total := r.doc.AcceptanceCounts()
	if accepted >= total {
		return
	}
	atFault := r.doc.AtFaultPlayers()
	if err := r.cancelMatch(ctx, "acceptance timed out", atFault); err != nil {
		log.Printf("Runner %s: acceptance timeout cancel: %v", r.matchID, err)
	}
}

// acceptanceDeadline is the instant the prompt expires, derived from the
// row so every owner computes the same one.
func (r *Runner) acceptanceDeadline() time.Time {
	return r.match.CreatedAt.Add(r.c.cfg.AcceptanceTimeout)
}
