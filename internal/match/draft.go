package match

import (
	"context"
	"log"
	"time"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/websocket"
)

// startDraft kicks off the 20-action sequence. Reached from the final
// accept and from restore when a crash landed between the accepted write
// and this one.
func (r *Runner) startDraft(ctx context.Context) error {
	now := time.Now().UTC()
	r.match.Status = domain.MatchStatusDraft
	r.doc.CurrentActionStartedAt = &now
	if err := r.saveOwned(ctx); err != nil {
		return err
	}
	deadline := now.Add(r.c.cfg.DraftActionTimeout)
	r.c.emit.DraftStarted(ctx, r.match, deadline)
	r.deadline.Arm(deadline)
	return nil
}

// resumeDraft re-arms a draft from its persisted timestamps. Overdue
// actions resolve exactly as they would have on the old owner, each
// timed from the previous one, so a long outage fast-forwards the
// schedule deterministically.
func (r *Runner) resumeDraft(ctx context.Context) error {
	if r.doc.InConfirmation() {
		return r.enterConfirmation(ctx)
	}
	if r.doc.CurrentActionStartedAt == nil {
		// Older row without a timestamp: restart the current action's clock.
		now := time.Now().UTC()
		r.doc.CurrentActionStartedAt = &now
		if err := r.saveOwned(ctx); err != nil {
			return err
		}
	}
	return r.advanceOverdue(ctx)
}

func (r *Runner) onDraftDeadline(ctx context.Context) {
	if err := r.advanceOverdue(ctx); err != nil {
		log.Printf("Runner %s: draft timeout: %v", r.matchID, err)
	}
}

// advanceOverdue resolves every action whose window has fully elapsed,
// then arms the timer for the live one. One persist covers the whole
// cascade; events follow the write.
func (r *Runner) advanceOverdue(ctx context.Context) error {
	now := time.Now().UTC()
	var resolved []domain.DraftAction
	for !r.doc.InConfirmation() {
		start := r.doc.CurrentActionStartedAt
		if start == nil {
			break
		}
		due := start.Add(r.c.cfg.DraftActionTimeout)
		if now.Before(due) {
			break
		}
		resolved = append(resolved, r.resolveTimeout(due))
	}
	if len(resolved) > 0 {
		if err := r.saveOwned(ctx); err != nil {
			return err
		}
		for _, a := range resolved {
			next := a.Index + 1
			var dl *time.Time
			if next < domain.TotalDraftActions {
				d := a.CompletedAt.Add(r.c.cfg.DraftActionTimeout)
				dl = &d
			}
			r.c.emit.DraftAction(ctx, r.match, a, next, dl)
		}
	}
	if r.doc.InConfirmation() {
		return r.enterConfirmation(ctx)
	}
	r.armCurrentAction()
	return nil
}

// resolveTimeout expires the current action at its due instant: bans are
// skipped outright, picks auto-fill with the lowest champion id not yet
// taken. Returns a copy for the event.
func (r *Runner) resolveTimeout(due time.Time) domain.DraftAction {
	action := &r.doc.Actions[r.doc.CurrentIndex]
	at := due
	action.CompletedAt = &at
	switch action.Type {
	case domain.ActionTypeBan:
		action.Status = domain.DraftActionSkipped
	case domain.ActionTypePick:
		id := r.doc.NextFreeChampionID()
		action.Status = domain.DraftActionCompleted
		action.ChampionID = &id
		action.AutoFilled = true
	}
	r.advanceCursor(due)
	return *action
}

// advanceCursor moves past the action resolved at t, starting the next
// action's clock from the same instant.
func (r *Runner) advanceCursor(t time.Time) {
	r.doc.CurrentIndex++
	ts := t
	if r.doc.InConfirmation() {
		r.doc.CurrentActionStartedAt = nil
		if r.doc.ConfirmationStartedAt == nil {
			r.doc.ConfirmationStartedAt = &ts
		}
	} else {
		r.doc.CurrentActionStartedAt = &ts
	}
}

func (r *Runner) currentDeadline() *time.Time {
	if r.doc.InConfirmation() || r.doc.CurrentActionStartedAt == nil {
		return nil
	}
	d := r.doc.CurrentActionStartedAt.Add(r.c.cfg.DraftActionTimeout)
	return &d
}

func (r *Runner) armCurrentAction() {
	if dl := r.currentDeadline(); dl != nil {
		r.deadline.Arm(*dl)
	} else {
		r.deadline.Disarm()
	}
}

// applyDraftAction resolves the current schedule step with the player's
// champion choice.
func (r *Runner) applyDraftAction(ctx context.Context, name string, frame websocket.PlayerActionFrame) error {
	if r.match.Status != domain.MatchStatusDraft || r.doc.InConfirmation() {
		return domain.ErrDraftNotInProgress
	}
	if frame.Index != nil && *frame.Index != r.doc.CurrentIndex {
		return domain.ErrNotYourTurn
	}
	action := &r.doc.Actions[r.doc.CurrentIndex]
	if action.ByPlayer != name {
		return domain.ErrNotYourTurn
	}
	if frame.ChampionID == nil {
		return domain.ErrInvalidInput
	}
	if r.doc.ChampionUsed(*frame.ChampionID, -1) {
		return domain.ErrChampionAlreadyUsed
	}

	now := time.Now().UTC()
	action.Status = domain.DraftActionCompleted
	action.ChampionID = frame.ChampionID
	action.ChampionName = frame.ChampionName
	action.AutoFilled = false
	action.CompletedAt = &now
	acted := *action
	r.advanceCursor(now)

	if err := r.saveOwned(ctx); err != nil {
		return err
	}
	r.c.emit.DraftAction(ctx, r.match, acted, r.doc.CurrentIndex, r.currentDeadline())
	if r.doc.InConfirmation() {
		return r.enterConfirmation(ctx)
	}
	r.armCurrentAction()
	return nil
}

// applyDraftEdit lets a player swap the champion on one of their own
// already-completed actions. During the confirmation stage an edit
// clears everyone else's sign-off.
func (r *Runner) applyDraftEdit(ctx context.Context, name string, frame websocket.PlayerActionFrame) error {
	if r.match.Status != domain.MatchStatusDraft {
		return domain.ErrDraftNotInProgress
	}
	if frame.Index == nil || frame.ChampionID == nil {
		return domain.ErrInvalidInput
	}
	idx := *frame.Index
	if idx < 0 || idx >= domain.TotalDraftActions {
		return domain.ErrInvalidInput
	}
	if idx >= r.doc.CurrentIndex {
		return domain.ErrActionNotEditable
	}
	action := &r.doc.Actions[idx]
	if action.ByPlayer != name {
		return domain.ErrActionNotEditable
	}
	if action.Status != domain.DraftActionCompleted {
		// Skipped bans stay skipped; the window for them is gone.
		return domain.ErrActionNotEditable
	}
	if r.doc.ChampionUsed(*frame.ChampionID, idx) {
		return domain.ErrChampionAlreadyUsed
	}

	now := time.Now().UTC()
	action.ChampionID = frame.ChampionID
	action.ChampionName = frame.ChampionName
	action.AutoFilled = false

	reset := false
	if r.doc.InConfirmation() {
		r.doc.ResetConfirmationsExcept(name)
		reset = true
		w := r.doc.EditWindows[name]
		if w.OpenedAt == nil {
			w.OpenedAt = &now
		}
		w.LastEditAt = &now
		r.doc.EditWindows[name] = w
	}

	if err := r.saveOwned(ctx); err != nil {
		return err
	}
	r.c.emit.DraftEdit(ctx, r.match, *action, reset)
	return nil
}

// applyDraftConfirm records one sign-off; the tenth completes the draft.
func (r *Runner) applyDraftConfirm(ctx context.Context, name string) error {
	if r.match.Status != domain.MatchStatusDraft || !r.doc.InConfirmation() {
		return domain.ErrDraftNotInProgress
	}
	if r.doc.RosterFor(name) == nil {
		return domain.ErrNotParticipant
	}
	if c, ok := r.doc.Confirmations[name]; ok && c.Confirmed {
		return nil
	}
	now := time.Now().UTC()
	r.doc.Confirmations[name] = domain.Confirmation{Confirmed: true, At: &now}
	if err := r.saveOwned(ctx); err != nil {
		return err
	}
	r.c.emit.DraftConfirm(ctx, r.match, r.doc, name)
	if r.doc.AllConfirmed() {
		return r.completeDraft(ctx)
	}
	return nil
}

// enterConfirmation runs once the cursor crosses the schedule's end.
// With confirmation disabled the draft completes on the spot; otherwise
// the stage is untimed and waits for ten sign-offs (or a cancel).
func (r *Runner) enterConfirmation(ctx context.Context) error {
	r.deadline.Disarm()
	if !r.c.cfg.ConfirmationRequired {
		return r.completeDraft(ctx)
	}
	if r.doc.AllConfirmed() {
		return r.completeDraft(ctx)
	}
	return nil
}

// completeDraft flips the match to in_progress and opens the game
// monitor's grace window.
func (r *Runner) completeDraft(ctx context.Context) error {
	now := time.Now().UTC()
	r.match.Status = domain.MatchStatusInProgress
	r.doc.LastQueryableAt = &now
	if err := r.saveOwned(ctx); err != nil {
		return err
	}
	log.Printf("Runner %s: draft complete, game on", r.matchID)
	r.c.emit.DraftCompleted(ctx, r.match)
	r.c.emit.GameStarted(ctx, r.match)
	r.startMonitoring(ctx)
	return nil
}
