package match

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dom/league-customs/internal/bus"
	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/websocket"
)

// playerCmd is one state-changing frame handed to the runner goroutine.
// The reply channel is buffered so the runner never blocks on a caller
// that gave up.
type playerCmd struct {
	name  string
	frame websocket.PlayerActionFrame
	admin bool
	reply chan error
}

// Runner drives a single match through its lifecycle on the owning
// instance. All match state is confined to the run goroutine; the rest
// of the process talks to it through Submit/SubmitVote/Stop. Every
// mutation is persisted through the conditional owner update before its
// event goes out, so a takeover can always resume from the row alone.
type Runner struct {
	c       *Coordinator
	matchID uuid.UUID

	cmds  chan playerCmd
	votes chan bus.GameVotePayload
	stop  chan struct{}
	done  chan struct{}

	stopOnce sync.Once

	// owned by run()
	match      *domain.Match
	doc        *domain.PickBanDocument
	deadline   deadlineTimer
	poll       pollTicker
	leaseLost  bool
	endedFired bool
	pollSeat   int
}

func newRunner(c *Coordinator, m *domain.Match) *Runner {
	return &Runner{
		c:       c,
		matchID: m.ID,
		cmds:    make(chan playerCmd, 32),
		votes:   make(chan bus.GameVotePayload, 16),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Submit delivers a frame to the runner and waits for the verdict. A
// runner that already exited answers ErrMatchTerminal.
func (r *Runner) Submit(ctx context.Context, summonerName string, frame websocket.PlayerActionFrame, admin bool) error {
	cmd := playerCmd{
		name:  domain.NormalizeSummonerName(summonerName),
		frame: frame,
		admin: admin,
		reply: make(chan error, 1),
	}
	select {
	case r.cmds <- cmd:
	case <-r.done:
		return domain.ErrMatchTerminal
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-r.done:
		// The loop replies before it exits; a terminal command can see
		// both channels ready, so the buffered answer wins.
		select {
		case err := <-cmd.reply:
			return err
		default:
			return domain.ErrMatchTerminal
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitVote nudges the runner to re-tally. Votes live in the database,
// so dropping a nudge under pressure loses nothing; the next one
// re-evaluates the full tally.
func (r *Runner) SubmitVote(p bus.GameVotePayload) {
	select {
	case r.votes <- p:
	case <-r.done:
	default:
	}
}

func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *Runner) run() {
	defer close(r.done)
	ctx := context.Background()

	if err := r.restore(ctx); err != nil {
		log.Printf("Runner %s: restore: %v", r.matchID, err)
		return
	}
	defer r.deadline.Disarm()
	defer r.poll.Stop()

	hb := time.NewTicker(r.c.cfg.OwnershipHeartbeat)
	defer hb.Stop()

	for {
		if r.leaseLost || r.match.Status.IsTerminal() {
			return
		}
		select {
		case <-r.stop:
			return
		case cmd := <-r.cmds:
			cmd.reply <- r.dispatch(ctx, cmd)
		case p := <-r.votes:
			r.onVoteNudge(ctx, p)
		case <-r.deadline.C():
			r.onDeadline(ctx)
		case <-r.poll.C():
			r.pollGame(ctx)
		case <-hb.C:
			if !r.heartbeat(ctx) {
				return
			}
		}
	}
}

// restore rehydrates from the row and re-arms whatever the persisted
// state says should be pending. Called once, before the loop; the same
// path serves fresh matches, reboots, and takeovers.
func (r *Runner) restore(ctx context.Context) error {
	m, err := r.c.repos.Match.GetByID(ctx, r.matchID)
	if err != nil {
		return err
	}
	doc, err := m.Document()
	if err != nil {
		return err
	}
	r.match = m
	r.doc = doc

	switch m.Status {
	case domain.MatchStatusPending, domain.MatchStatusFound:
		r.deadline.Arm(r.acceptanceDeadline())
	case domain.MatchStatusAccepted:
		// Crashed between acceptance and the draft kickoff.
		return r.startDraft(ctx)
	case domain.MatchStatusDraft:
		return r.resumeDraft(ctx)
	case domain.MatchStatusInProgress:
		r.startMonitoring(ctx)
	}
	return nil
}

// dispatch runs one player frame against the current state.
func (r *Runner) dispatch(ctx context.Context, cmd playerCmd) error {
	if r.match.Status.IsTerminal() {
		return domain.ErrMatchTerminal
	}
	switch cmd.frame.Type {
	case websocket.FrameTypeAcceptMatch:
		return r.applyAccept(ctx, cmd.name)
	case websocket.FrameTypeDeclineMatch:
		return r.applyDecline(ctx, cmd.name)
	case websocket.FrameTypeDraftAction:
		return r.applyDraftAction(ctx, cmd.name, cmd.frame)
	case websocket.FrameTypeDraftEdit:
		return r.applyDraftEdit(ctx, cmd.name, cmd.frame)
	case websocket.FrameTypeDraftConfirm:
		return r.applyDraftConfirm(ctx, cmd.name)
	case websocket.FrameTypeCancelMatch:
		return r.applyCancel(ctx, cmd.name, cmd.admin)
	default:
		return domain.ErrInvalidInput
	}
}

func (r *Runner) onDeadline(ctx context.Context) {
	switch r.match.Status {
	case domain.MatchStatusPending, domain.MatchStatusFound:
		r.onAcceptanceDeadline(ctx)
	case domain.MatchStatusDraft:
		r.onDraftDeadline(ctx)
	}
}

// heartbeat refreshes the lease row and mirror. A clean "no longer
// owner" answer stops the runner without touching match state; the new
// owner is already driving it.
func (r *Runner) heartbeat(ctx context.Context) bool {
	ok, err := r.c.repos.Match.HeartbeatOwner(ctx, r.matchID, r.c.instanceID, time.Now().UTC())
	if err != nil {
		log.Printf("Runner %s: heartbeat: %v", r.matchID, err)
		return true
	}
	if !ok {
		log.Printf("Runner %s: lease lost, stopping", r.matchID)
		return false
	}
	r.c.refreshLeaseMirror(ctx, r.matchID)
	return true
}

// saveOwned persists the document and row under the lease. ErrLeaseLost
// flips the runner into its exit path.
func (r *Runner) saveOwned(ctx context.Context) error {
	if err := r.match.SetDocument(r.doc); err != nil {
		return err
	}
	err := r.c.repos.Match.UpdateOwned(ctx, r.match, r.c.instanceID)
	if errors.Is(err, domain.ErrLeaseLost) {
		r.leaseLost = true
	}
	return err
}

// applyCancel handles the cancel_match frame. Admin cancels may hit any
// non-terminal phase; participant cancels are voluntary, so nobody is
// at fault.
func (r *Runner) applyCancel(ctx context.Context, name string, admin bool) error {
	reason := "cancelled by " + name
	if admin {
		reason = "cancelled by admin"
	} else if r.doc.RosterFor(name) == nil {
		return domain.ErrNotParticipant
	}
	return r.cancelMatch(ctx, reason, nil)
}

// cancelMatch is the single path into the cancelled state. Survivors are
// re-queued only out of the acceptance phase; later cancels mean the
// lobby dissolved and everyone re-joins on their own.
func (r *Runner) cancelMatch(ctx context.Context, reason string, atFault []string) error {
	var requeue []domain.QueuePlayer
	if r.match.Status == domain.MatchStatusFound || r.match.Status == domain.MatchStatusPending {
		requeue = r.doc.SurvivorQueueRows()
	}

	now := time.Now().UTC()
	r.match.Status = domain.MatchStatusCancelled
	r.match.CompletedAt = &now
	if err := r.saveOwned(ctx); err != nil {
		return err
	}
	r.deadline.Disarm()
	r.poll.Stop()

	if err := r.c.repos.Vote.DeleteByMatch(ctx, r.matchID); err != nil {
		log.Printf("Runner %s: clear votes: %v", r.matchID, err)
	}

	log.Printf("Runner %s: cancelled (%s), at fault: %v", r.matchID, reason, atFault)
	r.c.emit.Cancelled(ctx, r.match, reason, atFault)

	if len(requeue) > 0 && r.c.requeue != nil {
		r.c.requeue.Requeue(ctx, requeue)
	}
	return nil
}
