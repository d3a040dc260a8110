package match

import "time"

// deadlineTimer wraps a single rearmable deadline. A disarmed timer's
// channel is nil, which never fires in a select. Single-goroutine use
// only; the runner owns its timers.
type deadlineTimer struct {
	timer *time.Timer
	at    time.Time
}

// Arm schedules the timer for an absolute time. Past deadlines fire
// immediately, which is how overdue state gets applied after recovery.
func (d *deadlineTimer) Arm(at time.Time) {
	d.Disarm()
	wait := time.Until(at)
	if wait < 0 {
		wait = 0
	}
	d.timer = time.NewTimer(wait)
	d.at = at
}

func (d *deadlineTimer) Disarm() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.at = time.Time{}
}

func (d *deadlineTimer) Armed() bool {
	return d.timer != nil
}

func (d *deadlineTimer) At() time.Time {
	return d.at
}

// C returns the firing channel, nil when disarmed.
func (d *deadlineTimer) C() <-chan time.Time {
	if d.timer == nil {
		return nil
	}
	return d.timer.C
}

// pollTicker is a stoppable ticker with the same nil-channel idiom.
type pollTicker struct {
	ticker *time.Ticker
}

func (p *pollTicker) Start(interval time.Duration) {
	p.Stop()
	p.ticker = time.NewTicker(interval)
}

func (p *pollTicker) Stop() {
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
	}
}

func (p *pollTicker) C() <-chan time.Time {
	if p.ticker == nil {
		return nil
	}
	return p.ticker.C
}
