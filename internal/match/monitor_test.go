package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGameHistoryPath(t *testing.T) {
	assert.Equal(t, "/lol-match-history/v1/games/4971234567", gameHistoryPath("4971234567"))
	assert.Empty(t, gameHistoryPath(""))
	assert.Empty(t, gameHistoryPath("-1"))
	assert.Empty(t, gameHistoryPath("123abc"))
	assert.Empty(t, gameHistoryPath("../../etc/passwd"), "the id is interpolated into an LCU route")
}

func TestDeadlineTimer(t *testing.T) {
	var d deadlineTimer

	assert.False(t, d.Armed())
	assert.Nil(t, d.C(), "a disarmed timer never fires in a select")

	// Past deadlines fire immediately; that is how overdue state gets
	// applied after a lease takeover.
	d.Arm(time.Now().Add(-time.Minute))
	select {
	case <-d.C():
	case <-time.After(time.Second):
		t.Fatal("past deadline did not fire")
	}

	d.Arm(time.Now().Add(time.Hour))
	assert.True(t, d.Armed())
	select {
	case <-d.C():
		t.Fatal("future deadline fired early")
	case <-time.After(50 * time.Millisecond):
	}

	d.Disarm()
	assert.False(t, d.Armed())
	assert.Nil(t, d.C())
	assert.True(t, d.At().IsZero())
}

func TestDeadlineTimer_RearmReplacesDeadline(t *testing.T) {
	var d deadlineTimer

	first := time.Now().Add(time.Hour)
	d.Arm(first)
	assert.Equal(t, first, d.At())

	second := time.Now().Add(2 * time.Hour)
	d.Arm(second)
	assert.Equal(t, second, d.At())
	assert.True(t, d.Armed())
}

func TestPollTicker(t *testing.T) {
	var p pollTicker

	assert.Nil(t, p.C())

	p.Start(10 * time.Millisecond)
	select {
	case <-p.C():
	case <-time.After(time.Second):
		t.Fatal("ticker did not tick")
	}

	p.Stop()
	assert.Nil(t, p.C())
	p.Stop() // stopping twice is harmless
}
