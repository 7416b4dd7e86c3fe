package cartsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualSchedulerFiresInOrder(t *testing.T) {
	s := NewManualScheduler()
	var fired []string

	s.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "c") })
	s.AfterFunc(100*time.Millisecond, func() {
		fired = append(fired, "a")
		s.AfterFunc(50*time.Millisecond, func() { fired = append(fired, "b") })
	})
	stopped := s.AfterFunc(200*time.Millisecond, func() { fired = append(fired, "x") })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	s.Advance(250 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 250*time.Millisecond, s.Elapsed())

	s.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Zero(t, s.Pending())
}

func TestRealSchedulerRuns(t *testing.T) {
	done := make(chan struct{})
	realScheduler{}.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	tm := realScheduler{}.AfterFunc(time.Hour, func() {})
	assert.True(t, tm.Stop())
}
