package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/trolley/internal/cartsync"
)

// MaxNotices bounds the notice history kept for the UI.
const MaxNotices = 5

// Notice is a user-facing message recorded by the store.
type Notice struct {
	At       time.Time
	Op       cartsync.Op
	ItemID   int64
	Message  string
	Blocking bool
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	View                cartsync.View
	HasCart             bool
	LastUpdated         time.Time
	Notices             []Notice
	NeedsLogin          bool
	ConsecutiveFailures int // Number of consecutive failed loads
}

// IsOffline returns true when the cart failed to load several times in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// LatestNotice returns the newest notice, if any.
func (s Snapshot) LatestNotice() (Notice, bool) {
	if len(s.Notices) == 0 {
		return Notice{}, false
	}
	return s.Notices[len(s.Notices)-1], true
}

// Store coordinates concurrent updates to the snapshot. It is fed by an
// engine subscription and doubles as the engine's Notifier.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	now      func() time.Time
}

var _ cartsync.Notifier = (*Store)(nil)

// Update replaces the stored view.
func (s *Store) Update(view cartsync.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.View = view
	s.snapshot.LastUpdated = s.clock()
	switch view.Status {
	case cartsync.StatusReady:
		s.snapshot.HasCart = true
		s.snapshot.NeedsLogin = false
		s.snapshot.ConsecutiveFailures = 0
	case cartsync.StatusUnauthenticated:
		s.snapshot.NeedsLogin = true
	}
}

// Notify records a notice, dropping the oldest beyond MaxNotices.
func (s *Store) Notify(n cartsync.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.Op == cartsync.OpFetch {
		s.snapshot.ConsecutiveFailures++
	}
	s.snapshot.Notices = append(s.snapshot.Notices, Notice{
		At:       s.clock(),
		Op:       n.Op,
		ItemID:   n.ItemID,
		Message:  n.Message(),
		Blocking: n.Blocking,
	})
	if over := len(s.snapshot.Notices) - MaxNotices; over > 0 {
		s.snapshot.Notices = append([]Notice(nil), s.snapshot.Notices[over:]...)
	}
}

// RequireLogin flags that the user must sign in again.
func (s *Store) RequireLogin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.NeedsLogin = true
}

// DismissNotices clears the notice history.
func (s *Store) DismissNotices() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Notices = nil
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.View.Cart = s.snapshot.View.Cart.Clone()
	snap.View.Pending = cloneIDs(s.snapshot.View.Pending)
	snap.View.Removing = cloneIDs(s.snapshot.View.Removing)
	snap.Notices = cloneNotices(s.snapshot.Notices)
	if s.snapshot.View.LoadErr != nil {
		snap.View.LoadErr = fmt.Errorf("%w", s.snapshot.View.LoadErr)
	}
	return snap
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func cloneIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	dup := make([]int64, len(ids))
	copy(dup, ids)
	return dup
}

func cloneNotices(items []Notice) []Notice {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Notice, len(items))
	copy(dup, items)
	return dup
}
