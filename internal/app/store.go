package app

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"lendwatch/internal/view"
)

// Server timestamp layouts seen in the wild. The backend emits naive ISO
// timestamps without a zone.
var snapshotTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseSnapshotTime(s string) (time.Time, bool) {
	for _, layout := range snapshotTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SnapshotStore owns the latest opportunity snapshot. The push and pull
// paths both land here; when both carry a parseable server timestamp, a
// strictly older arrival is discarded instead of overwriting newer data.
// Without ordering information the last write wins.
type SnapshotStore struct {
	logger *zap.Logger

	mu        sync.RWMutex
	snapshot  view.Snapshot
	hasData   bool
	appliedAt time.Time
	applied   uint64
	discarded uint64
}

func NewSnapshotStore(logger *zap.Logger) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{logger: logger}
}

// Apply replaces the snapshot wholesale. Returns false when the arrival
// was discarded as out of order.
func (s *SnapshotStore) Apply(snap view.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasData {
		if incoming, ok := parseSnapshotTime(snap.Timestamp); ok {
			if current, ok := parseSnapshotTime(s.snapshot.Timestamp); ok && incoming.Before(current) {
				s.discarded++
				s.logger.Debug(
					"discarding out-of-order snapshot",
					zap.String("incoming", snap.Timestamp),
					zap.String("current", s.snapshot.Timestamp),
				)
				return false
			}
		}
	}

	s.snapshot = snap
	s.hasData = true
	s.appliedAt = time.Now()
	s.applied++
	return true
}

// Latest returns the current snapshot and whether any has arrived yet.
func (s *SnapshotStore) Latest() (view.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.hasData
}

// StoreStats reports apply/discard counters for the dashboard.
type StoreStats struct {
	Applied   uint64    `json:"applied"`
	Discarded uint64    `json:"discarded"`
	AppliedAt time.Time `json:"applied_at"`
	HasData   bool      `json:"has_data"`
}

func (s *SnapshotStore) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreStats{
		Applied:   s.applied,
		Discarded: s.discarded,
		AppliedAt: s.appliedAt,
		HasData:   s.hasData,
	}
}
