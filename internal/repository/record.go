package repository

import (
	"sync"
	"time"

	"stockex-offline-sync/internal/model"
	"stockex-offline-sync/pkg/uid"
)

// clock hands out strictly increasing instants at the backend's timestamp
// resolution. The instant doubles as the record version checked by
// MarkSynced, so two writes never share one.
type clock struct {
	mu         sync.Mutex
	last       time.Time
	resolution time.Duration
	now        func() time.Time
}

func newClock() *clock {
	return newClockWithResolution(time.Nanosecond)
}

func newClockWithResolution(resolution time.Duration) *clock {
	return &clock{resolution: resolution, now: time.Now}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Round(0).Truncate(c.resolution)
	if !t.After(c.last) {
		t = c.last.Add(c.resolution)
	}
	c.last = t
	return t
}

// keepsSync reports whether a write of lines leaves the stored record's sync
// state as is. Only a synced record whose lines are unchanged stays synced.
func keepsSync(stored *model.PendingInventory, lines []model.InventoryLine) bool {
	if stored == nil || !stored.Synced || len(stored.Lines) != len(lines) {
		return false
	}
	for i := range lines {
		if stored.Lines[i] != lines[i] {
			return false
		}
	}
	return true
}

// stamp fills generated fields before a write. The caller's record is
// updated in place so it sees its LocalID and Timestamp.
func stamp(inv *model.PendingInventory, now time.Time) {
	if inv.LocalID == "" {
		inv.LocalID = uid.NewLocal()
	}
	if inv.Date == "" {
		inv.Date = now.Format(model.DateLayout)
	}
	if inv.Lines == nil {
		inv.Lines = []model.InventoryLine{}
	}
	inv.Timestamp = now
}
