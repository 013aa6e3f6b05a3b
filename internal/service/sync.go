package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"stockex-offline-sync/internal/model"
	"stockex-offline-sync/internal/repository"
)

// SyncState is the state of the sync engine.
type SyncState int32

const (
	SyncIdle SyncState = iota
	SyncRunning
)

func (s SyncState) String() string {
	if s == SyncRunning {
		return "running"
	}
	return "idle"
}

// SyncReport summarizes one sync cycle.
type SyncReport struct {
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Submitted  int                   `json:"submitted"`
	Synced     []model.SyncedPair    `json:"synced"`
	Rejected   []model.SyncItemError `json:"rejected,omitempty"`
	MarkFailed []string              `json:"mark_failed,omitempty"`
	Changed    []string              `json:"changed,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// SyncEngine drains the pending inventories to the remote ORM. At most one
// cycle runs at a time; a request while running is dropped.
type SyncEngine struct {
	store    repository.LocalStore
	remote   RemoteClient
	notifier Notifier
	online   func() bool
	now      func() time.Time

	state atomic.Int32

	mu   sync.RWMutex
	last *SyncReport
}

// NewSyncEngine creates a sync engine. online reports the current
// connectivity; cycles started while offline are no-ops.
func NewSyncEngine(store repository.LocalStore, remote RemoteClient, notifier Notifier, online func() bool) *SyncEngine {
	return &SyncEngine{
		store:    store,
		remote:   remote,
		notifier: notifier,
		online:   online,
		now:      time.Now,
	}
}

// State returns the current engine state.
func (e *SyncEngine) State() SyncState {
	return SyncState(e.state.Load())
}

// LastReport returns the report of the last completed cycle, or nil.
func (e *SyncEngine) LastReport() *SyncReport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Run executes one sync cycle. It returns ErrOffline or ErrSyncInProgress
// without side effects when the cycle cannot start. Transport failures and
// server rejections are returned unchanged and leave every record pending.
func (e *SyncEngine) Run(ctx context.Context) (*SyncReport, error) {
	if !e.online() {
		return nil, ErrOffline
	}
	if !e.state.CompareAndSwap(int32(SyncIdle), int32(SyncRunning)) {
		return nil, ErrSyncInProgress
	}
	defer e.state.Store(int32(SyncIdle))

	report := &SyncReport{StartedAt: e.now().UTC(), Synced: []model.SyncedPair{}}
	err := e.cycle(ctx, report)
	report.FinishedAt = e.now().UTC()
	if err != nil {
		report.Error = err.Error()
	}

	e.mu.Lock()
	e.last = report
	e.mu.Unlock()

	return report, err
}

// Trigger runs a cycle and logs the outcome. Requests dropped because the
// engine is busy or offline are not errors.
func (e *SyncEngine) Trigger(ctx context.Context) {
	report, err := e.Run(ctx)
	switch {
	case errors.Is(err, ErrSyncInProgress), errors.Is(err, ErrOffline):
		log.Printf("[SyncEngine] Skipped: %v", err)
	case err != nil:
		log.Printf("[SyncEngine] Cycle failed: %v", err)
	case report.Submitted > 0:
		log.Printf("[SyncEngine] Cycle done: %d/%d synced", len(report.Synced), report.Submitted)
	}
}

// cycle submits inventories the server has never seen as one batch, then
// replays the lines of inventories that already carry a server id through
// add-line. Add-line sets the counted quantity, so a replay is idempotent.
func (e *SyncEngine) cycle(ctx context.Context, report *SyncReport) error {
	pending, err := e.store.GetPendingInventories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending inventories: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}
	report.Submitted = len(pending)

	var fresh, known []model.PendingInventory
	for _, inv := range pending {
		if inv.ServerID == nil {
			fresh = append(fresh, inv)
		} else {
			known = append(known, inv)
		}
	}

	e.notifier.Notify(model.LevelInfo, "Synchronisation en cours...")

	if len(fresh) > 0 {
		if err := e.submit(ctx, fresh, report); err != nil {
			e.notifier.Notify(model.LevelError, "Erreur de synchronisation")
			return err
		}
	}
	for _, inv := range known {
		if err := e.replay(ctx, inv, report); err != nil {
			e.notifier.Notify(model.LevelError, "Erreur de synchronisation")
			return err
		}
	}

	if n := len(report.Synced); n > 0 {
		e.notifier.Notify(model.LevelSuccess, fmt.Sprintf("%d inventaire(s) synchronisé(s)", n))
	}
	return nil
}

func (e *SyncEngine) submit(ctx context.Context, batch []model.PendingInventory, report *SyncReport) error {
	result, err := e.remote.SyncInventories(ctx, batch)
	if err != nil {
		log.Printf("[SyncEngine] Sync of %d inventories failed: %v", len(batch), err)
		return err
	}

	for _, item := range result.Errors {
		log.Printf("[SyncEngine] Server refused %s: %s", item.LocalID, item.Error)
	}
	report.Rejected = append(report.Rejected, result.Errors...)

	versions := make(map[string]time.Time, len(batch))
	for _, inv := range batch {
		versions[inv.LocalID] = inv.Timestamp
	}
	for _, pair := range result.Synced {
		version, ok := versions[pair.LocalID]
		if !ok {
			log.Printf("[SyncEngine] Ignoring acknowledgment of unsubmitted %s", pair.LocalID)
			continue
		}
		e.mark(ctx, pair, version, report)
	}
	return nil
}

func (e *SyncEngine) replay(ctx context.Context, inv model.PendingInventory, report *SyncReport) error {
	serverID := *inv.ServerID
	for _, line := range inv.Lines {
		result, err := e.remote.AddLine(ctx, serverID, line.ProductID, line.RealQty)
		if err != nil {
			log.Printf("[SyncEngine] Replay of %s failed: %v", inv.LocalID, err)
			return err
		}
		if !result.Success {
			log.Printf("[SyncEngine] Server refused line %d of %s: %s", line.ProductID, inv.LocalID, result.Message)
			report.Rejected = append(report.Rejected, model.SyncItemError{LocalID: inv.LocalID, Error: result.Message})
			return nil
		}
	}

	pair := model.SyncedPair{LocalID: inv.LocalID, ServerID: serverID, LinesCount: len(inv.Lines)}
	e.mark(ctx, pair, inv.Timestamp, report)
	return nil
}

func (e *SyncEngine) mark(ctx context.Context, pair model.SyncedPair, version time.Time, report *SyncReport) {
	marked, err := e.store.MarkSynced(ctx, pair.LocalID, pair.ServerID, version)
	switch {
	case err != nil:
		log.Printf("[SyncEngine] Failed to mark %s synced: %v", pair.LocalID, err)
		report.MarkFailed = append(report.MarkFailed, pair.LocalID)
	case !marked:
		log.Printf("[SyncEngine] %s changed during sync, left pending", pair.LocalID)
		report.Changed = append(report.Changed, pair.LocalID)
	default:
		report.Synced = append(report.Synced, pair)
	}
}
