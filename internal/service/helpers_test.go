package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"stockex-offline-sync/internal/connectivity"
	"stockex-offline-sync/internal/model"
	"stockex-offline-sync/internal/remote"
	"stockex-offline-sync/internal/repository"

	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	mu          sync.Mutex
	syncCalls   [][]model.PendingInventory
	searchCalls []string
	addCalls    int

	syncFn   func([]model.PendingInventory) (*remote.SyncResult, error)
	searchFn func(string) (*remote.SearchResult, error)
	addFn    func(inventoryID, productID int64, qty float64) (*remote.AddLineResult, error)
}

// acceptAll acknowledges every submitted inventory with server ids from 100.
func acceptAll(batch []model.PendingInventory) (*remote.SyncResult, error) {
	result := &remote.SyncResult{Success: true, Total: len(batch)}
	for i, inv := range batch {
		result.Synced = append(result.Synced, model.SyncedPair{LocalID: inv.LocalID, ServerID: int64(100 + i)})
	}
	result.SyncedCount = len(result.Synced)
	return result, nil
}

func (f *fakeRemote) SyncInventories(ctx context.Context, batch []model.PendingInventory) (*remote.SyncResult, error) {
	f.mu.Lock()
	f.syncCalls = append(f.syncCalls, batch)
	fn := f.syncFn
	f.mu.Unlock()
	if fn == nil {
		fn = acceptAll
	}
	return fn(batch)
}

func (f *fakeRemote) SearchProduct(ctx context.Context, barcode string) (*remote.SearchResult, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, barcode)
	fn := f.searchFn
	f.mu.Unlock()
	if fn == nil {
		return &remote.SearchResult{Found: false}, nil
	}
	return fn(barcode)
}

func (f *fakeRemote) AddLine(ctx context.Context, inventoryID, productID int64, qty float64) (*remote.AddLineResult, error) {
	f.mu.Lock()
	f.addCalls++
	fn := f.addFn
	f.mu.Unlock()
	if fn == nil {
		return &remote.AddLineResult{Success: false, Message: "not configured"}, nil
	}
	return fn(inventoryID, productID, qty)
}

func (f *fakeRemote) syncCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.syncCalls)
}

type fakeNotifier struct {
	mu    sync.Mutex
	items []model.Notification
}

func (n *fakeNotifier) Notify(level model.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, model.Notification{Level: level, Message: message})
}

func (n *fakeNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.items))
	for i, item := range n.items {
		out[i] = string(item.Level) + ": " + item.Message
	}
	return out
}

func newStore(t *testing.T) *repository.SQLStore {
	t.Helper()
	store, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "offline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newMonitor(online bool) *connectivity.Monitor {
	return connectivity.NewMonitor(connectivity.Config{}, online)
}

func savePending(t *testing.T, store repository.LocalStore, ids ...string) {
	t.Helper()
	for _, id := range ids {
		inv := &model.PendingInventory{LocalID: id, LocationID: 8, Lines: []model.InventoryLine{{ProductID: 7, RealQty: 3}}}
		require.NoError(t, store.SaveInventory(context.Background(), inv))
	}
}

func pendingIDs(t *testing.T, store repository.LocalStore) []string {
	t.Helper()
	pending, err := store.GetPendingInventories(context.Background())
	require.NoError(t, err)
	ids := []string{}
	for _, p := range pending {
		ids = append(ids, p.LocalID)
	}
	return ids
}

// markSynced acknowledges the stored version of localID.
func markSynced(t *testing.T, store repository.LocalStore, localID string, serverID int64) {
	t.Helper()
	inv, err := store.GetInventory(context.Background(), localID)
	require.NoError(t, err)
	require.NotNil(t, inv)
	marked, err := store.MarkSynced(context.Background(), localID, serverID, inv.Timestamp)
	require.NoError(t, err)
	require.True(t, marked)
}

func (f *fakeRemote) addCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addCalls
}

// countPending is safe to call from Eventually conditions.
func countPending(store repository.LocalStore) int {
	pending, err := store.GetPendingInventories(context.Background())
	if err != nil {
		return -1
	}
	return len(pending)
}
