package repository

import (
	"context"
	"time"

	"stockex-offline-sync/internal/model"
)

// LocalStore is the persistent local store for pending inventories and
// cached product lookups. Every backend failure is returned as *StorageError.
type LocalStore interface {
	// SaveInventory upserts a pending inventory keyed by LocalID, generating
	// one when empty. A synced record whose lines change becomes pending again
	// and keeps its ServerID, so the new lines are replayed against it.
	SaveInventory(ctx context.Context, inv *model.PendingInventory) error

	// GetInventory returns the inventory stored under localID, or nil.
	GetInventory(ctx context.Context, localID string) (*model.PendingInventory, error)

	// GetPendingInventories returns unsynced inventories ordered by timestamp.
	GetPendingInventories(ctx context.Context) ([]model.PendingInventory, error)

	// MarkSynced records the server id of localID and marks it synced if its
	// Timestamp still equals version, the one that was submitted. A record
	// written since then keeps the server id but stays pending. It reports
	// whether the record was marked; unknown ids are a no-op.
	MarkSynced(ctx context.Context, localID string, serverID int64, version time.Time) (bool, error)

	// CacheProduct upserts a product by id, keeping barcodes unique.
	CacheProduct(ctx context.Context, product model.CachedProduct) error

	// FindProductByBarcode returns the cached product or nil.
	FindProductByBarcode(ctx context.Context, barcode string) (*model.CachedProduct, error)

	// Stats returns counters about the local store.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the store connection.
	Close() error
}
