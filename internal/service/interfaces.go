package service

import (
	"context"

	"stockex-offline-sync/internal/model"
	"stockex-offline-sync/internal/remote"
)

// RemoteClient is the subset of the remote ORM client used by the services.
type RemoteClient interface {
	SyncInventories(ctx context.Context, inventories []model.PendingInventory) (*remote.SyncResult, error)
	SearchProduct(ctx context.Context, barcode string) (*remote.SearchResult, error)
	AddLine(ctx context.Context, inventoryID, productID int64, qty float64) (*remote.AddLineResult, error)
}

// Notifier shows non-blocking messages to the operator.
type Notifier interface {
	Notify(level model.Level, message string)
}

// Connectivity is the source of truth for the online flag.
type Connectivity interface {
	Online() bool
	Set(online bool)
	Subscribe(fn func(online bool)) (cancel func())
}

var (
	_ RemoteClient = (*remote.Client)(nil)
)
