package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"stockex-offline-sync/internal/model"

	"github.com/jmoiron/sqlx"
)

// dialect holds the backend specific SQL of a SQL local store.
type dialect struct {
	name            string
	schema          []string
	upsertInventory string
	upsertProduct   string
}

// SQLStore implements LocalStore on top of database/sql via sqlx. The same
// implementation backs SQLite, PostgreSQL and MySQL; only the dialect differs.
type SQLStore struct {
	db      *sqlx.DB
	dialect dialect
	clock   *clock
	mu      sync.RWMutex
}

// inventoryRow is the table layout of pending_inventories.
type inventoryRow struct {
	LocalID    string        `db:"local_id"`
	ServerID   sql.NullInt64 `db:"server_id"`
	LocationID int64         `db:"location_id"`
	Date       string        `db:"inv_date"`
	LinesJSON  string        `db:"lines_json"`
	ModifiedNS int64         `db:"modified_ns"`
	Synced     bool          `db:"synced"`
	SyncedAtNS sql.NullInt64 `db:"synced_at_ns"`
}

// productRow is the table layout of cached_products.
type productRow struct {
	ID            int64          `db:"id"`
	Barcode       sql.NullString `db:"barcode"`
	Code          string         `db:"code"`
	Name          string         `db:"name"`
	UoM           string         `db:"uom"`
	UoMID         int64          `db:"uom_id"`
	StandardPrice float64        `db:"standard_price"`
	Tracking      string         `db:"tracking"`
	ImageURL      string         `db:"image_url"`
}

const inventoryColumns = `local_id, server_id, location_id, inv_date, lines_json, modified_ns, synced, synced_at_ns`

const productColumns = `id, barcode, code, name, uom, uom_id, standard_price, tracking, image_url`

func newSQLStore(db *sqlx.DB, d dialect) (*SQLStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return &SQLStore{db: db, dialect: d, clock: newClock()}, nil
}

func (r inventoryRow) toModel() (*model.PendingInventory, error) {
	inv := &model.PendingInventory{
		LocalID:    r.LocalID,
		LocationID: r.LocationID,
		Date:       r.Date,
		Timestamp:  time.Unix(0, r.ModifiedNS).UTC(),
		Synced:     r.Synced,
	}
	if err := json.Unmarshal([]byte(r.LinesJSON), &inv.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode lines of %s: %w", r.LocalID, err)
	}
	if r.ServerID.Valid {
		id := r.ServerID.Int64
		inv.ServerID = &id
	}
	if r.SyncedAtNS.Valid {
		at := time.Unix(0, r.SyncedAtNS.Int64).UTC()
		inv.SyncedAt = &at
	}
	return inv, nil
}

func (r productRow) toModel() *model.CachedProduct {
	return &model.CachedProduct{
		ID:            r.ID,
		Barcode:       r.Barcode.String,
		Code:          r.Code,
		Name:          r.Name,
		UoM:           r.UoM,
		UoMID:         r.UoMID,
		StandardPrice: r.StandardPrice,
		Tracking:      r.Tracking,
		ImageURL:      r.ImageURL,
	}
}

// SaveInventory upserts a pending inventory keyed by LocalID.
func (s *SQLStore) SaveInventory(ctx context.Context, inv *model.PendingInventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(inv, s.clock.Now())

	lines, err := json.Marshal(inv.Lines)
	if err != nil {
		return storageErr("save inventory", err)
	}

	prior, err := s.getInventory(ctx, inv.LocalID)
	if err != nil {
		return storageErr("save inventory", err)
	}
	synced := 0
	if keepsSync(prior, inv.Lines) {
		synced = 1
	}

	query := s.db.Rebind(s.dialect.upsertInventory)
	_, err = s.db.ExecContext(ctx, query,
		inv.LocalID, inv.LocationID, inv.Date, string(lines), inv.Timestamp.UnixNano(), synced)
	if err != nil {
		return storageErr("save inventory", err)
	}

	// Reflect the stored sync state back to the caller.
	inv.Synced = synced == 1
	inv.ServerID, inv.SyncedAt = nil, nil
	if prior != nil {
		inv.ServerID = prior.ServerID
		inv.SyncedAt = prior.SyncedAt
	}
	return nil
}

// GetInventory returns the inventory stored under localID, or nil.
func (s *SQLStore) GetInventory(ctx context.Context, localID string) (*model.PendingInventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, err := s.getInventory(ctx, localID)
	return inv, storageErr("get inventory", err)
}

// getInventory returns unwrapped errors; callers attach their own op.
func (s *SQLStore) getInventory(ctx context.Context, localID string) (*model.PendingInventory, error) {
	var row inventoryRow
	query := s.db.Rebind(`SELECT ` + inventoryColumns + ` FROM pending_inventories WHERE local_id = ?`)
	if err := s.db.GetContext(ctx, &row, query, localID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel()
}

// GetPendingInventories returns unsynced inventories ordered by timestamp.
func (s *SQLStore) GetPendingInventories(ctx context.Context) ([]model.PendingInventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []inventoryRow
	query := `SELECT ` + inventoryColumns + ` FROM pending_inventories
		WHERE synced = 0 ORDER BY modified_ns, local_id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, storageErr("get pending inventories", err)
	}

	pending := make([]model.PendingInventory, 0, len(rows))
	for _, row := range rows {
		inv, err := row.toModel()
		if err != nil {
			return nil, storageErr("get pending inventories", err)
		}
		pending = append(pending, *inv)
	}
	return pending, nil
}

// MarkSynced records the server acknowledgment in a single UPDATE, which is
// atomic against concurrent writes to the same row. The row is only marked
// synced when modified_ns still holds the submitted version.
func (s *SQLStore) MarkSynced(ctx context.Context, localID string, serverID int64, version time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := version.UnixNano()
	query := s.db.Rebind(`UPDATE pending_inventories SET
		server_id = ?,
		synced = CASE WHEN modified_ns = ? THEN 1 ELSE synced END,
		synced_at_ns = CASE WHEN modified_ns = ? THEN ? ELSE synced_at_ns END
		WHERE local_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, serverID, v, v, s.clock.Now().UnixNano(), localID); err != nil {
		return false, storageErr("mark synced", err)
	}

	stored, err := s.getInventory(ctx, localID)
	if err != nil {
		return false, storageErr("mark synced", err)
	}
	return stored != nil && stored.Synced && stored.Timestamp.Equal(version), nil
}

// CacheProduct upserts a product by id. Another product holding the same
// barcode is evicted first so the barcode stays a unique lookup key.
func (s *SQLStore) CacheProduct(ctx context.Context, p model.CachedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("cache product", err)
	}
	defer tx.Rollback()

	barcode := sql.NullString{String: p.Barcode, Valid: p.Barcode != ""}
	if barcode.Valid {
		evict := tx.Rebind(`DELETE FROM cached_products WHERE barcode = ? AND id <> ?`)
		if _, err := tx.ExecContext(ctx, evict, barcode, p.ID); err != nil {
			return storageErr("cache product", err)
		}
	}

	upsert := tx.Rebind(s.dialect.upsertProduct)
	_, err = tx.ExecContext(ctx, upsert,
		p.ID, barcode, p.Code, p.Name, p.UoM, p.UoMID, p.StandardPrice, p.Tracking, p.ImageURL)
	if err != nil {
		return storageErr("cache product", err)
	}

	return storageErr("cache product", tx.Commit())
}

// FindProductByBarcode returns the cached product or nil.
func (s *SQLStore) FindProductByBarcode(ctx context.Context, barcode string) (*model.CachedProduct, error) {
	if barcode == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var row productRow
	query := s.db.Rebind(`SELECT ` + productColumns + ` FROM cached_products WHERE barcode = ?`)
	if err := s.db.GetContext(ctx, &row, query, barcode); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storageErr("find product", err)
	}
	return row.toModel(), nil
}

// Stats returns counters about the local store.
func (s *SQLStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{"backend": s.dialect.name}

	var pending, synced, products int64
	if err := s.db.GetContext(ctx, &pending, `SELECT COUNT(*) FROM pending_inventories WHERE synced = 0`); err != nil {
		return nil, storageErr("stats", err)
	}
	if err := s.db.GetContext(ctx, &synced, `SELECT COUNT(*) FROM pending_inventories WHERE synced = 1`); err != nil {
		return nil, storageErr("stats", err)
	}
	if err := s.db.GetContext(ctx, &products, `SELECT COUNT(*) FROM cached_products`); err != nil {
		return nil, storageErr("stats", err)
	}
	stats["pending_inventories"] = pending
	stats["synced_inventories"] = synced
	stats["cached_products"] = products

	var lastSync sql.NullInt64
	if err := s.db.GetContext(ctx, &lastSync, `SELECT MAX(synced_at_ns) FROM pending_inventories`); err == nil && lastSync.Valid {
		stats["last_sync"] = time.Unix(0, lastSync.Int64).UTC()
	}

	return stats, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ensure SQLStore implements LocalStore
var _ LocalStore = (*SQLStore)(nil)
