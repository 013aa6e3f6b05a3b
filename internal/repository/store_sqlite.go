package repository

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{`
	CREATE TABLE IF NOT EXISTS pending_inventories (
		local_id TEXT PRIMARY KEY,
		server_id INTEGER,
		location_id INTEGER NOT NULL DEFAULT 0,
		inv_date TEXT NOT NULL,
		lines_json TEXT NOT NULL,
		modified_ns INTEGER NOT NULL,
		synced INTEGER NOT NULL DEFAULT 0,
		synced_at_ns INTEGER
	)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_synced_ts ON pending_inventories(synced, modified_ns)`,
		`
	CREATE TABLE IF NOT EXISTS cached_products (
		id INTEGER PRIMARY KEY,
		barcode TEXT UNIQUE,
		code TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		uom TEXT NOT NULL DEFAULT '',
		uom_id INTEGER NOT NULL DEFAULT 0,
		standard_price REAL NOT NULL DEFAULT 0,
		tracking TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT ''
	)`,
	},
	upsertInventory: `
		INSERT INTO pending_inventories (local_id, location_id, inv_date, lines_json, modified_ns, synced)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			location_id = excluded.location_id,
			inv_date = excluded.inv_date,
			lines_json = excluded.lines_json,
			modified_ns = excluded.modified_ns,
			synced = excluded.synced`,
	upsertProduct: `
		INSERT INTO cached_products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			barcode = excluded.barcode,
			code = excluded.code,
			name = excluded.name,
			uom = excluded.uom,
			uom_id = excluded.uom_id,
			standard_price = excluded.standard_price,
			tracking = excluded.tracking,
			image_url = excluded.image_url`,
}

// NewSQLiteStore creates the default on-device local store.
// dbPath is the path to the SQLite database file (e.g., "./data/offline.db")
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	// Open with WAL mode and other optimizations
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	store, err := newSQLStore(db, sqliteDialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return store, nil
}
