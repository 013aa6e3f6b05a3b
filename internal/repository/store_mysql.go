package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{`
	CREATE TABLE IF NOT EXISTS pending_inventories (
		local_id VARCHAR(64) PRIMARY KEY,
		server_id BIGINT NULL,
		location_id BIGINT NOT NULL DEFAULT 0,
		inv_date VARCHAR(10) NOT NULL,
		lines_json LONGTEXT NOT NULL,
		modified_ns BIGINT NOT NULL,
		synced TINYINT NOT NULL DEFAULT 0,
		synced_at_ns BIGINT NULL,
		INDEX idx_pending_synced_ts (synced, modified_ns)
	)`,
		`
	CREATE TABLE IF NOT EXISTS cached_products (
		id BIGINT PRIMARY KEY,
		barcode VARCHAR(128) NULL UNIQUE,
		code VARCHAR(128) NOT NULL DEFAULT '',
		name VARCHAR(255) NOT NULL DEFAULT '',
		uom VARCHAR(64) NOT NULL DEFAULT '',
		uom_id BIGINT NOT NULL DEFAULT 0,
		standard_price DOUBLE NOT NULL DEFAULT 0,
		tracking VARCHAR(32) NOT NULL DEFAULT '',
		image_url VARCHAR(512) NOT NULL DEFAULT ''
	)`,
	},
	upsertInventory: `
		INSERT INTO pending_inventories (local_id, location_id, inv_date, lines_json, modified_ns, synced)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			location_id = VALUES(location_id),
			inv_date = VALUES(inv_date),
			lines_json = VALUES(lines_json),
			modified_ns = VALUES(modified_ns),
			synced = VALUES(synced)`,
	upsertProduct: `
		INSERT INTO cached_products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			barcode = VALUES(barcode),
			code = VALUES(code),
			name = VALUES(name),
			uom = VALUES(uom),
			uom_id = VALUES(uom_id),
			standard_price = VALUES(standard_price),
			tracking = VALUES(tracking),
			image_url = VALUES(image_url)`,
}

// NewMySQLStore creates a local store on MySQL.
func NewMySQLStore(dsn string) (*SQLStore, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	store, err := newSQLStore(db, mysqlDialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Println("[MySQLStore] Initialized")
	return store, nil
}
