package model

import "time"

// DateLayout is the calendar date format exchanged with the remote ORM.
const DateLayout = "2006-01-02"

// InventoryLine is a counted quantity for one product within an inventory.
type InventoryLine struct {
	ProductID int64   `json:"product_id" bson:"product_id"`
	RealQty   float64 `json:"real_qty" bson:"real_qty"`
}

// PendingInventory is a locally created inventory session awaiting server acknowledgment.
type PendingInventory struct {
	LocalID    string          `json:"local_id" bson:"_id"`
	ServerID   *int64          `json:"server_id,omitempty" bson:"server_id,omitempty"`
	LocationID int64           `json:"location_id" bson:"location_id"`
	Date       string          `json:"date" bson:"date"`
	Lines      []InventoryLine `json:"lines" bson:"lines"`
	Timestamp  time.Time       `json:"timestamp" bson:"timestamp"`
	Synced     bool            `json:"synced" bson:"synced"`
	SyncedAt   *time.Time      `json:"synced_at,omitempty" bson:"synced_at,omitempty"`
}

// UpsertLine sets the quantity for productID, appending a new line if the
// product is not counted yet. It returns the resulting line.
func (p *PendingInventory) UpsertLine(productID int64, qty float64) InventoryLine {
	for i := range p.Lines {
		if p.Lines[i].ProductID == productID {
			p.Lines[i].RealQty = qty
			return p.Lines[i]
		}
	}
	line := InventoryLine{ProductID: productID, RealQty: qty}
	p.Lines = append(p.Lines, line)
	return line
}

// Clone returns a deep copy so callers cannot mutate shared session state.
func (p *PendingInventory) Clone() *PendingInventory {
	if p == nil {
		return nil
	}
	c := *p
	if p.Lines != nil {
		c.Lines = make([]InventoryLine, len(p.Lines))
		copy(c.Lines, p.Lines)
	}
	if p.ServerID != nil {
		id := *p.ServerID
		c.ServerID = &id
	}
	if p.SyncedAt != nil {
		at := *p.SyncedAt
		c.SyncedAt = &at
	}
	return &c
}

// SyncedPair acknowledges one pending inventory accepted by the server.
type SyncedPair struct {
	LocalID    string `json:"local_id"`
	ServerID   int64  `json:"server_id"`
	Name       string `json:"name,omitempty"`
	LinesCount int    `json:"lines_count,omitempty"`
}

// SyncItemError reports one inventory the server refused.
type SyncItemError struct {
	LocalID string `json:"local_id"`
	Error   string `json:"error"`
}

// ServerLine is the server-confirmed representation of an inventory line.
type ServerLine struct {
	ID             int64   `json:"id"`
	ProductID      int64   `json:"product_id,omitempty"`
	ProductName    string  `json:"product_name"`
	TheoreticalQty float64 `json:"theoretical_qty"`
	RealQty        float64 `json:"real_qty"`
	Difference     float64 `json:"difference"`
}
