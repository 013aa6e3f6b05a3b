package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"stockex-offline-sync/internal/model"
)

// Config holds the remote ORM base URL and endpoint paths.
type Config struct {
	BaseURL     string
	SyncPath    string
	SearchPath  string
	AddLinePath string
	Timeout     time.Duration
}

// Client calls the remote ORM endpoints with JSON-RPC 2.0 over HTTP.
type Client struct {
	cfg    Config
	http   *http.Client
	nextID atomic.Int64
}

// NewClient creates a client. transport is typically the cache strategy
// layer; nil uses http.DefaultTransport.
func NewClient(cfg Config, transport http.RoundTripper) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Transport: transport, Timeout: cfg.Timeout},
	}
}

// SyncResult is the server answer to a sync batch.
type SyncResult struct {
	Success     bool                  `json:"success"`
	Synced      []model.SyncedPair    `json:"synced"`
	Errors      []model.SyncItemError `json:"errors"`
	Total       int                   `json:"total"`
	SyncedCount int                   `json:"synced_count"`
	ErrorCount  int                   `json:"error_count"`
	Error       string                `json:"error,omitempty"`
}

// SearchResult is the server answer to a product lookup.
type SearchResult struct {
	Found   bool                 `json:"found"`
	Product *model.CachedProduct `json:"product,omitempty"`
	Message string               `json:"message,omitempty"`
}

// AddLineResult is the server answer to an add-line request.
type AddLineResult struct {
	Success bool              `json:"success"`
	Line    *model.ServerLine `json:"line,omitempty"`
	Error   bool              `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
}

type syncInventory struct {
	LocalID    string                `json:"local_id"`
	LocationID int64                 `json:"location_id"`
	Date       string                `json:"date"`
	Lines      []model.InventoryLine `json:"lines"`
}

// SyncInventories submits a batch of pending inventories. A response with
// success=false is returned together with a *SyncRejected error.
func (c *Client) SyncInventories(ctx context.Context, inventories []model.PendingInventory) (*SyncResult, error) {
	batch := make([]syncInventory, len(inventories))
	for i, inv := range inventories {
		batch[i] = syncInventory{
			LocalID:    inv.LocalID,
			LocationID: inv.LocationID,
			Date:       inv.Date,
			Lines:      inv.Lines,
		}
		if batch[i].Lines == nil {
			batch[i].Lines = []model.InventoryLine{}
		}
	}

	var result SyncResult
	params := map[string]interface{}{"inventories": batch}
	if err := c.call(ctx, "sync", c.cfg.SyncPath, params, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return &result, &SyncRejected{Message: result.Error}
	}
	return &result, nil
}

// SearchProduct looks a product up by barcode.
func (c *Client) SearchProduct(ctx context.Context, barcode string) (*SearchResult, error) {
	var result SearchResult
	params := map[string]interface{}{"barcode": barcode}
	if err := c.call(ctx, "search product", c.cfg.SearchPath, params, &result); err != nil {
		return nil, err
	}
	if result.Found && result.Product != nil && result.Product.Barcode == "" {
		result.Product.Barcode = barcode
	}
	return &result, nil
}

// AddLine appends or updates a line on a server-side inventory.
func (c *Client) AddLine(ctx context.Context, inventoryID, productID int64, qty float64) (*AddLineResult, error) {
	var result AddLineResult
	params := map[string]interface{}{
		"inventory_id": inventoryID,
		"product_id":   productID,
		"real_qty":     qty,
	}
	if err := c.call(ctx, "add line", c.cfg.AddLinePath, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int64       `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, op, path string, params, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Offline:    isOfflinePayload(data),
			Err:        fmt.Errorf("unexpected response: %s", truncate(data, 200)),
		}
	}

	var envelope rpcResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if envelope.Error != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: envelope.Error}
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("empty result")}
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode result: %w", err)}
	}
	return nil
}

// isOfflinePayload reports whether data is the cache layer's offline answer.
func isOfflinePayload(data []byte) bool {
	var payload struct {
		Offline bool `json:"offline"`
	}
	return json.Unmarshal(data, &payload) == nil && payload.Offline
}

func truncate(data []byte, n int) string {
	s := strings.TrimSpace(string(data))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
