package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"stockex-offline-sync/internal/broadcast"
	"stockex-offline-sync/internal/model"
	"stockex-offline-sync/internal/repository"
	"stockex-offline-sync/internal/scanner"
)

// CoordinatorConfig holds the dependencies of a Coordinator.
type CoordinatorConfig struct {
	Store        repository.LocalStore
	Remote       RemoteClient
	Engine       *SyncEngine
	Connectivity Connectivity
	Bus          broadcast.Bus
	Notifier     Notifier
	Debouncer    *scanner.Debouncer
	CycleTimeout time.Duration
}

// LineResult is the outcome of AddInventoryLine. ServerLine is set when the
// line was confirmed by the server, Line otherwise.
type LineResult struct {
	Line       model.InventoryLine `json:"line"`
	ServerLine *model.ServerLine   `json:"server_line,omitempty"`
	Remote     bool                `json:"remote"`
}

// ScanResult is the outcome of HandleScan.
type ScanResult struct {
	Detection scanner.Detection    `json:"detection"`
	Accepted  bool                 `json:"accepted"`
	Product   *model.CachedProduct `json:"product,omitempty"`
}

// Coordinator holds the online flag and the current inventory session and
// routes operator operations to the store, the remote ORM and the sync engine.
type Coordinator struct {
	store        repository.LocalStore
	remote       RemoteClient
	engine       *SyncEngine
	conn         Connectivity
	bus          broadcast.Bus
	notifier     Notifier
	debouncer    *scanner.Debouncer
	cycleTimeout time.Duration

	mu      sync.Mutex
	current *model.PendingInventory

	lifeMu  sync.Mutex
	cancels []func()
	closed  bool
	wg      sync.WaitGroup
}

// NewCoordinator creates a coordinator. Call Start to attach it to the
// connectivity monitor and the bus.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Debouncer == nil {
		cfg.Debouncer = scanner.NewDebouncer(scanner.DefaultDebounce)
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = DefaultSchedulerConfig().CycleTimeout
	}
	return &Coordinator{
		store:        cfg.Store,
		remote:       cfg.Remote,
		engine:       cfg.Engine,
		conn:         cfg.Connectivity,
		bus:          cfg.Bus,
		notifier:     cfg.Notifier,
		debouncer:    cfg.Debouncer,
		cycleTimeout: cfg.CycleTimeout,
	}
}

// Start subscribes to connectivity transitions and bus messages, and
// triggers a sync when already online.
func (c *Coordinator) Start(ctx context.Context) error {
	cancelConn := c.conn.Subscribe(c.onConnectivity)

	cancelBus, err := c.bus.Subscribe(c.onMessage)
	if err != nil {
		cancelConn()
		return fmt.Errorf("failed to subscribe to bus: %w", err)
	}

	c.lifeMu.Lock()
	c.cancels = append(c.cancels, cancelConn, cancelBus)
	c.lifeMu.Unlock()

	if c.conn.Online() {
		c.triggerSync()
	}
	return nil
}

// Close releases subscriptions and waits for triggered sync cycles.
func (c *Coordinator) Close() {
	c.lifeMu.Lock()
	c.closed = true
	cancels := c.cancels
	c.cancels = nil
	c.lifeMu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	c.wg.Wait()
}

// IsOnline reports the current connectivity.
func (c *Coordinator) IsOnline() bool {
	return c.conn.Online()
}

// SetOnline records a connectivity change reported by the platform.
func (c *Coordinator) SetOnline(online bool) {
	c.conn.Set(online)
}

func (c *Coordinator) onConnectivity(online bool) {
	if online {
		c.notifier.Notify(model.LevelSuccess, "Connexion rétablie")
		c.triggerSync()
		return
	}
	c.notifier.Notify(model.LevelWarning, "Mode hors ligne activé")
}

func (c *Coordinator) onMessage(msg model.Message) {
	if msg.Type == model.MessageSyncRequested {
		c.triggerSync()
	}
}

// triggerSync starts a sync cycle in the background.
func (c *Coordinator) triggerSync() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.closed {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cycleTimeout)
		defer cancel()
		c.engine.Trigger(ctx)
	}()
}

// SyncNow runs a sync cycle and returns its report.
func (c *Coordinator) SyncNow(ctx context.Context) (*SyncReport, error) {
	return c.engine.Run(ctx)
}

// StartInventory opens a new inventory session and persists it. Only one
// session may be active; close it first.
func (c *Coordinator) StartInventory(ctx context.Context, locationID int64, date string) (*model.PendingInventory, error) {
	if locationID <= 0 {
		return nil, fmt.Errorf("%w: location_id is required", ErrInvalidInput)
	}
	if date != "" {
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return nil, fmt.Errorf("%w: inventory %s is still open", ErrInvalidState, c.current.LocalID)
	}

	inv := &model.PendingInventory{
		LocationID: locationID,
		Date:       date,
		Lines:      []model.InventoryLine{},
	}
	if err := c.store.SaveInventory(ctx, inv); err != nil {
		return nil, err
	}
	c.current = inv

	log.Printf("[Coordinator] Inventory %s started at location %d", inv.LocalID, locationID)
	return inv.Clone(), nil
}

// CloseInventory persists the current session, releases it and triggers a
// sync when online.
func (c *Coordinator) CloseInventory(ctx context.Context) (*model.PendingInventory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil, fmt.Errorf("%w: no active inventory", ErrInvalidState)
	}
	if err := c.store.SaveInventory(ctx, c.current); err != nil {
		return nil, err
	}

	closed := c.current
	c.current = nil
	log.Printf("[Coordinator] Inventory %s closed with %d lines", closed.LocalID, len(closed.Lines))

	if c.conn.Online() {
		c.triggerSync()
	}
	return closed.Clone(), nil
}

// CurrentInventory returns a copy of the active session, or nil.
func (c *Coordinator) CurrentInventory() *model.PendingInventory {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Clone()
}

// SearchProduct resolves a barcode from the product cache, then from the
// remote ORM when online. It returns nil when neither knows the product.
func (c *Coordinator) SearchProduct(ctx context.Context, barcode string) (*model.CachedProduct, error) {
	barcode = scanner.Normalize(barcode)
	if barcode == "" {
		return nil, nil
	}

	product, err := c.store.FindProductByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if product != nil {
		return product, nil
	}
	if !c.conn.Online() {
		return nil, nil
	}

	result, err := c.remote.SearchProduct(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if !result.Found || result.Product == nil {
		return nil, nil
	}

	if err := c.store.CacheProduct(ctx, *result.Product); err != nil {
		log.Printf("[Coordinator] Failed to cache product %d: %v", result.Product.ID, err)
	}
	return result.Product, nil
}

// AddInventoryLine counts qty of productID in the current session. When
// online and the session is known to the server the line is sent directly;
// otherwise, or when that fails, it is recorded locally and persisted. The
// session only changes once the save succeeded.
func (c *Coordinator) AddInventoryLine(ctx context.Context, productID int64, qty float64) (*LineResult, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: product_id is required", ErrInvalidInput)
	}
	if qty < 0 {
		return nil, fmt.Errorf("%w: real_qty must not be negative", ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil, fmt.Errorf("%w: no active inventory", ErrInvalidState)
	}

	online := c.conn.Online()
	if online && c.current.ServerID == nil {
		c.refreshSyncState(ctx)
	}

	if online && c.current.ServerID != nil {
		result, err := c.remote.AddLine(ctx, *c.current.ServerID, productID, qty)
		switch {
		case err != nil:
			log.Printf("[Coordinator] Remote add-line failed, recording locally: %v", err)
		case !result.Success || result.Line == nil:
			log.Printf("[Coordinator] Remote add-line refused, recording locally: %s", result.Message)
		default:
			return &LineResult{
				Line:       model.InventoryLine{ProductID: productID, RealQty: result.Line.RealQty},
				ServerLine: result.Line,
				Remote:     true,
			}, nil
		}
	}

	next := c.current.Clone()
	line := next.UpsertLine(productID, qty)
	if err := c.store.SaveInventory(ctx, next); err != nil {
		return nil, err
	}
	c.current = next
	return &LineResult{Line: line}, nil
}

// refreshSyncState picks up a server id recorded by the sync engine while
// the session was open.
func (c *Coordinator) refreshSyncState(ctx context.Context) {
	stored, err := c.store.GetInventory(ctx, c.current.LocalID)
	if err != nil {
		log.Printf("[Coordinator] Failed to reload %s: %v", c.current.LocalID, err)
		return
	}
	if stored != nil && stored.ServerID != nil {
		c.current.ServerID = stored.ServerID
		c.current.Synced = stored.Synced
		c.current.SyncedAt = stored.SyncedAt
	}
}

// HandleScan debounces a decoded barcode and resolves its product.
func (c *Coordinator) HandleScan(ctx context.Context, code, format string) (*ScanResult, error) {
	det, ok := c.debouncer.Accept(code, format)
	if !ok {
		return &ScanResult{Detection: det}, nil
	}

	product, err := c.SearchProduct(ctx, det.Code)
	if err != nil {
		return nil, err
	}
	return &ScanResult{Detection: det, Accepted: true, Product: product}, nil
}

// Stats returns the coordinator view for the admin endpoint.
func (c *Coordinator) Stats(ctx context.Context) (map[string]interface{}, error) {
	storeStats, err := c.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	stats := map[string]interface{}{
		"online":     c.conn.Online(),
		"sync_state": c.engine.State().String(),
		"store":      storeStats,
	}
	if report := c.engine.LastReport(); report != nil {
		stats["last_sync"] = report
	}
	if inv := c.CurrentInventory(); inv != nil {
		stats["current_inventory"] = inv.LocalID
	}
	return stats, nil
}
