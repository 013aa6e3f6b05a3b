package connectivity

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

// Config holds connectivity probe settings.
type Config struct {
	ProbeURL string
	Interval time.Duration
	Timeout  time.Duration
}

// Monitor tracks whether the remote ORM is reachable. It probes a health
// URL on a ticker and accepts manual overrides; subscribers are called on
// transitions only.
type Monitor struct {
	cfg    Config
	client *http.Client

	mu     sync.RWMutex
	online bool
	subs   map[uint64]func(bool)
	nextID uint64

	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewMonitor creates a monitor with the given initial state.
func NewMonitor(cfg Config, initial bool) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	return &Monitor{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{DisableKeepAlives: true, Proxy: http.ProxyFromEnvironment},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		online: initial,
		subs:   make(map[uint64]func(bool)),
		stopCh: make(chan struct{}),
	}
}

// Start begins probing in the background. The first probe runs immediately.
func (m *Monitor) Start() {
	if m.cfg.ProbeURL == "" {
		log.Printf("[Connectivity] No probe URL configured, manual mode")
		return
	}

	m.wg.Add(1)
	go m.run()
	log.Printf("[Connectivity] Probing %s every %v", m.cfg.ProbeURL, m.cfg.Interval)
}

// Stop stops probing and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()
	m.client.CloseIdleConnections()
}

func (m *Monitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.Probe(context.Background())
	for {
		select {
		case <-ticker.C:
			m.Probe(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Probe checks the health URL once and records the outcome.
func (m *Monitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	online := false
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.ProbeURL, nil)
	if err == nil {
		resp, err := m.client.Do(req)
		if err == nil {
			resp.Body.Close()
			online = resp.StatusCode >= 200 && resp.StatusCode < 400
		}
	}

	m.Set(online)
	return online
}

// Online reports the last known state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Set records a state. Subscribers are notified when it changes.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	log.Printf("[Connectivity] Online: %v", online)
	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers fn for transitions and returns a function that removes it.
func (m *Monitor) Subscribe(fn func(bool)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}
