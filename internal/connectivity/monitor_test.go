package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu     sync.Mutex
	events []bool
}

func (r *recorder) record(online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, online)
}

func (r *recorder) get() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.events...)
}

func TestSetNotifiesOnTransitionsOnly(t *testing.T) {
	m := NewMonitor(Config{}, false)
	rec := &recorder{}
	cancel := m.Subscribe(rec.record)

	m.Set(false)
	m.Set(true)
	m.Set(true)
	m.Set(false)
	cancel()
	m.Set(true)

	assert.Equal(t, []bool{true, false}, rec.get())
	assert.True(t, m.Online())
}

func TestProbe(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	m := NewMonitor(Config{ProbeURL: srv.URL}, false)
	defer m.Stop()

	assert.True(t, m.Probe(context.Background()))

	status.Store(http.StatusFound)
	assert.True(t, m.Probe(context.Background()))

	status.Store(http.StatusBadGateway)
	assert.False(t, m.Probe(context.Background()))
	assert.False(t, m.Online())
}

func TestProbeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	m := NewMonitor(Config{ProbeURL: srv.URL, Timeout: time.Second}, true)
	assert.False(t, m.Probe(context.Background()))
}

func TestLoopProbesAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	m := NewMonitor(Config{ProbeURL: srv.URL, Interval: 10 * time.Millisecond}, false)
	rec := &recorder{}
	m.Subscribe(rec.record)

	m.Start()
	require.Eventually(t, m.Online, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()

	assert.Equal(t, []bool{true}, rec.get())
}
