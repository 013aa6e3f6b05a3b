package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"stockex-offline-sync/internal/broadcast"
	"stockex-offline-sync/internal/cache"
	"stockex-offline-sync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// switchableTransport forwards to http.DefaultTransport until taken offline.
type switchableTransport struct {
	offline atomic.Bool
	calls   atomic.Int32
}

func (t *switchableTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	if t.offline.Load() {
		return nil, errors.New("network unreachable")
	}
	return http.DefaultTransport.RoundTrip(req)
}

type fixture struct {
	layer     *Layer
	cache     *cache.MemoryCache
	bus       *broadcast.MemoryBus
	transport *switchableTransport
	upstream  *httptest.Server
	hits      *sync.Map
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hits := &sync.Map{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		n, _ := hits.LoadOrStore(r.URL.Path, new(atomic.Int32))
		n.(*atomic.Int32).Add(1)
		switch r.URL.Path {
		case "/missing.css":
			http.NotFound(w, r)
		case "/stockex/mobile/offline":
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, "<h1>offline</h1>")
		case "/api/stockex/products":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"result":[1,2]}`)
		default:
			io.WriteString(w, "live "+r.Method+" "+r.URL.Path)
		}
	})
	upstream := httptest.NewServer(mux)
	t.Cleanup(upstream.Close)

	base, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	rc := cache.NewMemoryCache()
	bus := broadcast.NewMemoryBus()
	transport := &switchableTransport{}
	cfg := Config{
		Prefix:           "stockex",
		Version:          "v1.0.0",
		OfflinePage:      "/stockex/mobile/offline",
		StaticAssets:     []string{"/stockex/mobile/offline", "/stockex/static/app.js", "/missing.css"},
		StaticPrefixes:   []string{"/static/"},
		StaticExtensions: []string{".css", ".js", ".png"},
		APIPrefixes:      []string{"/api/", "/jsonrpc"},
	}

	return &fixture{
		layer:     New(cfg, base, rc, bus, transport),
		cache:     rc,
		bus:       bus,
		transport: transport,
		upstream:  upstream,
		hits:      hits,
	}
}

func (f *fixture) get(t *testing.T, path string, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.upstream.URL+path, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := f.layer.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (f *fixture) hitCount(path string) int32 {
	n, ok := f.hits.Load(path)
	if !ok {
		return 0
	}
	return n.(*atomic.Int32).Load()
}

func TestClassify(t *testing.T) {
	f := newFixture(t)
	cases := map[string]Strategy{
		"/stockex/static/src/js/mobile-app.js": CacheFirst,
		"/web/image/logo.png":                  CacheFirst,
		"/anything/static/x":                   CacheFirst,
		"/api/stockex/products":                NetworkFirstWithCache,
		"/web/dataset/jsonrpc":                 NetworkFirstWithCache,
		"/web/api/stockex/products":            NetworkFirst,
		"/stockex/mobile/api/":                 NetworkFirst,
		"/stockex/mobile":                      NetworkFirst,
		"/":                                    NetworkFirst,
	}
	for path, want := range cases {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		assert.Equal(t, want, f.layer.Classify(req), path)
	}
}

func TestCacheFirstHitMakesNoNetworkCall(t *testing.T) {
	f := newFixture(t)

	_, body := f.get(t, "/assets/app.js", nil)
	assert.Equal(t, "live GET /assets/app.js", body)
	assert.Equal(t, int32(1), f.transport.calls.Load())

	resp, body := f.get(t, "/assets/app.js", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "live GET /assets/app.js", body)
	assert.Equal(t, int32(1), f.transport.calls.Load())
	assert.Equal(t, int32(1), f.hitCount("/assets/app.js"))
}

func TestCacheFirstOfflineMiss(t *testing.T) {
	f := newFixture(t)
	f.transport.offline.Store(true)

	resp, body := f.get(t, "/assets/never.css", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, AssetUnavailable, body)
}

func TestCacheFirstIgnoresDynamicGeneration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := model.Message{Type: model.MessageCacheURLs, URLs: []string{"/assets/app.js"}}
	require.NoError(t, f.layer.HandleMessage(ctx, msg))
	require.Equal(t, 1, f.cache.Len(f.layer.DynamicGeneration()))
	require.Equal(t, int32(1), f.hitCount("/assets/app.js"))

	f.transport.offline.Store(true)
	resp, body := f.get(t, "/assets/app.js", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, AssetUnavailable, body)

	f.transport.offline.Store(false)
	_, body = f.get(t, "/assets/app.js", nil)
	assert.Equal(t, "live GET /assets/app.js", body)
	assert.Equal(t, int32(2), f.hitCount("/assets/app.js"))
	assert.Equal(t, 1, f.cache.Len(f.layer.StaticGeneration()))
}

func TestCacheFirstDoesNotStoreErrors(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.get(t, "/missing.css", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Zero(t, f.cache.Len(f.layer.StaticGeneration()))
}

func TestNetworkFirstFallsBackToCache(t *testing.T) {
	f := newFixture(t)

	_, live := f.get(t, "/stockex/mobile", nil)
	assert.Equal(t, "live GET /stockex/mobile", live)
	assert.Equal(t, 1, f.cache.Len(f.layer.DynamicGeneration()))

	f.transport.offline.Store(true)
	resp, cached := f.get(t, "/stockex/mobile", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, live, cached)
}

func TestNetworkFirstOfflinePageForNavigation(t *testing.T) {
	f := newFixture(t)
	f.layer.Install(context.Background())
	f.transport.offline.Store(true)

	resp, body := f.get(t, "/stockex/mobile/inventory/3", http.Header{"Accept": {"text/html,application/xhtml+xml"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<h1>offline</h1>", body)

	resp, body = f.get(t, "/stockex/mobile/inventory/3", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, NoCachedVersion, body)
}

func TestAPIOfflinePayload(t *testing.T) {
	f := newFixture(t)
	f.transport.offline.Store(true)

	req, err := http.NewRequest(http.MethodPost, f.upstream.URL+"/api/mobile/inventories/sync", nil)
	require.NoError(t, err)
	resp, err := f.layer.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, true, payload["error"])
	assert.Equal(t, true, payload["offline"])
	assert.Equal(t, APIOffline, payload["message"])
}

func TestAPIResponsesCachedForGETOnly(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodPost, f.upstream.URL+"/api/stockex/products", nil)
	require.NoError(t, err)
	resp, err := f.layer.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Zero(t, f.cache.Len(f.layer.DynamicGeneration()))

	_, body := f.get(t, "/api/stockex/products", nil)
	assert.Equal(t, `{"result":[1,2]}`, body)

	f.transport.offline.Store(true)
	resp, body = f.get(t, "/api/stockex/products", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"result":[1,2]}`, body)
}

func TestInstallIsBestEffort(t *testing.T) {
	f := newFixture(t)

	stored := f.layer.Install(context.Background())
	assert.Equal(t, 2, stored)
	assert.Equal(t, 2, f.cache.Len("stockex-static-v1.0.0"))
}

func TestActivateDeletesOldGenerations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, gen := range []string{"stockex-static-v0.9.0", "stockex-dynamic-v0.9.0", "other-static-v0.1", f.layer.DynamicGeneration()} {
		require.NoError(t, f.cache.Put(ctx, gen, &model.CacheEntry{Key: "GET /"}))
	}
	f.layer.Install(ctx)

	require.NoError(t, f.layer.Activate(ctx))

	names, err := f.cache.Generations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other-static-v0.1", "stockex-dynamic-v1.0.0", "stockex-static-v1.0.0"}, names)
}

func TestBackgroundSyncRelaysSyncRequested(t *testing.T) {
	f := newFixture(t)

	var got []model.Message
	cancel, err := f.bus.Subscribe(func(m model.Message) { got = append(got, m) })
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, f.layer.BackgroundSync(context.Background(), "other-tag"))
	assert.Empty(t, got)

	require.NoError(t, f.layer.BackgroundSync(context.Background(), model.SyncTag))
	require.Len(t, got, 1)
	assert.Equal(t, model.MessageSyncRequested, got[0].Type)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestHandleMessageCacheURLs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := model.Message{Type: model.MessageCacheURLs, URLs: []string{"/stockex/mobile/inventory/1", "/missing.css"}}
	require.NoError(t, f.layer.HandleMessage(ctx, msg))
	assert.Equal(t, 1, f.cache.Len(f.layer.DynamicGeneration()))

	f.transport.offline.Store(true)
	_, body := f.get(t, "/stockex/mobile/inventory/1", nil)
	assert.Equal(t, "live GET /stockex/mobile/inventory/1", body)
}

func TestHandleMessageSkipWaitingActivates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.cache.Put(ctx, "stockex-static-v0.1.0", &model.CacheEntry{Key: "GET /"}))
	require.NoError(t, f.layer.HandleMessage(ctx, model.Message{Type: model.MessageSkipWaiting}))

	names, err := f.cache.Generations(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestProxyServesThroughLayer(t *testing.T) {
	f := newFixture(t)
	proxy := httptest.NewServer(f.layer.Proxy())
	defer proxy.Close()

	resp, err := http.Get(proxy.URL + "/stockex/mobile")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "live GET /stockex/mobile", string(body))

	f.transport.offline.Store(true)
	resp, err = http.Get(proxy.URL + "/stockex/mobile")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "live GET /stockex/mobile", string(body))

	resp, err = http.Get(proxy.URL + "/never/seen")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
