package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockex-offline-sync/internal/broadcast"
	"stockex-offline-sync/internal/cache"
	"stockex-offline-sync/internal/model"
)

// Synthetic bodies returned when neither network nor cache can answer.
const (
	AssetUnavailable = "Offline - Asset not available"
	NoCachedVersion  = "Offline - No cached version"
	APIOffline       = "Vous êtes hors ligne. Les données seront synchronisées à la reconnexion."
)

// Strategy is the caching policy applied to a request.
type Strategy int

const (
	NetworkFirst Strategy = iota
	CacheFirst
	NetworkFirstWithCache
)

func (s Strategy) String() string {
	switch s {
	case CacheFirst:
		return "cache-first"
	case NetworkFirstWithCache:
		return "network-first-with-cache"
	default:
		return "network-first"
	}
}

// Config describes the cache generations and request classification.
type Config struct {
	Prefix           string
	Version          string
	OfflinePage      string
	StaticAssets     []string
	StaticPrefixes   []string
	StaticExtensions []string
	// APIPrefixes ending in "/" must lead the path. Others, such as
	// "/jsonrpc", match anywhere in it.
	APIPrefixes []string
}

// Layer intercepts outbound HTTP requests and answers them from the network
// or the response cache. It implements http.RoundTripper and never returns
// an error: network failures become synthetic responses.
type Layer struct {
	cfg      Config
	upstream *url.URL
	cache    cache.ResponseCache
	bus      broadcast.Bus
	next     http.RoundTripper
	now      func() time.Time
}

// New creates a cache strategy layer. Relative asset and message URLs are
// resolved against upstream. A nil next uses http.DefaultTransport.
func New(cfg Config, upstream *url.URL, rc cache.ResponseCache, bus broadcast.Bus, next http.RoundTripper) *Layer {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Layer{
		cfg:      cfg,
		upstream: upstream,
		cache:    rc,
		bus:      bus,
		next:     next,
		now:      time.Now,
	}
}

// StaticGeneration returns the name of the current static generation.
func (l *Layer) StaticGeneration() string {
	return fmt.Sprintf("%s-static-%s", l.cfg.Prefix, l.cfg.Version)
}

// DynamicGeneration returns the name of the current dynamic generation.
func (l *Layer) DynamicGeneration() string {
	return fmt.Sprintf("%s-dynamic-%s", l.cfg.Prefix, l.cfg.Version)
}

// Classify returns the strategy for req. First match wins: static prefixes
// and extensions, then API prefixes and markers.
func (l *Layer) Classify(req *http.Request) Strategy {
	path := req.URL.Path
	for _, p := range l.cfg.StaticPrefixes {
		if strings.Contains(path, p) {
			return CacheFirst
		}
	}
	for _, ext := range l.cfg.StaticExtensions {
		if strings.HasSuffix(path, ext) {
			return CacheFirst
		}
	}
	for _, p := range l.cfg.APIPrefixes {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return NetworkFirstWithCache
			}
			continue
		}
		if strings.Contains(path, p) {
			return NetworkFirstWithCache
		}
	}
	return NetworkFirst
}

// Key returns the cache key of req.
func Key(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

// RoundTrip implements http.RoundTripper.
func (l *Layer) RoundTrip(req *http.Request) (*http.Response, error) {
	switch l.Classify(req) {
	case CacheFirst:
		return l.cacheFirst(req), nil
	case NetworkFirstWithCache:
		return l.networkFirst(req, l.apiOffline), nil
	default:
		return l.networkFirst(req, l.pageOffline), nil
	}
}

func (l *Layer) cacheFirst(req *http.Request) *http.Response {
	ctx := req.Context()
	if entry := l.match(ctx, req, l.StaticGeneration()); entry != nil {
		return replay(req, entry)
	}

	resp, err := l.fetch(req)
	if err != nil {
		log.Printf("[Strategy] Fetch failed for %s: %v", req.URL, err)
		return textResponse(req, http.StatusServiceUnavailable, AssetUnavailable)
	}
	l.store(ctx, l.StaticGeneration(), req, resp)
	return resp
}

func (l *Layer) networkFirst(req *http.Request, offline func(*http.Request) *http.Response) *http.Response {
	ctx := req.Context()
	resp, err := l.fetch(req)
	if err == nil {
		l.store(ctx, l.DynamicGeneration(), req, resp)
		return resp
	}

	log.Printf("[Strategy] Network unavailable for %s %s: %v", req.Method, req.URL, err)
	if entry := l.match(ctx, req, l.StaticGeneration(), l.DynamicGeneration()); entry != nil {
		return replay(req, entry)
	}
	return offline(req)
}

// pageOffline serves the cached offline page to navigations.
func (l *Layer) pageOffline(req *http.Request) *http.Response {
	if isNavigation(req) && l.cfg.OfflinePage != "" {
		page, err := http.NewRequestWithContext(req.Context(), http.MethodGet, l.resolve(l.cfg.OfflinePage), nil)
		if err == nil {
			if entry := l.match(req.Context(), page, l.StaticGeneration(), l.DynamicGeneration()); entry != nil {
				return replay(req, entry)
			}
		}
	}
	return textResponse(req, http.StatusServiceUnavailable, NoCachedVersion)
}

func (l *Layer) apiOffline(req *http.Request) *http.Response {
	body, _ := json.Marshal(map[string]interface{}{
		"error":   true,
		"offline": true,
		"message": APIOffline,
	})
	header := http.Header{"Content-Type": {"application/json"}}
	return newResponse(req, http.StatusServiceUnavailable, header, body)
}

// fetch performs req on the next transport and buffers the body so the
// response can be both stored and returned.
func (l *Layer) fetch(req *http.Request) (*http.Response, error) {
	resp, err := l.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return resp, nil
}

// store keeps a buffered 200 response to a GET request.
func (l *Layer) store(ctx context.Context, generation string, req *http.Request, resp *http.Response) {
	if req.Method != http.MethodGet || resp.StatusCode != http.StatusOK {
		return
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &model.CacheEntry{
		Key:      Key(req),
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: l.now().UTC(),
	}
	if err := l.cache.Put(ctx, generation, entry); err != nil {
		log.Printf("[Strategy] Failed to cache %s: %v", entry.Key, err)
	}
}

// match looks req up in gens, in order.
func (l *Layer) match(ctx context.Context, req *http.Request, gens ...string) *model.CacheEntry {
	if req.Method != http.MethodGet {
		return nil
	}
	key := Key(req)
	for _, gen := range gens {
		entry, err := l.cache.Match(ctx, gen, key)
		if err == nil {
			return entry
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("[Strategy] Cache lookup failed for %s: %v", key, err)
		}
	}
	return nil
}

func (l *Layer) resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || l.upstream == nil {
		return ref
	}
	return l.upstream.ResolveReference(u).String()
}

func isNavigation(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}

func replay(req *http.Request, entry *model.CacheEntry) *http.Response {
	return newResponse(req, entry.Status, entry.Header.Clone(), entry.Body)
}

func textResponse(req *http.Request, status int, text string) *http.Response {
	header := http.Header{"Content-Type": {"text/plain; charset=utf-8"}}
	return newResponse(req, status, header, []byte(text))
}

func newResponse(req *http.Request, status int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

var _ http.RoundTripper = (*Layer)(nil)
