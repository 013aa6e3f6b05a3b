package strategy

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"strings"

	"stockex-offline-sync/internal/model"
)

// Install seeds the static generation with the configured assets.
// A failing asset is logged and skipped. It returns the number of assets stored.
func (l *Layer) Install(ctx context.Context) int {
	stored := 0
	for _, asset := range l.cfg.StaticAssets {
		if l.prefetch(ctx, l.StaticGeneration(), asset) {
			stored++
		}
	}
	log.Printf("[Strategy] Installed %d/%d static assets in %s", stored, len(l.cfg.StaticAssets), l.StaticGeneration())
	return stored
}

// Activate deletes every generation carrying the layer prefix that is not
// one of the current two.
func (l *Layer) Activate(ctx context.Context) error {
	names, err := l.cache.Generations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cache generations: %w", err)
	}

	current := map[string]bool{l.StaticGeneration(): true, l.DynamicGeneration(): true}
	for _, name := range names {
		if current[name] || !strings.HasPrefix(name, l.cfg.Prefix+"-") {
			continue
		}
		log.Printf("[Strategy] Deleting old cache: %s", name)
		if err := l.cache.DeleteGeneration(ctx, name); err != nil {
			return fmt.Errorf("failed to delete cache generation %s: %w", name, err)
		}
	}
	return nil
}

// BackgroundSync handles a platform background sync signal. The inventory
// sync tag is relayed to the coordinator as a SYNC_REQUESTED message.
func (l *Layer) BackgroundSync(ctx context.Context, tag string) error {
	if tag != model.SyncTag {
		log.Printf("[Strategy] Ignoring background sync tag %q", tag)
		return nil
	}
	msg := model.Message{Type: model.MessageSyncRequested, Timestamp: l.now().UTC()}
	if err := l.bus.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to relay sync request: %w", err)
	}
	return nil
}

// HandleMessage handles a message addressed to the cache layer.
func (l *Layer) HandleMessage(ctx context.Context, msg model.Message) error {
	switch msg.Type {
	case model.MessageCacheURLs:
		for _, u := range msg.URLs {
			l.prefetch(ctx, l.DynamicGeneration(), u)
		}
		return nil
	case model.MessageSkipWaiting:
		return l.Activate(ctx)
	default:
		log.Printf("[Strategy] Ignoring message %q", msg.Type)
		return nil
	}
}

// prefetch fetches ref and stores a 200 response in generation.
func (l *Layer) prefetch(ctx context.Context, generation, ref string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.resolve(ref), nil)
	if err != nil {
		log.Printf("[Strategy] Skipping invalid URL %q: %v", ref, err)
		return false
	}

	resp, err := l.fetch(req)
	if err != nil {
		log.Printf("[Strategy] Failed to fetch %s: %v", req.URL, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Strategy] Not caching %s: status %d", req.URL, resp.StatusCode)
		return false
	}
	l.store(ctx, generation, req, resp)
	return true
}

// Proxy returns a reverse proxy to the upstream whose requests go through
// the layer. The operator UI loads its pages and assets through it.
func (l *Layer) Proxy() http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(l.upstream)
			pr.SetXForwarded()
		},
		Transport: l,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Printf("[Strategy] Proxy error for %s: %v", r.URL, err)
			http.Error(w, NoCachedVersion, http.StatusServiceUnavailable)
		},
	}
}
