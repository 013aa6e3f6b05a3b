package model

import (
	"net/http"
	"time"
)

// CacheEntry is a captured HTTP response stored under a cache generation.
type CacheEntry struct {
	Key      string      `json:"key"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}
