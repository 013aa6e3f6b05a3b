package model

import "time"

// MessageType identifies a message relayed on the broadcast bus.
type MessageType string

const (
	// MessageSyncRequested asks every application instance to run a sync cycle.
	MessageSyncRequested MessageType = "SYNC_REQUESTED"
	// MessageCacheURLs asks the cache layer to prefetch a list of URLs.
	MessageCacheURLs MessageType = "CACHE_URLS"
	// MessageSkipWaiting asks the cache layer to activate its generation now.
	MessageSkipWaiting MessageType = "SKIP_WAITING"
)

// SyncTag is the background sync tag that triggers an inventory sync.
const SyncTag = "sync-inventories"

// Message is exchanged between the cache strategy layer and the coordinator.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	URLs      []string    `json:"urls,omitempty"`
}

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a non-blocking message shown to the operator.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}
