package uid

import "github.com/google/uuid"

// LocalPrefix marks identifiers generated on the device before sync.
const LocalPrefix = "temp-"

// New generates a new unique identifier.
func New() string {
	return uuid.New().String()
}

// NewLocal generates a time-ordered local record identifier. UUIDv7 embeds
// the millisecond timestamp and a per-process sequence, so ids are unique
// and sortable within the process.
func NewLocal() string {
	id, err := uuid.NewV7()
	if err != nil {
		return LocalPrefix + uuid.New().String()
	}
	return LocalPrefix + id.String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
