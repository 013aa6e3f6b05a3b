package scanner

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/text/width"
)

// DefaultDebounce is the window during which a repeated code is ignored.
const DefaultDebounce = 1000 * time.Millisecond

// Detection is a decoded barcode delivered by the scanning capability.
type Detection struct {
	Code   string    `json:"code"`
	Format string    `json:"format"`
	At     time.Time `json:"at"`
}

// Debouncer normalizes detections and suppresses repeats of the same code
// inside the debounce window. It is safe for concurrent use.
type Debouncer struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	lastCode string
	lastAt   time.Time
}

// NewDebouncer creates a debouncer. A non-positive window uses DefaultDebounce.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{window: window, now: time.Now}
}

// WithClock replaces the time source.
func (d *Debouncer) WithClock(now func() time.Time) *Debouncer {
	d.now = now
	return d
}

// Normalize trims a raw code and folds full-width characters to their
// narrow form, as emitted by some handheld keyboard wedges.
func Normalize(code string) string {
	return strings.TrimSpace(width.Fold.String(code))
}

// Accept returns the detection for code and whether it should be handled.
// Empty codes and repeats within the window are rejected.
func (d *Debouncer) Accept(code, format string) (Detection, bool) {
	code = Normalize(code)
	if code == "" {
		return Detection{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if code == d.lastCode && now.Sub(d.lastAt) < d.window {
		return Detection{}, false
	}
	d.lastCode = code
	d.lastAt = now

	return Detection{Code: code, Format: strings.ToLower(strings.TrimSpace(format)), At: now}, true
}

// Reset forgets the last accepted code.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastCode = ""
	d.lastAt = time.Time{}
}
