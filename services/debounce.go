package services

import "time"

// DefaultDebounce is the quiet period of the search input.
const DefaultDebounce = 400 * time.Millisecond

// Debounce collapses a burst of values into the last one. Push records a
// value and returns a ticket; the caller schedules Settle(ticket) after
// Delay. Only the ticket of the most recent Push settles, and only once.
//
// Debounce holds no timer, so it can be driven by tea.Tick, time.AfterFunc
// or a test.
type Debounce struct {
	delay   time.Duration
	seq     uint64
	pending string
	settled bool
}

// NewDebounce creates a Debounce with the given quiet period.
func NewDebounce(delay time.Duration) *Debounce {
	return &Debounce{delay: delay, settled: true}
}

// Delay is the quiet period.
func (d *Debounce) Delay() time.Duration {
	return d.delay
}

// Push records value and supersedes every earlier ticket.
func (d *Debounce) Push(value string) uint64 {
	d.seq++
	d.pending = value
	d.settled = false
	return d.seq
}

// Settle returns the pending value if ticket is the latest one.
func (d *Debounce) Settle(ticket uint64) (string, bool) {
	if d.settled || ticket != d.seq {
		return "", false
	}
	d.settled = true
	return d.pending, true
}
