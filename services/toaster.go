package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultToastDuration is how long a toast stays visible.
const DefaultToastDuration = 4 * time.Second

// Notifier shows transient messages to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// ToastKind distinguishes success from error toasts.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is one transient notification.
type Toast struct {
	ID        string
	Kind      ToastKind
	Message   string
	ExpiresAt time.Time
}

// Toaster keeps toasts until they expire. It is safe for concurrent use.
type Toaster struct {
	mu       sync.Mutex
	toasts   []Toast
	duration time.Duration
	now      func() time.Time
}

// NewToaster creates a Toaster whose toasts live for duration.
func NewToaster(duration time.Duration) *Toaster {
	if duration <= 0 {
		duration = DefaultToastDuration
	}
	return &Toaster{duration: duration, now: time.Now}
}

// Success implements Notifier.
func (t *Toaster) Success(message string) {
	t.push(ToastSuccess, message)
}

// Error implements Notifier.
func (t *Toaster) Error(message string) {
	t.push(ToastError, message)
}

func (t *Toaster) push(kind ToastKind, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.toasts = append(t.toasts, Toast{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   message,
		ExpiresAt: t.now().Add(t.duration),
	})
}

// Active returns the unexpired toasts, oldest first, and forgets the rest.
func (t *Toaster) Active() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	live := t.toasts[:0]
	for _, toast := range t.toasts {
		if now.Before(toast.ExpiresAt) {
			live = append(live, toast)
		}
	}
	t.toasts = live
	return append([]Toast(nil), live...)
}

// Drain returns the unexpired toasts and removes them all. Server-rendered
// pages show each toast once.
func (t *Toaster) Drain() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var live []Toast
	for _, toast := range t.toasts {
		if now.Before(toast.ExpiresAt) {
			live = append(live, toast)
		}
	}
	t.toasts = nil
	return live
}

// Dismiss removes the toast with the given id.
func (t *Toaster) Dismiss(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, toast := range t.toasts {
		if toast.ID == id {
			t.toasts = append(t.toasts[:i], t.toasts[i+1:]...)
			return
		}
	}
}
