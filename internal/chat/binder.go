package chat

import "sync"

// Binder holds the server-issued reference of the active conversation.
// An empty reference means no server-side conversation exists yet.
type Binder struct {
	mu  sync.RWMutex
	ref string
}

// Bind sets the reference only if none is set (first writer wins).
// It reports whether the binding changed.
func (b *Binder) Bind(ref string) bool {
	if ref == "" {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ref != "" {
		return false
	}
	b.ref = ref
	return true
}

// Rebind unconditionally replaces the reference; used when loading a saved session
func (b *Binder) Rebind(ref string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ref = ref
}

// Current returns the bound reference, or "" when unbound
func (b *Binder) Current() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ref
}
