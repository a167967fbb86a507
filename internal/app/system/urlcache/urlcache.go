// Package urlcache caches presigned object URLs until shortly before they expire.
package urlcache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process cache. The zero value is not usable; use NewMemory.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	url    string
	expiry time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

// Get returns the cached URL if it has not expired.
func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if ok && m.now().Before(e.expiry) {
		return e.url, true
	}
	return "", false
}

// Set stores url for ttl.
func (m *Memory) Set(_ context.Context, key, url string, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = entry{url: url, expiry: m.now().Add(ttl)}
	m.mu.Unlock()
}

// Delete drops key.
func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Sweep removes expired entries and returns how many were dropped.
func (m *Memory) Sweep() int {
	now := m.now()
	n := 0
	m.mu.Lock()
	for k, e := range m.entries {
		if !now.Before(e.expiry) {
			delete(m.entries, k)
			n++
		}
	}
	m.mu.Unlock()
	return n
}
