// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// registry.go - Vendor-keyed adapter registry.
package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps vendor names to adapters. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register binds an adapter to a vendor name, replacing any previous binding.
func (r *Registry) Register(vendor string, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[vendor] = adapter
}

// Get resolves a vendor name to its adapter.
func (r *Registry) Get(vendor string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[vendor]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for vendor %q", vendor)
	}
	return adapter, nil
}

// Vendors returns the registered vendor names, sorted.
func (r *Registry) Vendors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vendors := make([]string, 0, len(r.adapters))
	for vendor := range r.adapters {
		vendors = append(vendors, vendor)
	}
	sort.Strings(vendors)
	return vendors
}
