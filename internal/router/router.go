// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// router.go - Source to adapter resolution.
package router

import (
	"fmt"
	"sync"

	"github.com/halcyonforge/loom/internal/provider"
)

// Binding ties a source to an adapter and the model it should request.
type Binding struct {
	Adapter provider.Adapter
	Model   string
}

// Router resolves sources to adapter bindings. Safe for concurrent use.
type Router struct {
	mu            sync.RWMutex
	bindings      map[Source]Binding
	defaultSource Source
}

// New creates a router with no bindings; the default source is Local.
func New() *Router {
	return &Router{bindings: make(map[Source]Binding)}
}

// Bind attaches an adapter and model to a source, replacing any previous
// binding.
func (r *Router) Bind(src Source, adapter provider.Adapter, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[src] = Binding{Adapter: adapter, Model: model}
}

// SetDefault sets the source used by ResolveDefault.
func (r *Router) SetDefault(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultSource = src
}

// Default returns the configured default source.
func (r *Router) Default() Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultSource
}

// Resolve returns the binding for a source.
func (r *Router) Resolve(src Source) (Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	binding, ok := r.bindings[src]
	if !ok {
		return Binding{}, fmt.Errorf("source %s is not configured", src)
	}
	return binding, nil
}

// ResolveDefault returns the binding for the default source.
func (r *Router) ResolveDefault() (Binding, error) {
	return r.Resolve(r.Default())
}

// ResolveTag parses a config tag and resolves its binding.
func (r *Router) ResolveTag(tag string) (Source, Binding, error) {
	src, err := ParseSource(tag)
	if err != nil {
		return src, Binding{}, err
	}
	binding, err := r.Resolve(src)
	return src, binding, err
}

// Sources returns the bound sources, in cost order.
func (r *Router) Sources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, 0, len(r.bindings))
	for _, s := range allSources {
		if _, ok := r.bindings[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
