// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/include/libnetworkd/ModuleManager.hpp
//
// The original dynamically loads modules from shared objects via dlopen,
// parsing a configuration file per module and tracking each loaded instance
// in a ModuleEncapsulation. Dynamic loading and its ABI are explicitly out
// of scope here (spec.md §1); [Registry] keeps the same bookkeeping shape —
// an incrementing ID per registered instance, Start called eagerly,
// Stop-then-release on unload — over in-process [Module] values instead of
// dlopen'd libraries.
//

// Package module specifies the narrow extension-module interface spec.md
// §6 treats as an external collaborator, and a minimal in-process registry
// for tests and example daemons.
package module

import (
	"fmt"

	"github.com/oxff/networkd/config"
)

// Module is the extension interface a daemon component implements to be
// managed by a [Registry], matching spec.md §6 exactly.
type Module interface {
	// Start asks the module to begin its service using the given
	// configuration subtree. A non-nil error means startup failed; the
	// module is not considered running.
	Start(cfg config.Tree) error
	// Stop asks the module to gracefully end its service. A non-nil
	// error means it could not stop cleanly; the caller may still
	// discard the module.
	Stop() error
	// Name returns a short, one-word name for the module.
	Name() string
	// Description returns a single-sentence description of what the
	// module does.
	Description() string
}

// entry mirrors the original's ModuleEncapsulation: an ID plus the running
// instance and the configuration subtree it was started with.
type entry struct {
	id     uint32
	module Module
	cfg    config.Tree
}

// Registry tracks running [Module] instances, assigning each an ID on
// registration and stopping them on release. The zero value is an empty
// registry ready to use.
type Registry struct {
	modules   []entry
	idCounter uint32
}

// Register starts m with cfg and, on success, tracks it under a freshly
// assigned ID. If Start fails, the module is not tracked.
func (r *Registry) Register(m Module, cfg config.Tree) (uint32, error) {
	if err := m.Start(cfg); err != nil {
		return 0, fmt.Errorf("module %s: start failed: %w", m.Name(), err)
	}
	r.idCounter++
	id := r.idCounter
	r.modules = append(r.modules, entry{id: id, module: m, cfg: cfg})
	return id, nil
}

// Unload stops and releases the module with the given id. If Stop fails and
// force is false, the module stays tracked and an error is returned; if
// force is true, it is released regardless.
func (r *Registry) Unload(id uint32, force bool) error {
	for i, e := range r.modules {
		if e.id != id {
			continue
		}
		err := e.module.Stop()
		if err != nil && !force {
			return fmt.Errorf("module %s: stop failed: %w", e.module.Name(), err)
		}
		r.modules = append(r.modules[:i], r.modules[i+1:]...)
		return nil
	}
	return fmt.Errorf("module: no such id %d", id)
}

// UnloadAll stops and releases every tracked module, continuing past
// individual Stop failures, and returns the first error encountered, if
// any, after attempting all of them.
func (r *Registry) UnloadAll() error {
	var firstErr error
	remaining := r.modules[:0]
	for _, e := range r.modules {
		if err := e.module.Stop(); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("module %s: stop failed: %w", e.module.Name(), err)
			}
			remaining = append(remaining, e)
			continue
		}
	}
	r.modules = remaining
	return firstErr
}

// Enumerate returns every currently tracked module.
func (r *Registry) Enumerate() []Module {
	out := make([]Module, 0, len(r.modules))
	for _, e := range r.modules {
		out = append(out, e.module)
	}
	return out
}
