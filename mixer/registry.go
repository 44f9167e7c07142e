// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mixer

import (
	"fmt"
	"sync"
)

// Registry holds the ordered set of controls a card exposes.
// Registry is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	ctls []*Control
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends ctl to the registry.
func (reg *Registry) Register(ctl *Control) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.index(ctl.Name) >= 0 {
		return fmt.Errorf("mixer: could not register %q: %w", ctl.Name, ErrExists)
	}
	if ctl.Count <= 0 {
		return fmt.Errorf("mixer: could not register %q: invalid channel count %d", ctl.Name, ctl.Count)
	}
	reg.ctls = append(reg.ctls, ctl)
	return nil
}

// Lookup returns the control registered under the exact name.
func (reg *Registry) Lookup(name string) (*Control, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	i := reg.index(name)
	if i < 0 {
		return nil, false
	}
	return reg.ctls[i], true
}

// Remove removes ctl from the registry.
// Write-protected controls can not be removed.
func (reg *Registry) Remove(ctl *Control) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	i := -1
	for j, c := range reg.ctls {
		if c == ctl {
			i = j
			break
		}
	}
	if i < 0 {
		return fmt.Errorf("mixer: could not remove %q: %w", ctl.Name, ErrNotFound)
	}
	if ctl.Access&AccessWrite == 0 {
		return fmt.Errorf("mixer: could not remove write-protected %q: %w", ctl.Name, ErrAccess)
	}

	reg.ctls = append(reg.ctls[:i], reg.ctls[i+1:]...)
	return nil
}

// Controls returns a snapshot of the registered controls, in
// registration order.
func (reg *Registry) Controls() []*Control {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	ctls := make([]*Control, len(reg.ctls))
	copy(ctls, reg.ctls)
	return ctls
}

// Len returns the number of registered controls.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.ctls)
}

// Get reads the named control.
func (reg *Registry) Get(name string) ([]int, error) {
	ctl, ok := reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("mixer: could not get %q: %w", name, ErrNotFound)
	}
	if !ctl.readable() {
		return nil, fmt.Errorf("mixer: could not get %q: %w", name, ErrAccess)
	}
	return ctl.Get()
}

// Put writes the named control, after checking vs against the
// control's declared range.
func (reg *Registry) Put(name string, vs []int) (bool, error) {
	ctl, ok := reg.Lookup(name)
	if !ok {
		return false, fmt.Errorf("mixer: could not put %q: %w", name, ErrNotFound)
	}
	if !ctl.writable() {
		return false, fmt.Errorf("mixer: could not put %q: %w", name, ErrAccess)
	}
	err := ctl.check(vs)
	if err != nil {
		return false, err
	}
	return ctl.Put(vs)
}

func (reg *Registry) index(name string) int {
	for i, ctl := range reg.ctls {
		if ctl.Name == name {
			return i
		}
	}
	return -1
}
