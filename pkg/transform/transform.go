// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package transform provides the named-transform registry used by flow
// pipe steps. The engine is agnostic to what a transform does; it only
// sequences them by name.
package transform

import (
	"context"
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// 🔌 Registry is the seam through which format-level converters and
// filters plug into flow execution.
type Registry interface {
	// Has reports whether a transform is registered under name
	Has(name string) bool

	// Execute runs the named transform over a document
	Execute(ctx context.Context, name string, doc map[string]any) (map[string]any, error)

	// Inverse returns the name of the declared inverse transform, if any.
	// One-way filters have no inverse.
	Inverse(name string) (string, bool)
}

// ❌ ExecutionError wraps a failure inside a named transform.
type ExecutionError struct {
	Transform string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("transform %q: %v", e.Transform, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// 🔧 Func is a single document transform.
type Func func(ctx context.Context, doc map[string]any) (map[string]any, error)

type entry struct {
	fn      Func
	inverse string
}

// 🗺️ MapRegistry is a simple name-indexed Registry.
type MapRegistry struct {
	entries map[string]entry
}

// 🏭 NewRegistry creates an empty registry.
func NewRegistry() *MapRegistry {
	return &MapRegistry{entries: map[string]entry{}}
}

// 📝 Register adds a one-way transform (a filter, no declared inverse).
func (r *MapRegistry) Register(name string, fn Func) {
	r.entries[name] = entry{fn: fn}
}

// 🔄 RegisterPair adds two transforms that are declared inverses of each
// other, so flow inversion can keep them.
func (r *MapRegistry) RegisterPair(forward string, ffn Func, backward string, bfn Func) {
	r.entries[forward] = entry{fn: ffn, inverse: backward}
	r.entries[backward] = entry{fn: bfn, inverse: forward}
}

func (r *MapRegistry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

func (r *MapRegistry) Inverse(name string) (string, bool) {
	e, ok := r.entries[name]
	if !ok || e.inverse == "" {
		return "", false
	}
	return e.inverse, true
}

func (r *MapRegistry) Execute(ctx context.Context, name string, doc map[string]any) (map[string]any, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, &ExecutionError{Transform: name, Err: errors.New("unknown transform")}
	}
	out, err := e.fn(ctx, doc)
	if err != nil {
		return nil, &ExecutionError{Transform: name, Err: err}
	}
	return out, nil
}
