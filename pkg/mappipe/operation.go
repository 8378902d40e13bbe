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

// Package mappipe implements the document-transformation DSL applied by
// flows: the operation variants, their execution semantics, and the
// structural validators used when linting flow configuration.
package mappipe

// 🎯 Operation is one step of a map pipeline. Exactly one concrete variant
// exists per operation name; the executor dispatches exhaustively on the
// concrete type.
type Operation interface {
	// Name returns the DSL tag of the operation ("$set", "$rename", ...)
	Name() string

	isOperation()
}

// 📝 Set assigns literal or resolved values at dot-paths, creating
// intermediate objects as needed.
type Set struct {
	Fields []Field
}

// Field is one path assignment inside $set, order-preserving.
type Field struct {
	Path  string
	Value any
}

// 🔄 Rename moves values between dot-paths. A single `*` wildcard segment
// expands against every existing concrete match.
type Rename struct {
	Mappings []RenameEntry
}

// RenameEntry is one old-path to new-path mapping, order-preserving.
type RenameEntry struct {
	From string
	To   string
}

// 🗑️ Unset deletes the given dot-paths. Wildcards expand first; deleting
// an absent path is a no-op.
type Unset struct {
	Paths []string
}

// 🔀 Switch rewrites a field by first-match-wins pattern cases. An absent
// field leaves the document unchanged.
type Switch struct {
	Field      string
	Cases      []Case
	Default    any
	HasDefault bool
}

// Case pairs a glob-string or object-shape pattern with a replacement value.
type Case struct {
	Pattern any
	Value   any
}

// ⚙️ Pipeline runs an ordered list of steps over the value of one field.
// An absent field is skipped entirely; an empty final value deletes the
// field.
type Pipeline struct {
	Field      string
	Operations []Step
}

// 📋 Copy duplicates a value between dot-paths, optionally through the
// same case/default logic as $switch.
type Copy struct {
	From      string
	To        string
	Transform *Switch
}

// 🔌 Pipe sequentially invokes named transforms from the external
// transform registry.
type Pipe struct {
	Names []string
}

func (Set) Name() string      { return "$set" }
func (Rename) Name() string   { return "$rename" }
func (Unset) Name() string    { return "$unset" }
func (Switch) Name() string   { return "$switch" }
func (Pipeline) Name() string { return "$pipeline" }
func (Copy) Name() string     { return "$copy" }
func (Pipe) Name() string     { return "$pipe" }

func (Set) isOperation()      {}
func (Rename) isOperation()   {}
func (Unset) isOperation()    {}
func (Switch) isOperation()   {}
func (Pipeline) isOperation() {}
func (Copy) isOperation()     {}
func (Pipe) isOperation()     {}
