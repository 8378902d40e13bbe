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

package mappipe

// 🎯 Step is one stage nested inside a $pipeline operation. Like
// Operation, one concrete variant exists per step name.
type Step interface {
	// Name returns the DSL tag of the step ("$filter", "$map", ...)
	Name() string

	isStep()
}

// 🔍 Filter keeps object entries (or array elements) matching by value
// and/or key equality.
type Filter struct {
	Value    any
	HasValue bool
	Key      any
	HasKey   bool
}

// 📤 ObjectToArray extracts an object's keys, values or entries into an
// array. Extract is "keys", "values" or "entries" (the default).
type ObjectToArray struct {
	Extract string
}

// 📥 ArrayToObject maps every array element to the same (possibly
// $$-resolved) value, producing an object keyed by the elements.
type ArrayToObject struct {
	Value any
}

// 🔄 MapStep transforms each string element of an array. Each and Replace
// are mutually exclusive; Each is "capitalize", "uppercase" or
// "lowercase", Replace is a lookup table applied where a key matches.
type MapStep struct {
	Each    string
	Replace map[string]string
}

// ➗ Reduce folds arrays to scalars and back. Type is "join", "split",
// "sum" or "count"; Separator applies to join/split (default ",").
type Reduce struct {
	Type      string
	Separator string
}

// ✏️ Replace performs a regex substitution with capture-group
// back-references. Flags is a subset of "ims".
type Replace struct {
	Pattern string
	With    string
	Flags   string
}

// 🪣 Partition buckets object entries by regex test against value or key.
// The first matching bucket wins; entries matching no bucket are dropped.
type Partition struct {
	By      string
	Buckets []Bucket
}

// Bucket pairs a destination key with its regex pattern, order-preserving.
type Bucket struct {
	Key     string
	Pattern string
}

// 🎣 Extract pulls a capture group out of a string. The sentinel default
// OriginalSentinel means "keep the input unchanged on no match".
type Extract struct {
	Pattern    string
	Group      int
	Default    string
	HasDefault bool
}

// OriginalSentinel is the $extract default meaning "keep the original
// string when the pattern does not match".
const OriginalSentinel = "$$original"

// 🔁 MapValues recurses a sub-pipeline over every value of an object.
type MapValues struct {
	Operations []Step
}

// 🧲 MergeFields shallow-merges several object fields into one,
// removing the sources unless Remove is explicitly false.
type MergeFields struct {
	From   []string
	To     string
	Remove *bool
}

func (Filter) Name() string        { return "$filter" }
func (ObjectToArray) Name() string { return "$objectToArray" }
func (ArrayToObject) Name() string { return "$arrayToObject" }
func (MapStep) Name() string       { return "$map" }
func (Reduce) Name() string        { return "$reduce" }
func (Replace) Name() string       { return "$replace" }
func (Partition) Name() string     { return "$partition" }
func (Extract) Name() string       { return "$extract" }
func (MapValues) Name() string     { return "$mapValues" }
func (MergeFields) Name() string   { return "$mergeFields" }

func (Filter) isStep()        {}
func (ObjectToArray) isStep() {}
func (ArrayToObject) isStep() {}
func (MapStep) isStep()       {}
func (Reduce) isStep()        {}
func (Replace) isStep()       {}
func (Partition) isStep()     {}
func (Extract) isStep()       {}
func (MapValues) isStep()     {}
func (MergeFields) isStep()   {}
