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

package flow

import (
	"github.com/walteh/flowrc/pkg/mappipe"
	"github.com/walteh/flowrc/pkg/transform"
)

// 🔄 Invert derives the reverse flow used for save-back operations. It is
// pure and total: every flow has an inverse, but only the reversible
// subset of its transformation survives.
//
//   - from/to swap.
//   - $rename and $copy invert (keys/paths swapped) and are collected in
//     reverse order: undoing a composed sequence of renames requires
//     undoing the last-applied one first. A $copy's value transform is
//     dropped with the rest of the lossy subset: its case mappings are
//     not value-invertible, so the reverse copy carries the value back
//     untransformed. $set and $unset are dropped too: an assigned value
//     cannot be un-assigned to an unknown prior state, and a removed
//     value is gone. This lossiness is deliberate, and it means
//     Invert(Invert(f)) reproduces f structurally only on the
//     reversible subset.
//   - pipe keeps transforms with a declared inverse (bidirectional format
//     converters) and drops one-way filters.
//   - embed/section are forward-only placement hints and are dropped.
//   - merge and when pass through unchanged.
//
// The result is tagged with the origin flow's from-pattern so diagnostics
// can trace it back.
func Invert(f Flow, sourcePlatform string, reg transform.Registry) Flow {
	inv := Flow{
		From:           f.To,
		To:             f.From,
		Merge:          f.Merge,
		When:           f.When,
		InvertedFrom:   f.From,
		SourcePlatform: sourcePlatform,
	}

	for i := len(f.Map) - 1; i >= 0; i-- {
		switch op := f.Map[i].(type) {
		case mappipe.Rename:
			inv.Map = append(inv.Map, invertRename(op))
		case mappipe.Copy:
			inv.Map = append(inv.Map, mappipe.Copy{From: op.To, To: op.From})
		}
	}

	for i := len(f.Pipe) - 1; i >= 0; i-- {
		if reg == nil {
			continue
		}
		if inverse, ok := reg.Inverse(f.Pipe[i]); ok {
			inv.Pipe = append(inv.Pipe, inverse)
		}
	}

	return inv
}

func invertRename(op mappipe.Rename) mappipe.Rename {
	out := mappipe.Rename{Mappings: make([]mappipe.RenameEntry, 0, len(op.Mappings))}
	for i := len(op.Mappings) - 1; i >= 0; i-- {
		m := op.Mappings[i]
		out.Mappings = append(out.Mappings, mappipe.RenameEntry{From: m.To, To: m.From})
	}
	return out
}
