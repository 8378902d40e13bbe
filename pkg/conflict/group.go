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

// Package conflict detects and resolves write conflicts: cross-package
// target collisions at install time and multi-variant reconciliation at
// save time. Both are the same grouping primitive under different
// ranking policies; conflicts are always reported as data, never thrown.
package conflict

// 🗃️ groups collects candidates under string keys, remembering key
// registration order so reports and tie-breaks stay deterministic.
type groups[C any] struct {
	order   []string
	byKey   map[string][]C
}

func newGroups[C any]() *groups[C] {
	return &groups[C]{byKey: map[string][]C{}}
}

func (g *groups[C]) add(key string, c C) {
	if _, ok := g.byKey[key]; !ok {
		g.order = append(g.order, key)
	}
	g.byKey[key] = append(g.byKey[key], c)
}

func (g *groups[C]) keys() []string {
	return g.order
}

func (g *groups[C]) get(key string) []C {
	return g.byKey[key]
}

// pick returns the best candidate under a strict better-than policy.
// Earlier candidates win ties: registration order is the final
// tie-break.
func pick[C any](candidates []C, better func(a, b C) bool) (C, bool) {
	var winner C
	if len(candidates) == 0 {
		return winner, false
	}
	winner = candidates[0]
	for _, c := range candidates[1:] {
		if better(c, winner) {
			winner = c
		}
	}
	return winner, true
}
