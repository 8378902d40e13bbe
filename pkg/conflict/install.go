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

package conflict

// ✍️ Writer identifies one package writing a target path, with its
// install-order-derived priority. Writers are built fresh per install
// pass and discarded once the conflict report is produced.
type Writer struct {
	PackageName string
	Priority    int
}

// ⚔️ TargetConflict reports one target path claimed by more than one
// package. Installation proceeds with the chosen writer applied; the
// conflict itself is data for the caller to render.
type TargetConflict struct {
	Target  string
	Writers []Writer // in registration order
	Chosen  Writer
}

// 🗺️ TargetTracker records target path -> writers across all packages
// of one installation pass.
//
// Packages are processed sequentially, so the tracker is not
// synchronized; concurrent package processing would need a lock here
// first.
type TargetTracker struct {
	groups *groups[Writer]
}

func NewTargetTracker() *TargetTracker {
	return &TargetTracker{groups: newGroups[Writer]()}
}

// 📝 Record registers a package's claim on a target path.
func (t *TargetTracker) Record(target string, w Writer) {
	t.groups.add(target, w)
}

// 🏆 Winner returns the writer whose content belongs on disk for a
// target: the highest priority, ties broken by registration order.
func (t *TargetTracker) Winner(target string) (Writer, bool) {
	return pick(t.groups.get(target), func(a, b Writer) bool {
		return a.Priority > b.Priority
	})
}

// 📋 Conflicts reports every target with more than one writer, in
// registration order.
func (t *TargetTracker) Conflicts() []TargetConflict {
	var out []TargetConflict
	for _, target := range t.groups.keys() {
		writers := t.groups.get(target)
		if len(writers) < 2 {
			continue
		}
		chosen, _ := pick(writers, func(a, b Writer) bool {
			return a.Priority > b.Priority
		})
		out = append(out, TargetConflict{
			Target:  target,
			Writers: append([]Writer(nil), writers...),
			Chosen:  chosen,
		})
	}
	return out
}
