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

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"gitlab.com/tozd/go/errors"
)

// 🏷️ Source distinguishes where a save candidate came from.
type Source string

const (
	// SourceLocal is the package's own (universal) file
	SourceLocal Source = "local"
	// SourceWorkspace is a platform-side workspace edit
	SourceWorkspace Source = "workspace"
)

// 📄 Candidate is one concrete on-disk file considered during save-back
// reconciliation. Candidates are built fresh from current filesystem
// state on every save run and never persisted.
type Candidate struct {
	Source       Source
	RegistryPath string
	FullPath     string
	Content      []byte
	ContentHash  string
	ModTime      int64 // unix nanos, recency ranking
	DisplayPath  string
	Platform     string

	// SectionBody and Frontmatter are populated for markdown candidates
	// so the interactive resolver can show meaningful summaries.
	SectionBody string
	Frontmatter map[string]any
}

// 📌 Ref names a file to load as a candidate.
type Ref struct {
	Source       Source
	FullPath     string
	DisplayPath  string
	RegistryPath string
	Platform     string

	// StatPath, when set, is the file whose mtime ranks this candidate.
	// The save path reads normalized content from a staging root but
	// recency must come from the user's actual workspace file.
	StatPath string
}

// collectParallelism bounds the concurrent content reads during
// candidate collection. Reads are independent per file, so this is the
// one place the save path fans out.
const collectParallelism = 8

// 📥 Collect loads and hashes all referenced files. Refs whose file no
// longer exists are dropped silently: the save pass reflects current
// filesystem state.
func Collect(ctx context.Context, refs []Ref) ([]Candidate, error) {
	out := make([]*Candidate, len(refs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(collectParallelism)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			c, err := load(ref)
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var result []Candidate
	for _, c := range out {
		if c != nil {
			result = append(result, *c)
		}
	}
	return result, nil
}

func load(ref Ref) (*Candidate, error) {
	statPath := ref.StatPath
	if statPath == "" {
		statPath = ref.FullPath
	}
	info, err := os.Stat(statPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Errorf("stat %s: %w", statPath, err)
	}
	content, err := os.ReadFile(ref.FullPath)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", ref.FullPath, err)
	}
	c := &Candidate{
		Source:       ref.Source,
		RegistryPath: ref.RegistryPath,
		FullPath:     ref.FullPath,
		Content:      content,
		ContentHash:  HashContent(content),
		ModTime:      info.ModTime().UnixNano(),
		DisplayPath:  ref.DisplayPath,
		Platform:     ref.Platform,
	}
	c.SectionBody, c.Frontmatter = splitFrontmatter(string(content))
	return c, nil
}

// 🔐 HashContent returns the canonical content hash used for parity
// checks and distinct-variant grouping.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func splitFrontmatter(content string) (string, map[string]any) {
	if !strings.HasPrefix(content, "---\n") {
		return "", nil
	}
	rest := content[4:]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return "", nil
	}
	var fm map[string]any
	if err := yaml.Unmarshal([]byte(rest[:idx+1]), &fm); err != nil {
		return "", nil
	}
	body := strings.TrimPrefix(rest[idx+4:], "\n")
	return strings.TrimPrefix(body, "\n"), fm
}
