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
	"sort"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🧮 Outcome classifies one save-candidate group.
type Outcome string

const (
	// OutcomeNoop: no workspace variants exist
	OutcomeNoop Outcome = "noop"
	// OutcomeParity: every variant already matches the source content
	OutcomeParity Outcome = "parity"
	// OutcomeSingle: exactly one distinct content differs from source
	OutcomeSingle Outcome = "single"
	// OutcomeNeedsResolution: multiple distinct contents differ
	OutcomeNeedsResolution Outcome = "needs-resolution"
)

// 🧭 Strategy selects how a needs-resolution group is settled.
type Strategy string

const (
	StrategySkip        Strategy = "skip"
	StrategyWriteSingle Strategy = "write-single"
	StrategyWriteNewest Strategy = "write-newest"
	StrategyForceNewest Strategy = "force-newest"
	StrategyInteractive Strategy = "interactive"
)

// 📊 Analysis is the structured report for one universal source path.
type Analysis struct {
	SourcePath string
	Outcome    Outcome
	Local      *Candidate

	// AtParity lists workspace variants already hash-equal to the source
	AtParity []Candidate

	// Distinct lists one representative per distinct differing content,
	// newest first
	Distinct []Candidate
}

// 🔍 Analyze groups workspace variants for one universal source path.
// Variants are deduplicated by content hash; parity with the local
// source short-circuits to a no-op.
func Analyze(sourcePath string, local *Candidate, workspace []Candidate) Analysis {
	a := Analysis{SourcePath: sourcePath, Local: local}
	if len(workspace) == 0 {
		a.Outcome = OutcomeNoop
		return a
	}

	localHash := ""
	if local != nil {
		localHash = local.ContentHash
	}

	seen := map[string]bool{}
	for _, c := range workspace {
		if c.ContentHash == localHash {
			a.AtParity = append(a.AtParity, c)
			continue
		}
		if seen[c.ContentHash] {
			continue
		}
		seen[c.ContentHash] = true
		a.Distinct = append(a.Distinct, c)
	}

	sort.SliceStable(a.Distinct, func(i, j int) bool {
		if a.Distinct[i].ModTime != a.Distinct[j].ModTime {
			return a.Distinct[i].ModTime > a.Distinct[j].ModTime
		}
		return a.Distinct[i].DisplayPath < a.Distinct[j].DisplayPath
	})

	switch len(a.Distinct) {
	case 0:
		a.Outcome = OutcomeParity
	case 1:
		a.Outcome = OutcomeSingle
	default:
		a.Outcome = OutcomeNeedsResolution
	}
	return a
}

// ✅ Resolution is the structured result of resolving one group.
type Resolution struct {
	SourcePath string
	Strategy   Strategy

	// Adopted is the content chosen as the new universal source, nil
	// when nothing is written
	Adopted *Candidate

	// PlatformSpecific lists candidates the user marked as deliberate
	// platform divergence (interactive only)
	PlatformSpecific []Candidate

	Skipped []Candidate
}

// 💬 Prompter is the interactive seam; the CLI supplies a pterm-backed
// implementation.
type Prompter interface {
	// Choose presents one candidate and returns one of ChoiceAdopt,
	// ChoicePlatform, ChoiceSkip
	Choose(ctx context.Context, c Candidate) (Choice, error)
}

// Choice is an interactive decision for one candidate.
type Choice string

const (
	ChoiceAdopt    Choice = "adopt-as-universal"
	ChoicePlatform Choice = "mark-as-platform-specific"
	ChoiceSkip     Choice = "skip"
)

// 🧑‍⚖️ Resolver settles analyzed candidate groups.
type Resolver struct {
	Prompter Prompter
}

// 🎯 Resolve applies a strategy to one analysis. No-op and parity
// outcomes resolve to nothing regardless of strategy.
func (r *Resolver) Resolve(ctx context.Context, a Analysis, strategy Strategy) (Resolution, error) {
	logger := zerolog.Ctx(ctx)
	res := Resolution{SourcePath: a.SourcePath, Strategy: strategy}

	switch a.Outcome {
	case OutcomeNoop, OutcomeParity:
		return res, nil
	case OutcomeSingle:
		if strategy == StrategySkip {
			res.Skipped = a.Distinct
			return res, nil
		}
		res.Adopted = &a.Distinct[0]
		return res, nil
	}

	// needs-resolution
	switch strategy {
	case StrategySkip:
		res.Skipped = a.Distinct
		return res, nil

	case StrategyWriteSingle:
		return res, errors.Errorf("%s: %d distinct variants, cannot write-single", a.SourcePath, len(a.Distinct))

	case StrategyWriteNewest, StrategyForceNewest:
		// Distinct is already newest-first with the alphabetical
		// display-path tie-break
		res.Adopted = &a.Distinct[0]
		res.Skipped = a.Distinct[1:]
		logger.Info().
			Str("source", a.SourcePath).
			Str("adopted", res.Adopted.DisplayPath).
			Int("skipped", len(res.Skipped)).
			Msg("resolved conflict by recency")
		return res, nil

	case StrategyInteractive:
		return r.resolveInteractive(ctx, a)

	default:
		return res, errors.Errorf("unknown resolution strategy %q", strategy)
	}
}

func (r *Resolver) resolveInteractive(ctx context.Context, a Analysis) (Resolution, error) {
	res := Resolution{SourcePath: a.SourcePath, Strategy: StrategyInteractive}
	if r.Prompter == nil {
		return res, errors.Errorf("interactive resolution requires a prompter")
	}

	adoptedHash := ""
	platformHashes := map[string]bool{}
	for _, c := range a.Distinct {
		// once a universal choice is adopted, candidates already at
		// parity with it (or with a marked platform-specific file) are
		// auto-skipped
		if c.ContentHash == adoptedHash || platformHashes[c.ContentHash] {
			res.Skipped = append(res.Skipped, c)
			continue
		}
		choice, err := r.Prompter.Choose(ctx, c)
		if err != nil {
			return res, errors.Errorf("prompting for %s: %w", c.DisplayPath, err)
		}
		switch choice {
		case ChoiceAdopt:
			candidate := c
			res.Adopted = &candidate
			adoptedHash = c.ContentHash
		case ChoicePlatform:
			res.PlatformSpecific = append(res.PlatformSpecific, c)
			platformHashes[c.ContentHash] = true
		case ChoiceSkip:
			res.Skipped = append(res.Skipped, c)
		default:
			return res, errors.Errorf("unknown choice %q", choice)
		}
	}
	return res, nil
}
