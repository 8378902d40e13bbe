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
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

// 📝 RenderConflicts formats install-time target conflicts for console
// output.
func RenderConflicts(conflicts []TargetConflict) string {
	if len(conflicts) == 0 {
		return ""
	}
	var sb strings.Builder
	warn := color.New(color.FgYellow)
	win := color.New(color.FgGreen)
	for _, c := range conflicts {
		sb.WriteString(warn.Sprintf("conflict: %s\n", c.Target))
		for _, w := range c.Writers {
			marker := "  -"
			line := fmt.Sprintf("%s %s (priority %d)", marker, w.PackageName, w.Priority)
			if w == c.Chosen {
				line = win.Sprintf("  ✓ %s (priority %d, chosen)", w.PackageName, w.Priority)
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

// 💬 PtermPrompter implements Prompter with an interactive terminal
// menu, newest candidate first as fed by the resolver.
type PtermPrompter struct{}

func (p *PtermPrompter) Choose(ctx context.Context, c Candidate) (Choice, error) {
	pterm.DefaultSection.Printf("workspace edit: %s", c.DisplayPath)
	pterm.Info.Printf("platform: %s, modified: %s\n", c.Platform, time.Unix(0, c.ModTime).Format(time.RFC3339))
	if c.SectionBody != "" {
		preview := c.SectionBody
		if len(preview) > 400 {
			preview = preview[:400] + "…"
		}
		pterm.DefaultBox.Println(preview)
	}

	options := []string{
		string(ChoiceAdopt),
		string(ChoicePlatform),
		string(ChoiceSkip),
	}
	selected, err := pterm.DefaultInteractiveSelect.
		WithOptions(options).
		WithDefaultOption(string(ChoiceAdopt)).
		Show("keep this edit?")
	if err != nil {
		return ChoiceSkip, err
	}
	return Choice(selected), nil
}
