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

package format

import (
	"encoding/json"
	"time"

	"gitlab.com/tozd/go/errors"
)

// 🧾 FormatState is one point in a package's conversion history.
type FormatState struct {
	Type     Type   `json:"type"`
	Platform string `json:"platform,omitempty"`
}

func (s FormatState) equal(o FormatState) bool {
	return s.Type == o.Type && s.Platform == o.Platform
}

// 🪪 FormatIdentity pins the format a package was first detected in.
// It never changes for the life of a ConversionContext.
type FormatIdentity struct {
	Type       Type      `json:"type"`
	Platform   string    `json:"platform,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
	Confidence float64   `json:"confidence"`
}

// State is the identity viewed as a history point.
func (id FormatIdentity) State() FormatState {
	return FormatState{Type: id.Type, Platform: id.Platform}
}

// 📜 ConversionRecord is one format transition.
type ConversionRecord struct {
	From           FormatState `json:"from"`
	To             FormatState `json:"to"`
	TargetPlatform string      `json:"target_platform"`
	Timestamp      time.Time   `json:"timestamp"`
}

// 📚 ConversionContext is the append-only audit record of the format
// transitions one package has undergone. Immutability is enforced by
// construction: there are no mutators, and WithTransition returns a new
// value whose history strictly extends the old one.
type ConversionContext struct {
	OriginalFormat FormatIdentity     `json:"original_format"`
	CurrentFormat  FormatState        `json:"current_format"`
	History        []ConversionRecord `json:"conversion_history"`
	TargetPlatform string             `json:"target_platform,omitempty"`
}

// 🏭 NewContext starts an audit record at the detected format.
func NewContext(id FormatIdentity, targetPlatform string) *ConversionContext {
	return &ConversionContext{
		OriginalFormat: id,
		CurrentFormat:  id.State(),
		TargetPlatform: targetPlatform,
	}
}

// ➕ WithTransition appends a transition and returns the new context.
// The receiver is left untouched.
func (c *ConversionContext) WithTransition(to FormatState, targetPlatform string, at time.Time) *ConversionContext {
	history := make([]ConversionRecord, len(c.History), len(c.History)+1)
	copy(history, c.History)
	history = append(history, ConversionRecord{
		From:           c.CurrentFormat,
		To:             to,
		TargetPlatform: targetPlatform,
		Timestamp:      at,
	})
	return &ConversionContext{
		OriginalFormat: c.OriginalFormat,
		CurrentFormat:  to,
		History:        history,
		TargetPlatform: c.TargetPlatform,
	}
}

// ✅ Validate checks the audit chain: the first transition starts at the
// original format, every transition starts where the previous one ended,
// and the current format is the chain's end.
func (c *ConversionContext) Validate() error {
	expected := c.OriginalFormat.State()
	for i, rec := range c.History {
		if !rec.From.equal(expected) {
			return errors.Errorf("conversion history broken at record %d: from %v, want %v", i, rec.From, expected)
		}
		expected = rec.To
	}
	if !c.CurrentFormat.equal(expected) {
		return errors.Errorf("current format %v does not match history end %v", c.CurrentFormat, expected)
	}
	if c.OriginalFormat.Type == "" {
		return errors.Errorf("original format type is required")
	}
	return nil
}

// 💾 MarshalContext serializes the context with RFC3339 timestamps.
func MarshalContext(c *ConversionContext) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, errors.Errorf("serializing conversion context: %w", err)
	}
	return append(data, '\n'), nil
}

// 📂 UnmarshalContext deserializes and re-validates a persisted context,
// rejecting chain-broken or identity-mutated data.
func UnmarshalContext(data []byte) (*ConversionContext, error) {
	var c ConversionContext
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Errorf("parsing conversion context: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Errorf("validating conversion context: %w", err)
	}
	return &c, nil
}
