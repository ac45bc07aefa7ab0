/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Abstractions for text measurement and line breaking. All measurement goes
// through the Measurer interface so wrapping stays deterministic and
// testable without real font files.

import (
	"errors"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// ErrUnknownFamily marks a FontSpec naming a family no provider can serve.
var ErrUnknownFamily = errors.New("unknown font family")

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name
	SizePt float32
	Weight int // 100..900
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// LineHeight is the vertical extent of one laid-out line.
func (m Metrics) LineHeight() float32 { return m.Ascent + m.Descent + m.LineGap }

// Line is a single wrapped line and its measured width.
type Line struct {
	Text  string
	Width float32
}

// Provider maps FontSpec to a concrete font.Face. Resolve fails for an
// unknown family; there is no silent substitution.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics, error)
}

// Measurer reports the horizontal advance of a string in pixels.
type Measurer interface {
	Width(s string) float32
}

// FaceMeasurer measures with a resolved font.Face.
type FaceMeasurer struct{ Face font.Face }

func (m FaceMeasurer) Width(s string) float32 {
	d := &font.Drawer{Face: m.Face}
	return float32(d.MeasureString(s) >> 6) // fixed.Int26_6 to px
}

// FixedMeasurer assigns every rune the same advance. Used in tests, where
// real faces may lack glyphs for the scripts under test.
type FixedMeasurer struct{ Advance float32 }

func (m FixedMeasurer) Width(s string) float32 {
	return m.Advance * float32(len([]rune(s)))
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
// It resolves every family.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics, error) {
	f := basicfont.Face7x13
	m := f.Metrics()
	return f, Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}, nil
}

// WordWrap breaks text on space boundaries so each line's visible width
// stays within maxWidth. Space runs ride at the end of the line they follow,
// so concatenating the lines of each segment reproduces the input exactly.
// A word wider than maxWidth gets a line of its own rather than being
// split. Explicit newlines force breaks. Suitable for space-delimited
// scripts; see Wrap for script-aware dispatch. Line.Width excludes trailing
// spaces.
func WordWrap(text string, meas Measurer, maxWidth float32) []Line {
	if text == "" {
		return nil
	}
	var lines []Line
	for _, seg := range strings.Split(text, "\n") {
		var cur strings.Builder
		flush := func() {
			t := cur.String()
			lines = append(lines, Line{Text: t, Width: meas.Width(strings.TrimRight(t, " "))})
			cur.Reset()
		}
		for _, tok := range spaceTokens(seg) {
			if cur.Len() > 0 && maxWidth > 0 {
				vis := strings.TrimRight(cur.String()+tok, " ")
				if meas.Width(vis) > maxWidth {
					flush()
				}
			}
			cur.WriteString(tok)
		}
		flush()
	}
	return lines
}

// spaceTokens splits s into tokens of one word plus the space run that
// follows it. A leading space run forms a token of its own. Concatenating
// the tokens reproduces s.
func spaceTokens(s string) []string {
	var toks []string
	start := 0
	inSpaces := false
	for i, r := range s {
		if r == ' ' {
			inSpaces = true
			continue
		}
		if inSpaces {
			toks = append(toks, s[start:i])
			start = i
			inSpaces = false
		}
	}
	if start < len(s) {
		toks = append(toks, s[start:])
	}
	return toks
}

// MeasureHeight returns the pixel height of n lines under the metrics.
func MeasureHeight(m Metrics, n int) float32 {
	if n <= 0 {
		return 0
	}
	return float32(n) * m.LineHeight()
}
