/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"image/color"

	"github.com/taxmusa/Auto-webtoon/internal/domain"
)

// TailKind selects how a bubble's tail is drawn.
type TailKind int

const (
	TailTriangle TailKind = iota
	TailCircleTrail
)

// BubbleStyle is a builtin bubble rendering preset. All pixel values are in
// canvas pixels.
type BubbleStyle struct {
	Name        domain.BubbleStyleName
	Radius      int // corner radius
	Padding     int // text inset on every side
	Fill        color.NRGBA
	Border      color.NRGBA
	BorderWidth int
	Dashed      bool
	Tail        TailKind
}

// StyleNotFoundError reports a request for an unregistered bubble style.
// Rendering never substitutes another style.
type StyleNotFoundError struct {
	Style domain.BubbleStyleName
}

func (e StyleNotFoundError) Error() string {
	return fmt.Sprintf("bubble style %q not found", string(e.Style))
}

var builtinBubbleStyles = map[domain.BubbleStyleName]BubbleStyle{
	domain.StyleRound: {
		Name:        domain.StyleRound,
		Radius:      20,
		Padding:     15,
		Fill:        color.NRGBA{R: 255, G: 255, B: 255, A: 230},
		Border:      color.NRGBA{R: 0, G: 0, B: 0, A: 255},
		BorderWidth: 2,
		Tail:        TailTriangle,
	},
	domain.StyleSquare: {
		Name:        domain.StyleSquare,
		Radius:      5,
		Padding:     12,
		Fill:        color.NRGBA{R: 255, G: 255, B: 255, A: 230},
		Border:      color.NRGBA{R: 0, G: 0, B: 0, A: 255},
		BorderWidth: 2,
		Tail:        TailTriangle,
	},
	domain.StyleThought: {
		Name:        domain.StyleThought,
		Radius:      26,
		Padding:     15,
		Fill:        color.NRGBA{R: 255, G: 255, B: 255, A: 230},
		Border:      color.NRGBA{R: 120, G: 120, B: 120, A: 255},
		BorderWidth: 2,
		Dashed:      true,
		Tail:        TailCircleTrail,
	},
}

// GetBubbleStyle returns a builtin bubble style by name. The second return
// value is false if the style is not registered.
func GetBubbleStyle(name domain.BubbleStyleName) (BubbleStyle, bool) {
	s, ok := builtinBubbleStyles[name]
	return s, ok
}

// ListBubbleStyles lists the registered style names in stable order.
func ListBubbleStyles() []domain.BubbleStyleName {
	return []domain.BubbleStyleName{domain.StyleRound, domain.StyleSquare, domain.StyleThought}
}

// speakerPalette tints bubbles per speaker in crowded scenes so readers can
// track who is talking. Order is fixed; assignment is by first appearance.
var speakerPalette = []color.NRGBA{
	{R: 255, G: 235, B: 238, A: 230},
	{R: 232, G: 245, B: 233, A: 230},
	{R: 227, G: 242, B: 253, A: 230},
	{R: 255, G: 249, B: 196, A: 230},
	{R: 243, G: 229, B: 245, A: 230},
	{R: 255, G: 243, B: 224, A: 230},
	{R: 224, G: 247, B: 250, A: 230},
	{R: 239, G: 235, B: 233, A: 230},
}

// TintForSpeaker returns the palette fill for the i-th distinct speaker.
func TintForSpeaker(i int) color.NRGBA {
	if i < 0 {
		i = 0
	}
	return speakerPalette[i%len(speakerPalette)]
}
