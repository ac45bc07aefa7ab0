/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

// The resolver computes default bubble placement for a scene: left-side
// speakers stack down the left half, right-side speakers down the right
// half, each side with its own stack counter. All outputs are pure
// functions of the inputs; no randomness, no image inspection.

import (
	"github.com/taxmusa/Auto-webtoon/internal/domain"
)

// Options carries the placement parameters. Zero values fall back to the
// standard webtoon defaults.
type Options struct {
	Margin    float32 // edge margin on every side
	StackStep float32 // vertical distance between stacked bubbles on one side
}

const (
	defaultMargin    = 30
	defaultStackStep = 80
)

func (o Options) withDefaults() Options {
	if o.Margin <= 0 {
		o.Margin = defaultMargin
	}
	if o.StackStep <= 0 {
		o.StackStep = defaultStackStep
	}
	return o
}

// FromSettings derives resolver options from overlay settings.
func FromSettings(s domain.OverlaySettings) Options {
	return Options{Margin: float32(s.Margin), StackStep: float32(s.StackStep)}.withDefaults()
}

// ResolveBubble places the index-th bubble on its side of an imgW×imgH
// image. index counts bubbles already placed on the same side (0-based).
//
// Left bubbles anchor at x = margin with a bottom_left tail; right bubbles
// anchor at x = imgW/2 + margin with a bottom_right tail. Both sides bound
// the wrap width to imgW/2 − 2·margin so text never crosses the midline.
func ResolveBubble(imgW, imgH float32, side domain.Side, index int, opts Options) domain.BubbleGeometry {
	opts = opts.withDefaults()
	_ = imgH // height limits are enforced at composite time, when real bubble heights exist

	g := domain.BubbleGeometry{
		Y:        opts.Margin + float32(index)*opts.StackStep,
		MaxWidth: imgW/2 - 2*opts.Margin,
	}
	switch side {
	case domain.SideRight:
		g.X = imgW/2 + opts.Margin
		g.Tail = domain.TailBottomRight
	default:
		g.X = opts.Margin
		g.Tail = domain.TailBottomLeft
	}
	return g
}

// ResolveScene computes auto geometry for every non-blank dialogue of a
// scene, keeping independent stack counters per side. Dialogues whose
// position mode is fixed keep their stored geometry untouched; blank
// dialogues still consume an index so later edits restoring their text do
// not shuffle siblings.
func ResolveScene(imgW, imgH float32, bubbles []domain.BubbleDescriptor, opts Options) []domain.BubbleDescriptor {
	opts = opts.withDefaults()
	out := make([]domain.BubbleDescriptor, len(bubbles))
	counters := map[domain.Side]int{}
	for i, b := range bubbles {
		side := domain.SideLeft
		if b.Geometry.Tail == domain.TailBottomRight {
			side = domain.SideRight
		}
		if b.Position != domain.PositionFixed {
			b.Geometry = ResolveBubble(imgW, imgH, side, counters[side], opts)
			b.Position = domain.PositionAuto
		}
		counters[side]++
		out[i] = b
	}
	return out
}

// SideOf maps a dialogue side onto the resolver's side, defaulting to left.
func SideOf(d domain.Dialogue) domain.Side {
	if d.Side == domain.SideRight {
		return domain.SideRight
	}
	return domain.SideLeft
}
