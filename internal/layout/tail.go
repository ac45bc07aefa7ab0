/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"github.com/taxmusa/Auto-webtoon/internal/domain"
)

// TailOptions controls generated tail geometry. Units are pixels.
// Deterministic results are ensured by rounding output points to 3 decimals.
type TailOptions struct {
	// BaseWidth is the width where the tail attaches to the bubble edge.
	BaseWidth float32
	// Length is the tail length measured outward from the bubble edge.
	Length float32
}

func (o TailOptions) withDefaults(bubble Rect) TailOptions {
	if o.BaseWidth <= 0 {
		o.BaseWidth = maxf(8, minf(bubble.W, bubble.H)*0.18)
	}
	if o.Length <= 0 {
		o.Length = maxf(14, minf(bubble.W, bubble.H)*0.3)
	}
	return o
}

// TailGeometry describes a speech tail as a triangle: the two base points
// on the bubble edge and the tip pointing at the speaker.
type TailGeometry struct {
	BaseLeft  Pt
	BaseRight Pt
	Tip       Pt
}

// ThoughtTrail describes a thought-bubble tail as shrinking circles
// trailing from the bubble edge toward the speaker.
type ThoughtTrail struct {
	Centers []Pt
	Radii   []float32
}

// ComputeTail builds the triangular speech tail for a rectangular bubble
// and a tail direction. The base sits on the bubble edge nearest the
// direction; the tip extends outward by Length.
func ComputeTail(bubble Rect, dir domain.TailDirection, opts TailOptions) TailGeometry {
	opts = opts.withDefaults(bubble)
	halfW := opts.BaseWidth / 2

	var bc, tip Pt
	switch dir {
	case domain.TailTop:
		bc = Pt{X: bubble.X + bubble.W/2, Y: bubble.Y}
		tip = Pt{X: bc.X, Y: bc.Y - opts.Length}
		return roundTail(TailGeometry{
			BaseLeft:  Pt{X: bc.X - halfW, Y: bc.Y},
			BaseRight: Pt{X: bc.X + halfW, Y: bc.Y},
			Tip:       tip,
		})
	case domain.TailBottom:
		bc = Pt{X: bubble.X + bubble.W/2, Y: bubble.Y + bubble.H}
		tip = Pt{X: bc.X, Y: bc.Y + opts.Length}
	case domain.TailBottomRight:
		bc = Pt{X: bubble.X + bubble.W*0.72, Y: bubble.Y + bubble.H}
		tip = Pt{X: bc.X + opts.Length*0.6, Y: bc.Y + opts.Length}
	default: // bottom_left
		bc = Pt{X: bubble.X + bubble.W*0.28, Y: bubble.Y + bubble.H}
		tip = Pt{X: bc.X - opts.Length*0.6, Y: bc.Y + opts.Length}
	}
	return roundTail(TailGeometry{
		BaseLeft:  Pt{X: bc.X - halfW, Y: bc.Y},
		BaseRight: Pt{X: bc.X + halfW, Y: bc.Y},
		Tip:       tip,
	})
}

func roundTail(t TailGeometry) TailGeometry {
	r := func(p Pt) Pt { return Pt{X: FloatRound(p.X, 3), Y: FloatRound(p.Y, 3)} }
	return TailGeometry{BaseLeft: r(t.BaseLeft), BaseRight: r(t.BaseRight), Tip: r(t.Tip)}
}

// ComputeThoughtTrail builds the circle trail for a thought bubble: three
// circles shrinking away from the bubble edge along the tail direction.
func ComputeThoughtTrail(bubble Rect, dir domain.TailDirection, opts TailOptions) ThoughtTrail {
	opts = opts.withDefaults(bubble)
	tg := ComputeTail(bubble, dir, opts)

	// March from the base center toward the tip placing shrinking circles.
	bc := Pt{X: (tg.BaseLeft.X + tg.BaseRight.X) / 2, Y: (tg.BaseLeft.Y + tg.BaseRight.Y) / 2}
	dx := tg.Tip.X - bc.X
	dy := tg.Tip.Y - bc.Y

	steps := []float32{0.35, 0.7, 1.0}
	radii := []float32{opts.BaseWidth * 0.45, opts.BaseWidth * 0.3, opts.BaseWidth * 0.18}
	tr := ThoughtTrail{Centers: make([]Pt, len(steps)), Radii: make([]float32, len(steps))}
	for i, s := range steps {
		tr.Centers[i] = Pt{
			X: FloatRound(bc.X+dx*s, 3),
			Y: FloatRound(bc.Y+dy*s, 3),
		}
		tr.Radii[i] = FloatRound(maxf(radii[i], 2), 3)
	}
	return tr
}
