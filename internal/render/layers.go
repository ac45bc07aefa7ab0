/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

// One draw function per overlay layer. Each function is pure over its
// inputs and the image buffer; layers know nothing about each other.

import (
	"fmt"
	"image"
	"image/color"

	"github.com/taxmusa/Auto-webtoon/internal/domain"
	"github.com/taxmusa/Auto-webtoon/internal/layout"
	"github.com/taxmusa/Auto-webtoon/internal/textlayout"

	"golang.org/x/image/font"
)

var textBlack = color.NRGBA{R: 0, G: 0, B: 0, A: 255}

// BubbleBox is the pixel footprint a bubble occupied, tail included,
// reported back so the compositor can check canvas bounds.
type BubbleBox struct {
	Rect layout.Rect
}

// DrawBubble renders one bubble: rounded body sized to the wrapped lines,
// tail, then the text. The fill may be overridden (speaker tinting); pass
// the zero NRGBA to use the style fill.
func DrawBubble(img *image.RGBA, b domain.BubbleDescriptor, style BubbleStyle, lines []textlayout.Line, face font.Face, met textlayout.Metrics, fill color.NRGBA) BubbleBox {
	if fill.A == 0 {
		fill = style.Fill
	}
	var textW float32
	for _, ln := range lines {
		if ln.Width > textW {
			textW = ln.Width
		}
	}
	textH := textlayout.MeasureHeight(met, len(lines))

	x0 := int(b.Geometry.X)
	y0 := int(b.Geometry.Y)
	x1 := x0 + int(textW) + 2*style.Padding
	y1 := y0 + int(textH) + 2*style.Padding
	rect := layout.R(float32(x0), float32(y0), float32(x1-x0), float32(y1-y0))

	footprint := rect

	// Tail first so the body covers its base.
	switch style.Tail {
	case TailCircleTrail:
		tr := layout.ComputeThoughtTrail(rect, b.Geometry.Tail, layout.TailOptions{})
		for i := range tr.Centers {
			c := tr.Centers[i]
			rad := tr.Radii[i]
			fillCircle(img, int(c.X), int(c.Y), int(rad), fill)
			strokeCircle(img, int(c.X), int(c.Y), int(rad), style.BorderWidth, style.Dashed, style.Border)
			footprint = footprint.Union(layout.R(c.X-rad, c.Y-rad, 2*rad, 2*rad))
		}
	default:
		tg := layout.ComputeTail(rect, b.Geometry.Tail, layout.TailOptions{})
		fillTriangle(img,
			int(tg.BaseLeft.X), int(tg.BaseLeft.Y),
			int(tg.BaseRight.X), int(tg.BaseRight.Y),
			int(tg.Tip.X), int(tg.Tip.Y), fill)
		for _, p := range []layout.Pt{tg.BaseLeft, tg.BaseRight, tg.Tip} {
			footprint = footprint.Union(layout.R(p.X, p.Y, 0, 0))
		}
	}

	fillRoundedRect(img, x0, y0, x1, y1, style.Radius, fill)
	strokeRoundedRect(img, x0, y0, x1, y1, style.Radius, style.BorderWidth, style.Dashed, style.Border)

	ty := y0 + style.Padding
	for _, ln := range lines {
		drawText(img, face, x0+style.Padding, ty, textBlack, ln.Text)
		ty += int(met.LineHeight())
	}
	return BubbleBox{Rect: footprint}
}

// DrawNarration renders a full-width translucent bar at the top or bottom
// edge, sized to the wrapped line count, with centered text.
func DrawNarration(img *image.RGBA, n domain.NarrationDescriptor, lines []textlayout.Line, face font.Face, met textlayout.Metrics) {
	if len(lines) == 0 {
		return
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	const pad = 16
	barH := int(textlayout.MeasureHeight(met, len(lines))) + 2*pad

	y0 := h - barH
	if n.Position == domain.NarrationTop {
		y0 = 0
	}
	fillRect(img, 0, y0, w-1, y0+barH-1, color.NRGBA{R: 0, G: 0, B: 0, A: 140})

	ty := y0 + pad
	for _, ln := range lines {
		tx := (w - int(ln.Width)) / 2
		drawText(img, face, tx, ty, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, ln.Text)
		ty += int(met.LineHeight())
	}
}

// DrawPageNumber renders an "n/m" chip with a translucent backing at the
// given corner.
func DrawPageNumber(img *image.RGBA, pageIndex, pageCount int, anchor domain.CornerAnchor, face font.Face) {
	label := fmt.Sprintf("%d/%d", pageIndex, pageCount)
	drawChip(img, label, anchor, face, color.NRGBA{R: 0, G: 0, B: 0, A: 150}, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
}

// DrawSeriesBadge renders the episode badge ("3/8화") at the corner
// opposite the page number's default.
func DrawSeriesBadge(img *image.RGBA, s domain.SeriesInfo, anchor domain.CornerAnchor, face font.Face) {
	label := fmt.Sprintf("%d/%d화", s.Current, s.Total)
	drawChip(img, label, anchor, face, color.NRGBA{R: 40, G: 40, B: 90, A: 170}, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
}

// DrawWatermark renders translucent watermark text at a corner.
func DrawWatermark(img *image.RGBA, text string, anchor domain.CornerAnchor, opacity float64, face font.Face) {
	if text == "" {
		return
	}
	if opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	a := uint8(opacity * 255)
	x, y := anchorPoint(img, anchor, textWidth(face, text), face.Metrics().Height.Round())
	drawText(img, face, x, y, color.NRGBA{R: 255, G: 255, B: 255, A: a}, text)
}

// DrawContinued renders the end-of-part marker: a fade band rising from
// the bottom edge and the marker text centered inside it.
func DrawContinued(img *image.RGBA, text string, face font.Face) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	fadeH := h / 6
	// Fade gets denser toward the bottom edge.
	for i := 0; i < fadeH; i++ {
		alpha := uint8(180 * i / fadeH)
		y := h - fadeH + i
		fillRect(img, 0, y, w-1, y, color.NRGBA{A: alpha})
	}
	tw := textWidth(face, text)
	th := face.Metrics().Height.Round()
	drawText(img, face, (w-tw)/2, h-fadeH/2-th/2, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, text)
}

func drawChip(img *image.RGBA, label string, anchor domain.CornerAnchor, face font.Face, bg, fg color.NRGBA) {
	const padX, padY = 10, 5
	tw := textWidth(face, label)
	th := face.Metrics().Height.Round()
	x, y := anchorPoint(img, anchor, tw+2*padX, th+2*padY)
	fillRoundedRect(img, x, y, x+tw+2*padX, y+th+2*padY, 8, bg)
	drawText(img, face, x+padX, y+padY, fg, label)
}

// anchorPoint returns the top-left position of a w×h box placed at a
// corner with the standard corner margin.
func anchorPoint(img *image.RGBA, anchor domain.CornerAnchor, w, h int) (int, int) {
	const margin = 20
	b := img.Bounds()
	x := b.Dx() - w - margin
	y := b.Dy() - h - margin
	switch anchor {
	case domain.CornerTopLeft:
		x, y = margin, margin
	case domain.CornerTopRight:
		y = margin
	case domain.CornerBottomLeft:
		x = margin
	}
	return x, y
}
