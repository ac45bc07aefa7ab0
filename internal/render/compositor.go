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
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"

	"github.com/taxmusa/Auto-webtoon/internal/domain"
	"github.com/taxmusa/Auto-webtoon/internal/layout"
	"github.com/taxmusa/Auto-webtoon/internal/textlayout"
)

// Layer names used in errors and warnings.
const (
	LayerBubble     = "bubble"
	LayerNarration  = "narration"
	LayerPageNumber = "page_number"
	LayerBadge      = "series_badge"
	LayerWatermark  = "watermark"
	LayerContinued  = "continued"
)

// Warning kinds.
const (
	WarnGeometryOverflow = "geometry_overflow"
	WarnBubbleOverlap    = "bubble_overlap"
	WarnEmptyText        = "empty_text"
)

// Warning is a non-fatal finding produced alongside a successful render.
type Warning struct {
	Kind   string
	Layer  string
	Detail string
}

// LayerError wraps a failure in one layer; the whole render is abandoned.
type LayerError struct {
	Layer string
	Err   error
}

func (e *LayerError) Error() string { return fmt.Sprintf("layer %s: %v", e.Layer, e.Err) }
func (e *LayerError) Unwrap() error { return e.Err }

// Compose renders the full overlay stack over a copy of base. The base
// image is never modified. Layer order is fixed: bubbles in script order,
// narration, page number, series badge, watermark, continued marker. Any
// layer failure aborts the render; the output of a successful call is fully
// determined by its inputs.
func Compose(base image.Image, st domain.LayerState, p textlayout.Provider) (*image.RGBA, []Warning, error) {
	b := base.Bounds()
	img := image.NewRGBA(b)
	draw.Draw(img, b, base, b.Min, draw.Src)

	var warnings []Warning

	// Distinct speakers in order of appearance, for tinting.
	speakerIdx := map[string]int{}
	for _, bd := range st.Bubbles {
		if _, ok := speakerIdx[bd.Speaker]; !ok {
			speakerIdx[bd.Speaker] = len(speakerIdx)
		}
	}
	tinted := len(speakerIdx) > 2

	margin := st.Settings.Margin
	if margin <= 0 {
		margin = 30
	}
	safe := layout.R(0, 0, float32(b.Dx()), float32(b.Dy())).Inset(float32(margin), float32(margin))

	var drawn []layout.Rect

	for _, bd := range st.Bubbles {
		if domainBlank(bd.Text) {
			warnings = append(warnings, Warning{
				Kind:   WarnEmptyText,
				Layer:  LayerBubble,
				Detail: fmt.Sprintf("bubble %d has no text and was omitted", bd.Index),
			})
			continue
		}
		styleName := bd.Style
		if styleName == "" {
			styleName = st.Settings.BubbleStyle
		}
		style, ok := GetBubbleStyle(styleName)
		if !ok {
			return nil, nil, &LayerError{Layer: LayerBubble, Err: StyleNotFoundError{Style: styleName}}
		}
		size := bd.FontSize
		if size <= 0 {
			size = st.Settings.FontSize
		}
		face, met, err := p.Resolve(textlayout.FontSpec{Family: st.Settings.FontFamily, SizePt: float32(size)})
		if err != nil {
			return nil, nil, &LayerError{Layer: LayerBubble, Err: err}
		}
		lines := textlayout.Wrap(bd.Text, textlayout.FaceMeasurer{Face: face}, bd.Geometry.MaxWidth-2*float32(style.Padding))
		var fill color.NRGBA
		if tinted && style.Tail != TailCircleTrail {
			fill = TintForSpeaker(speakerIdx[bd.Speaker])
		}
		box := DrawBubble(img, bd, style, lines, face, met, fill)
		if !safe.Contains(box.Rect.Max()) {
			m := box.Rect.Max()
			warnings = append(warnings, Warning{
				Kind:   WarnGeometryOverflow,
				Layer:  LayerBubble,
				Detail: fmt.Sprintf("bubble %d extends to (%d,%d) past the %dpx page margin", bd.Index, int(m.X), int(m.Y), margin),
			})
		}
		for _, prev := range drawn {
			if box.Rect.Intersects(prev) {
				warnings = append(warnings, Warning{
					Kind:   WarnBubbleOverlap,
					Layer:  LayerBubble,
					Detail: fmt.Sprintf("bubble %d overlaps an earlier bubble", bd.Index),
				})
				break
			}
		}
		drawn = append(drawn, box.Rect)
	}

	if st.Narration != nil && !domainBlank(st.Narration.Text) {
		size := st.Narration.FontSize
		if size <= 0 {
			size = st.Settings.NarrationFontSize
		}
		face, met, err := p.Resolve(textlayout.FontSpec{Family: st.Settings.FontFamily, SizePt: float32(size)})
		if err != nil {
			return nil, nil, &LayerError{Layer: LayerNarration, Err: err}
		}
		maxW := float32(b.Dx()) - 2*float32(margin)
		lines := textlayout.Wrap(st.Narration.Text, textlayout.FaceMeasurer{Face: face}, maxW)
		DrawNarration(img, *st.Narration, lines, face, met)
	}

	// Chip layers share one 18pt face. Resolved only when a chip layer is
	// actually enabled, so a scene with every chip off cannot fail on it.
	var chipFace font.Face
	chip := func(layer string) (font.Face, error) {
		if chipFace != nil {
			return chipFace, nil
		}
		f, _, err := p.Resolve(textlayout.FontSpec{Family: st.Settings.FontFamily, SizePt: 18})
		if err != nil {
			return nil, &LayerError{Layer: layer, Err: err}
		}
		chipFace = f
		return chipFace, nil
	}

	if st.Settings.PageNumberEnabled && st.PageCount > 0 {
		face, err := chip(LayerPageNumber)
		if err != nil {
			return nil, nil, err
		}
		DrawPageNumber(img, st.PageIndex, st.PageCount, st.Settings.PageNumberPosition, face)
	}

	if st.Settings.SeriesBadgeEnabled && st.Series != nil {
		anchor := domain.CornerTopRight
		if st.Settings.PageNumberPosition == domain.CornerTopRight {
			anchor = domain.CornerTopLeft
		}
		face, err := chip(LayerBadge)
		if err != nil {
			return nil, nil, err
		}
		DrawSeriesBadge(img, *st.Series, anchor, face)
	}

	if st.Settings.WatermarkEnabled {
		face, err := chip(LayerWatermark)
		if err != nil {
			return nil, nil, err
		}
		DrawWatermark(img, st.Settings.WatermarkText, st.Settings.WatermarkPosition, st.Settings.WatermarkOpacity, face)
	}

	if st.Settings.ContinuedEnabled && st.LastOfPart && st.Series != nil {
		face, _, err := p.Resolve(textlayout.FontSpec{Family: st.Settings.FontFamily, SizePt: float32(st.Settings.FontSize)})
		if err != nil {
			return nil, nil, &LayerError{Layer: LayerContinued, Err: err}
		}
		DrawContinued(img, st.Settings.ContinuedText, face)
	}

	return img, warnings, nil
}

func domainBlank(s string) bool { return domain.Dialogue{Text: s}.Blank() }
