/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"golang.org/x/image/font"

	"github.com/taxmusa/Auto-webtoon/internal/domain"
	"github.com/taxmusa/Auto-webtoon/internal/textlayout"
)

func testBase(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{200, 180, 160, 255}}, image.Point{}, draw.Src)
	return img
}

func testState() domain.LayerState {
	st := domain.LayerState{
		SceneID:     "s1",
		SceneNumber: 1,
		Base:        domain.BaseImage{Width: 400, Height: 500},
		Settings:    domain.DefaultOverlaySettings(),
		Bubbles: []domain.BubbleDescriptor{
			{Index: 0, Speaker: "a", Text: "hello there", Style: domain.StyleRound,
				Geometry: domain.BubbleGeometry{X: 30, Y: 30, MaxWidth: 140, Tail: domain.TailBottomLeft}, FontSize: 12},
		},
		Narration: &domain.NarrationDescriptor{Text: "later that day", Position: domain.NarrationBottom, FontSize: 12},
		Series:    &domain.SeriesInfo{Current: 2, Total: 5},
		PageIndex: 1, PageCount: 4,
	}
	return st
}

func TestComposeDeterministic(t *testing.T) {
	st := testState()
	a, _, err := Compose(testBase(400, 500), st, textlayout.BasicProvider{})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	b, _, err := Compose(testBase(400, 500), st, textlayout.BasicProvider{})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatalf("identical inputs produced different pixels")
	}
}

func TestComposeLeavesBaseUntouched(t *testing.T) {
	base := testBase(400, 500)
	before := make([]uint8, len(base.Pix))
	copy(before, base.Pix)

	if _, _, err := Compose(base, testState(), textlayout.BasicProvider{}); err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !bytes.Equal(before, base.Pix) {
		t.Fatalf("compose mutated the base image")
	}
}

func TestComposeUnknownStyleFails(t *testing.T) {
	st := testState()
	st.Bubbles[0].Style = domain.BubbleStyleName("hexagon")

	_, _, err := Compose(testBase(400, 500), st, textlayout.BasicProvider{})
	if err == nil {
		t.Fatalf("expected hard failure for unknown style")
	}
	var le *LayerError
	if !errors.As(err, &le) || le.Layer != LayerBubble {
		t.Fatalf("expected bubble LayerError, got %v", err)
	}
	var snf StyleNotFoundError
	if !errors.As(err, &snf) || snf.Style != "hexagon" {
		t.Fatalf("expected StyleNotFoundError for hexagon, got %v", err)
	}
}

func TestComposeBlankBubbleOmitted(t *testing.T) {
	st := testState()
	st.Bubbles[0].Text = "   "
	st.Narration = nil
	st.Settings.PageNumberEnabled = false
	st.Settings.SeriesBadgeEnabled = false
	st.Settings.ContinuedEnabled = false

	base := testBase(400, 500)
	out, warnings, err := Compose(base, st, textlayout.BasicProvider{})
	if err != nil {
		t.Fatalf("blank text must not fail the render: %v", err)
	}
	if !bytes.Equal(out.Pix, base.Pix) {
		t.Fatalf("blank bubble should draw nothing")
	}
	found := false
	for _, w := range warnings {
		if w.Kind == WarnEmptyText && w.Layer == LayerBubble {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected empty_text warning, got %+v", warnings)
	}
}

type failFontProvider struct{}

func (failFontProvider) Resolve(spec textlayout.FontSpec) (font.Face, textlayout.Metrics, error) {
	return nil, textlayout.Metrics{}, fmt.Errorf("font family %q: %w", spec.Family, textlayout.ErrUnknownFamily)
}

func TestComposeSkipsChipFaceWhenChipsDisabled(t *testing.T) {
	st := testState()
	st.Bubbles = nil
	st.Narration = nil
	st.Settings.PageNumberEnabled = false
	st.Settings.SeriesBadgeEnabled = false
	st.Settings.WatermarkEnabled = false
	st.Settings.ContinuedEnabled = false

	// With every text layer off the unknown family must never be looked up.
	out, warnings, err := Compose(testBase(400, 500), st, failFontProvider{})
	if err != nil {
		t.Fatalf("no enabled layer needs a font, compose failed: %v", err)
	}
	if out == nil || len(warnings) != 0 {
		t.Fatalf("expected clean render, warnings=%+v", warnings)
	}
}

func TestComposeChipFaceFailureNamesEnabledLayer(t *testing.T) {
	st := testState()
	st.Bubbles = nil
	st.Narration = nil
	st.Settings.PageNumberEnabled = false
	st.Settings.WatermarkEnabled = false
	st.Settings.ContinuedEnabled = false
	st.Settings.SeriesBadgeEnabled = true

	_, _, err := Compose(testBase(400, 500), st, failFontProvider{})
	var le *LayerError
	if !errors.As(err, &le) || le.Layer != LayerBadge {
		t.Fatalf("expected series_badge LayerError, got %v", err)
	}
	if !errors.Is(err, textlayout.ErrUnknownFamily) {
		t.Fatalf("expected unknown-family cause, got %v", err)
	}
}

func TestComposeGeometryOverflowWarns(t *testing.T) {
	st := testState()
	st.Bubbles[0].Position = domain.PositionFixed
	st.Bubbles[0].Geometry.Y = 480 // bubble body extends past the bottom margin

	out, warnings, err := Compose(testBase(400, 500), st, textlayout.BasicProvider{})
	if err != nil {
		t.Fatalf("overflow must not fail the render: %v", err)
	}
	if out == nil {
		t.Fatalf("expected an artifact alongside the warning")
	}
	found := false
	for _, w := range warnings {
		if w.Kind == WarnGeometryOverflow {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected geometry_overflow warning, got %+v", warnings)
	}
}

func TestComposeGeometryOverflowWarnsOnRightEdge(t *testing.T) {
	st := testState()
	st.Bubbles[0].Position = domain.PositionFixed
	st.Bubbles[0].Geometry.X = 360 // bubble body crosses the right margin

	_, warnings, err := Compose(testBase(400, 500), st, textlayout.BasicProvider{})
	if err != nil {
		t.Fatalf("overflow must not fail the render: %v", err)
	}
	found := false
	for _, w := range warnings {
		if w.Kind == WarnGeometryOverflow {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected geometry_overflow warning, got %+v", warnings)
	}
}

func TestComposeBubbleOverlapWarns(t *testing.T) {
	st := testState()
	st.Bubbles[0].Position = domain.PositionFixed
	st.Bubbles = append(st.Bubbles, domain.BubbleDescriptor{
		Index: 1, Speaker: "b", Text: "me too", Style: domain.StyleRound,
		Position: domain.PositionFixed,
		Geometry: domain.BubbleGeometry{X: 40, Y: 35, MaxWidth: 140, Tail: domain.TailBottomRight},
		FontSize: 12,
	})

	_, warnings, err := Compose(testBase(400, 500), st, textlayout.BasicProvider{})
	if err != nil {
		t.Fatalf("overlap must not fail the render: %v", err)
	}
	found := false
	for _, w := range warnings {
		if w.Kind == WarnBubbleOverlap && w.Layer == LayerBubble {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected bubble_overlap warning, got %+v", warnings)
	}
}

func TestComposeDrawsLayers(t *testing.T) {
	base := testBase(400, 500)
	st := testState()
	st.LastOfPart = true
	st.Settings.WatermarkEnabled = true
	st.Settings.WatermarkText = "autowebtoon"

	out, _, err := Compose(base, st, textlayout.BasicProvider{})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if bytes.Equal(out.Pix, base.Pix) {
		t.Fatalf("nothing was drawn")
	}
	// Bubble body is near-white at its anchor plus padding.
	c := out.RGBAAt(60, 45)
	if c.R < 200 || c.G < 200 || c.B < 200 {
		t.Fatalf("expected bubble fill near (60,45), got %+v", c)
	}
	// Continued fade darkens the bottom edge.
	bottom := out.RGBAAt(200, 498)
	baseC := base.RGBAAt(200, 498)
	if bottom.R >= baseC.R {
		t.Fatalf("expected darkened bottom edge, got %+v vs %+v", bottom, baseC)
	}
}
