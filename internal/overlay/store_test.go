/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/taxmusa/Auto-webtoon/internal/domain"
	"github.com/taxmusa/Auto-webtoon/internal/render"
	"github.com/taxmusa/Auto-webtoon/internal/storage"
	"github.com/taxmusa/Auto-webtoon/internal/textlayout"
)

func writeBaseImage(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{180, 170, 150, 255}}, image.Point{}, draw.Src)
	path := filepath.Join(dir, "base.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create base: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode base: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close base: %v", err)
	}
	return path
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	rs, err := storage.Open(root)
	if err != nil {
		t.Fatalf("open records: %v", err)
	}
	t.Cleanup(func() { _ = rs.Close() })
	return NewStore(rs, textlayout.BasicProvider{}, filepath.Join(root, "out")), root
}

func koreanScene() domain.Scene {
	return domain.Scene{
		Number: 1,
		Title:  "첫 만남",
		Dialogues: []domain.Dialogue{
			{Speaker: "민지", Text: "안녕? 오랜만이야. 잘 지냈어?", Side: domain.SideLeft},
			{Speaker: "서준", Text: "응, 너도 잘 지냈지?", Side: domain.SideRight},
		},
		Narration: "그렇게 둘은 다시 만났다.",
		Series:    &domain.SeriesInfo{Current: 1, Total: 8},
	}
}

// The standard webtoon canvas: left bubbles anchor near x=30, right
// bubbles near x=570, and wrap width never exceeds 480.
func TestInitializeKoreanScene(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()
	base := domain.BaseImage{Path: writeBaseImage(t, root, 1080, 1350), Width: 1080, Height: 1350}

	st, err := s.Initialize(ctx, "ep1-s1", koreanScene(), base, domain.DefaultOverlaySettings())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(st.Bubbles) != 2 {
		t.Fatalf("expected 2 bubbles: %+v", st.Bubbles)
	}
	left, right := st.Bubbles[0], st.Bubbles[1]
	if left.Geometry.X != 30 || left.Geometry.Tail != domain.TailBottomLeft {
		t.Fatalf("left bubble geometry: %+v", left.Geometry)
	}
	if right.Geometry.X != 570 || right.Geometry.Tail != domain.TailBottomRight {
		t.Fatalf("right bubble geometry: %+v", right.Geometry)
	}
	if left.Geometry.MaxWidth != 480 || right.Geometry.MaxWidth != 480 {
		t.Fatalf("max widths: %v/%v", left.Geometry.MaxWidth, right.Geometry.MaxWidth)
	}
	if st.Narration == nil || st.Narration.Position != domain.NarrationBottom {
		t.Fatalf("narration not seeded: %+v", st.Narration)
	}
}

func TestInitializeReplacesPriorState(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()
	base := domain.BaseImage{Path: writeBaseImage(t, root, 1080, 1350), Width: 1080, Height: 1350}

	if _, err := s.Initialize(ctx, "s1", koreanScene(), base, domain.DefaultOverlaySettings()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := s.Update(ctx, "s1", SetDialogueText{Index: 0, Text: "바뀐 대사"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Re-seeding (base image regenerated) drops the edits.
	st, err := s.Initialize(ctx, "s1", koreanScene(), base, domain.DefaultOverlaySettings())
	if err != nil {
		t.Fatalf("re-initialize: %v", err)
	}
	if st.Bubbles[0].Text != "안녕? 오랜만이야. 잘 지냈어?" {
		t.Fatalf("re-seed kept stale edit: %q", st.Bubbles[0].Text)
	}
	if st.Revision != 1 {
		t.Fatalf("re-seed should reset revision: %d", st.Revision)
	}
}

func TestUpdateTargets(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()
	base := domain.BaseImage{Path: writeBaseImage(t, root, 1080, 1350), Width: 1080, Height: 1350}
	if _, err := s.Initialize(ctx, "s1", koreanScene(), base, domain.DefaultOverlaySettings()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	st, err := s.Update(ctx, "s1", SetDialogueText{Index: 1, Text: "새 대사"})
	if err != nil {
		t.Fatalf("set text: %v", err)
	}
	if st.Bubbles[1].Text != "새 대사" || !st.Dirty || st.Revision != 2 {
		t.Fatalf("text edit state: %+v", st)
	}

	st, err = s.Update(ctx, "s1", SetDialogueStyle{Index: 0, Style: domain.StyleThought})
	if err != nil {
		t.Fatalf("set style: %v", err)
	}
	if st.Bubbles[0].Style != domain.StyleThought {
		t.Fatalf("style edit lost: %+v", st.Bubbles[0])
	}

	// Unknown style fails at edit time.
	if _, err := s.Update(ctx, "s1", SetDialogueStyle{Index: 0, Style: "hexagon"}); err == nil {
		t.Fatalf("expected style validation failure")
	} else {
		var snf render.StyleNotFoundError
		if !errors.As(err, &snf) {
			t.Fatalf("expected StyleNotFoundError, got %v", err)
		}
	}

	g := domain.BubbleGeometry{X: 200, Y: 300, MaxWidth: 250, Tail: domain.TailTop}
	st, err = s.Update(ctx, "s1", SetDialoguePosition{Index: 0, Geometry: g})
	if err != nil {
		t.Fatalf("set position: %v", err)
	}
	if st.Bubbles[0].Position != domain.PositionFixed || st.Bubbles[0].Geometry != g {
		t.Fatalf("position edit: %+v", st.Bubbles[0])
	}

	st, err = s.Update(ctx, "s1", SetNarration{Text: "다른 해설"})
	if err != nil {
		t.Fatalf("set narration: %v", err)
	}
	if st.Narration == nil || st.Narration.Text != "다른 해설" {
		t.Fatalf("narration edit: %+v", st.Narration)
	}

	st, err = s.Update(ctx, "s1", SetToggle{Name: ToggleWatermark, On: true})
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !st.Settings.WatermarkEnabled {
		t.Fatalf("toggle lost: %+v", st.Settings)
	}
	if _, err := s.Update(ctx, "s1", SetToggle{Name: "sparkles", On: true}); err == nil {
		t.Fatalf("unknown toggle should fail")
	}

	if _, err := s.Update(ctx, "s1", SetDialogueText{Index: 99, Text: "x"}); err == nil {
		t.Fatalf("out-of-range index should fail")
	}
}

func TestUpdateUnknownScene(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Update(context.Background(), "ghost", SetNarration{Text: "x"})
	if !errors.Is(err, ErrSceneNotFound) {
		t.Fatalf("expected ErrSceneNotFound, got %v", err)
	}
}

func TestExportWritesFreshArtifactAndKeepsBase(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()
	basePath := writeBaseImage(t, root, 1080, 1350)
	base := domain.BaseImage{Path: basePath, Width: 1080, Height: 1350}
	if _, err := s.Initialize(ctx, "s1", koreanScene(), base, domain.DefaultOverlaySettings()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	baseBefore, err := os.ReadFile(basePath)
	if err != nil {
		t.Fatalf("read base: %v", err)
	}

	a1, _, err := s.Export(ctx, "s1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(a1.Path); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}

	// An edit between exports lands in the next artifact only.
	if _, err := s.Update(ctx, "s1", SetDialogueText{Index: 0, Text: "수정된 대사"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	a2, _, err := s.Export(ctx, "s1")
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if a1.Path == a2.Path {
		t.Fatalf("second export reused the artifact path")
	}

	baseAfter, err := os.ReadFile(basePath)
	if err != nil {
		t.Fatalf("re-read base: %v", err)
	}
	if !bytes.Equal(baseBefore, baseAfter) {
		t.Fatalf("export modified the base image")
	}

	arts, err := s.Artifacts(ctx, "s1")
	if err != nil {
		t.Fatalf("artifacts: %v", err)
	}
	if len(arts) != 2 {
		t.Fatalf("expected 2 recorded artifacts: %+v", arts)
	}

	st, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st.Dirty {
		t.Fatalf("export should clear the dirty flag")
	}
}

func TestExportMissingBaseFailsFast(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()
	basePath := writeBaseImage(t, root, 400, 500)
	base := domain.BaseImage{Path: basePath, Width: 400, Height: 500}
	if _, err := s.Initialize(ctx, "s1", koreanScene(), base, domain.DefaultOverlaySettings()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := os.Remove(basePath); err != nil {
		t.Fatalf("remove base: %v", err)
	}

	_, _, err := s.Export(ctx, "s1")
	if !errors.Is(err, ErrMissingBaseImage) {
		t.Fatalf("expected ErrMissingBaseImage, got %v", err)
	}
	arts, _ := s.Artifacts(ctx, "s1")
	if len(arts) != 0 {
		t.Fatalf("failed export must not record artifacts: %+v", arts)
	}
}

func TestBlankEditThenExportOmitsBubble(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()
	base := domain.BaseImage{Path: writeBaseImage(t, root, 1080, 1350), Width: 1080, Height: 1350}
	if _, err := s.Initialize(ctx, "s1", koreanScene(), base, domain.DefaultOverlaySettings()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	// Blanking a bubble is a valid edit.
	if _, err := s.Update(ctx, "s1", SetDialogueText{Index: 0, Text: "  "}); err != nil {
		t.Fatalf("blank edit rejected: %v", err)
	}
	_, warnings, err := s.Export(ctx, "s1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	found := false
	for _, w := range warnings {
		if w.Kind == render.WarnEmptyText {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected empty_text warning: %+v", warnings)
	}
}

func TestDeleteThenExportFails(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()
	base := domain.BaseImage{Path: writeBaseImage(t, root, 400, 500), Width: 400, Height: 500}
	if _, err := s.Initialize(ctx, "s1", koreanScene(), base, domain.DefaultOverlaySettings()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := s.Export(ctx, "s1"); !errors.Is(err, ErrSceneNotFound) {
		t.Fatalf("expected ErrSceneNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "s1"); !errors.Is(err, ErrSceneNotFound) {
		t.Fatalf("double delete should report ErrSceneNotFound, got %v", err)
	}
}

func TestUndoRestoresPreviousState(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()
	base := domain.BaseImage{Path: writeBaseImage(t, root, 1080, 1350), Width: 1080, Height: 1350}
	if _, err := s.Initialize(ctx, "s1", koreanScene(), base, domain.DefaultOverlaySettings()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	orig, _ := s.Get(ctx, "s1")

	if _, err := s.Update(ctx, "s1", SetDialogueText{Index: 0, Text: "수정"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	st, err := s.Undo(ctx, "s1")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if st.Bubbles[0].Text != orig.Bubbles[0].Text {
		t.Fatalf("undo did not restore text: %q", st.Bubbles[0].Text)
	}
	if st.Revision <= orig.Revision {
		t.Fatalf("undo must advance the revision: %d", st.Revision)
	}
	if _, err := s.Undo(ctx, "s1"); err == nil {
		t.Fatalf("undo with empty history should fail")
	}
}

func TestPreviewCachedByRevision(t *testing.T) {
	s, root := newTestStore(t)
	ctx := context.Background()
	base := domain.BaseImage{Path: writeBaseImage(t, root, 400, 500), Width: 400, Height: 500}
	if _, err := s.Initialize(ctx, "s1", koreanScene(), base, domain.DefaultOverlaySettings()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	p1, _, err := s.Preview(ctx, "s1")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	p2, _, err := s.Preview(ctx, "s1")
	if err != nil {
		t.Fatalf("preview again: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("second preview at same revision should hit the cache")
	}
	if _, err := s.Update(ctx, "s1", SetNarration{Text: "새 해설"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	p3, _, err := s.Preview(ctx, "s1")
	if err != nil {
		t.Fatalf("preview after edit: %v", err)
	}
	if p3 == p1 {
		t.Fatalf("edit should invalidate the preview cache")
	}
}
