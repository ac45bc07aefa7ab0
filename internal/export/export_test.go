/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taxmusa/Auto-webtoon/internal/domain"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{120, 140, 160, 255}}, image.Point{}, draw.Src)
	return img
}

func TestWritePNGCreatesFreshArtifacts(t *testing.T) {
	dir := t.TempDir()
	img := testImage(64, 80)

	a1, err := WritePNG(dir, "s1", 1, img, nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	a2, err := WritePNG(dir, "s1", 1, img, []string{"geometry_overflow"})
	if err != nil {
		t.Fatalf("write again: %v", err)
	}
	if a1.Path == a2.Path {
		t.Fatalf("exports must never share a path: %s", a1.Path)
	}
	if a1.ID == a2.ID {
		t.Fatalf("artifact ids must be unique")
	}
	for _, a := range []domain.Artifact{a1, a2} {
		if !strings.HasPrefix(filepath.Base(a.Path), "scene_1_") {
			t.Fatalf("unexpected artifact name: %s", a.Path)
		}
		if _, err := os.Stat(a.Path); err != nil {
			t.Fatalf("artifact file missing: %v", err)
		}
	}
	if len(a2.Warnings) != 1 {
		t.Fatalf("warnings not carried: %+v", a2)
	}
}

func TestLoadBaseImageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a, err := WritePNG(dir, "s1", 2, testImage(32, 40), nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	img, err := LoadBaseImage(a.Path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 40 {
		t.Fatalf("decoded bounds wrong: %v", img.Bounds())
	}
}

func TestLoadBaseImageMissing(t *testing.T) {
	if _, err := LoadBaseImage("/no/such/base.png"); err == nil {
		t.Fatalf("expected error for missing base image")
	}
}

func TestWriteEpisodePDF(t *testing.T) {
	dir := t.TempDir()
	var artifacts []domain.Artifact
	for n := 1; n <= 3; n++ {
		a, err := WritePNG(dir, "s", n, testImage(108, 135), nil)
		if err != nil {
			t.Fatalf("write scene %d: %v", n, err)
		}
		artifacts = append(artifacts, a)
	}
	out := filepath.Join(dir, "episode.pdf")
	if err := WriteEpisodePDF(artifacts, out, PDFOptions{Title: "ep1"}); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	fi, err := os.Stat(out)
	if err != nil {
		t.Fatalf("pdf missing: %v", err)
	}
	if fi.Size() == 0 {
		t.Fatalf("pdf is empty")
	}
}

func TestWriteEpisodePDFNoArtifacts(t *testing.T) {
	if err := WriteEpisodePDF(nil, filepath.Join(t.TempDir(), "x.pdf"), PDFOptions{}); err == nil {
		t.Fatalf("expected error for empty artifact list")
	}
}
