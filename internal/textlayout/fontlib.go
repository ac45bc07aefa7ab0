/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// FontLibrary stores loaded OpenType fonts mapped by family/weight/italic.

type FontLibrary struct {
	fonts map[fontKey]*opentype.Font
}

type fontKey struct {
	family string
	weight int
	italic bool
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[fontKey]*opentype.Font)} }

// LoadTTF loads a font file into the library under the given family/weight/italic.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", path, err)
	}
	fl.fonts[fontKey{family: family, weight: weight, italic: italic}] = f
	return nil
}

// LoadDir loads every .ttf/.otf in dir, using the base file name (without
// extension) as the family, regular weight, upright.
func (fl *FontLibrary) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read fonts dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".ttf" && ext != ".otf" {
			continue
		}
		family := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if err := fl.LoadTTF(family, 400, false, filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the number of loaded fonts.
func (fl *FontLibrary) Len() int {
	if fl == nil {
		return 0
	}
	return len(fl.fonts)
}

func (fl *FontLibrary) find(spec FontSpec) *opentype.Font {
	if fl == nil || fl.fonts == nil {
		return nil
	}
	if f, ok := fl.fonts[fontKey{family: spec.Family, weight: spec.Weight, italic: spec.Italic}]; ok {
		return f
	}
	// Same family, different weight/italic. The pick must not depend on
	// map iteration order: regular upright wins, then lowest weight,
	// upright before italic.
	var best fontKey
	found := false
	for k := range fl.fonts {
		if k.family != spec.Family {
			continue
		}
		if !found || fontKeyLess(k, best) {
			best = k
			found = true
		}
	}
	if found {
		return fl.fonts[best]
	}
	return nil
}

func fontKeyLess(a, b fontKey) bool {
	ar := a.weight == 400 && !a.italic
	br := b.weight == 400 && !b.italic
	if ar != br {
		return ar
	}
	if a.weight != b.weight {
		return a.weight < b.weight
	}
	return !a.italic && b.italic
}

// OTProvider resolves FontSpec against a FontLibrary. An unknown family is
// an error; rendering must fail loudly rather than substitute a face.
type OTProvider struct {
	Lib *FontLibrary
	DPI float64 // default 72 if zero
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics, error) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}

	f := p.Lib.find(spec)
	if f == nil {
		return nil, Metrics{}, fmt.Errorf("font family %q: %w", spec.Family, ErrUnknownFamily)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(spec.SizePt), DPI: dpi, Hinting: font.HintingFull})
	if err != nil {
		return nil, Metrics{}, fmt.Errorf("build face for %q: %w", spec.Family, err)
	}
	m := face.Metrics()
	return face, Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}, nil
}
