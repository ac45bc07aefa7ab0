/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"

	"github.com/taxmusa/Auto-webtoon/internal/domain"

	"github.com/jung-kurt/gofpdf"
)

// PDFOptions controls episode PDF compilation.
// Units are points (pt). Each artifact becomes one full-bleed page sized to
// the image's pixel dimensions at 72 dpi, preserving the webtoon aspect.
type PDFOptions struct {
	Title  string
	Author string
}

// WriteEpisodePDF compiles the given artifacts, in order, into a single
// multi-page PDF at outPath. Artifacts whose files are missing fail the
// whole compilation; a partial episode PDF is worse than none.
func WriteEpisodePDF(artifacts []domain.Artifact, outPath string, opt PDFOptions) error {
	if len(artifacts) == 0 {
		return fmt.Errorf("no artifacts to compile")
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: 1080, Ht: 1350},
		OrientationStr: "",
	})
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	author := opt.Author
	if author == "" {
		author = "Auto Webtoon"
	}
	pdf.SetAuthor(author, true)

	for _, a := range artifacts {
		f, err := os.Open(a.Path)
		if err != nil {
			return fmt.Errorf("open artifact %s: %w", a.ID, err)
		}
		info := pdf.RegisterImageOptionsReader(a.Path, gofpdf.ImageOptions{ImageType: "PNG"}, f)
		if closeErr := f.Close(); closeErr != nil {
			return fmt.Errorf("close artifact %s: %w", a.ID, closeErr)
		}
		if pdf.Err() {
			return fmt.Errorf("register artifact %s: %v", a.ID, pdf.Error())
		}
		w, h := info.Extent()
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: w, Ht: h})
		pdf.ImageOptions(a.Path, 0, 0, w, h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		if pdf.Err() {
			return fmt.Errorf("place artifact %s: %v", a.ID, pdf.Error())
		}
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
