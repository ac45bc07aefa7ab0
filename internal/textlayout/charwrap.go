/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Per-character wrapping for scripts without reliable word boundaries
// (Hangul, Han, Kana). Every rune of the input ends up on exactly one line,
// in order, so joining the lines reproduces the input text.

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// CharWrap accumulates runes onto a line until adding the next rune would
// exceed maxWidth, then starts a new line. A single rune wider than
// maxWidth still gets a line of its own; it is never dropped or split.
// Explicit newlines force breaks and are not carried into any line. Empty
// input yields no lines.
func CharWrap(text string, meas Measurer, maxWidth float32) []Line {
	if text == "" {
		return nil
	}
	var lines []Line
	var cur strings.Builder
	var curW float32

	flush := func() {
		lines = append(lines, Line{Text: cur.String(), Width: curW})
		cur.Reset()
		curW = 0
	}

	for _, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		w := meas.Width(string(r))
		if cur.Len() > 0 && maxWidth > 0 && curW+w > maxWidth {
			flush()
		}
		cur.WriteRune(r)
		curW += w
	}
	flush()
	return lines
}

// Wrap selects the breaking strategy for the text: per-character for
// dominantly East-Asian text, space-delimited otherwise. Under either
// strategy, concatenating the lines of a newline-delimited segment
// reproduces the segment exactly.
func Wrap(text string, meas Measurer, maxWidth float32) []Line {
	if DominantlyEastAsian(text) {
		return CharWrap(text, meas, maxWidth)
	}
	return WordWrap(text, meas, maxWidth)
}

// DominantlyEastAsian reports whether more than half of the letter runes in
// text belong to East-Asian scripts (Hangul, Han, Kana, or runes that are
// Wide/Fullwidth under UAX #11).
func DominantlyEastAsian(text string) bool {
	var letters, ea int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if isEastAsian(r) {
			ea++
		}
	}
	if letters == 0 {
		return false
	}
	return ea*2 > letters
}

func isEastAsian(r rune) bool {
	if unicode.In(r, unicode.Hangul, unicode.Han, unicode.Hiragana, unicode.Katakana) {
		return true
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return true
	}
	return false
}
