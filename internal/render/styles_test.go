/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"testing"

	"github.com/taxmusa/Auto-webtoon/internal/domain"
)

func TestGetBubbleStyle(t *testing.T) {
	round, ok := GetBubbleStyle(domain.StyleRound)
	if !ok {
		t.Fatalf("round style missing")
	}
	if round.Radius != 20 || round.Padding != 15 {
		t.Fatalf("round style params: %+v", round)
	}
	square, ok := GetBubbleStyle(domain.StyleSquare)
	if !ok || square.Radius != 5 || square.Padding != 12 {
		t.Fatalf("square style params: %+v", square)
	}
	thought, ok := GetBubbleStyle(domain.StyleThought)
	if !ok || !thought.Dashed || thought.Tail != TailCircleTrail {
		t.Fatalf("thought style params: %+v", thought)
	}

	if _, ok := GetBubbleStyle("hexagon"); ok {
		t.Fatalf("unknown style must not resolve")
	}
}

func TestListBubbleStylesStable(t *testing.T) {
	a := ListBubbleStyles()
	b := ListBubbleStyles()
	if len(a) != 3 {
		t.Fatalf("expected 3 builtin styles: %v", a)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("order not stable: %v vs %v", a, b)
		}
	}
}

func TestTintForSpeakerCycles(t *testing.T) {
	if TintForSpeaker(0) == TintForSpeaker(1) {
		t.Fatalf("adjacent speakers share a tint")
	}
	if TintForSpeaker(2) != TintForSpeaker(2+len(speakerPalette)) {
		t.Fatalf("palette should cycle")
	}
	// Negative index must not panic.
	_ = TintForSpeaker(-1)
}
