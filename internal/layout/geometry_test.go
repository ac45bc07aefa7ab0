/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import "testing"

func TestRectBasics(t *testing.T) {
	r := R(10, 20, 100, 50)
	if r.Min() != (Pt{10, 20}) || r.Max() != (Pt{110, 70}) {
		t.Fatalf("min/max wrong: %v %v", r.Min(), r.Max())
	}
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("corners should be contained")
	}
	if r.Contains(Pt{9, 20}) {
		t.Fatalf("outside point contained")
	}

	in := r.Inset(5, 10)
	if in != R(15, 30, 90, 30) {
		t.Fatalf("inset wrong: %v", in)
	}

	u := r.Union(R(0, 0, 5, 5))
	if u != R(0, 0, 110, 70) {
		t.Fatalf("union wrong: %v", u)
	}

	if !r.Intersects(R(100, 60, 50, 50)) {
		t.Fatalf("overlapping rects should intersect")
	}
	if r.Intersects(R(200, 200, 10, 10)) {
		t.Fatalf("disjoint rects should not intersect")
	}
}

func TestFloatRound(t *testing.T) {
	if got := FloatRound(1.23456, 3); got != 1.235 {
		t.Fatalf("got %v", got)
	}
	if got := FloatRound(2.5, 0); got != 3 {
		t.Fatalf("got %v", got)
	}
	if got := FloatRound(1.5, -1); got != 1.5 {
		t.Fatalf("negative places should be identity: %v", got)
	}
}
