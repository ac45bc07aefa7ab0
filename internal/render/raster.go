/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

// Low-level raster helpers. Everything draws onto *image.RGBA with
// source-over compositing so translucent overlay layers blend correctly
// with the artwork underneath.

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// setOver composites a non-premultiplied src pixel over the destination.
func setOver(img *image.RGBA, x, y int, c color.NRGBA) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	if c.A == 0 {
		return
	}
	d := img.RGBAAt(x, y)
	a := uint32(c.A)
	inv := 255 - a
	d.R = uint8((uint32(c.R)*a + uint32(d.R)*inv) / 255)
	d.G = uint8((uint32(c.G)*a + uint32(d.G)*inv) / 255)
	d.B = uint8((uint32(c.B)*a + uint32(d.B)*inv) / 255)
	d.A = uint8(a + uint32(d.A)*inv/255)
	img.SetRGBA(x, y, d)
}

// fillRect fills an inclusive rectangle with source-over blending.
func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	if c.A == 255 {
		// Opaque fills can bypass per-pixel blending.
		r := image.Rect(x0, y0, x1+1, y1+1).Intersect(img.Bounds())
		draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
		return
	}
	r := image.Rect(x0, y0, x1+1, y1+1).Intersect(img.Bounds())
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Over)
}

// strokeRect draws an axis-aligned rectangle border of the given width,
// inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1, width int, c color.NRGBA) {
	for i := 0; i < width; i++ {
		for x := x0 + i; x <= x1-i; x++ {
			setOver(img, x, y0+i, c)
			setOver(img, x, y1-i, c)
		}
		for y := y0 + i + 1; y < y1-i; y++ {
			setOver(img, x0+i, y, c)
			setOver(img, x1-i, y, c)
		}
	}
}

// fillCircle fills a disc centered at (cx,cy).
func fillCircle(img *image.RGBA, cx, cy, r int, c color.NRGBA) {
	rr := r * r
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= rr {
				setOver(img, cx+dx, cy+dy, c)
			}
		}
	}
}

// strokeCircle draws a circle outline of the given width. dashed skips
// alternating arc segments.
func strokeCircle(img *image.RGBA, cx, cy, r, width int, dashed bool, c color.NRGBA) {
	outer := r * r
	in := r - width
	inner := in * in
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			d := dx*dx + dy*dy
			if d > outer || d < inner {
				continue
			}
			if dashed && ((absInt(dx)+absInt(dy))/6)%2 == 1 {
				continue
			}
			setOver(img, cx+dx, cy+dy, c)
		}
	}
}

// fillRoundedRect fills a rectangle with quarter-circle corners.
func fillRoundedRect(img *image.RGBA, x0, y0, x1, y1, radius int, c color.NRGBA) {
	w := x1 - x0 + 1
	h := y1 - y0 + 1
	if radius*2 > w {
		radius = w / 2
	}
	if radius*2 > h {
		radius = h / 2
	}
	if radius <= 0 {
		fillRect(img, x0, y0, x1, y1, c)
		return
	}
	// Center band plus top/bottom bands between the corners.
	fillRect(img, x0, y0+radius, x1, y1-radius, c)
	fillRect(img, x0+radius, y0, x1-radius, y0+radius-1, c)
	fillRect(img, x0+radius, y1-radius+1, x1-radius, y1, c)
	// Quarter discs at the corners.
	rr := radius * radius
	cxs := [4][2]int{
		{x0 + radius, y0 + radius},
		{x1 - radius, y0 + radius},
		{x0 + radius, y1 - radius},
		{x1 - radius, y1 - radius},
	}
	signs := [4][2]int{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
	for i, ctr := range cxs {
		sx, sy := signs[i][0], signs[i][1]
		for dy := 0; dy <= radius; dy++ {
			for dx := 0; dx <= radius; dx++ {
				if dx*dx+dy*dy <= rr {
					setOver(img, ctr[0]+sx*dx, ctr[1]+sy*dy, c)
				}
			}
		}
	}
}

// strokeRoundedRect draws a rounded rectangle border. The dashed flag skips
// alternating segments along the edges and corners.
func strokeRoundedRect(img *image.RGBA, x0, y0, x1, y1, radius, width int, dashed bool, c color.NRGBA) {
	w := x1 - x0 + 1
	h := y1 - y0 + 1
	if radius*2 > w {
		radius = w / 2
	}
	if radius*2 > h {
		radius = h / 2
	}
	if radius <= 0 {
		strokeRect(img, x0, y0, x1, y1, width, c)
		return
	}
	dash := func(n int) bool { return dashed && (n/8)%2 == 1 }
	// Straight edges.
	for i := 0; i < width; i++ {
		for x := x0 + radius; x <= x1-radius; x++ {
			if !dash(x) {
				setOver(img, x, y0+i, c)
				setOver(img, x, y1-i, c)
			}
		}
		for y := y0 + radius; y <= y1-radius; y++ {
			if !dash(y) {
				setOver(img, x0+i, y, c)
				setOver(img, x1-i, y, c)
			}
		}
	}
	// Corner arcs.
	outer := radius * radius
	in := radius - width
	inner := in * in
	cxs := [4][2]int{
		{x0 + radius, y0 + radius},
		{x1 - radius, y0 + radius},
		{x0 + radius, y1 - radius},
		{x1 - radius, y1 - radius},
	}
	signs := [4][2]int{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
	for i, ctr := range cxs {
		sx, sy := signs[i][0], signs[i][1]
		for dy := 0; dy <= radius; dy++ {
			for dx := 0; dx <= radius; dx++ {
				d := dx*dx + dy*dy
				if d > outer || d < inner {
					continue
				}
				if dash(dx + dy) {
					continue
				}
				setOver(img, ctr[0]+sx*dx, ctr[1]+sy*dy, c)
			}
		}
	}
}

// fillTriangle fills the triangle (a,b,c) using edge functions.
func fillTriangle(img *image.RGBA, ax, ay, bx, by, cx, cy int, col color.NRGBA) {
	minX := min3(ax, bx, cx)
	maxX := max3(ax, bx, cx)
	minY := min3(ay, by, cy)
	maxY := max3(ay, by, cy)
	edge := func(x0, y0, x1, y1, px, py int) int {
		return (x1-x0)*(py-y0) - (y1-y0)*(px-x0)
	}
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			w0 := edge(ax, ay, bx, by, x, y)
			w1 := edge(bx, by, cx, cy, x, y)
			w2 := edge(cx, cy, ax, ay, x, y)
			if (w0 >= 0 && w1 >= 0 && w2 >= 0) || (w0 <= 0 && w1 <= 0 && w2 <= 0) {
				setOver(img, x, y, col)
			}
		}
	}
}

// drawText renders s with its baseline at (x, y+ascent of the face).
func drawText(img *image.RGBA, face font.Face, x, y int, c color.NRGBA, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Round()),
	}
	d.DrawString(s)
}

// textWidth measures s in whole pixels with the face.
func textWidth(face font.Face, s string) int {
	d := &font.Drawer{Face: face}
	return d.MeasureString(s).Ceil()
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func max3(a, b, c int) int {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}
