/*
 * Copyright (c) 2025 by the Auto Webtoon authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for the overlay engine: scenes and
// their dialogues as produced by the script stage, and the editable layer
// state that sits between a clean base image and the final composited export.

import (
	"strings"
	"time"
)

// Side places a dialogue bubble in the left or right half of the image.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// BubbleStyleName selects a builtin bubble rendering style.
type BubbleStyleName string

const (
	StyleRound   BubbleStyleName = "round"
	StyleSquare  BubbleStyleName = "square"
	StyleThought BubbleStyleName = "thought"
)

// PositionMode distinguishes resolver-derived geometry from a manual edit.
type PositionMode string

const (
	PositionAuto  PositionMode = "auto"
	PositionFixed PositionMode = "fixed"
)

// TailDirection orients a bubble tail toward its speaker.
type TailDirection string

const (
	TailBottomLeft  TailDirection = "bottom_left"
	TailBottomRight TailDirection = "bottom_right"
	TailTop         TailDirection = "top"
	TailBottom      TailDirection = "bottom"
)

// NarrationPosition selects the narration bar edge.
type NarrationPosition string

const (
	NarrationTop    NarrationPosition = "top"
	NarrationBottom NarrationPosition = "bottom"
)

// CornerAnchor names one of the four image corners for chips and marks.
type CornerAnchor string

const (
	CornerTopLeft     CornerAnchor = "top_left"
	CornerTopRight    CornerAnchor = "top_right"
	CornerBottomLeft  CornerAnchor = "bottom_left"
	CornerBottomRight CornerAnchor = "bottom_right"
)

// Dialogue is one utterance in a scene script. Emotion is informational
// only; it never affects rendering.
type Dialogue struct {
	Speaker  string          `json:"speaker"`
	Text     string          `json:"text"`
	Side     Side            `json:"side"`
	Emotion  string          `json:"emotion,omitempty"`
	Style    BubbleStyleName `json:"style,omitempty"`
	Position PositionMode    `json:"position,omitempty"`
	FontSize int             `json:"fontSize,omitempty"`
}

// Blank reports whether the dialogue has no visible text. Blank dialogues
// produce no bubble layer.
func (d Dialogue) Blank() bool { return strings.TrimSpace(d.Text) == "" }

// Scene is one panel of an episode as authored by the script stage.
type Scene struct {
	Number     int         `json:"sceneNumber"`
	Title      string      `json:"title,omitempty"`
	Dialogues  []Dialogue  `json:"dialogues"`
	Narration  string      `json:"narration,omitempty"`
	Series     *SeriesInfo `json:"series,omitempty"`
	LastOfPart bool        `json:"lastOfPart,omitempty"`
}

// SeriesInfo identifies the episode within its series (1-based).
type SeriesInfo struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// OverlaySettings enumerates every rendering option with an explicit value.
// Callers obtain a fully populated value from DefaultOverlaySettings and
// override fields as needed; the engine reads no ambient defaults.
type OverlaySettings struct {
	BubbleStyle        BubbleStyleName   `json:"bubbleStyle" yaml:"bubble_style"`
	BubblePosition     PositionMode      `json:"bubblePosition" yaml:"bubble_position"`
	FontFamily         string            `json:"fontFamily" yaml:"font_family"`
	FontSize           int               `json:"fontSize" yaml:"font_size"`
	NarrationPosition  NarrationPosition `json:"narrationPosition" yaml:"narration_position"`
	NarrationFontSize  int               `json:"narrationFontSize" yaml:"narration_font_size"`
	PageNumberEnabled  bool              `json:"pageNumberEnabled" yaml:"page_number_enabled"`
	PageNumberPosition CornerAnchor      `json:"pageNumberPosition" yaml:"page_number_position"`
	SeriesBadgeEnabled bool              `json:"seriesBadgeEnabled" yaml:"series_badge_enabled"`
	WatermarkEnabled   bool              `json:"watermarkEnabled" yaml:"watermark_enabled"`
	WatermarkText      string            `json:"watermarkText,omitempty" yaml:"watermark_text"`
	WatermarkOpacity   float64           `json:"watermarkOpacity" yaml:"watermark_opacity"`
	WatermarkPosition  CornerAnchor      `json:"watermarkPosition" yaml:"watermark_position"`
	Margin             int               `json:"margin" yaml:"margin"`
	StackStep          int               `json:"stackStep" yaml:"stack_step"`
	ContinuedEnabled   bool              `json:"continuedEnabled" yaml:"continued_enabled"`
	ContinuedText      string            `json:"continuedText" yaml:"continued_text"`
}

// DefaultOverlaySettings returns the standard webtoon overlay configuration.
func DefaultOverlaySettings() OverlaySettings {
	return OverlaySettings{
		BubbleStyle:        StyleRound,
		BubblePosition:     PositionAuto,
		FontFamily:         "NanumGothic",
		FontSize:           24,
		NarrationPosition:  NarrationBottom,
		NarrationFontSize:  20,
		PageNumberEnabled:  true,
		PageNumberPosition: CornerBottomRight,
		SeriesBadgeEnabled: true,
		WatermarkEnabled:   false,
		WatermarkOpacity:   0.35,
		WatermarkPosition:  CornerBottomLeft,
		Margin:             30,
		StackStep:          80,
		ContinuedEnabled:   true,
		ContinuedText:      "다음편에 계속 →",
	}
}

// BubbleGeometry is the resolved placement of one bubble: the anchor point
// of its text block, the wrap width bound, and the tail orientation.
type BubbleGeometry struct {
	X        float32       `json:"x"`
	Y        float32       `json:"y"`
	MaxWidth float32       `json:"maxWidth"`
	Tail     TailDirection `json:"tail"`
}

// BubbleDescriptor is the editable per-bubble layer record held in a
// LayerState. Index is the dialogue's position in the scene script.
type BubbleDescriptor struct {
	Index    int             `json:"index"`
	Speaker  string          `json:"speaker"`
	Text     string          `json:"text"`
	Style    BubbleStyleName `json:"style"`
	Position PositionMode    `json:"position"`
	Geometry BubbleGeometry  `json:"geometry"`
	FontSize int             `json:"fontSize"`
}

// NarrationDescriptor is the editable narration layer record.
type NarrationDescriptor struct {
	Text     string            `json:"text"`
	Position NarrationPosition `json:"position"`
	FontSize int               `json:"fontSize"`
}

// BaseImage references the clean upstream artwork. The engine reads it and
// never writes to Path.
type BaseImage struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// LayerState is the persisted, editable overlay state of one scene. Every
// edit mutates this record; the base image is untouched and every export
// produces a fresh artifact composited from the state at that moment.
type LayerState struct {
	SceneID     string               `json:"sceneId"`
	SceneNumber int                  `json:"sceneNumber"`
	Title       string               `json:"title,omitempty"`
	Base        BaseImage            `json:"base"`
	Bubbles     []BubbleDescriptor   `json:"bubbles"`
	Narration   *NarrationDescriptor `json:"narration,omitempty"`
	Settings    OverlaySettings      `json:"settings"`
	Series      *SeriesInfo          `json:"series,omitempty"`
	LastOfPart  bool                 `json:"lastOfPart,omitempty"`
	PageIndex   int                  `json:"pageIndex"`
	PageCount   int                  `json:"pageCount"`
	Revision    int64                `json:"revision"`
	Dirty       bool                 `json:"dirty"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// Artifact records one completed export. Exports never overwrite one
// another; each gets a unique path.
type Artifact struct {
	ID        string    `json:"id"`
	SceneID   string    `json:"sceneId"`
	Path      string    `json:"path"`
	Warnings  []string  `json:"warnings,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
