package domain

import (
	"encoding/json"
	"testing"
)

func TestLayerStateJSONRoundTrip(t *testing.T) {
	st := LayerState{
		SceneID:     "ep1-scene-3",
		SceneNumber: 3,
		Title:       "골목길",
		Base:        BaseImage{Path: "scenes/scene_3.png", Width: 1080, Height: 1350},
		Bubbles: []BubbleDescriptor{
			{Index: 0, Speaker: "민지", Text: "안녕?", Style: StyleRound, Position: PositionAuto,
				Geometry: BubbleGeometry{X: 30, Y: 30, MaxWidth: 480, Tail: TailBottomLeft}, FontSize: 24},
		},
		Narration: &NarrationDescriptor{Text: "그날 저녁.", Position: NarrationBottom, FontSize: 20},
		Settings:  DefaultOverlaySettings(),
		Series:    &SeriesInfo{Current: 1, Total: 8},
		PageIndex: 3, PageCount: 12,
		Revision: 7,
	}

	b, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got LayerState
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.SceneID != st.SceneID || got.Revision != st.Revision {
		t.Fatalf("identity mismatch: %+v", got)
	}
	if len(got.Bubbles) != 1 || got.Bubbles[0].Geometry.MaxWidth != 480 {
		t.Fatalf("unexpected bubble structure: %+v", got.Bubbles)
	}
	if got.Narration == nil || got.Narration.Position != NarrationBottom {
		t.Fatalf("narration lost in round trip: %+v", got.Narration)
	}
	if got.Settings.ContinuedText != "다음편에 계속 →" {
		t.Fatalf("settings lost in round trip: %+v", got.Settings)
	}
}

func TestDefaultOverlaySettings(t *testing.T) {
	s := DefaultOverlaySettings()
	if s.FontSize != 24 || s.NarrationFontSize != 20 {
		t.Fatalf("font defaults wrong: %+v", s)
	}
	if s.Margin != 30 || s.StackStep != 80 {
		t.Fatalf("layout defaults wrong: %+v", s)
	}
	if s.BubbleStyle != StyleRound || s.BubblePosition != PositionAuto {
		t.Fatalf("bubble defaults wrong: %+v", s)
	}
	if !s.PageNumberEnabled || s.PageNumberPosition != CornerBottomRight {
		t.Fatalf("page number defaults wrong: %+v", s)
	}
	if s.WatermarkEnabled || s.WatermarkOpacity != 0.35 {
		t.Fatalf("watermark defaults wrong: %+v", s)
	}
}

func TestDialogueBlank(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"\n\t", true},
		{"안녕", false},
		{" ok ", false},
	}
	for _, c := range cases {
		d := Dialogue{Text: c.text}
		if got := d.Blank(); got != c.want {
			t.Fatalf("Blank(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}
