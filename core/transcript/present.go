package transcript

import (
	"strings"

	"github.com/NancyGarg/transcribe-ai/model"
)

// Palette is an ordered list of hex colours assigned to speakers.
type Palette []string

var (
	LightPalette = Palette{"#3ABA16", "#5856D6", "#FF9500", "#FF3B30"}
	DarkPalette  = Palette{"#3ADA56", "#7D7AFF", "#FFB357", "#FF5E57"}
)

// PaletteFor picks the light or dark palette.
func PaletteFor(dark bool) Palette {
	if dark {
		return DarkPalette
	}
	return LightPalette
}

// Item is one rendered block of a transcript. Interview recordings produce
// speaker turns; every other mode produces one item per segment with its
// offsets and no speaker.
type Item struct {
	SpeakerLabel string `json:"speakerLabel,omitempty"`
	Text         string `json:"text"`
	ColorIndex   int    `json:"colorIndex"`
	Color        string `json:"color,omitempty"`
	StartMs      int64  `json:"startMs"`
	EndMs        int64  `json:"endMs"`
}

// Present renders segments for mode.
func Present(mode model.RecordingMode, segments []model.TranscriptSegment, palette Palette) []Item {
	if mode == model.ModeInterview {
		groups := GroupConversation(segments, palette)
		items := make([]Item, len(groups))
		for i, g := range groups {
			items[i] = Item{SpeakerLabel: g.SpeakerLabel, Text: g.Text, ColorIndex: g.ColorIndex, Color: g.Color}
		}
		return items
	}

	items := make([]Item, 0, len(segments))
	for _, seg := range segments {
		items = append(items, Item{
			Text:    strings.TrimSpace(seg.Text),
			StartMs: seg.StartMs,
			EndMs:   seg.EndMs,
		})
	}
	return items
}
