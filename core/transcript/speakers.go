// Package transcript turns transcription segments into display data.
// Everything here is a pure function of its input and is recomputed per call.
package transcript

import (
	"fmt"
	"strings"

	"github.com/NancyGarg/transcribe-ai/model"
)

// UnknownSpeaker labels every segment that carries no diarization tag.
const UnknownSpeaker = "Speaker"

// SpeakerLabels maps raw diarization tags to display labels.
type SpeakerLabels map[string]string

// Label returns the display label for a raw tag.
func (l SpeakerLabels) Label(tag string) string {
	if tag == "" {
		return UnknownSpeaker
	}
	if label, ok := l[tag]; ok {
		return label
	}
	return UnknownSpeaker
}

// LabelSpeakers numbers tags in first-seen order: "Speaker 1", "Speaker 2"...
// Untagged segments do not consume a number.
func LabelSpeakers(segments []model.TranscriptSegment) SpeakerLabels {
	labels := make(SpeakerLabels)
	next := 1
	for _, seg := range segments {
		if seg.Speaker == "" {
			continue
		}
		if _, seen := labels[seg.Speaker]; seen {
			continue
		}
		labels[seg.Speaker] = fmt.Sprintf("Speaker %d", next)
		next++
	}
	return labels
}

// Labels returns one label per segment, in segment order.
func Labels(segments []model.TranscriptSegment) []string {
	labels := LabelSpeakers(segments)
	out := make([]string, len(segments))
	for i, seg := range segments {
		out[i] = labels.Label(seg.Speaker)
	}
	return out
}

// Group is one speaker turn: consecutive segments with the same label.
type Group struct {
	SpeakerLabel string `json:"speakerLabel"`
	Text         string `json:"text"`
	ColorIndex   int    `json:"colorIndex"`
	Color        string `json:"color"`
}

// GroupConversation merges runs of same-speaker segments. Whitespace-only
// segments are dropped and do not end a run. Colours are assigned by the
// first-seen order of labels that produced text, cycling through palette.
func GroupConversation(segments []model.TranscriptSegment, palette Palette) []Group {
	if len(palette) == 0 {
		palette = LightPalette
	}
	labels := LabelSpeakers(segments)
	colorOf := make(map[string]int)
	groups := make([]Group, 0, len(segments))

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		label := labels.Label(seg.Speaker)

		if n := len(groups); n > 0 && groups[n-1].SpeakerLabel == label {
			groups[n-1].Text += " " + text
			continue
		}

		idx, ok := colorOf[label]
		if !ok {
			idx = len(colorOf)
			colorOf[label] = idx
		}
		groups = append(groups, Group{
			SpeakerLabel: label,
			Text:         text,
			ColorIndex:   idx % len(palette),
			Color:        palette[idx%len(palette)],
		})
	}
	return groups
}
