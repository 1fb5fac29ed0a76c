package subtitle

import (
	"fmt"
	"io"
)

// Segment pairs one segment's cues with the measured duration of the
// audio file it belongs to.
type Segment struct {
	Number   int
	Cues     []Cue
	Duration float64
}

// MergedTrack is the result of chaining segment tracks on one timeline.
type MergedTrack struct {
	Cues          []Cue
	TotalDuration float64
	Segments      int
}

// Merge chains per-segment subtitle tracks into a single timeline.
// Each segment's cue times are rescaled from the track's own span to the
// measured audio duration, then offset by the running total of all
// preceding durations. A segment with no cues still advances the
// timeline by its duration so later segments stay aligned.
func Merge(segments []Segment) (*MergedTrack, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments to merge")
	}

	merged := &MergedTrack{Segments: len(segments)}
	cumulative := 0.0

	for _, seg := range segments {
		if seg.Duration < 0 {
			return nil, fmt.Errorf("segment %d: negative duration %.3f", seg.Number, seg.Duration)
		}

		if len(seg.Cues) > 0 {
			original := 0.0
			for _, c := range seg.Cues {
				if c.End > original {
					original = c.End
				}
			}

			scale := 1.0
			if original > 0 {
				scale = seg.Duration / original
			}

			for _, c := range seg.Cues {
				merged.Cues = append(merged.Cues, Cue{
					Start: c.Start*scale + cumulative,
					End:   c.End*scale + cumulative,
					Text:  c.Text,
				})
			}
		}

		cumulative += seg.Duration
	}

	merged.TotalDuration = cumulative
	return merged, nil
}

// WriteTo serializes the merged track as SRT.
func (t *MergedTrack) WriteTo(w io.Writer) error {
	return WriteTrack(w, t.Cues)
}
