// Package subtitle parses, rescales and merges SRT subtitle tracks.
package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"
)

// Cue is one subtitle entry with times in seconds.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

var timeLineRe = regexp.MustCompile(`(\d{2}:\d{2}:\d{2},\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2},\d{3})`)

// Parse reads an SRT document. Blocks are separated by blank lines and
// need at least an index line, a time line and one text line. Malformed
// blocks and cues with non-positive spans are skipped with a warning
// rather than failing the whole track.
func Parse(r io.Reader) ([]Cue, error) {
	var content strings.Builder
	if _, err := io.Copy(&content, r); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}

	text := strings.ReplaceAll(content.String(), "\r\n", "\n")
	blocks := strings.Split(strings.TrimSpace(text), "\n\n")

	var cues []Cue
	for _, block := range blocks {
		lines := blockLines(block)
		if len(lines) < 3 {
			continue
		}

		m := timeLineRe.FindStringSubmatch(lines[1])
		if m == nil {
			log.Printf("[SRT] skipping block with bad time line: %q", lines[1])
			continue
		}

		start, err1 := ParseTime(m[1])
		end, err2 := ParseTime(m[2])
		if err1 != nil || err2 != nil {
			log.Printf("[SRT] skipping block with unparsable times: %q", lines[1])
			continue
		}
		if start < 0 || end <= start {
			log.Printf("[SRT] skipping cue with invalid span %.3f --> %.3f", start, end)
			continue
		}

		cues = append(cues, Cue{
			Start: start,
			End:   end,
			Text:  strings.Join(lines[2:], "\n"),
		})
	}
	return cues, nil
}

func blockLines(block string) []string {
	raw := strings.Split(block, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimRight(l, " \t"); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// ParseTime converts "HH:MM:SS,mmm" into seconds.
func ParseTime(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("bad srt time %q", s)
	}
	secParts := strings.Split(parts[2], ",")
	if len(secParts) != 2 {
		return 0, fmt.Errorf("bad srt time %q", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("bad srt time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("bad srt time %q", s)
	}
	sec, err := strconv.Atoi(secParts[0])
	if err != nil {
		return 0, fmt.Errorf("bad srt time %q", s)
	}
	ms, err := strconv.Atoi(secParts[1])
	if err != nil {
		return 0, fmt.Errorf("bad srt time %q", s)
	}

	return float64(h)*3600 + float64(m)*60 + float64(sec) + float64(ms)/1000, nil
}

// FormatTime renders seconds as "HH:MM:SS,mmm". Milliseconds are
// truncated, not rounded, so a cue never spills past its boundary.
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	ms := int(seconds*1000) % 1000
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// WriteTrack serializes cues as an SRT document with sequence numbers
// starting at 1.
func WriteTrack(w io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(w)
	for i, cue := range cues {
		fmt.Fprintf(bw, "%d\n", i+1)
		fmt.Fprintf(bw, "%s --> %s\n", FormatTime(cue.Start), FormatTime(cue.End))
		fmt.Fprintf(bw, "%s\n\n", cue.Text)
	}
	return bw.Flush()
}
