// Package textsplit segments raw text into sentences by language-aware
// terminator sets. Terminators stay attached to the sentence they close.
package textsplit

import (
	"regexp"
	"strings"
)

var (
	// CJK full stops and exclamation/question marks.
	cjkPattern = regexp.MustCompile(`[^。！？]+[。！？]+|[^。！？]+$`)

	// Korean mixes CJK and ASCII terminators.
	koPattern = regexp.MustCompile(`[^.!?。！？]+[.!?。！？]+|[^.!?。！？]+$`)

	defaultPattern = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)
)

// Split breaks text into trimmed, non-empty sentences. lang selects the
// terminator set: "ja" and "zh" use CJK punctuation, "ko" uses the union
// of CJK and ASCII, anything else uses ASCII. Text with no terminator at
// all comes back as a single sentence.
func Split(text, lang string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var pattern *regexp.Regexp
	switch normalizeLang(lang) {
	case "ja", "zh":
		pattern = cjkPattern
	case "ko":
		pattern = koPattern
	default:
		pattern = defaultPattern
	}

	matches := pattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}

	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		s := strings.TrimSpace(m)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return nil
	}
	return sentences
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	// Accept region-qualified tags like "zh-CN" or "ja_JP".
	for _, sep := range []string{"-", "_"} {
		if i := strings.Index(lang, sep); i > 0 {
			lang = lang[:i]
		}
	}
	return lang
}
