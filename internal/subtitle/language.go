package subtitle

import (
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// DetectLanguage guesses the language of a transcript by majority vote over
// per-cue detection. Upstream auto-generated tracks are occasionally
// mislabeled or carry no usable code, so callers use this as a fallback
// label. Returns language.Und for an empty transcript.
func DetectLanguage(cues []Cue) language.Tag {
	if len(cues) == 0 {
		return language.Und
	}

	counts := make(map[string]int)
	for _, cue := range cues {
		if cue.Text == "" {
			continue
		}
		iso := whatlanggo.DetectLang(cue.Text).Iso6391()
		counts[iso]++
	}

	var topLang string
	var topCount int
	for lang, count := range counts {
		if count > topCount {
			topLang = lang
			topCount = count
		}
	}
	if topLang == "" {
		return language.Und
	}
	return language.Make(topLang)
}
