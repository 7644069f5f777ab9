package draft

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	wsRe       = regexp.MustCompile(`\s+`)
	pleaseRe   = regexp.MustCompile(`(?i)\b(pls|plz)\b`)
	youRe      = regexp.MustCompile(`(?i)\bu\b`)
	areRe      = regexp.MustCompile(`(?i)\br\b`)
	becauseRe  = regexp.MustCompile(`(?i)\bcuz\b|\bcoz\b|\bcaus?e\b`)
	punctRe    = regexp.MustCompile(`\s*([,.;:!?])\s*`)
	sentenceRe = regexp.MustCompile(`([.!?])`)
)

// NormalizeText tidies a citizen-typed description: collapses whitespace,
// expands common chat abbreviations, fixes punctuation spacing and
// capitalizes sentences.
func NormalizeText(s string) string {
	out := wsRe.ReplaceAllString(s, " ")
	out = strings.TrimSpace(out)
	out = pleaseRe.ReplaceAllString(out, "please")
	out = youRe.ReplaceAllString(out, "you")
	out = areRe.ReplaceAllString(out, "are")
	out = becauseRe.ReplaceAllString(out, "because")
	out = punctRe.ReplaceAllString(out, "$1 ")
	out = strings.TrimSpace(wsRe.ReplaceAllString(out, " "))

	parts := sentenceRe.Split(out, -1)
	puncts := sentenceRe.FindAllString(out, -1)

	var sentences []string
	for i, part := range parts {
		t := strings.TrimSpace(part)
		if t == "" {
			continue
		}
		runes := []rune(t)
		runes[0] = unicode.ToUpper(runes[0])
		sentence := string(runes)
		if i < len(puncts) {
			sentence += puncts[i]
		}
		sentences = append(sentences, sentence)
	}
	return strings.Join(sentences, " ")
}
