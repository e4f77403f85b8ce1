package textnorm

import (
	"regexp"
	"strings"
)

// Language is the detected primary language of a piece of text.
type Language string

const (
	LanguageBengali Language = "bengali"
	LanguageEnglish Language = "english"
)

// DetectLanguage classifies text as Bengali or English by character counts.
// Bengali wins when characters in the Bengali Unicode block (U+0980-U+09FF)
// exceed 20% of the combined Bengali+Latin letter count. Exactly 20% is
// still English.
func DetectLanguage(text string) Language {
	var bengali, latin int
	for _, r := range text {
		switch {
		case r >= 0x0980 && r <= 0x09FF:
			bengali++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}
	total := bengali + latin
	if total == 0 {
		return LanguageEnglish
	}
	if bengali*5 > total {
		return LanguageBengali
	}
	return LanguageEnglish
}

var superscripts = map[byte]string{
	'0': "⁰", '1': "¹", '2': "²", '3': "³", '4': "⁴",
	'5': "⁵", '6': "⁶", '7': "⁷", '8': "⁸", '9': "⁹",
}

var subscripts = map[byte]string{
	'0': "₀", '1': "₁", '2': "₂", '3': "₃", '4': "₄",
	'5': "₅", '6': "₆", '7': "₇", '8': "₈", '9': "₉",
}

var (
	// Parenthesized powers must run first so (a+b)^2 is not re-consumed
	// by the bare-variable rule.
	reParenPower    = regexp.MustCompile(`(\([^()]+\))\^([0-9])`)
	reVarPower      = regexp.MustCompile(`([A-Za-z])\^([0-9])`)
	reNumPower      = regexp.MustCompile(`([0-9])\^([0-9])`)
	reBarePower     = regexp.MustCompile(`\^([0-9])`)
	reSubscript     = regexp.MustCompile(`_([0-9])`)
)

// Symbol name substitutions, applied after the power/subscript rules.
// Names match on word boundaries so prose ("pieces", "omega-3 recipes")
// is left alone.
var nameRewrites = []struct {
	re *regexp.Regexp
	to string
}{
	{regexp.MustCompile(`\bsqrt\b`), "√"},
	{regexp.MustCompile(`\binfinity\b`), "∞"},
	{regexp.MustCompile(`\balpha\b`), "α"},
	{regexp.MustCompile(`\bbeta\b`), "β"},
	{regexp.MustCompile(`\bgamma\b`), "γ"},
	{regexp.MustCompile(`\bdelta\b`), "δ"},
	{regexp.MustCompile(`\btheta\b`), "θ"},
	{regexp.MustCompile(`\blambda\b`), "λ"},
	{regexp.MustCompile(`\bpi\b`), "π"},
	{regexp.MustCompile(`\bsigma\b`), "σ"},
	{regexp.MustCompile(`\bomega\b`), "ω"},
}

// Operator substitutions, plain literals.
var operatorRewrites = []struct{ from, to string }{
	{"+-", "±"},
	{"<=", "≤"},
	{">=", "≥"},
	{"!=", "≠"},
}

// FormatMath rewrites ASCII math notation into Unicode glyphs. The rewrite
// is idempotent: the output contains none of the pattern tokens, so a second
// pass is a no-op.
func FormatMath(text string) string {
	text = reParenPower.ReplaceAllStringFunc(text, func(m string) string {
		sub := reParenPower.FindStringSubmatch(m)
		return sub[1] + superscripts[sub[2][0]]
	})
	text = reVarPower.ReplaceAllStringFunc(text, func(m string) string {
		sub := reVarPower.FindStringSubmatch(m)
		return sub[1] + superscripts[sub[2][0]]
	})
	text = reNumPower.ReplaceAllStringFunc(text, func(m string) string {
		sub := reNumPower.FindStringSubmatch(m)
		return sub[1] + superscripts[sub[2][0]]
	})
	text = reBarePower.ReplaceAllStringFunc(text, func(m string) string {
		sub := reBarePower.FindStringSubmatch(m)
		return superscripts[sub[1][0]]
	})
	text = reSubscript.ReplaceAllStringFunc(text, func(m string) string {
		sub := reSubscript.FindStringSubmatch(m)
		return subscripts[sub[1][0]]
	})
	for _, r := range nameRewrites {
		text = r.re.ReplaceAllString(text, r.to)
	}
	for _, r := range operatorRewrites {
		text = strings.ReplaceAll(text, r.from, r.to)
	}
	return text
}

var (
	reLonePageNum    = regexp.MustCompile(`\n[0-9]+\n`)
	rePageLabel      = regexp.MustCompile(`Page [0-9]+`)
	reBengaliPage    = regexp.MustCompile(`পৃষ্ঠা [0-9০-৯]+`)
	reRunWhitespace  = regexp.MustCompile(`[ \t]+`)
	reBlankRuns      = regexp.MustCompile(`\n\s*\n+`)
)

// CleanExtractedText strips page-number artifacts common in textbook PDFs
// and collapses whitespace runs.
func CleanExtractedText(text string) string {
	text = reLonePageNum.ReplaceAllString(text, "\n")
	text = rePageLabel.ReplaceAllString(text, "")
	text = reBengaliPage.ReplaceAllString(text, "")
	text = reRunWhitespace.ReplaceAllString(text, " ")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
