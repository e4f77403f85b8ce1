package textnorm

import "testing"

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		name string
		text string
		want Language
	}{
		{"pure english", "Newton's first law of motion", LanguageEnglish},
		{"pure bengali", "বাস্তব সংখ্যা", LanguageBengali},
		// 2 Bengali vs 10 Latin is 2/12, under the 0.2 threshold
		{"mostly english with a little bengali", "abcdefghij" + "সং", LanguageEnglish},
		{"empty", "", LanguageEnglish},
		{"digits only", "12345", LanguageEnglish},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectLanguage(tc.text); got != tc.want {
				t.Fatalf("DetectLanguage(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestDetectLanguageBoundary(t *testing.T) {
	// Exactly 20% Bengali (1 of 5) resolves to English.
	text := "abcd" + "ক"
	if got := DetectLanguage(text); got != LanguageEnglish {
		t.Fatalf("exact 0.2 boundary: got %q, want english", got)
	}
	// Just above 20% (2 of 6 ≈ 0.33) resolves to Bengali.
	text = "abcd" + "কখ"
	if got := DetectLanguage(text); got != LanguageBengali {
		t.Fatalf("above 0.2: got %q, want bengali", got)
	}
}

func TestFormatMath(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"(a+b)^2 = a^2 + 2ab + b^2", "(a+b)² = a² + 2ab + b²"},
		{"x^3", "x³"},
		{"10^6", "10⁶"},
		{"^2", "²"},
		{"H_2O", "H₂O"},
		{"sqrt(x)", "√(x)"},
		{"2*pi*r", "2*π*r"},
		{"x >= 0 and x != 1", "x ≥ 0 and x ≠ 1"},
		{"limit as x approaches infinity", "limit as x approaches ∞"},
		{"+-3", "±3"},
		// Symbol names inside ordinary words are left alone.
		{"split it into pieces", "split it into pieces"},
		{"the alphabet has 26 letters", "the alphabet has 26 letters"},
	}
	for _, tc := range cases {
		if got := FormatMath(tc.in); got != tc.want {
			t.Errorf("FormatMath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatMathIdempotent(t *testing.T) {
	inputs := []string{
		"(a+b)^2 = a^2 + 2ab + b^2",
		"E = mc^2",
		"a_1 + a_2 <= a_3",
		"sqrt(pi) +- infinity",
		"plain prose with no math at all",
	}
	for _, in := range inputs {
		once := FormatMath(in)
		twice := FormatMath(once)
		if once != twice {
			t.Errorf("FormatMath not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestCleanExtractedText(t *testing.T) {
	in := "Introduction to motion\n12\nPage 13 continues here\n\n\nspaced   out  "
	got := CleanExtractedText(in)
	if want := "Introduction to motion\n continues here\n\nspaced out"; got != want {
		t.Fatalf("CleanExtractedText = %q, want %q", got, want)
	}
}
