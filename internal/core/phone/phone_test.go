package phone

import (
	"slices"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"spaces", "+39 06 2222 4444", "+390622224444"},
		{"dashes and parens", "(06) 2222-4444", "0622224444"},
		{"dots", "333.222.4444", "3332224444"},
		{"inner plus dropped", "39+06+2222", "39062222"},
		{"double leading plus", "++39 06", "+3906"},
		{"plus after text", "tel: +34 600 000 000", "+34600000000"},
		{"letters only", "unknown", ""},
		{"lone plus", "+", ""},
		{"plus without digits", "a+", ""},
		{"plus and separators", " + - ", ""},
		{"non ascii digits dropped", "٠١٢ 345", "345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"", "+", "+39 06 2222 4444", "++1-800", "a+b+1", "0039 06", " + 3 4 "}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestVariations(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		if got := Variations(""); len(got) != 0 {
			t.Errorf("expected no variations, got %v", got)
		}
		if got := Variations("n/a"); len(got) != 0 {
			t.Errorf("expected no variations for digitless input, got %v", got)
		}
	})

	t.Run("italian with plus", func(t *testing.T) {
		got := Variations("+39 06 2222 4444")
		for _, want := range []string{"+390622224444", "390622224444", "0622224444"} {
			if !slices.Contains(got, want) {
				t.Errorf("expected %q in %v", want, got)
			}
		}
		if len(got) != 3 {
			t.Errorf("expected 3 distinct variations, got %v", got)
		}
	})

	t.Run("italian without plus", func(t *testing.T) {
		got := Variations("39 06 2222 4444")
		for _, want := range []string{"390622224444", "+390622224444", "0622224444"} {
			if !slices.Contains(got, want) {
				t.Errorf("expected %q in %v", want, got)
			}
		}
	})

	t.Run("national number toggles plus only", func(t *testing.T) {
		got := Variations("06 2222 4444")
		want := []string{"0622224444", "+0622224444"}
		if !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("spanish national length enforced without plus", func(t *testing.T) {
		got := Variations("34600123456")
		if !slices.Contains(got, "600123456") {
			t.Errorf("expected national form in %v", got)
		}
		short := Variations("3460012")
		if slices.Contains(short, "60012") {
			t.Errorf("unsigned number with wrong national length must not be stripped: %v", short)
		}
		signed := Variations("+3460012")
		if !slices.Contains(signed, "60012") {
			t.Errorf("signed number must always be stripped: %v", signed)
		}
	})

	t.Run("custom table", func(t *testing.T) {
		m := NewMatcher([]CountryCode{{Code: "+44", NationalLength: 10}})
		got := m.Variations("+44 20 7946 0000")
		if !slices.Contains(got, "2079460000") {
			t.Errorf("expected UK national form in %v", got)
		}
		if slices.Contains(m.Variations("+39 06 2222 4444"), "0622224444") {
			t.Errorf("matcher without +39 must not strip it")
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		a := Variations("+34 600 123 456")
		b := Variations("+34 600 123 456")
		if !slices.Equal(a, b) {
			t.Errorf("variations differ between calls: %v vs %v", a, b)
		}
	})
}

func TestVariations_Reflexive(t *testing.T) {
	inputs := []string{"1", "+1", "+39 06 2222 4444", "0622224444", "34 600 123 456", "(555) 010-9999"}
	for _, in := range inputs {
		if v := Variations(in); !slices.Contains(v, Normalize(in)) {
			t.Errorf("Normalize(%q) missing from its own variations %v", in, v)
		}
	}

	// Input with no digits normalizes to "" and has no variations.
	for _, in := range []string{"+", "a+", "++"} {
		if n, v := Normalize(in), Variations(in); n != "" || len(v) != 0 {
			t.Errorf("Normalize(%q) = %q with variations %v, want empty", in, n, v)
		}
		if Match(in, in) {
			t.Errorf("Match(%q, %q) should be false without digits", in, in)
		}
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"+39 06 2222 4444", "+390622224444", true},
		{"+39 06 2222 4444", "0622224444", false},
		{"06-2222-4444", "06 2222 4444", true},
		{"", "", false},
		{"abc", "def", false},
		{"+390622224444", "390622224444", false},
	}

	for _, tt := range tests {
		if got := Match(tt.a, tt.b); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if Match(tt.a, tt.b) != Match(tt.b, tt.a) {
			t.Errorf("Match not symmetric for %q, %q", tt.a, tt.b)
		}
	}
}

func TestSuffixAndE164(t *testing.T) {
	if got := Suffix("+39 06 2222 4444", SuffixDigits); got != "2224444" {
		t.Errorf("Suffix = %q", got)
	}
	if got := Suffix("12 34", SuffixDigits); got != "1234" {
		t.Errorf("short Suffix = %q", got)
	}
	if got := E164("06 2222 4444"); got != "+0622224444" {
		t.Errorf("E164 = %q", got)
	}
	if got := E164("+39 06"); got != "+3906" {
		t.Errorf("E164 signed = %q", got)
	}
	if got := E164("none"); got != "" {
		t.Errorf("E164 of digitless input = %q", got)
	}
}

func TestFindBest(t *testing.T) {
	list := []string{"", "+34 600 000 000", "39 06 2222 4444", "+39 06 2222 4444"}

	got, ok := FindBest("06 2222 4444", list)
	if !ok || got != "39 06 2222 4444" {
		t.Errorf("FindBest = %q, %v", got, ok)
	}

	if _, ok := FindBest("+1 555 0100", list); ok {
		t.Errorf("expected no match")
	}
	if _, ok := FindBest("", list); ok {
		t.Errorf("empty search must not match")
	}
}

func TestMask(t *testing.T) {
	tests := map[string]string{
		"+39 06 2222 4444": "+** ** **** 4444",
		"1234":             "***4",
		"":                 "",
	}
	for in, want := range tests {
		if got := Mask(in); got != want {
			t.Errorf("Mask(%q) = %q, want %q", in, got, want)
		}
	}
}
