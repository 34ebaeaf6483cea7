// Package phone normalizes phone numbers and expands them into the set of
// representations that can denote the same line.
//
// Lookups are two-phase: Variations and Suffix build a broad candidate
// filter for storage queries, and Match is the strict check every candidate
// must pass before it is accepted.
package phone

import "strings"

// SuffixDigits is how many trailing digits the broad lookup filter compares.
const SuffixDigits = 7

// CountryCode is one calling code the matcher knows how to strip.
//
// NationalLength, when non-zero, is the exact number of digits the national
// part must have for an unsigned number (no leading '+') to be read as
// code+national. Signed numbers always have the code stripped.
type CountryCode struct {
	Code           string `yaml:"code"`
	NationalLength int    `yaml:"national_length"`
}

// DefaultCountryCodes covers Italy and Spain.
var DefaultCountryCodes = []CountryCode{
	{Code: "39"},
	{Code: "34", NationalLength: 9},
}

// Matcher expands numbers using a fixed country code table. The zero value
// knows no country codes; use NewMatcher or Default.
type Matcher struct {
	codes []CountryCode
}

func NewMatcher(codes []CountryCode) *Matcher {
	cp := make([]CountryCode, 0, len(codes))
	for _, c := range codes {
		c.Code = strings.TrimPrefix(strings.TrimSpace(c.Code), "+")
		if c.Code == "" {
			continue
		}
		cp = append(cp, c)
	}
	return &Matcher{codes: cp}
}

var defaultMatcher = NewMatcher(DefaultCountryCodes)

// Default returns the matcher built from DefaultCountryCodes.
func Default() *Matcher { return defaultMatcher }

// Normalize keeps ASCII digits and a single leading '+'. A '+' survives only
// when no digit precedes it, and a result without digits is "".
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '+' && b.Len() == 0:
			b.WriteByte(c)
		}
	}
	if out := b.String(); out != "+" {
		return out
	}
	return ""
}

// Match is the strict identity check: both sides normalize to the same
// non-empty string.
func Match(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}

// Digits returns only the digits of raw.
func Digits(raw string) string {
	return strings.TrimPrefix(Normalize(raw), "+")
}

// Suffix returns the last n digits of raw, or all of them when there are fewer.
func Suffix(raw string, n int) string {
	d := Digits(raw)
	if n <= 0 || len(d) <= n {
		return d
	}
	return d[len(d)-n:]
}

// E164 returns raw normalized with a leading '+', or "" when it has no digits.
func E164(raw string) string {
	d := Digits(raw)
	if d == "" {
		return ""
	}
	return "+" + d
}

// Variations uses the default country code table.
func Variations(raw string) []string {
	return defaultMatcher.Variations(raw)
}

// FindBest uses the default country code table.
func FindBest(search string, candidates []string) (string, bool) {
	return defaultMatcher.FindBest(search, candidates)
}

// Variations returns the normalized form of raw followed by its equivalent
// spellings. The result has no duplicates and a stable order. Input that
// normalizes to "" yields nil.
func (m *Matcher) Variations(raw string) []string {
	n := Normalize(raw)
	if n == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool, 8)
	add := func(v string) {
		if v == "" || v == "+" || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}

	add(n)
	signed := strings.HasPrefix(n, "+")
	digits := strings.TrimPrefix(n, "+")
	if signed {
		add(digits)
	} else {
		add("+" + n)
	}

	for _, cc := range m.codes {
		if !strings.HasPrefix(digits, cc.Code) {
			continue
		}
		national := digits[len(cc.Code):]
		if national == "" {
			continue
		}
		if !signed && cc.NationalLength > 0 && len(national) != cc.NationalLength {
			continue
		}
		add(national)
		add(cc.Code + national)
		add("+" + cc.Code + national)
	}
	return out
}

// Overlap reports whether a and b share at least one variation.
func (m *Matcher) Overlap(a, b string) bool {
	va := m.Variations(a)
	if len(va) == 0 {
		return false
	}
	set := make(map[string]bool, len(va))
	for _, v := range va {
		set[v] = true
	}
	for _, v := range m.Variations(b) {
		if set[v] {
			return true
		}
	}
	return false
}

// FindBest returns the first candidate that shares a variation with search,
// preserving the candidate's original spelling.
func (m *Matcher) FindBest(search string, candidates []string) (string, bool) {
	if Normalize(search) == "" {
		return "", false
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if m.Overlap(search, c) {
			return c, true
		}
	}
	return "", false
}

// Mask hides every digit but the last four, keeping formatting characters.
// Numbers of four digits or fewer keep only their last digit.
func Mask(raw string) string {
	raw = strings.TrimSpace(raw)
	total := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			total++
		}
	}
	keep := 4
	if total <= 4 {
		keep = 1
	}
	b := []byte(raw)
	seen := 0
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] >= '0' && b[i] <= '9' {
			seen++
			if seen > keep {
				b[i] = '*'
			}
		}
	}
	return string(b)
}
