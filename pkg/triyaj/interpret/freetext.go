package interpret

import (
	"regexp"
	"strconv"
	"strings"
)

// Timing classes produced by ParseTiming.
const (
	TimingMorning = "morning"
	TimingEvening = "evening"
	TimingNight   = "night"
	TimingDay     = "day"
)

// ParsedAnswer holds the structured fields extracted from a free-text answer.
// Absent fields stay unset; parsing never returns an error.
type ParsedAnswer struct {
	DurationDays *int   `json:"duration_days,omitempty"`
	Severity     *int   `json:"severity_0_10,omitempty"`
	Timing       string `json:"timing,omitempty"`
}

// Empty reports whether no sub-parser produced a value.
func (p ParsedAnswer) Empty() bool {
	return p.DurationDays == nil && p.Severity == nil && p.Timing == ""
}

// AnswerSets names the canonicals each sub-parser applies to. The sets come
// from the catalog; a canonical may belong to more than one.
type AnswerSets struct {
	Duration map[string]struct{}
	Severity map[string]struct{}
	Timing   map[string]struct{}
}

var (
	durationDayRe   = regexp.MustCompile(`(\d+)\s*(?:g[uü]n|day)`)
	durationWeekRe  = regexp.MustCompile(`(\d+)\s*(?:hafta|week)`)
	durationMonthRe = regexp.MustCompile(`(\d+)\s*(?:ay|month)`)
	durationBareRe  = regexp.MustCompile(`^(\d{1,3})$`)
	severitySlashRe = regexp.MustCompile(`(\d{1,2})\s*/\s*10`)
	severityBareRe  = regexp.MustCompile(`\b(\d{1,2})\b`)
)

// severityWords maps verbal pain descriptions to the 0-10 scale. Longer
// phrases come first so "çok şiddetli" wins over "şiddetli".
var severityWords = []struct {
	value int
	terms []string
}{
	{9, []string{"çok şiddetli", "dayanılmaz", "very severe", "unbearable"}},
	{8, []string{"şiddetli", "severe", "çok kötü"}},
	{6, []string{"orta", "moderate"}},
	{2, []string{"hafif", "mild"}},
}

var timingWords = []struct {
	class string
	terms []string
}{
	{TimingMorning, []string{"sabah", "morning"}},
	{TimingEvening, []string{"akşam", "evening"}},
	{TimingNight, []string{"gece", "night"}},
	{TimingDay, []string{"gündüz", "daytime"}},
}

// ParseAnswer runs the sub-parsers the canonical is configured for over the
// normalized answer text. Unparsable input yields the zero ParsedAnswer.
func ParseAnswer(canonical, raw string, sets AnswerSets) ParsedAnswer {
	var out ParsedAnswer
	text := Normalize(raw)
	if text == "" {
		return out
	}
	if _, ok := sets.Duration[canonical]; ok {
		if d, found := ParseDurationDays(text); found {
			out.DurationDays = &d
		}
	}
	if _, ok := sets.Severity[canonical]; ok {
		if s, found := ParseSeverity(text); found {
			out.Severity = &s
		}
	}
	if _, ok := sets.Timing[canonical]; ok {
		if c, found := ParseTiming(text); found {
			out.Timing = c
		}
	}
	return out
}

// ParseDurationDays extracts a duration in days from normalized text.
// Weeks convert at x7 (valid below 52), months at x30 (valid up to 24),
// days are valid below 365. A bare small integer counts as days.
func ParseDurationDays(text string) (int, bool) {
	if m := durationDayRe.FindStringSubmatch(text); m != nil {
		if d, err := strconv.Atoi(m[1]); err == nil && d > 0 && d < 365 {
			return d, true
		}
	}
	if m := durationWeekRe.FindStringSubmatch(text); m != nil {
		if w, err := strconv.Atoi(m[1]); err == nil && w > 0 && w < 52 {
			return w * 7, true
		}
	}
	if m := durationMonthRe.FindStringSubmatch(text); m != nil {
		if mo, err := strconv.Atoi(m[1]); err == nil && mo > 0 && mo <= 24 {
			return mo * 30, true
		}
	}
	if m := durationBareRe.FindStringSubmatch(text); m != nil {
		if d, err := strconv.Atoi(m[1]); err == nil && d > 0 && d < 365 {
			return d, true
		}
	}
	return 0, false
}

// ParseSeverity extracts a 0-10 severity: "n/10" first, then verbal
// descriptions, then a bare integer in range.
func ParseSeverity(text string) (int, bool) {
	if m := severitySlashRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 0 && n <= 10 {
			return n, true
		}
	}
	for _, group := range severityWords {
		for _, term := range group.terms {
			if strings.Contains(text, term) {
				return group.value, true
			}
		}
	}
	for _, m := range severityBareRe.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 0 && n <= 10 {
			return n, true
		}
	}
	return 0, false
}

// ParseTiming classifies when the symptom occurs. First matching class wins.
func ParseTiming(text string) (string, bool) {
	for _, group := range timingWords {
		for _, term := range group.terms {
			if strings.Contains(text, term) {
				return group.class, true
			}
		}
	}
	return "", false
}
