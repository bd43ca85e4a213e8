package envelope

import (
	"fmt"
	"strings"
)

// SummaryInput carries the session signals the doctor-ready summary lists.
type SummaryInput struct {
	Canonicals   []string
	Confidence   float64
	StopReason   string
	SameDay      bool
	DurationDays *int
	Age          *int
	Pregnant     bool
}

// Summary builds the ordered doctor-ready lines: detected symptoms, the
// confidence score, the stop reason, an active same-day note, symptom
// duration, then the profile highlights.
func Summary(in SummaryInput) []string {
	var lines []string

	if len(in.Canonicals) > 0 {
		top := in.Canonicals
		if len(top) > 6 {
			top = top[:6]
		}
		lines = append(lines, "Tespit edilen belirtiler: "+strings.Join(top, ", "))
	}

	lines = append(lines, fmt.Sprintf("Guven skoru: %v", round2(in.Confidence)))

	if in.StopReason != "" {
		lines = append(lines, "Durdurma nedeni: "+in.StopReason)
	}
	if in.SameDay {
		lines = append(lines, "Same-day kontrol onerisi aktif")
	}
	if in.DurationDays != nil {
		lines = append(lines, fmt.Sprintf("Semptom suresi: %d gun", *in.DurationDays))
	}

	var profile []string
	if in.Age != nil {
		profile = append(profile, fmt.Sprintf("yas %d", *in.Age))
	}
	if in.Pregnant {
		profile = append(profile, "gebelik")
	}
	if len(profile) > 0 {
		lines = append(lines, "Profil: "+strings.Join(profile, ", "))
	}
	return lines
}
