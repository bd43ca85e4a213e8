package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/cognicore/triyaj/pkg/triyaj/envelope"
)

// renderEnvelope prints one turn response in a terminal-friendly layout.
// Payload texts come from the engine already localized; only the chrome
// lives here.
func renderEnvelope(w io.Writer, env envelope.Envelope) {
	switch p := env.Payload.(type) {
	case envelope.QuestionPayload:
		renderQuestion(w, p, env.Meta)
	case envelope.ResultPayload:
		renderResult(w, p, env.Meta)
	case envelope.EmergencyPayload:
		renderEmergency(w, p)
	case envelope.SameDayPayload:
		renderSameDay(w, p)
	case envelope.ErrorPayload:
		renderError(w, p)
	default:
		fmt.Fprintf(w, "(%s)\n", env.Type)
	}
}

func renderQuestion(w io.Writer, p envelope.QuestionPayload, m envelope.Meta) {
	if m.SameDay != nil {
		fmt.Fprintf(w, "\nNot: %s\n", m.SameDay.Message)
	}
	fmt.Fprintf(w, "\nSoru: %s\n", p.QuestionTR)
	if len(p.ChoicesTR) > 0 {
		fmt.Fprintf(w, "  [%s]\n", strings.Join(p.ChoicesTR, " / "))
	}
	if p.WhyAskingTR != "" {
		fmt.Fprintf(w, "  Neden soruyorum: %s\n", p.WhyAskingTR)
	}
}

func renderResult(w io.Writer, p envelope.ResultPayload, m envelope.Meta) {
	fmt.Fprintln(w, "\n--- Sonuç ---")
	fmt.Fprintf(w, "Önerilen bölüm: %s (aciliyet: %s)\n", p.RecommendedSpecialty.NameTR, p.Urgency)

	if len(p.TopConditions) > 0 {
		fmt.Fprintln(w, "Olası durumlar:")
		for _, c := range p.TopConditions {
			fmt.Fprintf(w, "  • %s (%.2f)\n", c.DiseaseLabel, c.Score)
		}
	}

	fmt.Fprintf(w, "Güven: %s (%.2f)\n", p.ConfidenceLabelTR, p.Confidence)
	if p.ConfidenceExplainTR != "" {
		fmt.Fprintf(w, "  %s\n", p.ConfidenceExplainTR)
	}

	if len(p.WhySpecialtyTR) > 0 {
		fmt.Fprintln(w, "Neden bu bölüm:")
		for _, line := range p.WhySpecialtyTR {
			fmt.Fprintf(w, "  • %s\n", line)
		}
	}

	if len(p.DoctorSummaryTR) > 0 {
		fmt.Fprintln(w, "Doktora söyleyebilecekleriniz:")
		for _, line := range p.DoctorSummaryTR {
			fmt.Fprintf(w, "  • %s\n", line)
		}
	}

	if len(p.SafetyNotesTR) > 0 {
		fmt.Fprintln(w, "Güvenlik notları:")
		for _, line := range p.SafetyNotesTR {
			fmt.Fprintf(w, "  • %s\n", line)
		}
	}

	if m.SameDay != nil {
		fmt.Fprintf(w, "Not: %s\n", m.SameDay.Message)
	}

	if m.Facilities != nil && len(m.Facilities.Items) > 0 {
		fmt.Fprintf(w, "Yakındaki kuruluşlar (%s):\n", m.Facilities.City)
		for _, it := range m.Facilities.Items {
			if it.DistanceKM != nil {
				fmt.Fprintf(w, "  • %s, %s (%.1f km)\n", it.Name, it.Address, *it.DistanceKM)
			} else {
				fmt.Fprintf(w, "  • %s, %s\n", it.Name, it.Address)
			}
		}
		if m.Facilities.Disclaimer != "" {
			fmt.Fprintf(w, "  %s\n", m.Facilities.Disclaimer)
		}
	}

	if m.DisclaimerTR != "" {
		fmt.Fprintf(w, "\n%s\n", m.DisclaimerTR)
	}
}

func renderEmergency(w io.Writer, p envelope.EmergencyPayload) {
	fmt.Fprintln(w, "\n!!! ACİL !!!")
	fmt.Fprintln(w, p.ReasonTR)
	for _, line := range p.InstructionsTR {
		fmt.Fprintf(w, "  • %s\n", line)
	}
}

func renderSameDay(w io.Writer, p envelope.SameDayPayload) {
	fmt.Fprintln(w, "\n--- Bugün içinde ---")
	fmt.Fprintln(w, p.Message)
	if p.Action != "" {
		fmt.Fprintln(w, p.Action)
	}
}

func renderError(w io.Writer, p envelope.ErrorPayload) {
	fmt.Fprintf(w, "\nHata (%s): %s\n", p.Code, p.MessageTR)
}
