package envelope

import (
	"reflect"
	"testing"

	"github.com/cognicore/triyaj/pkg/triyaj/candidate"
	"github.com/cognicore/triyaj/pkg/triyaj/policy"
	"github.com/cognicore/triyaj/pkg/triyaj/question"
)

func TestUrgencyLadder(t *testing.T) {
	cases := []struct {
		sameDay, emergency bool
		risk               string
		want               string
	}{
		{true, true, policy.RiskHigh, UrgencyERNow},
		{false, true, policy.RiskHigh, UrgencyERNow},
		{true, false, policy.RiskLow, UrgencySameDay},
		{false, true, policy.RiskLow, UrgencySameDay},
		{false, false, policy.RiskHigh, UrgencySameDay},
		{false, false, policy.RiskMedium, UrgencyWithin3},
		{false, false, policy.RiskLow, UrgencyRoutine},
	}
	for _, c := range cases {
		if got := Urgency(c.sameDay, c.emergency, c.risk); got != c.want {
			t.Errorf("Urgency(%v, %v, %q) = %q, want %q", c.sameDay, c.emergency, c.risk, got, c.want)
		}
	}
}

func TestConditions(t *testing.T) {
	cands := []candidate.Candidate{
		{DiseaseLabel: "Migraine", Score: 0.5134},
		{DiseaseLabel: "Flu", Score: 0.25},
		{DiseaseLabel: "Common Cold", Score: 0.1},
		{DiseaseLabel: "GERD", Score: 0.05},
	}

	got := Conditions(cands, 3)
	want := []Condition{
		{DiseaseLabel: "Migraine", Score: 0.51},
		{DiseaseLabel: "Flu", Score: 0.25},
		{DiseaseLabel: "Common Cold", Score: 0.1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("conditions = %v", got)
	}

	if got := Conditions(cands, 0); len(got) != 4 {
		t.Errorf("unlimited conditions = %v", got)
	}
	if got := Conditions(nil, 3); len(got) != 0 {
		t.Errorf("empty conditions = %v", got)
	}
}

func TestBuilderQuestion(t *testing.T) {
	b := NewBuilder("tr-TR")
	q := &question.Question{
		Source:     question.SourceDiscriminative,
		QuestionID: "q_ateş",
		Canonical:  "ateş",
		Text:       "Ateşin var mı?",
		AnswerType: "yes_no",
		Choices:    []string{"Evet", "Hayır"},
	}
	sd := &policy.SameDayMatch{RuleID: "sd_fever", Message: "Bugün kontrol önerilir.", Action: "see_today"}

	env := b.Question("ses_1", 2, q, sd)
	if env.Type != TypeQuestion || env.SessionID != "ses_1" || env.TurnIndex != 2 {
		t.Fatalf("envelope = %+v", env)
	}
	p, ok := env.Payload.(QuestionPayload)
	if !ok {
		t.Fatalf("payload = %T", env.Payload)
	}
	if p.QuestionID != "q_ateş" || p.Canonical != "ateş" || p.QuestionTR != "Ateşin var mı?" {
		t.Errorf("payload = %+v", p)
	}
	if p.AnswerType != "yes_no" || len(p.ChoicesTR) != 2 {
		t.Errorf("payload = %+v", p)
	}
	if env.Meta.DisclaimerTR != "Bu uygulama tanı koymaz; bilgilendirme ve yönlendirme amaçlıdır." {
		t.Errorf("disclaimer = %q", env.Meta.DisclaimerTR)
	}
	if env.Meta.SameDay == nil || env.Meta.SameDay.RuleID != "sd_fever" {
		t.Errorf("meta same-day = %+v", env.Meta.SameDay)
	}
}

func TestBuilderResult(t *testing.T) {
	b := NewBuilder("tr-TR")
	env := b.Result("ses_1", 4, ResultInput{
		Urgency:       UrgencyRoutine,
		SpecialtyID:   "neurology",
		SpecialtyName: "Nöroloji",
		Conditions:    []Condition{{DiseaseLabel: "Migraine", Score: 0.52}},
		SummaryTR:     []string{"Tespit edilen belirtiler: baş ağrısı"},
		WhyTR:         []string{"Metinden eşleşen belirti: “baş ağrısı” (+3.0)"},
		Confidence:    0.734,
		StopReason:    "high_confidence",
		Risk:          policy.RiskReport{Level: policy.RiskLow, Score: 0.1, Advice: "izle"},
	})

	if env.Type != TypeResult || env.TurnIndex != 4 {
		t.Fatalf("envelope = %+v", env)
	}
	p, ok := env.Payload.(ResultPayload)
	if !ok {
		t.Fatalf("payload = %T", env.Payload)
	}
	if p.RecommendedSpecialty.ID != "neurology" || p.RecommendedSpecialty.NameTR != "Nöroloji" {
		t.Errorf("specialty = %+v", p.RecommendedSpecialty)
	}
	if p.Confidence != 0.73 {
		t.Errorf("confidence = %v, want rounded 0.73", p.Confidence)
	}
	if p.ConfidenceLabelTR != "Yüksek" {
		t.Errorf("label = %q", p.ConfidenceLabelTR)
	}
	if p.ConfidenceExplainTR != "Olası durumlar arasında net bir ayrım var ve önerilen branş belirgin." {
		t.Errorf("explain = %q", p.ConfidenceExplainTR)
	}
	if len(p.SafetyNotesTR) != 2 {
		t.Errorf("safety notes = %v", p.SafetyNotesTR)
	}
	if p.StopReason != "high_confidence" || p.Risk.Level != policy.RiskLow {
		t.Errorf("payload = %+v", p)
	}
}

func TestBuilderEmergency(t *testing.T) {
	b := NewBuilder("tr-TR")
	env := b.Emergency("ses_1", 1, &policy.EmergencyMatch{
		RuleID:       "er_chest",
		Reason:       "Göğüs ağrısı acil değerlendirme gerektirir.",
		Instructions: []string{"112'yi arayın."},
	})

	p, ok := env.Payload.(EmergencyPayload)
	if !ok || env.Type != TypeEmergency {
		t.Fatalf("envelope = %+v", env)
	}
	if p.Urgency != UrgencyEmergency || p.ReasonTR == "" || len(p.InstructionsTR) != 1 {
		t.Errorf("payload = %+v", p)
	}
}

func TestBuilderSameDay(t *testing.T) {
	b := NewBuilder("tr-TR")
	env := b.SameDay("ses_1", 3, &policy.SameDayMatch{
		RuleID: "sd_fever", Message: "Bugün kontrol önerilir.", Action: "see_today",
	})

	p, ok := env.Payload.(SameDayPayload)
	if !ok || env.Type != TypeSameDay {
		t.Fatalf("envelope = %+v", env)
	}
	if p.RuleID != "sd_fever" || p.Action != "see_today" {
		t.Errorf("payload = %+v", p)
	}
}

func TestBuilderError(t *testing.T) {
	b := NewBuilder("tr-TR")

	env := b.Error("ses_1", 0, CodeEmptyInput, "", true)
	p := env.Payload.(ErrorPayload)
	if p.MessageTR != "Semptomunu biraz daha tarif eder misin?" || !p.Retryable {
		t.Errorf("payload = %+v", p)
	}

	p = b.Error("ses_1", 5, CodeBadState, "", false).Payload.(ErrorPayload)
	if p.MessageTR != "Bu oturum zaten tamamlandı." || p.Retryable {
		t.Errorf("payload = %+v", p)
	}

	p = b.Error("ses_1", 0, CodeInternal, "", true).Payload.(ErrorPayload)
	if p.MessageTR != "Bir hata oluştu." {
		t.Errorf("payload = %+v", p)
	}

	p = b.Error("ses_1", 0, CodeBadState, "Aynı anda tek istek işlenebilir.", false).Payload.(ErrorPayload)
	if p.MessageTR != "Aynı anda tek istek işlenebilir." {
		t.Errorf("override message = %q", p.MessageTR)
	}
}

func TestBuilderLocale(t *testing.T) {
	b := NewBuilder("en-US")
	env := b.Error("ses_1", 0, CodeEmptyInput, "", true)
	p := env.Payload.(ErrorPayload)
	if p.MessageTR != "Please describe your symptoms a bit more." {
		t.Errorf("en message = %q", p.MessageTR)
	}
	if env.Meta.DisclaimerTR != "This application does not diagnose; it informs and routes." {
		t.Errorf("en disclaimer = %q", env.Meta.DisclaimerTR)
	}
}
