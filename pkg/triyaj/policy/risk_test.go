package policy

import (
	"reflect"
	"testing"

	"github.com/cognicore/triyaj/pkg/triyaj/catalog"
)

func riskCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := &catalog.Catalog{
		Risk: catalog.RiskRules{
			High:   catalog.RiskBand{CanonicalsAny: []string{"gogus_agrisi", "nefes darlığı"}, SameDayRequired: true},
			Medium: catalog.RiskBand{CanonicalsAny: []string{"yuksek_ates"}},
		},
	}
	cat.BuildIndexes()
	return cat
}

func hasReason(rep RiskReport, want string) bool {
	for _, r := range rep.Reasons {
		if r == want {
			return true
		}
	}
	return false
}

func TestRiskToken(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Göğüs Ağrısı", "gogus_agrisi"},
		{" baş  dönmesi ", "bas_donmesi"},
		{"İshal", "ishal"},
		{"kanlı/ishal", "kanli_ishal"},
		{"nefes-darlığı", "nefes_darligi"},
		{"", ""},
	}
	for _, c := range cases {
		if got := riskToken(c.in); got != c.want {
			t.Errorf("riskToken(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRiskHighSignal(t *testing.T) {
	p := New(riskCatalog(t), DefaultOptions())

	rep := p.Risk(RiskInput{Canonicals: []string{"Göğüs Ağrısı"}, Confidence: 0.8, SameDay: true})
	if rep.Level != RiskHigh || rep.Score != 0.9 {
		t.Fatalf("report = %+v, want HIGH 0.9", rep)
	}
	want := []string{
		"Same-day kontrol onerisi aktif",
		"Yuksek risk sinyali iceren belirti(ler)",
		"Acil belirti saptanmadi",
	}
	if !reflect.DeepEqual(rep.Reasons, want) {
		t.Errorf("reasons = %v", rep.Reasons)
	}
	if rep.Advice != adviceHigh {
		t.Errorf("advice = %q", rep.Advice)
	}
}

func TestRiskHighRequiresSameDay(t *testing.T) {
	p := New(riskCatalog(t), DefaultOptions())

	rep := p.Risk(RiskInput{Canonicals: []string{"göğüs ağrısı"}, Confidence: 0.8})
	if rep.Level != RiskLow || rep.Score != 0 {
		t.Fatalf("report = %+v, want LOW 0", rep)
	}
	want := []string{"Same-day zorunlulugu saptanmadi", "Acil belirti saptanmadi"}
	if !reflect.DeepEqual(rep.Reasons, want) {
		t.Errorf("reasons = %v", rep.Reasons)
	}
	if rep.Advice != adviceLow {
		t.Errorf("advice = %q", rep.Advice)
	}
}

func TestRiskMediumSignal(t *testing.T) {
	p := New(riskCatalog(t), DefaultOptions())

	rep := p.Risk(RiskInput{Canonicals: []string{"yüksek ateş"}, Confidence: 0.3})
	if rep.Level != RiskMedium || rep.Score != 0.5 {
		t.Fatalf("report = %+v, want MEDIUM 0.5", rep)
	}
	want := []string{
		"Belirsizlik yuksek (dusuk confidence)",
		"Orta risk sinyali iceren belirti(ler)",
		"Same-day zorunlulugu saptanmadi",
		"Acil belirti saptanmadi",
	}
	if !reflect.DeepEqual(rep.Reasons, want) {
		t.Errorf("reasons = %v", rep.Reasons)
	}
	if rep.Advice != adviceMedium {
		t.Errorf("advice = %q", rep.Advice)
	}
}

func TestRiskLowConfidenceCombo(t *testing.T) {
	p := New(riskCatalog(t), DefaultOptions())

	rep := p.Risk(RiskInput{Canonicals: []string{"yüksek ateş"}, Confidence: 0.2})
	if rep.Level != RiskHigh || rep.Score != 0.7 {
		t.Fatalf("report = %+v, want HIGH 0.7", rep)
	}
	if !hasReason(rep, "Dusuk confidence + riskli belirti kombinasyonu") {
		t.Errorf("reasons = %v", rep.Reasons)
	}
	// The reason list caps at four, dropping the trailing note.
	if len(rep.Reasons) != 4 || hasReason(rep, "Acil belirti saptanmadi") {
		t.Errorf("reasons = %v", rep.Reasons)
	}
}

func TestRiskDurationBands(t *testing.T) {
	p := New(riskCatalog(t), DefaultOptions())

	rep := p.Risk(RiskInput{Confidence: 0.8, DurationDays: intPtr(14)})
	if rep.Score != 0.3 || !hasReason(rep, "Semptom suresi 2 haftayi gecti") {
		t.Fatalf("two-week report = %+v", rep)
	}

	rep = p.Risk(RiskInput{Confidence: 0.8, DurationDays: intPtr(7)})
	if rep.Score != 0.2 || !hasReason(rep, "Semptom suresi 1 haftayi gecti") {
		t.Fatalf("one-week report = %+v", rep)
	}

	rep = p.Risk(RiskInput{Confidence: 0.8, DurationDays: intPtr(2)})
	if rep.Score != 0 {
		t.Fatalf("short-duration report = %+v, want clamp to 0", rep)
	}
	if !hasReason(rep, "Semptom suresi kisa (<=2 gun)") || !hasReason(rep, "2 gunden kisa sureli semptom") {
		t.Errorf("reasons = %v", rep.Reasons)
	}
}

func TestRiskAgeAndPregnancy(t *testing.T) {
	p := New(riskCatalog(t), DefaultOptions())

	rep := p.Risk(RiskInput{Confidence: 0.8, Age: intPtr(1)})
	if rep.Score != 0.25 || !hasReason(rep, "Cok kucuk yas (<=2)") {
		t.Fatalf("infant report = %+v", rep)
	}

	rep = p.Risk(RiskInput{Confidence: 0.8, Age: intPtr(70), Pregnant: true})
	if rep.Level != RiskMedium || rep.Score != 0.4 {
		t.Fatalf("report = %+v, want MEDIUM 0.4", rep)
	}
	if !hasReason(rep, "Ileri yas (>=65)") || !hasReason(rep, "Gebelik durumu (ek dikkat)") {
		t.Errorf("reasons = %v", rep.Reasons)
	}

	rep = p.Risk(RiskInput{Confidence: 0.8, Age: intPtr(30)})
	if rep.Score != 0 {
		t.Fatalf("adult report = %+v, want 0", rep)
	}
}

func TestRiskScoreRounding(t *testing.T) {
	p := New(riskCatalog(t), DefaultOptions())

	rep := p.Risk(RiskInput{Confidence: 0.2, SameDay: true, Pregnant: true})
	if rep.Score != 0.8 {
		t.Fatalf("score = %v, want exactly 0.8", rep.Score)
	}
	if rep.Level != RiskHigh {
		t.Errorf("level = %q", rep.Level)
	}
}

func TestRiskClampAndFallbackOverride(t *testing.T) {
	cat := riskCatalog(t)
	cat.Risk.High.MinConfidenceFallback = 0.5
	p := New(cat, DefaultOptions())

	rep := p.Risk(RiskInput{Canonicals: []string{"göğüs ağrısı"}, Confidence: 0.4, SameDay: true})
	if rep.Level != RiskHigh || rep.Score != 1.0 {
		t.Fatalf("report = %+v, want HIGH 1.0", rep)
	}
	want := []string{
		"Same-day kontrol onerisi aktif",
		"Yuksek risk sinyali iceren belirti(ler)",
		"Dusuk confidence + riskli belirti kombinasyonu",
		"Acil belirti saptanmadi",
	}
	if !reflect.DeepEqual(rep.Reasons, want) {
		t.Errorf("reasons = %v", rep.Reasons)
	}
}

func TestRiskMediumSameDayFlagOff(t *testing.T) {
	cat := riskCatalog(t)
	cat.Risk.Medium.SameDayIfTrue = boolPtr(false)
	p := New(cat, DefaultOptions())

	rep := p.Risk(RiskInput{Confidence: 0.8, SameDay: true})
	if rep.Score != 0 || hasReason(rep, "Same-day kontrol onerisi aktif") {
		t.Fatalf("report = %+v, want no same-day weight", rep)
	}
	if !reflect.DeepEqual(rep.Reasons, []string{"Acil belirti saptanmadi"}) {
		t.Errorf("reasons = %v", rep.Reasons)
	}
}

func TestRiskEmptyBands(t *testing.T) {
	cat := &catalog.Catalog{}
	cat.BuildIndexes()
	p := New(cat, DefaultOptions())

	rep := p.Risk(RiskInput{Canonicals: []string{"göğüs ağrısı"}, Confidence: 0.2})
	if rep.Level != RiskLow || rep.Score != 0.25 {
		t.Fatalf("report = %+v, want LOW 0.25", rep)
	}
	if hasReason(rep, "Yuksek risk sinyali iceren belirti(ler)") {
		t.Errorf("reasons = %v", rep.Reasons)
	}
}
