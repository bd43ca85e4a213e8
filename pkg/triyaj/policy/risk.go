package policy

import (
	"math"
	"strings"
)

// Risk levels and their advice text. Reasons and advice are deliberately
// ASCII-folded Turkish so they survive every downstream channel unchanged.
const (
	RiskHigh   = "HIGH"
	RiskMedium = "MEDIUM"
	RiskLow    = "LOW"

	adviceHigh   = "Bugun bir saglik kurulusuna basvurmaniz onerilir. Semptomlar artarsa beklemeyin."
	adviceMedium = "Bugun veya en kisa surede kontrol planlamak uygun olabilir. Semptomlar artarsa bugun basvurun."
	adviceLow    = "Semptomlar artarsa, yeni sikayet eklenirse veya 48 saat icinde duzelmezse kontrol onerilir."
)

const (
	riskHighBand         = 0.70
	riskMediumBand       = 0.40
	defaultConfFallback  = 0.25
	maxRiskReasons       = 4
	lowConfidenceCeiling = 0.35
	longDurationDays     = 14
	mediumDurationDays   = 7
	shortDurationDays    = 2
	infantAgeCeiling     = 2
	elderlyAgeFloor      = 65
)

// RiskInput gathers the session signals the stratifier weighs.
type RiskInput struct {
	Canonicals   []string
	Confidence   float64
	SameDay      bool
	DurationDays *int
	Age          *int
	Pregnant     bool
}

// RiskReport is the deterministic risk outcome attached to RESULT payloads.
type RiskReport struct {
	Level   string   `json:"level"`
	Score   float64  `json:"score_0_1"`
	Reasons []string `json:"reasons"`
	Advice  string   `json:"advice"`
}

// Risk computes the additive risk score: low confidence, an active same-day
// recommendation, symptom duration, age extremes, pregnancy and configured
// high/medium-risk symptom signals each contribute a fixed delta. The final
// score clamps to [0,1] and buckets into HIGH/MEDIUM/LOW.
func (p *Policy) Risk(in RiskInput) RiskReport {
	var reasons []string
	score := 0.0

	conf := clamp01(in.Confidence)
	high := p.cat.Risk.High
	medium := p.cat.Risk.Medium

	if conf < lowConfidenceCeiling {
		score += 0.25
		reasons = append(reasons, "Belirsizlik yuksek (dusuk confidence)")
	}

	if in.SameDay && mediumSameDayCounts(medium.SameDayIfTrue) {
		score += 0.35
		reasons = append(reasons, "Same-day kontrol onerisi aktif")
	}

	if in.DurationDays != nil {
		switch d := *in.DurationDays; {
		case d >= longDurationDays:
			score += 0.30
			reasons = append(reasons, "Semptom suresi 2 haftayi gecti")
		case d >= mediumDurationDays:
			score += 0.20
			reasons = append(reasons, "Semptom suresi 1 haftayi gecti")
		case d <= shortDurationDays:
			score -= 0.05
			reasons = append(reasons, "Semptom suresi kisa (<=2 gun)")
		}
	}

	if in.Age != nil {
		switch a := *in.Age; {
		case a <= infantAgeCeiling:
			score += 0.25
			reasons = append(reasons, "Cok kucuk yas (<=2)")
		case a >= elderlyAgeFloor:
			score += 0.20
			reasons = append(reasons, "Ileri yas (>=65)")
		}
	}

	if in.Pregnant {
		score += 0.20
		reasons = append(reasons, "Gebelik durumu (ek dikkat)")
	}

	highHit := len(high.CanonicalsAny) > 0 && anyRiskToken(in.Canonicals, high.CanonicalsAny)
	mediumHit := len(medium.CanonicalsAny) > 0 && anyRiskToken(in.Canonicals, medium.CanonicalsAny)

	if highHit && (!high.SameDayRequired || in.SameDay) {
		score += 0.55
		reasons = append(reasons, "Yuksek risk sinyali iceren belirti(ler)")
	}
	if mediumHit {
		score += 0.25
		reasons = append(reasons, "Orta risk sinyali iceren belirti(ler)")
	}

	confFallback := high.MinConfidenceFallback
	if confFallback == 0 {
		confFallback = defaultConfFallback
	}
	if conf <= confFallback && (highHit || mediumHit) {
		score += 0.20
		reasons = append(reasons, "Dusuk confidence + riskli belirti kombinasyonu")
	}

	if in.DurationDays != nil && *in.DurationDays <= shortDurationDays {
		reasons = append(reasons, "2 gunden kisa sureli semptom")
	}
	if !in.SameDay {
		reasons = append(reasons, "Same-day zorunlulugu saptanmadi")
	}
	reasons = append(reasons, "Acil belirti saptanmadi")

	score = clamp01(score)

	level := RiskLow
	advice := adviceLow
	switch {
	case score >= riskHighBand:
		level, advice = RiskHigh, adviceHigh
	case score >= riskMediumBand:
		level, advice = RiskMedium, adviceMedium
	}

	return RiskReport{
		Level:   level,
		Score:   math.Round(score*100) / 100,
		Reasons: dedupeReasons(reasons, maxRiskReasons),
		Advice:  advice,
	}
}

func mediumSameDayCounts(flag *bool) bool {
	return flag == nil || *flag
}

func dedupeReasons(reasons []string, limit int) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, len(reasons))
	for _, r := range reasons {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

var riskAsciiFold = strings.NewReplacer(
	"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
	"Ç", "c", "Ğ", "g", "İ", "i", "Ö", "o", "Ş", "s", "Ü", "u",
)

var riskSeparators = strings.NewReplacer("-", "_", "/", "_", " ", "_")

// riskToken folds a canonical to the ASCII snake_case form the risk rule
// lists are written in.
func riskToken(v string) string {
	t := strings.ToLower(riskAsciiFold.Replace(strings.TrimSpace(v)))
	t = riskSeparators.Replace(t)
	for strings.Contains(t, "__") {
		t = strings.ReplaceAll(t, "__", "_")
	}
	return strings.Trim(t, "_")
}

func anyRiskToken(canonicals, targets []string) bool {
	if len(canonicals) == 0 || len(targets) == 0 {
		return false
	}
	cset := make(map[string]struct{}, len(canonicals))
	for _, c := range canonicals {
		if t := riskToken(c); t != "" {
			cset[t] = struct{}{}
		}
	}
	for _, t := range targets {
		if n := riskToken(t); n != "" {
			if _, ok := cset[n]; ok {
				return true
			}
		}
	}
	return false
}
