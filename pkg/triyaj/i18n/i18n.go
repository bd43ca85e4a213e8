// Package i18n resolves fixed user-facing text by locale. Question and
// choice variants live in the catalog bank; this table only carries the
// envelope strings.
package i18n

import "strings"

// DefaultLocale is the table every lookup falls back to.
const DefaultLocale = "tr-TR"

// Message keys.
const (
	KeyEmptyInput      = "EMPTY_INPUT"
	KeySessionComplete = "SESSION_COMPLETE"
	KeyConcurrentTurn  = "CONCURRENT_TURN"
	KeyUnknownAnswer   = "UNKNOWN_ANSWER"
	KeyTurnFailed      = "TURN_FAILED"
	KeySafetyNote1     = "safety_note_1"
	KeySafetyNote2     = "safety_note_2"
	KeyRateLimit       = "rate_limit_exceeded"
	KeyErrorInternal   = "error_internal"
	KeyDisclaimer      = "disclaimer"
	KeyFacilityNote    = "facility_disclaimer"
	KeyConfidenceHigh  = "confidence_explain_high"
	KeyConfidenceMid   = "confidence_explain_mid"
	KeyConfidenceLow   = "confidence_explain_low"
)

var messages = map[string]map[string]string{
	"tr-TR": {
		KeyEmptyInput:      "Semptomunu biraz daha tarif eder misin?",
		KeySessionComplete: "Bu oturum zaten tamamlandı.",
		KeyConcurrentTurn:  "Bu oturum için devam eden bir istek var.",
		KeyUnknownAnswer:   "Cevapladığın soru bu oturumda sorulmadı.",
		KeyTurnFailed:      "Bir hata oluştu.",
		KeySafetyNote1:     "Bu bir ön değerlendirmedir, tıbbi teşhis değildir.",
		KeySafetyNote2:     "Şikayetler artarsa veya yeni belirtiler eklenirse doktora başvur.",
		KeyRateLimit:       "Çok fazla istek. Lütfen daha sonra tekrar deneyin.",
		KeyErrorInternal:   "Bir hata oluştu.",
		KeyDisclaimer:      "Bu uygulama tanı koymaz; bilgilendirme ve yönlendirme amaçlıdır.",
		KeyFacilityNote:    "Bu liste bilgilendirme amaclidir. Tibbi yonlendirme degildir.",
		KeyConfidenceHigh:  "Olası durumlar arasında net bir ayrım var ve önerilen branş belirgin.",
		KeyConfidenceMid:   "Birden fazla olasılık var. Doktora giderken özeti göstermen iyi olur.",
		KeyConfidenceLow:   "Belirsizlik yüksek. Semptomlar değişirse değerlendirmeyi yenile.",
	},
	"en-US": {
		KeyEmptyInput:      "Please describe your symptoms a bit more.",
		KeySessionComplete: "This session is already complete.",
		KeyConcurrentTurn:  "Another request is already running for this session.",
		KeyUnknownAnswer:   "The answered question was never asked in this session.",
		KeyTurnFailed:      "An error occurred.",
		KeySafetyNote1:     "This is a preliminary assessment, not a medical diagnosis.",
		KeySafetyNote2:     "See a doctor if symptoms worsen or new symptoms appear.",
		KeyRateLimit:       "Rate limit exceeded",
		KeyErrorInternal:   "An error occurred.",
		KeyDisclaimer:      "This application does not diagnose; it informs and routes.",
		KeyFacilityNote:    "This list is informational. It is not medical guidance.",
		KeyConfidenceHigh:  "The likely conditions are clearly separated and the suggested specialty stands out.",
		KeyConfidenceMid:   "More than one condition is possible. Showing this summary to your doctor will help.",
		KeyConfidenceLow:   "Uncertainty is high. Reassess if your symptoms change.",
	},
}

// Text resolves a key: the requested locale first, then the default locale,
// then the key itself.
func Text(locale, key string) string {
	loc := strings.TrimSpace(locale)
	if loc == "" {
		loc = DefaultLocale
	}
	if m, ok := messages[loc]; ok {
		if msg, ok := m[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// SafetyNotes returns the two fixed safety lines attached to results.
func SafetyNotes(locale string) []string {
	return []string{Text(locale, KeySafetyNote1), Text(locale, KeySafetyNote2)}
}

// ConfidenceExplain maps a confidence label to its explanation line.
func ConfidenceExplain(locale, label string) string {
	switch label {
	case "Yüksek":
		return Text(locale, KeyConfidenceHigh)
	case "Orta":
		return Text(locale, KeyConfidenceMid)
	default:
		return Text(locale, KeyConfidenceLow)
	}
}
