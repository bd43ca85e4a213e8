package i18n

import "testing"

func TestTextFallbackChain(t *testing.T) {
	if got := Text("tr-TR", KeyEmptyInput); got != "Semptomunu biraz daha tarif eder misin?" {
		t.Errorf("tr text = %q", got)
	}
	if got := Text("en-US", KeyEmptyInput); got != "Please describe your symptoms a bit more." {
		t.Errorf("en text = %q", got)
	}

	// Unknown locales resolve through the default table.
	if got := Text("de-DE", KeySessionComplete); got != "Bu oturum zaten tamamlandı." {
		t.Errorf("unknown locale text = %q", got)
	}
	if got := Text("", KeyTurnFailed); got != "Bir hata oluştu." {
		t.Errorf("empty locale text = %q", got)
	}

	// Unknown keys come back verbatim.
	if got := Text("tr-TR", "no_such_key"); got != "no_such_key" {
		t.Errorf("unknown key = %q", got)
	}
}

func TestSafetyNotes(t *testing.T) {
	notes := SafetyNotes("tr-TR")
	if len(notes) != 2 {
		t.Fatalf("notes = %v", notes)
	}
	if notes[0] != "Bu bir ön değerlendirmedir, tıbbi teşhis değildir." {
		t.Errorf("note 1 = %q", notes[0])
	}
	if notes[1] != "Şikayetler artarsa veya yeni belirtiler eklenirse doktora başvur." {
		t.Errorf("note 2 = %q", notes[1])
	}

	en := SafetyNotes("en-US")
	if en[0] != "This is a preliminary assessment, not a medical diagnosis." {
		t.Errorf("en note 1 = %q", en[0])
	}
}

func TestConfidenceExplain(t *testing.T) {
	if got := ConfidenceExplain("tr-TR", "Yüksek"); got != "Olası durumlar arasında net bir ayrım var ve önerilen branş belirgin." {
		t.Errorf("high = %q", got)
	}
	if got := ConfidenceExplain("tr-TR", "Orta"); got != "Birden fazla olasılık var. Doktora giderken özeti göstermen iyi olur." {
		t.Errorf("mid = %q", got)
	}
	if got := ConfidenceExplain("tr-TR", "Düşük"); got != "Belirsizlik yüksek. Semptomlar değişirse değerlendirmeyi yenile." {
		t.Errorf("low = %q", got)
	}
	if got := ConfidenceExplain("en-US", "Yüksek"); got != "The likely conditions are clearly separated and the suggested specialty stands out." {
		t.Errorf("en high = %q", got)
	}
}
