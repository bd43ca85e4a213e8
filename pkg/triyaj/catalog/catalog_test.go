package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTestCatalog lays down a small but internally consistent catalog.
func writeTestCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		FileSynonyms: `[
			{"canonical": "baş ağrısı", "type": "symptom", "variants": ["başım ağrıyor", "kafam ağrıyor"]},
			{"canonical": "bulantı", "type": "symptom", "variants": ["midem bulanıyor", "bulantım var"]},
			{"canonical": "ateş", "type": "symptom", "variants": ["ateşim var", "yüksek ateş"]}
		]`,
		FileSpecialtyKeywords: `{
			"specialties": [
				{"id": "neurology", "name_tr": "Nöroloji", "keywords": ["baş ağrısı", "bulantı"], "negative_keywords": []},
				{"id": "internal_gi", "name_tr": "Dahiliye", "keywords": ["ateş"], "negative_keywords": ["travma"]}
			],
			"scoring": {"keyword_match_points": 3, "phrase_match_points": 5, "negative_keyword_penalty": -4}
		}`,
		FileDiseaseSymptoms: `{
			"Migraine": ["headache", "nausea", "visual disturbances"],
			"Common Cold": ["high fever", "headache"]
		}`,
		FileSymptomSeverity: `{
			"headache": 3, "nausea": 5, "visual disturbances": 4, "high fever": 7
		}`,
		FileKaggleToCanonical: `{
			"baş ağrısı": ["headache"],
			"bulantı": ["nausea"],
			"ateş": ["high fever"]
		}`,
		FileDiseaseSpecialty: `{
			"fallback_specialty_id": "internal_gi",
			"map": {
				"Migraine": {"id": "neurology", "confidence": 0.95},
				"Common Cold": {"id": "internal_gi", "confidence": 0.8}
			}
		}`,
		FileQuestionBank: `{
			"tr-TR": [
				{"canonical": "bulantı", "question": "Mide bulantınız var mı?", "answer_type": "yes_no"},
				{"canonical": "ateş", "question": "Ateşiniz var mı?", "answer_type": "yes_no"}
			],
			"en-US": [
				{"canonical": "bulantı", "question": "Do you feel nauseous?", "answer_type": "yes_no"}
			]
		}`,
		FileStopRules: `{
			"max_questions": 6,
			"max_questions_emergency": 8,
			"emergency_specialty_ids": ["cardiology"],
			"emergency_disease_keywords": ["heart attack"],
			"confidence_rules": {"high_confidence_disease_score": 0.45, "min_specialty_score_gap": 2.0}
		}`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadBuildsIndexes(t *testing.T) {
	cat, err := Load(writeTestCatalog(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cat.Lexicon().Normalize("başım ağrıyor"); got != "baş ağrısı" {
		t.Errorf("variant lookup = %q, want baş ağrısı", got)
	}

	if cn, ok := cat.KaggleToCanonical("Headache"); !ok || cn != "baş ağrısı" {
		t.Errorf("KaggleToCanonical(Headache) = %q %v", cn, ok)
	}

	set := cat.DiseaseCanonicals("Migraine")
	if _, ok := set["baş ağrısı"]; !ok {
		t.Errorf("Migraine canonicals missing baş ağrısı: %v", set)
	}
	if _, ok := set["bulantı"]; !ok {
		t.Errorf("Migraine canonicals missing bulantı: %v", set)
	}

	if s, ok := cat.SpecialtyByID("neurology"); !ok || s.NameTR != "Nöroloji" {
		t.Errorf("SpecialtyByID(neurology) = %+v %v", s, ok)
	}
	if cat.SpecialtyName("unknown_id") != "unknown_id" {
		t.Error("SpecialtyName should fall back to the id")
	}

	if cat.FallbackSpecialty != "internal_gi" {
		t.Errorf("FallbackSpecialty = %q", cat.FallbackSpecialty)
	}
}

func TestLoadDefaults(t *testing.T) {
	cat, err := Load(writeTestCatalog(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cat.NegationEnabled() {
		t.Error("negation should default on")
	}
	if !cat.DeniedRemovesKnown() {
		t.Error("denied_removes_known should default on")
	}
	if cat.Generator.TopK != 5 || cat.Generator.MinScoreToInclude != 0.05 {
		t.Errorf("generator defaults = %+v", cat.Generator)
	}
	if cat.Scoring.PhraseMatchPoints != 5 {
		t.Errorf("scoring = %+v", cat.Scoring)
	}

	sets := cat.AnswerSets()
	if _, ok := sets.Duration["öksürük süresi"]; !ok {
		t.Error("default duration canonicals missing öksürük süresi")
	}
	if _, ok := sets.Severity["ağrı şiddeti"]; !ok {
		t.Error("default severity canonicals missing ağrı şiddeti")
	}
}

func TestBankLocaleFallback(t *testing.T) {
	cat, err := Load(writeTestCatalog(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// en-US bank exists but has no ateş entry; the default bank covers it.
	if e, ok := cat.BankEntryFor("en-US", "bulantı"); !ok || e.Question != "Do you feel nauseous?" {
		t.Errorf("en-US bulantı = %+v %v", e, ok)
	}
	if e, ok := cat.BankEntryFor("en-US", "ateş"); !ok || e.Question != "Ateşiniz var mı?" {
		t.Errorf("en-US ateş fallback = %+v %v", e, ok)
	}

	// Unknown locale falls back to the default bank entirely.
	if got := len(cat.Bank("de-DE")); got != 2 {
		t.Errorf("Bank(de-DE) len = %d, want 2", got)
	}
}

func TestLoadMissingRequiredFile(t *testing.T) {
	dir := writeTestCatalog(t)
	if err := os.Remove(filepath.Join(dir, FileSynonyms)); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for missing synonyms file")
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	dir := writeTestCatalog(t)
	if err := os.WriteFile(filepath.Join(dir, FileStopRules), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for malformed stop rules")
	}
}

func TestLoadRequiresDefaultLocaleBank(t *testing.T) {
	dir := writeTestCatalog(t)
	bank := `{"en-US": [{"canonical": "bulantı", "question": "?", "answer_type": "yes_no"}]}`
	if err := os.WriteFile(filepath.Join(dir, FileQuestionBank), []byte(bank), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error when the default-locale bank is missing")
	}
}

func TestSkipDeniedFor(t *testing.T) {
	dir := writeTestCatalog(t)
	rules := `[{"canonical_symptom": "bulantı", "skip_if_denied": ["baş ağrısı"]}]`
	if err := os.WriteFile(filepath.Join(dir, FileSkipRules), []byte(rules), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	denied := cat.SkipDeniedFor("bulantı")
	if len(denied) != 1 || denied[0] != "baş ağrısı" {
		t.Errorf("SkipDeniedFor = %v", denied)
	}
}
