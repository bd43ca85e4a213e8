package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLintCleanCatalog(t *testing.T) {
	dir := writeTestCatalog(t)

	// Align the en-US bank with the default so locale check passes.
	bank := `{
		"tr-TR": [
			{"canonical": "bulantı", "question": "Mide bulantınız var mı?", "answer_type": "yes_no"},
			{"canonical": "ateş", "question": "Ateşiniz var mı?", "answer_type": "yes_no"}
		],
		"en-US": [
			{"canonical": "bulantı", "question": "Do you feel nauseous?", "answer_type": "yes_no"},
			{"canonical": "ateş", "question": "Do you have a fever?", "answer_type": "yes_no"}
		]
	}`
	if err := os.WriteFile(filepath.Join(dir, FileQuestionBank), []byte(bank), 0o644); err != nil {
		t.Fatal(err)
	}
	// Cover the two kaggle symptoms the fixture never maps.
	mapping := `{
		"baş ağrısı": ["headache"],
		"bulantı": ["nausea"],
		"ateş": ["high fever"],
		"bulanık görme": ["visual disturbances"]
	}`
	if err := os.WriteFile(filepath.Join(dir, FileKaggleToCanonical), []byte(mapping), 0o644); err != nil {
		t.Fatal(err)
	}
	syn := `[
		{"canonical": "baş ağrısı", "type": "symptom", "variants": ["başım ağrıyor"]},
		{"canonical": "bulantı", "type": "symptom", "variants": ["midem bulanıyor"]},
		{"canonical": "ateş", "type": "symptom", "variants": ["ateşim var"]},
		{"canonical": "bulanık görme", "type": "symptom", "variants": ["gözüm bulanık görüyor"]}
	]`
	if err := os.WriteFile(filepath.Join(dir, FileSynonyms), []byte(syn), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	report := cat.Lint()
	if !report.Clean() {
		t.Errorf("expected clean lint, got:\n%s", strings.Join(report.Findings(), "\n"))
	}
}

func TestLintFindsProblems(t *testing.T) {
	dir := writeTestCatalog(t)

	// Disease without a specialty mapping and a symptom without severity.
	matrix := `{
		"Migraine": ["headache", "nausea"],
		"Mystery Disease": ["strange symptom"]
	}`
	if err := os.WriteFile(filepath.Join(dir, FileDiseaseSymptoms), []byte(matrix), 0o644); err != nil {
		t.Fatal(err)
	}
	// Skip rule pointing at a canonical no bank question covers.
	rules := `[{"canonical_symptom": "balgam", "skip_if_denied": ["öksürük"]}]`
	if err := os.WriteFile(filepath.Join(dir, FileSkipRules), []byte(rules), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	report := cat.Lint()

	if len(report.DiseasesWithoutSpecialty) != 1 || report.DiseasesWithoutSpecialty[0] != "Mystery Disease" {
		t.Errorf("DiseasesWithoutSpecialty = %v", report.DiseasesWithoutSpecialty)
	}
	if len(report.SymptomsWithoutSeverity) != 1 || report.SymptomsWithoutSeverity[0] != "strange symptom" {
		t.Errorf("SymptomsWithoutSeverity = %v", report.SymptomsWithoutSeverity)
	}
	if len(report.SkipTargetsNotInBank) != 1 || report.SkipTargetsNotInBank[0] != "balgam" {
		t.Errorf("SkipTargetsNotInBank = %v", report.SkipTargetsNotInBank)
	}
	// en-US bank of the base fixture misses ateş.
	if missing := report.LocalesMissingVariants["en-US"]; len(missing) != 1 || missing[0] != "ateş" {
		t.Errorf("LocalesMissingVariants = %v", report.LocalesMissingVariants)
	}
	if report.Clean() {
		t.Error("report should not be clean")
	}

	if got := len(report.Findings()); got < 4 {
		t.Errorf("Findings() returned %d lines, want at least 4", got)
	}
}
