package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cognicore/triyaj/pkg/triyaj/internalerr"
)

// DefaultLocale is the locale every lookup falls back to.
const DefaultLocale = "tr-TR"

// Catalog file names inside the data directory.
const (
	FileSynonyms          = "synonyms.json"
	FileSpecialtyKeywords = "specialty_keywords.json"
	FileDiseaseSymptoms   = "disease_symptoms.json"
	FileSymptomSeverity   = "symptom_severity.json"
	FileKaggleToCanonical = "kaggle_to_canonical.json"
	FileDiseaseSpecialty  = "disease_to_specialty.json"
	FileQuestionBank      = "question_bank.json"
	FileSkipRules         = "question_skip_rules.json"
	FileContextQuestions  = "context_questions.json"
	FileRedFlags          = "red_flag_questions.json"
	FileStopRules         = "stop_rules.json"
	FileGenerator         = "candidate_generator.json"
	FileEmergencyRules    = "emergency_rules.json"
	FileSameDayRules      = "sameday_rules.json"
	FileRiskRules         = "risk_rules.json"
	FileAnswerParsers     = "answer_parsers.json"
)

// Loader reads every catalog file from one directory.
type Loader struct {
	Dir string
}

// Load reads all catalog files and builds the derived indexes.
func Load(dir string) (*Catalog, error) {
	return (&Loader{Dir: dir}).Load()
}

// Load reads the required files, applies defaults for the optional ones, and
// returns an immutable Catalog.
func (l *Loader) Load() (*Catalog, error) {
	if l.Dir == "" {
		return nil, fmt.Errorf("catalog: %w: empty directory", internalerr.ErrInvalidConfig)
	}

	cat := &Catalog{}

	if err := l.readJSON(FileSynonyms, &cat.Synonyms, true); err != nil {
		return nil, fmt.Errorf("load synonyms: %w", err)
	}

	var spec struct {
		Specialties []Specialty `json:"specialties"`
		Scoring     *Scoring    `json:"scoring"`
	}
	if err := l.readJSON(FileSpecialtyKeywords, &spec, true); err != nil {
		return nil, fmt.Errorf("load specialty keywords: %w", err)
	}
	cat.Specialties = spec.Specialties
	if spec.Scoring != nil {
		cat.Scoring = *spec.Scoring
	} else {
		cat.Scoring = DefaultScoring()
	}

	if err := l.readJSON(FileDiseaseSymptoms, &cat.DiseaseSymptoms, true); err != nil {
		return nil, fmt.Errorf("load disease symptoms: %w", err)
	}
	if err := l.readJSON(FileSymptomSeverity, &cat.SymptomSeverity, true); err != nil {
		return nil, fmt.Errorf("load symptom severity: %w", err)
	}
	if err := l.readJSON(FileKaggleToCanonical, &cat.CanonicalKaggle, true); err != nil {
		return nil, fmt.Errorf("load kaggle mapping: %w", err)
	}

	var d2s struct {
		FallbackSpecialtyID string                  `json:"fallback_specialty_id"`
		Map                 map[string]SpecialtyRef `json:"map"`
	}
	if err := l.readJSON(FileDiseaseSpecialty, &d2s, true); err != nil {
		return nil, fmt.Errorf("load disease specialty map: %w", err)
	}
	cat.DiseaseSpecialty = d2s.Map
	cat.FallbackSpecialty = d2s.FallbackSpecialtyID
	if cat.FallbackSpecialty == "" {
		cat.FallbackSpecialty = "internal_gi"
	}

	if err := l.readJSON(FileQuestionBank, &cat.Banks, true); err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	if _, ok := cat.Banks[DefaultLocale]; !ok {
		return nil, fmt.Errorf("load question bank: %w: no %s bank", internalerr.ErrInvalidConfig, DefaultLocale)
	}

	if err := l.readJSON(FileStopRules, &cat.StopRules, true); err != nil {
		return nil, fmt.Errorf("load stop rules: %w", err)
	}

	if err := l.readJSON(FileSkipRules, &cat.SkipRules, false); err != nil {
		return nil, fmt.Errorf("load skip rules: %w", err)
	}
	if err := l.readJSON(FileContextQuestions, &cat.ContextQuestions, false); err != nil {
		return nil, fmt.Errorf("load context questions: %w", err)
	}
	if err := l.readJSON(FileRedFlags, &cat.RedFlags, false); err != nil {
		return nil, fmt.Errorf("load red flags: %w", err)
	}

	cat.Generator = DefaultGeneratorParams()
	if err := l.readJSON(FileGenerator, &cat.Generator, false); err != nil {
		return nil, fmt.Errorf("load generator params: %w", err)
	}
	if cat.Generator.TopK <= 0 {
		cat.Generator.TopK = DefaultGeneratorParams().TopK
	}

	if err := l.readJSON(FileEmergencyRules, &cat.Emergency, false); err != nil {
		return nil, fmt.Errorf("load emergency rules: %w", err)
	}
	if err := l.readJSON(FileSameDayRules, &cat.SameDay, false); err != nil {
		return nil, fmt.Errorf("load same-day rules: %w", err)
	}
	if err := l.readJSON(FileRiskRules, &cat.Risk, false); err != nil {
		return nil, fmt.Errorf("load risk rules: %w", err)
	}

	cat.Parsers = defaultAnswerParsers()
	if err := l.readJSON(FileAnswerParsers, &cat.Parsers, false); err != nil {
		return nil, fmt.Errorf("load answer parsers: %w", err)
	}

	cat.BuildIndexes()
	return cat, nil
}

// readJSON decodes one file into out. Required files must exist; optional
// ones leave out untouched when missing. Malformed JSON is always an error.
func (l *Loader) readJSON(name string, out any, required bool) error {
	raw, err := os.ReadFile(filepath.Join(l.Dir, name))
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("%s: %w", name, internalerr.ErrInvalidConfig)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w: %v", name, internalerr.ErrInvalidConfig, err)
	}
	return nil
}

// defaultAnswerParsers mirrors the reference dispatch sets so deployments
// without an answer_parsers.json still parse the common follow-ups.
func defaultAnswerParsers() AnswerParsers {
	return AnswerParsers{
		DurationCanonicals: []string{
			"öksürük süresi", "baş ağrısı süresi", "karın ağrısı süresi",
			"ateş süresi", "ishal süresi", "boğaz ağrısı süresi", "göğüs ağrısı süresi",
		},
		SeverityCanonicals: []string{"ağrı şiddeti"},
		TimingCanonicals: []string{
			"öksürük gece artışı", "baş ağrısı sabah artışı",
			"öksürük süresi", "baş ağrısı süresi",
		},
	}
}
