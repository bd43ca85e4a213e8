// Package catalog loads the reference data the engine needs at startup:
// synonym groups, the disease/symptom matrix, specialty keyword lists,
// question banks, and the policy rule files. Everything is immutable after
// Load and shared freely across sessions.
package catalog

import (
	"sort"

	"github.com/cognicore/triyaj/pkg/triyaj/interpret"
	"github.com/cognicore/triyaj/pkg/triyaj/lexicon"
)

// SynonymGroup maps surface variants onto one canonical symptom.
type SynonymGroup struct {
	Canonical string   `json:"canonical"`
	Type      string   `json:"type"`
	Variants  []string `json:"variants"`
}

// Specialty is one scored branch with its keyword lists.
type Specialty struct {
	ID               string   `json:"id"`
	NameTR           string   `json:"name_tr"`
	Keywords         []string `json:"keywords"`
	NegativeKeywords []string `json:"negative_keywords"`
}

// Scoring holds the Layer-B point values.
type Scoring struct {
	KeywordMatchPoints     float64  `json:"keyword_match_points"`
	PhraseMatchPoints      float64  `json:"phrase_match_points"`
	NegativeKeywordPenalty float64  `json:"negative_keyword_penalty"`
	TieBreakers            []string `json:"tie_breakers,omitempty"`
}

// DefaultScoring returns the point values used when the catalog omits them.
func DefaultScoring() Scoring {
	return Scoring{
		KeywordMatchPoints:     3,
		PhraseMatchPoints:      5,
		NegativeKeywordPenalty: -4,
	}
}

// SpecialtyRef is a disease→specialty mapping entry.
type SpecialtyRef struct {
	ID         string  `json:"id"`
	Confidence float64 `json:"confidence"`
}

// BankEntry is one question in a per-locale bank.
type BankEntry struct {
	Canonical         string   `json:"canonical"`
	Question          string   `json:"question"`
	AnswerType        string   `json:"answer_type"`
	Choices           []string `json:"choices,omitempty"`
	WhyAsking         string   `json:"why_asking,omitempty"`
	PriorityWhenKnown []string `json:"priority_when_known,omitempty"`
}

// SkipRule forbids asking CanonicalSymptom once any listed canonical is denied.
type SkipRule struct {
	CanonicalSymptom string   `json:"canonical_symptom"`
	SkipIfDenied     []string `json:"skip_if_denied"`
}

// ContextQuestion is a demographic/profile question. Question and Choices are
// keyed by locale.
type ContextQuestion struct {
	ID              string              `json:"id"`
	Question        map[string]string   `json:"question"`
	AnswerType      string              `json:"answer_type"`
	ProfileField    string              `json:"profile_field"`
	WhenAsk         string              `json:"when_ask"`
	WhenSymptomsAny []string            `json:"when_symptoms_any,omitempty"`
	Order           int                 `json:"order"`
	Choices         map[string][]string `json:"choices,omitempty"`
}

// RedFlagQuestion is a one-shot escalation check gated on known symptoms.
type RedFlagQuestion struct {
	ID            string            `json:"id"`
	Question      map[string]string `json:"question"`
	Reason        map[string]string `json:"reason,omitempty"`
	Preconditions Preconditions     `json:"preconditions"`
	AnswerType    string            `json:"answer_type,omitempty"`
}

// Preconditions gate a red-flag question on the session's known symptoms.
type Preconditions struct {
	WhenCanonicalAny []string `json:"when_canonical_any"`
}

// ConfidenceRules are the result-confidence stop thresholds.
type ConfidenceRules struct {
	HighConfidenceDiseaseScore float64 `json:"high_confidence_disease_score"`
	MinSpecialtyScoreGap       float64 `json:"min_specialty_score_gap"`
}

// StopRules bound the question loop. The two boolean flags default to true
// when absent from the file.
type StopRules struct {
	MaxQuestions             int             `json:"max_questions"`
	MaxQuestionsEmergency    int             `json:"max_questions_emergency"`
	EmergencySpecialtyIDs    []string        `json:"emergency_specialty_ids"`
	EmergencyDiseaseKeywords []string        `json:"emergency_disease_keywords"`
	ConfidenceRules          ConfidenceRules `json:"confidence_rules"`
	NegationEnabled          *bool           `json:"negation_enabled,omitempty"`
	DeniedRemovesKnown       *bool           `json:"denied_removes_known,omitempty"`
}

// GeneratorParams parameterize Layer-A candidate scoring.
type GeneratorParams struct {
	TopK                     int     `json:"top_k"`
	MinScoreToInclude        float64 `json:"min_score_to_include"`
	DefaultSymptomWeight     float64 `json:"default_symptom_weight"`
	SeverityWeightMultiplier float64 `json:"severity_weight_multiplier"`
}

// DefaultGeneratorParams returns the reference defaults.
func DefaultGeneratorParams() GeneratorParams {
	return GeneratorParams{
		TopK:                     5,
		MinScoreToInclude:        0.05,
		DefaultSymptomWeight:     1.0,
		SeverityWeightMultiplier: 0.25,
	}
}

// RuleGroup is one alternative inside require_any_group.
type RuleGroup struct {
	KeywordAny   []string `json:"keyword_any,omitempty"`
	KeywordAll   []string `json:"keyword_all,omitempty"`
	CanonicalAny []string `json:"canonical_any,omitempty"`
}

// EmergencyRule fires on canonical predicates or text triggers. Regex is
// tried before Keywords when both are present.
type EmergencyRule struct {
	ID              string      `json:"id"`
	Severity        int         `json:"severity"`
	ReasonTR        string      `json:"reason_tr"`
	InstructionsTR  []string    `json:"instructions_tr,omitempty"`
	Any             []string    `json:"any,omitempty"`
	All             []string    `json:"all,omitempty"`
	None            []string    `json:"none,omitempty"`
	Keywords        []string    `json:"keywords,omitempty"`
	Regex           string      `json:"regex,omitempty"`
	RequireAnyGroup []RuleGroup `json:"require_any_group,omitempty"`
	MinDurationDays int         `json:"min_duration_days,omitempty"`
}

// EmergencyRules is the emergency_rules.json payload.
type EmergencyRules struct {
	Global struct {
		MinSeverityToTrigger int `json:"min_severity_to_trigger"`
	} `json:"global"`
	DefaultInstructionsTR []string        `json:"default_instructions_tr,omitempty"`
	Rules                 []EmergencyRule `json:"rules"`
}

// SameDayRule is a softer any/all/none predicate over canonicals.
type SameDayRule struct {
	ID      string   `json:"id"`
	Message string   `json:"message"`
	Action  string   `json:"action"`
	Any     []string `json:"any,omitempty"`
	All     []string `json:"all,omitempty"`
	None    []string `json:"none,omitempty"`
}

// SameDayRules is the sameday_rules.json payload.
type SameDayRules struct {
	Rules []SameDayRule `json:"rules"`
}

// RiskBand configures one tier of the risk stratifier.
type RiskBand struct {
	CanonicalsAny         []string `json:"canonicals_any,omitempty"`
	SameDayRequired       bool     `json:"same_day_required,omitempty"`
	SameDayIfTrue         *bool    `json:"same_day_if_true,omitempty"`
	MinConfidenceFallback float64  `json:"min_confidence_fallback,omitempty"`
}

// RiskRules is the risk_rules.json payload.
type RiskRules struct {
	High   RiskBand `json:"high"`
	Medium RiskBand `json:"medium"`
}

// AnswerParsers names the canonicals whose free-text answers are run through
// the duration/severity/timing sub-parsers.
type AnswerParsers struct {
	DurationCanonicals []string `json:"duration_canonicals"`
	SeverityCanonicals []string `json:"severity_canonicals"`
	TimingCanonicals   []string `json:"timing_canonicals"`
}

// Catalog is the full loaded reference set plus derived lookup indexes.
type Catalog struct {
	Synonyms          []SynonymGroup
	Specialties       []Specialty
	Scoring           Scoring
	FallbackSpecialty string

	DiseaseSymptoms  map[string][]string     // disease label → kaggle symptoms
	SymptomSeverity  map[string]int          // kaggle symptom → 1..7
	CanonicalKaggle  map[string][]string     // canonical → kaggle symptoms
	DiseaseSpecialty map[string]SpecialtyRef // disease label → specialty ref

	Banks            map[string][]BankEntry // locale → bank
	SkipRules        []SkipRule
	ContextQuestions []ContextQuestion // sorted by Order asc, then ID asc
	RedFlags         []RedFlagQuestion

	StopRules StopRules
	Generator GeneratorParams
	Emergency EmergencyRules
	SameDay   SameDayRules
	Risk      RiskRules
	Parsers   AnswerParsers

	lex             *lexicon.Lexicon
	kaggleCanonical map[string]string
	diseaseCanon    map[string]map[string]struct{}
	specialtyByID   map[string]int
	bankIndex       map[string]map[string]int // locale → canonical → bank slot
	skipByCanonical map[string][]string
	answerSets      interpret.AnswerSets
}

// BuildIndexes populates the derived lookups from the exported fields. The
// loader calls it once after decoding; callers assembling a Catalog in code
// must call it themselves. Fields must not change afterwards.
func (c *Catalog) BuildIndexes() {
	c.lex = lexicon.New()
	for _, g := range c.Synonyms {
		variants := make([]string, 0, len(g.Variants))
		for _, v := range g.Variants {
			if n := interpret.Normalize(v); n != "" {
				variants = append(variants, n)
			}
		}
		c.lex.AddGroup(interpret.Normalize(g.Canonical), g.Type, variants)
	}

	// Sorted iteration so a kaggle symptom claimed by two canonicals resolves
	// the same way on every load.
	canonicals := make([]string, 0, len(c.CanonicalKaggle))
	for canonical := range c.CanonicalKaggle {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)
	c.kaggleCanonical = make(map[string]string)
	for _, canonical := range canonicals {
		cn := interpret.Normalize(canonical)
		for _, s := range c.CanonicalKaggle[canonical] {
			sn := interpret.Normalize(s)
			if sn == "" {
				continue
			}
			if _, taken := c.kaggleCanonical[sn]; !taken {
				c.kaggleCanonical[sn] = cn
			}
		}
	}

	c.diseaseCanon = make(map[string]map[string]struct{}, len(c.DiseaseSymptoms))
	for disease, symptoms := range c.DiseaseSymptoms {
		set := make(map[string]struct{})
		for _, s := range symptoms {
			if cn, ok := c.kaggleCanonical[interpret.Normalize(s)]; ok && cn != "" {
				set[cn] = struct{}{}
			}
		}
		if len(set) > 0 {
			c.diseaseCanon[disease] = set
		}
	}

	c.specialtyByID = make(map[string]int, len(c.Specialties))
	for i, s := range c.Specialties {
		c.specialtyByID[s.ID] = i
	}

	c.bankIndex = make(map[string]map[string]int, len(c.Banks))
	for locale, entries := range c.Banks {
		byCanonical := make(map[string]int, len(entries))
		for i, e := range entries {
			cn := interpret.Normalize(e.Canonical)
			if _, dup := byCanonical[cn]; !dup {
				byCanonical[cn] = i
			}
		}
		c.bankIndex[locale] = byCanonical
	}

	c.skipByCanonical = make(map[string][]string, len(c.SkipRules))
	for _, r := range c.SkipRules {
		cn := interpret.Normalize(r.CanonicalSymptom)
		for _, d := range r.SkipIfDenied {
			c.skipByCanonical[cn] = append(c.skipByCanonical[cn], interpret.Normalize(d))
		}
	}

	c.answerSets = interpret.AnswerSets{
		Duration: normalizedSet(c.Parsers.DurationCanonicals),
		Severity: normalizedSet(c.Parsers.SeverityCanonicals),
		Timing:   normalizedSet(c.Parsers.TimingCanonicals),
	}

	sort.SliceStable(c.ContextQuestions, func(i, j int) bool {
		if c.ContextQuestions[i].Order != c.ContextQuestions[j].Order {
			return c.ContextQuestions[i].Order < c.ContextQuestions[j].Order
		}
		return c.ContextQuestions[i].ID < c.ContextQuestions[j].ID
	})
}

func normalizedSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if n := interpret.Normalize(it); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Lexicon returns the synonym index built from the loaded groups.
func (c *Catalog) Lexicon() *lexicon.Lexicon { return c.lex }

// AnswerSets returns the free-text dispatch sets for interpret.ParseAnswer.
func (c *Catalog) AnswerSets() interpret.AnswerSets { return c.answerSets }

// KaggleToCanonical maps one kaggle-space symptom to its canonical name.
func (c *Catalog) KaggleToCanonical(symptom string) (string, bool) {
	cn, ok := c.kaggleCanonical[interpret.Normalize(symptom)]
	return cn, ok
}

// KaggleFor returns the kaggle-space symptoms behind a canonical.
func (c *Catalog) KaggleFor(canonical string) []string {
	return c.CanonicalKaggle[interpret.Normalize(canonical)]
}

// DiseaseCanonicals returns the canonical symptom set of a disease.
func (c *Catalog) DiseaseCanonicals(disease string) map[string]struct{} {
	return c.diseaseCanon[disease]
}

// SpecialtyByID resolves a specialty entry; ok is false for unknown ids.
func (c *Catalog) SpecialtyByID(id string) (Specialty, bool) {
	i, ok := c.specialtyByID[id]
	if !ok {
		return Specialty{}, false
	}
	return c.Specialties[i], true
}

// SpecialtyName returns the localized display name, falling back to the id.
func (c *Catalog) SpecialtyName(id string) string {
	if s, ok := c.SpecialtyByID(id); ok && s.NameTR != "" {
		return s.NameTR
	}
	return id
}

// Bank returns the question bank for the locale, falling back to the default
// locale when the requested one has no bank.
func (c *Catalog) Bank(locale string) []BankEntry {
	if entries, ok := c.Banks[locale]; ok {
		return entries
	}
	return c.Banks[DefaultLocale]
}

// BankEntryFor finds the bank question for a canonical, preferring the
// requested locale and falling back to the default one.
func (c *Catalog) BankEntryFor(locale, canonical string) (BankEntry, bool) {
	cn := interpret.Normalize(canonical)
	for _, loc := range []string{locale, DefaultLocale} {
		idx, ok := c.bankIndex[loc]
		if !ok {
			continue
		}
		if i, ok := idx[cn]; ok {
			return c.Banks[loc][i], true
		}
	}
	return BankEntry{}, false
}

// SkipDeniedFor returns the denied canonicals that forbid asking this one.
func (c *Catalog) SkipDeniedFor(canonical string) []string {
	return c.skipByCanonical[interpret.Normalize(canonical)]
}

// ContextQuestionByID looks up a context question by its id.
func (c *Catalog) ContextQuestionByID(id string) (ContextQuestion, bool) {
	for _, cq := range c.ContextQuestions {
		if cq.ID == id {
			return cq, true
		}
	}
	return ContextQuestion{}, false
}

// RedFlagByID looks up a red-flag question by its id.
func (c *Catalog) RedFlagByID(id string) (RedFlagQuestion, bool) {
	for _, rf := range c.RedFlags {
		if rf.ID == id {
			return rf, true
		}
	}
	return RedFlagQuestion{}, false
}

// LocaleText picks the value for locale from a per-locale text map, falling
// back to the default locale, then to the first non-empty value in key order.
func LocaleText(m map[string]string, locale string) string {
	if v := m[locale]; v != "" {
		return v
	}
	if v := m[DefaultLocale]; v != "" {
		return v
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if m[k] != "" {
			return m[k]
		}
	}
	return ""
}

// LocaleChoices is LocaleText for per-locale answer choice lists.
func LocaleChoices(m map[string][]string, locale string) []string {
	if v := m[locale]; len(v) > 0 {
		return v
	}
	return m[DefaultLocale]
}

// NegationEnabled reports whether the interpreter should scan for negation
// cues. Defaults to true when the catalog does not set the flag.
func (c *Catalog) NegationEnabled() bool {
	if c.StopRules.NegationEnabled == nil {
		return true
	}
	return *c.StopRules.NegationEnabled
}

// DeniedRemovesKnown reports whether an explicit denial evicts an earlier
// affirmed symptom. Defaults to true.
func (c *Catalog) DeniedRemovesKnown() bool {
	if c.StopRules.DeniedRemovesKnown == nil {
		return true
	}
	return *c.StopRules.DeniedRemovesKnown
}
