// Package question picks the next question of a triage session. Sources are
// tried in a fixed order: context questions for missing profile fields,
// red-flag checks gated on known symptoms, then the most discriminative
// symptom question over the current disease candidates.
package question

import (
	"math"
	"sort"
	"strings"

	"github.com/cognicore/triyaj/pkg/triyaj/candidate"
	"github.com/cognicore/triyaj/pkg/triyaj/catalog"
	"github.com/cognicore/triyaj/pkg/triyaj/interpret"
)

// Source says which selector produced a question.
type Source string

const (
	SourceContext        Source = "context"
	SourceRedFlag        Source = "red_flag"
	SourceDiscriminative Source = "discriminative"
)

// Profile fields a context question may fill.
const (
	FieldAge       = "age"
	FieldSex       = "sex"
	FieldPregnancy = "pregnancy"
	FieldChronic   = "chronic"
)

// priorityBoost is added to the discrimination score when the bank entry's
// priority_when_known symptom is already confirmed, so detail questions
// (duration, timing) follow their main symptom early.
const priorityBoost = 0.35

// Profile is the demographic slice the selector consults.
type Profile struct {
	Age       *int
	Sex       string
	Pregnancy string
	Chronic   []string
}

// State is the per-session view the selector reads. Known, Denied and
// AskedCanonicals hold canonical symptom names; the id sets track context and
// red-flag questions already asked.
type State struct {
	Profile         Profile
	Known           map[string]struct{}
	Denied          map[string]struct{}
	AskedCanonicals map[string]struct{}
	AskedContextIDs map[string]struct{}
	AskedRedFlagIDs map[string]struct{}
}

// Question is the next thing to ask, ready for a QUESTION envelope. Text and
// Choices already reflect the requested locale with a Turkish fallback. Gain
// is only set for discriminative questions and feeds the stop policy's
// expected-gain floor.
type Question struct {
	Source     Source   `json:"source"`
	QuestionID string   `json:"question_id"`
	Canonical  string   `json:"canonical,omitempty"`
	Text       string   `json:"question_tr"`
	AnswerType string   `json:"answer_type"`
	Choices    []string `json:"choices_tr,omitempty"`
	WhyAsking  string   `json:"why_asking_tr,omitempty"`
	Gain       float64  `json:"gain,omitempty"`
}

// Selector chooses questions from the catalog deterministically.
type Selector struct {
	cat *catalog.Catalog
}

// NewSelector creates a selector over the loaded catalog.
func NewSelector(cat *catalog.Catalog) *Selector {
	return &Selector{cat: cat}
}

// Next returns the next question to ask, trying the context, red-flag and
// discriminative sources in that order. Nil means every source is exhausted.
func (s *Selector) Next(st State, cands []candidate.Candidate, locale string) *Question {
	if q := s.NextContext(st, locale); q != nil {
		return q
	}
	if q := s.NextRedFlag(st, locale); q != nil {
		return q
	}
	return s.NextDiscriminative(st, cands, locale)
}

// NextContext returns the first unasked context question whose profile field
// is still missing. Pregnancy is only asked when the profile says female and
// one of the question's trigger symptoms is already known.
func (s *Selector) NextContext(st State, locale string) *Question {
	for _, cq := range s.cat.ContextQuestions {
		if cq.ID == "" {
			continue
		}
		if _, asked := st.AskedContextIDs[cq.ID]; asked {
			continue
		}
		if !profileMissing(st.Profile, cq.ProfileField) {
			continue
		}
		switch cq.WhenAsk {
		case "", "always":
			if cq.ProfileField == FieldPregnancy {
				continue
			}
		case "when_female_and_relevant":
			if !isFemale(st.Profile.Sex) {
				continue
			}
			if len(cq.WhenSymptomsAny) > 0 && !anyKnown(st.Known, cq.WhenSymptomsAny) {
				continue
			}
		default:
			continue
		}
		return &Question{
			Source:     SourceContext,
			QuestionID: cq.ID,
			Text:       catalog.LocaleText(cq.Question, locale),
			AnswerType: orDefault(cq.AnswerType, "free_text"),
			Choices:    catalog.LocaleChoices(cq.Choices, locale),
		}
	}
	return nil
}

// NextRedFlag returns the first unasked red-flag question triggered by the
// known symptoms.
func (s *Selector) NextRedFlag(st State, locale string) *Question {
	for _, rf := range s.cat.RedFlags {
		if rf.ID == "" {
			continue
		}
		if _, asked := st.AskedRedFlagIDs[rf.ID]; asked {
			continue
		}
		if len(rf.Preconditions.WhenCanonicalAny) == 0 {
			continue
		}
		if !anyKnown(st.Known, rf.Preconditions.WhenCanonicalAny) {
			continue
		}
		return &Question{
			Source:     SourceRedFlag,
			QuestionID: rf.ID,
			Text:       catalog.LocaleText(rf.Question, locale),
			AnswerType: orDefault(rf.AnswerType, "yes_no"),
			WhyAsking:  catalog.LocaleText(rf.Reason, locale),
		}
	}
	return nil
}

// NextDiscriminative scores every unresolved symptom across the disease
// candidates by how well a yes/no answer would split the field:
//
//	disc = 1.0 - |count/total - 0.5|
//
// where count is the number of candidates listing the symptom. Symptoms
// already known, denied or asked are dropped, as are those without a bank
// question and those whose skip rule names a denied canonical. Fewer than two
// candidates leave nothing to discriminate.
func (s *Selector) NextDiscriminative(st State, cands []candidate.Candidate, locale string) *Question {
	total := len(cands)
	if total < 2 {
		return nil
	}

	counts := make(map[string]int)
	for _, c := range cands {
		seen := make(map[string]struct{}, len(c.MatchedSymptoms)+len(c.MissingSymptoms))
		for _, sym := range c.MatchedSymptoms {
			seen[sym] = struct{}{}
		}
		for _, sym := range c.MissingSymptoms {
			seen[sym] = struct{}{}
		}
		for sym := range seen {
			counts[sym]++
		}
	}

	best := make(map[string]float64)
	for kaggleSym, count := range counts {
		canonical, ok := s.cat.KaggleToCanonical(kaggleSym)
		if !ok {
			continue
		}
		if _, known := st.Known[canonical]; known {
			continue
		}
		if _, denied := st.Denied[canonical]; denied {
			continue
		}
		if _, asked := st.AskedCanonicals[canonical]; asked {
			continue
		}
		entry, ok := s.cat.BankEntryFor(locale, canonical)
		if !ok {
			continue
		}
		if skipForDenied(s.cat.SkipDeniedFor(canonical), st.Denied) {
			continue
		}
		disc := 1.0 - math.Abs(float64(count)/float64(total)-0.5)
		if anyKnown(st.Known, entry.PriorityWhenKnown) {
			disc += priorityBoost
		}
		if cur, dup := best[canonical]; !dup || disc > cur {
			best[canonical] = disc
		}
	}
	if len(best) == 0 {
		return nil
	}

	ranked := make([]string, 0, len(best))
	for c := range best {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if best[ranked[i]] != best[ranked[j]] {
			return best[ranked[i]] > best[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	top := ranked[0]
	entry, _ := s.cat.BankEntryFor(locale, top)
	answerType := orDefault(entry.AnswerType, "yes_no")
	choices := append([]string(nil), entry.Choices...)
	if choices == nil && answerType == "yes_no" {
		choices = []string{"Evet", "Hayır"}
	}
	return &Question{
		Source:     SourceDiscriminative,
		QuestionID: "q_" + top,
		Canonical:  top,
		Text:       entry.Question,
		AnswerType: answerType,
		Choices:    choices,
		WhyAsking:  entry.WhyAsking,
		Gain:       best[top],
	}
}

func profileMissing(p Profile, field string) bool {
	switch field {
	case FieldAge:
		return p.Age == nil
	case FieldSex:
		return strings.TrimSpace(p.Sex) == ""
	case FieldPregnancy:
		return strings.TrimSpace(p.Pregnancy) == ""
	case FieldChronic:
		return len(p.Chronic) == 0
	}
	return false
}

func isFemale(sex string) bool {
	switch interpret.Normalize(sex) {
	case "kadın", "kadin", "female", "f", "k":
		return true
	}
	return false
}

// anyKnown reports whether any of the listed canonicals is in the known set.
// Both sides go through text normalization so catalog spelling variants
// still match.
func anyKnown(known map[string]struct{}, canonicals []string) bool {
	if len(known) == 0 || len(canonicals) == 0 {
		return false
	}
	normalized := make(map[string]struct{}, len(known))
	for k := range known {
		normalized[interpret.Normalize(k)] = struct{}{}
	}
	for _, c := range canonicals {
		if _, ok := normalized[interpret.Normalize(c)]; ok {
			return true
		}
	}
	return false
}

func skipForDenied(prereqs []string, denied map[string]struct{}) bool {
	if len(prereqs) == 0 || len(denied) == 0 {
		return false
	}
	for _, p := range prereqs {
		if _, ok := denied[p]; ok {
			return true
		}
	}
	return false
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
