// Package policy decides when a triage session must divert or stop:
// emergency rule evaluation, same-day routing, the question budget, and the
// confidence thresholds that end the loop with a result.
package policy

import (
	"regexp"
	"strings"

	"github.com/cognicore/triyaj/pkg/triyaj/catalog"
	"github.com/cognicore/triyaj/pkg/triyaj/interpret"
	"github.com/cognicore/triyaj/pkg/triyaj/question"
)

// Stop reason ids carried on RESULT envelopes.
const (
	StopMaxQuestions        = "max_questions"
	StopHighConfidence      = "high_confidence"
	StopClearWinner         = "clear_specialty_winner"
	StopMinExpectedGain     = "min_expected_gain"
	StopNoQuestionAvailable = "no_question_available"
	StopEmergency           = "emergency_detected"
	StopSameDay             = "same_day_recommended"
)

// Reference defaults; rules files and engine config may override them.
const (
	defaultMinSeverity       = 2
	defaultMaxQuestions      = 5
	defaultHighDiseaseScore  = 0.45
	defaultSpecialtyScoreGap = 2.0
	defaultEmergencyReason   = "Acil durum belirtisi tespit edildi."
	defaultSameDayMessage    = "Bugun bir uzmana gorunmeniz onerilir."
	defaultSameDayAction     = "see_today"
	defaultEmergencyHelpline = "Derhal acil servise başvur veya 112'yi ara."
	confidenceTopWeight      = 0.75
	confidenceGapWeight      = 0.6
	confidenceHighBand       = 0.70
	confidenceMidBand        = 0.45
	minExpectedGainDefault   = 0.08
	highConfThresholdDefault = 0.85
)

// Options are the engine-level knobs layered over the catalog's stop rules.
type Options struct {
	MinExpectedGain         float64 // floor under a discriminative question's gain
	HighConfidenceThreshold float64 // confidence score that ends the session early
	MaxQuestionsOverride    int     // replaces the catalog budget when positive
}

// DefaultOptions returns the reference policy knobs.
func DefaultOptions() Options {
	return Options{
		MinExpectedGain:         minExpectedGainDefault,
		HighConfidenceThreshold: highConfThresholdDefault,
	}
}

// EmergencyMatch is a fired emergency rule.
type EmergencyMatch struct {
	RuleID       string   `json:"rule_id"`
	Severity     int      `json:"severity"`
	Reason       string   `json:"reason_tr"`
	Instructions []string `json:"instructions_tr"`
	MatchedOn    []string `json:"matched_on,omitempty"`
}

// SameDayMatch is a fired same-day rule.
type SameDayMatch struct {
	RuleID  string `json:"rule_id"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// StopInput carries the per-turn signals the stop rules inspect.
type StopInput struct {
	TurnIndex       int
	TopSpecialtyID  string
	TopDiseaseLabel string
	TopDiseaseScore float64
	Confidence      float64
	SpecialtyGap    float64
}

// Policy evaluates the catalog's safety and stop rules. Emergency regex
// triggers are compiled once at construction; malformed patterns fall back to
// the rule's keyword list.
type Policy struct {
	cat     *catalog.Catalog
	opts    Options
	regexes map[string]*regexp.Regexp
}

// New builds a policy over the loaded catalog.
func New(cat *catalog.Catalog, opts Options) *Policy {
	p := &Policy{cat: cat, opts: opts, regexes: make(map[string]*regexp.Regexp)}
	for _, r := range cat.Emergency.Rules {
		if r.Regex == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + r.Regex)
		if err != nil {
			continue
		}
		p.regexes[r.ID] = re
	}
	return p
}

// Emergency evaluates every emergency rule against the turn's text and the
// accumulated canonicals and returns the strongest match, or nil. When
// several rules fire, the highest severity wins and ties resolve on rule id.
func (p *Policy) Emergency(text string, canonicals map[string]struct{}, durationDays *int) *EmergencyMatch {
	normText := interpret.Normalize(text)
	cset := normalizeSet(canonicals)

	minSev := p.cat.Emergency.Global.MinSeverityToTrigger
	if minSev <= 0 {
		minSev = defaultMinSeverity
	}

	var best *EmergencyMatch
	for _, r := range p.cat.Emergency.Rules {
		sev := r.Severity
		if sev <= 0 {
			sev = 1
		}
		if sev < minSev {
			continue
		}

		matched := p.ruleTriggers(r, normText, cset)
		if len(matched) == 0 {
			continue
		}
		if len(r.RequireAnyGroup) > 0 {
			if !anyGroupMatches(r.RequireAnyGroup, normText, cset) {
				continue
			}
			matched = append(matched, "require_any_group")
		}
		if r.MinDurationDays > 0 {
			if durationDays == nil || *durationDays < r.MinDurationDays {
				continue
			}
			matched = append(matched, "min_duration_days")
		}

		m := &EmergencyMatch{
			RuleID:       r.ID,
			Severity:     sev,
			Reason:       orDefault(r.ReasonTR, defaultEmergencyReason),
			Instructions: p.instructionsFor(r),
			MatchedOn:    matched,
		}
		if best == nil || m.Severity > best.Severity ||
			(m.Severity == best.Severity && m.RuleID < best.RuleID) {
			best = m
		}
	}
	return best
}

// ruleTriggers returns the trigger names that fired: the canonical
// any/all/none predicate, then the regex, then the keyword scan.
func (p *Policy) ruleTriggers(r catalog.EmergencyRule, normText string, cset map[string]struct{}) []string {
	var matched []string
	if len(r.Any)+len(r.All)+len(r.None) > 0 && predicateHits(r.Any, r.All, r.None, cset) {
		matched = append(matched, "canonicals")
	}
	if len(matched) == 0 {
		if re := p.regexes[r.ID]; re != nil && re.MatchString(normText) {
			matched = append(matched, "regex")
		}
	}
	if len(matched) == 0 && containsAny(normText, r.Keywords) {
		matched = append(matched, "keywords")
	}
	return matched
}

func (p *Policy) instructionsFor(r catalog.EmergencyRule) []string {
	if len(r.InstructionsTR) > 0 {
		return r.InstructionsTR
	}
	if len(p.cat.Emergency.DefaultInstructionsTR) > 0 {
		return p.cat.Emergency.DefaultInstructionsTR
	}
	return []string{defaultEmergencyHelpline}
}

// SameDay returns the first same-day rule matching the canonicals, or nil.
func (p *Policy) SameDay(canonicals map[string]struct{}) *SameDayMatch {
	cset := normalizeSet(canonicals)
	for _, r := range p.cat.SameDay.Rules {
		if len(r.Any)+len(r.All)+len(r.None) == 0 {
			continue
		}
		if !predicateHits(r.Any, r.All, r.None, cset) {
			continue
		}
		return &SameDayMatch{
			RuleID:  r.ID,
			Message: orDefault(r.Message, defaultSameDayMessage),
			Action:  orDefault(r.Action, defaultSameDayAction),
		}
	}
	return nil
}

// RedFlagEscalation builds the emergency match for an affirmed red-flag
// answer. Red-flag questions carry their own reason text; instructions come
// from the emergency defaults.
func (p *Policy) RedFlagEscalation(rf catalog.RedFlagQuestion, locale string) *EmergencyMatch {
	instructions := p.cat.Emergency.DefaultInstructionsTR
	if len(instructions) == 0 {
		instructions = []string{defaultEmergencyHelpline}
	}
	return &EmergencyMatch{
		RuleID:       rf.ID,
		Severity:     defaultMinSeverity,
		Reason:       orDefault(catalog.LocaleText(rf.Reason, locale), defaultEmergencyReason),
		Instructions: instructions,
		MatchedOn:    []string{"red_flag_answer"},
	}
}

// EmergencyAdjacent reports whether the leading specialty is in the
// configured emergency set or the leading disease label contains an
// emergency keyword.
func (p *Policy) EmergencyAdjacent(topSpecialtyID, topDiseaseLabel string) bool {
	for _, id := range p.cat.StopRules.EmergencySpecialtyIDs {
		if id == topSpecialtyID {
			return true
		}
	}
	label := interpret.Normalize(topDiseaseLabel)
	for _, kw := range p.cat.StopRules.EmergencyDiseaseKeywords {
		if kw = interpret.Normalize(kw); kw != "" && strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

// MaxQuestions resolves the question budget for the session; the emergency
// budget applies to emergency-adjacent sessions.
func (p *Policy) MaxQuestions(topSpecialtyID, topDiseaseLabel string) int {
	budget := p.cat.StopRules.MaxQuestions
	if p.opts.MaxQuestionsOverride > 0 {
		budget = p.opts.MaxQuestionsOverride
	}
	if budget <= 0 {
		budget = defaultMaxQuestions
	}
	emergencyBudget := p.cat.StopRules.MaxQuestionsEmergency
	if emergencyBudget <= 0 {
		return budget
	}
	if p.EmergencyAdjacent(topSpecialtyID, topDiseaseLabel) {
		return emergencyBudget
	}
	return budget
}

// ShouldStop checks the budget and confidence stop rules in order. The
// returned reason is empty when the loop may continue.
func (p *Policy) ShouldStop(in StopInput) (string, bool) {
	if in.TurnIndex >= p.MaxQuestions(in.TopSpecialtyID, in.TopDiseaseLabel) {
		return StopMaxQuestions, true
	}

	hi := p.cat.StopRules.ConfidenceRules.HighConfidenceDiseaseScore
	if hi <= 0 {
		hi = defaultHighDiseaseScore
	}
	if in.TopDiseaseScore >= hi {
		return StopHighConfidence, true
	}
	if p.opts.HighConfidenceThreshold > 0 && in.Confidence >= p.opts.HighConfidenceThreshold {
		return StopHighConfidence, true
	}

	gapMin := p.cat.StopRules.ConfidenceRules.MinSpecialtyScoreGap
	if gapMin <= 0 {
		gapMin = defaultSpecialtyScoreGap
	}
	if in.SpecialtyGap >= gapMin {
		return StopClearWinner, true
	}
	return "", false
}

// StopForQuestion decides the stop reason once the selector has run: an
// exhausted selector ends the loop outright, and a discriminative question
// under the expected-gain floor is not worth asking.
func (p *Policy) StopForQuestion(q *question.Question) (string, bool) {
	if q == nil {
		return StopNoQuestionAvailable, true
	}
	if q.Source == question.SourceDiscriminative && q.Gain < p.opts.MinExpectedGain {
		return StopMinExpectedGain, true
	}
	return "", false
}

// Confidence folds the leading disease score and its separation from the
// runner-up into one 0..1 score.
func Confidence(top1, gap float64) float64 {
	return clamp01(top1*confidenceTopWeight + gap*confidenceGapWeight)
}

// ConfidenceLabel buckets a confidence score into the Turkish label.
func ConfidenceLabel(v float64) string {
	switch {
	case v >= confidenceHighBand:
		return "Yüksek"
	case v >= confidenceMidBand:
		return "Orta"
	default:
		return "Düşük"
	}
}

// predicateHits evaluates the any/all/none canonical predicate. Empty lists
// are vacuously true, so a rule with only a none list fires on absence.
func predicateHits(anyList, allList, noneList []string, cset map[string]struct{}) bool {
	if len(anyList) > 0 && !anyIn(cset, anyList) {
		return false
	}
	for _, c := range allList {
		if _, ok := cset[interpret.Normalize(c)]; !ok {
			return false
		}
	}
	for _, c := range noneList {
		if _, ok := cset[interpret.Normalize(c)]; ok {
			return false
		}
	}
	return true
}

func anyGroupMatches(groups []catalog.RuleGroup, normText string, cset map[string]struct{}) bool {
	for _, g := range groups {
		if len(g.KeywordAny) > 0 && containsAny(normText, g.KeywordAny) {
			return true
		}
		if len(g.KeywordAll) > 0 && containsAll(normText, g.KeywordAll) {
			return true
		}
		if len(g.CanonicalAny) > 0 && anyIn(cset, g.CanonicalAny) {
			return true
		}
	}
	return false
}

func anyIn(cset map[string]struct{}, wanted []string) bool {
	for _, w := range wanted {
		if n := interpret.Normalize(w); n != "" {
			if _, ok := cset[n]; ok {
				return true
			}
		}
	}
	return false
}

func containsAny(text string, phrases []string) bool {
	for _, ph := range phrases {
		if n := interpret.Normalize(ph); n != "" && strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func containsAll(text string, phrases []string) bool {
	if len(phrases) == 0 {
		return false
	}
	for _, ph := range phrases {
		n := interpret.Normalize(ph)
		if n == "" || !strings.Contains(text, n) {
			return false
		}
	}
	return true
}

func normalizeSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for c := range in {
		if n := interpret.Normalize(c); n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
