package interpret

import (
	"strings"

	"github.com/cognicore/triyaj/pkg/triyaj/lexicon"
)

// DefaultNegationCues are the Turkish negation markers scanned after a match.
var DefaultNegationCues = []string{"yok", "değil", "hayır", "olmuyor", "olmadı", "değilim"}

// negationWindow is how many runes after a matched span are searched for a cue.
const negationWindow = 18

// Interpreter maps free text to canonical symptoms with two deterministic
// passes over the synonym index: a phrase pass (variants, longest first) and
// a keyword pass (canonical literals, alphabetical). A canonical is never
// counted twice; the phrase pass locks it against the keyword pass.
type Interpreter struct {
	lex      *lexicon.Lexicon
	negation bool
	cues     []string
}

// NewInterpreter builds an interpreter over the given synonym index with
// negation scanning enabled using the default cues.
func NewInterpreter(lex *lexicon.Lexicon) *Interpreter {
	return &Interpreter{lex: lex, negation: true, cues: DefaultNegationCues}
}

// SetNegation toggles the negation scan. Empty cues keep the defaults.
func (in *Interpreter) SetNegation(enabled bool, cues []string) {
	in.negation = enabled
	if len(cues) > 0 {
		in.cues = cues
	}
}

// PhraseHit records a phrase-pass match: the canonical it locked and the
// surface literal that matched.
type PhraseHit struct {
	Canonical string
	Phrase    string
}

// Result is the interpreter output for one text.
type Result struct {
	Normalized string
	Phrases    []PhraseHit // phrase-pass hits in scan order
	Keywords   []string    // keyword-pass canonicals in alphabetical order
	Denied     []string    // canonicals negated by a trailing cue, in match order
}

// Canonicals returns the affirmed canonicals: phrase hits in scan order
// followed by keyword hits, duplicates impossible by construction.
func (r Result) Canonicals() []string {
	out := make([]string, 0, len(r.Phrases)+len(r.Keywords))
	for _, h := range r.Phrases {
		out = append(out, h.Canonical)
	}
	out = append(out, r.Keywords...)
	return out
}

// Interpret normalizes the text and runs both matching passes. It never fails
// on user input; unmatched text simply produces an empty result.
func (in *Interpreter) Interpret(text string) Result {
	normalized := Normalize(text)
	res := Result{Normalized: normalized}
	if normalized == "" {
		return res
	}

	locked := make(map[string]bool)

	for _, entry := range in.lex.OrderedVariants() {
		if locked[entry.Canonical] {
			continue
		}
		if !strings.Contains(normalized, entry.Variant) {
			continue
		}
		locked[entry.Canonical] = true
		if in.negated(normalized, entry.Variant) {
			res.Denied = append(res.Denied, entry.Canonical)
			continue
		}
		res.Phrases = append(res.Phrases, PhraseHit{Canonical: entry.Canonical, Phrase: entry.Variant})
	}

	for _, canonical := range in.lex.Canonicals() {
		if locked[canonical] {
			continue
		}
		if !strings.Contains(normalized, canonical) {
			continue
		}
		locked[canonical] = true
		if in.negated(normalized, canonical) {
			res.Denied = append(res.Denied, canonical)
			continue
		}
		res.Keywords = append(res.Keywords, canonical)
	}

	return res
}

// negated reports whether a negation cue follows the first occurrence of the
// matched literal within the scan window.
func (in *Interpreter) negated(text, literal string) bool {
	if !in.negation {
		return false
	}
	idx := strings.Index(text, literal)
	if idx < 0 {
		return false
	}
	after := []rune(text[idx+len(literal):])
	if len(after) > negationWindow {
		after = after[:negationWindow]
	}
	window := string(after)
	for _, cue := range in.cues {
		if strings.Contains(window, cue) {
			return true
		}
	}
	return false
}
