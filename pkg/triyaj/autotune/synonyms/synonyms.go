// Package synonyms mines the event log for complaint phrasings the
// interpreter failed to match and turns them into synonym suggestions for
// the catalog's synonym file.
package synonyms

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cognicore/triyaj/pkg/triyaj/interpret"
	"github.com/cognicore/triyaj/pkg/triyaj/store"
)

// Turn is one observed user turn: the raw text and the canonicals the
// interpreter matched in it.
type Turn struct {
	Text       string
	Canonicals []string
}

// TurnSource supplies observed turns.
type TurnSource interface {
	Turns(ctx context.Context) ([]Turn, error)
}

// EventSource mines turns from the session store's event log. Only event
// payloads carrying the turn text qualify; everything else is skipped.
type EventSource struct {
	Store store.Store
	Since time.Time
}

// Turns implements TurnSource.
func (s *EventSource) Turns(ctx context.Context) ([]Turn, error) {
	events, err := s.Store.EventsSince(ctx, s.Since)
	if err != nil {
		return nil, err
	}

	var turns []Turn
	for _, ev := range events {
		if len(ev.Payload) == 0 {
			continue
		}
		var p struct {
			Text       string   `json:"text"`
			Canonicals []string `json:"canonicals"`
		}
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			continue
		}
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		turns = append(turns, Turn{Text: p.Text, Canonicals: p.Canonicals})
	}
	return turns, nil
}

// Suggestion is a proposed synonym variant. Canonical stays empty when no
// confident co-occurrence mapping exists; Score is the confidence of that
// mapping.
type Suggestion struct {
	Canonical string  `json:"canonical,omitempty"`
	Variant   string  `json:"variant"`
	Support   int     `json:"support"`
	Score     float64 `json:"score"`
}

// Thresholds control how much evidence a suggestion needs. MinConfidence
// gates only the canonical mapping; a frequent variant without a mapping is
// still worth surfacing.
type Thresholds struct {
	MinSupport    int
	MinConfidence float64
}

// DefaultThresholds returns the reference thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{MinSupport: 3, MinConfidence: 0.5}
}

// Reviewer optionally performs an extra approval step (human or LLM).
type Reviewer interface {
	Approve(ctx context.Context, sugg Suggestion) (bool, error)
}

// AutoTuner produces ranked synonym suggestions from observed turns.
type AutoTuner struct {
	Source     TurnSource
	Thresholds Thresholds
	Reviewer   Reviewer // optional
}

// Run collects turns, builds suggestions from the unmatched ones, optionally
// routes them through the reviewer, and returns the approved set.
func (t *AutoTuner) Run(ctx context.Context) ([]Suggestion, error) {
	if t.Source == nil {
		return nil, errors.New("synonyms autotune: nil turn source")
	}

	turns, err := t.Source.Turns(ctx)
	if err != nil {
		return nil, err
	}

	suggestions := Suggest(turns, t.thresholdsOrDefault())
	if len(suggestions) == 0 || t.Reviewer == nil {
		return suggestions, nil
	}

	var approved []Suggestion
	for _, sugg := range suggestions {
		ok, err := t.Reviewer.Approve(ctx, sugg)
		if err != nil {
			return nil, err
		}
		if ok {
			approved = append(approved, sugg)
		}
	}
	return approved, nil
}

func (t *AutoTuner) thresholdsOrDefault() Thresholds {
	if t.Thresholds == (Thresholds{}) {
		return DefaultThresholds()
	}
	return t.Thresholds
}

// stopwordsTR are common filler words excluded from suggestion tokens.
var stopwordsTR = map[string]struct{}{
	"ve": {}, "ama": {}, "çok": {}, "bir": {}, "bu": {}, "şu": {}, "var": {},
	"yok": {}, "için": {}, "gibi": {}, "daha": {}, "olan": {}, "oldu": {},
	"oluyor": {}, "olmuyor": {}, "benim": {}, "bende": {}, "bana": {},
	"beni": {}, "başka": {}, "kadar": {}, "sonra": {}, "önce": {},
	"şimdi": {}, "hala": {}, "bile": {},
}

type observation struct {
	text       string
	canonicals []string
}

// Suggest ranks tokens that keep appearing in turns the interpreter could
// not match at all. Support counts token occurrences across those turns; the
// canonical mapping comes from co-occurrence with matched canonicals over
// every turn that mentions the token.
func Suggest(turns []Turn, th Thresholds) []Suggestion {
	obs := make([]observation, 0, len(turns))
	for _, turn := range turns {
		o := observation{text: interpret.Normalize(turn.Text)}
		for _, c := range turn.Canonicals {
			if c = interpret.Normalize(c); c != "" {
				o.canonicals = append(o.canonicals, c)
			}
		}
		if o.text == "" {
			continue
		}
		obs = append(obs, o)
	}

	support := make(map[string]int)
	for _, o := range obs {
		if len(o.canonicals) > 0 {
			continue
		}
		for _, tok := range tokenize(o.text) {
			support[tok]++
		}
	}

	var out []Suggestion
	for tok, cnt := range support {
		if cnt < th.MinSupport {
			continue
		}
		canonical, score := mapToCanonical(tok, obs)
		if score < th.MinConfidence {
			canonical, score = "", 0
		}
		out = append(out, Suggestion{
			Canonical: canonical,
			Variant:   tok,
			Support:   cnt,
			Score:     score,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Support != out[j].Support {
			return out[i].Support > out[j].Support
		}
		return out[i].Variant < out[j].Variant
	})
	return out
}

// tokenize splits normalized text into candidate tokens: at least four runes
// and not a filler word.
func tokenize(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) < 4 {
			continue
		}
		if _, stop := stopwordsTR[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// mapToCanonical picks the canonical that co-occurs most often with the
// token across all turns mentioning it. Ties go to the alphabetically first
// canonical so reruns stay stable.
func mapToCanonical(token string, obs []observation) (string, float64) {
	freq := make(map[string]int)
	total := 0
	for _, o := range obs {
		if !strings.Contains(o.text, token) {
			continue
		}
		for _, c := range o.canonicals {
			freq[c]++
			total++
		}
	}
	if total == 0 {
		return "", 0
	}

	best := ""
	bestN := 0
	for c, n := range freq {
		if n > bestN || (n == bestN && (best == "" || c < best)) {
			best, bestN = c, n
		}
	}
	return best, float64(bestN) / float64(total)
}
