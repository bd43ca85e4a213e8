// Package specialty implements Layer B: keyword/phrase scoring of medical
// branches against interpreted user text. Scoring never counts the same
// canonical twice for one specialty, and ordering is fully deterministic.
package specialty

import (
	"sort"
	"strings"

	"github.com/cognicore/triyaj/pkg/triyaj/catalog"
	"github.com/cognicore/triyaj/pkg/triyaj/interpret"
)

// Hit traces one scoring event for explainability.
type Hit struct {
	Kind   string  `json:"kind"` // phrase | keyword | negative
	Value  string  `json:"value"`
	Points float64 `json:"points"`
}

// Score is the accumulated result for one specialty.
type Score struct {
	ID                string   `json:"id"`
	NameTR            string   `json:"name_tr"`
	Score             float64  `json:"score"`
	PhraseScore       float64  `json:"phrase_score"`
	KeywordScore      float64  `json:"keyword_score"`
	NegativePenalties float64  `json:"negative_penalties"`
	MatchedPhrases    []string `json:"matched_phrases_tr,omitempty"`
	MatchedKeywords   []string `json:"matched_keywords_tr,omitempty"`
	MatchedCanonicals []string `json:"matched_canonicals,omitempty"`
	Hits              []Hit    `json:"hits,omitempty"`
}

// TopPick is the winning specialty with a tie flag for downstream policy.
type TopPick struct {
	ID     string  `json:"id"`
	NameTR string  `json:"name_tr"`
	Score  float64 `json:"score"`
	Tie    bool    `json:"tie,omitempty"`
}

// Scorer scores interpreted text against every configured specialty.
type Scorer struct {
	cat *catalog.Catalog
}

// NewScorer builds a scorer over the loaded catalog.
func NewScorer(cat *catalog.Catalog) *Scorer {
	return &Scorer{cat: cat}
}

// Score runs the three scoring passes per specialty and returns all
// specialties ordered by score desc, keyword score desc, id asc.
func (s *Scorer) Score(res interpret.Result) []Score {
	points := s.cat.Scoring

	out := make([]Score, 0, len(s.cat.Specialties))
	for _, spec := range s.cat.Specialties {
		keywords := make(map[string]struct{}, len(spec.Keywords))
		for _, k := range spec.Keywords {
			keywords[interpret.Normalize(k)] = struct{}{}
		}

		sc := Score{ID: spec.ID, NameTR: spec.NameTR}
		scored := make(map[string]struct{})

		// Phrase pass: a locked canonical matches when the canonical itself
		// or its surface phrase appears in the specialty's keyword list.
		for _, hit := range res.Phrases {
			if _, done := scored[hit.Canonical]; done {
				continue
			}
			_, byCanonical := keywords[hit.Canonical]
			_, byPhrase := keywords[hit.Phrase]
			if !byCanonical && !byPhrase {
				continue
			}
			sc.Score += points.PhraseMatchPoints
			sc.PhraseScore += points.PhraseMatchPoints
			scored[hit.Canonical] = struct{}{}
			sc.MatchedPhrases = append(sc.MatchedPhrases, hit.Phrase)
			sc.Hits = append(sc.Hits, Hit{Kind: "phrase", Value: hit.Phrase, Points: points.PhraseMatchPoints})
		}

		// Keyword pass over canonicals the phrase pass did not lock.
		for _, canonical := range res.Keywords {
			if _, done := scored[canonical]; done {
				continue
			}
			if _, ok := keywords[canonical]; !ok {
				continue
			}
			sc.Score += points.KeywordMatchPoints
			sc.KeywordScore += points.KeywordMatchPoints
			scored[canonical] = struct{}{}
			sc.MatchedKeywords = append(sc.MatchedKeywords, canonical)
			sc.Hits = append(sc.Hits, Hit{Kind: "keyword", Value: canonical, Points: points.KeywordMatchPoints})
		}

		// Negative keywords hit on the raw normalized text.
		for _, neg := range spec.NegativeKeywords {
			nn := interpret.Normalize(neg)
			if nn == "" || !strings.Contains(res.Normalized, nn) {
				continue
			}
			sc.Score += points.NegativeKeywordPenalty
			sc.NegativePenalties += points.NegativeKeywordPenalty
			sc.Hits = append(sc.Hits, Hit{Kind: "negative", Value: nn, Points: points.NegativeKeywordPenalty})
		}

		sc.MatchedCanonicals = sortedKeys(scored)
		out = append(out, sc)
	}

	Sort(out)
	return out
}

// Sort orders scores by score desc, keyword score desc, id asc.
func Sort(scores []Score) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		if scores[i].KeywordScore != scores[j].KeywordScore {
			return scores[i].KeywordScore > scores[j].KeywordScore
		}
		return scores[i].ID < scores[j].ID
	})
}

// Top picks the winner from sorted scores. A non-positive top score falls
// back to the catalog's fallback specialty; an exact tie on both score and
// keyword score is flagged.
func (s *Scorer) Top(scores []Score) TopPick {
	if len(scores) == 0 || scores[0].Score <= 0 {
		id := s.cat.FallbackSpecialty
		return TopPick{ID: id, NameTR: s.cat.SpecialtyName(id)}
	}
	top := TopPick{ID: scores[0].ID, NameTR: scores[0].NameTR, Score: scores[0].Score}
	if len(scores) > 1 &&
		scores[0].Score == scores[1].Score &&
		scores[0].KeywordScore == scores[1].KeywordScore {
		top.Tie = true
	}
	return top
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
