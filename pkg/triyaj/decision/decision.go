// Package decision merges Layer A disease candidates with Layer B specialty
// scores into one final specialty ranking.
package decision

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/triyaj/pkg/triyaj/candidate"
	"github.com/cognicore/triyaj/pkg/triyaj/catalog"
	"github.com/cognicore/triyaj/pkg/triyaj/specialty"
)

// Prior points awarded by Layer A rank; rank 1 is the most likely disease.
var priorPoints = map[int]float64{1: 4, 2: 3, 3: 2, 4: 1, 5: 1}

// fallbackConfidence applies when a ranked disease has no specialty mapping.
const fallbackConfidence = 0.5

// Merged is one specialty's fused score with its components.
type Merged struct {
	ID           string  `json:"id"`
	NameTR       string  `json:"name_tr"`
	FinalScore   float64 `json:"final_score"`
	RulesScore   float64 `json:"rules_score"`
	PriorScore   float64 `json:"prior_score"`
	KeywordScore float64 `json:"keyword_score"`
}

// Result is the complete merge output with trace lines for the debug record.
type Result struct {
	Ranked []Merged `json:"ranked"`
	Trace  []string `json:"trace,omitempty"`
}

// Top returns the winning entry, or false when nothing scored.
func (r Result) Top() (Merged, bool) {
	if len(r.Ranked) == 0 {
		return Merged{}, false
	}
	return r.Ranked[0], true
}

// Gap is the final-score distance between the two leading specialties.
func (r Result) Gap() float64 {
	if len(r.Ranked) < 2 {
		if len(r.Ranked) == 1 {
			return r.Ranked[0].FinalScore
		}
		return 0
	}
	return math.Max(0, r.Ranked[0].FinalScore-r.Ranked[1].FinalScore)
}

// Merger fuses the two scoring layers using the catalog's disease→specialty
// mapping. Pure; safe for concurrent use.
type Merger struct {
	cat *catalog.Catalog
}

// NewMerger builds a merger over the loaded catalog.
func NewMerger(cat *catalog.Catalog) *Merger {
	return &Merger{cat: cat}
}

// Priors converts ranked disease candidates into per-specialty prior scores:
// rank points times mapping confidence, summed per specialty. Diseases with
// no mapping fall back to the catalog's fallback specialty at half weight.
func (m *Merger) Priors(candidates []candidate.Candidate) map[string]float64 {
	priors := make(map[string]float64)
	for i, c := range candidates {
		points, ok := priorPoints[i+1]
		if !ok {
			continue
		}
		id := m.cat.FallbackSpecialty
		confidence := fallbackConfidence
		if ref, ok := m.cat.DiseaseSpecialty[c.DiseaseLabel]; ok {
			id = ref.ID
			confidence = ref.Confidence
		}
		priors[id] += points * confidence
	}
	return priors
}

// Merge computes final = rules + prior for every specialty either layer
// mentions, ordered by final desc, keyword score desc, id asc. An empty
// Layer A leaves the rules ranking; an empty Layer B lets priors drive.
func (m *Merger) Merge(rules []specialty.Score, candidates []candidate.Candidate) Result {
	priors := m.Priors(candidates)

	byID := make(map[string]Merged)
	for _, r := range rules {
		byID[r.ID] = Merged{
			ID:           r.ID,
			NameTR:       r.NameTR,
			RulesScore:   round2(r.Score),
			KeywordScore: round2(r.KeywordScore),
		}
	}
	for id, prior := range priors {
		entry, ok := byID[id]
		if !ok {
			entry = Merged{ID: id, NameTR: m.cat.SpecialtyName(id)}
		}
		entry.PriorScore = round2(prior)
		byID[id] = entry
	}

	ranked := make([]Merged, 0, len(byID))
	for _, entry := range byID {
		entry.FinalScore = round2(entry.RulesScore + entry.PriorScore)
		ranked = append(ranked, entry)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		if ranked[i].KeywordScore != ranked[j].KeywordScore {
			return ranked[i].KeywordScore > ranked[j].KeywordScore
		}
		return ranked[i].ID < ranked[j].ID
	})

	res := Result{Ranked: ranked}
	for _, entry := range ranked {
		if entry.FinalScore == 0 {
			continue
		}
		res.Trace = append(res.Trace, fmt.Sprintf(
			"%s: final=%.2f (rules=%.2f prior=%.2f)",
			entry.ID, entry.FinalScore, entry.RulesScore, entry.PriorScore))
	}
	return res
}

// WhyLines builds the user-facing "neden bu branş" bullets for the winner:
// matched evidence from the rules layer, then supporting disease candidates.
func (m *Merger) WhyLines(top Merged, rules []specialty.Score, candidates []candidate.Candidate, maxLines int) []string {
	var lines []string

	for _, r := range rules {
		if r.ID != top.ID {
			continue
		}
		for _, h := range r.Hits {
			switch h.Kind {
			case "phrase", "keyword":
				lines = append(lines, fmt.Sprintf("Metinden eşleşen belirti: “%s” (+%.1f)", h.Value, h.Points))
			case "negative":
				lines = append(lines, fmt.Sprintf("Dışlayan ifade: “%s” (%.1f)", h.Value, h.Points))
			}
		}
		break
	}

	limit := 3
	if len(candidates) < limit {
		limit = len(candidates)
	}
	for _, c := range candidates[:limit] {
		ref, ok := m.cat.DiseaseSpecialty[c.DiseaseLabel]
		id := m.cat.FallbackSpecialty
		if ok {
			id = ref.ID
		}
		if id != top.ID {
			continue
		}
		lines = append(lines, fmt.Sprintf("Olası durum: %s (%%%d) → %s", c.DiseaseLabel, int(c.Score*100), top.NameTR))
	}

	if len(lines) == 0 {
		lines = append(lines, fmt.Sprintf("Belirti ve cevaplarına göre en uygun branş: %s", top.NameTR))
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
