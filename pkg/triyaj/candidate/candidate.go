// Package candidate implements Layer A: deterministic disease candidate
// generation with weighted Jaccard similarity over the kaggle-space
// disease/symptom matrix.
package candidate

import (
	"math"
	"sort"

	"github.com/cognicore/triyaj/pkg/triyaj/catalog"
)

// Candidate is one ranked disease with its kaggle-space evidence.
type Candidate struct {
	DiseaseLabel    string   `json:"disease_label"`
	Score           float64  `json:"score_0_1"`
	MatchedSymptoms []string `json:"matched_symptoms"`
	MissingSymptoms []string `json:"missing_symptoms"`
}

// Generator scores diseases against the user's symptoms. It is pure: no
// state is mutated between calls and identical inputs rank identically.
type Generator struct {
	cat    *catalog.Catalog
	params catalog.GeneratorParams
}

// NewGenerator builds a generator over the loaded catalog.
func NewGenerator(cat *catalog.Catalog) *Generator {
	return &Generator{cat: cat, params: cat.Generator}
}

// weight is 1.0 + severity × multiplier for known symptoms, 1.0 otherwise.
func (g *Generator) weight(symptom string) float64 {
	w := g.params.DefaultSymptomWeight
	if sev, ok := g.cat.SymptomSeverity[symptom]; ok {
		w += float64(sev) * g.params.SeverityWeightMultiplier
	}
	return w
}

// expand maps the user's canonicals into the kaggle symptom space.
func (g *Generator) expand(canonicals map[string]struct{}) map[string]struct{} {
	kaggle := make(map[string]struct{})
	for c := range canonicals {
		for _, s := range g.cat.KaggleFor(c) {
			kaggle[s] = struct{}{}
		}
	}
	return kaggle
}

// Generate ranks diseases by weighted Jaccard between the user's expanded
// symptom set and each disease's symptom set. Candidates below the configured
// minimum are dropped; ties break on the disease label.
func (g *Generator) Generate(canonicals map[string]struct{}) []Candidate {
	if len(canonicals) == 0 {
		return nil
	}
	user := g.expand(canonicals)
	if len(user) == 0 {
		return nil
	}

	var results []Candidate
	for disease, symptoms := range g.cat.DiseaseSymptoms {
		diseaseSet := make(map[string]struct{}, len(symptoms))
		for _, s := range symptoms {
			diseaseSet[s] = struct{}{}
		}

		var num, den float64
		var matched, missing []string
		for s := range diseaseSet {
			w := g.weight(s)
			den += w
			if _, ok := user[s]; ok {
				num += w
				matched = append(matched, s)
			} else {
				missing = append(missing, s)
			}
		}
		for s := range user {
			if _, ok := diseaseSet[s]; !ok {
				den += g.weight(s)
			}
		}
		if den <= 0 {
			continue
		}

		score := round4(num / den)
		if score < g.params.MinScoreToInclude {
			continue
		}
		sort.Strings(matched)
		sort.Strings(missing)
		results = append(results, Candidate{
			DiseaseLabel:    disease,
			Score:           score,
			MatchedSymptoms: matched,
			MissingSymptoms: missing,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DiseaseLabel < results[j].DiseaseLabel
	})

	if len(results) > g.params.TopK {
		results = results[:g.params.TopK]
	}
	return results
}

// Top returns the leading score and the gap to the runner-up.
func Top(candidates []Candidate) (top1, gap float64) {
	if len(candidates) == 0 {
		return 0, 0
	}
	top1 = candidates[0].Score
	if len(candidates) > 1 {
		gap = math.Max(0, top1-candidates[1].Score)
	} else {
		gap = top1
	}
	return top1, gap
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
