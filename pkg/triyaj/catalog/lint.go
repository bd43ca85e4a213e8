package catalog

import (
	"fmt"
	"sort"

	"github.com/cognicore/triyaj/pkg/triyaj/interpret"
)

// LintReport collects cross-reference problems between catalog files. Every
// slice is sorted for stable output.
type LintReport struct {
	DiseasesWithoutSpecialty []string            // disease in matrix, absent from disease_to_specialty
	SymptomsWithoutSeverity  []string            // kaggle symptom in matrix, absent from severity table
	CanonicalsWithoutKaggle  []string            // synonym canonicals Layer A can never see
	BankCanonicalsNotInLex   []string            // bank questions the interpreter can never resolve
	SkipTargetsNotInBank     []string            // skip rules pointing at questions that do not exist
	LocalesMissingVariants   map[string][]string // locale → canonicals missing vs default bank
	UnknownSpecialtyMappings []string            // disease_to_specialty ids not in specialty list
}

// Clean reports whether the lint found nothing.
func (r LintReport) Clean() bool {
	return len(r.DiseasesWithoutSpecialty) == 0 &&
		len(r.SymptomsWithoutSeverity) == 0 &&
		len(r.CanonicalsWithoutKaggle) == 0 &&
		len(r.BankCanonicalsNotInLex) == 0 &&
		len(r.SkipTargetsNotInBank) == 0 &&
		len(r.LocalesMissingVariants) == 0 &&
		len(r.UnknownSpecialtyMappings) == 0
}

// Findings flattens the report into printable lines, one per problem.
func (r LintReport) Findings() []string {
	var out []string
	for _, d := range r.DiseasesWithoutSpecialty {
		out = append(out, fmt.Sprintf("disease %q has no specialty mapping", d))
	}
	for _, s := range r.SymptomsWithoutSeverity {
		out = append(out, fmt.Sprintf("kaggle symptom %q has no severity", s))
	}
	for _, c := range r.CanonicalsWithoutKaggle {
		out = append(out, fmt.Sprintf("canonical %q has no kaggle mapping", c))
	}
	for _, c := range r.BankCanonicalsNotInLex {
		out = append(out, fmt.Sprintf("bank canonical %q missing from synonyms", c))
	}
	for _, c := range r.SkipTargetsNotInBank {
		out = append(out, fmt.Sprintf("skip rule target %q missing from bank", c))
	}
	locales := make([]string, 0, len(r.LocalesMissingVariants))
	for loc := range r.LocalesMissingVariants {
		locales = append(locales, loc)
	}
	sort.Strings(locales)
	for _, loc := range locales {
		for _, c := range r.LocalesMissingVariants[loc] {
			out = append(out, fmt.Sprintf("locale %s has no question for %q", loc, c))
		}
	}
	for _, d := range r.UnknownSpecialtyMappings {
		out = append(out, fmt.Sprintf("disease %q maps to unknown specialty", d))
	}
	return out
}

// Lint cross-references the loaded files and reports inconsistencies the
// engine would otherwise hit at runtime.
func (c *Catalog) Lint() LintReport {
	var r LintReport

	for disease := range c.DiseaseSymptoms {
		if _, ok := c.DiseaseSpecialty[disease]; !ok {
			r.DiseasesWithoutSpecialty = append(r.DiseasesWithoutSpecialty, disease)
		}
	}
	sort.Strings(r.DiseasesWithoutSpecialty)

	missingSeverity := make(map[string]struct{})
	for _, symptoms := range c.DiseaseSymptoms {
		for _, s := range symptoms {
			sn := interpret.Normalize(s)
			if _, ok := c.SymptomSeverity[sn]; !ok {
				if _, ok := c.SymptomSeverity[s]; !ok {
					missingSeverity[sn] = struct{}{}
				}
			}
		}
	}
	r.SymptomsWithoutSeverity = sortedKeys(missingSeverity)

	for _, g := range c.Synonyms {
		cn := interpret.Normalize(g.Canonical)
		if len(c.CanonicalKaggle[cn]) == 0 {
			r.CanonicalsWithoutKaggle = append(r.CanonicalsWithoutKaggle, cn)
		}
	}
	sort.Strings(r.CanonicalsWithoutKaggle)

	missingLex := make(map[string]struct{})
	for _, entries := range c.Banks {
		for _, e := range entries {
			cn := interpret.Normalize(e.Canonical)
			if !c.lex.Has(cn) {
				missingLex[cn] = struct{}{}
			}
		}
	}
	r.BankCanonicalsNotInLex = sortedKeys(missingLex)

	missingBank := make(map[string]struct{})
	for _, rule := range c.SkipRules {
		cn := interpret.Normalize(rule.CanonicalSymptom)
		if _, ok := c.BankEntryFor(DefaultLocale, cn); !ok {
			missingBank[cn] = struct{}{}
		}
	}
	r.SkipTargetsNotInBank = sortedKeys(missingBank)

	defaultIdx := c.bankIndex[DefaultLocale]
	for locale := range c.Banks {
		if locale == DefaultLocale {
			continue
		}
		idx := c.bankIndex[locale]
		var missing []string
		for cn := range defaultIdx {
			if _, ok := idx[cn]; !ok {
				missing = append(missing, cn)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			if r.LocalesMissingVariants == nil {
				r.LocalesMissingVariants = make(map[string][]string)
			}
			r.LocalesMissingVariants[locale] = missing
		}
	}

	for disease, ref := range c.DiseaseSpecialty {
		if _, ok := c.specialtyByID[ref.ID]; !ok {
			r.UnknownSpecialtyMappings = append(r.UnknownSpecialtyMappings, disease)
		}
	}
	sort.Strings(r.UnknownSpecialtyMappings)

	return r
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
