package lexicon

import "sort"

// Lexicon stores the synonym index mapping surface phrases in patient text to
// canonical symptom names:
// - Variants: surface forms as users type them ("başım ağrıyor", "migren")
// - Canonical: the catalog's single name for the concept ("baş ağrısı")
//
// Design principles:
// - Bidirectional: normalize a variant to its canonical OR expand a canonical
//   to all known variants
// - Deterministic: the phrase-pass order (length descending, ties by variant
//   ascending) is fixed so identical inputs always match identically
// - Built from the synonyms catalog at startup; read-only afterwards
type Lexicon struct {
	// canonical -> all variants (canonical itself first)
	groups map[string][]string

	// variant -> canonical (canonical maps to itself)
	reverse map[string]string

	// canonical -> group kind ("phrase" or "keyword")
	kinds map[string]string

	// variants ordered for the phrase pass; rebuilt lazily after AddGroup
	ordered []Entry
	dirty   bool
}

// Entry is one surface variant with its canonical target.
type Entry struct {
	Variant   string
	Canonical string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		groups:  make(map[string][]string),
		reverse: make(map[string]string),
		kinds:   make(map[string]string),
	}
}

// AddGroup registers a synonym group. Inputs are expected to be normalized
// already (the catalog loader normalizes with the Turkish-aware folding).
// The canonical is always the first entry of its own variant list. If the
// group already exists, stale reverse entries are cleaned up first.
func (l *Lexicon) AddGroup(canonical, kind string, variants []string) {
	if canonical == "" {
		return
	}

	if old, exists := l.groups[canonical]; exists {
		for _, v := range old {
			delete(l.reverse, v)
		}
	}

	normalized := make([]string, 0, len(variants)+1)
	seen := make(map[string]bool, len(variants)+1)
	normalized = append(normalized, canonical)
	seen[canonical] = true
	for _, v := range variants {
		if v == "" || seen[v] {
			continue
		}
		normalized = append(normalized, v)
		seen[v] = true
	}

	l.groups[canonical] = normalized
	l.kinds[canonical] = kind
	for _, v := range normalized {
		l.reverse[v] = canonical
	}
	l.dirty = true
}

// Canonical resolves a surface form to its canonical symptom name.
func (l *Lexicon) Canonical(s string) (string, bool) {
	c, ok := l.reverse[s]
	return c, ok
}

// Normalize returns the canonical form of a surface phrase, or the phrase
// itself when it is unknown.
func (l *Lexicon) Normalize(s string) string {
	if c, ok := l.reverse[s]; ok {
		return c
	}
	return s
}

// Variants returns all known surface forms of a symptom, canonical first.
// Unknown inputs yield a single-element slice with the input itself.
func (l *Lexicon) Variants(s string) []string {
	if vs, ok := l.groups[s]; ok {
		return vs
	}
	if c, ok := l.reverse[s]; ok {
		if vs, ok := l.groups[c]; ok {
			return vs
		}
	}
	return []string{s}
}

// Kind returns the group kind recorded for a canonical ("phrase"/"keyword").
func (l *Lexicon) Kind(canonical string) string {
	return l.kinds[canonical]
}

// Has reports whether the canonical is a known symptom name.
func (l *Lexicon) Has(canonical string) bool {
	_, ok := l.groups[canonical]
	return ok
}

// OrderedVariants returns the variants for the phrase pass: every non-canonical
// surface form, longest first, ties broken by variant ascending. The canonical
// literals themselves are covered by the keyword pass instead.
func (l *Lexicon) OrderedVariants() []Entry {
	if l.dirty || l.ordered == nil {
		l.rebuild()
	}
	return l.ordered
}

// Canonicals returns every canonical name in alphabetical order, the fixed
// iteration order of the keyword pass.
func (l *Lexicon) Canonicals() []string {
	out := make([]string, 0, len(l.groups))
	for c := range l.groups {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (l *Lexicon) rebuild() {
	entries := make([]Entry, 0, len(l.reverse))
	for canonical, variants := range l.groups {
		for _, v := range variants {
			if v == canonical {
				continue
			}
			entries = append(entries, Entry{Variant: v, Canonical: canonical})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		li, lj := len(entries[i].Variant), len(entries[j].Variant)
		if li != lj {
			return li > lj
		}
		return entries[i].Variant < entries[j].Variant
	})
	l.ordered = entries
	l.dirty = false
}

// Stats holds counts over the lexicon contents.
type Stats struct {
	Groups   int // number of canonical symptom names
	Variants int // total surface forms across all groups
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() Stats {
	total := 0
	for _, vs := range l.groups {
		total += len(vs)
	}
	return Stats{Groups: len(l.groups), Variants: total}
}
