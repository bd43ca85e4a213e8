package question

import (
	"reflect"
	"testing"

	"github.com/cognicore/triyaj/pkg/triyaj/candidate"
	"github.com/cognicore/triyaj/pkg/triyaj/catalog"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := &catalog.Catalog{
		CanonicalKaggle: map[string][]string{
			"baş ağrısı":     {"Headache"},
			"bulantı":        {"Nausea"},
			"ateş":           {"High Fever"},
			"öksürük":        {"Cough"},
			"öksürük süresi": {"Cough Duration"},
			"balgam":         {"Phlegm"},
			"kaşıntı":        {"Itching"},
		},
		Banks: map[string][]catalog.BankEntry{
			"tr-TR": {
				{Canonical: "baş ağrısı", Question: "Başın ağrıyor mu?", AnswerType: "yes_no"},
				{Canonical: "bulantı", Question: "Bulantın var mı?", AnswerType: "yes_no"},
				{Canonical: "ateş", Question: "Ateşin var mı?", AnswerType: "yes_no",
					WhyAsking: "Ateş, enfeksiyon ihtimalini ayırt eder."},
				{Canonical: "öksürük", Question: "Öksürüğün var mı?", AnswerType: "yes_no"},
				{Canonical: "öksürük süresi", Question: "Öksürük kaç gündür sürüyor?",
					AnswerType: "free_text", PriorityWhenKnown: []string{"öksürük"}},
				{Canonical: "balgam", Question: "Balgam çıkarıyor musun?", AnswerType: "yes_no"},
			},
			"en-US": {
				{Canonical: "ateş", Question: "Do you have a fever?", AnswerType: "yes_no"},
			},
		},
		SkipRules: []catalog.SkipRule{
			{CanonicalSymptom: "balgam", SkipIfDenied: []string{"öksürük"}},
		},
		ContextQuestions: []catalog.ContextQuestion{
			{ID: "age", Question: map[string]string{"tr-TR": "Kaç yaşındasın?"},
				AnswerType: "number", ProfileField: "age", WhenAsk: "always", Order: 1},
			{ID: "sex", Question: map[string]string{"tr-TR": "Cinsiyetin nedir?"},
				AnswerType: "multi_choice", ProfileField: "sex", WhenAsk: "always", Order: 2,
				Choices: map[string][]string{"tr-TR": {"Erkek", "Kadın", "Belirtmek istemiyorum"}}},
			{ID: "pregnancy", Question: map[string]string{"tr-TR": "Hamilelik ihtimali var mı?"},
				AnswerType: "yes_no", ProfileField: "pregnancy", WhenAsk: "when_female_and_relevant",
				WhenSymptomsAny: []string{"bulantı", "karın ağrısı"}, Order: 3},
			{ID: "chronic", Question: map[string]string{"tr-TR": "Bilinen kronik hastalığın var mı?"},
				AnswerType: "yes_no", ProfileField: "chronic", WhenAsk: "always", Order: 4},
		},
		RedFlags: []catalog.RedFlagQuestion{
			{ID: "rf_chest", Question: map[string]string{"tr-TR": "Göğsünde baskı hissi var mı?"},
				Reason:        map[string]string{"tr-TR": "Göğüs ağrısı acil değerlendirme gerektirebilir."},
				Preconditions: catalog.Preconditions{WhenCanonicalAny: []string{"göğüs ağrısı"}}},
			{ID: "rf_fever", Question: map[string]string{"tr-TR": "Ateşin 39 derecenin üzerinde mi?"},
				Reason:        map[string]string{"tr-TR": "Yüksek ateş aynı gün kontrol gerektirebilir."},
				Preconditions: catalog.Preconditions{WhenCanonicalAny: []string{"ateş"}}},
		},
	}
	cat.BuildIndexes()
	return cat
}

func set(items ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func intPtr(n int) *int { return &n }

func twoCandidates() []candidate.Candidate {
	return []candidate.Candidate{
		{DiseaseLabel: "Migraine", MatchedSymptoms: []string{"Headache"}, MissingSymptoms: []string{"Nausea"}},
		{DiseaseLabel: "Flu", MatchedSymptoms: []string{"Headache"}, MissingSymptoms: []string{"High Fever"}},
	}
}

func TestNextContextOrder(t *testing.T) {
	sel := NewSelector(testCatalog(t))

	st := State{AskedContextIDs: set()}
	q := sel.NextContext(st, "tr-TR")
	if q == nil || q.QuestionID != "age" {
		t.Fatalf("first context question = %+v, want age", q)
	}
	if q.Source != SourceContext || q.AnswerType != "number" {
		t.Errorf("question = %+v", q)
	}

	st.Profile.Age = intPtr(34)
	st.AskedContextIDs = set("age")
	q = sel.NextContext(st, "tr-TR")
	if q == nil || q.QuestionID != "sex" {
		t.Fatalf("second context question = %+v, want sex", q)
	}
	if len(q.Choices) != 3 {
		t.Errorf("sex choices = %v", q.Choices)
	}

	st.Profile.Sex = "Kadın"
	st.Known = set("bulantı")
	st.AskedContextIDs = set("age", "sex")
	q = sel.NextContext(st, "tr-TR")
	if q == nil || q.QuestionID != "pregnancy" {
		t.Fatalf("third context question = %+v, want pregnancy", q)
	}

	st.Profile.Pregnancy = "hayır"
	st.AskedContextIDs = set("age", "sex", "pregnancy")
	q = sel.NextContext(st, "tr-TR")
	if q == nil || q.QuestionID != "chronic" {
		t.Fatalf("fourth context question = %+v, want chronic", q)
	}

	st.Profile.Chronic = []string{"Var"}
	st.AskedContextIDs = set("age", "sex", "pregnancy", "chronic")
	if q = sel.NextContext(st, "tr-TR"); q != nil {
		t.Fatalf("exhausted context still returned %+v", q)
	}
}

func TestNextContextPregnancyGates(t *testing.T) {
	sel := NewSelector(testCatalog(t))

	base := State{
		Profile:         Profile{Age: intPtr(30), Sex: "Erkek", Chronic: []string{"Var"}},
		AskedContextIDs: set("age", "sex", "chronic"),
		Known:           set("bulantı"),
	}
	if q := sel.NextContext(base, "tr-TR"); q != nil {
		t.Fatalf("pregnancy asked for male profile: %+v", q)
	}

	female := base
	female.Profile.Sex = "kadin"
	female.Known = set("ateş")
	if q := sel.NextContext(female, "tr-TR"); q != nil {
		t.Fatalf("pregnancy asked without a relevant symptom: %+v", q)
	}

	female.Known = set("bulantı")
	q := sel.NextContext(female, "tr-TR")
	if q == nil || q.QuestionID != "pregnancy" {
		t.Fatalf("pregnancy not asked for female with relevant symptom: %+v", q)
	}
}

func TestNextRedFlag(t *testing.T) {
	sel := NewSelector(testCatalog(t))

	st := State{Known: set("ateş")}
	q := sel.NextRedFlag(st, "tr-TR")
	if q == nil || q.QuestionID != "rf_fever" {
		t.Fatalf("red flag = %+v, want rf_fever", q)
	}
	if q.Source != SourceRedFlag || q.AnswerType != "yes_no" {
		t.Errorf("question = %+v", q)
	}
	if q.WhyAsking == "" {
		t.Errorf("red flag reason missing")
	}

	st.AskedRedFlagIDs = set("rf_fever")
	if q = sel.NextRedFlag(st, "tr-TR"); q != nil {
		t.Fatalf("asked red flag repeated: %+v", q)
	}

	// First matching entry in catalog order wins.
	st = State{Known: set("göğüs ağrısı", "ateş")}
	q = sel.NextRedFlag(st, "tr-TR")
	if q == nil || q.QuestionID != "rf_chest" {
		t.Fatalf("red flag = %+v, want rf_chest", q)
	}
}

func TestNextDiscriminativeSplitsCandidates(t *testing.T) {
	sel := NewSelector(testCatalog(t))

	// Headache is in both candidates (disc 0.5), fever and nausea in one each
	// (disc 1.0). The tie resolves alphabetically: ateş before bulantı.
	st := State{Known: set("baş ağrısı")}
	q := sel.NextDiscriminative(st, twoCandidates(), "tr-TR")
	if q == nil || q.Canonical != "ateş" {
		t.Fatalf("question = %+v, want ateş", q)
	}
	if q.QuestionID != "q_ateş" || q.Source != SourceDiscriminative {
		t.Errorf("question = %+v", q)
	}
	if len(q.Choices) != 2 || q.Choices[0] != "Evet" || q.Choices[1] != "Hayır" {
		t.Errorf("yes/no default choices = %v", q.Choices)
	}
	if q.WhyAsking == "" {
		t.Errorf("why_asking not carried from bank")
	}
}

func TestNextDiscriminativeFilters(t *testing.T) {
	sel := NewSelector(testCatalog(t))

	if q := sel.NextDiscriminative(State{}, twoCandidates()[:1], "tr-TR"); q != nil {
		t.Fatalf("single candidate produced question %+v", q)
	}

	// ateş already asked, bulantı remains.
	st := State{Known: set("baş ağrısı"), AskedCanonicals: set("ateş")}
	q := sel.NextDiscriminative(st, twoCandidates(), "tr-TR")
	if q == nil || q.Canonical != "bulantı" {
		t.Fatalf("question = %+v, want bulantı", q)
	}

	// Everything known or denied leaves nothing to ask.
	st = State{Known: set("baş ağrısı", "ateş"), Denied: set("bulantı")}
	if q := sel.NextDiscriminative(st, twoCandidates(), "tr-TR"); q != nil {
		t.Fatalf("question = %+v, want none", q)
	}

	// Itching has no bank entry and never surfaces.
	cands := []candidate.Candidate{
		{DiseaseLabel: "A", MatchedSymptoms: []string{"Itching"}, MissingSymptoms: []string{"Nausea"}},
		{DiseaseLabel: "B", MatchedSymptoms: []string{"Nausea"}},
	}
	q = sel.NextDiscriminative(State{}, cands, "tr-TR")
	if q == nil || q.Canonical != "bulantı" {
		t.Fatalf("question = %+v, want bulantı", q)
	}
}

func TestNextDiscriminativeSkipRule(t *testing.T) {
	sel := NewSelector(testCatalog(t))

	cands := []candidate.Candidate{
		{DiseaseLabel: "Bronchitis", MatchedSymptoms: []string{"Phlegm"}, MissingSymptoms: []string{"Nausea"}},
		{DiseaseLabel: "Gastritis", MatchedSymptoms: []string{"Nausea"}},
	}

	// Phlegm alone would win on discrimination.
	q := sel.NextDiscriminative(State{}, cands, "tr-TR")
	if q == nil || q.Canonical != "balgam" {
		t.Fatalf("question = %+v, want balgam", q)
	}

	// Denying cough forbids the phlegm detail question.
	st := State{Denied: set("öksürük")}
	q = sel.NextDiscriminative(st, cands, "tr-TR")
	if q == nil || q.Canonical != "bulantı" {
		t.Fatalf("question = %+v, want bulantı after skip rule", q)
	}
}

func TestNextDiscriminativePriorityBoost(t *testing.T) {
	sel := NewSelector(testCatalog(t))

	cands := []candidate.Candidate{
		{DiseaseLabel: "Bronchitis", MatchedSymptoms: []string{"Cough"},
			MissingSymptoms: []string{"Cough Duration", "Nausea"}},
		{DiseaseLabel: "Flu", MatchedSymptoms: []string{"Cough", "Cough Duration"},
			MissingSymptoms: []string{"Nausea"}},
	}

	// All candidates share every symptom; the alphabetical tie-break picks
	// bulantı until the cough confirmation boosts its duration question.
	q := sel.NextDiscriminative(State{}, cands, "tr-TR")
	if q == nil || q.Canonical != "bulantı" {
		t.Fatalf("question = %+v, want bulantı", q)
	}

	st := State{Known: set("öksürük")}
	q = sel.NextDiscriminative(st, cands, "tr-TR")
	if q == nil || q.Canonical != "öksürük süresi" {
		t.Fatalf("question = %+v, want öksürük süresi", q)
	}
	if q.AnswerType != "free_text" || q.Choices != nil {
		t.Errorf("question = %+v", q)
	}
	if q.Gain <= 0.5 {
		t.Errorf("gain = %v, want boosted above 0.5", q.Gain)
	}
}

func TestNextDiscriminativeLocale(t *testing.T) {
	sel := NewSelector(testCatalog(t))

	st := State{Known: set("baş ağrısı")}
	q := sel.NextDiscriminative(st, twoCandidates(), "en-US")
	if q == nil || q.Canonical != "ateş" {
		t.Fatalf("question = %+v, want ateş", q)
	}
	if q.Text != "Do you have a fever?" {
		t.Errorf("text = %q, want the en-US bank entry", q.Text)
	}
}

func TestNextPrecedence(t *testing.T) {
	sel := NewSelector(testCatalog(t))

	st := State{Known: set("ateş", "baş ağrısı")}
	q := sel.Next(st, twoCandidates(), "tr-TR")
	if q == nil || q.Source != SourceContext {
		t.Fatalf("question = %+v, want context first", q)
	}

	st.Profile = Profile{Age: intPtr(40), Sex: "Erkek", Pregnancy: "hayır", Chronic: []string{"Var"}}
	st.AskedContextIDs = set("age", "sex", "pregnancy", "chronic")
	q = sel.Next(st, twoCandidates(), "tr-TR")
	if q == nil || q.Source != SourceRedFlag {
		t.Fatalf("question = %+v, want red flag after context", q)
	}

	st.AskedRedFlagIDs = set("rf_fever", "rf_chest")
	q = sel.Next(st, twoCandidates(), "tr-TR")
	if q == nil || q.Source != SourceDiscriminative {
		t.Fatalf("question = %+v, want discriminative last", q)
	}
	if q.Canonical != "bulantı" {
		t.Errorf("canonical = %q, want bulantı (ateş is known)", q.Canonical)
	}
}

func TestParseContextAnswer(t *testing.T) {
	sel := NewSelector(testCatalog(t))

	upd := sel.ParseContextAnswer("age", "45 yaşındayım")
	if upd.Age == nil || *upd.Age != 45 {
		t.Errorf("age update = %+v", upd)
	}
	if upd = sel.ParseContextAnswer("age", "200"); upd.Age != nil {
		t.Errorf("out-of-range age parsed: %+v", upd)
	}
	if upd = sel.ParseContextAnswer("age", "bilmiyorum"); !upd.Empty() {
		t.Errorf("non-numeric age produced update: %+v", upd)
	}

	if upd = sel.ParseContextAnswer("sex", "kadin"); upd.Sex != "Kadın" {
		t.Errorf("sex = %q, want Kadın", upd.Sex)
	}
	if upd = sel.ParseContextAnswer("sex", "M"); upd.Sex != "Erkek" {
		t.Errorf("sex = %q, want Erkek", upd.Sex)
	}
	// Unrecognized answers pass through for the profile to keep verbatim.
	if upd = sel.ParseContextAnswer("sex", "başka"); upd.Sex != "başka" {
		t.Errorf("sex = %q, want passthrough", upd.Sex)
	}

	if upd = sel.ParseContextAnswer("pregnancy", "Evet"); upd.Pregnancy != "evet" {
		t.Errorf("pregnancy = %q", upd.Pregnancy)
	}
	if upd = sel.ParseContextAnswer("pregnancy", "sanmıyorum"); upd.Pregnancy != "hayır" {
		t.Errorf("pregnancy = %q, want hayır", upd.Pregnancy)
	}

	upd = sel.ParseContextAnswer("chronic", "var")
	if !upd.ChronicSet || !reflect.DeepEqual(upd.Chronic, []string{"Var"}) {
		t.Errorf("chronic update = %+v", upd)
	}
	upd = sel.ParseContextAnswer("chronic", "yok")
	if !upd.ChronicSet || len(upd.Chronic) != 0 {
		t.Errorf("chronic update = %+v", upd)
	}

	if upd = sel.ParseContextAnswer("unknown", "evet"); !upd.Empty() {
		t.Errorf("unknown context id produced update: %+v", upd)
	}
}

func TestIsYes(t *testing.T) {
	for _, yes := range []string{"evet", "Evet", " VAR ", "oldu", "oluyor", "yes", "Evet!"} {
		if !IsYes(yes) {
			t.Errorf("IsYes(%q) = false", yes)
		}
	}
	for _, no := range []string{"hayır", "yok", "", "belki", "evet değil"} {
		if IsYes(no) {
			t.Errorf("IsYes(%q) = true", no)
		}
	}
}
