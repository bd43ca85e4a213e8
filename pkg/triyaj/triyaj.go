// Package triyaj orchestrates multi-turn Turkish medical pre-triage
// conversations. Each turn folds the user's free text and structured answer
// into the session, reranks disease candidates and specialties, checks the
// emergency and same-day rules, and answers with exactly one envelope:
// QUESTION, RESULT, EMERGENCY, SAME_DAY or ERROR. The engine is fully
// deterministic; identical catalogs and identical turns reproduce identical
// envelopes.
package triyaj

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cognicore/triyaj/internal/logging"
	"github.com/cognicore/triyaj/pkg/triyaj/candidate"
	"github.com/cognicore/triyaj/pkg/triyaj/catalog"
	"github.com/cognicore/triyaj/pkg/triyaj/config"
	"github.com/cognicore/triyaj/pkg/triyaj/decision"
	"github.com/cognicore/triyaj/pkg/triyaj/envelope"
	"github.com/cognicore/triyaj/pkg/triyaj/facility"
	"github.com/cognicore/triyaj/pkg/triyaj/i18n"
	"github.com/cognicore/triyaj/pkg/triyaj/internalerr"
	"github.com/cognicore/triyaj/pkg/triyaj/interpret"
	"github.com/cognicore/triyaj/pkg/triyaj/policy"
	"github.com/cognicore/triyaj/pkg/triyaj/question"
	"github.com/cognicore/triyaj/pkg/triyaj/specialty"
	"github.com/cognicore/triyaj/pkg/triyaj/store"
)

// whyLineLimit caps the why-this-specialty explanation on RESULT payloads.
const whyLineLimit = 4

// Options configures an Engine.
type Options struct {
	// Catalog is the loaded reference data. Required.
	Catalog *catalog.Catalog
	// Store persists sessions and their event log. Required; the engine
	// takes ownership and closes it on Close.
	Store store.Store
	// Facilities is the optional directory behind the location hint on
	// RESULT envelopes.
	Facilities *facility.Directory
	// Policy overrides the catalog's stop-policy defaults.
	Policy config.Policy
	// Debug attaches scoring traces to RESULT envelope meta.
	Debug bool
}

// Engine runs the triage loop. Safe for concurrent use; turns on the same
// session are rejected rather than queued.
type Engine struct {
	cat        *catalog.Catalog
	store      store.Store
	facilities *facility.Directory
	interp     *interpret.Interpreter
	gen        *candidate.Generator
	scorer     *specialty.Scorer
	merger     *decision.Merger
	selector   *question.Selector
	pol        *policy.Policy
	cfg        config.Policy
	debug      bool

	mu     sync.Mutex
	inTurn map[string]struct{}
}

// New builds an engine over a loaded catalog and a session store.
func New(opts Options) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("engine: %w: catalog is required", internalerr.ErrInvalidConfig)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("engine: %w: store is required", internalerr.ErrInvalidConfig)
	}
	interp := interpret.NewInterpreter(opts.Catalog.Lexicon())
	interp.SetNegation(opts.Catalog.NegationEnabled(), nil)
	return &Engine{
		cat:        opts.Catalog,
		store:      opts.Store,
		facilities: opts.Facilities,
		interp:     interp,
		gen:        candidate.NewGenerator(opts.Catalog),
		scorer:     specialty.NewScorer(opts.Catalog),
		merger:     decision.NewMerger(opts.Catalog),
		selector:   question.NewSelector(opts.Catalog),
		pol:        policy.New(opts.Catalog, opts.Policy.Options()),
		cfg:        opts.Policy,
		debug:      opts.Debug,
		inTurn:     make(map[string]struct{}),
	}, nil
}

// Close releases the session store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// TurnRequest is one user turn. SessionID empty means start a new session;
// Locale is only read on that first turn and pinned afterwards.
type TurnRequest struct {
	SessionID   string        `json:"session_id,omitempty"`
	Locale      string        `json:"locale,omitempty"`
	UserMessage string        `json:"user_message,omitempty"`
	Answer      *Answer       `json:"answer,omitempty"`
	Profile     *ProfileInput `json:"profile,omitempty"`
	Lat         *float64      `json:"lat,omitempty"`
	Lon         *float64      `json:"lon,omitempty"`
}

// Answer replies to a previously asked question. Canonical carries the
// canonical symptom of a bank question or the id of a context or red-flag
// question; it may stay empty when answering the question asked last turn.
type Answer struct {
	Canonical string `json:"canonical,omitempty"`
	Value     string `json:"value"`
}

// ProfileInput seeds the session profile from the client. Set fields
// overwrite; nil and empty fields leave the profile alone.
type ProfileInput struct {
	Age      *int     `json:"age,omitempty"`
	Sex      string   `json:"sex,omitempty"`
	Pregnant *bool    `json:"pregnant,omitempty"`
	Chronic  []string `json:"chronic,omitempty"`
}

// turnEvent is the event-log payload: the turn's raw text and the canonicals
// its interpretation matched stay at the top level so the synonym miner can
// read them, with the emitted envelope alongside.
type turnEvent struct {
	Text       string            `json:"text,omitempty"`
	Canonicals []string          `json:"canonicals,omitempty"`
	Envelope   envelope.Envelope `json:"envelope"`
}

// StartSession creates and persists an empty session. HandleTurn also
// creates sessions implicitly when called without a session id.
func (e *Engine) StartSession(ctx context.Context, locale string) (store.Session, error) {
	sess := store.NewSession(e.store.NewID(), normalizeLocale(locale), time.Now())
	if err := e.store.Save(ctx, sess); err != nil {
		return store.Session{}, fmt.Errorf("start session: %w", err)
	}
	log.Debug().Str("session", logging.MaskID(sess.ID)).Str("locale", sess.Locale).Msg("session started")
	return sess, nil
}

// HandleTurn runs one turn and returns exactly one envelope. Failures never
// escape as errors or panics; they surface as ERROR envelopes and leave the
// session unchanged.
func (e *Engine) HandleTurn(ctx context.Context, req TurnRequest) (env envelope.Envelope) {
	locale := normalizeLocale(req.Locale)
	b := envelope.NewBuilder(locale)
	sessionID := strings.TrimSpace(req.SessionID)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("session", logging.MaskID(sessionID)).Msg("turn panicked")
			env = b.Error(sessionID, 0, envelope.CodeInternal, "", true)
		}
	}()

	if sessionID != "" {
		if !e.acquire(sessionID) {
			log.Warn().Err(internalerr.ErrConcurrentTurn).Str("session", logging.MaskID(sessionID)).Msg("turn rejected")
			return b.Error(sessionID, 0, envelope.CodeBadState, i18n.Text(locale, i18n.KeyConcurrentTurn), false)
		}
		defer e.release(sessionID)
	}

	message := strings.TrimSpace(req.UserMessage)

	var sess store.Session
	if sessionID == "" {
		if message == "" && req.Answer == nil {
			return b.Error("", 0, envelope.CodeEmptyInput, "", true)
		}
		sess = store.NewSession(e.store.NewID(), locale, time.Now())
	} else {
		loaded, ok, err := e.store.Load(ctx, sessionID)
		if err != nil {
			log.Error().Err(err).Str("session", logging.MaskID(sessionID)).Msg("session load failed")
			return b.Error(sessionID, 0, envelope.CodeInternal, "", true)
		}
		if !ok {
			return b.Error(sessionID, 0, envelope.CodeBadSession, "", false)
		}
		sess = loaded
		b = envelope.NewBuilder(sess.Locale)
		if sess.Terminal {
			return b.Error(sess.ID, sess.TurnIndex, envelope.CodeBadState, "", false)
		}
		if message == "" && req.Answer == nil {
			return b.Error(sess.ID, sess.TurnIndex, envelope.CodeEmptyInput, "", true)
		}
	}

	if len(e.cat.Bank(sess.Locale)) == 0 {
		return b.Error(sessionID, sess.TurnIndex, envelope.CodeCatalogError, "", false)
	}

	turn := sess.TurnIndex + 1
	applyProfile(&sess, req.Profile)

	var escalation *policy.EmergencyMatch
	if req.Answer != nil {
		var ok bool
		escalation, ok = e.ingestAnswer(&sess, req.Answer)
		if !ok {
			return b.Error(sessionID, sess.TurnIndex, envelope.CodeBadState,
				i18n.Text(sess.Locale, i18n.KeyUnknownAnswer), false)
		}
	}

	var res interpret.Result
	if message != "" {
		res = e.interp.Interpret(message)
		removeKnown := e.deniedRemoves()
		for _, d := range res.Denied {
			sess.Deny(d, removeKnown)
		}
		for _, c := range res.Canonicals() {
			sess.Know(c)
		}
	}
	matched := append(res.Canonicals(), res.Denied...)

	// Emergency diversion: an affirmed red flag or a fired rule. Terminal.
	known := store.SetOf(sess.Known)
	if escalation == nil {
		escalation = e.pol.Emergency(message, known, maxDuration(&sess))
	}
	if escalation != nil {
		return e.emit(ctx, b, &sess, b.Emergency(sess.ID, turn, escalation), matched, message, true, policy.StopEmergency)
	}

	sameDay := e.pol.SameDay(known)
	if sameDay != nil && !e.cfg.SameDayContinues() {
		return e.emit(ctx, b, &sess, b.SameDay(sess.ID, turn, sameDay), matched, message, true, policy.StopSameDay)
	}

	cands := e.gen.Generate(known)
	scores := e.scorer.Score(res)
	merged := e.merger.Merge(scores, cands)

	top1, gap := candidate.Top(cands)
	conf := policy.Confidence(top1, gap)
	topSpec, ok := merged.Top()
	if !ok || topSpec.FinalScore <= 0 {
		topSpec = decision.Merged{
			ID:     e.cat.FallbackSpecialty,
			NameTR: e.cat.SpecialtyName(e.cat.FallbackSpecialty),
		}
	}
	topDisease := ""
	if len(cands) > 0 {
		topDisease = cands[0].DiseaseLabel
	}

	sess.Debug = append(sess.Debug, fmt.Sprintf("turn %d: known=%d candidates=%d specialty=%s confidence=%.2f",
		turn, len(sess.Known), len(cands), topSpec.ID, conf))
	sess.Debug = append(sess.Debug, merged.Trace...)

	reason, stop := e.pol.ShouldStop(policy.StopInput{
		TurnIndex:       sess.TurnIndex,
		TopSpecialtyID:  topSpec.ID,
		TopDiseaseLabel: topDisease,
		TopDiseaseScore: top1,
		Confidence:      conf,
		SpecialtyGap:    merged.Gap(),
	})
	var q *question.Question
	if !stop {
		q = e.selector.Next(e.questionState(&sess), cands, sess.Locale)
		reason, stop = e.pol.StopForQuestion(q)
	}

	if !stop {
		switch q.Source {
		case question.SourceContext:
			sess.LastContextID = q.QuestionID
		case question.SourceDiscriminative:
			sess.MarkAsked(q.Canonical)
		}
		// Red-flag ids are only marked once answered so an ignored
		// question is asked again.
		sess.LastQuestion = q
		return e.emit(ctx, b, &sess, b.Question(sess.ID, turn, q, sameDay), matched, message, false, "")
	}

	dur := maxDuration(&sess)
	pregnant := question.IsYes(sess.Profile.Pregnancy)
	risk := e.pol.Risk(policy.RiskInput{
		Canonicals:   sess.Known,
		Confidence:   conf,
		SameDay:      sameDay != nil,
		DurationDays: dur,
		Age:          sess.Profile.Age,
		Pregnant:     pregnant,
	})
	in := envelope.ResultInput{
		Urgency:       envelope.Urgency(sameDay != nil, e.pol.EmergencyAdjacent(topSpec.ID, topDisease), risk.Level),
		SpecialtyID:   topSpec.ID,
		SpecialtyName: topSpec.NameTR,
		Conditions:    envelope.Conditions(cands, 3),
		SummaryTR: envelope.Summary(envelope.SummaryInput{
			Canonicals:   sess.Known,
			Confidence:   conf,
			StopReason:   reason,
			SameDay:      sameDay != nil,
			DurationDays: dur,
			Age:          sess.Profile.Age,
			Pregnant:     pregnant,
		}),
		WhyTR:      e.merger.WhyLines(topSpec, scores, cands, whyLineLimit),
		Confidence: conf,
		StopReason: reason,
		Risk:       risk,
		SameDay:    sameDay,
		Facilities: e.facilityMeta(topSpec.ID, sess.Locale, req.Lat, req.Lon),
		Debug:      e.debugMeta(res, cands, merged),
	}
	return e.emit(ctx, b, &sess, b.Result(sess.ID, turn, in), matched, message, true, reason)
}

// ingestAnswer folds a structured answer into the session: a pending context
// question fills the profile, a pending red-flag question may escalate, and
// a bank answer updates the symptom sets or the answer record. The bool is
// false when the answer refers to a question this session never asked.
func (e *Engine) ingestAnswer(sess *store.Session, ans *Answer) (*policy.EmergencyMatch, bool) {
	value := strings.TrimSpace(ans.Value)
	canonical := interpret.Normalize(ans.Canonical)

	if sess.LastContextID != "" && (canonical == "" || canonical == interpret.Normalize(sess.LastContextID)) {
		upd := e.selector.ParseContextAnswer(sess.LastContextID, value)
		applyUpdate(&sess.Profile, upd)
		sess.MarkContextAsked(sess.LastContextID)
		sess.LastContextID = ""
		return nil, true
	}

	if rfID := pendingRedFlag(sess, canonical); rfID != "" {
		sess.MarkRedFlagAsked(rfID)
		sess.RecordAnswer(rfID, value, interpret.ParsedAnswer{})
		if question.IsYes(value) {
			if rf, ok := e.cat.RedFlagByID(rfID); ok {
				return e.pol.RedFlagEscalation(rf, sess.Locale), true
			}
		}
		return nil, true
	}

	if canonical == "" && sess.LastQuestion != nil && sess.LastQuestion.Source == question.SourceDiscriminative {
		canonical = sess.LastQuestion.Canonical
	}
	if canonical == "" || !has(sess.AskedCanonicals, canonical) {
		return nil, false
	}
	sess.MarkAsked(canonical)

	answerType := "yes_no"
	if entry, ok := e.cat.BankEntryFor(sess.Locale, canonical); ok {
		answerType = entry.AnswerType
	}
	switch {
	case answerType == "yes_no" && question.IsYes(value):
		sess.Know(canonical)
	case answerType == "yes_no" && question.IsNo(value):
		sess.Deny(canonical, e.deniedRemoves())
	default:
		sess.RecordAnswer(canonical, value, interpret.ParseAnswer(canonical, value, e.cat.AnswerSets()))
	}
	return nil, true
}

// pendingRedFlag returns the id of the red-flag question this answer replies
// to, or empty when none is pending.
func pendingRedFlag(sess *store.Session, canonical string) string {
	q := sess.LastQuestion
	if q == nil || q.Source != question.SourceRedFlag {
		return ""
	}
	if canonical != "" && canonical != interpret.Normalize(q.QuestionID) {
		return ""
	}
	if has(sess.AskedRedFlagIDs, q.QuestionID) {
		return ""
	}
	return q.QuestionID
}

// emit finalizes a session-advancing envelope: it moves the session to the
// envelope's turn, persists it and appends the event row. The context is
// checked first so an expired turn is abandoned with nothing written.
func (e *Engine) emit(ctx context.Context, b *envelope.Builder, sess *store.Session, env envelope.Envelope, matched []string, message string, terminal bool, stopReason string) envelope.Envelope {
	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Str("session", logging.MaskID(sess.ID)).Msg("turn abandoned")
		return b.Error(sess.ID, env.TurnIndex-1, envelope.CodeInternal, "", true)
	}

	sess.TurnIndex = env.TurnIndex
	sess.LastEnvelopeType = string(env.Type)
	sess.Terminal = terminal
	if stopReason != "" {
		sess.StopReason = stopReason
	}
	sess.UpdatedAt = time.Now().UTC()

	if err := e.store.Save(ctx, *sess); err != nil {
		log.Error().Err(err).Str("session", logging.MaskID(sess.ID)).Msg("session save failed")
		return b.Error(sess.ID, env.TurnIndex-1, envelope.CodeInternal, "", true)
	}

	payload, _ := json.Marshal(turnEvent{Text: message, Canonicals: matched, Envelope: env})
	ev := store.Event{
		SessionID:    sess.ID,
		TurnIndex:    env.TurnIndex,
		EnvelopeType: string(env.Type),
		Payload:      payload,
		CreatedAt:    sess.UpdatedAt,
	}
	if err := e.store.AppendEvent(ctx, ev); err != nil {
		log.Warn().Err(err).Str("session", logging.MaskID(sess.ID)).Msg("event append failed")
	}

	log.Debug().
		Str("session", logging.MaskID(sess.ID)).
		Int("turn", env.TurnIndex).
		Str("envelope", string(env.Type)).
		Msg("turn complete")
	return env
}

// facilityMeta resolves nearby facilities when the request carried a
// location and a directory is loaded.
func (e *Engine) facilityMeta(specialtyID, locale string, lat, lon *float64) *envelope.FacilityMeta {
	if e.facilities == nil || lat == nil || lon == nil {
		return nil
	}
	found := e.facilities.Find(facility.Query{SpecialtyID: specialtyID, Locale: locale, Lat: lat, Lon: lon})
	items := make([]envelope.FacilityItem, 0, len(found.Items))
	for _, it := range found.Items {
		items = append(items, envelope.FacilityItem{
			Name:       it.Name,
			Type:       it.Type,
			Address:    it.Address,
			DistanceKM: it.DistanceKM,
		})
	}
	return &envelope.FacilityMeta{
		SpecialtyID: found.SpecialtyID,
		City:        found.City,
		Items:       items,
		Disclaimer:  found.Disclaimer,
	}
}

func (e *Engine) debugMeta(res interpret.Result, cands []candidate.Candidate, merged decision.Result) map[string]any {
	if !e.debug {
		return nil
	}
	return map[string]any{
		"interpreted": res.Canonicals(),
		"denied":      res.Denied,
		"candidates":  envelope.Conditions(cands, 5),
		"decision":    merged.Trace,
	}
}

func (e *Engine) questionState(sess *store.Session) question.State {
	return question.State{
		Profile: question.Profile{
			Age:       sess.Profile.Age,
			Sex:       sess.Profile.Sex,
			Pregnancy: sess.Profile.Pregnancy,
			Chronic:   sess.Profile.Chronic,
		},
		Known:           store.SetOf(sess.Known),
		Denied:          store.SetOf(sess.Denied),
		AskedCanonicals: store.SetOf(sess.AskedCanonicals),
		AskedContextIDs: store.SetOf(sess.AskedContextIDs),
		AskedRedFlagIDs: store.SetOf(sess.AskedRedFlagIDs),
	}
}

// deniedRemoves resolves the denial override: engine config wins over the
// catalog flag.
func (e *Engine) deniedRemoves() bool {
	if e.cfg.DeniedRemovesKnown != nil {
		return *e.cfg.DeniedRemovesKnown
	}
	return e.cat.DeniedRemovesKnown()
}

// acquire reserves the session for this turn. It fails instead of blocking;
// a session only ever runs one turn at a time.
func (e *Engine) acquire(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inTurn[id]; busy {
		return false
	}
	e.inTurn[id] = struct{}{}
	return true
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	delete(e.inTurn, id)
	e.mu.Unlock()
}

// applyProfile overlays client-supplied profile fields onto the session.
func applyProfile(sess *store.Session, p *ProfileInput) {
	if p == nil {
		return
	}
	if p.Age != nil {
		sess.Profile.Age = p.Age
	}
	if s := strings.TrimSpace(p.Sex); s != "" {
		sess.Profile.Sex = s
	}
	if p.Pregnant != nil {
		if *p.Pregnant {
			sess.Profile.Pregnancy = "evet"
		} else {
			sess.Profile.Pregnancy = "hayır"
		}
	}
	if len(p.Chronic) > 0 {
		sess.Profile.Chronic = append([]string(nil), p.Chronic...)
	}
}

// applyUpdate folds a parsed context answer into the profile.
func applyUpdate(p *store.Profile, upd question.ProfileUpdate) {
	if upd.Age != nil {
		p.Age = upd.Age
	}
	if upd.Sex != "" {
		p.Sex = upd.Sex
	}
	if upd.Pregnancy != "" {
		p.Pregnancy = upd.Pregnancy
	}
	if upd.ChronicSet {
		p.Chronic = upd.Chronic
	}
}

// maxDuration returns the longest symptom duration any answer parsed so far.
func maxDuration(sess *store.Session) *int {
	var out *int
	for _, pa := range sess.ParsedAnswers {
		if pa.DurationDays == nil {
			continue
		}
		if out == nil || *pa.DurationDays > *out {
			v := *pa.DurationDays
			out = &v
		}
	}
	return out
}

func normalizeLocale(locale string) string {
	if l := strings.TrimSpace(locale); l != "" {
		return l
	}
	return catalog.DefaultLocale
}

func has(list []string, v string) bool {
	for _, have := range list {
		if have == v {
			return true
		}
	}
	return false
}
