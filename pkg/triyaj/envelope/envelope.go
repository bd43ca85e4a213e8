// Package envelope assembles the discriminated responses a triage turn
// returns: QUESTION, RESULT, EMERGENCY, SAME_DAY and ERROR.
package envelope

import (
	"math"

	"github.com/cognicore/triyaj/pkg/triyaj/candidate"
	"github.com/cognicore/triyaj/pkg/triyaj/i18n"
	"github.com/cognicore/triyaj/pkg/triyaj/policy"
	"github.com/cognicore/triyaj/pkg/triyaj/question"
)

// Type discriminates the envelope union.
type Type string

// Envelope types.
const (
	TypeQuestion  Type = "QUESTION"
	TypeResult    Type = "RESULT"
	TypeEmergency Type = "EMERGENCY"
	TypeSameDay   Type = "SAME_DAY"
	TypeError     Type = "ERROR"
)

// Urgency values carried on RESULT and EMERGENCY payloads.
const (
	UrgencyEmergency = "EMERGENCY"
	UrgencyERNow     = "ER_NOW"
	UrgencySameDay   = "SAME_DAY"
	UrgencyWithin3   = "WITHIN_3_DAYS"
	UrgencyRoutine   = "ROUTINE"
)

// Error codes carried on ERROR payloads.
const (
	CodeEmptyInput   = "EMPTY_INPUT"
	CodeBadSession   = "BAD_SESSION"
	CodeBadState     = "BAD_STATE"
	CodeCatalogError = "CATALOG_ERROR"
	CodeInternal     = "INTERNAL"
)

// Envelope is the discriminated turn response.
type Envelope struct {
	Type      Type   `json:"envelope_type"`
	SessionID string `json:"session_id"`
	TurnIndex int    `json:"turn_index"`
	Payload   any    `json:"payload"`
	Meta      Meta   `json:"meta"`
}

// Meta decorates every envelope with the fixed disclaimer; same-day hits,
// facility lookups and debug traces ride along when present.
type Meta struct {
	DisclaimerTR string               `json:"disclaimer_tr"`
	SameDay      *policy.SameDayMatch `json:"same_day,omitempty"`
	Facilities   *FacilityMeta        `json:"facility_discovery,omitempty"`
	Debug        map[string]any       `json:"debug,omitempty"`
}

// FacilityMeta lists nearby facilities for the recommended specialty.
type FacilityMeta struct {
	SpecialtyID string         `json:"specialty_id"`
	City        string         `json:"city"`
	Items       []FacilityItem `json:"items"`
	Disclaimer  string         `json:"disclaimer"`
}

// FacilityItem is one directory entry.
type FacilityItem struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Address    string   `json:"address"`
	DistanceKM *float64 `json:"distance_km,omitempty"`
}

// QuestionPayload asks the user one question.
type QuestionPayload struct {
	QuestionID  string   `json:"question_id"`
	Canonical   string   `json:"canonical,omitempty"`
	QuestionTR  string   `json:"question_tr"`
	AnswerType  string   `json:"answer_type"`
	ChoicesTR   []string `json:"choices_tr,omitempty"`
	WhyAskingTR string   `json:"why_asking_tr,omitempty"`
}

// RecommendedSpecialty names the routed specialty.
type RecommendedSpecialty struct {
	ID     string `json:"id"`
	NameTR string `json:"name_tr"`
}

// Condition is one probable disease on the RESULT payload.
type Condition struct {
	DiseaseLabel string  `json:"disease_label"`
	Score        float64 `json:"score_0_1"`
}

// ResultPayload is the final routing recommendation.
type ResultPayload struct {
	Urgency              string               `json:"urgency"`
	RecommendedSpecialty RecommendedSpecialty `json:"recommended_specialty"`
	TopConditions        []Condition          `json:"top_conditions"`
	DoctorSummaryTR      []string             `json:"doctor_ready_summary_tr"`
	SafetyNotesTR        []string             `json:"safety_notes_tr"`
	Confidence           float64              `json:"confidence_0_1"`
	ConfidenceLabelTR    string               `json:"confidence_label_tr"`
	ConfidenceExplainTR  string               `json:"confidence_explain_tr"`
	WhySpecialtyTR       []string             `json:"why_specialty_tr"`
	StopReason           string               `json:"stop_reason"`
	Risk                 policy.RiskReport    `json:"risk"`
}

// EmergencyPayload diverts the user to emergency care. Terminal.
type EmergencyPayload struct {
	Urgency        string   `json:"urgency"`
	ReasonTR       string   `json:"reason_tr"`
	InstructionsTR []string `json:"instructions_tr"`
}

// SameDayPayload ends the session with a same-day recommendation.
type SameDayPayload struct {
	RuleID  string `json:"rule_id"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// ErrorPayload reports a failed turn without advancing the session.
type ErrorPayload struct {
	Code      string `json:"code"`
	MessageTR string `json:"message_tr"`
	Retryable bool   `json:"retryable"`
}

// Urgency derives the RESULT routing urgency: emergency-adjacent sessions
// with high risk route to the ER, a same-day hit or high risk means a
// same-day visit, medium risk a visit within days.
func Urgency(sameDay, emergencyAdjacent bool, riskLevel string) string {
	switch {
	case emergencyAdjacent && riskLevel == policy.RiskHigh:
		return UrgencyERNow
	case sameDay || emergencyAdjacent || riskLevel == policy.RiskHigh:
		return UrgencySameDay
	case riskLevel == policy.RiskMedium:
		return UrgencyWithin3
	default:
		return UrgencyRoutine
	}
}

// Conditions converts ranked disease candidates into payload entries,
// keeping the leading ones up to limit.
func Conditions(cands []candidate.Candidate, limit int) []Condition {
	if limit <= 0 || limit > len(cands) {
		limit = len(cands)
	}
	out := make([]Condition, 0, limit)
	for _, c := range cands[:limit] {
		out = append(out, Condition{DiseaseLabel: c.DiseaseLabel, Score: round2(c.Score)})
	}
	return out
}

// Builder assembles envelopes for one session's locale.
type Builder struct {
	locale string
}

// NewBuilder returns a builder emitting text for the given locale.
func NewBuilder(locale string) *Builder {
	return &Builder{locale: locale}
}

func (b *Builder) meta() Meta {
	return Meta{DisclaimerTR: i18n.Text(b.locale, i18n.KeyDisclaimer)}
}

// Question wraps a selected question; an active same-day hit rides in meta
// when the session continues past it.
func (b *Builder) Question(sessionID string, turnIndex int, q *question.Question, sameDay *policy.SameDayMatch) Envelope {
	m := b.meta()
	m.SameDay = sameDay
	return Envelope{
		Type:      TypeQuestion,
		SessionID: sessionID,
		TurnIndex: turnIndex,
		Payload: QuestionPayload{
			QuestionID:  q.QuestionID,
			Canonical:   q.Canonical,
			QuestionTR:  q.Text,
			AnswerType:  q.AnswerType,
			ChoicesTR:   q.Choices,
			WhyAskingTR: q.WhyAsking,
		},
		Meta: m,
	}
}

// ResultInput carries the computed turn outcome into the RESULT payload.
type ResultInput struct {
	Urgency       string
	SpecialtyID   string
	SpecialtyName string
	Conditions    []Condition
	SummaryTR     []string
	WhyTR         []string
	Confidence    float64
	StopReason    string
	Risk          policy.RiskReport
	SameDay       *policy.SameDayMatch
	Facilities    *FacilityMeta
	Debug         map[string]any
}

// Result assembles the final RESULT envelope. The confidence label and its
// explanation resolve here; safety notes come from the message catalog.
func (b *Builder) Result(sessionID string, turnIndex int, in ResultInput) Envelope {
	label := policy.ConfidenceLabel(in.Confidence)
	m := b.meta()
	m.SameDay = in.SameDay
	m.Facilities = in.Facilities
	m.Debug = in.Debug
	return Envelope{
		Type:      TypeResult,
		SessionID: sessionID,
		TurnIndex: turnIndex,
		Payload: ResultPayload{
			Urgency:              in.Urgency,
			RecommendedSpecialty: RecommendedSpecialty{ID: in.SpecialtyID, NameTR: in.SpecialtyName},
			TopConditions:        in.Conditions,
			DoctorSummaryTR:      in.SummaryTR,
			SafetyNotesTR:        i18n.SafetyNotes(b.locale),
			Confidence:           round2(in.Confidence),
			ConfidenceLabelTR:    label,
			ConfidenceExplainTR:  i18n.ConfidenceExplain(b.locale, label),
			WhySpecialtyTR:       in.WhyTR,
			StopReason:           in.StopReason,
			Risk:                 in.Risk,
		},
		Meta: m,
	}
}

// Emergency wraps a fired emergency rule. Terminal.
func (b *Builder) Emergency(sessionID string, turnIndex int, m *policy.EmergencyMatch) Envelope {
	return Envelope{
		Type:      TypeEmergency,
		SessionID: sessionID,
		TurnIndex: turnIndex,
		Payload: EmergencyPayload{
			Urgency:        UrgencyEmergency,
			ReasonTR:       m.Reason,
			InstructionsTR: m.Instructions,
		},
		Meta: b.meta(),
	}
}

// SameDay wraps a terminal same-day recommendation.
func (b *Builder) SameDay(sessionID string, turnIndex int, m *policy.SameDayMatch) Envelope {
	return Envelope{
		Type:      TypeSameDay,
		SessionID: sessionID,
		TurnIndex: turnIndex,
		Payload:   SameDayPayload{RuleID: m.RuleID, Message: m.Message, Action: m.Action},
		Meta:      b.meta(),
	}
}

// Error reports a failed turn. An empty messageTR resolves from the message
// catalog by code.
func (b *Builder) Error(sessionID string, turnIndex int, code, messageTR string, retryable bool) Envelope {
	if messageTR == "" {
		messageTR = b.errorMessage(code)
	}
	return Envelope{
		Type:      TypeError,
		SessionID: sessionID,
		TurnIndex: turnIndex,
		Payload:   ErrorPayload{Code: code, MessageTR: messageTR, Retryable: retryable},
		Meta:      b.meta(),
	}
}

func (b *Builder) errorMessage(code string) string {
	switch code {
	case CodeEmptyInput:
		return i18n.Text(b.locale, i18n.KeyEmptyInput)
	case CodeBadState:
		return i18n.Text(b.locale, i18n.KeySessionComplete)
	default:
		return i18n.Text(b.locale, i18n.KeyErrorInternal)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
