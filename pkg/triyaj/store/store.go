// Package store persists triage sessions and their envelope event log. The
// Session aggregate carries everything a turn needs to resume a conversation;
// Event rows are the append-only audit trail of emitted envelopes. Backends
// live in the memstore and sqlite subpackages.
package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/triyaj/pkg/triyaj/interpret"
	"github.com/cognicore/triyaj/pkg/triyaj/question"
)

// Profile holds the demographic answers collected by context questions.
// Pregnancy keeps the literal answer ("evet"/"hayır") so the policy can tell
// an explicit no from never-asked.
type Profile struct {
	Age       *int     `json:"age,omitempty"`
	Sex       string   `json:"sex,omitempty"`
	Pregnancy string   `json:"pregnant,omitempty"`
	Chronic   []string `json:"chronic,omitempty"`
}

// Session is the full state of one triage conversation. Locale is pinned at
// creation and never changes; TurnIndex increments once per emitted envelope.
// Known and Denied stay disjoint through the Know/Deny helpers.
type Session struct {
	ID        string    `json:"session_id"`
	Locale    string    `json:"locale"`
	TurnIndex int       `json:"turn_index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Profile Profile `json:"profile"`

	Known           []string `json:"known_symptoms,omitempty"`
	Denied          []string `json:"denied_symptoms,omitempty"`
	AskedCanonicals []string `json:"asked_canonicals,omitempty"`
	AskedContextIDs []string `json:"asked_context_ids,omitempty"`
	AskedRedFlagIDs []string `json:"asked_red_flag_ids,omitempty"`

	Answers       map[string]string                 `json:"answers,omitempty"`
	ParsedAnswers map[string]interpret.ParsedAnswer `json:"parsed_answers,omitempty"`

	LastContextID string             `json:"last_context_id,omitempty"`
	LastQuestion  *question.Question `json:"last_question,omitempty"`

	LastEnvelopeType string   `json:"envelope_type,omitempty"`
	StopReason       string   `json:"stop_reason,omitempty"`
	Terminal         bool     `json:"terminal,omitempty"`
	Debug            []string `json:"debug,omitempty"`
}

// Event is one row of the append-only envelope log. The payload is whatever
// JSON the orchestrator chose to record for the turn.
type Event struct {
	SessionID    string          `json:"session_id"`
	TurnIndex    int             `json:"turn_index"`
	EnvelopeType string          `json:"envelope_type"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Store persists sessions and their event log. Implementations provide
// read-your-writes within a session.
type Store interface {
	// Load returns the session with the given id, reporting whether it exists.
	Load(ctx context.Context, id string) (Session, bool, error)
	// Save inserts or replaces a session keyed by its id.
	Save(ctx context.Context, s Session) error
	// AppendEvent records an emitted envelope. Appending the same
	// (session id, turn index, envelope type) again is a no-op.
	AppendEvent(ctx context.Context, e Event) error
	// EventsBySession returns a session's events ordered by turn index.
	EventsBySession(ctx context.Context, sessionID string) ([]Event, error)
	// EventsSince returns every event created at or after the given time,
	// across sessions, oldest first.
	EventsSince(ctx context.Context, since time.Time) ([]Event, error)
	// CountSessions returns the number of stored sessions.
	CountSessions(ctx context.Context) (int, error)
	// DeleteSessionsBefore removes sessions last updated before the cutoff,
	// together with their events, and returns how many were removed.
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int, error)
	// NewID mints a session id.
	NewID() string
	// Close releases the backing resources.
	Close() error
}

// NewSession creates an empty session with the locale pinned.
func NewSession(id, locale string, now time.Time) Session {
	now = now.UTC()
	return Session{ID: id, Locale: locale, CreatedAt: now, UpdatedAt: now}
}

// Know adds a canonical to the known set. Denied canonicals stay denied, so
// the two sets remain disjoint.
func (s *Session) Know(canonical string) {
	if canonical == "" || contains(s.Denied, canonical) {
		return
	}
	s.Known = appendOnce(s.Known, canonical)
}

// Deny records a denied canonical. When removeKnown is set an earlier
// confirmation is dropped first; otherwise the confirmation wins and the
// denial is ignored.
func (s *Session) Deny(canonical string, removeKnown bool) {
	if canonical == "" {
		return
	}
	if contains(s.Known, canonical) {
		if !removeKnown {
			return
		}
		s.Known = remove(s.Known, canonical)
	}
	s.Denied = appendOnce(s.Denied, canonical)
}

// Knows reports whether the canonical is in the known set.
func (s *Session) Knows(canonical string) bool { return contains(s.Known, canonical) }

// Denies reports whether the canonical is in the denied set.
func (s *Session) Denies(canonical string) bool { return contains(s.Denied, canonical) }

// MarkAsked appends the canonical to the asked list, once, in ask order.
func (s *Session) MarkAsked(canonical string) {
	if canonical == "" {
		return
	}
	s.AskedCanonicals = appendOnce(s.AskedCanonicals, canonical)
}

// MarkContextAsked records a context question id as asked.
func (s *Session) MarkContextAsked(id string) {
	if id == "" {
		return
	}
	s.AskedContextIDs = appendOnce(s.AskedContextIDs, id)
}

// MarkRedFlagAsked records a red-flag question id as asked.
func (s *Session) MarkRedFlagAsked(id string) {
	if id == "" {
		return
	}
	s.AskedRedFlagIDs = appendOnce(s.AskedRedFlagIDs, id)
}

// RecordAnswer stores the raw answer for a canonical and, when parsing
// produced anything, the structured fields alongside it. Parsed fields are
// never written without their raw answer.
func (s *Session) RecordAnswer(canonical, raw string, parsed interpret.ParsedAnswer) {
	if canonical == "" {
		return
	}
	if s.Answers == nil {
		s.Answers = make(map[string]string)
	}
	s.Answers[canonical] = raw
	if parsed.Empty() {
		return
	}
	if s.ParsedAnswers == nil {
		s.ParsedAnswers = make(map[string]interpret.ParsedAnswer)
	}
	s.ParsedAnswers[canonical] = parsed
}

// SetOf turns a stored string list into the set form the question selector
// reads.
func SetOf(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, v := range list {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a lexicographically sortable unique id. Ids minted within
// the same millisecond stay strictly increasing.
func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func contains(list []string, v string) bool {
	for _, have := range list {
		if have == v {
			return true
		}
	}
	return false
}

func appendOnce(list []string, v string) []string {
	if contains(list, v) {
		return list
	}
	return append(list, v)
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, have := range list {
		if have != v {
			out = append(out, have)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
