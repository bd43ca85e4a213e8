// Package memstore is an in-memory store.Store for tests and single-process
// runs. Sessions and events are deep-copied on both save and load so callers
// never share state with the store.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/triyaj/pkg/triyaj/internalerr"
	"github.com/cognicore/triyaj/pkg/triyaj/interpret"
	"github.com/cognicore/triyaj/pkg/triyaj/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]store.Session
	events   map[string][]store.Event
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		sessions: make(map[string]store.Session),
		events:   make(map[string][]store.Event),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// NewID mints a session id.
func (s *Store) NewID() string { return store.NewULID() }

// Load returns a deep copy of the session with the given id.
func (s *Store) Load(ctx context.Context, id string) (store.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return store.Session{}, false, nil
	}
	return copySession(sess), true, nil
}

// Save inserts or replaces a session keyed by its id.
func (s *Store) Save(ctx context.Context, sess store.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("save session: %w", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = copySession(sess)
	return nil
}

// AppendEvent records an emitted envelope. Re-appending the same
// (session id, turn index, envelope type) is a no-op; events for sessions
// that were never saved are rejected.
func (s *Store) AppendEvent(ctx context.Context, e store.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[e.SessionID]; !ok {
		return fmt.Errorf("append event for session %q: %w", e.SessionID, internalerr.ErrNotFound)
	}
	for _, have := range s.events[e.SessionID] {
		if have.TurnIndex == e.TurnIndex && have.EnvelopeType == e.EnvelopeType {
			return nil
		}
	}
	s.events[e.SessionID] = append(s.events[e.SessionID], copyEvent(e))
	return nil
}

// EventsBySession returns a session's events ordered by turn index, then
// envelope type.
func (s *Store) EventsBySession(ctx context.Context, sessionID string) ([]store.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.events[sessionID]
	out := make([]store.Event, len(evs))
	for i, e := range evs {
		out[i] = copyEvent(e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TurnIndex != out[j].TurnIndex {
			return out[i].TurnIndex < out[j].TurnIndex
		}
		return out[i].EnvelopeType < out[j].EnvelopeType
	})
	return out, nil
}

// EventsSince returns every event created at or after the given time,
// oldest first.
func (s *Store) EventsSince(ctx context.Context, since time.Time) ([]store.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Event
	for _, evs := range s.events {
		for _, e := range evs {
			if e.CreatedAt.Before(since) {
				continue
			}
			out = append(out, copyEvent(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].SessionID != out[j].SessionID {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].TurnIndex < out[j].TurnIndex
	})
	return out, nil
}

// CountSessions returns the number of stored sessions.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

// DeleteSessionsBefore removes sessions last updated before the cutoff,
// together with their events.
func (s *Store) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			delete(s.events, id)
			deleted++
		}
	}
	return deleted, nil
}

func copySession(sess store.Session) store.Session {
	out := sess
	out.Known = copyStrings(sess.Known)
	out.Denied = copyStrings(sess.Denied)
	out.AskedCanonicals = copyStrings(sess.AskedCanonicals)
	out.AskedContextIDs = copyStrings(sess.AskedContextIDs)
	out.AskedRedFlagIDs = copyStrings(sess.AskedRedFlagIDs)
	out.Debug = copyStrings(sess.Debug)

	out.Profile.Chronic = copyStrings(sess.Profile.Chronic)
	if sess.Profile.Age != nil {
		age := *sess.Profile.Age
		out.Profile.Age = &age
	}

	if sess.Answers != nil {
		out.Answers = make(map[string]string, len(sess.Answers))
		for k, v := range sess.Answers {
			out.Answers[k] = v
		}
	}
	if sess.ParsedAnswers != nil {
		out.ParsedAnswers = make(map[string]interpret.ParsedAnswer, len(sess.ParsedAnswers))
		for k, v := range sess.ParsedAnswers {
			if v.DurationDays != nil {
				d := *v.DurationDays
				v.DurationDays = &d
			}
			if v.Severity != nil {
				sev := *v.Severity
				v.Severity = &sev
			}
			out.ParsedAnswers[k] = v
		}
	}
	if sess.LastQuestion != nil {
		q := *sess.LastQuestion
		q.Choices = copyStrings(q.Choices)
		out.LastQuestion = &q
	}
	return out
}

func copyEvent(e store.Event) store.Event {
	out := e
	if e.Payload != nil {
		out.Payload = append(json.RawMessage(nil), e.Payload...)
	}
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
