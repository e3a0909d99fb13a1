package tasks

import (
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/plsync/internal/models"
)

// Trace levels.
const (
	LevelInfo    = "INFO"
	LevelSuccess = "SUCCESS"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// TraceStore collects per-track decision lines from concurrent searches.
// It lives for one search batch and is safe for concurrent use.
type TraceStore struct {
	mu     sync.Mutex
	now    func() time.Time
	traces map[string]*models.Trace
	order  []string
}

// NewTraceStore creates an empty store. A nil now means [time.Now].
func NewTraceStore(now func() time.Time) *TraceStore {
	if now == nil {
		now = time.Now
	}
	return &TraceStore{now: now, traces: make(map[string]*models.Trace)}
}

// For returns the tracer carrying trackID as its correlation token.
func (s *TraceStore) For(trackID string) *TrackTracer {
	return &TrackTracer{store: s, id: trackID}
}

func (s *TraceStore) append(id, level, msg string) {
	line := models.TraceLine{At: s.now(), Level: level, Message: msg}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.traces[id]
	if !ok {
		t = &models.Trace{TrackID: id}
		s.traces[id] = t
		s.order = append(s.order, id)
	}
	t.Lines = append(t.Lines, line)
}

// Traces returns copies of every trace in the order tracks were first seen.
func (s *TraceStore) Traces() []models.Trace {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Trace, 0, len(s.order))
	for _, id := range s.order {
		t := s.traces[id]
		lines := make([]models.TraceLine, len(t.Lines))
		copy(lines, t.Lines)
		out = append(out, models.Trace{TrackID: id, Lines: lines})
	}
	return out
}

// Len returns the number of traced tracks.
func (s *TraceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// TrackTracer appends lines to one track's trace. It implements matching.Tracer.
type TrackTracer struct {
	store *TraceStore
	id    string
}

// ID is the source track id the tracer records under.
func (t *TrackTracer) ID() string {
	return t.id
}

// Tracef records an INFO line.
func (t *TrackTracer) Tracef(format string, args ...any) {
	t.Logf(LevelInfo, format, args...)
}

// Logf records a line at level.
func (t *TrackTracer) Logf(level, format string, args ...any) {
	if t == nil || t.store == nil {
		return
	}
	t.store.append(t.id, level, fmt.Sprintf(format, args...))
}
