package rewrite

import (
	"sync"
	"time"

	"github.com/STARREPORTS/internal/types"
)

// TargetKind says which report field a rewrite is for
type TargetKind string

const (
	TargetEntry   TargetKind = "entry"
	TargetComment TargetKind = "comment"
)

// Target identifies one rewritable field: an entry by assessment point id
// or a subject comment by subject id
type Target struct {
	ReportID string     `json:"report_id"`
	Kind     TargetKind `json:"kind"`
	Key      string     `json:"key"`
}

// Staged is a rewrite waiting for the user to accept it
type Staged struct {
	Target   Target    `json:"target"`
	Text     string    `json:"text"`
	Seq      uint64    `json:"seq"`
	StagedAt time.Time `json:"staged_at"`
}

// ReportWriter is the part of the store that accepted rewrites go through
type ReportWriter interface {
	UpdateReportEntry(reportID, pointID string, patch types.ReportEntryPatch) bool
	UpdateSubjectComment(reportID, subjectID string, patch types.SubjectCommentPatch) bool
}

// Staging holds the latest rewrite per target. Nothing staged reaches the
// store until Accept.
type Staging struct {
	mu     sync.Mutex
	seq    uint64
	latest map[Target]uint64
	slots  map[Target]Staged
}

// NewStaging creates an empty staging area
func NewStaging() *Staging {
	return &Staging{
		latest: make(map[Target]uint64),
		slots:  make(map[Target]Staged),
	}
}

// Begin reserves a sequence number for a new request on t. Any request
// begun earlier on t becomes stale.
func (s *Staging) Begin(t Target) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.latest[t] = s.seq
	return s.seq
}

// Put stages text for t if seq is still the latest request. Stale results
// are dropped and Put returns false.
func (s *Staging) Put(t Target, seq uint64, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[t] != seq {
		return false
	}
	s.slots[t] = Staged{Target: t, Text: text, Seq: seq, StagedAt: time.Now().UTC()}
	return true
}

// Get returns the staged rewrite for t
func (s *Staging) Get(t Target) (Staged, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.slots[t]
	return st, ok
}

// ForReport lists the staged rewrites of one report
func (s *Staging) ForReport(reportID string) []Staged {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Staged{}
	for t, st := range s.slots {
		if t.ReportID == reportID {
			out = append(out, st)
		}
	}
	return out
}

// Discard drops the staged rewrite for t and invalidates requests in flight
func (s *Staging) Discard(t Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, t)
	delete(s.latest, t)
}

// Accept writes the staged text into the report through w and clears the
// slot. It returns false when nothing is staged or the report is gone.
func (s *Staging) Accept(t Target, w ReportWriter) (string, bool) {
	s.mu.Lock()
	st, ok := s.slots[t]
	if ok {
		delete(s.slots, t)
		delete(s.latest, t)
	}
	s.mu.Unlock()
	if !ok {
		return "", false
	}

	text := st.Text
	switch t.Kind {
	case TargetEntry:
		ok = w.UpdateReportEntry(t.ReportID, t.Key, types.ReportEntryPatch{AIRewrittenText: &text})
	case TargetComment:
		ok = w.UpdateSubjectComment(t.ReportID, t.Key, types.SubjectCommentPatch{AIRewrittenComment: &text})
	default:
		ok = false
	}
	return text, ok
}

// Valid reports whether t names a known field kind and is fully set
func (t Target) Valid() bool {
	return t.ReportID != "" && t.Key != "" && (t.Kind == TargetEntry || t.Kind == TargetComment)
}
