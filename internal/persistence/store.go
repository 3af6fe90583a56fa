package persistence

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/STARREPORTS/internal/state"
	"github.com/STARREPORTS/internal/types"
)

// Store interface for the domain store. Mutations on unknown ids are
// no-ops; the bool results report whether the target was found.
type Store interface {
	Load() (*types.State, error)
	Save() error
	Close() error
	GetState() *types.State
	OnChange(fn func(Change))
	OnPersistError(fn func(error))

	// School years
	AddSchoolYear(y types.SchoolYear)
	UpdateSchoolYear(id string, patch types.SchoolYearPatch) bool
	DeleteSchoolYear(id string) bool
	SetActiveSchoolYear(id string) bool
	GetSchoolYear(id string) (types.SchoolYear, bool)

	// Grades
	AddGrade(g types.Grade)
	UpdateGrade(id string, patch types.GradePatch) bool
	DeleteGrade(id string) bool
	GetGrade(id string) (types.Grade, bool)

	// Assessment templates
	AddTemplate(t types.AssessmentTemplate)
	UpdateTemplate(id string, patch types.AssessmentTemplatePatch) bool
	DeleteTemplate(id string) bool
	DuplicateTemplate(id, yearID string, opts state.DuplicateOptions) (types.AssessmentTemplate, bool)
	GetTemplate(id string) (types.AssessmentTemplate, bool)

	// Students
	AddStudent(st types.Student)
	UpdateStudent(id string, patch types.StudentPatch) bool
	DeleteStudent(id string) bool
	GetStudent(id string) (types.Student, bool)

	// Reports
	AddReport(r types.StudentReport)
	UpdateReport(id string, patch types.StudentReportPatch) bool
	DeleteReport(id string) bool
	GetReport(id string) (types.StudentReport, bool)
	AddExamResult(reportID string, e types.ExamResult) bool
	UpdateExamResult(reportID, examID string, patch types.ExamResultPatch) bool
	DeleteExamResult(reportID, examID string) bool
	UpdateReportReflection(reportID string, patch types.ReflectionPatch) bool
	SignReport(reportID string, role types.SignatureRole, name string) bool
	UpdateReportEntry(reportID, pointID string, patch types.ReportEntryPatch) bool
	UpdateSubjectComment(reportID, subjectID string, patch types.SubjectCommentPatch) bool

	// Sharing
	AssignShareToken(reportID string) (string, bool, error)
	RevokeShareToken(reportID string) bool
	ResolveByToken(token string) (types.StudentReport, bool)

	// Documents
	AddDocument(d types.StudentDocument)
	UpdateDocument(id string, patch types.StudentDocumentPatch) bool
	DeleteDocument(id string) bool
	GetDocument(id string) (types.StudentDocument, bool)

	// Settings
	UpdateAppSettings(patch types.AppSettingsPatch)
	GetSettings() types.AppSettings
}

// JSONStore implements Store, writing a JSON snapshot through a Backend
// after every mutation
type JSONStore struct {
	mu      sync.RWMutex
	backend Backend
	state   *types.State
	now     func() time.Time
	newID   state.IDFunc

	listenersMu    sync.RWMutex
	changeHandlers []func(Change)
	persistHandler func(error)
	warned         bool

	// Debounced save; zero saveDelay saves synchronously
	saveDelay time.Duration
	saveTimer *time.Timer
	saveMu    sync.Mutex
	timerMu   sync.Mutex
}

// NewJSONStore creates a store persisting through backend
func NewJSONStore(backend Backend, saveDelay time.Duration) *JSONStore {
	return &JSONStore{
		backend:   backend,
		state:     types.NewState(),
		now:       time.Now,
		newID:     uuid.NewString,
		saveDelay: saveDelay,
	}
}

// SetClock replaces the time source
func (s *JSONStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// SetIDFunc replaces the id generator used for duplicated templates
func (s *JSONStore) SetIDFunc(fn state.IDFunc) {
	s.mu.Lock()
	s.newID = fn
	s.mu.Unlock()
}

// Load rehydrates the state from the backend. A missing snapshot yields the
// default state.
func (s *JSONStore) Load() (*types.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Read()
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			s.state = types.NewState()
			return s.state.Clone(), nil
		}
		return nil, err
	}

	st, version, err := DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	if version != SnapshotVersion {
		log.Printf("[STORE] Migrated snapshot from version %d to %d", version, SnapshotVersion)
	}

	s.state = st
	return s.state.Clone(), nil
}

// Save writes the current state through the backend
func (s *JSONStore) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	data, err := EncodeSnapshot(s.state, s.now())
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	return s.backend.Write(data)
}

// Close stops any pending save, flushes the state and closes the backend
func (s *JSONStore) Close() error {
	s.timerMu.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	s.timerMu.Unlock()

	saveErr := s.Save()
	closeErr := s.backend.Close()
	return errors.Join(saveErr, closeErr)
}

// OnChange registers fn to run after every mutation that changed the state
func (s *JSONStore) OnChange(fn func(Change)) {
	s.listenersMu.Lock()
	s.changeHandlers = append(s.changeHandlers, fn)
	s.listenersMu.Unlock()
}

// OnPersistError sets the handler for the first failed save of the session
func (s *JSONStore) OnPersistError(fn func(error)) {
	s.listenersMu.Lock()
	s.persistHandler = fn
	s.listenersMu.Unlock()
}

// persist saves now or schedules a debounced save
func (s *JSONStore) persist() {
	if s.saveDelay <= 0 {
		s.saveAndReport()
		return
	}

	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(s.saveDelay, s.saveAndReport)
}

func (s *JSONStore) saveAndReport() {
	err := s.Save()
	if err == nil {
		return
	}
	log.Printf("[STORE] Failed to save snapshot: %v", err)

	s.listenersMu.Lock()
	handler := s.persistHandler
	first := !s.warned
	s.warned = true
	s.listenersMu.Unlock()

	if first && handler != nil {
		handler(err)
	}
}

// apply runs a transform under the write lock, then persists and notifies
// when it changed something
func (s *JSONStore) apply(change Change, fn func(st *types.State, now time.Time) (*types.State, bool)) bool {
	s.mu.Lock()
	next, ok := fn(s.state, s.now())
	if ok {
		s.state = next
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.persist()
	s.notify(change)
	return true
}

func (s *JSONStore) notify(change Change) {
	s.listenersMu.RLock()
	handlers := append([]func(Change){}, s.changeHandlers...)
	s.listenersMu.RUnlock()

	for _, fn := range handlers {
		fn(change)
	}
}

// GetState returns a deep copy of the current state
func (s *JSONStore) GetState() *types.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// find returns a deep copy of the first item matching
func find[T any](s *JSONStore, items func(*types.State) []T, match func(T) bool) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	for _, item := range items(s.state) {
		if match(item) {
			return deepCopy(item), true
		}
	}
	return zero, false
}

func deepCopy[T any](v T) T {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// always adapts a transform that cannot miss
func always(next *types.State) (*types.State, bool) {
	return next, true
}
