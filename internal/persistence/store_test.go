package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/STARREPORTS/internal/state"
	"github.com/STARREPORTS/internal/types"
)

func newFileStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "state.json")
	store := NewJSONStore(NewFileBackend(path), 0)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return store, path
}

func reload(t *testing.T, path string) *types.State {
	t.Helper()
	store := NewJSONStore(NewFileBackend(path), 0)
	st, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return st
}

// failingBackend fails every write
type failingBackend struct {
	mu     sync.Mutex
	writes int
}

func (b *failingBackend) Read() ([]byte, error) { return nil, ErrNoSnapshot }
func (b *failingBackend) Write([]byte) error {
	b.mu.Lock()
	b.writes++
	b.mu.Unlock()
	return errors.New("disk full")
}
func (b *failingBackend) Close() error { return nil }

func TestLoadMissingSnapshot(t *testing.T) {
	store, path := newFileStore(t)

	st := store.GetState()
	if len(st.SchoolYears) != 0 || len(st.Reports) != 0 {
		t.Errorf("expected empty state, got %+v", st)
	}
	if st.Settings.SchoolName != types.DefaultSettings().SchoolName {
		t.Errorf("expected default settings, got %+v", st.Settings)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Load should not create the snapshot file, stat err = %v", err)
	}
}

func TestLoadLegacySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	legacy := `{
		"school_years": [{"id": "y1", "name": "2024", "start_year": 2024, "end_year": 2025, "is_active": true}],
		"assessment_templates": [{"id": "t1", "grade_id": "g1", "school_year_id": "y1", "name": "Rubric",
			"points": [{"id": "p1", "label": "Listening", "max_stars": 3}]}]
	}`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	st := reload(t, path)
	if st.ActiveSchoolYearID != "y1" {
		t.Errorf("ActiveSchoolYearID = %q, want y1", st.ActiveSchoolYearID)
	}
	if st.Templates[0].Points[0].Name != "Listening" {
		t.Errorf("label not folded into name: %+v", st.Templates[0].Points[0])
	}
	if st.Students == nil || st.Settings.CompanyWritingStyle == "" {
		t.Error("legacy snapshot was not normalized")
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "state": {}}`), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	store := NewJSONStore(NewFileBackend(path), 0)
	if _, err := store.Load(); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("Load() error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestSnapshotAfterEveryMutation(t *testing.T) {
	store, path := newFileStore(t)

	store.AddSchoolYear(types.SchoolYear{ID: "y1", Name: "2024-2025", StartYear: 2024, EndYear: 2025})
	if st := reload(t, path); len(st.SchoolYears) != 1 {
		t.Fatalf("school years after add = %d, want 1", len(st.SchoolYears))
	}

	store.SetActiveSchoolYear("y1")
	if st := reload(t, path); st.ActiveSchoolYearID != "y1" || !st.SchoolYears[0].IsActive {
		t.Errorf("active year not persisted: %+v", st.SchoolYears)
	}

	store.AddGrade(types.Grade{ID: "g1", Name: "Grade 1"})
	store.DeleteGrade("g1")
	if st := reload(t, path); len(st.Grades) != 0 {
		t.Errorf("grades after delete = %d, want 0", len(st.Grades))
	}
}

func TestSnapshotEnvelope(t *testing.T) {
	store, path := newFileStore(t)
	store.AddGrade(types.Grade{ID: "g1", Name: "Grade 1"})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	st, version, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if version != SnapshotVersion {
		t.Errorf("version = %d, want %d", version, SnapshotVersion)
	}
	if len(st.Grades) != 1 {
		t.Errorf("grades = %d, want 1", len(st.Grades))
	}
}

func TestMissingIDIsSilentNoop(t *testing.T) {
	store, _ := newFileStore(t)

	var changes int
	store.OnChange(func(Change) { changes++ })

	if store.UpdateGrade("nope", types.GradePatch{}) {
		t.Error("UpdateGrade(nope) reported found")
	}
	if store.DeleteStudent("nope") {
		t.Error("DeleteStudent(nope) reported found")
	}
	if store.AddExamResult("nope", types.ExamResult{ID: "e1"}) {
		t.Error("AddExamResult(nope) reported found")
	}
	if store.UpdateReportReflection("nope", types.ReflectionPatch{}) {
		t.Error("UpdateReportReflection(nope) reported found")
	}
	if changes != 0 {
		t.Errorf("changes = %d, want 0", changes)
	}
}

func TestGetStateIsACopy(t *testing.T) {
	store, _ := newFileStore(t)
	store.AddGrade(types.Grade{ID: "g1", Name: "Grade 1", TeacherAssignments: []types.TeacherAssignment{{ID: "a", Teacher: "Ms. Lee"}}})

	st := store.GetState()
	st.Grades[0].TeacherAssignments[0].Teacher = "changed"

	g, ok := store.GetGrade("g1")
	if !ok {
		t.Fatal("grade not found")
	}
	if g.TeacherAssignments[0].Teacher != "Ms. Lee" {
		t.Errorf("store was mutated through GetState: %q", g.TeacherAssignments[0].Teacher)
	}

	g.TeacherAssignments[0].Teacher = "changed again"
	if again, _ := store.GetGrade("g1"); again.TeacherAssignments[0].Teacher != "Ms. Lee" {
		t.Error("store was mutated through GetGrade")
	}
}

func TestReportUpdatedAtWithFrozenClock(t *testing.T) {
	store, _ := newFileStore(t)
	frozen := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return frozen })

	store.AddReport(types.StudentReport{ID: "r1", StudentID: "s1", Status: types.StatusDraft, CreatedAt: frozen, UpdatedAt: frozen})

	prev := frozen
	ops := []func() bool{
		func() bool { return store.UpdateReport("r1", types.StudentReportPatch{}) },
		func() bool { return store.AddExamResult("r1", types.ExamResult{ID: "e1", Term: "T1"}) },
		func() bool { return store.SignReport("r1", types.RoleClassroomTeacher, "Ms. Lee") },
	}
	for i, op := range ops {
		if !op() {
			t.Fatalf("op %d: report not found", i)
		}
		r, _ := store.GetReport("r1")
		if !r.UpdatedAt.After(prev) {
			t.Errorf("op %d: updated_at %v not after %v", i, r.UpdatedAt, prev)
		}
		prev = r.UpdatedAt
	}
}

func TestShareTokenRoundTrip(t *testing.T) {
	store, path := newFileStore(t)
	store.AddReport(types.StudentReport{ID: "r1", StudentID: "s1", Status: types.StatusDraft})

	token, ok, err := store.AssignShareToken("r1")
	if err != nil || !ok {
		t.Fatalf("AssignShareToken() = %q, %v, %v", token, ok, err)
	}

	again, _, _ := store.AssignShareToken("r1")
	if again != token {
		t.Errorf("second share returned %q, want %q", again, token)
	}

	r, found := store.ResolveByToken(token)
	if !found || r.ID != "r1" {
		t.Fatalf("ResolveByToken() = %+v, %v", r, found)
	}
	if r.SharedAt == nil {
		t.Error("shared_at not stamped")
	}

	// survives a restart
	st := reload(t, path)
	if st.Reports[0].ShareToken != token {
		t.Errorf("persisted token = %q", st.Reports[0].ShareToken)
	}

	if _, ok, _ := store.AssignShareToken("missing"); ok {
		t.Error("AssignShareToken(missing) reported found")
	}
	if _, found := store.ResolveByToken(""); found {
		t.Error("empty token resolved")
	}
}

func TestResolveSharedReportMatchesOriginal(t *testing.T) {
	store, _ := newFileStore(t)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return clock })
	store.AddReport(types.StudentReport{ID: "r1", StudentID: "s1", Status: types.StatusDraft, CreatedAt: clock, UpdatedAt: clock})
	before, _ := store.GetReport("r1")

	clock = clock.Add(time.Hour)
	token, _, err := store.AssignShareToken("r1")
	if err != nil {
		t.Fatalf("AssignShareToken() error = %v", err)
	}
	after, found := store.ResolveByToken(token)
	if !found {
		t.Fatal("shared report not resolved")
	}

	after.ShareToken, after.SharedAt = "", nil
	if !reflect.DeepEqual(before, after) {
		t.Errorf("resolved report differs beyond share fields:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestDuplicateTemplateThroughStore(t *testing.T) {
	store, _ := newFileStore(t)
	n := 0
	store.SetIDFunc(func() string { n++; return "id-" + string(rune('a'+n)) })
	store.AddTemplate(types.AssessmentTemplate{ID: "t1", SchoolYearID: "y1", Name: "Rubric",
		Subjects: []types.Subject{{ID: "s", AssessmentPoints: []types.AssessmentPoint{{ID: "p", MaxStars: 5}}}}})

	var got Change
	store.OnChange(func(c Change) { got = c })

	dup, ok := store.DuplicateTemplate("t1", "y2", state.DuplicateOptions{})
	if !ok {
		t.Fatal("template not found")
	}
	if dup.SchoolYearID != "y2" || dup.ID == "t1" {
		t.Errorf("dup = %+v", dup)
	}
	if got.ID != dup.ID || got.Op != "DuplicateTemplate" {
		t.Errorf("change = %+v", got)
	}
	if len(store.GetState().Templates) != 2 {
		t.Error("duplicate not stored")
	}
}

func TestPersistErrorWarnsOnce(t *testing.T) {
	backend := &failingBackend{}
	store := NewJSONStore(backend, 0)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var warnings int
	store.OnPersistError(func(error) { warnings++ })

	store.AddGrade(types.Grade{ID: "g1", Name: "A"})
	store.AddGrade(types.Grade{ID: "g2", Name: "B"})

	if warnings != 1 {
		t.Errorf("warnings = %d, want 1", warnings)
	}
	if backend.writes != 2 {
		t.Errorf("writes = %d, want 2", backend.writes)
	}
	// the mutation still applied in memory
	if len(store.GetState().Grades) != 2 {
		t.Error("mutations lost after persistence failure")
	}
}

func TestDebouncedSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewJSONStore(NewFileBackend(path), 50*time.Millisecond)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	store.AddGrade(types.Grade{ID: "g1", Name: "A"})
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("save should be deferred")
	}

	time.Sleep(200 * time.Millisecond)
	if st := reload(t, path); len(st.Grades) != 1 {
		t.Errorf("grades after debounce = %d, want 1", len(st.Grades))
	}
}

func TestCloseFlushesPendingSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewJSONStore(NewFileBackend(path), time.Hour)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	store.AddGrade(types.Grade{ID: "g1", Name: "A"})

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if st := reload(t, path); len(st.Grades) != 1 {
		t.Errorf("grades after close = %d, want 1", len(st.Grades))
	}
}

func TestConcurrentMutations(t *testing.T) {
	store, path := newFileStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.AddStudent(types.Student{ID: string(rune('a' + i)), FirstName: "S", LastName: "T"})
		}(i)
	}
	wg.Wait()

	if got := len(store.GetState().Students); got != 20 {
		t.Errorf("students in memory = %d, want 20", got)
	}
	if st := reload(t, path); len(st.Students) != 20 {
		t.Errorf("students on disk = %d, want 20", len(st.Students))
	}
}
