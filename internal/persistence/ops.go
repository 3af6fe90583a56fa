package persistence

import (
	"time"

	"github.com/STARREPORTS/internal/sharing"
	"github.com/STARREPORTS/internal/state"
	"github.com/STARREPORTS/internal/types"
)

// AddSchoolYear appends a school year
func (s *JSONStore) AddSchoolYear(y types.SchoolYear) {
	s.apply(Change{Kind: KindSchoolYear, Action: ActionCreated, ID: y.ID, Op: "AddSchoolYear"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return always(state.AddSchoolYear(st, y)) })
}

// UpdateSchoolYear merges patch into a school year
func (s *JSONStore) UpdateSchoolYear(id string, patch types.SchoolYearPatch) bool {
	return s.apply(Change{Kind: KindSchoolYear, Action: ActionUpdated, ID: id, Op: "UpdateSchoolYear"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return state.UpdateSchoolYear(st, id, patch) })
}

// DeleteSchoolYear removes a school year
func (s *JSONStore) DeleteSchoolYear(id string) bool {
	return s.apply(Change{Kind: KindSchoolYear, Action: ActionDeleted, ID: id, Op: "DeleteSchoolYear"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return state.DeleteSchoolYear(st, id) })
}

// SetActiveSchoolYear makes id the only active year. Unknown ids are
// ignored.
func (s *JSONStore) SetActiveSchoolYear(id string) bool {
	return s.apply(Change{Kind: KindSchoolYear, Action: ActionActivated, ID: id, Op: "SetActiveSchoolYear"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return state.SetActiveSchoolYear(st, id) })
}

// GetSchoolYear returns a school year by id
func (s *JSONStore) GetSchoolYear(id string) (types.SchoolYear, bool) {
	return find(s, func(st *types.State) []types.SchoolYear { return st.SchoolYears },
		func(y types.SchoolYear) bool { return y.ID == id })
}

// AddGrade appends a grade
func (s *JSONStore) AddGrade(g types.Grade) {
	s.apply(Change{Kind: KindGrade, Action: ActionCreated, ID: g.ID, Op: "AddGrade"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return always(state.AddGrade(st, g)) })
}

// UpdateGrade merges patch into a grade
func (s *JSONStore) UpdateGrade(id string, patch types.GradePatch) bool {
	return s.apply(Change{Kind: KindGrade, Action: ActionUpdated, ID: id, Op: "UpdateGrade"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return state.UpdateGrade(st, id, patch) })
}

// DeleteGrade removes a grade
func (s *JSONStore) DeleteGrade(id string) bool {
	return s.apply(Change{Kind: KindGrade, Action: ActionDeleted, ID: id, Op: "DeleteGrade"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return state.DeleteGrade(st, id) })
}

// GetGrade returns a grade by id
func (s *JSONStore) GetGrade(id string) (types.Grade, bool) {
	return find(s, func(st *types.State) []types.Grade { return st.Grades },
		func(g types.Grade) bool { return g.ID == id })
}

// AddTemplate appends an assessment template
func (s *JSONStore) AddTemplate(t types.AssessmentTemplate) {
	s.apply(Change{Kind: KindTemplate, Action: ActionCreated, ID: t.ID, Op: "AddTemplate"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return always(state.AddTemplate(st, t)) })
}

// UpdateTemplate merges patch into a template
func (s *JSONStore) UpdateTemplate(id string, patch types.AssessmentTemplatePatch) bool {
	return s.apply(Change{Kind: KindTemplate, Action: ActionUpdated, ID: id, Op: "UpdateTemplate"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return state.UpdateTemplate(st, id, patch) })
}

// DeleteTemplate removes a template
func (s *JSONStore) DeleteTemplate(id string) bool {
	return s.apply(Change{Kind: KindTemplate, Action: ActionDeleted, ID: id, Op: "DeleteTemplate"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return state.DeleteTemplate(st, id) })
}

// DuplicateTemplate copies template id into yearID
func (s *JSONStore) DuplicateTemplate(id, yearID string, opts state.DuplicateOptions) (types.AssessmentTemplate, bool) {
	change := Change{Kind: KindTemplate, Action: ActionCreated, Op: "DuplicateTemplate"}

	s.mu.Lock()
	next, dup, ok := state.DuplicateTemplate(s.state, id, yearID, s.newID, s.now(), opts)
	if ok {
		s.state = next
	}
	s.mu.Unlock()

	if !ok {
		return types.AssessmentTemplate{}, false
	}
	change.ID = dup.ID
	s.persist()
	s.notify(change)
	return deepCopy(dup), true
}

// GetTemplate returns a template by id
func (s *JSONStore) GetTemplate(id string) (types.AssessmentTemplate, bool) {
	return find(s, func(st *types.State) []types.AssessmentTemplate { return st.Templates },
		func(t types.AssessmentTemplate) bool { return t.ID == id })
}

// AddStudent appends a student
func (s *JSONStore) AddStudent(st types.Student) {
	s.apply(Change{Kind: KindStudent, Action: ActionCreated, ID: st.ID, Op: "AddStudent"},
		func(cur *types.State, _ time.Time) (*types.State, bool) { return always(state.AddStudent(cur, st)) })
}

// UpdateStudent merges patch into a student
func (s *JSONStore) UpdateStudent(id string, patch types.StudentPatch) bool {
	return s.apply(Change{Kind: KindStudent, Action: ActionUpdated, ID: id, Op: "UpdateStudent"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return state.UpdateStudent(st, id, patch) })
}

// DeleteStudent removes a student
func (s *JSONStore) DeleteStudent(id string) bool {
	return s.apply(Change{Kind: KindStudent, Action: ActionDeleted, ID: id, Op: "DeleteStudent"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return state.DeleteStudent(st, id) })
}

// GetStudent returns a student by id
func (s *JSONStore) GetStudent(id string) (types.Student, bool) {
	return find(s, func(st *types.State) []types.Student { return st.Students },
		func(st types.Student) bool { return st.ID == id })
}

// AddReport appends a student report
func (s *JSONStore) AddReport(r types.StudentReport) {
	s.apply(Change{Kind: KindReport, Action: ActionCreated, ID: r.ID, Op: "AddReport"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return always(state.AddReport(st, r)) })
}

// UpdateReport merges patch into a report and refreshes updated_at
func (s *JSONStore) UpdateReport(id string, patch types.StudentReportPatch) bool {
	return s.apply(Change{Kind: KindReport, Action: ActionUpdated, ID: id, Op: "UpdateReport"},
		func(st *types.State, now time.Time) (*types.State, bool) {
			return state.UpdateReport(st, id, patch, now)
		})
}

// DeleteReport removes a report
func (s *JSONStore) DeleteReport(id string) bool {
	return s.apply(Change{Kind: KindReport, Action: ActionDeleted, ID: id, Op: "DeleteReport"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return state.DeleteReport(st, id) })
}

// GetReport returns a report by id
func (s *JSONStore) GetReport(id string) (types.StudentReport, bool) {
	return find(s, func(st *types.State) []types.StudentReport { return st.Reports },
		func(r types.StudentReport) bool { return r.ID == id })
}

// AddExamResult appends an exam result to a report
func (s *JSONStore) AddExamResult(reportID string, e types.ExamResult) bool {
	return s.apply(Change{Kind: KindReport, Action: ActionUpdated, ID: reportID, Op: "AddExamResult"},
		func(st *types.State, now time.Time) (*types.State, bool) {
			return state.AddExamResult(st, reportID, e, now)
		})
}

// UpdateExamResult merges patch into one exam result of a report
func (s *JSONStore) UpdateExamResult(reportID, examID string, patch types.ExamResultPatch) bool {
	return s.apply(Change{Kind: KindReport, Action: ActionUpdated, ID: reportID, Op: "UpdateExamResult"},
		func(st *types.State, now time.Time) (*types.State, bool) {
			return state.UpdateExamResult(st, reportID, examID, patch, now)
		})
}

// DeleteExamResult removes one exam result of a report
func (s *JSONStore) DeleteExamResult(reportID, examID string) bool {
	return s.apply(Change{Kind: KindReport, Action: ActionUpdated, ID: reportID, Op: "DeleteExamResult"},
		func(st *types.State, now time.Time) (*types.State, bool) {
			return state.DeleteExamResult(st, reportID, examID, now)
		})
}

// UpdateReportReflection merges patch into the report's reflections
func (s *JSONStore) UpdateReportReflection(reportID string, patch types.ReflectionPatch) bool {
	return s.apply(Change{Kind: KindReport, Action: ActionUpdated, ID: reportID, Op: "UpdateReportReflection"},
		func(st *types.State, now time.Time) (*types.State, bool) {
			return state.UpdateReportReflection(st, reportID, patch, now)
		})
}

// SignReport records the signature of role on a report
func (s *JSONStore) SignReport(reportID string, role types.SignatureRole, name string) bool {
	return s.apply(Change{Kind: KindReport, Action: ActionSigned, ID: reportID, Op: "SignReport"},
		func(st *types.State, now time.Time) (*types.State, bool) {
			return state.SignReport(st, reportID, role, name, now)
		})
}

// UpdateReportEntry upserts the rating of one assessment point
func (s *JSONStore) UpdateReportEntry(reportID, pointID string, patch types.ReportEntryPatch) bool {
	return s.apply(Change{Kind: KindReport, Action: ActionUpdated, ID: reportID, Op: "UpdateReportEntry"},
		func(st *types.State, now time.Time) (*types.State, bool) {
			return state.UpdateReportEntry(st, reportID, pointID, patch, now)
		})
}

// UpdateSubjectComment upserts the comment block of one subject
func (s *JSONStore) UpdateSubjectComment(reportID, subjectID string, patch types.SubjectCommentPatch) bool {
	return s.apply(Change{Kind: KindReport, Action: ActionUpdated, ID: reportID, Op: "UpdateSubjectComment"},
		func(st *types.State, now time.Time) (*types.State, bool) {
			return state.UpdateSubjectComment(st, reportID, subjectID, patch, now)
		})
}

// AssignShareToken shares a report. An already shared report keeps its
// token.
func (s *JSONStore) AssignShareToken(reportID string) (string, bool, error) {
	token, err := sharing.NewToken()
	if err != nil {
		return "", false, err
	}

	var assigned string
	ok := s.apply(Change{Kind: KindReport, Action: ActionShared, ID: reportID, Op: "AssignShareToken"},
		func(st *types.State, now time.Time) (*types.State, bool) {
			next, tok, found := state.AssignShareToken(st, reportID, token, now)
			assigned = tok
			if found && tok != token {
				// already shared, nothing to persist
				return st, false
			}
			return next, found
		})
	if !ok && assigned == "" {
		return "", false, nil
	}
	return assigned, true, nil
}

// RevokeShareToken removes a report's share token
func (s *JSONStore) RevokeShareToken(reportID string) bool {
	return s.apply(Change{Kind: KindReport, Action: ActionUnshared, ID: reportID, Op: "RevokeShareToken"},
		func(st *types.State, _ time.Time) (*types.State, bool) {
			return state.RevokeShareToken(st, reportID)
		})
}

// ResolveByToken finds the report shared under token
func (s *JSONStore) ResolveByToken(token string) (types.StudentReport, bool) {
	s.mu.RLock()
	r, ok := sharing.Resolve(s.state.Reports, token)
	s.mu.RUnlock()
	if !ok {
		return types.StudentReport{}, false
	}
	return deepCopy(r), true
}

// AddDocument appends a student document
func (s *JSONStore) AddDocument(d types.StudentDocument) {
	s.apply(Change{Kind: KindDocument, Action: ActionCreated, ID: d.ID, Op: "AddDocument"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return always(state.AddDocument(st, d)) })
}

// UpdateDocument merges patch into a document
func (s *JSONStore) UpdateDocument(id string, patch types.StudentDocumentPatch) bool {
	return s.apply(Change{Kind: KindDocument, Action: ActionUpdated, ID: id, Op: "UpdateDocument"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return state.UpdateDocument(st, id, patch) })
}

// DeleteDocument removes a document
func (s *JSONStore) DeleteDocument(id string) bool {
	return s.apply(Change{Kind: KindDocument, Action: ActionDeleted, ID: id, Op: "DeleteDocument"},
		func(st *types.State, _ time.Time) (*types.State, bool) { return state.DeleteDocument(st, id) })
}

// GetDocument returns a document by id
func (s *JSONStore) GetDocument(id string) (types.StudentDocument, bool) {
	return find(s, func(st *types.State) []types.StudentDocument { return st.Documents },
		func(d types.StudentDocument) bool { return d.ID == id })
}

// UpdateAppSettings merges patch into the settings
func (s *JSONStore) UpdateAppSettings(patch types.AppSettingsPatch) {
	s.apply(Change{Kind: KindSettings, Action: ActionUpdated, Op: "UpdateAppSettings"},
		func(st *types.State, _ time.Time) (*types.State, bool) {
			return always(state.UpdateAppSettings(st, patch))
		})
}

// GetSettings returns the settings
func (s *JSONStore) GetSettings() types.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopy(s.state.Settings)
}

var _ Store = (*JSONStore)(nil)
