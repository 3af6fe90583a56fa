package state

import (
	"maps"
	"slices"
	"time"

	"github.com/STARREPORTS/internal/types"
)

// DuplicateOptions controls how a template copy is made.
type DuplicateOptions struct {
	// KeepNestedIDs copies subject and point ids unchanged instead of
	// minting new ones.
	KeepNestedIDs bool
	// Name overrides the copy's name. Empty keeps the source name.
	Name string
}

// CopyTemplate returns a deep copy of src bound to yearID, with a new id and
// created_at. The copy is never archived.
func CopyTemplate(src types.AssessmentTemplate, yearID string, newID IDFunc, now time.Time, opts DuplicateOptions) types.AssessmentTemplate {
	dup := src
	dup.ID = newID()
	dup.SchoolYearID = yearID
	dup.CreatedAt = now.UTC()
	dup.IsArchived = false
	if opts.Name != "" {
		dup.Name = opts.Name
	}
	dup.StaticTexts = maps.Clone(src.StaticTexts)

	copyPoints := func(points []types.AssessmentPoint) []types.AssessmentPoint {
		out := slices.Clone(points)
		if !opts.KeepNestedIDs {
			for i := range out {
				out[i].ID = newID()
			}
		}
		return out
	}

	dup.Points = copyPoints(src.Points)
	dup.Subjects = slices.Clone(src.Subjects)
	for i := range dup.Subjects {
		if !opts.KeepNestedIDs {
			dup.Subjects[i].ID = newID()
		}
		dup.Subjects[i].AssessmentPoints = copyPoints(src.Subjects[i].AssessmentPoints)
	}
	return dup
}

// DuplicateTemplate appends a copy of template id bound to yearID.
func DuplicateTemplate(s *types.State, id, yearID string, newID IDFunc, now time.Time, opts DuplicateOptions) (*types.State, types.AssessmentTemplate, bool) {
	i := indexOf(s.Templates, func(t types.AssessmentTemplate) bool { return t.ID == id })
	if i < 0 {
		return s, types.AssessmentTemplate{}, false
	}
	dup := CopyTemplate(s.Templates[i], yearID, newID, now, opts)
	return AddTemplate(s, dup), dup, true
}

// NewReport builds a draft report for student from tpl with one unrated
// entry per assessment point, in template order.
func NewReport(id string, student types.Student, tpl types.AssessmentTemplate, term string, now time.Time) types.StudentReport {
	now = now.UTC().Round(0)
	entries := []types.ReportEntry{}
	for _, subj := range tpl.Subjects {
		for _, p := range subj.AssessmentPoints {
			entries = append(entries, types.ReportEntry{AssessmentPointID: p.ID, SubjectID: subj.ID})
		}
	}
	for _, p := range tpl.Points {
		entries = append(entries, types.ReportEntry{AssessmentPointID: p.ID})
	}

	return types.StudentReport{
		ID:                   id,
		StudentID:            student.ID,
		AssessmentTemplateID: tpl.ID,
		SchoolYearID:         tpl.SchoolYearID,
		Term:                 term,
		Entries:              entries,
		SubjectComments:      []types.SubjectComment{},
		ExamResults:          []types.ExamResult{},
		Status:               types.StatusDraft,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}
