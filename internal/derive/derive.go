// Package derive computes the filtered and grouped views the UI shows for
// the active school year. Every function is pure.
package derive

import (
	"sort"
	"strings"

	"github.com/STARREPORTS/internal/types"
)

// YearScoped is implemented by entities that belong to one school year.
type YearScoped interface {
	types.AssessmentTemplate | types.Student | types.StudentReport
}

func yearOf[T YearScoped](item T) string {
	switch v := any(item).(type) {
	case types.AssessmentTemplate:
		return v.SchoolYearID
	case types.Student:
		return v.SchoolYearID
	case types.StudentReport:
		return v.SchoolYearID
	}
	return ""
}

// ActiveFor returns the items whose school_year_id equals yearID, in order.
func ActiveFor[T YearScoped](items []T, yearID string) []T {
	out := []T{}
	for _, item := range items {
		if yearOf(item) == yearID {
			out = append(out, item)
		}
	}
	return out
}

// TermGroup is the exam results of one term.
type TermGroup struct {
	Term    string             `json:"term"`
	Results []types.ExamResult `json:"results"`
}

// TermLess orders term labels.
type TermLess func(a, b string) bool

// LexicalTermOrder sorts term labels as plain strings, so "Term 10" sorts
// before "Term 2".
func LexicalTermOrder(a, b string) bool { return a < b }

// NaturalTermOrder compares runs of digits by value, so "Term 2" sorts
// before "Term 10". Runs of any length compare correctly.
func NaturalTermOrder(a, b string) bool {
	for a != "" && b != "" {
		ca, cb := a[0], b[0]
		if isDigit(ca) && isDigit(cb) {
			na, ra := digitRun(a)
			nb, rb := digitRun(b)
			if na != nb {
				if len(na) != len(nb) {
					return len(na) < len(nb)
				}
				return na < nb
			}
			a, b = ra, rb
			continue
		}
		if ca != cb {
			return ca < cb
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// digitRun splits the leading digits off s, without leading zeros.
func digitRun(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return strings.TrimLeft(s[:i], "0"), s[i:]
}

// GroupByTerm groups results by term. Results keep their input order within
// a group; groups are ordered by less, LexicalTermOrder when nil.
func GroupByTerm(results []types.ExamResult, less TermLess) []TermGroup {
	if less == nil {
		less = LexicalTermOrder
	}
	index := map[string]int{}
	groups := []TermGroup{}
	for _, r := range results {
		i, ok := index[r.Term]
		if !ok {
			i = len(groups)
			index[r.Term] = i
			groups = append(groups, TermGroup{Term: r.Term})
		}
		groups[i].Results = append(groups[i].Results, r)
	}
	sort.SliceStable(groups, func(i, j int) bool { return less(groups[i].Term, groups[j].Term) })
	return groups
}

// AssignmentsByCategory splits a grade's teacher assignments
type AssignmentsByCategory struct {
	Core         []types.TeacherAssignment `json:"core"`
	Professional []types.TeacherAssignment `json:"professional"`
}

// GroupByCategory partitions assignments into core and professional buckets.
// Assignments with any other category are dropped.
func GroupByCategory(assignments []types.TeacherAssignment) AssignmentsByCategory {
	out := AssignmentsByCategory{
		Core:         []types.TeacherAssignment{},
		Professional: []types.TeacherAssignment{},
	}
	for _, a := range assignments {
		switch a.Category {
		case types.CategoryCore:
			out.Core = append(out.Core, a)
		case types.CategoryProfessional:
			out.Professional = append(out.Professional, a)
		}
	}
	return out
}

// TotalPoints counts the assessment points of a template. A template with
// subjects counts their points; otherwise its flat point list.
func TotalPoints(t types.AssessmentTemplate) int {
	if len(t.Subjects) == 0 {
		return len(t.Points)
	}
	n := 0
	for _, s := range t.Subjects {
		n += len(s.AssessmentPoints)
	}
	return n
}

// EffectiveStars is the rating shown for an entry: 0 means unset and is
// displayed as maxStars.
func EffectiveStars(stars, maxStars int) int {
	if stars == 0 {
		return maxStars
	}
	return stars
}

// FindPoint looks up an assessment point of a template by id.
func FindPoint(t types.AssessmentTemplate, pointID string) (types.AssessmentPoint, bool) {
	for _, s := range t.Subjects {
		for _, p := range s.AssessmentPoints {
			if p.ID == pointID {
				return p, true
			}
		}
	}
	for _, p := range t.Points {
		if p.ID == pointID {
			return p, true
		}
	}
	return types.AssessmentPoint{}, false
}

// Unarchived drops archived templates.
func Unarchived(templates []types.AssessmentTemplate) []types.AssessmentTemplate {
	out := []types.AssessmentTemplate{}
	for _, t := range templates {
		if !t.IsArchived {
			out = append(out, t)
		}
	}
	return out
}

// StudentsInGrade returns the students of gradeID in yearID.
func StudentsInGrade(students []types.Student, gradeID, yearID string) []types.Student {
	out := []types.Student{}
	for _, s := range students {
		if s.GradeID == gradeID && s.SchoolYearID == yearID {
			out = append(out, s)
		}
	}
	return out
}

// ReportsForStudent returns the reports of studentID, in order.
func ReportsForStudent(reports []types.StudentReport, studentID string) []types.StudentReport {
	out := []types.StudentReport{}
	for _, r := range reports {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out
}

// SortedGrades orders grades by their order field, then by name.
func SortedGrades(grades []types.Grade) []types.Grade {
	out := append([]types.Grade{}, grades...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DisplayName is the name a student goes by followed by the last name.
func DisplayName(s types.Student) string {
	first := s.FirstName
	if strings.TrimSpace(s.NameUsed) != "" {
		first = s.NameUsed
	}
	return strings.TrimSpace(first + " " + s.LastName)
}

// Progress counts the rated entries of a report.
type Progress struct {
	Rated   int `json:"rated"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// ReportProgress reports how many entries have stars set or are marked N/A.
func ReportProgress(r types.StudentReport) Progress {
	p := Progress{Total: len(r.Entries)}
	for _, e := range r.Entries {
		if e.Stars > 0 || e.IsNA {
			p.Rated++
		}
	}
	if p.Total > 0 {
		p.Percent = p.Rated * 100 / p.Total
	}
	return p
}
