package state

import (
	"maps"
	"slices"

	"github.com/STARREPORTS/internal/types"
)

// School years

func AddSchoolYear(s *types.State, y types.SchoolYear) *types.State {
	next := with(s)
	next.SchoolYears = appendTo(s.SchoolYears, y)
	return next
}

func UpdateSchoolYear(s *types.State, id string, p types.SchoolYearPatch) (*types.State, bool) {
	i := indexOf(s.SchoolYears, func(y types.SchoolYear) bool { return y.ID == id })
	if i < 0 {
		return s, false
	}
	next := with(s)
	next.SchoolYears = replaceAt(s.SchoolYears, i, func(y *types.SchoolYear) {
		set(&y.Name, p.Name)
		set(&y.StartYear, p.StartYear)
		set(&y.EndYear, p.EndYear)
	})
	return next, true
}

// DeleteSchoolYear removes a year. Removing the active year also clears
// active_school_year_id.
func DeleteSchoolYear(s *types.State, id string) (*types.State, bool) {
	i := indexOf(s.SchoolYears, func(y types.SchoolYear) bool { return y.ID == id })
	if i < 0 {
		return s, false
	}
	next := with(s)
	next.SchoolYears = removeAt(s.SchoolYears, i)
	if next.ActiveSchoolYearID == id {
		next.ActiveSchoolYearID = ""
	}
	return next, true
}

// SetActiveSchoolYear points the active year at id and rewrites every
// year's flag in the same transition. The bool reports whether a year with
// that id exists; the transition is applied either way.
func SetActiveSchoolYear(s *types.State, id string) (*types.State, bool) {
	next := with(s)
	next.ActiveSchoolYearID = id
	next.SchoolYears = make([]types.SchoolYear, len(s.SchoolYears))
	found := false
	for i, y := range s.SchoolYears {
		y.IsActive = y.ID == id
		found = found || y.IsActive
		next.SchoolYears[i] = y
	}
	return next, found
}

// Grades

func AddGrade(s *types.State, g types.Grade) *types.State {
	next := with(s)
	next.Grades = appendTo(s.Grades, g)
	return next
}

func UpdateGrade(s *types.State, id string, p types.GradePatch) (*types.State, bool) {
	i := indexOf(s.Grades, func(g types.Grade) bool { return g.ID == id })
	if i < 0 {
		return s, false
	}
	next := with(s)
	next.Grades = replaceAt(s.Grades, i, func(g *types.Grade) {
		set(&g.Name, p.Name)
		set(&g.Description, p.Description)
		set(&g.ColorIndex, p.ColorIndex)
		set(&g.Order, p.Order)
		set(&g.ClassroomTeacher, p.ClassroomTeacher)
		setSlice(&g.TeacherAssignments, p.TeacherAssignments)
	})
	return next, true
}

func DeleteGrade(s *types.State, id string) (*types.State, bool) {
	i := indexOf(s.Grades, func(g types.Grade) bool { return g.ID == id })
	if i < 0 {
		return s, false
	}
	next := with(s)
	next.Grades = removeAt(s.Grades, i)
	return next, true
}

// Assessment templates

func AddTemplate(s *types.State, t types.AssessmentTemplate) *types.State {
	next := with(s)
	next.Templates = appendTo(s.Templates, t)
	return next
}

func UpdateTemplate(s *types.State, id string, p types.AssessmentTemplatePatch) (*types.State, bool) {
	i := indexOf(s.Templates, func(t types.AssessmentTemplate) bool { return t.ID == id })
	if i < 0 {
		return s, false
	}
	next := with(s)
	next.Templates = replaceAt(s.Templates, i, func(t *types.AssessmentTemplate) {
		set(&t.GradeID, p.GradeID)
		set(&t.SchoolYearID, p.SchoolYearID)
		set(&t.Name, p.Name)
		set(&t.Description, p.Description)
		setSlice(&t.Subjects, p.Subjects)
		setSlice(&t.Points, p.Points)
		set(&t.IntroText, p.IntroText)
		if p.StaticTexts != nil {
			t.StaticTexts = maps.Clone(*p.StaticTexts)
		}
		set(&t.IsArchived, p.IsArchived)
	})
	return next, true
}

func DeleteTemplate(s *types.State, id string) (*types.State, bool) {
	i := indexOf(s.Templates, func(t types.AssessmentTemplate) bool { return t.ID == id })
	if i < 0 {
		return s, false
	}
	next := with(s)
	next.Templates = removeAt(s.Templates, i)
	return next, true
}

// Students

func AddStudent(s *types.State, st types.Student) *types.State {
	next := with(s)
	next.Students = appendTo(s.Students, st)
	return next
}

func UpdateStudent(s *types.State, id string, p types.StudentPatch) (*types.State, bool) {
	i := indexOf(s.Students, func(st types.Student) bool { return st.ID == id })
	if i < 0 {
		return s, false
	}
	next := with(s)
	next.Students = replaceAt(s.Students, i, func(st *types.Student) {
		set(&st.FirstName, p.FirstName)
		set(&st.LastName, p.LastName)
		set(&st.NameUsed, p.NameUsed)
		set(&st.DateOfBirth, p.DateOfBirth)
		set(&st.GradeID, p.GradeID)
		set(&st.SchoolYearID, p.SchoolYearID)
		set(&st.AvatarURL, p.AvatarURL)
	})
	return next, true
}

func DeleteStudent(s *types.State, id string) (*types.State, bool) {
	i := indexOf(s.Students, func(st types.Student) bool { return st.ID == id })
	if i < 0 {
		return s, false
	}
	next := with(s)
	next.Students = removeAt(s.Students, i)
	return next, true
}

// Student documents

func AddDocument(s *types.State, d types.StudentDocument) *types.State {
	next := with(s)
	next.Documents = appendTo(s.Documents, d)
	return next
}

func UpdateDocument(s *types.State, id string, p types.StudentDocumentPatch) (*types.State, bool) {
	i := indexOf(s.Documents, func(d types.StudentDocument) bool { return d.ID == id })
	if i < 0 {
		return s, false
	}
	next := with(s)
	next.Documents = replaceAt(s.Documents, i, func(d *types.StudentDocument) {
		set(&d.Label, p.Label)
		set(&d.Comment, p.Comment)
		set(&d.Type, p.Type)
		set(&d.ReportID, p.ReportID)
		if d.Type == types.DocumentGeneral {
			d.ReportID = ""
		}
	})
	return next, true
}

func DeleteDocument(s *types.State, id string) (*types.State, bool) {
	i := indexOf(s.Documents, func(d types.StudentDocument) bool { return d.ID == id })
	if i < 0 {
		return s, false
	}
	next := with(s)
	next.Documents = removeAt(s.Documents, i)
	return next, true
}

// Settings

func UpdateAppSettings(s *types.State, p types.AppSettingsPatch) *types.State {
	next := with(s)
	settings := s.Settings
	settings.Values = slices.Clone(s.Settings.Values)
	set(&settings.SchoolName, p.SchoolName)
	set(&settings.MissionStatement, p.MissionStatement)
	set(&settings.Statement, p.Statement)
	set(&settings.Vision, p.Vision)
	setSlice(&settings.Values, p.Values)
	set(&settings.GradingKey, p.GradingKey)
	set(&settings.CompanyWritingStyle, p.CompanyWritingStyle)
	next.Settings = settings
	return next
}
