package server

import (
	"net/http"

	"github.com/STARREPORTS/internal/derive"
	"github.com/STARREPORTS/internal/sharing"
	"github.com/STARREPORTS/internal/types"
)

type sharedView struct {
	Report      reportView                   `json:"report"`
	StudentName string                       `json:"student_name"`
	Student     *types.Student               `json:"student,omitempty"`
	Template    *types.AssessmentTemplate    `json:"template,omitempty"`
	Grade       *types.Grade                 `json:"grade,omitempty"`
	Assignments derive.AssignmentsByCategory `json:"assignments"`
	ExamResults []derive.TermGroup           `json:"exam_results"`
	Settings    types.AppSettings            `json:"settings"`
}

// resolveShared looks up the report behind the token path variable.
// Malformed tokens are answered like unknown ones without a lookup.
func (s *Server) resolveShared(w http.ResponseWriter, r *http.Request) (types.StudentReport, bool) {
	token := pathID(r, "token")
	if !sharing.ValidToken(token) {
		s.respondError(w, http.StatusNotFound, "Shared report not found")
		return types.StudentReport{}, false
	}
	report, ok := s.store.ResolveByToken(token)
	if !ok {
		s.respondError(w, http.StatusNotFound, "Shared report not found")
	}
	return report, ok
}

// handleGetShared resolves a share token. Unknown tokens get 404 with no
// hint about other reports.
func (s *Server) handleGetShared(w http.ResponseWriter, r *http.Request) {
	report, ok := s.resolveShared(w, r)
	if !ok {
		return
	}

	st := s.store.GetState()
	view := sharedView{
		Report:      newReportView(report),
		ExamResults: derive.GroupByTerm(report.ExamResults, s.termOrder),
		Assignments: derive.GroupByCategory(nil),
		Settings:    st.Settings,
	}
	// share tokens stay out of the public payload
	view.Report.ShareToken = ""

	for _, student := range st.Students {
		if student.ID == report.StudentID {
			view.Student = &student
			view.StudentName = derive.DisplayName(student)
		}
	}
	for _, tpl := range st.Templates {
		if tpl.ID == report.AssessmentTemplateID {
			view.Template = &tpl
		}
	}
	if view.Student != nil {
		for _, g := range st.Grades {
			if g.ID == view.Student.GradeID {
				view.Grade = &g
				view.Assignments = derive.GroupByCategory(g.TeacherAssignments)
			}
		}
	}
	s.respondJSON(w, view)
}

// sharedReflectionRequest is the only write a token holder may make
type sharedReflectionRequest struct {
	ParentReflection  *string `json:"parent_reflection,omitempty"`
	StudentReflection *string `json:"student_reflection,omitempty"`
}

func (s *Server) handleUpdateSharedReflection(w http.ResponseWriter, r *http.Request) {
	report, ok := s.resolveShared(w, r)
	if !ok {
		return
	}
	var req sharedReflectionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.ParentReflection == nil && req.StudentReflection == nil {
		s.respondInvalid(w, invalidField("parent_reflection", "parent_reflection or student_reflection is required"))
		return
	}

	s.store.UpdateReportReflection(report.ID, types.ReflectionPatch{
		ParentReflection:  req.ParentReflection,
		StudentReflection: req.StudentReflection,
	})
	updated, _ := s.store.GetReport(report.ID)
	s.respondJSON(w, updated.Reflections)
}
