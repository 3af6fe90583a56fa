package server

import (
	"net/http"
	"strings"

	"github.com/STARREPORTS/internal/derive"
	"github.com/STARREPORTS/internal/state"
	"github.com/STARREPORTS/internal/types"
)

// School years

func (s *Server) handleListSchoolYears(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, s.store.GetState().SchoolYears)
}

func (s *Server) handleCreateSchoolYear(w http.ResponseWriter, r *http.Request) {
	var year types.SchoolYear
	if !s.decodeAndValidate(w, r, &year) {
		return
	}
	if year.ID == "" {
		year.ID = s.newID()
	}
	// activation goes through SetActiveSchoolYear
	activate := year.IsActive
	year.IsActive = false

	s.store.AddSchoolYear(year)
	if activate {
		s.store.SetActiveSchoolYear(year.ID)
	}
	year, _ = s.store.GetSchoolYear(year.ID)
	s.respondStatus(w, http.StatusCreated, year)
}

func (s *Server) handleUpdateSchoolYear(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var patch types.SchoolYearPatch
	if !s.decodeAndValidate(w, r, &patch) {
		return
	}
	current, ok := s.store.GetSchoolYear(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "School year not found")
		return
	}
	start, end := current.StartYear, current.EndYear
	if patch.StartYear != nil {
		start = *patch.StartYear
	}
	if patch.EndYear != nil {
		end = *patch.EndYear
	}
	if end < start {
		s.respondInvalid(w, invalidField("end_year", "end_year must be greater than or equal to start_year"))
		return
	}

	s.store.UpdateSchoolYear(id, patch)
	year, _ := s.store.GetSchoolYear(id)
	s.respondJSON(w, year)
}

// handleDeleteSchoolYear refuses the active year; activate another first
func (s *Server) handleDeleteSchoolYear(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if id == s.store.GetState().ActiveSchoolYearID {
		s.respondError(w, http.StatusConflict, "Cannot delete the active school year")
		return
	}
	if !s.store.DeleteSchoolYear(id) {
		s.respondError(w, http.StatusNotFound, "School year not found")
		return
	}
	s.respondJSON(w, map[string]bool{"success": true})
}

func (s *Server) handleActivateSchoolYear(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if _, ok := s.store.GetSchoolYear(id); !ok {
		s.respondError(w, http.StatusNotFound, "School year not found")
		return
	}
	s.store.SetActiveSchoolYear(id)
	s.respondJSON(w, s.store.GetState().SchoolYears)
}

// Grades

func (s *Server) handleListGrades(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, derive.SortedGrades(s.store.GetState().Grades))
}

func (s *Server) handleCreateGrade(w http.ResponseWriter, r *http.Request) {
	var grade types.Grade
	if !s.decodeAndValidate(w, r, &grade) {
		return
	}
	if grade.ID == "" {
		grade.ID = s.newID()
	}
	for i := range grade.TeacherAssignments {
		if grade.TeacherAssignments[i].ID == "" {
			grade.TeacherAssignments[i].ID = s.newID()
		}
	}
	s.store.AddGrade(grade)
	s.respondStatus(w, http.StatusCreated, grade)
}

func (s *Server) handleUpdateGrade(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var patch types.GradePatch
	if !s.decodeAndValidate(w, r, &patch) {
		return
	}
	if patch.TeacherAssignments != nil {
		for i := range *patch.TeacherAssignments {
			if (*patch.TeacherAssignments)[i].ID == "" {
				(*patch.TeacherAssignments)[i].ID = s.newID()
			}
		}
	}
	if !s.store.UpdateGrade(id, patch) {
		s.respondError(w, http.StatusNotFound, "Grade not found")
		return
	}
	grade, _ := s.store.GetGrade(id)
	s.respondJSON(w, grade)
}

func (s *Server) handleDeleteGrade(w http.ResponseWriter, r *http.Request) {
	if !s.store.DeleteGrade(pathID(r, "id")) {
		s.respondError(w, http.StatusNotFound, "Grade not found")
		return
	}
	s.respondJSON(w, map[string]bool{"success": true})
}

// handleGradeAssignments splits a grade's teachers into core and
// professional
func (s *Server) handleGradeAssignments(w http.ResponseWriter, r *http.Request) {
	grade, ok := s.store.GetGrade(pathID(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "Grade not found")
		return
	}
	s.respondJSON(w, derive.GroupByCategory(grade.TeacherAssignments))
}

// Assessment templates

type templateView struct {
	types.AssessmentTemplate
	TotalPoints int `json:"total_points"`
}

func newTemplateView(t types.AssessmentTemplate) templateView {
	return templateView{AssessmentTemplate: t, TotalPoints: derive.TotalPoints(t)}
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	st := s.store.GetState()
	templates := st.Templates
	if year, ok := s.yearParam(r, st); ok {
		templates = derive.ActiveFor(templates, year)
	}
	if r.URL.Query().Get("include_archived") != "true" {
		templates = derive.Unarchived(templates)
	}
	if grade := r.URL.Query().Get("grade_id"); grade != "" {
		filtered := []types.AssessmentTemplate{}
		for _, t := range templates {
			if t.GradeID == grade {
				filtered = append(filtered, t)
			}
		}
		templates = filtered
	}

	views := make([]templateView, 0, len(templates))
	for _, t := range templates {
		views = append(views, newTemplateView(t))
	}
	s.respondJSON(w, views)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.store.GetTemplate(pathID(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "Template not found")
		return
	}
	s.respondJSON(w, newTemplateView(tpl))
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl types.AssessmentTemplate
	if !s.decodeAndValidate(w, r, &tpl) {
		return
	}
	if _, ok := s.store.GetGrade(tpl.GradeID); !ok {
		s.respondInvalid(w, invalidField("grade_id", "grade_id does not exist"))
		return
	}
	if _, ok := s.store.GetSchoolYear(tpl.SchoolYearID); !ok {
		s.respondInvalid(w, invalidField("school_year_id", "school_year_id does not exist"))
		return
	}

	if tpl.ID == "" {
		tpl.ID = s.newID()
	}
	s.fillTemplateIDs(&tpl)
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = s.now().UTC()
	}
	s.store.AddTemplate(tpl)
	s.respondStatus(w, http.StatusCreated, newTemplateView(tpl))
}

func (s *Server) fillTemplateIDs(tpl *types.AssessmentTemplate) {
	for i := range tpl.Subjects {
		if tpl.Subjects[i].ID == "" {
			tpl.Subjects[i].ID = s.newID()
		}
		for j := range tpl.Subjects[i].AssessmentPoints {
			if tpl.Subjects[i].AssessmentPoints[j].ID == "" {
				tpl.Subjects[i].AssessmentPoints[j].ID = s.newID()
			}
		}
	}
	for i := range tpl.Points {
		if tpl.Points[i].ID == "" {
			tpl.Points[i].ID = s.newID()
		}
	}
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var patch types.AssessmentTemplatePatch
	if !s.decodeAndValidate(w, r, &patch) {
		return
	}
	if patch.Subjects != nil || patch.Points != nil {
		// tmp shares backing arrays with patch
		tmp := types.AssessmentTemplate{}
		if patch.Subjects != nil {
			tmp.Subjects = *patch.Subjects
		}
		if patch.Points != nil {
			tmp.Points = *patch.Points
		}
		s.fillTemplateIDs(&tmp)
	}
	if !s.store.UpdateTemplate(id, patch) {
		s.respondError(w, http.StatusNotFound, "Template not found")
		return
	}
	tpl, _ := s.store.GetTemplate(id)
	s.respondJSON(w, newTemplateView(tpl))
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if !s.store.DeleteTemplate(pathID(r, "id")) {
		s.respondError(w, http.StatusNotFound, "Template not found")
		return
	}
	s.respondJSON(w, map[string]bool{"success": true})
}

// handleDuplicateTemplate copies a template into a school year
func (s *Server) handleDuplicateTemplate(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var req struct {
		SchoolYearID  string `json:"school_year_id"`
		Name          string `json:"name"`
		KeepNestedIDs bool   `json:"keep_nested_ids"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.validator.Require("school_year_id", req.SchoolYearID); err != nil {
		s.respondInvalid(w, err)
		return
	}
	if _, ok := s.store.GetTemplate(id); !ok {
		s.respondError(w, http.StatusNotFound, "Template not found")
		return
	}
	if _, ok := s.store.GetSchoolYear(req.SchoolYearID); !ok {
		s.respondInvalid(w, invalidField("school_year_id", "school_year_id does not exist"))
		return
	}

	dup, ok := s.store.DuplicateTemplate(id, req.SchoolYearID, state.DuplicateOptions{
		KeepNestedIDs: req.KeepNestedIDs,
		Name:          strings.TrimSpace(req.Name),
	})
	if !ok {
		s.respondError(w, http.StatusNotFound, "Template not found")
		return
	}
	s.respondStatus(w, http.StatusCreated, newTemplateView(dup))
}
