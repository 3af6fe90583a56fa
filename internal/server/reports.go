package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/STARREPORTS/internal/derive"
	"github.com/STARREPORTS/internal/state"
	"github.com/STARREPORTS/internal/types"
)

type reportView struct {
	types.StudentReport
	Progress derive.Progress `json:"progress"`
}

func newReportView(r types.StudentReport) reportView {
	return reportView{StudentReport: r, Progress: derive.ReportProgress(r)}
}

// reportOr404 loads the report named in the path or writes a 404
func (s *Server) reportOr404(w http.ResponseWriter, r *http.Request) (types.StudentReport, bool) {
	report, ok := s.store.GetReport(pathID(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "Report not found")
	}
	return report, ok
}

// respondReport writes the current version of report id
func (s *Server) respondReport(w http.ResponseWriter, id string) {
	report, ok := s.store.GetReport(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	s.respondJSON(w, newReportView(report))
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	st := s.store.GetState()
	reports := st.Reports
	if studentID := r.URL.Query().Get("student_id"); studentID != "" {
		reports = derive.ReportsForStudent(reports, studentID)
	} else if year, ok := s.yearParam(r, st); ok {
		reports = derive.ActiveFor(reports, year)
	}

	views := make([]reportView, 0, len(reports))
	for _, report := range reports {
		views = append(views, newReportView(report))
	}
	s.respondJSON(w, views)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reportOr404(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, newReportView(report))
}

// createReportRequest builds a report from a template
type createReportRequest struct {
	StudentID            string `json:"student_id" validate:"required"`
	AssessmentTemplateID string `json:"assessment_template_id" validate:"required"`
	Term                 string `json:"term" validate:"required"`
	ReportTitle          string `json:"report_title,omitempty"`
	PeriodStart          string `json:"period_start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PeriodEnd            string `json:"period_end,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	student, ok := s.store.GetStudent(req.StudentID)
	if !ok {
		s.respondInvalid(w, invalidField("student_id", "student_id does not exist"))
		return
	}
	tpl, ok := s.store.GetTemplate(req.AssessmentTemplateID)
	if !ok {
		s.respondInvalid(w, invalidField("assessment_template_id", "assessment_template_id does not exist"))
		return
	}

	report := state.NewReport(s.newID(), student, tpl, strings.TrimSpace(req.Term), s.now())
	report.ReportTitle = req.ReportTitle
	report.PeriodStart = req.PeriodStart
	report.PeriodEnd = req.PeriodEnd

	s.store.AddReport(report)
	s.respondStatus(w, http.StatusCreated, newReportView(report))
}

func (s *Server) handleUpdateReport(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var patch types.StudentReportPatch
	if !s.decodeAndValidate(w, r, &patch) {
		return
	}
	if patch.ExamResults != nil {
		for i := range *patch.ExamResults {
			if (*patch.ExamResults)[i].ID == "" {
				(*patch.ExamResults)[i].ID = s.newID()
			}
		}
	}
	if !s.store.UpdateReport(id, patch) {
		s.respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	s.respondReport(w, id)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if !s.store.DeleteReport(id) {
		s.respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	for _, staged := range s.staging.ForReport(id) {
		s.staging.Discard(staged.Target)
	}
	s.respondJSON(w, map[string]bool{"success": true})
}

func (s *Server) handleReportProgress(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reportOr404(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, derive.ReportProgress(report))
}

// Exam results

// handleListExamResults returns the results grouped by term.
// ?order=natural sorts "Term 2" before "Term 10".
func (s *Server) handleListExamResults(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reportOr404(w, r)
	if !ok {
		return
	}
	less := s.termOrder
	switch r.URL.Query().Get("order") {
	case "natural":
		less = derive.NaturalTermOrder
	case "lexical":
		less = derive.LexicalTermOrder
	}
	s.respondJSON(w, derive.GroupByTerm(report.ExamResults, less))
}

func (s *Server) handleAddExamResult(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var exam types.ExamResult
	if !s.decodeAndValidate(w, r, &exam) {
		return
	}
	if exam.ID == "" {
		exam.ID = s.newID()
	}
	if !s.store.AddExamResult(id, exam) {
		s.respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	s.respondStatus(w, http.StatusCreated, exam)
}

func (s *Server) handleUpdateExamResult(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reportOr404(w, r)
	if !ok {
		return
	}
	examID := pathID(r, "examId")
	var patch types.ExamResultPatch
	if !s.decodeAndValidate(w, r, &patch) {
		return
	}
	if !s.store.UpdateExamResult(report.ID, examID, patch) {
		s.respondError(w, http.StatusNotFound, "Exam result not found")
		return
	}
	s.respondReport(w, report.ID)
}

func (s *Server) handleDeleteExamResult(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reportOr404(w, r)
	if !ok {
		return
	}
	if !s.store.DeleteExamResult(report.ID, pathID(r, "examId")) {
		s.respondError(w, http.StatusNotFound, "Exam result not found")
		return
	}
	s.respondReport(w, report.ID)
}

// Reflections, signatures, entries and comments

func (s *Server) handleUpdateReflection(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var patch types.ReflectionPatch
	if !s.decodeAndValidate(w, r, &patch) {
		return
	}
	if !s.store.UpdateReportReflection(id, patch) {
		s.respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	s.respondReport(w, id)
}

type signRequest struct {
	Role types.SignatureRole `json:"role" validate:"required,oneof=classroom_teacher head_of_school"`
	Name string              `json:"name" validate:"required"`
}

func (s *Server) handleSignReport(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var req signRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if !s.store.SignReport(id, req.Role, strings.TrimSpace(req.Name)) {
		s.respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	s.respondReport(w, id)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reportOr404(w, r)
	if !ok {
		return
	}
	var patch types.ReportEntryPatch
	if !s.decodeAndValidate(w, r, &patch) {
		return
	}
	pointID := pathID(r, "pointId")
	if patch.Stars != nil && *patch.Stars > 0 {
		if tpl, ok := s.store.GetTemplate(report.AssessmentTemplateID); ok {
			if point, ok := derive.FindPoint(tpl, pointID); ok && *patch.Stars > point.MaxStars {
				s.respondInvalid(w, invalidField("stars", "stars exceeds the point's max_stars"))
				return
			}
		}
	}
	s.store.UpdateReportEntry(report.ID, pointID, patch)
	s.respondReport(w, report.ID)
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var patch types.SubjectCommentPatch
	if !s.decodeAndValidate(w, r, &patch) {
		return
	}
	if !s.store.UpdateSubjectComment(id, pathID(r, "subjectId"), patch) {
		s.respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	s.respondReport(w, id)
}

// Sharing

// handleShareReport assigns a share token, keeping an existing one
func (s *Server) handleShareReport(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	token, ok, err := s.store.AssignShareToken(id)
	if err != nil {
		log.Printf("[SERVER] Failed to mint share token: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to create share link")
		return
	}
	if !ok {
		s.respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	s.respondJSON(w, map[string]string{
		"token": token,
		"url":   s.shareURL(token),
	})
}

func (s *Server) handleUnshareReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reportOr404(w, r)
	if !ok {
		return
	}
	revoked := s.store.RevokeShareToken(report.ID)
	s.respondJSON(w, map[string]bool{"success": true, "revoked": revoked})
}

func (s *Server) shareURL(token string) string {
	return strings.TrimRight(s.config.PublicBaseURL, "/") + "/shared/" + token
}
