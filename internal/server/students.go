package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/STARREPORTS/internal/derive"
	"github.com/STARREPORTS/internal/types"
)

// uploadTooLarge is shown to the user when an attachment exceeds the cap
var uploadTooLarge = fmt.Sprintf("File is too large. The maximum size is %d KB.", types.MaxUploadBytes/1024)

// multipartOverhead leaves room for form fields around the file
const multipartOverhead = 64 * 1024

type studentView struct {
	types.Student
	DisplayName string `json:"display_name"`
}

func newStudentView(st types.Student) studentView {
	return studentView{Student: st, DisplayName: derive.DisplayName(st)}
}

// Students

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	st := s.store.GetState()
	students := st.Students
	year, byYear := s.yearParam(r, st)
	grade := r.URL.Query().Get("grade_id")

	switch {
	case byYear && grade != "":
		students = derive.StudentsInGrade(students, grade, year)
	case byYear:
		students = derive.ActiveFor(students, year)
	case grade != "":
		filtered := []types.Student{}
		for _, student := range students {
			if student.GradeID == grade {
				filtered = append(filtered, student)
			}
		}
		students = filtered
	}

	views := make([]studentView, 0, len(students))
	for _, student := range students {
		views = append(views, newStudentView(student))
	}
	s.respondJSON(w, views)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	student, ok := s.store.GetStudent(pathID(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "Student not found")
		return
	}
	s.respondJSON(w, newStudentView(student))
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var student types.Student
	if !s.decodeAndValidate(w, r, &student) {
		return
	}
	if _, ok := s.store.GetGrade(student.GradeID); !ok {
		s.respondInvalid(w, invalidField("grade_id", "grade_id does not exist"))
		return
	}
	if _, ok := s.store.GetSchoolYear(student.SchoolYearID); !ok {
		s.respondInvalid(w, invalidField("school_year_id", "school_year_id does not exist"))
		return
	}
	if student.ID == "" {
		student.ID = s.newID()
	}
	s.store.AddStudent(student)
	s.respondStatus(w, http.StatusCreated, newStudentView(student))
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var patch types.StudentPatch
	if !s.decodeAndValidate(w, r, &patch) {
		return
	}
	if patch.GradeID != nil {
		if _, ok := s.store.GetGrade(*patch.GradeID); !ok {
			s.respondInvalid(w, invalidField("grade_id", "grade_id does not exist"))
			return
		}
	}
	if !s.store.UpdateStudent(id, patch) {
		s.respondError(w, http.StatusNotFound, "Student not found")
		return
	}
	student, _ := s.store.GetStudent(id)
	s.respondJSON(w, newStudentView(student))
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if !s.store.DeleteStudent(pathID(r, "id")) {
		s.respondError(w, http.StatusNotFound, "Student not found")
		return
	}
	s.respondJSON(w, map[string]bool{"success": true})
}

// Documents

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("student_id")
	reportID := r.URL.Query().Get("report_id")

	docs := []types.StudentDocument{}
	for _, d := range s.store.GetState().Documents {
		if studentID != "" && d.StudentID != studentID {
			continue
		}
		if reportID != "" && d.ReportID != reportID {
			continue
		}
		docs = append(docs, d)
	}
	s.respondJSON(w, docs)
}

// handleUploadDocument stores a multipart upload as a base64 document.
// Files over MaxUploadBytes are rejected with 413.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, types.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(types.MaxUploadBytes + multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			s.respondError(w, http.StatusRequestEntityTooLarge, uploadTooLarge)
			return
		}
		s.respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondInvalid(w, invalidField("file", "file is required"))
		return
	}
	defer file.Close()

	if header.Size > types.MaxUploadBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, uploadTooLarge)
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, types.MaxUploadBytes+1))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to read file")
		return
	}
	if len(data) > types.MaxUploadBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, uploadTooLarge)
		return
	}

	docType := types.DocumentType(r.FormValue("type"))
	if docType == "" {
		docType = types.DocumentGeneral
	}
	fileType := header.Header.Get("Content-Type")
	if fileType == "" {
		fileType = "application/octet-stream"
	}
	label := r.FormValue("label")
	if label == "" {
		label = header.Filename
	}

	doc := types.StudentDocument{
		ID:         s.newID(),
		StudentID:  r.FormValue("student_id"),
		Type:       docType,
		ReportID:   r.FormValue("report_id"),
		Label:      label,
		Comment:    r.FormValue("comment"),
		FileName:   header.Filename,
		FileType:   fileType,
		FileData:   base64.StdEncoding.EncodeToString(data),
		UploadedAt: s.now().UTC(),
	}
	if doc.Type == types.DocumentGeneral {
		doc.ReportID = ""
	}
	if err := s.validator.Struct(doc); err != nil {
		s.respondInvalid(w, err)
		return
	}
	if _, ok := s.store.GetStudent(doc.StudentID); !ok {
		s.respondInvalid(w, invalidField("student_id", "student_id does not exist"))
		return
	}
	if doc.ReportID != "" {
		if _, ok := s.store.GetReport(doc.ReportID); !ok {
			s.respondInvalid(w, invalidField("report_id", "report_id does not exist"))
			return
		}
	}

	s.store.AddDocument(doc)
	log.Printf("[SERVER] Stored document %s for student %s (%d bytes)", doc.ID, doc.StudentID, len(data))
	s.respondStatus(w, http.StatusCreated, doc)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	var patch types.StudentDocumentPatch
	if !s.decodeAndValidate(w, r, &patch) {
		return
	}
	current, ok := s.store.GetDocument(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "Document not found")
		return
	}
	docType := current.Type
	if patch.Type != nil {
		docType = *patch.Type
	}
	reportID := current.ReportID
	if patch.ReportID != nil {
		reportID = *patch.ReportID
	}
	if docType == types.DocumentReport && reportID == "" {
		s.respondInvalid(w, invalidField("report_id", "report_id is required"))
		return
	}

	s.store.UpdateDocument(id, patch)
	doc, _ := s.store.GetDocument(id)
	s.respondJSON(w, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if !s.store.DeleteDocument(pathID(r, "id")) {
		s.respondError(w, http.StatusNotFound, "Document not found")
		return
	}
	s.respondJSON(w, map[string]bool{"success": true})
}

// handleDownloadDocument serves the decoded file
func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.store.GetDocument(pathID(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "Document not found")
		return
	}
	data, err := base64.StdEncoding.DecodeString(doc.FileData)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Stored document is corrupt")
		return
	}

	contentType := doc.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	w.Write(data)
}
