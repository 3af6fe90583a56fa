package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/STARREPORTS/internal/derive"
	"github.com/STARREPORTS/internal/rewrite"
)

// handleRewrite proxies one rewrite request to the gateway
func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	var req rewrite.Request
	if !s.decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.rewriter.Rewrite(r.Context(), req)
	if err != nil {
		s.respondRewriteError(w, err)
		return
	}
	s.respondJSON(w, resp)
}

func (s *Server) respondRewriteError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var gerr *rewrite.Error
	if errors.As(err, &gerr) {
		msg = gerr.Message()
	}
	if errors.Is(err, context.Canceled) {
		msg = "request cancelled"
	}
	s.respondError(w, rewrite.StatusOf(err), msg)
}

// stageRequest asks for a rewrite of one report field
type stageRequest struct {
	Kind         rewrite.TargetKind `json:"kind" validate:"required,oneof=entry comment"`
	Key          string             `json:"key" validate:"required"`
	Text         string             `json:"text"`
	Provider     string             `json:"provider"`
	CustomAPIKey string             `json:"customApiKey,omitempty"`
}

// handleStageRewrite rewrites the text and stages the result for review.
// A newer request on the same field makes this one stale; stale results
// are dropped with 409.
func (s *Server) handleStageRewrite(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reportOr404(w, r)
	if !ok {
		return
	}
	var req stageRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	target := rewrite.Target{ReportID: report.ID, Kind: req.Kind, Key: req.Key}
	st := s.store.GetState()
	studentName := ""
	for _, student := range st.Students {
		if student.ID == report.StudentID {
			studentName = derive.DisplayName(student)
			break
		}
	}

	seq := s.staging.Begin(target)
	resp, err := s.rewriter.Rewrite(r.Context(), rewrite.Request{
		Text:         req.Text,
		StyleGuide:   st.Settings.CompanyWritingStyle,
		StudentName:  studentName,
		Provider:     req.Provider,
		CustomAPIKey: req.CustomAPIKey,
	})
	if err != nil {
		s.respondRewriteError(w, err)
		return
	}
	if !s.staging.Put(target, seq, resp.RewrittenText) {
		s.respondError(w, http.StatusConflict, "A newer rewrite was requested for this field")
		return
	}

	staged, _ := s.staging.Get(target)
	s.hub.BroadcastStaged(staged)
	s.respondStatus(w, http.StatusCreated, staged)
}

func (s *Server) handleListStaged(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reportOr404(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, s.staging.ForReport(report.ID))
}

func stagedTarget(r *http.Request) rewrite.Target {
	return rewrite.Target{
		ReportID: pathID(r, "id"),
		Kind:     rewrite.TargetKind(pathID(r, "kind")),
		Key:      pathID(r, "key"),
	}
}

// handleAcceptStaged writes the staged text into the report
func (s *Server) handleAcceptStaged(w http.ResponseWriter, r *http.Request) {
	target := stagedTarget(r)
	if !target.Valid() {
		s.respondError(w, http.StatusBadRequest, "kind must be entry or comment")
		return
	}
	if _, ok := s.staging.Get(target); !ok {
		s.respondError(w, http.StatusNotFound, "Nothing staged for this field")
		return
	}
	if _, ok := s.staging.Accept(target, s.store); !ok {
		s.respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	s.respondReport(w, target.ReportID)
}

func (s *Server) handleDiscardStaged(w http.ResponseWriter, r *http.Request) {
	target := stagedTarget(r)
	if !target.Valid() {
		s.respondError(w, http.StatusBadRequest, "kind must be entry or comment")
		return
	}
	s.staging.Discard(target)
	s.respondJSON(w, map[string]bool{"success": true})
}
