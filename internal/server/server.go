package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/STARREPORTS/internal/derive"
	"github.com/STARREPORTS/internal/events"
	"github.com/STARREPORTS/internal/metrics"
	"github.com/STARREPORTS/internal/notifications"
	"github.com/STARREPORTS/internal/persistence"
	"github.com/STARREPORTS/internal/rewrite"
	"github.com/STARREPORTS/internal/types"
	"github.com/STARREPORTS/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Options carries the dependencies of a Server. Bus, Notifications and
// Metrics are optional.
type Options struct {
	Store         persistence.Store
	Rewriter      rewrite.Rewriter
	Bus           *events.Bus
	Notifications *notifications.Manager
	// Metrics backs /api/metrics; the route answers 503 when nil
	Metrics metrics.Collector
	Config  types.ServerConfig
	// TermOrder sorts exam result groups; LexicalTermOrder when nil
	TermOrder derive.TermLess
}

// Server is the main HTTP server
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	hub        *Hub

	store         persistence.Store
	validator     *validation.Validator
	rewriter      rewrite.Rewriter
	staging       *rewrite.Staging
	bus           *events.Bus
	notifications *notifications.Manager
	metrics       metrics.Collector
	origins       *originChecker
	config        types.ServerConfig
	termOrder     derive.TermLess

	newID     func() string
	now       func() time.Time
	startTime time.Time
}

// NewServer creates a new server instance and subscribes it to store
// changes
func NewServer(opts Options) *Server {
	s := &Server{
		hub:           NewHub(),
		store:         opts.Store,
		validator:     validation.New(),
		rewriter:      opts.Rewriter,
		staging:       rewrite.NewStaging(),
		bus:           opts.Bus,
		notifications: opts.Notifications,
		metrics:       opts.Metrics,
		origins:       newOriginChecker(opts.Config.AllowedOrigins),
		config:        opts.Config,
		termOrder:     opts.TermOrder,
		newID:         uuid.NewString,
		now:           time.Now,
		startTime:     time.Now(),
	}
	if s.termOrder == nil {
		s.termOrder = derive.LexicalTermOrder
	}

	s.store.OnChange(s.onChange)
	if s.notifications != nil {
		s.notifications.OnBannerChange(s.hub.BroadcastBanner)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealthCheck).Methods("GET")
	api.HandleFunc("/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/events", s.handleGetEvents).Methods("GET")
	api.HandleFunc("/metrics", s.handleGetMetrics).Methods("GET")

	// School years
	api.HandleFunc("/school-years", s.handleListSchoolYears).Methods("GET")
	api.HandleFunc("/school-years", s.handleCreateSchoolYear).Methods("POST")
	api.HandleFunc("/school-years/{id}", s.handleUpdateSchoolYear).Methods("PUT")
	api.HandleFunc("/school-years/{id}", s.handleDeleteSchoolYear).Methods("DELETE")
	api.HandleFunc("/school-years/{id}/activate", s.handleActivateSchoolYear).Methods("POST")

	// Grades
	api.HandleFunc("/grades", s.handleListGrades).Methods("GET")
	api.HandleFunc("/grades", s.handleCreateGrade).Methods("POST")
	api.HandleFunc("/grades/{id}", s.handleUpdateGrade).Methods("PUT")
	api.HandleFunc("/grades/{id}", s.handleDeleteGrade).Methods("DELETE")
	api.HandleFunc("/grades/{id}/assignments", s.handleGradeAssignments).Methods("GET")

	// Assessment templates
	api.HandleFunc("/templates", s.handleListTemplates).Methods("GET")
	api.HandleFunc("/templates", s.handleCreateTemplate).Methods("POST")
	api.HandleFunc("/templates/{id}", s.handleGetTemplate).Methods("GET")
	api.HandleFunc("/templates/{id}", s.handleUpdateTemplate).Methods("PUT")
	api.HandleFunc("/templates/{id}", s.handleDeleteTemplate).Methods("DELETE")
	api.HandleFunc("/templates/{id}/duplicate", s.handleDuplicateTemplate).Methods("POST")

	// Students
	api.HandleFunc("/students", s.handleListStudents).Methods("GET")
	api.HandleFunc("/students", s.handleCreateStudent).Methods("POST")
	api.HandleFunc("/students/{id}", s.handleGetStudent).Methods("GET")
	api.HandleFunc("/students/{id}", s.handleUpdateStudent).Methods("PUT")
	api.HandleFunc("/students/{id}", s.handleDeleteStudent).Methods("DELETE")

	// Reports
	api.HandleFunc("/reports", s.handleListReports).Methods("GET")
	api.HandleFunc("/reports", s.handleCreateReport).Methods("POST")
	api.HandleFunc("/reports/{id}", s.handleGetReport).Methods("GET")
	api.HandleFunc("/reports/{id}", s.handleUpdateReport).Methods("PUT")
	api.HandleFunc("/reports/{id}", s.handleDeleteReport).Methods("DELETE")
	api.HandleFunc("/reports/{id}/progress", s.handleReportProgress).Methods("GET")
	api.HandleFunc("/reports/{id}/exam-results", s.handleListExamResults).Methods("GET")
	api.HandleFunc("/reports/{id}/exam-results", s.handleAddExamResult).Methods("POST")
	api.HandleFunc("/reports/{id}/exam-results/{examId}", s.handleUpdateExamResult).Methods("PUT")
	api.HandleFunc("/reports/{id}/exam-results/{examId}", s.handleDeleteExamResult).Methods("DELETE")
	api.HandleFunc("/reports/{id}/reflections", s.handleUpdateReflection).Methods("PUT")
	api.HandleFunc("/reports/{id}/sign", s.handleSignReport).Methods("POST")
	api.HandleFunc("/reports/{id}/entries/{pointId}", s.handleUpdateEntry).Methods("PUT")
	api.HandleFunc("/reports/{id}/comments/{subjectId}", s.handleUpdateComment).Methods("PUT")
	api.HandleFunc("/reports/{id}/share", s.handleShareReport).Methods("POST")
	api.HandleFunc("/reports/{id}/share", s.handleUnshareReport).Methods("DELETE")

	// Staged rewrites
	api.HandleFunc("/reports/{id}/rewrites", s.handleListStaged).Methods("GET")
	api.HandleFunc("/reports/{id}/rewrites", s.handleStageRewrite).Methods("POST")
	api.HandleFunc("/reports/{id}/rewrites/{kind}/{key}/accept", s.handleAcceptStaged).Methods("POST")
	api.HandleFunc("/reports/{id}/rewrites/{kind}/{key}", s.handleDiscardStaged).Methods("DELETE")

	// Documents
	api.HandleFunc("/documents", s.handleListDocuments).Methods("GET")
	api.HandleFunc("/documents", s.handleUploadDocument).Methods("POST")
	api.HandleFunc("/documents/{id}", s.handleUpdateDocument).Methods("PUT")
	api.HandleFunc("/documents/{id}", s.handleDeleteDocument).Methods("DELETE")
	api.HandleFunc("/documents/{id}/download", s.handleDownloadDocument).Methods("GET")

	// Settings
	api.HandleFunc("/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/settings", s.handleUpdateSettings).Methods("PUT")

	// Operator banner
	api.HandleFunc("/notifications/banner", s.handleGetBanner).Methods("GET")
	api.HandleFunc("/notifications/banner/clear", s.handleClearBanner).Methods("POST")

	// Shared view, reachable by anyone holding the token
	api.HandleFunc("/shared/{token}", s.handleGetShared).Methods("GET")
	api.HandleFunc("/shared/{token}/reflections", s.handleUpdateSharedReflection).Methods("PUT")

	// Rewrite gateway, callable from any origin
	api.Handle("/rewrite", OpenCORSMiddleware(http.HandlerFunc(s.handleRewrite))).Methods("POST", "OPTIONS")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return SecurityHeadersMiddleware(LoggingMiddleware(s.router))
}

// Hub returns the websocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.hub.Run()

	log.Printf("[SERVER] StarReports ready at http://localhost%s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and disconnects websocket clients. The
// caller closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// onChange pushes the new state to browsers and records the change
func (s *Server) onChange(c persistence.Change) {
	s.hub.BroadcastState(s.store.GetState())
	if s.bus != nil {
		s.bus.Publish(ChangeEvent(c))
	}
}

// ChangeEvent converts a store change into a bus event
func ChangeEvent(c persistence.Change) *events.Event {
	return events.NewEvent(events.EventType(c.Kind), c.Action, c.ID, "store", map[string]interface{}{
		"op": c.Op,
	})
}
