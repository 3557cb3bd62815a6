// Package server exposes the score store over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/rapidmidiex/rmxscore/quantize"
	"github.com/rapidmidiex/rmxscore/score"
	"github.com/rapidmidiex/rmxscore/smfexport"
	"github.com/rapidmidiex/rmxscore/store"
)

type (
	Options struct {
		Store store.Store
		// Directory exported files are written to and served from.
		ExportDir string
		// Origins allowed by CORS and the websocket handshake. "*" allows all.
		AllowedOrigins []string
		// Quiet period before watchers are told about an update.
		Debounce time.Duration
		Logger   *log.Logger
	}

	Server struct {
		handler   http.Handler
		store     store.Store
		exportDir string
		origins   []string
		upgrader  websocket.Upgrader
		hub       *hub
		log       *log.Logger
	}

	ErrorResponse struct {
		Detail string `json:"detail"`
	}

	// SegmentRequest selects notes by onset, in quarter notes from the start.
	SegmentRequest struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		// Export only, "mid" when empty.
		Format string `json:"format,omitempty"`
	}

	PlayResponse struct {
		Segment []string `json:"segment"`
	}

	ExportResponse struct {
		FilePath string `json:"file_path"`
	}
)

const (
	exportPrefix  = "/exports/"
	defaultFormat = "mid"
)

var errUnsupportedFormat = errors.New("unsupported export format")

func New(o Options) *Server {
	l := o.Logger
	if l == nil {
		l = log.Default()
	}
	s := &Server{
		store:     o.Store,
		exportDir: o.ExportDir,
		origins:   o.AllowedOrigins,
		hub:       newHub(o.Debounce, l),
		log:       l,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)

	api := router.PathPrefix("/api/scores").Subrouter()
	api.HandleFunc("/", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/{id}", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.handleUpdate).Methods(http.MethodPut)
	api.HandleFunc("/{id}/play", s.handlePlay).Methods(http.MethodPost)
	api.HandleFunc("/{id}/export", s.handleExport).Methods(http.MethodPost)
	api.HandleFunc("/{id}/live", s.handleLive).Methods(http.MethodGet)

	router.PathPrefix(exportPrefix).Handler(
		http.StripPrefix(exportPrefix, http.FileServer(http.Dir(o.ExportDir))))

	c := cors.New(cors.Options{
		AllowedOrigins:   o.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
	})
	s.handler = c.Handler(router)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close disconnects every watcher.
func (s *Server) Close() {
	s.hub.close()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the rmx score API"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var doc score.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("decode score: %w", err))
		return
	}
	doc = doc.Normalize()
	if err := checkFits(doc); err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	created, err := s.store.Create(r.Context(), doc)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Printf("created score %s %q", created.ID, created.Title)
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var p store.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("decode patch: %w", err))
		return
	}
	current, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// A new time signature re-packs the stored notes too.
	if err := checkFits(p.Apply(current)); err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	doc, err := s.store.Update(r.Context(), id, p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.hub.publish(doc)
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	doc, req, ok := s.segmentRequest(w, r)
	if !ok {
		return
	}
	notes := doc.Segment(req.Start, req.End)
	res := PlayResponse{Segment: make([]string, len(notes))}
	for i, n := range notes {
		res.Segment[i] = n.Pitch.String()
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, req, ok := s.segmentRequest(w, r)
	if !ok {
		return
	}
	format := strings.ToLower(req.Format)
	if format == "" {
		format = defaultFormat
	}
	if format != defaultFormat {
		s.writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("%w: %q", errUnsupportedFormat, req.Format))
		return
	}

	segment := doc
	segment.Notes = doc.Segment(req.Start, req.End)
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		s.writeError(w, fmt.Errorf("export: %w", err))
		return
	}
	name := fmt.Sprintf("%s-%s.%s", doc.ID, store.NewID(), format)
	if err := smfexport.WriteFile(filepath.Join(s.exportDir, name), segment); err != nil {
		s.writeError(w, fmt.Errorf("export %s: %w", doc.ID, err))
		return
	}
	s.log.Printf("exported score %s to %s", doc.ID, name)
	s.writeJSON(w, http.StatusOK, ExportResponse{FilePath: exportPrefix + name})
}

func (s *Server) segmentRequest(w http.ResponseWriter, r *http.Request) (score.Document, SegmentRequest, bool) {
	var req SegmentRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("decode segment: %w", err))
			return score.Document{}, req, false
		}
	}
	if req.Start < 0 || (req.End > 0 && req.End < req.Start) {
		s.writeErrorStatus(w, http.StatusBadRequest, fmt.Errorf("invalid segment [%g, %g)", req.Start, req.End))
		return score.Document{}, req, false
	}
	doc, err := s.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return score.Document{}, req, false
	}
	return doc, req, true
}

// checkFits rejects documents whose notes need more than score.MaxMeasures.
func checkFits(doc score.Document) error {
	if _, truncated := quantize.Quantize(doc.Notes, doc.TimeSignature.Beats(), score.MaxMeasures); truncated {
		return score.ErrMeasureLimit
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, store.ErrNotFound) {
		status = http.StatusNotFound
	}
	s.writeErrorStatus(w, status, err)
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Printf("server error: %v", err)
	}
	detail := err.Error()
	if errors.Is(err, store.ErrNotFound) {
		detail = "Score not found"
	}
	s.writeJSON(w, status, ErrorResponse{Detail: detail})
}
