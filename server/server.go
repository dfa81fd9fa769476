// Package server exposes the tuner and the practice scorer over HTTP. It
// stands in for a UI: clients post pitch samples or played notes and poll
// the latest snapshots.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/jsphweid/fretcoach/config"
	"github.com/jsphweid/fretcoach/engine"
	"github.com/jsphweid/fretcoach/file"
	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/note"
	"github.com/jsphweid/fretcoach/sample"
	"github.com/jsphweid/fretcoach/tuning"
	"github.com/rs/cors"
)

// ReportStore is where finished practice reports go besides the report
// directory, and where they are looked up when no file has them.
// *db.Archive satisfies it.
type ReportStore interface {
	SaveReport(ctx context.Context, r model.ScoreReport) error
	GetReport(ctx context.Context, id string) (model.ScoreReport, bool, error)
}

type Server struct {
	cfg     config.Config
	logger  *slog.Logger
	archive ReportStore

	mu       sync.Mutex
	tuner    *engine.Tuner
	samples  *sample.Chan
	practice *engine.Practice
	// session id of the last report written out
	persisted string
}

// New builds a server. archive may be nil.
func New(cfg config.Config, logger *slog.Logger, archive ReportStore) *Server {
	return &Server{cfg: cfg, logger: logger.With("component", "server"), archive: archive}
}

func (s *Server) Handler(allowedOrigins []string) http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/presets", s.handlePresets).Methods("GET")

	router.HandleFunc("/tuning", s.handleTuningState).Methods("GET")
	router.HandleFunc("/tuning/start", s.handleTuningStart).Methods("POST")
	router.HandleFunc("/tuning/samples", s.handleTuningSamples).Methods("POST")
	router.HandleFunc("/tuning/stop", s.handleTuningStop).Methods("POST")
	router.HandleFunc("/tuning/{action:advance|retreat|confirm}", s.handleTuningAction).Methods("POST")

	router.HandleFunc("/practice", s.handlePracticeState).Methods("GET")
	router.HandleFunc("/practice/start", s.handlePracticeStart).Methods("POST")
	router.HandleFunc("/practice/notes", s.handlePracticeNotes).Methods("POST")
	router.HandleFunc("/practice/samples", s.handlePracticeSamples).Methods("POST")
	router.HandleFunc("/practice/stop", s.handlePracticeStop).Methods("POST")

	router.HandleFunc("/reports/{id}", s.handleReport).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(router)
}

// Shutdown stops whatever is running.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTunerLocked()
	if s.practice != nil {
		if _, err := s.practice.Stop(); err != nil {
			s.logger.Warn("server: stopping practice", "err", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "could not decode request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tuning.Presets(s.cfg.ReferenceHz))
}

func (s *Server) handleTuningStart(w http.ResponseWriter, r *http.Request) {
	var req model.StartTuningRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Preset == "" {
		req.Preset = s.cfg.Preset
	}
	preset, err := tuning.PresetWithReference(req.Preset, s.cfg.ReferenceHz)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	sess, err := tuning.NewSession(preset, s.cfg.Completion())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTunerLocked()

	// posted samples arrive in bursts, so they are timed by frame
	clock := engine.NewFrameClock(time.Now(), s.cfg.Hop())
	s.tuner = engine.NewTuner(sess, s.cfg, engine.WithClock(clock.Now), engine.WithLogger(s.logger))
	s.samples = sample.NewChan(s.cfg.FeedSize * 64)
	if err := s.tuner.Start(context.Background(), s.samples); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.tuningStateLocked())
}

func (s *Server) stopTunerLocked() {
	if s.tuner == nil {
		return
	}
	s.samples.Close()
	if err := s.tuner.Stop(); err != nil {
		s.logger.Warn("server: stopping tuner", "err", err)
	}
}

func (s *Server) tuningStateLocked() model.TuningStateResponse {
	if s.tuner == nil {
		return model.TuningStateResponse{}
	}
	sess := s.tuner.Session()
	res := model.TuningStateResponse{
		Running:   s.tuner.Running(),
		Preset:    sess.Preset().Name,
		Strings:   sess.Strings(),
		Current:   sess.CurrentIndex(),
		Completed: sess.Completed(),
	}
	if u, ok := s.tuner.Snapshot(); ok {
		res.Update = &u
	}
	return res
}

func (s *Server) handleTuningState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.tuningStateLocked())
}

func (s *Server) handleTuningAction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tuner == nil {
		writeError(w, http.StatusConflict, "no tuning session")
		return
	}
	sess := s.tuner.Session()
	switch mux.Vars(r)["action"] {
	case "advance":
		sess.Advance()
	case "retreat":
		sess.Retreat()
	case "confirm":
		sess.ConfirmCurrentAndAdvance()
	}
	writeJSON(w, http.StatusOK, s.tuningStateLocked())
}

func (s *Server) handleTuningSamples(w http.ResponseWriter, r *http.Request) {
	var req model.SamplesRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	samples := s.samples
	running := s.tuner != nil && s.tuner.Running()
	s.mu.Unlock()
	if !running {
		writeError(w, http.StatusConflict, "tuner is not running")
		return
	}

	var res model.AcceptedResponse
	for _, smp := range req.Samples {
		if samples.Push(smp) {
			res.Accepted++
		} else {
			res.Dropped++
		}
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleTuningStop(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTunerLocked()
	writeJSON(w, http.StatusOK, s.tuningStateLocked())
}

func (s *Server) handlePracticeStart(w http.ResponseWriter, r *http.Request) {
	var req model.StartPracticeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Speed == 0 {
		req.Speed = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.practice != nil && s.practice.Running() {
		writeError(w, http.StatusConflict, "a practice session is already running")
		return
	}
	s.practice = engine.NewPractice(req.Title, req.Timeline, req.Speed, s.cfg, engine.WithLogger(s.logger))
	if err := s.practice.Start(context.Background()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.practiceStateLocked())
}

func (s *Server) practiceStateLocked() model.PracticeStateResponse {
	if s.practice == nil {
		return model.PracticeStateResponse{}
	}
	return model.PracticeStateResponse{
		Running:    s.practice.Running(),
		SessionID:  s.practice.ID(),
		Title:      s.practice.Title(),
		PlaybackMs: s.practice.PlaybackMs(),
		Snapshot:   s.practice.Snapshot(),
	}
}

func (s *Server) handlePracticeState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.practiceStateLocked())
}

func (s *Server) runningPractice(w http.ResponseWriter) *engine.Practice {
	s.mu.Lock()
	p := s.practice
	s.mu.Unlock()
	if p == nil || !p.Running() {
		writeError(w, http.StatusConflict, "practice is not running")
		return nil
	}
	return p
}

func (s *Server) handlePracticeNotes(w http.ResponseWriter, r *http.Request) {
	var req model.NotesRequest
	if !decode(w, r, &req) {
		return
	}
	p := s.runningPractice(w)
	if p == nil {
		return
	}

	events := make([]model.DetectedNoteEvent, 0, len(req.Notes))
	for _, n := range req.Notes {
		id, err := note.Parse(n.Note)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ev := model.DetectedNoteEvent{Note: id, TimestampMs: p.PlaybackMs()}
		if n.TimestampMs != nil {
			ev.TimestampMs = *n.TimestampMs
		}
		events = append(events, ev)
	}

	var res model.AcceptedResponse
	for _, ev := range events {
		if p.Submit(ev) {
			res.Accepted++
		} else {
			res.Dropped++
		}
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handlePracticeSamples(w http.ResponseWriter, r *http.Request) {
	var req model.SamplesRequest
	if !decode(w, r, &req) {
		return
	}
	p := s.runningPractice(w)
	if p == nil {
		return
	}
	var res model.AcceptedResponse
	for _, smp := range req.Samples {
		if p.SubmitSample(smp) {
			res.Accepted++
		} else {
			res.Dropped++
		}
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handlePracticeStop(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p := s.practice
	s.mu.Unlock()
	if p == nil {
		writeError(w, http.StatusConflict, "no practice session")
		return
	}

	report, err := p.Stop()
	if errors.Is(err, engine.ErrStopTimeout) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	fresh := s.persisted != report.SessionID
	s.persisted = report.SessionID
	s.mu.Unlock()
	if fresh {
		s.persist(r.Context(), report)
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) persist(ctx context.Context, report model.ScoreReport) {
	if path, err := file.WriteReport(s.cfg.ReportDir, report); err != nil {
		s.logger.Error("server: writing report", "err", err)
	} else {
		s.logger.Info("server: report written", "path", path)
	}
	if s.archive != nil {
		if err := s.archive.SaveReport(ctx, report); err != nil {
			s.logger.Error("server: archiving report", "err", err)
		}
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	paths, err := file.ListReports(s.cfg.ReportDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, p := range paths {
		report, err := file.ReadReport(p)
		if err == nil && report.SessionID == id {
			writeJSON(w, http.StatusOK, report)
			return
		}
	}
	if s.archive != nil {
		report, ok, err := s.archive.GetReport(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if ok {
			writeJSON(w, http.StatusOK, report)
			return
		}
	}
	writeError(w, http.StatusNotFound, "no report "+id)
}
