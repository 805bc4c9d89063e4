package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"conveyor/internal/api"
	"conveyor/internal/config"
	"conveyor/internal/configstore"
	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

// newAPIServer builds the API surface. An empty bind address leaves the
// listener unconfigured; the router stays available for embedding either way.
func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	if srv.bind != "" {
		// WriteTimeout stays zero: the updates endpoint holds a response
		// open for the lifetime of the subscription.
		srv.server = &http.Server{
			Handler:           srv.router(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	return srv
}

func (s *apiServer) router() http.Handler {
	r := chi.NewRouter()

	r.Get(api.RouteStatus, s.handleStatus)

	r.Route(api.RouteConfigurations, func(r chi.Router) {
		r.Get("/", s.handleListConfigurations)
		r.Post("/", s.handleCreateConfiguration)
		r.Route("/{configID}", func(r chi.Router) {
			r.Get("/", s.handleGetConfiguration)
			r.Put("/steps/{stepID}/payload", s.handleUpdateStepPayload)
		})
	})

	r.Post(api.RouteExecute, s.handleExecute)

	r.Route("/api/executions/{executionID}", func(r chi.Router) {
		r.Get("/", s.handleGetExecution)
		r.Post("/pause", s.executionAction(s.daemon.executions.Pause))
		r.Post("/resume", s.executionAction(s.daemon.executions.Resume))
		r.Post("/stop", s.executionAction(s.daemon.executions.Stop))
		r.Post("/steps/{stepID}/run", s.handleRunStep)
		r.Post("/steps/{stepID}/run-from", s.handleRunFromStep)
		r.Post("/steps/{stepID}/update", s.handleIngestUpdate)
		r.Get("/updates", s.handleUpdates)
	})

	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.StatusResponse{
		Running:          status.Running,
		PID:              status.PID,
		DBPath:           status.DBPath,
		Configurations:   status.Configurations,
		ActiveExecutions: status.ActiveExecutions,
	})
}

func (s *apiServer) handleListConfigurations(w http.ResponseWriter, r *http.Request) {
	configs, err := s.daemon.configs.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ConfigurationListResponse{Configurations: configs})
}

func (s *apiServer) handleGetConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.daemon.configs.Get(r.Context(), chi.URLParam(r, "configID"))
	if errors.Is(err, configstore.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ConfigurationResponse{Configuration: *cfg})
}

func (s *apiServer) handleCreateConfiguration(w http.ResponseWriter, r *http.Request) {
	var draft api.ConfigurationDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := s.daemon.configs.Create(r.Context(), draft)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			s.writeError(w, http.StatusBadRequest, apiErr.Message)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, api.ConfigurationResponse{Configuration: *created})
}

func (s *apiServer) handleUpdateStepPayload(w http.ResponseWriter, r *http.Request) {
	var req api.PayloadUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.daemon.configs.UpdateStepPayload(r.Context(),
		chi.URLParam(r, "configID"), chi.URLParam(r, "stepID"), req.Payload)
	if errors.Is(err, configstore.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

func (s *apiServer) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req api.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg, err := s.daemon.configs.Get(r.Context(), req.ConfigurationID)
	if errors.Is(err, configstore.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	exec := s.daemon.executions.Start(*cfg)
	s.logger.Info("execution started",
		logging.String(logging.FieldExecutionID, exec.ID),
		logging.String(logging.FieldConfigID, cfg.ID))
	s.writeJSON(w, http.StatusOK, api.ExecuteResponse{ExecutionID: exec.ID})
}

func (s *apiServer) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	executionID := chi.URLParam(r, "executionID")
	exec, ok := s.daemon.executions.Get(executionID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "execution not found")
		return
	}

	state := api.ExecutionState{
		ID:               exec.ID,
		ConfigurationID:  exec.ConfigurationID,
		Status:           exec.Status,
		CurrentStepIndex: exec.CurrentStepIndex,
		Steps:            make([]pipeline.StepSummary, len(exec.Steps)),
	}
	for i, step := range exec.Steps {
		state.Steps[i] = step.Summarize()
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *apiServer) executionAction(action func(string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		executionID := chi.URLParam(r, "executionID")
		if err := action(executionID); err != nil {
			status := http.StatusConflict
			if strings.Contains(err.Error(), "not found") {
				status = http.StatusNotFound
			}
			s.writeError(w, status, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, nil)
	}
}

func (s *apiServer) handleRunStep(w http.ResponseWriter, r *http.Request) {
	s.runSteps(w, r, false)
}

func (s *apiServer) handleRunFromStep(w http.ResponseWriter, r *http.Request) {
	s.runSteps(w, r, true)
}

func (s *apiServer) runSteps(w http.ResponseWriter, r *http.Request, onward bool) {
	executionID := chi.URLParam(r, "executionID")
	stepID := chi.URLParam(r, "stepID")
	var err error
	if onward {
		err = s.daemon.executions.RunFrom(executionID, stepID)
	} else {
		err = s.daemon.executions.RunStep(executionID, stepID)
	}
	if err != nil {
		status := http.StatusConflict
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "no step") {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

func (s *apiServer) handleIngestUpdate(w http.ResponseWriter, r *http.Request) {
	executionID := chi.URLParam(r, "executionID")
	stepID := chi.URLParam(r, "stepID")

	var update pipeline.StepUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	update.StepID = stepID

	if err := s.daemon.executions.Ingest(executionID, update); err != nil {
		status := http.StatusConflict
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "no step") {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

func (s *apiServer) handleUpdates(w http.ResponseWriter, r *http.Request) {
	executionID := chi.URLParam(r, "executionID")
	hub, ok := s.daemon.executions.Hub(executionID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "execution not found")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	since, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
	// Reconnecting EventSource clients resume via the standard header.
	if since == 0 {
		since, _ = strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	}
	for {
		updates, next, err := hub.Fetch(r.Context(), since, 64, true)
		for _, update := range updates {
			payload, encodeErr := json.Marshal(update)
			if encodeErr != nil {
				s.logger.Warn("skipping unencodable update", logging.Error(encodeErr))
				continue
			}
			fmt.Fprintf(w, "id: %d\n", update.Sequence)
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}
		if len(updates) > 0 {
			flusher.Flush()
		}
		since = next
		if err != nil {
			return
		}
		if len(updates) == 0 {
			// Fetch only returns empty without error when the hub closed.
			return
		}
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
