package daemon

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"

	"cardgraph/internal/api"
	"cardgraph/internal/envcheck"
	"cardgraph/internal/logging"
	"cardgraph/internal/sessions"
)

func (s *apiServer) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.daemon.aggregator.Overview(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.OverviewResponse{
		Overview: overview,
		PID:      os.Getpid(),
		DBPath:   s.daemon.store.Path(),
	})
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := sessions.ListFilter{}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, ok := sessions.ParseStatus(raw)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status "+raw)
			return
		}
		filter.Status = status
	}
	filter.Limit, _ = strconv.Atoi(query.Get("limit"))
	filter.Offset, _ = strconv.Atoi(query.Get("offset"))

	items, total, err := s.daemon.manager.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionListResponse{Sessions: items, Total: total})
}

func (s *apiServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload api.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req, err := payload.ToCreateRequest()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	created, err := s.daemon.manager.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.SessionResponse{Session: created})
}

func (s *apiServer) handleShow(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	session, err := s.daemon.manager.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: session})
}

func (s *apiServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	var payload api.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req, err := payload.ToCreateRequest()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	updated, err := s.daemon.manager.Update(r.Context(), id, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: updated})
}

func (s *apiServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	result, err := s.daemon.manager.Delete(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DeleteResponse{FilesRemoved: result.FilesRemoved})
}

func (s *apiServer) handleStart(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	session, err := s.daemon.manager.Start(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SessionResponse{Session: session})
}

func (s *apiServer) handleStop(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.manager.Stop(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"state": "stop_requested"})
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.manager.Cancel(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"state": "cancel_requested"})
}

func (s *apiServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	snap, err := s.daemon.aggregator.Snapshot(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.StatusResponse{Status: snap})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	entries, err := s.daemon.manager.Logs(r.Context(), id, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.LogsResponse{Logs: entries})
}

func (s *apiServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.daemon.store.GetSettings(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SettingsResponse{Settings: settings})
}

func (s *apiServer) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings sessions.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := s.daemon.store.ReplaceSettings(r.Context(), &settings); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SettingsResponse{Settings: &settings})
}

func (s *apiServer) handleEnvCheck(w http.ResponseWriter, r *http.Request) {
	settings, err := s.daemon.store.GetSettings(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	report := envcheck.RunAll(s.daemon.cfg, settings)
	s.writeJSON(w, http.StatusOK, api.EnvCheckResponse{Report: report, Healthy: report.Healthy()})
}

func (s *apiServer) handleTick(w http.ResponseWriter, r *http.Request) {
	result, err := s.daemon.sched.Tick(r.Context(), s.schedulerKey(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TickResponse{Result: result})
}

func (s *apiServer) handleCleanup(w http.ResponseWriter, r *http.Request) {
	result, err := s.daemon.sched.Reap(r.Context(), s.schedulerKey(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ReapResponse{Result: result})
}

// schedulerKey extracts the shared secret from a JSON body or form field.
func (s *apiServer) schedulerKey(r *http.Request) string {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var payload api.TickRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
			return payload.Key
		}
		return ""
	}
	return r.FormValue("key")
}

func (s *apiServer) sessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid session id")
		return 0, false
	}
	return id, true
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := sessions.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", logging.Error(err))
	}
	s.writeError(w, status, err.Error())
}
