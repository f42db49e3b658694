package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"ops-analytics/internal/dashboard"
	"ops-analytics/internal/metrics"
	"ops-analytics/internal/rotation"
	"ops-analytics/internal/window"
)

// StatusResponse is the JSON response for /api/status.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	StartedAt   time.Time `json:"started_at"`
	Generation  uint64    `json:"generation"`
	LastRefresh time.Time `json:"last_refresh,omitempty"`
	Window      string    `json:"window,omitempty"`
	Alerts      int       `json:"alerts"`
	Unread      int       `json:"unread"`
	Subscribers int       `json:"subscribers"`
}

// MetricsResponse is a windowed metrics computation.
type MetricsResponse struct {
	Window     string           `json:"window"`
	ComputedAt time.Time        `json:"computed_at"`
	Metrics    *metrics.Metrics `json:"metrics"`
}

// ToggleResponse reports the new state of a toggled day.
type ToggleResponse struct {
	ProfileID string          `json:"profile_id"`
	Day       int             `json:"day"`
	State     string          `json:"state"`
	View      *dashboard.View `json:"view,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.startedAt).Truncate(time.Second).String(),
		StartedAt:   s.startedAt,
		Subscribers: s.hub.Count(),
	}
	if v := s.session.Current(); v != nil {
		resp.Generation = v.Generation
		resp.LastRefresh = v.ComputedAt
		resp.Window = v.WindowKey
		resp.Alerts = len(v.Alerts)
		resp.Unread = v.Unread
	} else {
		resp.Status = "warming_up"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	v := s.session.Current()
	if v == nil {
		writeError(w, http.StatusServiceUnavailable, dashboard.ErrNoView.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleRefresh recomputes the view, optionally for another window.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		v   *dashboard.View
		err error
	)
	if q.Get("window") == "" {
		v, err = s.session.Refresh(r.Context())
	} else {
		sel, perr := window.ParseSelector(q.Get("window"), q.Get("start"), q.Get("end"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		v, err = s.session.RefreshWindow(r.Context(), sel)
	}
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleMetrics computes metrics for an arbitrary window without touching the view.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel, err := window.ParseSelector(q.Get("window"), q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var dim metrics.Dimension
	if raw := q.Get("dimension"); raw != "" {
		if dim, err = metrics.ParseDimension(raw); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	res, err := s.session.Metrics(r.Context(), sel, dim)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MetricsResponse{
		Window:     res.Range.Key(),
		ComputedAt: res.ComputedAt,
		Metrics:    res.Metrics,
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	v := s.session.Current()
	if v == nil {
		writeError(w, http.StatusServiceUnavailable, dashboard.ErrNoView.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": v.Alerts,
		"unread": v.Unread,
	})
}

func (s *Server) handleAlertRead(read bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if !s.knownAlert(w, id) {
			return
		}
		var (
			v   *dashboard.View
			err error
		)
		if read {
			v, err = s.session.MarkRead(r.Context(), id)
		} else {
			v, err = s.session.MarkUnread(r.Context(), id)
		}
		if err != nil {
			s.writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (s *Server) handleAlertExpanded(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.knownAlert(w, id) {
		return
	}
	expanded := true
	if raw := r.URL.Query().Get("value"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "value must be a boolean")
			return
		}
		expanded = b
	}
	v, err := s.session.SetExpanded(r.Context(), id, expanded)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleReadAll(w http.ResponseWriter, r *http.Request) {
	v, err := s.session.MarkAllRead(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleCapital(w http.ResponseWriter, _ *http.Request) {
	v := s.session.Current()
	if v == nil {
		writeError(w, http.StatusServiceUnavailable, dashboard.ErrNoView.Error())
		return
	}
	writeJSON(w, http.StatusOK, v.Capital)
}

func (s *Server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	v := s.session.Current()
	if v == nil {
		writeError(w, http.StatusServiceUnavailable, dashboard.ErrNoView.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profiles": s.session.Profiles(),
		"houses":   v.Houses,
	})
}

// handleToggle flips one schedule day. Days in the path are 1-based.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	day, err := strconv.Atoi(vars["day"])
	if err != nil || day < 1 {
		writeError(w, http.StatusBadRequest, "day must be a positive integer")
		return
	}

	state, v, err := s.session.Toggle(r.Context(), vars["id"], day-1)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{
		ProfileID: vars["id"],
		Day:       day,
		State:     string(state),
		View:      v,
	})
}

func (s *Server) knownAlert(w http.ResponseWriter, id string) bool {
	v := s.session.Current()
	if v == nil {
		writeError(w, http.StatusServiceUnavailable, dashboard.ErrNoView.Error())
		return false
	}
	for _, a := range v.Alerts {
		if a.ID == id {
			return true
		}
	}
	writeError(w, http.StatusNotFound, "alert not found: "+id)
	return false
}

// writeSessionError maps session errors to status codes.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rotation.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dashboard.ErrDayOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dashboard.ErrStale):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, dashboard.ErrNoView):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.WithError(err).Warn("request failed")
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
