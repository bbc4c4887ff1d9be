package http

import (
	"context"
	"errors"
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/joshmcarthur/cap-alerts/internal/domain"
	"github.com/joshmcarthur/cap-alerts/internal/filter"
	"github.com/joshmcarthur/cap-alerts/internal/pipeline"
)

// AlertService is the loader surface the API reads from.
type AlertService interface {
	sharedobs.ReadinessChecker
	Query(spec filter.Spec) []domain.DisplayAlert
	Lookup(id string) (domain.DisplayAlert, bool)
	Options() filter.Options
	Status() pipeline.Status
	Reload(ctx context.Context) (pipeline.Status, error)
}

type alertsResponse struct {
	Count    int                   `json:"count"`
	Query    string                `json:"query"`
	Alerts   []domain.DisplayAlert `json:"alerts"`
	Selected *domain.DisplayAlert  `json:"selected,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleListAlerts filters the published alerts by the URL parameters. The
// canonical form of the parsed query is echoed back for the caller's address bar.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	spec, selectedID := filter.DecodeParams(r.URL.Query())
	alerts := s.alerts.Query(spec)

	resp := alertsResponse{
		Count:  len(alerts),
		Query:  filter.EncodeParams(spec, selectedID).Encode(),
		Alerts: alerts,
	}
	if selectedID != "" {
		if d, ok := s.alerts.Lookup(selectedID); ok {
			resp.Selected = &d
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, ok := s.alerts.Lookup(id)
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: "alert not found: " + id})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, d)
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.alerts.Options())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.alerts.Status())
}

// handleReload starts a load in the background and returns immediately.
// Progress is visible through /api/status.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := s.alerts.Reload(ctx); err != nil && !errors.Is(err, pipeline.ErrSuperseded) {
			s.logger.Warn("requested reload failed", "error", err)
		}
	}()
	sharedobs.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "reload started"})
}
