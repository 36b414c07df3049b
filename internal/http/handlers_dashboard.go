package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"monthlynet/internal/ai"
	"monthlynet/internal/chart"
	"monthlynet/internal/core"
	"monthlynet/internal/log"
)

const (
	chartWidth  = 640
	chartHeight = 260
)

type dashboardView struct {
	layout
	HasData     bool
	Current     core.HistoryEntry
	Delta       core.Delta
	Updated     string
	Chart       chart.SVG
	ChartEmpty  string
	BillSummary core.BillSummary
	AIEnabled   bool

	// LockedInsight fills the insight card when no model is configured.
	LockedInsight insightsView
}

type insightsView struct {
	Locked  bool
	Insight core.InsightResponse
}

// handleDashboard renders the main page, or the welcome state without history.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := s.networth.Dashboard(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Dashboard load failed", log.FieldError, err)
		InternalServerError("Could not load your dashboard").Write(w)
		return
	}

	view := dashboardView{
		layout:      s.layout(r, "Dashboard", "dashboard"),
		HasData:     d.HasData,
		Current:     d.Current,
		Delta:       d.Delta,
		Chart:       chart.Render(chart.Series(d.History, s.loc), chartWidth, chartHeight),
		ChartEmpty:  chart.EmptyMessage,
		BillSummary: d.BillSummary,
		AIEnabled:   d.AIEnabled,

		LockedInsight: insightsView{Locked: true, Insight: ai.NotEnoughDataInsight},
	}
	if d.HasData {
		view.Updated = d.Current.RecordedAt().In(s.loc).Format("January 2, 2006")
	}
	s.render(w, r, http.StatusOK, "dashboard_page", view)
}

// handleInsights renders the insight card. It is loaded separately so a slow
// model call never blocks the dashboard.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp, err := s.networth.Insights(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Insights failed", log.FieldError, err, log.FieldOperation, log.OpInsights)
		resp = ai.UnavailableInsight
	}
	s.render(w, r, http.StatusOK, "insights_card", insightsView{
		Locked:  resp == ai.NotEnoughDataInsight,
		Insight: resp,
	})
}

// handleHistoryJSON serves the chart series in ascending timestamp order.
func (s *Server) handleHistoryJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	history, err := s.networth.History(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "History load failed", log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load history"})
		return
	}
	writeJSON(w, http.StatusOK, chart.Series(history, s.loc))
}

// handleTheme flips the theme cookie.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	next := themeDark
	if themeFromRequest(r) == themeDark {
		next = themeLight
	}
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    next,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if isHTMX(r) {
		NewHTMXResponse().Refresh().Status(http.StatusNoContent).Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the storage backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"rate_limiter": map[string]any{"active_clients": s.limiter.ActiveClients()},
		"ai":           s.networth.AIEnabled(),
	}
	checks["storage"] = "ok"
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes request and security counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	metrics := []struct {
		name, help, kind string
		value            float64
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", float64(s.tracer.Total())},
		{"rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", float64(s.limiter.Hits())},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", float64(s.limiter.ActiveClients())},
		{"suspicious_requests_total", "Requests flagged as probes", "counter", float64(s.detector.SuspiciousCount())},
		{"uptime_seconds", "Process uptime in seconds", "gauge", time.Since(s.started).Seconds()},
	}
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %.0f\n\n", m.name, m.help, m.name, m.kind, m.name, m.value)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
