package handlers

import (
	"net/http"

	"github.com/ukydev/maintenance-pm/internal/middleware"
	"github.com/ukydev/maintenance-pm/internal/models"
)

// Router holds every handler served by the API.
type Router struct {
	PM         *PMHandler
	Escalation *EscalationHandler
	Policy     *PolicyHandler
	Auth       *middleware.AuthMiddleware
	RateLimit  *middleware.RateLimitMiddleware
}

// Handler builds the mux and wraps it with authentication. Rate limiting is
// skipped when no limiter is configured.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", Health)

	runScheduler := rt.Auth.RequirePermission("run_pm_scheduler")
	viewCompliance := rt.Auth.RequirePermission("view_compliance")
	managers := rt.Auth.RequireRole(models.RoleManager)

	mux.Handle("/api/pm-scheduler/start", runScheduler(http.HandlerFunc(rt.PM.StartScheduler)))
	mux.Handle("/api/pm-scheduler/stop", runScheduler(http.HandlerFunc(rt.PM.StopScheduler)))
	mux.Handle("/api/pm-scheduler/status", viewCompliance(http.HandlerFunc(rt.PM.SchedulerStatus)))
	mux.Handle("/api/pm-scheduler/run", runScheduler(http.HandlerFunc(rt.PM.RunScheduler)))
	mux.Handle("/api/pm-engine/compliance/{equipmentId}", viewCompliance(http.HandlerFunc(rt.PM.Compliance)))
	mux.Handle("/api/pm-engine/schedule/{equipmentId}", viewCompliance(http.HandlerFunc(rt.PM.Schedule)))
	mux.Handle("/api/pm-engine/optimized-schedule", runScheduler(http.HandlerFunc(rt.PM.OptimizedSchedule)))
	mux.Handle("/api/pm-compliance", viewCompliance(http.HandlerFunc(rt.PM.WarehouseCompliance)))

	escalate := rt.Auth.RequireRole(models.RoleSupervisor, models.RoleManager)
	mux.Handle("/api/escalations/manual", escalate(http.HandlerFunc(rt.Escalation.Manual)))
	mux.Handle("/api/escalations/check", escalate(http.HandlerFunc(rt.Escalation.Check)))
	mux.Handle("/api/escalations/stats", viewCompliance(http.HandlerFunc(rt.Escalation.Stats)))
	mux.Handle("/api/escalations/status", viewCompliance(http.HandlerFunc(rt.Escalation.Status)))
	mux.Handle("/api/escalations/rules", writesRequire(managers, viewCompliance, http.HandlerFunc(rt.Escalation.Rules)))

	mux.Handle("/api/policies", writesRequire(managers, viewCompliance, http.HandlerFunc(rt.Policy.Policy)))

	var h http.Handler = rt.Auth.Authenticate(mux)
	if rt.RateLimit != nil {
		h = rt.RateLimit.RateLimit(h)
	}
	return h
}

// writesRequire guards reads with read and everything else with write.
func writesRequire(write, read func(http.Handler) http.Handler, next http.Handler) http.Handler {
	reads := read(next)
	writes := write(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reads.ServeHTTP(w, r)
			return
		}
		writes.ServeHTTP(w, r)
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
