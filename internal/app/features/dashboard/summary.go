// internal/app/features/dashboard/summary.go
package dashboard

import (
	"net/http"

	metricsstore "github.com/sparktrack/sparktrack/internal/app/store/metrics"
	"github.com/sparktrack/sparktrack/internal/app/system/respond"
	"github.com/sparktrack/sparktrack/internal/app/system/timeouts"
)

// ServeSummary handles GET /api/dashboard - formation progress at a glance.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "dashboard counts")
	defer cancel()

	counts := metricsstore.FetchDashboardCounts(ctx, h.DB)
	respond.OK(w, "Dashboard retrieved", counts)
}
