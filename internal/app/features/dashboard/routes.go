// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/go-chi/chi/v5"
	"github.com/sparktrack/sparktrack/internal/app/system/auth"
	"github.com/sparktrack/sparktrack/internal/domain/models"
)

// Routes returns the dashboard routes. Admins and mentors only.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireRole(models.RoleAdmin, models.RoleMentor))

	r.Get("/", h.ServeSummary)

	return r
}
