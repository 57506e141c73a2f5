// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/go-chi/chi/v5"
	"github.com/sparktrack/sparktrack/internal/app/system/auth"
	"github.com/sparktrack/sparktrack/internal/domain/models"
)

// Routes returns the audit log routes. Admin only.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireRole(models.RoleAdmin))

	r.Get("/", h.ServeList)

	return r
}
