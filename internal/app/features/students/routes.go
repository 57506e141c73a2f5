// internal/app/features/students/routes.go
package students

import (
	"github.com/go-chi/chi/v5"
	"github.com/sparktrack/sparktrack/internal/app/system/auth"
	"github.com/sparktrack/sparktrack/internal/domain/models"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		// LIST (admin, mentor)
		pr.With(auth.RequireRole(models.RoleAdmin, models.RoleMentor)).Get("/", h.ServeList)

		pr.Get("/{enrollmentNo}", h.ServeStudent)

		// IMPORT (admin only)
		pr.With(auth.RequireRole(models.RoleAdmin)).Post("/import", h.HandleImport)
	})

	return r
}
