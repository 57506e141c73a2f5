// internal/app/features/groupformation/routes.go
package groupformation

import (
	"github.com/go-chi/chi/v5"
	"github.com/sparktrack/sparktrack/internal/app/system/auth"
	"github.com/sparktrack/sparktrack/internal/app/system/ratelimit"
)

// Routes mounts the formation API. Writes share the per-caller limiter;
// a nil limiter leaves them unthrottled.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		// READ
		pr.Get("/draft/leader/{enrollmentNo}", h.ServeLeaderDrafts)
		pr.Get("/draft/{groupId}", h.ServeDraft)
		pr.Get("/invitations/{enrollmentNo}", h.ServeStudentInvitations)

		// WRITE
		pr.Group(func(wr chi.Router) {
			wr.Use(ratelimit.Middleware(limiter, h.Log))

			wr.Post("/draft", h.HandleCreateDraft)
			wr.Delete("/draft/{groupId}", h.HandleCancelDraft)
			wr.Post("/invite", h.HandleInvite)
			wr.Post("/respond", h.HandleRespond)
			wr.Post("/confirm/{groupId}", h.HandleConfirm)
		})
	})

	return r
}
