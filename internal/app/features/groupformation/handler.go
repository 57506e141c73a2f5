// internal/app/features/groupformation/handler.go
package groupformation

import (
	"net/http"

	"github.com/sparktrack/sparktrack/internal/app/formation"
	"github.com/sparktrack/sparktrack/internal/app/system/apperr"
	"github.com/sparktrack/sparktrack/internal/app/system/auth"
	"github.com/sparktrack/sparktrack/internal/app/system/inputval"
	"github.com/sparktrack/sparktrack/internal/app/system/respond"
	"go.uber.org/zap"
)

// Handler is the dependency container for the formation API. Every
// endpoint resolves the caller, applies formationpolicy, then delegates to
// the formation service.
type Handler struct {
	Svc *formation.Service
	Log *zap.Logger
}

// NewHandler constructs a formation Handler. It is called from the
// bootstrap BuildHandler function once the stores are wired.
func NewHandler(svc *formation.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc: svc,
		Log: logger,
	}
}

// caller returns the identity in context, writing 401 when there is none.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id, ok := auth.CurrentUser(r)
	if !ok || id == nil {
		h.fail(w, r, apperr.Unauthorized("authentication required"))
		return nil, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	respond.Error(w, r, h.Log, err)
}

// valid checks body's validate tags, writing 400 with the first failure.
func (h *Handler) valid(w http.ResponseWriter, r *http.Request, body any) bool {
	res := inputval.Validate(body)
	if !res.HasErrors() {
		return true
	}
	h.fail(w, r, apperr.BadRequest(res.First()).
		WithDetails(map[string]any{"fields": res.Errors}))
	return false
}

func forbidden() error {
	return apperr.Forbidden("you do not have access to this resource")
}
