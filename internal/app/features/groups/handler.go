// internal/app/features/groups/handler.go
package groups

import (
	"github.com/sparktrack/sparktrack/internal/app/formation"
	"go.uber.org/zap"
)

// Handler serves finalized groups. Drafts live in the groupformation
// feature; this one only reads what the committer wrote.
type Handler struct {
	Svc *formation.Service
	Log *zap.Logger
}

// NewHandler constructs a groups Handler.
func NewHandler(svc *formation.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc: svc,
		Log: logger,
	}
}
