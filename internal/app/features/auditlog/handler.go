// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/sparktrack/sparktrack/internal/app/store/audit"
	"go.uber.org/zap"
)

// Handler serves the formation event trail to administrators.
type Handler struct {
	Store *audit.Store
	Log   *zap.Logger
}

// NewHandler creates a new audit log handler.
func NewHandler(store *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Store: store,
		Log:   logger,
	}
}
