// internal/app/features/students/handler.go
package students

import (
	studentstore "github.com/sparktrack/sparktrack/internal/app/store/students"
	"github.com/sparktrack/sparktrack/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler serves the student directory: roster import and record lookup.
type Handler struct {
	Store *studentstore.Store
	Audit *auditlog.Logger
	Log   *zap.Logger
}

func NewHandler(store *studentstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Store: store,
		Audit: audit,
		Log:   logger,
	}
}
