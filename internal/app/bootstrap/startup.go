// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	draftstore "github.com/sparktrack/sparktrack/internal/app/store/drafts"
	invitationstore "github.com/sparktrack/sparktrack/internal/app/store/invitations"
	"github.com/sparktrack/sparktrack/internal/app/system/timeouts"
	"github.com/sparktrack/sparktrack/internal/app/system/workers"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// the configured database deadlines and starts the invitation sweeper.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.DBTimeoutShort,
		Medium: appCfg.DBTimeoutMedium,
		Long:   appCfg.DBTimeoutLong,
	})

	if appCfg.InvitationSweepInterval <= 0 {
		logger.Info("invitation sweeper disabled")
		return nil
	}

	sweeper := workers.NewInvitationSweeper(
		invitationstore.New(deps.MongoDatabase),
		draftstore.New(deps.MongoDatabase),
		deps.Metrics,
		logger,
		appCfg.InvitationSweepInterval,
	)
	sweeper.Start()
	deps.bg.setSweeper(sweeper)
	return nil
}
