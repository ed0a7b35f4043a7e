// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/cafehub/internal/app/resources"
	"github.com/dalemusser/cafehub/internal/app/store/oauthstate"
	"github.com/dalemusser/cafehub/internal/app/system/tasks"
	"github.com/dalemusser/cafehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// scheduler runs background jobs between Startup and Shutdown.
var scheduler *tasks.Scheduler

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		cur := timeouts.Current()
		logger.Info("timeouts configured from environment",
			zap.Duration("ping", cur.Ping),
			zap.Duration("short", cur.Short),
			zap.Duration("medium", cur.Medium),
			zap.Duration("long", cur.Long),
			zap.Duration("upload", cur.Upload))
	}

	resources.LoadSharedTemplates()

	if deps.MongoDatabase != nil {
		scheduler = tasks.NewScheduler(nil, logger,
			tasks.OAuthStateCleanupJob(oauthstate.New(deps.MongoDatabase), logger))
		scheduler.Start()
	}
	return nil
}
