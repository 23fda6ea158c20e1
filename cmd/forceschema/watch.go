package main

import (
	"time"

	"github.com/nexuscrm/forcemapper/internal/application/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Check for drift on a cron schedule",
		RunE:  cmdWatch,
	}

	watchCfg struct {
		Schedule string
	}
)

func init() {
	watchCmd.Flags().StringVar(&watchCfg.Schedule, "schedule", "0 * * * *", "five-field cron expression")
}

func cmdWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer func() { _ = s.logger.Sync() }()

	out := cmd.OutOrStdout()
	watcher, err := services.NewDriftWatcher(s.logger, s.handler, watchCfg.Schedule,
		func(results []*services.FieldSchemaResult, err error) {
			if err == nil {
				printDrift(out, results)
			}
		})
	if err != nil {
		return err
	}
	s.logger.Info("⏰ Next drift check", zap.Time("at", watcher.NextRun(time.Now())))
	watcher.Start(ctx)
	return nil
}
