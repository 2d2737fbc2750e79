package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/claims-intake/internal/app"
	"github.com/joseph-ayodele/claims-intake/internal/ingest"
	"github.com/joseph-ayodele/claims-intake/internal/server"
)

var (
	watchDir           string
	watchDebounce      time.Duration
	watchIncludeHidden bool
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Admit claim forms as they appear in a directory while serving the review API",
	PreRunE: bindServerFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		sess, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}

		ing := ingest.New(sess.Intake, logger, ingest.WithMaxBytes(cfg.Intake.MaxUploadBytes))
		srv := server.New(cfg.Server.HTTPAddr, cfg.Server.GRPCAddr, newRouter(cfg, sess, logger), logger,
			server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.Run(gctx) })
		g.Go(func() error {
			err := ing.Watch(gctx, watchDir, !watchIncludeHidden, watchDebounce)
			if gctx.Err() != nil {
				return nil
			}
			return err
		})
		err = g.Wait()

		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		sess.Close(closeCtx)
		return err
	},
}

func init() {
	addServerFlags(watchCmd)
	f := watchCmd.Flags()
	f.StringVar(&watchDir, "dir", "", "directory to watch (required)")
	f.DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a changed file is admitted")
	f.BoolVar(&watchIncludeHidden, "include-hidden", false, "also watch hidden files and directories")
	_ = watchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(watchCmd)
}
