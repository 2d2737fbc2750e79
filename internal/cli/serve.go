package cli

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-intake/internal/app"
	"github.com/joseph-ayodele/claims-intake/internal/common"
	"github.com/joseph-ayodele/claims-intake/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the HTTP intake surface and gRPC health endpoint",
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
		srv := server.New(cfg.Server.HTTPAddr, cfg.Server.GRPCAddr, newRouter(cfg, sess, logger), logger,
			server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
			server.OnShutdown(sess.Close),
		)
		return srv.Run(ctx)
	},
}

func newRouter(cfg *common.Config, sess *app.Session, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	return server.NewRouter(server.RouterConfig{
		MaxUploadBytes: cfg.Intake.MaxUploadBytes,
		RateLimitRPS:   cfg.Intake.RateLimitRPS,
		RateLimitBurst: cfg.Intake.RateLimitBurst,
	}, sess.RouterDeps(), logger)
}

func addServerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("http-addr", "", "HTTP listen address (default :8080)")
	f.String("grpc-addr", "", "gRPC health listen address (default :9090)")
}

// bindServerFlags binds the running command's listener flags; serve and watch share the keys.
func bindServerFlags(cmd *cobra.Command, _ []string) error {
	if err := v.BindPFlag("http_addr", cmd.Flags().Lookup("http-addr")); err != nil {
		return err
	}
	return v.BindPFlag("grpc_addr", cmd.Flags().Lookup("grpc-addr"))
}

func init() {
	addServerFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}
