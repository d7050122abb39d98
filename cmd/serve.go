package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/seo-optimizer/seoaudit/analyzer"
	"github.com/seo-optimizer/seoaudit/api"
	"github.com/seo-optimizer/seoaudit/logging"
	"github.com/seo-optimizer/seoaudit/middleware"
	"github.com/seo-optimizer/seoaudit/stats"
)

// statsRetainMonths is how many past months of audit statistics are kept.
const statsRetainMonths = 12

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the audit engine over HTTP",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			opts.Port = servePort
		}
		return opts.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		gin.SetMode(opts.GinMode)
		gin.DefaultWriter = log.Writer(logging.LevelDebug)
		gin.DefaultErrorWriter = log.Writer(logging.LevelError)

		storage, err := stats.NewStorage(opts.DataDir)
		if err != nil {
			return err
		}
		storage.Cleanup(statsRetainMonths)

		statistics := logging.NewStatistics(opts.DataDir)
		if err := statistics.Load(); err != nil {
			log.Warn("Could not load existing statistics: %v", err)
		}

		a := analyzer.New(
			analyzer.WithFetcher(analyzer.NewHTTPFetcher(opts.UserAgent)),
			analyzer.WithTimeouts(opts.FetchTimeout, opts.ProbeTimeout),
			analyzer.WithLogger(log),
			analyzer.WithRecorder(storage),
		)
		srv := &api.Server{
			Auditor:    a,
			Statistics: statistics,
			Storage:    storage,
			Limiter:    middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst),
			Logger:     log,
			DevMode:    opts.DevMode,
		}

		serveErr := srv.ListenAndServe(ctx, ":"+opts.Port)

		if err := statistics.Save(); err != nil {
			log.Warn("Saving statistics: %v", err)
		}
		if err := storage.Shutdown(); err != nil {
			log.Warn("Saving audit statistics: %v", err)
		}
		if serveErr != nil {
			return fmt.Errorf("server: %w", serveErr)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "8082", "Port to listen on (default $PORT)")
}
