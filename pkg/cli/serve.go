package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/aseriousbiz/abbot/pkg/cli/config"
	httpctrl "github.com/aseriousbiz/abbot/pkg/controller/http"
	"github.com/aseriousbiz/abbot/pkg/service/worker"
	"github.com/aseriousbiz/abbot/pkg/usecase"
	"github.com/aseriousbiz/abbot/pkg/utils/logging"
	"github.com/aseriousbiz/abbot/pkg/utils/metrics"
)

const shutdownTimeout = 10 * time.Second

func cmdServe() *cli.Command {
	var addr string
	var configPath string
	var enableMetrics bool
	var disableWorker bool
	var repoCfg config.Repository
	var slackCfg config.Slack

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("ABBOT_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML configuration file",
			Sources:     cli.EnvVars("ABBOT_CONFIG"),
			Destination: &configPath,
		},
		&cli.BoolFlag{
			Name:        "metrics",
			Usage:       "Expose Prometheus metrics at /metrics",
			Value:       true,
			Sources:     cli.EnvVars("ABBOT_METRICS"),
			Destination: &enableMetrics,
		},
		&cli.BoolFlag{
			Name:        "no-room-refresh",
			Usage:       "Disable the background room refresh worker",
			Sources:     cli.EnvVars("ABBOT_NO_ROOM_REFRESH"),
			Destination: &disableWorker,
		},
	}

	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			appCfg, err := config.LoadAppConfiguration(configPath)
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}
			if err := slackCfg.Validate(); err != nil {
				return goerr.Wrap(err, "invalid slack configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			if err := appCfg.Seed(ctx, repo); err != nil {
				return goerr.Wrap(err, "failed to seed organizations")
			}

			var m *metrics.Metrics
			if enableMetrics {
				m = metrics.New()
			}

			slackClient := slackCfg.Configure()
			uc := usecase.New(repo, slackClient,
				usecase.WithMetrics(m),
				usecase.WithStaleness(appCfg.RoomStaleness()),
			)

			httpOpts := []httpctrl.Options{
				httpctrl.WithSlack(uc.Event, slackCfg.SigningSecret()),
				httpctrl.WithMetrics(m),
			}
			if slackCfg.IsInstallConfigured() {
				httpOpts = append(httpOpts, httpctrl.WithOAuthRedirectURI(slackCfg.RedirectURI()))
				logger.Info("Slack installation flow enabled")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var refresher *worker.RoomRefreshWorker
			if !disableWorker {
				refresher = worker.NewRoomRefreshWorker(repo, uc.Resolver, appCfg.RefreshInterval(),
					worker.WithStaleness(appCfg.RoomStaleness()),
					worker.WithBatchSize(appCfg.BatchSize()),
					worker.WithMetrics(m),
				)
				if err := refresher.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start room refresh worker")
				}
			}

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				logger.Info("Starting HTTP server", "addr", addr, "repository", repoCfg, "slack", slackCfg)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "failed to start server", goerr.V("addr", addr))
				}
				return nil
			})
			eg.Go(func() error {
				<-egCtx.Done()
				logger.Info("Shutting down")

				if refresher != nil {
					refresher.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logger.Info("Server shutdown completed")
				return nil
			})

			return eg.Wait()
		},
	}
}
