package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"FinSight/internal/config"
	"FinSight/internal/logger"
	"FinSight/internal/queue"
	"FinSight/internal/report"
	"FinSight/internal/scheduler"
	"FinSight/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "finsight",
		Short:         "FinSight - financial question router and chart generator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if v := os.Getenv("CONFIG_PATH"); v != "" && !cmd.Flags().Changed("config") {
				cfgPath = v
			}
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			if err := logger.Init(loaded.Logger.Level, loaded.Logger.Format); err != nil {
				return err
			}
			*cfg = *loaded
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "configs/config.yaml", "configuration file path")

	root.AddCommand(newServeCmd(cfg))
	root.AddCommand(newAskCmd(cfg))
	root.AddCommand(newPlotCmd(cfg))
	return root
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, task queue and scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}
}

func runServe(cfg *config.Config) error {
	log := logger.WithComponent("main")
	log.Info("FinSight starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	var taskStore queue.Store
	switch cfg.Queue.Backend {
	case "redis":
		rs, err := queue.NewRedisStore(ctx, cfg.Queue.Redis.Address, cfg.Queue.Redis.Password, cfg.Queue.Redis.DB)
		if err != nil {
			return err
		}
		defer rs.Close()
		taskStore = rs
	default:
		taskStore = queue.NewMemoryStore()
	}
	tasks := queue.New(taskStore, a.orch, cfg.Queue.MaxConcurrent)
	defer tasks.Close()

	sched := scheduler.NewScheduler(ctx, tasks, a.store, cfg.Queue.MaxAge)
	if err := sched.RegisterAll(cfg.Schedule.CleanupCron, cfg.Schedule.HealthCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()
	go sched.RunHealthNow()

	router := server.NewRouter(server.Deps{
		Asker:         a.orch,
		Plotter:       a.plot,
		Tasks:         tasks,
		Market:        a.market,
		Data:          a.store,
		Insights:      a.insights,
		DefaultSymbol: cfg.Market.DefaultSymbol,
		DefaultRange:  cfg.Market.HistoryRange,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutdown signal received, stopping")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	cancel()
	log.Info("FinSight stopped")
	return nil
}

func newAskCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Route a question and print the gathered evidence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.requestTimeout())
			defer cancel()
			ans, err := a.orch.Ask(ctx, args[0])
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), report.FormatError(err))
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.FormatAnswer(ans))
			return nil
		},
	}
}

func newPlotCmd(cfg *config.Config) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "plot TEXT",
		Short: "Chart the metric named in TEXT from the financial database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.requestTimeout())
			defer cancel()
			res, err := a.plot.Generate(ctx, args[0])
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), report.FormatError(err))
				return err
			}
			if err := os.WriteFile(out, res.Chart.Image, 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			logrus.WithField("path", out).Debug("chart written")
			fmt.Fprint(cmd.OutOrStdout(), report.FormatPlot(res, out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "chart.png", "output PNG path")
	return cmd
}
