package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/senecgrab/senecgrab/pkg/controller"
	"github.com/senecgrab/senecgrab/pkg/ess"
	"github.com/senecgrab/senecgrab/pkg/log"
	"github.com/senecgrab/senecgrab/pkg/server"
	"github.com/senecgrab/senecgrab/pkg/storage"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// init packages
	s := storage.Configured()
	e := ess.Configured()
	c := controller.Configured()
	srvCfg := server.Configured()

	// parse flags
	lflag.Configure()

	// lflag automatically sets llog's level, but we need to set the slog level
	level, err := log.LevelFromLLog(llog.GetLevel())
	if err != nil {
		panic(err)
	}
	log.Configure(level)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, s, e, c, srvCfg); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "senecgrab failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "senecgrab exited cleanly")
}

func run(ctx context.Context, s storage.Database, e *ess.Config, c *controller.Config, srvCfg *server.Config) error {
	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	if err := c.Validate(); err != nil {
		return err
	}

	creds, err := s.GetCredentials(ctx)
	if err != nil {
		return err
	}
	if err := creds.Validate(); err != nil {
		return err
	}
	ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("installationID", creds.InstallationID)))

	session, stats, err := e.New(creds.InstallationID)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ctrl := controller.NewController(session, stats, creds, *c, controller.NewMetrics(reg))

	if c.Interval <= 0 || !srvCfg.Enabled() {
		return ctrl.Run(ctx)
	}

	// the controller stopping for any reason takes the server down with it
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srvCfg.New(ctrl, reg).Run(runCtx)
		stop()
	}()

	ctrlErr := ctrl.Run(runCtx)
	stop()
	if err := <-srvErr; err != nil {
		return err
	}
	return ctrlErr
}
