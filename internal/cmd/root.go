// SPDX-License-Identifier: AGPL-3.0-or-later
// termchat - a real-time multi-party audiovisual chat fabric
// Copyright (C) 2023-2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/termchat/termchat/internal/config"
	"github.com/termchat/termchat/internal/db"
	"github.com/termchat/termchat/internal/featureflags"
	"github.com/termchat/termchat/internal/httpapi"
	"github.com/termchat/termchat/internal/kv"
	"github.com/termchat/termchat/internal/metrics"
	"github.com/termchat/termchat/internal/pprof"
	"github.com/termchat/termchat/internal/pubsub"
	"github.com/termchat/termchat/internal/server"
	"github.com/USA-RedDragon/configulator"
	"github.com/go-co-op/gocron/v2"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/ztrue/shutdown"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// janitorInterval is how often the session registry sweeps for sessions
// stuck past their handshake deadline or idle past ReceiveTimeout (§4.4, §5).
const janitorInterval = 30 * time.Second

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "termchatd",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("termchatd - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return fmt.Errorf("failed to get config from context: %w", err)
	}

	cfg, err := c.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var logger *slog.Logger
	switch cfg.LogLevel {
	case config.LogLevelDebug:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelInfo:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	case config.LogLevelWarn:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	}
	slog.SetDefault(logger)

	featureflags.Init(cfg)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	var cleanup func(context.Context) error
	if cfg.OTLPEndpoint != "" {
		cleanup = initTracer(cfg)
		defer func() {
			if err := cleanup(ctx); err != nil {
				slog.Error("failed to shutdown tracer", "error", err)
			}
		}()
	}
	go func() {
		if err := metrics.CreateMetricsServer(cfg); err != nil {
			slog.Error("metrics server exited", "error", err)
		}
	}()
	go func() {
		if err := pprof.CreatePProfServer(cfg); err != nil {
			slog.Error("pprof server exited", "error", err)
		}
	}()

	database, err := db.MakeDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := kv.MakeKV(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to key-value store: %w", err)
	}

	ps, err := pubsub.MakePubSub(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to pubsub: %w", err)
	}

	chatServer, err := server.New(cfg, db.AuditSink{DB: database}, ps)
	if err != nil {
		return fmt.Errorf("failed to build chat server: %w", err)
	}
	if err := chatServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start chat server: %w", err)
	}
	defer chatServer.Stop(ctx)

	_, err = scheduler.NewJob(
		gocron.DurationJob(janitorInterval),
		gocron.NewTask(chatServer.Janitor),
	)
	if err != nil {
		slog.Error("failed to schedule session janitor", "error", err)
	}
	scheduler.Start()

	httpServer := httpapi.MakeServer(cfg, database, ps, cmd.Annotations["version"], cmd.Annotations["commit"])
	go func() {
		if err := httpServer.Start(); err != nil {
			slog.Error("http server exited", "error", err)
		}
	}()
	defer httpServer.Stop()

	stop := func(sig os.Signal) {
		slog.Error("shutting down due to signal", "signal", sig)
		wg := new(sync.WaitGroup)

		wg.Add(1)
		go func(wg *sync.WaitGroup) {
			defer wg.Done()
			if err := scheduler.StopJobs(); err != nil {
				slog.Error("failed to stop scheduler jobs", "error", err)
			}
			if err := scheduler.Shutdown(); err != nil {
				slog.Error("failed to stop scheduler", "error", err)
			}
		}(wg)

		wg.Add(1)
		go func(wg *sync.WaitGroup) {
			defer wg.Done()
			if err := chatServer.Stop(ctx); err != nil {
				slog.Error("failed to stop chat server", "error", err)
			}
		}(wg)

		wg.Add(1)
		go func(wg *sync.WaitGroup) {
			defer wg.Done()
			if cfg.OTLPEndpoint != "" {
				const timeout = 5 * time.Second
				shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				if err := cleanup(shutdownCtx); err != nil {
					slog.Error("failed to shutdown tracer", "error", err)
				}
			}
		}(wg)

		wg.Add(1)
		go func(wg *sync.WaitGroup) {
			defer wg.Done()
			httpServer.Stop()
		}(wg)

		const timeout = 10 * time.Second

		done := make(chan struct{})
		go func() {
			defer close(done)
			wg.Wait()
		}()
		select {
		case <-done:
			if err := ps.Close(); err != nil {
				slog.Error("failed to close pubsub", "error", err)
			}
			if err := store.Close(); err != nil {
				slog.Error("failed to close key-value store", "error", err)
			}
			slog.Info("shutdown completed")
			os.Exit(0)
		case <-time.After(timeout):
			slog.Error("shutdown timed out")
			os.Exit(1)
		}
	}
	defer stop(syscall.SIGINT)

	shutdown.AddWithParam(stop)

	shutdown.Listen(syscall.SIGINT, syscall.SIGKILL, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	return nil
}

func initTracer(cfg *config.Config) func(context.Context) error {
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		),
	)
	if err != nil {
		slog.Error("failed tracing app", "error", err)
	}
	resources, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", "termchatd"),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		slog.Error("could not set resources", "error", err)
	}

	otel.SetTracerProvider(
		sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resources),
		),
	)
	return exporter.Shutdown
}
