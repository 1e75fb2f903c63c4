package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"proteinagent"
	"proteinagent/nutrition"
	"proteinagent/server"
	"proteinagent/slack"
	"proteinagent/storage"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serves meal analysis, batch analysis, meal confirmation, reference food lookups
and feedback collection over HTTP.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides LISTEN_ADDR)")
	serveCmd.Flags().Bool("otel", true, "export traces and metrics over OTLP")
}

// telemetry returns a tracer and meter for name. With exporting disabled, or if the
// exporters cannot be set up, the global no-op providers are used.
func telemetry(ctx context.Context, enabled bool, name, entrypoint string) (trace.Tracer, metric.Meter, func(context.Context) error) {
	noop := func(context.Context) error { return nil }
	if !enabled {
		return otel.Tracer(name), otel.Meter(name), noop
	}

	tracerProvider, meterProvider, shutdown, err := proteinagent.InitOtel(ctx,
		proteinagent.AttrEntrypoint.String(entrypoint),
		proteinagent.AttrVisionBackend.String(cfg.agent.VisionBackend),
		proteinagent.AttrVisionModel.String(cfg.model.ModelID))
	if err != nil {
		slog.Warn("SETUP: Failed to initialize OpenTelemetry, continuing without export", "error", err)
		return otel.Tracer(name), otel.Meter(name), noop
	}
	return tracerProvider.Tracer(name), meterProvider.Meter(name), shutdown
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exportOtel, _ := cmd.Flags().GetBool("otel")
	tracer, meter, otelShutdown := telemetry(ctx, exportOtel, proteinagent.TracerNameAnalyzer, "serve")
	defer func() {
		if err := otelShutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	model, err := newVisionModel(ctx, cfg.model, cfg.agent)
	if err != nil {
		return err
	}

	logger, cleanup, err := newAnalysisLogger(cfg.agent, cfg.model.ModelID)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush analysis log", "error", err)
		}
	}()

	store, err := storage.NewSQLiteStore(cfg.storage.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	images, err := newImageStore(ctx, cfg.storage)
	if err != nil {
		return err
	}

	var reviewer *slack.Reviewer
	if cfg.server.ReviewWebhookURL != "" {
		reviewer = slack.NewReviewer(slack.NewClient(cfg.server.ReviewWebhookURL, http.DefaultClient), cfg.server.ReviewChannel)
		slog.Info("SETUP: Review notifications enabled", "channel", cfg.server.ReviewChannel)
	}

	srv, err := server.New(server.Options{
		Analyzer:         newAnalyzer(model, cfg.agent, logger, tracer, meter),
		Store:            store,
		Table:            nutrition.Default(),
		Images:           images,
		Reviewer:         reviewer,
		CORSOrigins:      cfg.server.CORSOrigins,
		MaxUploadBytes:   cfg.server.MaxUploadBytes,
		BatchConcurrency: cfg.agent.BatchConcurrency,
		Tracer:           otel.GetTracerProvider().Tracer(proteinagent.TracerNameServer),
	})
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.server.ListenAddr
	}
	return srv.ListenAndServe(ctx, addr, cfg.server.ReadTimeout, cfg.server.WriteTimeout)
}
