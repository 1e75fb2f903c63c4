package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"proteinagent"
	"proteinagent/server"
	"proteinagent/vision"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze a single meal photo",
	Long: `Runs the full pipeline on one image and prints the conversational summary.

Examples:
  # Analyze with the mock backend
  VISION_BACKEND=mock proteinagent analyze dinner.jpg

  # Print the full result as JSON
  proteinagent analyze dinner.jpg --json

  # Dump the Go value for debugging
  proteinagent analyze dinner.jpg --dump`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.Bool("json", false, "print the analysis as JSON")
	f.Bool("dump", false, "dump the analysis struct")
	f.Bool("otel", false, "export traces and metrics over OTLP")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return eris.Wrapf(err, "failed to read %s", args[0])
	}
	mediaType, err := server.DetectImageType(data, args[0])
	if err != nil {
		return eris.Wrap(err, server.HEICMessage)
	}

	exportOtel, _ := cmd.Flags().GetBool("otel")
	tracer, meter, otelShutdown := telemetry(ctx, exportOtel, proteinagent.TracerNameAnalyzer, "analyze")
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

	ctx, span := tracer.Start(ctx, "analyze", trace.WithAttributes(
		proteinagent.AttrVisionBackend.String(cfg.agent.VisionBackend),
		proteinagent.AttrVisionModel.String(cfg.model.ModelID),
		attribute.String("image.path", args[0]),
	))
	defer span.End()

	a := newAnalyzer(model, cfg.agent, logger, tracer, meter).Analyze(ctx, vision.Image{Data: data, MediaType: mediaType})

	out := cmd.OutOrStdout()
	switch {
	case mustBool(cmd, "dump"):
		fmt.Fprint(out, proteinagent.Sdump(a))
	case mustBool(cmd, "json"):
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(a); err != nil {
			return eris.Wrap(err, "failed to encode analysis")
		}
	default:
		fmt.Fprintln(out, a.ConversationResponse)
	}

	if !a.Success {
		return eris.Errorf("analysis failed: %s", a.Error)
	}
	return nil
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
