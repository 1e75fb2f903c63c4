package pipeline

import (
	"context"
	"log/slog"
	"time"

	"proteinagent"
	"proteinagent/matcher"
	"proteinagent/vision"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedAnalyzer is an Analyzer that records spans per stage and analysis metrics.
type InstrumentedAnalyzer struct {
	*Analyzer
	tracer trace.Tracer

	analyses       metric.Int64Counter
	failed         metric.Int64Counter
	identified     metric.Int64Counter
	matched        metric.Int64Counter
	unmatched      metric.Int64Counter
	fallbackParses metric.Int64Counter
	visionLatency  metric.Float64Histogram
	duration       metric.Float64Histogram
	totalProtein   metric.Float64Histogram
}

// NewInstrumentedAnalyzer initializes a new instrumented analyzer.
func NewInstrumentedAnalyzer(id identifier, m *matcher.Matcher, logger proteinagent.AnalysisLogger, tracer trace.Tracer, meter metric.Meter) *InstrumentedAnalyzer {
	ia := &InstrumentedAnalyzer{
		Analyzer: NewAnalyzer(id, m, logger),
		tracer:   tracer,
	}

	ia.analyses, _ = meter.Int64Counter("analyses_total",
		metric.WithDescription("Total number of meal analyses started"))
	ia.failed, _ = meter.Int64Counter("analyses_failed_total",
		metric.WithDescription("Total number of meal analyses that failed or were cancelled"))
	ia.identified, _ = meter.Int64Counter("foods_identified_total",
		metric.WithDescription("Total number of foods reported by the vision model"))
	ia.matched, _ = meter.Int64Counter("foods_matched_total",
		metric.WithDescription("Total number of foods matched to the reference table"))
	ia.unmatched, _ = meter.Int64Counter("foods_unmatched_total",
		metric.WithDescription("Total number of foods left for manual entry"))
	ia.fallbackParses, _ = meter.Int64Counter("fallback_parses_total",
		metric.WithDescription("Total number of model replies handled by the fallback extractor"))

	ia.visionLatency, _ = meter.Float64Histogram("vision_latency_seconds",
		metric.WithDescription("Time taken by the vision model call in seconds"),
		metric.WithUnit("s"))
	ia.duration, _ = meter.Float64Histogram("analysis_duration_seconds",
		metric.WithDescription("Total duration of a meal analysis in seconds"),
		metric.WithUnit("s"))
	ia.totalProtein, _ = meter.Float64Histogram("total_protein_grams",
		metric.WithDescription("Estimated protein per analysed meal in grams"),
		metric.WithUnit("g"))

	return ia
}

// Analyze runs the pipeline with full instrumentation.
func (ia *InstrumentedAnalyzer) Analyze(ctx context.Context, img vision.Image) Analysis {
	ctx, span := ia.tracer.Start(ctx, "InstrumentedAnalyzer.Analyze")
	defer span.End()

	id := uuid.NewString()
	span.SetAttributes(
		attribute.String("analysis.id", id),
		attribute.String("image.media_type", img.MediaType),
		attribute.Int("image.bytes", len(img.Data)),
	)
	slog.Info("PIPELINE: Starting instrumented analysis", "analysis_id", id, "bytes", len(img.Data))

	ia.analyses.Add(ctx, 1)
	began := time.Now()
	defer func() {
		ia.duration.Record(ctx, time.Since(began).Seconds())
	}()

	// 1) Identify
	start := time.Now()
	vctx, vspan := ia.tracer.Start(ctx, "InstrumentedAnalyzer.Identify")
	vr := ia.identifier.Identify(vctx, img)
	ia.visionLatency.Record(ctx, time.Since(start).Seconds())
	vspan.SetAttributes(
		attribute.Bool("vision.success", vr.Success),
		attribute.Bool("vision.fallback", vr.Fallback),
		attribute.Int("vision.foods", len(vr.Foods)),
	)
	if !vr.Success {
		vspan.SetStatus(codes.Error, "Food identification failed")
		vspan.AddEvent("vision failure", trace.WithAttributes(attribute.String("error", vr.Error)))
	}
	vspan.End()
	ia.logStage(id, "identify", start, len(img.Data), vr, vr.Error)

	ia.identified.Add(ctx, int64(len(vr.Foods)))
	if vr.Fallback {
		ia.fallbackParses.Add(ctx, 1)
	}

	if err := ctx.Err(); err != nil {
		ia.failed.Add(ctx, 1)
		span.SetStatus(codes.Error, "Analysis cancelled")
		span.RecordError(err)
		slog.Warn("PIPELINE: Analysis cancelled after identification", "analysis_id", id, "error", err)
		return aborted(id, vr, err.Error())
	}
	if !vr.Success {
		ia.failed.Add(ctx, 1)
	}

	// 2) Match
	start = time.Now()
	_, mspan := ia.tracer.Start(ctx, "InstrumentedAnalyzer.Match")
	mr := ia.matcher.Match(vr.Foods)
	mspan.SetAttributes(
		attribute.Int("match.matched", len(mr.Matched)),
		attribute.Int("match.unmatched", len(mr.Unmatched)),
		attribute.Float64("match.success_rate", mr.SuccessRate),
	)
	mspan.End()
	ia.logStage(id, "match", start, vr.Foods, mr, "")

	ia.matched.Add(ctx, int64(len(mr.Matched)))
	ia.unmatched.Add(ctx, int64(len(mr.Unmatched)))

	// 3) Portions
	start = time.Now()
	_, pspan := ia.tracer.Start(ctx, "InstrumentedAnalyzer.Estimate")
	est := ia.estimator.Estimate(mr.Matched)
	pspan.SetAttributes(
		attribute.Int("portion.suggestions", len(est.Suggestions)),
		attribute.Float64("portion.total_protein", est.TotalProtein),
	)
	pspan.End()
	ia.logStage(id, "portion", start, len(mr.Matched), est, "")

	ia.totalProtein.Record(ctx, est.TotalProtein)

	out := assemble(id, vr, mr, est)

	span.SetAttributes(
		attribute.Float64("analysis.total_protein", out.TotalProteinEstimate),
		attribute.Bool("analysis.requires_user_input", out.RequiresUserInput),
	)
	slog.Info("PIPELINE: Instrumented analysis complete",
		"analysis_id", id,
		"total_protein", out.TotalProteinEstimate,
		"duration", time.Since(began))

	return out
}
