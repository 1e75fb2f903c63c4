package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"

	"proteinagent/vision"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds concurrent analyses when no limit is given.
const DefaultBatchConcurrency = 4

// MealAnalyzer is satisfied by *Analyzer and *InstrumentedAnalyzer.
type MealAnalyzer interface {
	Analyze(ctx context.Context, img vision.Image) Analysis
}

// BatchItem is one image of a batch. Err marks an item rejected before analysis,
// e.g. an unsupported upload format.
type BatchItem struct {
	Filename string
	Image    vision.Image
	Err      error
}

type BatchItemResult struct {
	Index    int      `json:"index"`
	Filename string   `json:"filename"`
	Analysis Analysis `json:"analysis"`
}

type BatchError struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchResult keeps results and errors in input order.
type BatchResult struct {
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Results    []BatchItemResult `json:"results"`
	Errors     []BatchError      `json:"errors"`
}

// AnalyzeBatch analyses items concurrently. An item fails when it was rejected up
// front, its analysis was aborted, or the vision model failed; failures never stop
// the other items.
func AnalyzeBatch(ctx context.Context, analyzer MealAnalyzer, items []BatchItem, concurrency int) BatchResult {
	if concurrency < 1 {
		concurrency = DefaultBatchConcurrency
	}

	slog.Info("PIPELINE: Processing batch", "items", len(items), "concurrency", concurrency)

	analyses := make([]*Analysis, len(items))
	errs := make([]error, len(items))

	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for i, item := range items {
		g.Go(func() error {
			if item.Err != nil {
				errs[i] = item.Err
				failed.Add(1)
				return nil
			}

			a := analyzer.Analyze(ctx, item.Image)
			analyses[i] = &a

			switch {
			case !a.Success:
				errs[i] = eris.Errorf("analysis aborted: %s", a.Error)
			case a.Error != "":
				errs[i] = eris.New(a.Error)
			}

			if errs[i] != nil {
				failed.Add(1)
				slog.Warn("PIPELINE: Batch item failed", "index", i, "filename", item.Filename, "error", errs[i])
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			return nil
		})
	}

	_ = g.Wait()

	out := BatchResult{
		Total:      len(items),
		Successful: int(succeeded.Load()),
		Failed:     int(failed.Load()),
		Results:    []BatchItemResult{},
		Errors:     []BatchError{},
	}
	for i, item := range items {
		if errs[i] != nil {
			out.Errors = append(out.Errors, BatchError{Index: i, Filename: item.Filename, Error: errs[i].Error()})
			continue
		}
		out.Results = append(out.Results, BatchItemResult{Index: i, Filename: item.Filename, Analysis: *analyses[i]})
	}

	slog.Info("PIPELINE: Batch complete", "succeeded", out.Successful, "failed", out.Failed)
	return out
}
