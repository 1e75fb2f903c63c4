package pipeline

import (
	"context"
	"log/slog"
	"time"

	"proteinagent"
	"proteinagent/matcher"
	"proteinagent/narrative"
	"proteinagent/portion"
	"proteinagent/vision"

	"github.com/google/uuid"
)

// ConfidenceError is the confidence level reported when an analysis is aborted.
const ConfidenceError = "error"

// Analysis is the full result for one meal photo.
type Analysis struct {
	ID                   string                   `json:"analysis_id"`
	Success              bool                     `json:"success"`
	ConversationResponse string                   `json:"conversation_response"`
	IdentifiedFoods      []vision.FoodObservation `json:"identified_foods"`
	MatchedFoods         []matcher.MatchedFood    `json:"matched_foods"`
	PortionSuggestions   []portion.Suggestion     `json:"portion_suggestions"`
	UnmatchedFoods       []matcher.UnmatchedFood  `json:"unmatched_foods"`
	TotalProteinEstimate float64                  `json:"total_protein_estimate"`
	ConfidenceLevel      string                   `json:"confidence_level"`
	RequiresUserInput    bool                     `json:"requires_user_input"`
	FallbackParse        bool                     `json:"fallback_parse,omitempty"`
	Error                string                   `json:"error,omitempty"`
}

// identifier is satisfied by *vision.Identifier.
type identifier interface {
	Identify(ctx context.Context, img vision.Image) vision.Result
}

// Analyzer runs identify, match, estimate and compose in order.
type Analyzer struct {
	identifier identifier
	matcher    *matcher.Matcher
	estimator  *portion.Estimator
	logger     proteinagent.AnalysisLogger
}

func NewAnalyzer(id identifier, m *matcher.Matcher, logger proteinagent.AnalysisLogger) *Analyzer {
	if m == nil {
		m = matcher.New(nil)
	}
	if logger == nil {
		logger = proteinagent.NewNoOpAnalysisLogger()
	}
	return &Analyzer{
		identifier: id,
		matcher:    m,
		estimator:  portion.NewEstimator(),
		logger:     logger,
	}
}

// Analyze always returns a structured result. A vision failure yields an empty,
// successful analysis that asks the user for input; a cancelled context stops the
// pipeline after identification and reports Success=false.
func (a *Analyzer) Analyze(ctx context.Context, img vision.Image) Analysis {
	id := uuid.NewString()
	slog.Info("PIPELINE: Starting analysis", "analysis_id", id, "bytes", len(img.Data), "media_type", img.MediaType)

	began := time.Now()
	start := began
	vr := a.identifier.Identify(ctx, img)
	a.logStage(id, "identify", start, len(img.Data), vr, vr.Error)

	if err := ctx.Err(); err != nil {
		slog.Warn("PIPELINE: Analysis cancelled after identification", "analysis_id", id, "error", err)
		return aborted(id, vr, err.Error())
	}

	if !vr.Success {
		slog.Warn("PIPELINE: Food identification failed", "analysis_id", id, "error", vr.Error)
	}

	start = time.Now()
	mr := a.matcher.Match(vr.Foods)
	a.logStage(id, "match", start, vr.Foods, mr, "")

	start = time.Now()
	est := a.estimator.Estimate(mr.Matched)
	a.logStage(id, "portion", start, len(mr.Matched), est, "")

	out := assemble(id, vr, mr, est)

	slog.Info("PIPELINE: Analysis complete",
		"analysis_id", id,
		"identified", len(out.IdentifiedFoods),
		"matched", len(out.PortionSuggestions),
		"unmatched", len(out.UnmatchedFoods),
		"total_protein", out.TotalProteinEstimate,
		"requires_user_input", out.RequiresUserInput,
		"duration", time.Since(began))

	return out
}

// assemble builds a completed analysis from the stage outputs and composes the reply.
func assemble(id string, vr vision.Result, mr matcher.Result, est portion.Estimate) Analysis {
	return Analysis{
		ID:                   id,
		Success:              true,
		ConversationResponse: narrative.Compose(est.Suggestions, mr.Unmatched),
		IdentifiedFoods:      nonNil(vr.Foods),
		MatchedFoods:         mr.Matched,
		PortionSuggestions:   est.Suggestions,
		UnmatchedFoods:       mr.Unmatched,
		TotalProteinEstimate: est.TotalProtein,
		ConfidenceLevel:      est.ConfidenceSummary,
		RequiresUserInput:    RequiresUserInput(vr, mr, est),
		FallbackParse:        vr.Fallback,
		Error:                vr.Error,
	}
}

// RequiresUserInput is true when anything was left unresolved.
func RequiresUserInput(vr vision.Result, mr matcher.Result, est portion.Estimate) bool {
	return !vr.Success || len(mr.Unmatched) > 0 || len(est.Suggestions) == 0
}

func aborted(id string, vr vision.Result, msg string) Analysis {
	return Analysis{
		ID:                   id,
		Success:              false,
		ConversationResponse: narrative.NothingFound,
		IdentifiedFoods:      nonNil(vr.Foods),
		MatchedFoods:         []matcher.MatchedFood{},
		PortionSuggestions:   []portion.Suggestion{},
		UnmatchedFoods:       []matcher.UnmatchedFood{},
		ConfidenceLevel:      ConfidenceError,
		RequiresUserInput:    true,
		Error:                msg,
	}
}

func (a *Analyzer) logStage(id, stage string, start time.Time, input, output any, errMsg string) {
	err := a.logger.LogStage(proteinagent.StageLog{
		AnalysisID: id,
		Stage:      stage,
		Timestamp:  start,
		Duration:   time.Since(start),
		Input:      input,
		Output:     output,
		Error:      errMsg,
	})
	if err != nil {
		slog.Warn("PIPELINE: Failed to record stage", "analysis_id", id, "stage", stage, "error", err)
	}
}

func nonNil(foods []vision.FoodObservation) []vision.FoodObservation {
	if foods == nil {
		return []vision.FoodObservation{}
	}
	return foods
}
