package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"proteinagent"
	"proteinagent/nutrition"
	"proteinagent/pipeline"
	"proteinagent/slack"
	"proteinagent/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultMaxUploadBytes = 10 << 20
	reviewTimeout         = 5 * time.Second
)

// MealStore persists confirmed meals and feedback. *storage.SQLiteStore satisfies it.
type MealStore interface {
	SaveMeal(ctx context.Context, meal *storage.Meal) error
	ListMeals(ctx context.Context, userID int64, limit int) ([]storage.Meal, error)
	SaveFeedback(ctx context.Context, rec *storage.FeedbackRecord) error
}

type Options struct {
	Analyzer         pipeline.MealAnalyzer
	Store            MealStore
	Table            *nutrition.Table
	Images           storage.ImageStore
	Reviewer         *slack.Reviewer
	CORSOrigins      []string
	MaxUploadBytes   int64
	BatchConcurrency int
	Tracer           trace.Tracer
}

type Server struct {
	analyzer         pipeline.MealAnalyzer
	store            MealStore
	table            *nutrition.Table
	images           storage.ImageStore
	reviewer         *slack.Reviewer
	corsOrigins      []string
	maxUploadBytes   int64
	batchConcurrency int
	tracer           trace.Tracer
}

func New(opts Options) (*Server, error) {
	if opts.Analyzer == nil {
		return nil, eris.New("server: analyzer is required")
	}
	if opts.Store == nil {
		return nil, eris.New("server: store is required")
	}
	if opts.Table == nil {
		opts.Table = nutrition.Default()
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = pipeline.DefaultBatchConcurrency
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(proteinagent.TracerNameServer)
	}
	return &Server{
		analyzer:         opts.Analyzer,
		store:            opts.Store,
		table:            opts.Table,
		images:           opts.Images,
		reviewer:         opts.Reviewer,
		corsOrigins:      opts.CORSOrigins,
		maxUploadBytes:   opts.MaxUploadBytes,
		batchConcurrency: opts.BatchConcurrency,
		tracer:           opts.Tracer,
	}, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.traceRequests)

	r.Get("/health", s.handleHealth)

	r.Post("/analyze-meal-smart/", s.handleAnalyze)
	r.Post("/analyze-batch/", s.handleAnalyzeBatch)
	r.Post("/confirm-meal-portions/", s.handleConfirmPortions)
	r.Get("/users/{userID}/meals", s.handleListMeals)

	r.Route("/foods", func(r chi.Router) {
		r.Get("/", s.handleListFoods)
		r.Get("/{foodID}", s.handleGetFood)
		r.Get("/{foodID}/similar", s.handleSimilarFoods)
		r.Get("/{foodID}/protein", s.handleCalculateProtein)
	})

	r.Post("/evaluate/feedback/{kind}", s.handleFeedback)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("SERVER: Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("SERVER: Shutdown failed", "error", err)
		}
	}()

	slog.Info("SERVER: Listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
				attribute.String("request.id", middleware.GetReqID(r.Context())),
			))
		defer span.End()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
		slog.Info("SERVER: Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("SERVER: Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"reference_foods": s.table.Len(),
	})
}

// notifyReview runs a reviewer call with its own deadline, detached from request
// cancellation. Failures are only logged.
func (s *Server) notifyReview(ctx context.Context, fn func(ctx context.Context, r *slack.Reviewer) (bool, error)) {
	if s.reviewer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reviewTimeout)
	defer cancel()
	if sent, err := fn(ctx, s.reviewer); err != nil {
		slog.Warn("SERVER: Failed to post review message", "error", err)
	} else if sent {
		slog.Info("SERVER: Posted review message")
	}
}
