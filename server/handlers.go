package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"proteinagent/feedback"
	"proteinagent/matcher"
	"proteinagent/nutrition"
	"proteinagent/pipeline"
	"proteinagent/portion"
	"proteinagent/slack"
	"proteinagent/storage"
	"proteinagent/vision"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
)

// ConfidenceUnsupportedFormat is the confidence level reported for rejected uploads.
const ConfidenceUnsupportedFormat = "unsupported_format"

// AnalyzeResponse is an analysis plus the archived image key.
type AnalyzeResponse struct {
	pipeline.Analysis
	MealImageKey string `json:"meal_image_key,omitempty"`
}

func unsupportedFormatResponse() AnalyzeResponse {
	return AnalyzeResponse{Analysis: pipeline.Analysis{
		Success:              false,
		ConversationResponse: HEICMessage,
		IdentifiedFoods:      []vision.FoodObservation{},
		MatchedFoods:         []matcher.MatchedFood{},
		PortionSuggestions:   []portion.Suggestion{},
		UnmatchedFoods:       []matcher.UnmatchedFood{},
		ConfidenceLevel:      ConfidenceUnsupportedFormat,
		RequiresUserInput:    true,
		Error:                ErrUnsupportedFormat.Error(),
	}}
}

type upload struct {
	filename  string
	data      []byte
	mediaType string
}

func readUpload(fh *multipart.FileHeader) (upload, error) {
	f, err := fh.Open()
	if err != nil {
		return upload{}, eris.Wrapf(err, "failed to open upload %s", fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return upload{}, eris.Wrapf(err, "failed to read upload %s", fh.Filename)
	}
	u := upload{filename: fh.Filename, data: data}
	u.mediaType, err = DetectImageType(data, fh.Filename)
	return u, err
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return eris.Errorf("upload exceeds %d bytes", s.maxUploadBytes)
		}
		return eris.Wrap(err, "invalid multipart form")
	}
	return nil
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, eris.Errorf("invalid user_id %q", raw)
	}
	return id, nil
}

// archive stores the upload and returns its key. Failures are logged and yield "".
func (s *Server) archive(ctx context.Context, userID int64, u upload) string {
	if s.images == nil {
		return ""
	}
	key := storage.ImageKey(userID, u.filename, time.Now())
	if err := s.images.Put(ctx, key, u.data, u.mediaType); err != nil {
		slog.Warn("SERVER: Failed to archive upload", "key", key, "error", err)
		return ""
	}
	return key
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.parseMultipart(w, r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	fh := files[0]

	u, err := readUpload(fh)
	if eris.Is(err, ErrUnsupportedFormat) {
		slog.Warn("SERVER: Rejected HEIC upload", "user_id", userID, "filename", fh.Filename)
		writeJSON(w, http.StatusOK, unsupportedFormatResponse())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := s.archive(r.Context(), userID, u)

	slog.Info("SERVER: Starting smart meal analysis", "user_id", userID, "media_type", u.mediaType, "bytes", len(u.data))
	a := s.analyzer.Analyze(r.Context(), vision.Image{Data: u.data, MediaType: u.mediaType})

	s.notifyReview(r.Context(), func(ctx context.Context, rv *slack.Reviewer) (bool, error) {
		return rv.AnalysisCompleted(ctx, a)
	})

	writeJSON(w, http.StatusOK, AnalyzeResponse{Analysis: a, MealImageKey: key})
}

func (s *Server) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["files[]"]
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "files are required")
		return
	}

	items := make([]pipeline.BatchItem, 0, len(files))
	for _, fh := range files {
		u, err := readUpload(fh)
		items = append(items, pipeline.BatchItem{
			Filename: fh.Filename,
			Image:    vision.Image{Data: u.data, MediaType: u.mediaType},
			Err:      err,
		})
	}

	writeJSON(w, http.StatusOK, pipeline.AnalyzeBatch(r.Context(), s.analyzer, items, s.batchConcurrency))
}

// ConfirmedPortion is one food the user accepted, possibly after editing.
type ConfirmedPortion struct {
	FoodName           string  `json:"food_name"`
	ProteinGrams       float64 `json:"protein_grams"`
	PortionDescription string  `json:"portion_description"`
}

type ConfirmRequest struct {
	UserID            int64              `json:"user_id"`
	ConfirmedPortions []ConfirmedPortion `json:"confirmed_portions"`
	MealImageKey      string             `json:"meal_image_key,omitempty"`
}

func (c ConfirmRequest) Validate() error {
	if c.UserID <= 0 {
		return eris.New("user_id is required")
	}
	if len(c.ConfirmedPortions) == 0 {
		return eris.New("confirmed_portions must not be empty")
	}
	for i, p := range c.ConfirmedPortions {
		if strings.TrimSpace(p.FoodName) == "" {
			return eris.Errorf("confirmed_portions[%d]: food_name is required", i)
		}
		if p.ProteinGrams < 0 {
			return eris.Errorf("confirmed_portions[%d]: protein_grams must not be negative", i)
		}
	}
	return nil
}

type ConfirmResponse struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	MealID       string   `json:"meal_id"`
	TotalProtein float64  `json:"total_protein"`
	FoodsLogged  []string `json:"foods_logged"`
}

func (s *Server) handleConfirmPortions(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meal := &storage.Meal{UserID: req.UserID, ImageKey: req.MealImageKey}
	logged := make([]string, 0, len(req.ConfirmedPortions))
	var total float64
	for _, p := range req.ConfirmedPortions {
		total += p.ProteinGrams
		meal.Foods = append(meal.Foods, storage.MealFood{
			Name:               p.FoodName,
			ProteinGrams:       p.ProteinGrams,
			PortionDescription: p.PortionDescription,
		})
		logged = append(logged, fmt.Sprintf("%s (%s)", p.FoodName, p.PortionDescription))
	}
	meal.TotalProtein = nutrition.Round1(total)

	if err := s.store.SaveMeal(r.Context(), meal); err != nil {
		slog.Error("SERVER: Failed to save meal", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save meal")
		return
	}

	slog.Info("SERVER: Meal logged", "user_id", req.UserID, "meal_id", meal.ID, "total_protein", meal.TotalProtein)
	writeJSON(w, http.StatusOK, ConfirmResponse{
		Success:      true,
		Message:      fmt.Sprintf("Meal logged successfully! Total protein: %.1fg", meal.TotalProtein),
		MealID:       meal.ID,
		TotalProtein: meal.TotalProtein,
		FoodsLogged:  logged,
	})
}

func (s *Server) handleListMeals(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	meals, err := s.store.ListMeals(r.Context(), userID, limit)
	if err != nil {
		slog.Error("SERVER: Failed to list meals", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list meals")
		return
	}

	var total float64
	for _, m := range meals {
		total += m.TotalProtein
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":       userID,
		"meals":         meals,
		"total_protein": nutrition.Round1(total),
	})
}

func (s *Server) handleListFoods(w http.ResponseWriter, r *http.Request) {
	foods := s.table.Entries()
	writeJSON(w, http.StatusOK, map[string]any{"foods": foods, "total": len(foods)})
}

func (s *Server) lookupFood(w http.ResponseWriter, r *http.Request) (*nutrition.Entry, bool) {
	id := chi.URLParam(r, "foodID")
	e, ok := s.table.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("food %q not found", id))
	}
	return e, ok
}

func (s *Server) handleGetFood(w http.ResponseWriter, r *http.Request) {
	if e, ok := s.lookupFood(w, r); ok {
		writeJSON(w, http.StatusOK, e)
	}
}

func (s *Server) handleSimilarFoods(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookupFood(w, r)
	if !ok {
		return
	}
	similar := []nutrition.Entry{}
	for _, id := range s.table.ByCategory(e.Category) {
		if id == e.ID {
			continue
		}
		if other, ok := s.table.Lookup(id); ok {
			similar = append(similar, *other)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"food_id":  e.ID,
		"category": e.Category,
		"similar":  similar,
	})
}

func (s *Server) handleCalculateProtein(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookupFood(w, r)
	if !ok {
		return
	}
	label := r.URL.Query().Get("portion")
	if label == "" {
		label = e.FirstPortion().Label
	}

	calc, err := s.table.CalculateProtein(e.ID, label, r.URL.Query().Get("preparation"))
	if eris.Is(err, nutrition.ErrUnknownPortion) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success":            false,
			"error":              fmt.Sprintf("portion %q not found", label),
			"available_portions": e.PortionLabels(),
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	kind, err := feedback.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	sub, err := feedback.Decode(kind, r.Body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	rec, err := feedback.Record(sub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.store.SaveFeedback(r.Context(), &rec); err != nil {
		slog.Error("SERVER: Failed to save feedback", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save feedback")
		return
	}

	s.notifyReview(r.Context(), func(ctx context.Context, rv *slack.Reviewer) (bool, error) {
		return rv.FeedbackReceived(ctx, sub, rec.ID)
	})

	resp := map[string]any{
		"success":     true,
		"feedback_id": rec.ID,
		"message":     feedback.Message(kind),
	}
	switch kind {
	case feedback.KindResponseQuality:
		resp["average_score"] = sub.Score()
	case feedback.KindPortionSize:
		resp["average_accuracy"] = sub.Score()
	}
	writeJSON(w, http.StatusOK, resp)
}
