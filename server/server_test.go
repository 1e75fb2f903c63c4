package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"proteinagent/pipeline"
	"proteinagent/server"
	"proteinagent/slack"
	"proteinagent/storage"
	"proteinagent/vision"
	"proteinagent/vision/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF meal")
	heicBytes = []byte("\x00\x00\x00\x18ftypheic\x00\x00")
)

type recordingClient struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingClient) PostMessage(ctx context.Context, channel, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

type fixture struct {
	srv    http.Handler
	store  *storage.SQLiteStore
	images *storage.MemoryImageStore
	review *recordingClient
}

func newFixture(t *testing.T, reply string) *fixture {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "protein.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:  store,
		images: storage.NewMemoryImageStore(),
		review: &recordingClient{},
	}
	s, err := server.New(server.Options{
		Analyzer: pipeline.NewAnalyzer(vision.NewIdentifier(mock.NewModel(reply), 0), nil, nil),
		Store:    store,
		Images:   f.images,
		Reviewer: slack.NewReviewer(f.review, "#protein-review"),
	})
	require.NoError(t, err)
	f.srv = s.Handler()
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func multipartRequest(t *testing.T, target, field string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := server.New(server.Options{})
	assert.ErrorContains(t, err, "analyzer is required")

	_, err = server.New(server.Options{Analyzer: pipeline.NewAnalyzer(vision.NewIdentifier(mock.NewModel(), 0), nil, nil)})
	assert.ErrorContains(t, err, "store is required")
}

func TestHealth(t *testing.T) {
	f := newFixture(t, mock.Scenarios[0])
	rec, body := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Greater(t, body["reference_foods"], float64(0))
}

func TestAnalyze(t *testing.T) {
	t.Run("matched meal", func(t *testing.T) {
		f := newFixture(t, mock.Scenarios[0])
		req := multipartRequest(t, "/analyze-meal-smart/?user_id=7", "file", map[string][]byte{"dinner.jpg": jpegBytes})
		rec, body := f.do(t, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
		assert.Len(t, body["portion_suggestions"], 3)
		assert.Empty(t, body["unmatched_foods"])
		assert.Equal(t, false, body["requires_user_input"])
		assert.Contains(t, body["conversation_response"], "**Chicken Breast**")

		key, _ := body["meal_image_key"].(string)
		assert.True(t, strings.HasPrefix(key, "meal_7_"), key)
		assert.True(t, strings.HasSuffix(key, "_dinner.jpg"), key)
		assert.Equal(t, 1, f.images.Len())
		assert.Empty(t, f.review.messages)
	})

	t.Run("unmatched food is sent for review", func(t *testing.T) {
		f := newFixture(t, mock.Scenarios[2])
		req := multipartRequest(t, "/analyze-meal-smart/?user_id=7", "file", map[string][]byte{"plate.jpg": jpegBytes})
		rec, body := f.do(t, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["requires_user_input"])
		assert.Len(t, body["unmatched_foods"], 1)
		require.Len(t, f.review.messages, 1)
		assert.Contains(t, f.review.messages[0], "mystery casserole")
	})

	t.Run("heic is rejected", func(t *testing.T) {
		f := newFixture(t, mock.Scenarios[0])
		req := multipartRequest(t, "/analyze-meal-smart/?user_id=7", "file", map[string][]byte{"IMG_0001.HEIC": heicBytes})
		rec, body := f.do(t, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, server.HEICMessage, body["conversation_response"])
		assert.Equal(t, server.ConfidenceUnsupportedFormat, body["confidence_level"])
		assert.Equal(t, true, body["requires_user_input"])
		assert.Equal(t, float64(0), body["total_protein_estimate"])
		assert.Empty(t, body["portion_suggestions"])
		assert.Equal(t, 0, f.images.Len())
	})

	t.Run("bad requests", func(t *testing.T) {
		f := newFixture(t, mock.Scenarios[0])

		rec, body := f.do(t, multipartRequest(t, "/analyze-meal-smart/?user_id=abc", "file", map[string][]byte{"a.jpg": jpegBytes}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, body["error"], "invalid user_id")

		rec, body = f.do(t, multipartRequest(t, "/analyze-meal-smart/?user_id=1", "photo", map[string][]byte{"a.jpg": jpegBytes}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "file is required", body["error"])
	})

	t.Run("archive failure does not block analysis", func(t *testing.T) {
		store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "protein.db"))
		require.NoError(t, err)
		defer store.Close()

		s, err := server.New(server.Options{
			Analyzer: pipeline.NewAnalyzer(vision.NewIdentifier(mock.NewModel(mock.Scenarios[0]), 0), nil, nil),
			Store:    store,
			Images:   storage.NewMemoryImageStoreWithError(io.ErrClosedPipe),
		})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, multipartRequest(t, "/analyze-meal-smart/?user_id=3", "file", map[string][]byte{"a.jpg": jpegBytes}))

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
		assert.NotContains(t, body, "meal_image_key")
	})
}

func TestAnalyzeBatch(t *testing.T) {
	f := newFixture(t, mock.Scenarios[0])
	req := multipartRequest(t, "/analyze-batch/", "files", map[string][]byte{
		"a.jpg":  jpegBytes,
		"b.png":  []byte("\x89PNG\r\n\x1a\nrest"),
		"c.heic": heicBytes,
	})

	var got pipeline.BatchResult
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 2, got.Successful)
	assert.Equal(t, 1, got.Failed)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "c.heic", got.Errors[0].Filename)
	assert.Contains(t, got.Errors[0].Error, "unsupported image format")

	rec, body := f.do(t, multipartRequest(t, "/analyze-batch/", "other", map[string][]byte{"a.jpg": jpegBytes}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "files are required", body["error"])
}

func TestConfirmAndListMeals(t *testing.T) {
	f := newFixture(t, mock.Scenarios[0])

	rec, body := f.do(t, jsonRequest(t, http.MethodPost, "/confirm-meal-portions/", map[string]any{
		"user_id": 42,
		"confirmed_portions": []map[string]any{
			{"food_name": "Chicken Breast", "protein_grams": 46.5, "portion_description": "5oz serving"},
			{"food_name": "White Rice", "protein_grams": 4.13, "portion_description": "1 cup cooked"},
		},
		"meal_image_key": "meal_42_x",
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Meal logged successfully! Total protein: 50.6g", body["message"])
	assert.InDelta(t, 50.6, body["total_protein"], 1e-9)
	assert.Equal(t, []any{"Chicken Breast (5oz serving)", "White Rice (1 cup cooked)"}, body["foods_logged"])
	assert.NotEmpty(t, body["meal_id"])

	rec, body = f.do(t, httptest.NewRequest(http.MethodGet, "/users/42/meals", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	meals, _ := body["meals"].([]any)
	require.Len(t, meals, 1)
	meal := meals[0].(map[string]any)
	assert.Equal(t, "meal_42_x", meal["image_key"])
	assert.Len(t, meal["foods"], 2)
	assert.InDelta(t, 50.6, body["total_protein"], 1e-9)

	_, body = f.do(t, httptest.NewRequest(http.MethodGet, "/users/43/meals", nil))
	assert.Empty(t, body["meals"])
}

func TestConfirmPortions_Invalid(t *testing.T) {
	f := newFixture(t, mock.Scenarios[0])

	tests := []struct {
		name    string
		body    any
		wantErr string
	}{
		{"no portions", map[string]any{"user_id": 1, "confirmed_portions": []any{}}, "confirmed_portions must not be empty"},
		{"missing user", map[string]any{"confirmed_portions": []map[string]any{{"food_name": "Tofu", "protein_grams": 1}}}, "user_id is required"},
		{"negative protein", map[string]any{"user_id": 1, "confirmed_portions": []map[string]any{{"food_name": "Tofu", "protein_grams": -1}}}, "must not be negative"},
		{"not json", "nope", "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := f.do(t, jsonRequest(t, http.MethodPost, "/confirm-meal-portions/", tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, body["error"], tt.wantErr)
		})
	}
}

func TestFoods(t *testing.T) {
	f := newFixture(t, mock.Scenarios[0])

	t.Run("list", func(t *testing.T) {
		rec, body := f.do(t, httptest.NewRequest(http.MethodGet, "/foods", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		foods, _ := body["foods"].([]any)
		assert.Equal(t, float64(len(foods)), body["total"])
		assert.NotEmpty(t, foods)
	})

	t.Run("get", func(t *testing.T) {
		rec, body := f.do(t, httptest.NewRequest(http.MethodGet, "/foods/chicken_breast", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Chicken Breast", body["display_name"])

		rec, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/foods/unicorn", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("similar", func(t *testing.T) {
		rec, body := f.do(t, httptest.NewRequest(http.MethodGet, "/foods/chicken_breast/similar", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var ids []string
		for _, s := range body["similar"].([]any) {
			ids = append(ids, s.(map[string]any)["food_id"].(string))
		}
		assert.Contains(t, ids, "chicken_thigh")
		assert.NotContains(t, ids, "chicken_breast")
	})

	t.Run("protein", func(t *testing.T) {
		rec, body := f.do(t, httptest.NewRequest(http.MethodGet, "/foods/chicken_breast/protein", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "small", body["portion_label"])
		assert.InDelta(t, 37.2, body["protein_grams"], 1e-9)

		rec, body = f.do(t, httptest.NewRequest(http.MethodGet, "/foods/chicken_breast/protein?portion=medium&preparation=grilled", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.InDelta(t, 46.5, body["protein_grams"], 1e-9)

		rec, body = f.do(t, httptest.NewRequest(http.MethodGet, "/foods/chicken_breast/protein?portion=bucket", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, []any{"small", "medium", "large", "extra_large"}, body["available_portions"])
	})
}

func TestFeedback(t *testing.T) {
	t.Run("response quality", func(t *testing.T) {
		f := newFixture(t, mock.Scenarios[0])
		rec, body := f.do(t, jsonRequest(t, http.MethodPost, "/evaluate/feedback/response-quality", map[string]any{
			"span_id": "span1", "helpfulness": 5, "accuracy": 4, "clarity": 5, "tone": 4, "overall_quality": 5,
		}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
		assert.InDelta(t, 4.6, body["average_score"], 1e-9)
		assert.Equal(t, "Response quality feedback recorded successfully", body["message"])
		assert.True(t, strings.HasPrefix(body["feedback_id"].(string), "rq_span1_"))
		assert.Empty(t, f.review.messages)

		recs, err := f.store.ListFeedback(context.Background(), "response-quality")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, body["feedback_id"], recs[0].ID)
	})

	t.Run("portion size low rating is reviewed", func(t *testing.T) {
		f := newFixture(t, mock.Scenarios[0])
		rec, body := f.do(t, jsonRequest(t, http.MethodPost, "/evaluate/feedback/portion-size", map[string]any{
			"span_id":                 "span2",
			"accuracy_ratings":        map[string]int{"chicken": 2, "rice": 1},
			"were_portions_realistic": false,
		}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.InDelta(t, 1.5, body["average_accuracy"], 1e-9)
		require.Len(t, f.review.messages, 1)
		assert.Contains(t, f.review.messages[0], body["feedback_id"])
	})

	t.Run("unknown kind", func(t *testing.T) {
		f := newFixture(t, mock.Scenarios[0])
		rec, _ := f.do(t, jsonRequest(t, http.MethodPost, "/evaluate/feedback/vibes", map[string]any{"span_id": "s"}))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid rating", func(t *testing.T) {
		f := newFixture(t, mock.Scenarios[0])
		rec, body := f.do(t, jsonRequest(t, http.MethodPost, "/evaluate/feedback/protein-estimate", map[string]any{
			"span_id": "s", "estimated_protein": 30, "accuracy_rating": 9,
		}))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, body["error"], "accuracy_rating")
	})
}
