package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// DefaultMealLimit caps ListMeals when no limit is given.
const DefaultMealLimit = 50

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Meal is a confirmed meal with its logged foods.
type Meal struct {
	ID           string     `json:"meal_id"`
	UserID       int64      `json:"user_id"`
	TotalProtein float64    `json:"total_protein"`
	ImageKey     string     `json:"image_key,omitempty"`
	Foods        []MealFood `json:"foods"`
	CreatedAt    time.Time  `json:"created_at"`
}

type MealFood struct {
	Name               string  `json:"food_name"`
	ProteinGrams       float64 `json:"protein_grams"`
	PortionDescription string  `json:"portion_description"`
}

// FeedbackRecord is one piece of human feedback. Payload holds the original request.
type FeedbackRecord struct {
	ID        string          `json:"feedback_id"`
	Kind      string          `json:"kind"`
	SpanID    string          `json:"span_id"`
	Score     float64         `json:"score"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// SQLiteStore persists meals and feedback.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, eris.Wrap(err, "failed to open database")
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "failed to initialize schema")
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS meals (
        id TEXT PRIMARY KEY,
        user_id INTEGER NOT NULL,
        total_protein REAL NOT NULL,
        image_key TEXT NOT NULL DEFAULT '',
        created_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS meal_foods (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        meal_id TEXT NOT NULL,
        name TEXT NOT NULL,
        protein_grams REAL NOT NULL,
        portion_description TEXT NOT NULL,
        FOREIGN KEY (meal_id) REFERENCES meals(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS feedback (
        id TEXT PRIMARY KEY,
        kind TEXT NOT NULL,
        span_id TEXT NOT NULL,
        score REAL NOT NULL,
        payload TEXT NOT NULL,
        created_at TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_meals_user ON meals(user_id, created_at);
    CREATE INDEX IF NOT EXISTS idx_meal_foods_meal_id ON meal_foods(meal_id);
    CREATE INDEX IF NOT EXISTS idx_feedback_kind ON feedback(kind, created_at);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return eris.Wrap(err, "failed to create schema")
	}
	return nil
}

// SaveMeal stores a meal and its foods in one transaction. ID and CreatedAt are
// filled in when empty.
func (s *SQLiteStore) SaveMeal(ctx context.Context, meal *Meal) error {
	if meal.ID == "" {
		meal.ID = uuid.NewString()
	}
	if meal.CreatedAt.IsZero() {
		meal.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO meals (id, user_id, total_protein, image_key, created_at) VALUES (?, ?, ?, ?, ?)`,
		meal.ID, meal.UserID, meal.TotalProtein, meal.ImageKey, meal.CreatedAt.Format(timeLayout))
	if err != nil {
		return eris.Wrap(err, "failed to insert meal")
	}

	for _, f := range meal.Foods {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO meal_foods (meal_id, name, protein_grams, portion_description) VALUES (?, ?, ?, ?)`,
			meal.ID, f.Name, f.ProteinGrams, f.PortionDescription)
		if err != nil {
			return eris.Wrap(err, "failed to insert meal food")
		}
	}

	return eris.Wrap(tx.Commit(), "failed to commit meal")
}

// ListMeals returns a user's meals, newest first.
func (s *SQLiteStore) ListMeals(ctx context.Context, userID int64, limit int) ([]Meal, error) {
	if limit <= 0 {
		limit = DefaultMealLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, total_protein, image_key, created_at
         FROM meals WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query meals")
	}
	defer rows.Close()

	meals := []Meal{}
	for rows.Next() {
		var m Meal
		var createdAt string
		if err := rows.Scan(&m.ID, &m.UserID, &m.TotalProtein, &m.ImageKey, &createdAt); err != nil {
			return nil, eris.Wrap(err, "failed to scan meal")
		}
		if m.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, eris.Wrapf(err, "bad created_at for meal %s", m.ID)
		}
		meals = append(meals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "failed to iterate meals")
	}

	for i := range meals {
		if meals[i].Foods, err = s.mealFoods(ctx, meals[i].ID); err != nil {
			return nil, err
		}
	}
	return meals, nil
}

func (s *SQLiteStore) mealFoods(ctx context.Context, mealID string) ([]MealFood, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, protein_grams, portion_description FROM meal_foods WHERE meal_id = ? ORDER BY id`,
		mealID)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query meal foods")
	}
	defer rows.Close()

	foods := []MealFood{}
	for rows.Next() {
		var f MealFood
		if err := rows.Scan(&f.Name, &f.ProteinGrams, &f.PortionDescription); err != nil {
			return nil, eris.Wrap(err, "failed to scan meal food")
		}
		foods = append(foods, f)
	}
	return foods, eris.Wrap(rows.Err(), "failed to iterate meal foods")
}

func (s *SQLiteStore) SaveFeedback(ctx context.Context, rec *FeedbackRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	payload := rec.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, kind, span_id, score, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.SpanID, rec.Score, string(payload), rec.CreatedAt.Format(timeLayout))
	if err != nil {
		return eris.Wrapf(err, "failed to insert feedback %s", rec.ID)
	}
	return nil
}

// ListFeedback returns feedback of one kind, newest first. An empty kind lists all.
func (s *SQLiteStore) ListFeedback(ctx context.Context, kind string) ([]FeedbackRecord, error) {
	query := `SELECT id, kind, span_id, score, payload, created_at FROM feedback`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query feedback")
	}
	defer rows.Close()

	out := []FeedbackRecord{}
	for rows.Next() {
		var r FeedbackRecord
		var payload, createdAt string
		if err := rows.Scan(&r.ID, &r.Kind, &r.SpanID, &r.Score, &payload, &createdAt); err != nil {
			return nil, eris.Wrap(err, "failed to scan feedback")
		}
		r.Payload = json.RawMessage(payload)
		if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, eris.Wrapf(err, "bad created_at for feedback %s", r.ID)
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "failed to iterate feedback")
}
