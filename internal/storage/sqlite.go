package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"dining-menu/internal/core/menu"
	"dining-menu/internal/core/plate"
)

// DefaultListLimit 未指定筆數時的上限
const DefaultListLimit = 50

// timeLayout 固定寬度的 UTC 時間，字串排序即時間排序
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore 以 SQLite 儲存餐點紀錄
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open 開啟資料庫並建立資料表；":memory:" 使用記憶體資料庫
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite 單一寫入者
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close 關閉資料庫
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping 檢查資料庫連線
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS meal_logs (
        id TEXT PRIMARY KEY,
        athlete_id TEXT NOT NULL,
        meal_type TEXT NOT NULL,
        calories INTEGER NOT NULL,
        protein_g REAL NOT NULL,
        notes TEXT NOT NULL,
        date_time TEXT NOT NULL,
        completed INTEGER NOT NULL DEFAULT 1,
        created_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS meal_log_facts (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        meal_log_id TEXT NOT NULL,
        name TEXT NOT NULL,
        amount REAL,
        unit TEXT NOT NULL DEFAULT '',
        percent_daily_value REAL,
        display TEXT NOT NULL DEFAULT '',
        FOREIGN KEY (meal_log_id) REFERENCES meal_logs(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_meal_logs_athlete_time ON meal_logs(athlete_id, date_time);
    CREATE INDEX IF NOT EXISTS idx_meal_log_facts_log_id ON meal_log_facts(meal_log_id);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveMealLog 在同一個交易中寫入紀錄與營養成分
func (s *SQLiteStore) SaveMealLog(ctx context.Context, athleteID string, draft plate.MealLogDraft) (*MealLog, error) {
	if athleteID == "" {
		return nil, errors.New("athlete id is required")
	}

	log := &MealLog{
		ID:             uuid.NewString(),
		AthleteID:      athleteID,
		MealType:       draft.MealType,
		Calories:       draft.Calories,
		ProteinG:       draft.ProteinG,
		Notes:          draft.Notes,
		DateTime:       draft.DateTime.UTC(),
		Completed:      true,
		NutritionFacts: draft.NutritionFacts,
		CreatedAt:      s.now().UTC(),
	}
	if log.NutritionFacts == nil {
		log.NutritionFacts = []menu.NutritionFact{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO meal_logs (id, athlete_id, meal_type, calories, protein_g, notes, date_time, completed, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.AthleteID, log.MealType, log.Calories, log.ProteinG, log.Notes,
		log.DateTime.Format(timeLayout), log.Completed, log.CreatedAt.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to insert meal log: %w", err)
	}

	for _, f := range log.NutritionFacts {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO meal_log_facts (meal_log_id, name, amount, unit, percent_daily_value, display)
            VALUES (?, ?, ?, ?, ?, ?)`,
			log.ID, f.Name, nullFloat(f.Amount), f.Unit, nullFloat(f.PercentDailyValue), f.Display)
		if err != nil {
			return nil, fmt.Errorf("failed to insert nutrition fact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit meal log: %w", err)
	}
	return log, nil
}

// GetMealLog 依 ID 取得紀錄
func (s *SQLiteStore) GetMealLog(ctx context.Context, id string) (*MealLog, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, athlete_id, meal_type, calories, protein_g, notes, date_time, completed, created_at
        FROM meal_logs WHERE id = ?`, id)

	log, err := scanMealLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadFacts(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}

// ListMealLogs 依時間新到舊列出紀錄
func (s *SQLiteStore) ListMealLogs(ctx context.Context, athleteID string, q Query) ([]*MealLog, error) {
	query := `
        SELECT id, athlete_id, meal_type, calories, protein_g, notes, date_time, completed, created_at
        FROM meal_logs
        WHERE athlete_id = ?`
	args := []interface{}{athleteID}

	if !q.From.IsZero() {
		query += " AND date_time >= ?"
		args = append(args, q.From.UTC().Format(timeLayout))
	}
	if !q.To.IsZero() {
		query += " AND date_time < ?"
		args = append(args, q.To.UTC().Format(timeLayout))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += " ORDER BY date_time DESC, created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meal logs: %w", err)
	}

	logs := []*MealLog{}
	for rows.Next() {
		log, err := scanMealLog(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate meal logs: %w", err)
	}
	rows.Close()

	// 單一連線時須先關閉外層查詢再讀取營養成分
	for _, log := range logs {
		if err := s.loadFacts(ctx, log); err != nil {
			return nil, fmt.Errorf("failed to load facts for meal log %s: %w", log.ID, err)
		}
	}
	return logs, nil
}

func (s *SQLiteStore) loadFacts(ctx context.Context, log *MealLog) error {
	rows, err := s.db.QueryContext(ctx, `
        SELECT name, amount, unit, percent_daily_value, display
        FROM meal_log_facts
        WHERE meal_log_id = ?
        ORDER BY id`, log.ID)
	if err != nil {
		return fmt.Errorf("failed to query nutrition facts: %w", err)
	}
	defer rows.Close()

	log.NutritionFacts = []menu.NutritionFact{}
	for rows.Next() {
		var f menu.NutritionFact
		var amount, pdv sql.NullFloat64
		if err := rows.Scan(&f.Name, &amount, &f.Unit, &pdv, &f.Display); err != nil {
			return fmt.Errorf("failed to scan nutrition fact: %w", err)
		}
		f.Amount = floatPtr(amount)
		f.PercentDailyValue = floatPtr(pdv)
		log.NutritionFacts = append(log.NutritionFacts, f)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMealLog(row scanner) (*MealLog, error) {
	log := &MealLog{}
	var dateTime, createdAt string
	if err := row.Scan(&log.ID, &log.AthleteID, &log.MealType, &log.Calories, &log.ProteinG,
		&log.Notes, &dateTime, &log.Completed, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan meal log: %w", err)
	}

	var err error
	if log.DateTime, err = time.Parse(timeLayout, dateTime); err != nil {
		return nil, fmt.Errorf("failed to parse date_time: %w", err)
	}
	if log.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return log, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
