package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/signalsfoundry/airport-simulator/model"
)

// Supported database/sql driver names.
const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open connects to the database, applies driver settings and runs the
// migrations.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch driver {
	case DriverSQLite:
		// A single connection keeps writes serialized.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	case DriverMySQL:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, migration := range []string{createSavesTable, createHighScoreTable} {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

const createSavesTable = `
CREATE TABLE IF NOT EXISTS saves (
	slot VARCHAR(64) PRIMARY KEY,
	payload TEXT NOT NULL,
	saved_at BIGINT NOT NULL
)`

const createHighScoreTable = `
CREATE TABLE IF NOT EXISTS high_score (
	id INTEGER PRIMARY KEY,
	score BIGINT NOT NULL,
	achieved_at BIGINT NOT NULL
)`

// SaveGame writes data into slot, replacing any previous save.
func (s *SQLStore) SaveGame(ctx context.Context, slot string, data model.SaveData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode save %s: %w", slot, err)
	}
	_, err = s.db.ExecContext(ctx,
		`REPLACE INTO saves (slot, payload, saved_at) VALUES (?, ?, ?)`,
		slot, string(payload), data.SavedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save game %s: %w", slot, err)
	}
	return nil
}

// LoadGame reads slot. It returns ErrNoSave when the slot is empty.
func (s *SQLStore) LoadGame(ctx context.Context, slot string) (model.SaveData, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM saves WHERE slot = ?`, slot).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SaveData{}, ErrNoSave
	}
	if err != nil {
		return model.SaveData{}, fmt.Errorf("load game %s: %w", slot, err)
	}
	var data model.SaveData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return model.SaveData{}, fmt.Errorf("decode save %s: %w", slot, err)
	}
	return data, nil
}

// DeleteSave removes slot. Deleting an empty slot is not an error.
func (s *SQLStore) DeleteSave(ctx context.Context, slot string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("delete save %s: %w", slot, err)
	}
	return nil
}

// HighScore returns the best recorded score, or 0.
func (s *SQLStore) HighScore(ctx context.Context) (int, error) {
	return highScore(ctx, s.db)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func highScore(ctx context.Context, q queryRower) (int, error) {
	var score int
	err := q.QueryRowContext(ctx, `SELECT score FROM high_score WHERE id = 1`).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read high score: %w", err)
	}
	return score, nil
}

// SubmitScore stores score if it beats the current high score.
func (s *SQLStore) SubmitScore(ctx context.Context, score int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("submit score: %w", err)
	}
	defer tx.Rollback()

	current, err := highScore(ctx, tx)
	if err != nil {
		return false, err
	}
	if score <= current {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx,
		`REPLACE INTO high_score (id, score, achieved_at) VALUES (1, ?, ?)`,
		score, time.Now().UnixMilli(),
	); err != nil {
		return false, fmt.Errorf("submit score: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("submit score: %w", err)
	}
	return true, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
