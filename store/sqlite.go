package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/stevemurr/question-server/question"
)

// SqliteStore keeps the collection in a single SQLite table.
//
// Table:
//
//	questions(pos, id, title, code)  pos INTEGER PRIMARY KEY, id UNIQUE
//
// pos records insertion order and survives updates, so an updated question
// keeps its place even when its id changes.
type SqliteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS questions (
		pos INTEGER PRIMARY KEY AUTOINCREMENT,
		id INTEGER NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) List() ([]question.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query("SELECT id, title, code FROM questions ORDER BY pos")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []question.Question{}
	for rows.Next() {
		var q question.Question
		if err := rows.Scan(&q.ID, &q.Title, &q.Code); err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	return result, rows.Err()
}

func (s *SqliteStore) Get(id int64) (*question.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getQuestion(s.db, id)
}

type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

func getQuestion(db queryRower, id int64) (*question.Question, error) {
	var q question.Question
	err := db.QueryRow("SELECT id, title, code FROM questions WHERE id = ?", id).Scan(&q.ID, &q.Title, &q.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *SqliteStore) Add(q question.Question) (question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.inTx(func(tx *sql.Tx) error {
		existing, err := getQuestion(tx, q.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrConflict
		}
		_, err = tx.Exec("INSERT INTO questions (id, title, code) VALUES (?, ?, ?)", q.ID, q.Title, q.Code)
		return err
	})
	if err != nil {
		return question.Question{}, err
	}
	return q, nil
}

func (s *SqliteStore) Update(id int64, p question.Patch) (question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated question.Question
	err := s.inTx(func(tx *sql.Tx) error {
		existing, err := getQuestion(tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		updated = p.Apply(*existing)
		if updated.ID != existing.ID {
			other, err := getQuestion(tx, updated.ID)
			if err != nil {
				return err
			}
			if other != nil {
				return ErrConflict
			}
		}
		_, err = tx.Exec(
			"UPDATE questions SET id = ?, title = ?, code = ? WHERE id = ?",
			updated.ID, updated.Title, updated.Code, id,
		)
		return err
	})
	if err != nil {
		return question.Question{}, err
	}
	return updated, nil
}

func (s *SqliteStore) Delete(id int64) (question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed question.Question
	err := s.inTx(func(tx *sql.Tx) error {
		existing, err := getQuestion(tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		removed = *existing
		_, err = tx.Exec("DELETE FROM questions WHERE id = ?", id)
		return err
	})
	if err != nil {
		return question.Question{}, err
	}
	return removed, nil
}

// Export renders the table in the same layout the json backend stores.
func (s *SqliteStore) Export() ([]byte, error) {
	qs, err := s.List()
	if err != nil {
		return nil, err
	}
	return encode(qs)
}

func (s *SqliteStore) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}
