package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/stevemurr/question-server/question"
)

// DocumentName is the file the json backend keeps its collection in.
const DocumentName = "questions.json"

// JsonFileStore keeps the whole collection as one JSON document on disk.
//
// Layout:
//
//	data_dir/
//	  questions.json   # [{"id": 1, "title": "...", "code": "..."}, ...]
//
// Every call reads the document, and every mutation rewrites it in full.
// The mutex serializes the read-modify-write cycle within the process.
type JsonFileStore struct {
	mu   sync.Mutex
	path string
}

// NewJsonFileStore creates the data directory and an empty document if
// they do not exist yet.
func NewJsonFileStore(dir string) (*JsonFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &JsonFileStore{path: filepath.Join(dir, DocumentName)}
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the persisted document.
func (s *JsonFileStore) Path() string {
	return s.path
}

func (s *JsonFileStore) ensureFile() error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	return s.save(nil)
}

// load reads the collection. A missing, blank or unparseable document is an
// empty collection; the last case is logged and otherwise ignored, and the
// next mutation replaces it.
func (s *JsonFileStore) load() ([]question.Question, error) {
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		slog.Warn("questions document unreadable, using empty collection", "path", s.path, "err", err)
		return nil, nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	qs, err := decode(data)
	if err != nil {
		slog.Warn("questions document corrupt, using empty collection", "path", s.path, "err", err)
		return nil, nil
	}
	return qs, nil
}

// save writes the collection to a temporary file next to the document and
// renames it into place.
func (s *JsonFileStore) save(qs []question.Question) error {
	b, err := encode(qs)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(s.path), "."+DocumentName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		return errors.Join(fmt.Errorf("failed to write temp file: %w", err), f.Close(), os.Remove(tmp))
	}
	if err := f.Sync(); err != nil {
		return errors.Join(fmt.Errorf("failed to sync temp file: %w", err), f.Close(), os.Remove(tmp))
	}
	if err := f.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(tmp))
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return errors.Join(fmt.Errorf("failed to chmod temp file: %w", err), os.Remove(tmp))
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Join(fmt.Errorf("failed to replace %s: %w", s.path, err), os.Remove(tmp))
	}
	return nil
}

func (s *JsonFileStore) List() ([]question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qs, err := s.load()
	if err != nil {
		return nil, err
	}
	if qs == nil {
		qs = []question.Question{}
	}
	return qs, nil
}

func (s *JsonFileStore) Get(id int64) (*question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qs, err := s.load()
	if err != nil {
		return nil, err
	}
	idx := find(qs, id)
	if idx < 0 {
		return nil, nil
	}
	q := qs[idx]
	return &q, nil
}

func (s *JsonFileStore) Add(q question.Question) (question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qs, err := s.load()
	if err != nil {
		return question.Question{}, err
	}
	qs, err = insert(qs, q)
	if err != nil {
		return question.Question{}, err
	}
	if err := s.save(qs); err != nil {
		return question.Question{}, err
	}
	return q, nil
}

func (s *JsonFileStore) Update(id int64, p question.Patch) (question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qs, err := s.load()
	if err != nil {
		return question.Question{}, err
	}
	qs, updated, err := replace(qs, id, p)
	if err != nil {
		return question.Question{}, err
	}
	if err := s.save(qs); err != nil {
		return question.Question{}, err
	}
	return updated, nil
}

func (s *JsonFileStore) Delete(id int64) (question.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qs, err := s.load()
	if err != nil {
		return question.Question{}, err
	}
	qs, removed, err := remove(qs, id)
	if err != nil {
		return question.Question{}, err
	}
	if err := s.save(qs); err != nil {
		return question.Question{}, err
	}
	return removed, nil
}

// Export returns the document bytes exactly as stored.
func (s *JsonFileStore) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.path)
}

func (s *JsonFileStore) Close() error {
	return nil
}
