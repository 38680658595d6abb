// Package store defines the backing store interface and implementations.
package store

import (
	"errors"

	"github.com/stevemurr/question-server/question"
)

var (
	// ErrNotFound is returned when no question has the requested id.
	ErrNotFound = errors.New("question not found")

	// ErrConflict is returned when an operation would leave two questions
	// sharing the same id.
	ErrConflict = errors.New("question with this id already exists")
)

// Store is the interface that all backing stores must implement.
// Each call sees the collection as last persisted; mutations are persisted
// before the call returns.
type Store interface {
	// List returns every question in insertion order.
	List() ([]question.Question, error)

	// Get returns a single question by id, or nil if not found.
	Get(id int64) (*question.Question, error)

	// Add appends a new question. Fails with ErrConflict if the id is taken.
	Add(q question.Question) (question.Question, error)

	// Update overlays p onto the question with the given id, keeping its
	// position. Fails with ErrNotFound or ErrConflict.
	Update(id int64, p question.Patch) (question.Question, error)

	// Delete removes the question with the given id and returns it.
	Delete(id int64) (question.Question, error)

	// Export returns the persisted document as raw JSON bytes.
	Export() ([]byte, error)

	// Close releases resources held by the store.
	Close() error
}
