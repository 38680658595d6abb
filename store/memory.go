package store

import (
	"sync"

	"github.com/stevemurr/question-server/question"
)

// MemoryStore keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	questions []question.Question
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) List() ([]question.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]question.Question, len(m.questions))
	copy(out, m.questions)
	return out, nil
}

func (m *MemoryStore) Get(id int64) (*question.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx := find(m.questions, id)
	if idx < 0 {
		return nil, nil
	}
	q := m.questions[idx]
	return &q, nil
}

func (m *MemoryStore) Add(q question.Question) (question.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qs, err := insert(m.questions, q)
	if err != nil {
		return question.Question{}, err
	}
	m.questions = qs
	return q, nil
}

func (m *MemoryStore) Update(id int64, p question.Patch) (question.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qs, updated, err := replace(m.questions, id, p)
	if err != nil {
		return question.Question{}, err
	}
	m.questions = qs
	return updated, nil
}

func (m *MemoryStore) Delete(id int64) (question.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qs, removed, err := remove(m.questions, id)
	if err != nil {
		return question.Question{}, err
	}
	m.questions = qs
	return removed, nil
}

func (m *MemoryStore) Export() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return encode(m.questions)
}

func (m *MemoryStore) Close() error {
	return nil
}
