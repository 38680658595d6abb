package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/stevemurr/question-server/question"
)

// The helpers below implement the collection rules shared by the backends
// that hold the whole collection in a slice. None of them mutate their input.

func find(qs []question.Question, id int64) int {
	for i, q := range qs {
		if q.ID == id {
			return i
		}
	}
	return -1
}

func insert(qs []question.Question, q question.Question) ([]question.Question, error) {
	if find(qs, q.ID) >= 0 {
		return nil, ErrConflict
	}
	out := make([]question.Question, len(qs), len(qs)+1)
	copy(out, qs)
	return append(out, q), nil
}

func replace(qs []question.Question, id int64, p question.Patch) ([]question.Question, question.Question, error) {
	idx := find(qs, id)
	if idx < 0 {
		return nil, question.Question{}, ErrNotFound
	}
	updated := p.Apply(qs[idx])
	if updated.ID != qs[idx].ID {
		for i, q := range qs {
			if i != idx && q.ID == updated.ID {
				return nil, question.Question{}, ErrConflict
			}
		}
	}
	out := make([]question.Question, len(qs))
	copy(out, qs)
	out[idx] = updated
	return out, updated, nil
}

func remove(qs []question.Question, id int64) ([]question.Question, question.Question, error) {
	idx := find(qs, id)
	if idx < 0 {
		return nil, question.Question{}, ErrNotFound
	}
	removed := qs[idx]
	out := make([]question.Question, 0, len(qs)-1)
	out = append(out, qs[:idx]...)
	out = append(out, qs[idx+1:]...)
	return out, removed, nil
}

// encode renders a collection the way it is laid out on disk: a JSON array
// indented with two spaces. A nil collection is written as [].
func encode(qs []question.Question) ([]byte, error) {
	if qs == nil {
		qs = []question.Question{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(qs); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// decode parses a document written by encode or edited by hand. Records go
// through the same coercion as request bodies, so "id": "1" reads as 1. Any
// record that cannot be coerced fails the whole document.
func decode(data []byte) ([]question.Question, error) {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	var docs []map[string]any
	if err := d.Decode(&docs); err != nil {
		return nil, err
	}
	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON array")
	}
	qs := make([]question.Question, 0, len(docs))
	for i, doc := range docs {
		q, err := question.ParseCandidate(doc)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		qs = append(qs, q)
	}
	return qs, nil
}
