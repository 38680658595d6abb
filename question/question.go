// Package question defines the question record and the coercion rules
// applied to untyped request payloads before they reach a store.
package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stevemurr/question-server/schema"
)

// ErrInvalid is returned when a payload cannot be coerced into a question.
var ErrInvalid = errors.New("invalid question")

// Question is a single stored record. ID is the primary key.
type Question struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Code  string `json:"code"`
}

// Patch holds the fields of an update. Nil fields are left unchanged.
type Patch struct {
	ID    *int64
	Title *string
	Code  *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.ID == nil && p.Title == nil && p.Code == nil
}

// Apply overlays the present fields of p onto q.
func (p Patch) Apply(q Question) Question {
	if p.ID != nil {
		q.ID = *p.ID
	}
	if p.Title != nil {
		q.Title = *p.Title
	}
	if p.Code != nil {
		q.Code = *p.Code
	}
	return q
}

// ParseCandidate builds a new question from a decoded JSON object. The id is
// required; a missing title or code becomes the empty string.
func ParseCandidate(doc map[string]any) (Question, error) {
	if err := schema.Validate(schema.QuestionCreate, doc); err != nil {
		return Question{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	id, err := ParseID(doc["id"])
	if err != nil {
		return Question{}, err
	}
	q := Question{ID: id}
	if q.Title, err = parseText(doc["title"]); err != nil {
		return Question{}, err
	}
	if q.Code, err = parseText(doc["code"]); err != nil {
		return Question{}, err
	}
	return q, nil
}

// ParsePatch builds an update from a decoded JSON object. Only keys present
// in doc end up in the patch.
func ParsePatch(doc map[string]any) (Patch, error) {
	if err := schema.Validate(schema.QuestionPatch, doc); err != nil {
		return Patch{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var p Patch
	if v, ok := doc["id"]; ok {
		id, err := ParseID(v)
		if err != nil {
			return Patch{}, err
		}
		p.ID = &id
	}
	if v, ok := doc["title"]; ok {
		s, err := parseText(v)
		if err != nil {
			return Patch{}, err
		}
		p.Title = &s
	}
	if v, ok := doc["code"]; ok {
		s, err := parseText(v)
		if err != nil {
			return Patch{}, err
		}
		p.Code = &s
	}
	return p, nil
}

// ParseID coerces v to an integer id. Integral numbers and strings holding
// an integer are accepted; anything else fails with ErrInvalid.
func ParseID(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		id, ok := wholeInt64(n)
		if !ok {
			return 0, fmt.Errorf("%w: id %v is not an integer", ErrInvalid, n)
		}
		return id, nil
	case json.Number:
		return parseIDString(n.String())
	case string:
		return parseIDString(n)
	case nil:
		return 0, fmt.Errorf("%w: missing id", ErrInvalid)
	}
	return 0, fmt.Errorf("%w: id has unsupported type %T", ErrInvalid, v)
}

func parseIDString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}
	// "3.0" and "1e2" are still whole numbers.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q is not an integer", ErrInvalid, s)
	}
	id, ok := wholeInt64(f)
	if !ok {
		return 0, fmt.Errorf("%w: id %q is not an integer", ErrInvalid, s)
	}
	return id, nil
}

// wholeInt64 converts f when it is a whole number inside the int64 range.
// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
func wholeInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseText(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case bool:
		return strconv.FormatBool(s), nil
	case json.Number:
		return s.String(), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	}
	return "", fmt.Errorf("%w: cannot use %T as text", ErrInvalid, v)
}
