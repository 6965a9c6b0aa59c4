package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"catalog-cms/internal/middleware"
)

var (
	ErrEmptyRecord = errors.New("record is empty")
	ErrMissingID   = errors.New("record has no id")
)

var validate = middleware.Validator()

// Clock returns the current time; tests substitute a fixed clock.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// newID returns the current Unix milliseconds as a string, bumped until
// taken reports false.
func newID(ctx context.Context, now time.Time, taken func(context.Context, string) (bool, error)) (string, error) {
	n := now.UnixMilli()
	for i := 0; i < 1000; i++ {
		id := strconv.FormatInt(n, 10)
		used, err := taken(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check id %s: %w", id, err)
		}
		if !used {
			return id, nil
		}
		n++
	}
	return "", fmt.Errorf("failed to allocate an id near %d", now.UnixMilli())
}

// toRecord re-encodes a stored entity into the generic record shape used
// for shallow merges.
func toRecord(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec map[string]any
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// overlay copies body over base, leaving identity and timestamps alone.
func overlay(base, body map[string]any) map[string]any {
	for k, v := range body {
		switch k {
		case "id", "createdAt", "updatedAt", "created_at", "updated_at":
			continue
		}
		base[k] = v
	}
	return base
}
