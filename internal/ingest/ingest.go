// Package ingest reads candidate records from JSON files for the import
// and seed operations.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

var (
	ErrSourceNotFound = errors.New("record source not found")
	ErrNotAnArray     = errors.New("record source is not a JSON array")
)

// ReadRecords decodes the JSON array stored at path. Array entries that are
// not objects come back as nil so the caller can count them as malformed.
func ReadRecords(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}

// Decode reads a JSON array of records from r. An empty input is an empty list.
func Decode(r io.Reader) ([]map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(data) == 0 {
		return []map[string]any{}, nil
	}
	if data[0] != '[' {
		return nil, ErrNotAnArray
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	records := make([]map[string]any, len(raw))
	for i, item := range raw {
		var rec map[string]any
		if err := json.Unmarshal(item, &rec); err != nil {
			continue
		}
		records[i] = rec
	}
	return records, nil
}

// Batch carries the candidate records of one import run. A nil slice means
// the entity was not supplied and is left alone.
type Batch struct {
	Products []map[string]any `json:"products"`
	Articles []map[string]any `json:"articles"`
}

// LoadBatch reads the product and article files. A missing file leaves its
// entity out of the batch; the batch fails only when neither file exists or
// a file cannot be read.
func LoadBatch(productsPath, articlesPath string) (Batch, error) {
	var (
		batch   Batch
		missing int
		err     error
	)

	batch.Products, err = ReadRecords(productsPath)
	if errors.Is(err, ErrSourceNotFound) {
		missing++
	} else if err != nil {
		return Batch{}, err
	}

	batch.Articles, err = ReadRecords(articlesPath)
	if errors.Is(err, ErrSourceNotFound) {
		missing++
	} else if err != nil {
		return Batch{}, err
	}

	if missing == 2 {
		return Batch{}, fmt.Errorf("%w: %s, %s", ErrSourceNotFound, productsPath, articlesPath)
	}
	return batch, nil
}

// DecodeBatch reads a batch given inline as {"products": [...], "articles": [...]}.
// An omitted or null key leaves its entity out of the batch.
func DecodeBatch(r io.Reader) (Batch, error) {
	var raw struct {
		Products json.RawMessage `json:"products"`
		Articles json.RawMessage `json:"articles"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Batch{}, fmt.Errorf("failed to decode batch: %w", err)
	}

	var (
		batch Batch
		err   error
	)
	if supplied(raw.Products) {
		if batch.Products, err = Decode(bytes.NewReader(raw.Products)); err != nil {
			return Batch{}, fmt.Errorf("products: %w", err)
		}
	}
	if supplied(raw.Articles) {
		if batch.Articles, err = Decode(bytes.NewReader(raw.Articles)); err != nil {
			return Batch{}, fmt.Errorf("articles: %w", err)
		}
	}
	return batch, nil
}

// Empty reports whether the batch names no entity at all.
func (b Batch) Empty() bool {
	return b.Products == nil && b.Articles == nil
}

func supplied(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
