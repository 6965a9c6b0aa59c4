package catalog

import (
	"bytes"
	"encoding/json"
	"time"

	"catalog-cms/internal/domain"
)

// MergeCharacteristics fills the gaps of existing from incoming. A key that
// exists with a non-empty value is never overwritten.
func MergeCharacteristics(existing, incoming domain.Characteristics) domain.Characteristics {
	merged := make(domain.Characteristics, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		if cur, ok := merged[k]; ok && !IsEmpty(cur) {
			continue
		}
		merged[k] = v
	}
	return Normalize(merged)
}

// SameProduct compares two products ignoring their timestamps.
func SameProduct(a, b *domain.Product) bool {
	x, y := *a, *b
	x.CreatedAt, x.UpdatedAt = time.Time{}, time.Time{}
	y.CreatedAt, y.UpdatedAt = time.Time{}, time.Time{}
	return sameJSON(x, y)
}

// SameArticle compares two articles ignoring their timestamps.
func SameArticle(a, b *domain.Article) bool {
	x, y := *a, *b
	x.CreatedAt, x.UpdatedAt = time.Time{}, time.Time{}
	y.CreatedAt, y.UpdatedAt = time.Time{}, time.Time{}
	return sameJSON(x, y)
}

// sameJSON compares canonical encodings; map keys are sorted by encoding/json
// and numbers of different Go types encode alike.
func sameJSON(a, b any) bool {
	x, err := json.Marshal(a)
	if err != nil {
		return false
	}
	y, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(x, y)
}
