package repository

import (
	"encoding/json"
	"time"

	"catalog-cms/internal/catalog"
	"catalog-cms/internal/domain"
)

// Timestamps are stored as RFC 3339 text in every backend.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeJSON(v any, fallback string) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	return string(b)
}

// decodeSKU degrades an unreadable value to no SKU.
func decodeSKU(s string) domain.SKU {
	var sku domain.SKU
	if err := json.Unmarshal([]byte(s), &sku); err != nil {
		return domain.SKU{}
	}
	return sku
}

func decodePhotos(s string) []string {
	var raw any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return catalog.NormalizeList(s)
	}
	return catalog.NormalizeList(raw)
}

func decodeSEO(s string) domain.SEO {
	var seo domain.SEO
	if err := json.Unmarshal([]byte(s), &seo); err != nil {
		return domain.SEO{}
	}
	return seo
}

// normalizeContent keeps stored JSON as is and wraps anything else.
func normalizeContent(s string) json.RawMessage {
	if s != "" && json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return catalog.EncodeContent(s)
}
