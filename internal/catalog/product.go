package catalog

import (
	"encoding/json"
	"strings"

	"catalog-cms/internal/domain"

	"github.com/spf13/cast"
)

// Product record field names
const (
	FieldID              = "id"
	FieldSKU             = "sku"
	FieldCategory        = "category"
	FieldTitle           = "title"
	FieldDescription     = "description"
	FieldPrice           = "price"
	FieldQuantity        = "quantity"
	FieldPhotos          = "photos"
	FieldCharacteristics = "characteristics"
	FieldSEO             = "seo"
)

// Presence records which top-level fields a decoded record carried.
type Presence map[string]bool

// Has reports whether the record carried field.
func (p Presence) Has(field string) bool {
	return p[field]
}

// RecordID extracts a trimmed string id from a decoded record.
func RecordID(rec map[string]any) string {
	v, ok := rec[FieldID]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

// ProductFromRecord builds a normalized product from a decoded JSON record of
// any historical shape. Timestamps in the record are ignored.
func ProductFromRecord(rec map[string]any) (*domain.Product, Presence) {
	present := Presence{}
	p := &domain.Product{
		ID:              RecordID(rec),
		SKU:             domain.SKU{},
		Photos:          []string{},
		Characteristics: Normalize(nil),
	}
	if p.ID != "" {
		present[FieldID] = true
	}

	if v, ok := rec[FieldSKU]; ok {
		sku, err := domain.ParseSKU(v)
		if err != nil {
			sku = domain.SKU{}
		}
		p.SKU = sku
		present[FieldSKU] = true
	}

	if v, ok := rec[FieldCategory]; ok {
		p.Category = cast.ToString(v)
		present[FieldCategory] = true
	}
	if v, ok := rec[FieldTitle]; ok {
		p.Title = cast.ToString(v)
		present[FieldTitle] = true
	}
	if v, ok := firstOf(rec, FieldDescription, "desc", "text", "Описание"); ok {
		p.Description = cast.ToString(v)
		present[FieldDescription] = true
	}
	if v, ok := rec[FieldPrice]; ok {
		p.Price = toFloat(v)
		present[FieldPrice] = true
	}
	if v, ok := rec[FieldQuantity]; ok {
		p.Quantity = cast.ToInt(v)
		present[FieldQuantity] = true
	}

	if v, ok := rec[FieldPhotos]; ok {
		p.Photos = decodeList(v)
		present[FieldPhotos] = true
	}
	if len(p.Photos) == 0 {
		if v, ok := firstOf(rec, "photo", "image"); ok {
			p.Photos = NormalizeList(v)
			present[FieldPhotos] = true
		}
	}

	switch {
	case rec[FieldCharacteristics] != nil:
		p.Characteristics = Normalize(rec[FieldCharacteristics])
		present[FieldCharacteristics] = true
	case HasFlatColumns(rec):
		p.Characteristics = FromFlat(rec)
		present[FieldCharacteristics] = true
	}

	if seo, ok := decodeSEO(rec); ok {
		p.SEO = seo
		present[FieldSEO] = true
	}

	return p, present
}

// ApplyProduct copies every field present in src onto dst except
// characteristics and timestamps, whose policy belongs to the caller.
func ApplyProduct(dst, src *domain.Product, present Presence) {
	if present.Has(FieldSKU) {
		dst.SKU = src.SKU
	}
	if present.Has(FieldCategory) {
		dst.Category = src.Category
	}
	if present.Has(FieldTitle) {
		dst.Title = src.Title
	}
	if present.Has(FieldDescription) {
		dst.Description = src.Description
	}
	if present.Has(FieldPrice) {
		dst.Price = src.Price
	}
	if present.Has(FieldQuantity) {
		dst.Quantity = src.Quantity
	}
	if present.Has(FieldPhotos) {
		dst.Photos = src.Photos
	}
	if present.Has(FieldSEO) {
		dst.SEO = src.SEO
	}
}

func firstOf(rec map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func toFloat(v any) float64 {
	if s, ok := v.(string); ok {
		v = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	}
	return cast.ToFloat64(v)
}

// decodeList accepts a list, a single string or a JSON-encoded list.
func decodeList(v any) []string {
	if s, ok := v.(string); ok && strings.HasPrefix(strings.TrimSpace(s), "[") {
		var items []any
		if err := json.Unmarshal([]byte(s), &items); err == nil {
			return NormalizeList(items)
		}
	}
	return NormalizeList(v)
}

func decodeSEO(rec map[string]any) (domain.SEO, bool) {
	var seo domain.SEO
	switch t := rec[FieldSEO].(type) {
	case map[string]any:
		seo.Title = cast.ToString(t["title"])
		seo.Description = cast.ToString(t["description"])
		seo.Keywords = cast.ToString(t["keywords"])
		return seo, true
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(t), &m); err == nil {
			return decodeSEO(map[string]any{FieldSEO: m})
		}
	}

	found := false
	if v, ok := rec["seo_title"]; ok {
		seo.Title = cast.ToString(v)
		found = true
	}
	if v, ok := rec["seo_description"]; ok {
		seo.Description = cast.ToString(v)
		found = true
	}
	if v, ok := rec["seo_keywords"]; ok {
		seo.Keywords = cast.ToString(v)
		found = true
	}
	return seo, found
}
