package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Characteristics maps a characteristic name to its value. Values are
// strings, integers (temperature bounds), numbers (accuracy) or []string.
type Characteristics map[string]any

// SEO holds search metadata independent of the display title/description
type SEO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
}

// Product represents a catalog item
type Product struct {
	ID              string          `json:"id"`
	SKU             SKU             `json:"sku"`
	Category        string          `json:"category"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Price           float64         `json:"price" validate:"gte=0"`
	Quantity        int             `json:"quantity" validate:"gte=0"`
	Photos          []string        `json:"photos"`
	Characteristics Characteristics `json:"characteristics"`
	SEO             SEO             `json:"seo"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Stamp sets both timestamps of a newly stored product.
func (p *Product) Stamp(at time.Time) {
	p.CreatedAt, p.UpdatedAt = at, at
}

// Touch marks the product as modified at the given time.
func (p *Product) Touch(at time.Time) {
	p.UpdatedAt = at
}

// SKU is a product article number. Historic records store either a single
// string or a list, so decoding accepts both and encoding keeps a single
// value as a bare string.
type SKU []string

// MarshalJSON writes "" for no value, a string for one value and an array otherwise.
func (s SKU) MarshalJSON() ([]byte, error) {
	switch len(s) {
	case 0:
		return []byte(`""`), nil
	case 1:
		return json.Marshal(s[0])
	default:
		return json.Marshal([]string(s))
	}
}

// UnmarshalJSON accepts a string, a number, an array or null.
func (s *SKU) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSKU(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSKU converts a decoded JSON value into a SKU. Blank entries are dropped.
func ParseSKU(v any) (SKU, error) {
	switch t := v.(type) {
	case nil:
		return SKU{}, nil
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return SKU{}, nil
		}
		return SKU{trimmed}, nil
	case float64:
		return SKU{strconv.FormatFloat(t, 'f', -1, 64)}, nil
	case json.Number:
		return SKU{t.String()}, nil
	case []string:
		out := SKU{}
		for _, item := range t {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	case []any:
		out := SKU{}
		for _, item := range t {
			parsed, err := ParseSKU(item)
			if err != nil {
				return nil, err
			}
			out = append(out, parsed...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot decode %T into SKU", v)
	}
}

// Article represents a blog/news entry
type Article struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Title     string          `json:"title"`
	Excerpt   string          `json:"excerpt"`
	Image     string          `json:"image"`
	Date      string          `json:"date"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (a *Article) Stamp(at time.Time) {
	a.CreatedAt, a.UpdatedAt = at, at
}

func (a *Article) Touch(at time.Time) {
	a.UpdatedAt = at
}
