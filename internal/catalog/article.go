package catalog

import (
	"encoding/json"
	"strings"

	"catalog-cms/internal/domain"

	"github.com/spf13/cast"
)

var emptyContent = json.RawMessage(`[]`)

// ArticleFromRecord builds an article from a decoded JSON record.
func ArticleFromRecord(rec map[string]any) (*domain.Article, Presence) {
	present := Presence{}
	a := &domain.Article{
		ID:      RecordID(rec),
		Content: emptyContent,
	}
	if a.ID != "" {
		present[FieldID] = true
	}

	strField := func(name string, dst *string) {
		if v, ok := rec[name]; ok {
			*dst = cast.ToString(v)
			present[name] = true
		}
	}
	strField("category", &a.Category)
	strField("title", &a.Title)
	strField("excerpt", &a.Excerpt)
	strField("image", &a.Image)
	strField("date", &a.Date)

	if v, ok := rec["content"]; ok {
		a.Content = EncodeContent(v)
		present["content"] = true
	}

	return a, present
}

// EncodeContent turns article content into JSON. A string holding JSON is
// kept as that JSON, any other string is kept as a JSON string.
func EncodeContent(v any) json.RawMessage {
	switch t := v.(type) {
	case nil:
		return emptyContent
	case json.RawMessage:
		if json.Valid(t) {
			return t
		}
		return EncodeContent(string(t))
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return emptyContent
		}
		if (strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{")) && json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed)
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return emptyContent
	}
	return b
}

// ApplyArticle copies every field present in src onto dst.
func ApplyArticle(dst, src *domain.Article, present Presence) {
	if present.Has("category") {
		dst.Category = src.Category
	}
	if present.Has("title") {
		dst.Title = src.Title
	}
	if present.Has("excerpt") {
		dst.Excerpt = src.Excerpt
	}
	if present.Has("image") {
		dst.Image = src.Image
	}
	if present.Has("date") {
		dst.Date = src.Date
	}
	if present.Has("content") {
		dst.Content = src.Content
	}
}
