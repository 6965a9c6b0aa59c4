package catalog

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"catalog-cms/internal/domain"

	"github.com/spf13/cast"
)

var leadingInt = regexp.MustCompile(`^[+-]?\d+`)

// Normalize converts characteristics given as a nested object, a flat record
// of column names or a JSON-encoded blob of either into the canonical nested
// mapping. Unrecognized keys are passed through untouched. It never fails:
// unreadable input degrades to an empty mapping.
func Normalize(v any) domain.Characteristics {
	src := toMap(v)

	grouped := make(map[*Field][]string)
	out := domain.Characteristics{}
	for key, value := range src {
		f, ok := FieldFor(key)
		if !ok {
			out[key] = value
			continue
		}
		grouped[f] = append(grouped[f], key)
	}

	for i := range Fields {
		f := &Fields[i]
		value, present := pick(src, f, grouped[f])
		switch f.Kind {
		case KindList:
			out[f.Key] = NormalizeList(value)
		case KindText:
			if present {
				out[f.Key] = textValue(value)
			}
		case KindRegistryFlag:
			if present {
				out[f.Key] = RegistryFlag(cast.ToString(value))
			}
		case KindSmallObjectFlag:
			if present {
				out[f.Key] = SmallObjectFlag(value)
			}
		case KindTemperature:
			if present {
				out[f.Key] = ParseTemperature(value)
			}
		case KindAccuracy:
			if present {
				out[f.Key] = RescaleAccuracy(value)
			}
		}
	}

	return out
}

// pick chooses the value for a field when several spellings are present:
// the canonical key first, then the remaining keys in sorted order, preferring
// a non-empty value.
func pick(src map[string]any, f *Field, keys []string) (any, bool) {
	if len(keys) == 0 {
		return nil, false
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == f.Key || keys[j] == f.Key {
			return keys[i] == f.Key
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if !IsEmpty(src[k]) {
			return src[k], true
		}
	}
	return src[keys[0]], true
}

func toMap(v any) map[string]any {
	switch t := v.(type) {
	case nil:
		return map[string]any{}
	case domain.Characteristics:
		return t
	case map[string]any:
		return t
	case string:
		return DecodeCharacteristics(t)
	case []byte:
		return DecodeCharacteristics(string(t))
	case json.RawMessage:
		return DecodeCharacteristics(string(t))
	default:
		m, err := cast.ToStringMapE(v)
		if err != nil {
			return map[string]any{}
		}
		return m
	}
}

// DecodeCharacteristics parses a JSON blob. Malformed or non-object input
// yields an empty mapping.
func DecodeCharacteristics(blob string) domain.Characteristics {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return domain.Characteristics{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(blob), &m); err != nil || m == nil {
		return domain.Characteristics{}
	}
	return m
}

// FromFlat collects the per-characteristic columns of a flat record into
// the canonical nested mapping. Other fields of the record are ignored.
func FromFlat(record map[string]any) domain.Characteristics {
	nested := make(map[string]any)
	for key, value := range record {
		if IsColumn(key) {
			nested[key] = value
		}
	}
	return Normalize(nested)
}

// HasFlatColumns reports whether a record carries any per-characteristic column.
func HasFlatColumns(record map[string]any) bool {
	for key := range record {
		if IsColumn(key) {
			return true
		}
	}
	return false
}

// Flatten maps canonical characteristics to flat column names. Unrecognized
// keys keep their names.
func Flatten(c domain.Characteristics) map[string]any {
	out := make(map[string]any, len(c))
	for key, value := range c {
		if f, ok := FieldFor(key); ok {
			out[f.Column] = value
			continue
		}
		out[key] = value
	}
	return out
}

// NormalizeList always returns a list with blank entries removed.
func NormalizeList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case nil:
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []string:
		for _, item := range t {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			if item == nil || item == false {
				continue
			}
			if s := strings.TrimSpace(cast.ToString(item)); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := strings.TrimSpace(cast.ToString(v)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func textValue(v any) any {
	switch v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64, int, int64, json.Number, bool:
		return cast.ToString(v)
	default:
		return v
	}
}

// ParseTemperature reads the leading integer of a temperature bound.
// Anything unparsable is 0.
func ParseTemperature(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int(t)
	case json.Number:
		return ParseTemperature(t.String())
	case string:
		m := leadingInt.FindString(strings.TrimSpace(t))
		if m == "" {
			return 0
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// RescaleAccuracy converts an error given as a fraction (0 < x < 0.1) to a
// percentage. Numbers stay numbers and strings stay strings; anything that is
// not numeric passes through. Fractions below 0.001 would land back in the
// fraction window after scaling, so they are left alone.
func RescaleAccuracy(v any) any {
	switch t := v.(type) {
	case string:
		f, err := cast.ToFloat64E(strings.Replace(strings.TrimSpace(t), ",", ".", 1))
		if err != nil || !isFraction(f) {
			return v
		}
		return strconv.FormatFloat(percent(f), 'f', -1, 64)
	case float64, int, int64, json.Number:
		f, err := cast.ToFloat64E(t)
		if err != nil || !isFraction(f) {
			return v
		}
		return percent(f)
	default:
		return v
	}
}

func isFraction(f float64) bool {
	return f > 0 && f < 0.1 && f*100 >= 0.1
}

func percent(f float64) float64 {
	return math.Round(f*100*1000) / 1000
}

// IsEmpty reports whether a characteristic value carries no information.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
