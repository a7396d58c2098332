// Package meta normalizes WordPress user metadata between its stored form
// (ordered string values per key, some of them PHP-serialized) and a JSON-safe
// representation.
package meta

import (
	"math"
	"strconv"

	"github.com/wpjson/user-service/internal/phpserial"
)

// Opaque is the wire form of a metadata value that was stored PHP-serialized.
// Unserialized is nil when the blob could not be decoded; Serialized always
// keeps the original bytes for debugging.
type Opaque struct {
	Unserialized any    `json:"unserialized"`
	Serialized   string `json:"serialized"`
}

// Decode maps each raw value to either the plain string or an Opaque wrapper.
// Detection runs per value, not per key, so one key can mix both forms.
// Undecodable serialized blobs are kept with a nil Unserialized field rather
// than failing the whole decode.
func Decode(raw map[string][]string) map[string][]any {
	if raw == nil {
		return nil
	}
	out := make(map[string][]any, len(raw))
	for key, values := range raw {
		prepared := make([]any, 0, len(values))
		for _, v := range values {
			if phpserial.IsSerialized(v) {
				decoded, err := phpserial.Unserialize(v)
				if err != nil {
					decoded = nil
				}
				prepared = append(prepared, Opaque{Unserialized: decoded, Serialized: v})
			} else {
				prepared = append(prepared, v)
			}
		}
		out[key] = prepared
	}
	return out
}

// Values flattens one entry of an update payload into the ordered value
// sequence to write: callers may submit a single scalar or a list of scalars
// per key.
func Values(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

// Encode produces the string to hand to the metadata store for one value of
// an update payload. An {unserialized, serialized} wrapper writes its decoded
// form; the serialized member is informational and discarded, so the value
// always goes back through our own serialization. Bare strings pass through
// unchanged, other scalars get PHP's string cast, and structured values are
// PHP-serialized.
func Encode(v any) string {
	if m, ok := v.(map[string]any); ok {
		if u, present := m["unserialized"]; present {
			return encodeBare(u)
		}
	}
	if o, ok := v.(Opaque); ok {
		return encodeBare(o.Unserialized)
	}
	return encodeBare(v)
}

func encodeBare(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "1"
		}
		return ""
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return phpserial.Serialize(v)
	}
}
