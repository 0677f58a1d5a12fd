// Package relation converts question-set membership lists between their legacy
// encoded forms and ordered identifier slices.
package relation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

// Decode turns a membership value into an ordered list of identifiers.
//
// raw may be a native slice, a JSON document (array of ids, or a string holding
// an encoded list) or comma-separated text. Entries that are not positive
// integers are dropped. Decode never fails; the worst case is an empty list.
func Decode(raw any) []uint {
	switch v := raw.(type) {
	case nil:
		return []uint{}
	case []uint:
		out := make([]uint, 0, len(v))
		for _, id := range v {
			if id > 0 {
				out = append(out, id)
			}
		}
		return out
	case []int:
		out := make([]uint, 0, len(v))
		for _, id := range v {
			if id > 0 {
				out = append(out, uint(id))
			}
		}
		return out
	case []string:
		items := make([]any, 0, len(v))
		for _, s := range v {
			items = append(items, s)
		}
		return fromList(items)
	case []any:
		return fromList(v)
	case json.RawMessage:
		return decodeText(string(v), 0)
	case []byte:
		return decodeText(string(v), 0)
	case string:
		return decodeText(v, 0)
	default:
		return []uint{}
	}
}

// Encode renders ids as a JSON array. The result always decodes back to ids.
func Encode(ids []uint) string {
	if len(ids) == 0 {
		return "[]"
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for idx, id := range ids {
		if idx > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	buf.WriteByte(']')
	return buf.String()
}

// maxNesting bounds how many times a JSON string holding another encoded list is unwrapped.
const maxNesting = 2

func decodeText(text string, depth int) []uint {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []uint{}
	}

	if looksLikeJSON(trimmed) {
		decoder := json.NewDecoder(strings.NewReader(trimmed))
		decoder.UseNumber()

		var parsed any
		if err := decoder.Decode(&parsed); err != nil {
			return []uint{}
		}
		if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
			return []uint{}
		}

		switch v := parsed.(type) {
		case []any:
			return fromList(v)
		case string:
			if depth >= maxNesting {
				return []uint{}
			}
			return decodeText(v, depth+1)
		case json.Number:
			return fromList([]any{v})
		default:
			return []uint{}
		}
	}

	return fromCSV(trimmed)
}

func looksLikeJSON(text string) bool {
	switch text[0] {
	case '[', '{', '"':
		return true
	}
	return false
}

func fromCSV(text string) []uint {
	parts := strings.Split(text, ",")
	out := make([]uint, 0, len(parts))
	for _, part := range parts {
		if id, ok := parseID(strings.TrimSpace(part)); ok {
			out = append(out, id)
		}
	}
	return out
}

func fromList(items []any) []uint {
	out := make([]uint, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case json.Number:
			if id, ok := parseID(v.String()); ok {
				out = append(out, id)
			}
		case float64:
			if v > 0 && v == float64(uint(v)) {
				out = append(out, uint(v))
			}
		case int:
			if v > 0 {
				out = append(out, uint(v))
			}
		case uint:
			if v > 0 {
				out = append(out, v)
			}
		case string:
			if id, ok := parseID(strings.TrimSpace(v)); ok {
				out = append(out, id)
			}
		}
	}
	return out
}

func parseID(value string) (uint, bool) {
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}
