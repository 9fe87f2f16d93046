// Package parser recovers structured data from unstructured model
// output. Models asked for JSON frequently return truncated objects,
// trailing commas, or unquoted keys; ExtractObject pulls out whatever
// key/value pairs it can instead of rejecting the whole response.
package parser

import (
	"encoding/json"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Object is a JSON-like object with keys kept in the order they first
// appeared in the source text. Setting an existing key overwrites the
// value but keeps the original position, so duplicate keys resolve to
// the last occurrence.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject creates an empty Object.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Set stores a value under key, preserving first-appearance order.
func (o *Object) Set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value for key and whether it exists.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// Keys returns the keys in first-appearance order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Map returns a plain map copy of the object. Ordering is lost.
func (o *Object) Map() map[string]any {
	out := make(map[string]any, len(o.values))
	for k, v := range o.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the object with keys in first-appearance order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		val, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// kvPattern matches `"key": value` or `key: value` where the value is
// either a double-quoted string (escaped quotes respected) or a bare
// run of characters up to the next comma, closing brace, or newline.
var kvPattern = regexp.MustCompile(`(?:"([^"]+)"|([a-zA-Z0-9_]+))\s*:\s*(?:"((?:[^"\\]|\\.)*)"|([^,}\n]+))`)

// ExtractObject extracts a single JSON object from text, tolerating
// missing closing braces, trailing commas, and unquoted tokens. It
// never fails: malformed input degrades to a partial or empty result.
func ExtractObject(text string) *Object {
	start := strings.Index(text, "{")
	if start == -1 {
		return NewObject()
	}

	end := strings.LastIndex(text, "}")
	var jsonStr string
	if end == -1 || end < start {
		// Truncated mid-object; assume it ran to the end of the text.
		jsonStr = text[start:] + "}"
	} else {
		jsonStr = text[start : end+1]
	}

	jsonStr = trailingComma.ReplaceAllString(jsonStr, "$1")

	if obj, ok := parseStrict(jsonStr); ok {
		return obj
	}
	return parseAggressive(jsonStr)
}

// parseStrict parses s as JSON, keeping top-level key order. Nested
// values decode natively. Trailing content after the object is a
// failure, matching a strict parser's behavior.
func parseStrict(s string) (*Object, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, false
	}

	obj := NewObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, false
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		obj.Set(key, normalizeValue(value))
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return obj, true
}

// normalizeValue converts json.Number into int64 or float64 and
// recurses into nested containers.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		s := val.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := val.Int64(); err == nil {
				return i
			}
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return s
	case map[string]any:
		for k, nested := range val {
			val[k] = normalizeValue(nested)
		}
		return val
	case []any:
		for i, nested := range val {
			val[i] = normalizeValue(nested)
		}
		return val
	default:
		return v
	}
}

// parseAggressive scans for key/value pairs when strict parsing fails.
// Quoted string values get a minimal unescape (\n, \", \\ only); bare
// values are classified as bool, null, int, float, or raw string.
func parseAggressive(s string) *Object {
	obj := NewObject()
	for _, m := range kvPattern.FindAllStringSubmatchIndex(s, -1) {
		var key string
		switch {
		case m[2] != -1:
			key = s[m[2]:m[3]]
		case m[4] != -1:
			key = s[m[4]:m[5]]
		default:
			continue
		}

		if m[6] != -1 {
			// Quoted string value; an empty match is a legitimate "".
			obj.Set(key, unescape(s[m[6]:m[7]]))
			continue
		}
		if m[8] != -1 {
			obj.Set(key, classifyBare(s[m[8]:m[9]]))
		}
	}
	return obj
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

func classifyBare(raw string) any {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if strings.Contains(v, ".") {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}
