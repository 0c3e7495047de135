// Package payload models the JSON object forwarded to the provider.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"unicode/utf8"
)

// ErrNotObject is returned when a payload is not a JSON object.
var ErrNotObject = errors.New("payload must be a JSON object")

// Object is a decoded JSON object. Numbers are kept as json.Number so
// re-encoding reproduces the caller's literals.
type Object map[string]any

// Decode parses raw JSON into an Object. It returns (nil, nil) for empty
// input or a JSON null.
func Decode(raw []byte) (Object, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '{' {
		return nil, ErrNotObject
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj Object
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return obj, nil
}

// Merge returns a new object holding base's entries overlaid with overlay's.
// On a key collision the overlay value wins. Neither input is modified.
func Merge(base, overlay Object) Object {
	out := make(Object, len(base)+len(overlay))
	maps.Copy(out, base)
	maps.Copy(out, overlay)
	return out
}

// Encode serializes o as compact JSON without HTML escaping.
func (o Object) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(o); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Size returns the length of o's compact JSON form in UTF-16 code units,
// counted the way JavaScript's JSON.stringify(o).length counts it: numbers
// in their shortest form, and U+2028/U+2029 left unescaped.
func (o Object) Size() (int64, error) {
	data, err := Object(scriptNumbers(o).(map[string]any)).Encode()
	if err != nil {
		return 0, err
	}

	var n int64
	for len(data) > 0 {
		if data[0] == '\\' && len(data) > 1 {
			// encoding/json always escapes the line and paragraph separators.
			if bytes.HasPrefix(data[1:], []byte("u2028")) || bytes.HasPrefix(data[1:], []byte("u2029")) {
				n++
				data = data[6:]
				continue
			}
			n += 2
			data = data[2:]
			continue
		}
		r, w := utf8.DecodeRune(data)
		data = data[w:]
		n++
		if r > 0xFFFF {
			n++
		}
	}
	return n, nil
}

// scriptNumbers copies v replacing json.Number literals with the float64
// JavaScript would hold, so 1e3 encodes as 1000 and 1.50 as 1.5.
// Out of range literals become null, as JSON.stringify writes Infinity.
func scriptNumbers(v any) any {
	switch t := v.(type) {
	case Object:
		return scriptNumbers(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = scriptNumbers(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = scriptNumbers(e)
		}
		return out
	case json.Number:
		f, err := t.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil
		}
		if f == 0 {
			return float64(0)
		}
		return f
	default:
		return v
	}
}
