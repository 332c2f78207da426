package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payload is the normalized nested key/value tree handed over by the transport.
// Values are scalars, nested Payload/map trees, or []any lists. Repeatable
// elements are expected to arrive as lists already.
type Payload map[string]any

// PayloadFromJSON decodes a JSON object into a Payload, keeping numbers exact.
func PayloadFromJSON(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return Payload(raw), nil
}

// Unwrap returns the first child tree when p is an envelope holding a single
// tree-valued entry, and p itself otherwise.
func (p Payload) Unwrap() Payload {
	if len(p) != 1 {
		return p
	}
	for _, v := range p {
		if child, ok := asTree(v); ok {
			return child
		}
	}
	return p
}

// Value walks a dotted path. Lists met on the way resolve to their first element.
func (p Payload) Value(path string) (any, bool) {
	var cur any = map[string]any(p)
	for _, key := range strings.Split(path, ".") {
		if list, ok := cur.([]any); ok {
			if len(list) == 0 {
				return nil, false
			}
			cur = list[0]
		}
		tree, ok := asTree(cur)
		if !ok {
			return nil, false
		}
		cur, ok = tree[key]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// String returns the scalar at path as trimmed text, or "".
func (p Payload) String(path string) string {
	v, ok := p.Value(path)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		if len(val) == 1 {
			return Payload{"v": val[0]}.String("v")
		}
	}
	return ""
}

// FirstString returns the first non-empty string among paths.
func (p Payload) FirstString(paths ...string) string {
	for _, path := range paths {
		if s := p.String(path); s != "" {
			return s
		}
	}
	return ""
}

// Tree returns the nested tree at path, or nil.
func (p Payload) Tree(path string) Payload {
	v, ok := p.Value(path)
	if !ok {
		return nil
	}
	if list, isList := v.([]any); isList {
		if len(list) == 0 {
			return nil
		}
		v = list[0]
	}
	tree, _ := asTree(v)
	return tree
}

// List returns the trees stored at path. A lone tree is wrapped into a list.
func (p Payload) List(path string) []Payload {
	v, ok := p.Value(path)
	if !ok {
		return nil
	}
	if tree, isTree := asTree(v); isTree {
		return []Payload{tree}
	}
	list, isList := v.([]any)
	if !isList {
		return nil
	}
	out := make([]Payload, 0, len(list))
	for _, item := range list {
		if tree, isTree := asTree(item); isTree {
			out = append(out, tree)
		}
	}
	return out
}

// Int returns the integer at path, or 0.
func (p Payload) Int(path string) int {
	n, err := strconv.Atoi(p.String(path))
	if err != nil {
		return 0
	}
	return n
}

// Decimal returns the decimal at path, or zero.
func (p Payload) Decimal(path string) decimal.Decimal {
	d, err := decimal.NewFromString(p.String(path))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Bool returns true only for an explicit true value at path.
func (p Payload) Bool(path string) bool {
	b, err := strconv.ParseBool(p.String(path))
	return err == nil && b
}

// Time parses an RFC 3339 timestamp at path. Empty or malformed values yield nil.
func (p Payload) Time(path string) *time.Time {
	return ParseTimestamp(p.String(path))
}

// JSON encodes p for diagnostic storage.
func (p Payload) JSON() string {
	if p == nil {
		return ""
	}
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}

// ParseTimestamp parses marketplace timestamps; "" and malformed values yield nil.
func ParseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func asTree(v any) (Payload, bool) {
	switch t := v.(type) {
	case Payload:
		return t, true
	case map[string]any:
		return Payload(t), true
	default:
		return nil, false
	}
}
