package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nikhilbhutani/reportportal/internal/models"
)

type Kind string

const (
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindJSON   Kind = "json"
)

// Value is a setting value tagged with its kind. The zero Value is an empty
// string.
type Value struct {
	kind Kind
	raw  string
}

func String(s string) Value {
	return Value{kind: KindString, raw: s}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, raw: strconv.FormatBool(b)}
}

// JSON encodes v as a structured setting.
func JSON(v interface{}) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("encode setting: %w", err)
	}
	return Value{kind: KindJSON, raw: string(data)}, nil
}

// ValueFromJSON maps a value from a request body onto a setting. Numbers are
// kept as their literal text and null becomes an empty string.
func ValueFromJSON(raw json.RawMessage) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return String(""), nil
	}

	switch trimmed[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return Value{}, fmt.Errorf("decode setting: %w", err)
		}
		return Bool(b), nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Value{}, fmt.Errorf("decode setting: %w", err)
		}
		return String(s), nil
	case '{', '[':
		if !json.Valid(trimmed) {
			return Value{}, fmt.Errorf("decode setting: invalid JSON")
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return Value{}, fmt.Errorf("decode setting: %w", err)
		}
		return Value{kind: KindJSON, raw: buf.String()}, nil
	case 'n':
		if string(trimmed) != "null" {
			return Value{}, fmt.Errorf("decode setting: invalid JSON")
		}
		return String(""), nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return Value{}, fmt.Errorf("decode setting: %w", err)
	}
	return String(n.String()), nil
}

// fromRow rebuilds a Value from storage. Rows without a kind are detected
// from their text: "true"/"false" are booleans, objects and arrays are JSON,
// anything else is a string.
func fromRow(s models.Setting) Value {
	switch k := Kind(s.Kind); k {
	case KindString, KindBool, KindJSON:
		return Value{kind: k, raw: s.Value}
	}

	switch s.Value {
	case "true", "false":
		return Value{kind: KindBool, raw: s.Value}
	}
	trimmed := strings.TrimSpace(s.Value)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if json.Valid([]byte(trimmed)) {
			return Value{kind: KindJSON, raw: s.Value}
		}
	}
	return Value{kind: KindString, raw: s.Value}
}

func (v Value) Kind() Kind {
	if v.kind == "" {
		return KindString
	}
	return v.kind
}

// Raw is the stored text of the value.
func (v Value) Raw() string {
	return v.raw
}

// Bool reports the value as a boolean. String values are parsed leniently
// ("1", "true", "yes", "on").
func (v Value) Bool() bool {
	switch v.Kind() {
	case KindBool:
		return v.raw == "true"
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.raw)) {
		case "1", "true", "yes", "on":
			return true
		}
	}
	return false
}

func (v Value) Decode(dest interface{}) error {
	if v.Kind() != KindJSON {
		b, err := json.Marshal(v.raw)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dest)
	}
	return json.Unmarshal([]byte(v.raw), dest)
}

// Interface returns the value as a plain Go value suitable for JSON
// responses: string, bool, or the decoded structure.
func (v Value) Interface() interface{} {
	switch v.Kind() {
	case KindBool:
		return v.raw == "true"
	case KindJSON:
		var out interface{}
		if err := json.Unmarshal([]byte(v.raw), &out); err != nil {
			return v.raw
		}
		return out
	}
	return v.raw
}

func (v Value) row(key string) models.Setting {
	return models.Setting{Key: key, Value: v.raw, Kind: string(v.Kind())}
}
