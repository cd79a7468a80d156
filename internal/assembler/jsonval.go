package assembler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Kind identifies the type of a JSON value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a decoded JSON value that preserves object member order.
// The standard map[string]any decoding would lose the first-seen key
// order the compactor uses for CSV column headers, so structured data is
// decoded through the json.Decoder token stream instead.
type Value struct {
	Kind    Kind
	Bool    bool
	Number  string // original numeric literal, e.g. "10" or "2.5"
	Str     string
	Items   []Value  // KindArray
	Members []Member // KindObject
}

// Member is a single key/value pair of a JSON object.
type Member struct {
	Key   string
	Value Value
}

// ParseJSON decodes data into a Value. It fails on empty input, invalid
// JSON, or trailing content after the first value.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return Value{}, err
	}
	if dec.More() {
		return Value{}, errors.New("unexpected trailing content after JSON value")
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("invalid JSON: %w", err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := Value{Kind: KindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, fmt.Errorf("invalid JSON object key: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key token %v", keyTok)
				}
				val, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				obj.Members = append(obj.Members, Member{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, fmt.Errorf("unterminated JSON object: %w", err)
			}
			return obj, nil
		case '[':
			arr := Value{Kind: KindArray}
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				arr.Items = append(arr.Items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, fmt.Errorf("unterminated JSON array: %w", err)
			}
			return arr, nil
		default:
			return Value{}, fmt.Errorf("unexpected JSON delimiter %q", t)
		}
	case string:
		return Value{Kind: KindString, Str: t}, nil
	case json.Number:
		return Value{Kind: KindNumber, Number: t.String()}, nil
	case bool:
		return Value{Kind: KindBool, Bool: t}, nil
	case nil:
		return Value{Kind: KindNull}, nil
	default:
		return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
	}
}

// JSON renders the value back as compact JSON text.
func (v Value) JSON() string {
	return string(v.appendJSON(nil))
}

func (v Value) appendJSON(b []byte) []byte {
	switch v.Kind {
	case KindNull:
		return append(b, "null"...)
	case KindBool:
		return strconv.AppendBool(b, v.Bool)
	case KindNumber:
		return append(b, v.Number...)
	case KindString:
		quoted, _ := json.Marshal(v.Str)
		return append(b, quoted...)
	case KindArray:
		b = append(b, '[')
		for i, item := range v.Items {
			if i > 0 {
				b = append(b, ',')
			}
			b = item.appendJSON(b)
		}
		return append(b, ']')
	case KindObject:
		b = append(b, '{')
		for i, m := range v.Members {
			if i > 0 {
				b = append(b, ',')
			}
			quoted, _ := json.Marshal(m.Key)
			b = append(b, quoted...)
			b = append(b, ':')
			b = m.Value.appendJSON(b)
		}
		return append(b, '}')
	}
	return append(b, "null"...)
}

// cellString renders a value for a single CSV cell. Scalars render as
// their literal text, null as empty, and nested arrays/objects as
// compact JSON (stringified, not recursively flattened).
func (v Value) cellString() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return v.Number
	case KindString:
		return v.Str
	default:
		return v.JSON()
	}
}

// member returns the value for key and whether it exists.
func (v Value) member(key string) (Value, bool) {
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}
