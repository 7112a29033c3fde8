package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/buger/jsonparser"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Member is one key/value pair of an object, kept in document order.
type Member struct {
	Key   string
	Value *Value
}

// Value is a decoded JSON value. Unlike map[string]any it keeps object
// members in document order, which the cart search relies on to emit items
// in page order.
type Value struct {
	Kind    Kind
	Bool    bool
	Num     float64
	Str     string
	Elems   []*Value
	Members []Member
}

var errInvalidJSON = errors.New("extract: invalid JSON")

// Parse decodes a JSON document into a Value tree. The input must be a
// complete, strictly valid JSON value; state blobs captured by regex are
// often truncated and must be rejected rather than half-read.
func Parse(data []byte) (*Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		return nil, errInvalidJSON
	}
	raw, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("extract: locate root: %w", err)
	}
	return build(raw, dataType)
}

func build(raw []byte, dataType jsonparser.ValueType) (*Value, error) {
	switch dataType {
	case jsonparser.Object:
		v := &Value{Kind: KindObject}
		index := make(map[string]int)
		err := jsonparser.ObjectEach(raw, func(key, val []byte, vt jsonparser.ValueType, _ int) error {
			child, err := build(val, vt)
			if err != nil {
				return err
			}
			v.set(index, string(key), child)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("extract: object: %w", err)
		}
		return v, nil

	case jsonparser.Array:
		v := &Value{Kind: KindArray, Elems: []*Value{}}
		var inner error
		_, err := jsonparser.ArrayEach(raw, func(val []byte, vt jsonparser.ValueType, _ int, err error) {
			if inner != nil {
				return
			}
			if err != nil {
				inner = err
				return
			}
			child, err := build(val, vt)
			if err != nil {
				inner = err
				return
			}
			v.Elems = append(v.Elems, child)
		})
		if err == nil {
			err = inner
		}
		if err != nil {
			return nil, fmt.Errorf("extract: array: %w", err)
		}
		return v, nil

	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			// jsonparser rejects lone surrogate escapes; encoding/json
			// decodes them as U+FFFD.
			if err := json.Unmarshal(quote(raw), &s); err != nil {
				return nil, fmt.Errorf("extract: string: %w", err)
			}
		}
		return &Value{Kind: KindString, Str: s}, nil

	case jsonparser.Number:
		f, err := jsonparser.ParseFloat(raw)
		if err != nil {
			// Out-of-range literals become ±Inf (or 0 on underflow).
			f, err = strconv.ParseFloat(string(raw), 64)
			if err != nil && !errors.Is(err, strconv.ErrRange) {
				return nil, fmt.Errorf("extract: number: %w", err)
			}
		}
		return &Value{Kind: KindNumber, Num: f}, nil

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return nil, fmt.Errorf("extract: bool: %w", err)
		}
		return &Value{Kind: KindBool, Bool: b}, nil

	case jsonparser.Null:
		return &Value{Kind: KindNull}, nil

	default:
		return nil, fmt.Errorf("extract: unexpected value type %s", dataType)
	}
}

// set stores a member. A repeated key keeps its first position and takes the
// last value, matching how browsers parse duplicate keys. index maps keys to
// member positions for the object being built.
func (v *Value) set(index map[string]int, key string, child *Value) {
	if i, ok := index[key]; ok {
		v.Members[i].Value = child
		return
	}
	index[key] = len(v.Members)
	v.Members = append(v.Members, Member{Key: key, Value: child})
}

func quote(raw []byte) []byte {
	b := make([]byte, 0, len(raw)+2)
	b = append(b, '"')
	b = append(b, raw...)
	return append(b, '"')
}

// Get returns the member stored under key. It is false for non-objects.
func (v *Value) Get(key string) (*Value, bool) {
	if v == nil || v.Kind != KindObject {
		return nil, false
	}
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// IsContainer reports whether v is an object or an array.
func (v *Value) IsContainer() bool {
	return v != nil && (v.Kind == KindObject || v.Kind == KindArray)
}

// Truthy applies JavaScript truthiness: empty strings, zero, NaN, false and
// null are falsy; every object and array is truthy.
func (v *Value) Truthy() bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num != 0 && !math.IsNaN(v.Num)
	case KindString:
		return v.Str != ""
	case KindArray, KindObject:
		return true
	default:
		return false
	}
}

// Text renders a scalar the way JavaScript's String() would. It is false for
// null and for containers.
func (v *Value) Text() (string, bool) {
	if v == nil {
		return "", false
	}
	switch v.Kind {
	case KindString:
		return v.Str, true
	case KindNumber:
		return formatNumber(v.Num), true
	case KindBool:
		return strconv.FormatBool(v.Bool), true
	default:
		return "", false
	}
}

func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
