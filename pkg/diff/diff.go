// Package diff compares key/value snapshots, renders the comparison for display
// and produces RFC 6902 patches for the audit trail.
package diff

import (
	"encoding/json"
	"math"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// Compute returns the keys of candidate whose value differs from previous.
// A nested map is returned whole when any of its children differ.
func Compute(previous, candidate map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range candidate {
		if !Equal(previous[k], v) {
			out[k] = v
		}
	}
	return out
}

// IsEmpty reports whether the two snapshots are deeply equal.
func IsEmpty(previous, current map[string]any) bool {
	return Equal(previous, current)
}

// Equal is structural equality with two relaxations: numbers compare by value
// regardless of their Go type, and nil, "", empty slices and maps holding only
// empty values are all equal.
func Equal(a, b any) bool {
	ea, eb := isEmptyValue(a), isEmptyValue(b)
	if ea || eb {
		return ea && eb
	}

	if da, ok := toDecimal(a); ok {
		db, ok := toDecimal(b)
		return ok && da.Equal(db)
	}
	if _, ok := toDecimal(b); ok {
		return false
	}

	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case isStringMap(va) && isStringMap(vb):
		return mapsEqual(va, vb)
	case isList(va) && isList(vb):
		if va.Len() != vb.Len() {
			return false
		}
		for i := 0; i < va.Len(); i++ {
			if !Equal(va.Index(i).Interface(), vb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func mapsEqual(a, b reflect.Value) bool {
	for _, k := range a.MapKeys() {
		if !Equal(a.MapIndex(k).Interface(), mapValue(b, k.String())) {
			return false
		}
	}
	for _, k := range b.MapKeys() {
		if a.MapIndex(reflect.ValueOf(k.String()).Convert(a.Type().Key())).IsValid() {
			continue
		}
		if !isEmptyValue(b.MapIndex(k).Interface()) {
			return false
		}
	}
	return true
}

func mapValue(m reflect.Value, key string) any {
	v := m.MapIndex(reflect.ValueOf(key).Convert(m.Type().Key()))
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

func isStringMap(v reflect.Value) bool {
	return v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String
}

func isList(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		return rv.IsNil() || rv.Len() == 0
	case reflect.Map:
		// a map whose values are all empty carries no data
		iter := rv.MapRange()
		for iter.Next() {
			if !isEmptyValue(iter.Value().Interface()) {
				return false
			}
		}
		return true
	case reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int8:
		return decimal.NewFromInt(int64(n)), true
	case int16:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return decimal.NewFromUint64(uint64(n)), true
	case uint8:
		return decimal.NewFromUint64(uint64(n)), true
	case uint16:
		return decimal.NewFromUint64(uint64(n)), true
	case uint32:
		return decimal.NewFromUint64(uint64(n)), true
	case uint64:
		return decimal.NewFromUint64(n), true
	case float32:
		if !finite(float64(n)) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat32(n), true
	case float64:
		if !finite(n) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case decimal.Decimal:
		return n, true
	}
	return decimal.Decimal{}, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
