package usecase

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/rankpilot/rankd/internal/core/domain"
)

// decisionCacheKey derives a stable key from the structurally relevant subset
// of the request. Canonicalization sorts all map keys so construction order
// never changes the key.
func decisionCacheKey(req domain.RecommendRankRequest) string {
	key := map[string]any{
		"scenario":    string(req.Scenario),
		"task":        req.Task,
		"context":     req.Context,
		"constraints": req.Constraints,
	}
	var b strings.Builder
	b.Grow(256)
	writeCanonical(&b, reflect.ValueOf(key), make(map[uintptr]bool))
	return b.String()
}

// writeCanonical serializes a value as sorted-keys JSON-ish text. Values
// already visited through a pointer/map/slice serialize to null instead of
// recursing, so self-referential structures cannot loop.
func writeCanonical(b *strings.Builder, v reflect.Value, seen map[uintptr]bool) {
	if !v.IsValid() {
		b.WriteString("null")
		return
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		writeCanonical(b, v.Elem(), seen)
	case reflect.Pointer:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		ptr := v.Pointer()
		if seen[ptr] {
			b.WriteString("null")
			return
		}
		seen[ptr] = true
		writeCanonical(b, v.Elem(), seen)
		delete(seen, ptr)
	case reflect.Map:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		ptr := v.Pointer()
		if seen[ptr] {
			b.WriteString("null")
			return
		}
		seen[ptr] = true
		keys := make([]string, 0, v.Len())
		byKey := make(map[string]reflect.Value, v.Len())
		for _, k := range v.MapKeys() {
			name := fmt.Sprintf("%v", k.Interface())
			keys = append(keys, name)
			byKey[name] = v.MapIndex(k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, name := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(name))
			b.WriteByte(':')
			writeCanonical(b, byKey[name], seen)
		}
		b.WriteByte('}')
		delete(seen, ptr)
	case reflect.Slice:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		ptr := v.Pointer()
		if seen[ptr] {
			b.WriteString("null")
			return
		}
		seen[ptr] = true
		writeArray(b, v, seen)
		delete(seen, ptr)
	case reflect.Array:
		writeArray(b, v, seen)
	case reflect.Struct:
		t := v.Type()
		names := make([]string, 0, t.NumField())
		fields := make(map[string]reflect.Value, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			names = append(names, f.Name)
			fields[f.Name] = v.Field(i)
		}
		sort.Strings(names)
		b.WriteByte('{')
		for i, name := range names {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(name))
			b.WriteByte(':')
			writeCanonical(b, fields[name], seen)
		}
		b.WriteByte('}')
	case reflect.String:
		b.WriteString(strconv.Quote(v.String()))
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
	default:
		b.WriteString("null")
	}
}

func writeArray(b *strings.Builder, v reflect.Value, seen map[uintptr]bool) {
	b.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		writeCanonical(b, v.Index(i), seen)
	}
	b.WriteByte(']')
}
