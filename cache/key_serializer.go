package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// defaultKeySerializer implements KeySerializer using reflection-based serialization.
// Maps are written with sorted keys and structs with their exported fields, so
// two argument values that are deeply equal produce the same key.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey joins method and the serialized args with KeySeparator.
func (s *defaultKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	var b strings.Builder
	b.WriteString(method)
	for _, arg := range args {
		b.WriteString(KeySeparator)
		s.write(&b, arg)
	}
	return b.String()
}

func (s *defaultKeySerializer) serializeValue(v any) string {
	var b strings.Builder
	s.write(&b, v)
	return b.String()
}

func (s *defaultKeySerializer) write(b *strings.Builder, v any) {
	if v == nil {
		b.WriteString("nil")
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		fmt.Fprintf(b, "func:%p", v)
	case reflect.Chan:
		fmt.Fprintf(b, "chan:%p", v)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			b.WriteString("nil")
			return
		}
		s.write(b, rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			b.WriteString("slice:nil")
			return
		}
		s.writeList(b, "slice", rv)
	case reflect.Array:
		s.writeList(b, "array", rv)
	case reflect.Map:
		if rv.IsNil() {
			b.WriteString("map:nil")
			return
		}
		s.writeMap(b, rv)
	case reflect.Struct:
		s.writeStruct(b, rv)
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		fmt.Fprintf(b, "%v", v)
	default:
		b.WriteString(s.jsonFallback(v))
	}
}

func (s *defaultKeySerializer) writeList(b *strings.Builder, label string, rv reflect.Value) {
	n := rv.Len()
	b.WriteString(label)
	b.WriteString("[")
	b.WriteString(strconv.Itoa(n))
	b.WriteString("]:{")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		s.write(b, rv.Index(i).Interface())
	}
	b.WriteString("}")
}

func (s *defaultKeySerializer) writeMap(b *strings.Builder, rv reflect.Value) {
	type pair struct{ key, value string }

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{
			key:   s.serializeValue(iter.Key().Interface()),
			value: s.serializeValue(iter.Value().Interface()),
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	b.WriteString("map[")
	b.WriteString(strconv.Itoa(len(pairs)))
	b.WriteString("]:{")
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	b.WriteString("}")
}

func (s *defaultKeySerializer) writeStruct(b *strings.Builder, rv reflect.Value) {
	rt := rv.Type()
	b.WriteString("struct:{")
	first := true
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(field.Name)
		b.WriteByte(':')
		s.write(b, rv.Field(i).Interface())
	}
	b.WriteString("}")
}

// jsonFallback provides JSON serialization as a last resort
func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "fallback:" + reflect.TypeOf(v).String()
	}
	return "json:" + string(data)
}

// hashingKeySerializer digests keys that grow past a length limit.
type hashingKeySerializer struct {
	inner  KeySerializer
	maxLen int
}

// NewHashingKeySerializer wraps inner so that keys longer than maxLen keep
// their method prefix but replace the serialized args with an xxhash digest.
// The method prefix survives so prefix invalidation keeps working.
func NewHashingKeySerializer(inner KeySerializer, maxLen int) KeySerializer {
	if inner == nil {
		inner = NewDefaultKeySerializer()
	}
	return &hashingKeySerializer{inner: inner, maxLen: maxLen}
}

func (h *hashingKeySerializer) SerializeKey(method string, args ...any) string {
	key := h.inner.SerializeKey(method, args...)
	if h.maxLen <= 0 || len(key) <= h.maxLen {
		return key
	}
	return method + KeySeparator + "xxh:" + strconv.FormatUint(xxhash.Sum64String(key), 16)
}
