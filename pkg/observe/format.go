package observe

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const formatMaxDepth = 4

// FormatValue renders v for logging, truncated to at most limit bytes
// (plus a trailing "..."). Nested containers deeper than a few levels are
// elided. A limit <= 0 means DefaultFormatLimit.
func FormatValue(v any, limit int) string {
	if limit <= 0 {
		limit = DefaultFormatLimit
	}
	f := &formatter{limit: limit}
	f.value(reflect.ValueOf(v), 0)
	return f.String()
}

// formatter stops writing once the limit is reached.
type formatter struct {
	strings.Builder
	limit     int
	truncated bool
}

func (f *formatter) full() bool {
	return f.truncated
}

func (f *formatter) write(s string) {
	if f.truncated {
		return
	}
	room := f.limit - f.Len()
	if len(s) <= room {
		f.WriteString(s)
		return
	}
	cut := room
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	f.WriteString(s[:cut])
	f.WriteString("...")
	f.truncated = true
}

func (f *formatter) value(v reflect.Value, depth int) {
	if f.full() {
		return
	}
	if !v.IsValid() {
		f.write("nil")
		return
	}

	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case error:
			if v.Kind() == reflect.Pointer && v.IsNil() {
				f.write("nil")
				return
			}
			f.write(x.Error())
			return
		case fmt.Stringer:
			if v.Kind() == reflect.Pointer && v.IsNil() {
				f.write("nil")
				return
			}
			f.write(x.String())
			return
		}
	}

	switch v.Kind() {
	case reflect.String:
		f.write(strconv.Quote(v.String()))
	case reflect.Bool:
		f.write(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f.write(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		f.write(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32:
		f.write(strconv.FormatFloat(v.Float(), 'g', -1, 32))
	case reflect.Float64:
		f.write(strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case reflect.Interface:
		if v.IsNil() {
			f.write("nil")
			return
		}
		f.value(v.Elem(), depth)
	case reflect.Pointer:
		if v.IsNil() {
			f.write("nil")
			return
		}
		f.write("&")
		f.value(v.Elem(), depth)
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			f.write("nil")
			return
		}
		if depth >= formatMaxDepth {
			f.write("[...]")
			return
		}
		f.write("[")
		for i := 0; i < v.Len() && !f.full(); i++ {
			if i > 0 {
				f.write(", ")
			}
			f.value(v.Index(i), depth+1)
		}
		f.write("]")
	case reflect.Map:
		if v.IsNil() {
			f.write("nil")
			return
		}
		if depth >= formatMaxDepth {
			f.write("map[...]")
			return
		}
		// Sorted by formatted key so output is stable.
		type entry struct{ key, val reflect.Value }
		entries := make([]entry, 0, v.Len())
		keys := make(map[int]string, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			kf := &formatter{limit: f.limit}
			kf.value(iter.Key(), depth+1)
			keys[len(entries)] = kf.String()
			entries = append(entries, entry{iter.Key(), iter.Value()})
		}
		order := make([]int, len(entries))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool { return keys[order[a]] < keys[order[b]] })

		f.write("map[")
		for i, idx := range order {
			if f.full() {
				break
			}
			if i > 0 {
				f.write(", ")
			}
			f.write(keys[idx])
			f.write(": ")
			f.value(entries[idx].val, depth+1)
		}
		f.write("]")
	case reflect.Struct:
		if depth >= formatMaxDepth {
			f.write(v.Type().Name() + "{...}")
			return
		}
		t := v.Type()
		f.write(t.Name() + "{")
		for i := 0; i < v.NumField() && !f.full(); i++ {
			if i > 0 {
				f.write(", ")
			}
			f.write(t.Field(i).Name + ": ")
			f.value(v.Field(i), depth+1)
		}
		f.write("}")
	case reflect.Func:
		if v.IsNil() {
			f.write("nil")
			return
		}
		f.write("func")
	case reflect.Chan:
		f.write("chan " + v.Type().Elem().String())
	default:
		f.write(v.Type().String())
	}
}
