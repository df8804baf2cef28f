package ministore

import "reflect"

// EqualFunc reports whether next should be treated as unchanged from prev.
type EqualFunc func(prev, next any) bool

// ShallowEqual reports whether next is unchanged from prev using a
// single-level comparison.
//
// The rules are:
//   - Identical values are unchanged. Pointers, maps, channels and funcs are
//     identical when they share an address; slices when they share a backing
//     array and length; scalars when they are equal.
//   - If prev is not composite (a struct, map, slice, array, or a non-nil
//     pointer to one of those), the identity rule decides.
//   - Otherwise both values are treated as flat key/value mappings: struct
//     fields, map keys or slice indexes. They are unchanged only when they
//     have the same number of keys and every key holds identical values.
//
// Nested composites are never walked: a field holding a pointer or map is
// compared by reference. Struct and array values held inline are plain values
// in Go and compare field by field.
func ShallowEqual(prev, next any) bool {
	if prev == nil || next == nil {
		return prev == nil && next == nil
	}

	pv := reflect.ValueOf(prev)
	nv := reflect.ValueOf(next)
	if pv.Type() != nv.Type() {
		return false
	}

	if !isComposite(pv) {
		return identical(pv, nv)
	}

	if pv.Kind() == reflect.Pointer {
		if pv.Pointer() == nv.Pointer() {
			return true
		}
		if nv.IsNil() {
			return false
		}
		pv, nv = pv.Elem(), nv.Elem()
	}

	return sameEntries(pv, nv)
}

// isComposite reports whether v is compared key by key rather than by identity.
func isComposite(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		return true
	case reflect.Pointer:
		if v.IsNil() {
			return false
		}
		switch v.Elem().Kind() {
		case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
			return true
		}
	}
	return false
}

// sameEntries compares two values of the same composite type one level deep.
func sameEntries(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !identical(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true

	case reflect.Map:
		if a.Pointer() == b.Pointer() {
			return true
		}
		if a.Len() != b.Len() {
			return false
		}
		iter := a.MapRange()
		for iter.Next() {
			bv := b.MapIndex(iter.Key())
			if !bv.IsValid() || !identical(iter.Value(), bv) {
				return false
			}
		}
		return true

	case reflect.Slice, reflect.Array:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !identical(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	}

	return identical(a, b)
}

// identical is the per-value identity check used at the leaves of a shallow
// comparison.
func identical(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}

	switch a.Kind() {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return a.Float() == b.Float()
	case reflect.Complex64, reflect.Complex128:
		return a.Complex() == b.Complex()
	case reflect.String:
		return a.String() == b.String()
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Slice:
		return a.Pointer() == b.Pointer() && a.Len() == b.Len()
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return identical(a.Elem(), b.Elem())
	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if !identical(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !identical(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	}

	return false
}
