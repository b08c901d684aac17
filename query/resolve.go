package query

import (
	"fmt"
	"reflect"
	"strings"
)

// Record is one element of a queried collection. The engine assumes no
// schema; any value works as long as the attribute paths used against it
// resolve.
type Record = any

// Fielder is the capability interface for named-field lookup. Records
// implementing it bypass reflection; the second return reports whether the
// field exists.
type Fielder interface {
	Field(name string) (any, bool)
}

// Attr resolves a "__"-separated attribute path against a record. It walks
// the segments left to right, dispatching each over the record
// representation: Fielder implementations, string-keyed maps, and exported
// struct fields (exact name first, then case-insensitive so "age" finds
// "Age"). A missing segment returns an error wrapping ErrAttrNotFound.
func Attr(rec Record, path string) (any, error) {
	return resolvePath(rec, strings.Split(path, "__"))
}

func resolvePath(rec Record, path []string) (any, error) {
	current := rec
	for _, seg := range path {
		v, err := resolveSegment(current, seg)
		if err != nil {
			return nil, fmt.Errorf("%w: %q on %v", ErrAttrNotFound, strings.Join(path, "__"), rec)
		}
		current = v
	}
	return current, nil
}

func resolveSegment(rec Record, name string) (any, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: %q on nil record", ErrAttrNotFound, name)
	}

	if f, ok := rec.(Fielder); ok {
		if v, ok := f.Field(name); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrAttrNotFound, name)
	}

	rv := reflect.ValueOf(rec)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: %q on nil record", ErrAttrNotFound, name)
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: %q (map keys are not strings)", ErrAttrNotFound, name)
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrAttrNotFound, name)
		}
		return v.Interface(), nil

	case reflect.Struct:
		f := rv.FieldByName(name)
		if !f.IsValid() {
			f = rv.FieldByNameFunc(func(s string) bool { return strings.EqualFold(s, name) })
		}
		if !f.IsValid() || !f.CanInterface() {
			return nil, fmt.Errorf("%w: %q", ErrAttrNotFound, name)
		}
		return f.Interface(), nil

	default:
		return nil, fmt.Errorf("%w: %q on %T", ErrAttrNotFound, name, rec)
	}
}

// annotated is the view produced by Annotate: the base record plus one
// derived attribute. The derived name shadows the base; everything else
// delegates. Stacking one wrapper per derivation keeps the base record
// untouched.
type annotated struct {
	base  Record
	name  string
	value any
}

func (a *annotated) Field(name string) (any, bool) {
	if name == a.name {
		return a.value, true
	}
	v, err := resolveSegment(a.base, name)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Unwrap returns the record underneath all annotation wrappers.
func Unwrap(rec Record) Record {
	for {
		a, ok := rec.(*annotated)
		if !ok {
			return rec
		}
		rec = a.base
	}
}

func (a *annotated) String() string {
	return fmt.Sprintf("%v{%s: %v}", a.base, a.name, a.value)
}
