package query

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// comparator tests a resolved record value against a lookup operand.
type comparator func(have, want any) (bool, error)

// comparators is the fixed registry of lookup suffix tags.
var comparators = map[string]comparator{
	"eq":       cmpEqual,
	"exact":    cmpEqual,
	"in":       cmpIn,
	"contains": cmpContains,
	"gt":       ordering(func(c int) bool { return c > 0 }),
	"ge":       ordering(func(c int) bool { return c >= 0 }),
	"gte":      ordering(func(c int) bool { return c >= 0 }),
	"lt":       ordering(func(c int) bool { return c < 0 }),
	"le":       ordering(func(c int) bool { return c <= 0 }),
	"lte":      ordering(func(c int) bool { return c <= 0 }),
}

func comparatorFor(tag string) (comparator, error) {
	cmp, ok := comparators[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComparator, tag)
	}
	return cmp, nil
}

func cmpEqual(have, want any) (bool, error) {
	return equalValues(have, want), nil
}

func cmpIn(have, want any) (bool, error) {
	return member(want, have)
}

func cmpContains(have, want any) (bool, error) {
	return member(have, want)
}

func ordering(pass func(int) bool) comparator {
	return func(have, want any) (bool, error) {
		c, err := compareValues(have, want)
		if err != nil {
			return false, err
		}
		return pass(c), nil
	}
}

// equalValues is value equality with cross-numeric coercion, so an int
// record value equals a float operand.
func equalValues(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	if aok != bok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two values: numerics against numerics, strings
// against strings, time.Time against time.Time. Anything else cannot be
// ordered and reports a type mismatch.
func compareValues(a, b any) (int, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}

	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), nil
		}
	}

	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt), nil
		}
	}

	return 0, fmt.Errorf("%w: cannot compare %T with %T", ErrTypeMismatch, a, b)
}

// member reports whether item occurs in container. Containers are strings
// (substring match), slices and arrays (element equality), and maps (key
// equality).
func member(container, item any) (bool, error) {
	if cs, ok := container.(string); ok {
		is, ok := item.(string)
		if !ok {
			return false, fmt.Errorf("%w: %T is not a substring candidate for string", ErrTypeMismatch, item)
		}
		return strings.Contains(cs, is), nil
	}

	rv := reflect.ValueOf(container)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false, fmt.Errorf("%w: nil is not iterable", ErrTypeMismatch)
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if equalValues(rv.Index(i).Interface(), item) {
				return true, nil
			}
		}
		return false, nil
	case reflect.Map:
		for _, k := range rv.MapKeys() {
			if equalValues(k.Interface(), item) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: %T is not iterable", ErrTypeMismatch, container)
	}
}

// toFloat coerces any numeric kind to float64 for comparison.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
