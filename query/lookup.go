package query

import (
	"fmt"
	"strings"
)

// predicate is one parsed lookup: an attribute path, the comparator it
// selects, and the operand it compares against.
type predicate struct {
	path    []string
	tag     string
	cmp     comparator
	operand any
}

func (p predicate) matches(rec Record) (bool, error) {
	v, err := resolvePath(rec, p.path)
	if err != nil {
		return false, err
	}
	ok, err := p.cmp(v, p.operand)
	if err != nil {
		return false, fmt.Errorf("%s__%s: %w", strings.Join(p.path, "__"), p.tag, err)
	}
	return ok, nil
}

// parseLookup splits a keyword-style lookup key on "__". A trailing segment
// naming a registered comparator is extracted as the comparator tag;
// otherwise every segment belongs to the attribute path and the comparator
// defaults to eq.
func parseLookup(key string, operand any) (predicate, error) {
	segments := strings.Split(key, "__")
	for _, seg := range segments {
		if seg == "" {
			return predicate{}, fmt.Errorf("%w: %q", ErrInvalidLookup, key)
		}
	}

	tag := "eq"
	if _, ok := comparators[segments[len(segments)-1]]; ok {
		tag = segments[len(segments)-1]
		segments = segments[:len(segments)-1]
	}
	if len(segments) == 0 {
		return predicate{}, fmt.Errorf("%w: %q has no attribute path", ErrInvalidLookup, key)
	}

	return predicate{
		path:    segments,
		tag:     tag,
		cmp:     comparators[tag],
		operand: operand,
	}, nil
}

// SplitLookup splits a lookup key into its attribute path and comparator
// tag, without binding an operand. Exposed for callers that build
// predicates from text, such as the pipeline language.
func SplitLookup(key string) (path, tag string, err error) {
	p, err := parseLookup(key, nil)
	if err != nil {
		return "", "", err
	}
	return strings.Join(p.path, "__"), p.tag, nil
}

// parseOrderKey parses one OrderBy argument. A "-" prefix selects
// descending direction for that path alone.
func parseOrderKey(key string) (sortKey, error) {
	desc := false
	if strings.HasPrefix(key, "-") {
		desc = true
		key = key[1:]
	}
	segments := strings.Split(key, "__")
	for _, seg := range segments {
		if seg == "" {
			return sortKey{}, fmt.Errorf("%w: order key %q", ErrInvalidLookup, key)
		}
	}
	return sortKey{path: segments, desc: desc}, nil
}
