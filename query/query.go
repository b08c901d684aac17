// Package query implements a lazy, chainable query engine over in-memory
// collections of arbitrary records, in the manner of Django querysets.
// Chain calls only build a recipe; no record is touched until a
// materializing call (Iter, List, Len, At) pulls results through it.
package query

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Lookups carries keyword-style predicates: each key is an attribute path
// with an optional trailing comparator tag ("age__gte"), each value the
// operand. Keys are evaluated in sorted order; use FilterWhere when the
// evaluation order matters.
type Lookups map[string]any

// Where is an explicit predicate: no suffix detection, the comparator tag
// is stated outright. An unknown tag is a recipe error.
type Where struct {
	Path  string
	Tag   string
	Value any
}

// ComputeFunc derives a value from a record. It runs once per record at
// materialization time; an error aborts that materialization.
type ComputeFunc func(rec Record) (any, error)

// Derivation names a computed attribute for Annotate.
type Derivation struct {
	name string
	fn   ComputeFunc
}

// Derive builds a Derivation for Annotate.
func Derive(name string, fn ComputeFunc) Derivation {
	return Derivation{name: name, fn: fn}
}

// End is the open slice bound: Slice(2, End, 1) takes everything from
// index 2 on.
const End = math.MaxInt

// Query is an immutable lazy query node: a reference to an upstream source
// plus an ordered list of pending operations. Every chain call returns a
// new node; the receiver stays independently re-iterable. Nodes are safe
// to share across independent iterations.
type Query struct {
	src source
	ops []op
	err error
}

// New builds a query over the given records.
func New(records ...Record) *Query {
	return &Query{src: sliceSource(records)}
}

// FromSlice builds a query over a concrete slice of any element type.
func FromSlice[T any](records []T) *Query {
	boxed := make([]Record, len(records))
	for i, r := range records {
		boxed[i] = r
	}
	return &Query{src: sliceSource(boxed)}
}

// FromFunc builds a query over a one-shot pull function. next returns false
// when the stream ends. The stream can be materialized once; a second
// materialization fails with ErrExhaustedSource.
func FromFunc(next func() (Record, bool)) *Query {
	return &Query{src: &funcSource{next: next}}
}

// Err reports the recipe error recorded on this node, if any. Malformed
// lookups are detected by the chain call itself; the error sticks to the
// derived node and every materialization of it.
func (q *Query) Err() error {
	return q.err
}

func (q *Query) with(o op) *Query {
	// Full slice expression: parent and child never share append room.
	return &Query{src: q.src, ops: append(q.ops[:len(q.ops):len(q.ops)], o), err: q.err}
}

func (q *Query) poison(err error) *Query {
	if q.err != nil {
		return q
	}
	return &Query{src: q.src, ops: q.ops, err: err}
}

// Filter keeps records matching every given lookup.
func (q *Query) Filter(lookups Lookups) *Query {
	preds, err := parseLookups(lookups)
	if err != nil {
		return q.poison(err)
	}
	return q.with(&filterOp{preds: preds})
}

// Exclude drops records matching every given lookup: the negation of
// Filter's combined predicate, not per-predicate negation. A record
// failing any single lookup passes through.
func (q *Query) Exclude(lookups Lookups) *Query {
	preds, err := parseLookups(lookups)
	if err != nil {
		return q.poison(err)
	}
	if len(preds) == 0 {
		// Nothing to match means nothing to drop.
		return q.All()
	}
	return q.with(&filterOp{preds: preds, negate: true})
}

// FilterWhere is Filter with explicit predicates, evaluated in argument
// order.
func (q *Query) FilterWhere(preds ...Where) *Query {
	parsed, err := parseWheres(preds)
	if err != nil {
		return q.poison(err)
	}
	return q.with(&filterOp{preds: parsed})
}

// ExcludeWhere is Exclude with explicit predicates, evaluated in argument
// order.
func (q *Query) ExcludeWhere(preds ...Where) *Query {
	parsed, err := parseWheres(preds)
	if err != nil {
		return q.poison(err)
	}
	if len(parsed) == 0 {
		return q.All()
	}
	return q.with(&filterOp{preds: parsed, negate: true})
}

// Annotate attaches named derived values. Each record materialized
// downstream exposes its original attributes plus the derivations; the
// underlying record is never modified. Derivations run in argument order,
// so later ones see earlier results. Nothing runs until materialization.
func (q *Query) Annotate(derivations ...Derivation) *Query {
	for _, d := range derivations {
		if d.name == "" || d.fn == nil {
			return q.poison(fmt.Errorf("%w: annotation needs a name and a function", ErrInvalidLookup))
		}
	}
	return q.with(&annotateOp{derivations: derivations})
}

// OrderBy records a full ordering over the sequence as filtered and
// annotated so far. A "-" prefix makes that key descending. Later keys
// break ties of earlier ones; the sort is stable. Sorting happens at
// materialization and buffers the whole sequence.
func (q *Query) OrderBy(keys ...string) *Query {
	if len(keys) == 0 {
		return q.poison(fmt.Errorf("%w: order_by requires at least one key", ErrInvalidLookup))
	}
	parsed := make([]sortKey, len(keys))
	for i, k := range keys {
		sk, err := parseOrderKey(k)
		if err != nil {
			return q.poison(err)
		}
		parsed[i] = sk
	}
	return q.with(&orderOp{keys: parsed})
}

// Reverse yields the sequence back-to-front, as already filtered and
// annotated. Like OrderBy it buffers the whole sequence at
// materialization.
func (q *Query) Reverse() *Query {
	return q.with(&reverseOp{})
}

// Slice returns a lazy view of a sub-sequence, with Python slice
// semantics: negative start or stop count from the end, End leaves the
// stop open, a negative step walks backward. Forward slices with
// non-negative bounds stream; the rest buffer at materialization.
func (q *Query) Slice(start, stop, step int) *Query {
	if step == 0 {
		return q.poison(fmt.Errorf("slice step cannot be zero"))
	}
	return q.with(&sliceOp{start: start, stop: stop, step: step})
}

// Union concatenates this query's results with other's, left side first,
// without de-duplication. Order across the two sides is unspecified beyond
// that; chain OrderBy after Union when a specific order is required.
func (q *Query) Union(other *Query) *Query {
	err := q.err
	if err == nil {
		err = other.err
	}
	return &Query{src: &concatSource{left: q, right: other}, err: err}
}

// Or is Union under its operator name.
func (q *Query) Or(other *Query) *Query {
	return q.Union(other)
}

// All returns a node with an identical, fully independent operation list.
// Chaining never mutates the receiver anyway; All marks a branch point for
// readers.
func (q *Query) All() *Query {
	return &Query{src: q.src, ops: q.ops[:len(q.ops):len(q.ops)], err: q.err}
}

func parseLookups(lookups Lookups) ([]predicate, error) {
	keys := make([]string, 0, len(lookups))
	for k := range lookups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]predicate, len(keys))
	for i, k := range keys {
		p, err := parseLookup(k, lookups[k])
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	return preds, nil
}

func parseWheres(wheres []Where) ([]predicate, error) {
	preds := make([]predicate, len(wheres))
	for i, w := range wheres {
		cmp, err := comparatorFor(w.Tag)
		if err != nil {
			return nil, err
		}
		// The whole path is attribute segments; no suffix detection here.
		segments := strings.Split(w.Path, "__")
		for _, seg := range segments {
			if seg == "" {
				return nil, fmt.Errorf("%w: %q", ErrInvalidLookup, w.Path)
			}
		}
		preds[i] = predicate{path: segments, tag: w.Tag, cmp: cmp, operand: w.Value}
	}
	return preds, nil
}
