package query

import (
	"fmt"
	"iter"
	"sort"
)

// cursor is one stage of a live materialization: a pull produces the next
// surviving record, end of stream, or the error that aborts the run.
type cursor interface {
	next() (Record, bool, error)
}

// op is one pending operation of a query recipe. Wrapping happens when a
// materialization starts; buffering ops delay their buffering until the
// first pull.
type op interface {
	wrap(in cursor) cursor
}

// open builds the cursor chain for one materialization. Query itself acts
// as a source so Union can drive whole pipelines in sequence.
func (q *Query) open() (cursor, error) {
	if q.err != nil {
		return nil, q.err
	}
	cur, err := q.src.open()
	if err != nil {
		return nil, err
	}
	for _, o := range q.ops {
		cur = o.wrap(cur)
	}
	return cur, nil
}

// Iterator drives one materialization, bufio.Scanner style:
//
//	it := q.Iter()
//	for it.Next() {
//		rec := it.Record()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	cur  cursor
	rec  Record
	err  error
	done bool
}

// Iter starts a fresh materialization. Each call re-reads the upstream
// from its start.
func (q *Query) Iter() *Iterator {
	cur, err := q.open()
	if err != nil {
		return &Iterator{err: err, done: true}
	}
	return &Iterator{cur: cur}
}

// Next advances to the next record. It returns false at the end of the
// sequence or on error; check Err afterwards.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	rec, ok, err := it.cur.next()
	if err != nil {
		it.err = err
		it.done = true
		return false
	}
	if !ok {
		it.done = true
		return false
	}
	it.rec = rec
	return true
}

// Record returns the record produced by the last successful Next.
func (it *Iterator) Record() Record {
	return it.rec
}

// Err returns the error that stopped the iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Records adapts a materialization to a range-over-func sequence. A
// per-record failure is yielded once, as the final element's error.
func (q *Query) Records() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		it := q.Iter()
		for it.Next() {
			if !yield(it.Record(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// List evaluates the whole query into a slice.
func (q *Query) List() ([]Record, error) {
	cur, err := q.open()
	if err != nil {
		return nil, err
	}
	return drain(cur)
}

// Len counts the records the query yields. O(n), except that a source with
// a known size and no pending operation answers directly.
func (q *Query) Len() (int, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(q.ops) == 0 {
		if s, ok := q.src.(sized); ok {
			if n, ok := s.size(); ok {
				return n, nil
			}
		}
	}
	cur, err := q.open()
	if err != nil {
		return 0, err
	}
	n := 0
	for {
		_, ok, err := cur.next()
		if err != nil {
			return 0, err
		}
		if !ok {
			return n, nil
		}
		n++
	}
}

// At materializes up to position i and returns that record. A negative i
// counts from the end and forces full materialization. Out of range is an
// error.
func (q *Query) At(i int) (Record, error) {
	if i < 0 {
		all, err := q.List()
		if err != nil {
			return nil, err
		}
		idx := len(all) + i
		if idx < 0 {
			return nil, fmt.Errorf("index %d out of range (%d records)", i, len(all))
		}
		return all[idx], nil
	}

	cur, err := q.open()
	if err != nil {
		return nil, err
	}
	for pos := 0; ; pos++ {
		rec, ok, err := cur.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("index %d out of range (%d records)", i, pos)
		}
		if pos == i {
			return rec, nil
		}
	}
}

func drain(cur cursor) ([]Record, error) {
	var out []Record
	for {
		rec, ok, err := cur.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, rec)
	}
}

// --- filter / exclude ---

type filterOp struct {
	preds  []predicate
	negate bool
}

func (o *filterOp) wrap(in cursor) cursor {
	return &filterCursor{in: in, preds: o.preds, negate: o.negate}
}

type filterCursor struct {
	in     cursor
	preds  []predicate
	negate bool
}

func (c *filterCursor) next() (Record, bool, error) {
	for {
		rec, ok, err := c.in.next()
		if err != nil || !ok {
			return nil, false, err
		}

		conjunction := true
		for _, p := range c.preds {
			match, err := p.matches(rec)
			if err != nil {
				return nil, false, err
			}
			if !match {
				conjunction = false
				break
			}
		}
		// Filter keeps a record matching all predicates; Exclude drops it.
		if conjunction != c.negate {
			return rec, true, nil
		}
	}
}

// --- annotate ---

type annotateOp struct {
	derivations []Derivation
}

func (o *annotateOp) wrap(in cursor) cursor {
	return &annotateCursor{in: in, derivations: o.derivations}
}

type annotateCursor struct {
	in          cursor
	derivations []Derivation
}

func (c *annotateCursor) next() (Record, bool, error) {
	rec, ok, err := c.in.next()
	if err != nil || !ok {
		return nil, false, err
	}
	for _, d := range c.derivations {
		v, err := d.fn(rec)
		if err != nil {
			return nil, false, fmt.Errorf("annotate %q: %w", d.name, err)
		}
		rec = &annotated{base: rec, name: d.name, value: v}
	}
	return rec, true, nil
}

// --- order_by ---

type sortKey struct {
	path []string
	desc bool
}

type orderOp struct {
	keys []sortKey
}

func (o *orderOp) wrap(in cursor) cursor {
	return &orderCursor{in: in, keys: o.keys}
}

type orderCursor struct {
	in     cursor
	keys   []sortKey
	buf    []Record
	pos    int
	loaded bool
}

func (c *orderCursor) next() (Record, bool, error) {
	if !c.loaded {
		if err := c.load(); err != nil {
			return nil, false, err
		}
	}
	if c.pos >= len(c.buf) {
		return nil, false, nil
	}
	rec := c.buf[c.pos]
	c.pos++
	return rec, true, nil
}

// load buffers the upstream, resolves every sort key up front, and sorts
// stably. Any resolution or comparison failure aborts the whole sort; a
// partially sorted sequence is not a valid result.
func (c *orderCursor) load() error {
	c.loaded = true
	records, err := drain(c.in)
	if err != nil {
		return err
	}

	keyVals := make([][]any, len(records))
	for i, rec := range records {
		vals := make([]any, len(c.keys))
		for k, key := range c.keys {
			v, err := resolvePath(rec, key.path)
			if err != nil {
				return fmt.Errorf("order_by: %w", err)
			}
			vals[k] = v
		}
		keyVals[i] = vals
	}

	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	sort.SliceStable(idx, func(a, b int) bool {
		if sortErr != nil {
			return false
		}
		for k, key := range c.keys {
			cmp, err := compareValues(keyVals[idx[a]][k], keyVals[idx[b]][k])
			if err != nil {
				sortErr = fmt.Errorf("order_by: %w", err)
				return false
			}
			if cmp != 0 {
				if key.desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return false
	})
	if sortErr != nil {
		return sortErr
	}

	c.buf = make([]Record, len(records))
	for i, j := range idx {
		c.buf[i] = records[j]
	}
	return nil
}

// --- reverse ---

type reverseOp struct{}

func (o *reverseOp) wrap(in cursor) cursor {
	return &reverseCursor{in: in}
}

type reverseCursor struct {
	in     cursor
	buf    []Record
	pos    int
	loaded bool
}

func (c *reverseCursor) next() (Record, bool, error) {
	if !c.loaded {
		c.loaded = true
		records, err := drain(c.in)
		if err != nil {
			return nil, false, err
		}
		c.buf = records
		c.pos = len(records) - 1
	}
	if c.pos < 0 {
		return nil, false, nil
	}
	rec := c.buf[c.pos]
	c.pos--
	return rec, true, nil
}

// --- slice ---

type sliceOp struct {
	start, stop, step int
}

func (o *sliceOp) wrap(in cursor) cursor {
	if o.step > 0 && o.start >= 0 && (o.stop >= 0 || o.stop == End) {
		return &streamSliceCursor{in: in, start: o.start, stop: o.stop, step: o.step}
	}
	return &bufferSliceCursor{in: in, start: o.start, stop: o.stop, step: o.step}
}

// streamSliceCursor handles forward slices with non-negative bounds
// without buffering. It stops pulling the upstream once the stop bound is
// reached.
type streamSliceCursor struct {
	in                cursor
	start, stop, step int
	pos               int
	done              bool
}

func (c *streamSliceCursor) next() (Record, bool, error) {
	if c.done {
		return nil, false, nil
	}
	for {
		if c.stop != End && c.pos >= c.stop {
			c.done = true
			return nil, false, nil
		}
		rec, ok, err := c.in.next()
		if err != nil || !ok {
			c.done = true
			return nil, false, err
		}
		i := c.pos
		c.pos++
		if i >= c.start && (i-c.start)%c.step == 0 {
			return rec, true, nil
		}
	}
}

// bufferSliceCursor handles negative bounds and backward steps by
// buffering the upstream on first pull.
type bufferSliceCursor struct {
	in                cursor
	start, stop, step int
	buf               []Record
	pos, limit        int
	loaded            bool
}

func (c *bufferSliceCursor) next() (Record, bool, error) {
	if !c.loaded {
		c.loaded = true
		records, err := drain(c.in)
		if err != nil {
			return nil, false, err
		}
		c.buf = records
		c.pos, c.limit = sliceBounds(c.start, c.stop, c.step, len(records))
	}
	if c.step > 0 && c.pos >= c.limit {
		return nil, false, nil
	}
	if c.step < 0 && c.pos <= c.limit {
		return nil, false, nil
	}
	rec := c.buf[c.pos]
	c.pos += c.step
	return rec, true, nil
}

// sliceBounds normalizes slice bounds over a sequence of length n, with
// Python semantics: negative indices count from the end, End is the open
// bound in the walking direction. It returns the first index and the
// exclusive limit.
func sliceBounds(start, stop, step, n int) (first, limit int) {
	if step > 0 {
		if start == End || start > n {
			start = n
		} else if start < 0 {
			start += n
			if start < 0 {
				start = 0
			}
		}
		if stop == End || stop > n {
			stop = n
		} else if stop < 0 {
			stop += n
			if stop < 0 {
				stop = 0
			}
		}
		return start, stop
	}

	if start == End || start > n-1 {
		start = n - 1
	} else if start < 0 {
		start += n
		if start < 0 {
			return -1, -1
		}
	}
	if stop == End {
		stop = -1
	} else if stop < 0 {
		stop += n
		if stop < -1 {
			stop = -1
		}
	} else if stop > n-1 {
		stop = n - 1
	}
	return start, stop
}
