package query

// source produces a fresh cursor per materialization. Whether a second
// open succeeds is a property of the supplied source: slices replay,
// one-shot pull functions do not.
type source interface {
	open() (cursor, error)
}

// sized is the optional fast-length capability used by Len when no
// operation is pending.
type sized interface {
	size() (int, bool)
}

type sliceSource []Record

func (s sliceSource) open() (cursor, error) {
	return &sliceCursor{records: s}, nil
}

func (s sliceSource) size() (int, bool) {
	return len(s), true
}

type sliceCursor struct {
	records []Record
	pos     int
}

func (c *sliceCursor) next() (Record, bool, error) {
	if c.pos >= len(c.records) {
		return nil, false, nil
	}
	rec := c.records[c.pos]
	c.pos++
	return rec, true, nil
}

// funcSource wraps a caller-supplied pull function. It can be opened once.
type funcSource struct {
	next     func() (Record, bool)
	consumed bool
}

func (s *funcSource) open() (cursor, error) {
	if s.consumed {
		return nil, ErrExhaustedSource
	}
	s.consumed = true
	return &funcCursor{pull: s.next}, nil
}

type funcCursor struct {
	pull func() (Record, bool)
	done bool
}

func (c *funcCursor) next() (Record, bool, error) {
	if c.done {
		return nil, false, nil
	}
	rec, ok := c.pull()
	if !ok {
		c.done = true
		return nil, false, nil
	}
	return rec, true, nil
}

// concatSource drives two whole query pipelines in sequence: the upstream
// of a Union node.
type concatSource struct {
	left  *Query
	right *Query
}

func (s *concatSource) open() (cursor, error) {
	return &concatCursor{pending: []*Query{s.left, s.right}}, nil
}

type concatCursor struct {
	pending []*Query
	current cursor
}

func (c *concatCursor) next() (Record, bool, error) {
	for {
		if c.current == nil {
			if len(c.pending) == 0 {
				return nil, false, nil
			}
			cur, err := c.pending[0].open()
			if err != nil {
				return nil, false, err
			}
			c.pending = c.pending[1:]
			c.current = cur
		}
		rec, ok, err := c.current.next()
		if err != nil {
			return nil, false, err
		}
		if ok {
			return rec, true, nil
		}
		c.current = nil
	}
}
