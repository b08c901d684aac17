// Package ast defines the nodes of a parsed pipeline query: a record
// source followed by chained operations.
package ast

// Literal is a scalar operand in a lookup: number, string, bool, or null.
type Literal struct {
	// Kind: "int", "float", "string", "bool", "null"
	Kind  string
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

// Value returns the Go value the literal denotes.
func (l Literal) Value() any {
	switch l.Kind {
	case "int":
		return l.Int
	case "float":
		return l.Float
	case "string":
		return l.Str
	case "bool":
		return l.Bool
	default:
		return nil
	}
}

// Lookup is one keyword-style predicate: "age__ge=30".
type Lookup struct {
	Key   string
	Value Literal
}

// Op represents a single operation in the pipeline.
type Op interface {
	opNode()
}

// SourceOp represents the input file reference.
type SourceOp struct {
	Filename string
}

func (o *SourceOp) opNode() {}

// FilterOp keeps records matching all lookups.
type FilterOp struct {
	Lookups []Lookup
}

func (o *FilterOp) opNode() {}

// ExcludeOp drops records matching all lookups.
type ExcludeOp struct {
	Lookups []Lookup
}

func (o *ExcludeOp) opNode() {}

// OrderByOp sorts by the given keys; a "-" prefix on a key means
// descending.
type OrderByOp struct {
	Keys []string
}

func (o *OrderByOp) opNode() {}

// ReverseOp yields the sequence back-to-front.
type ReverseOp struct{}

func (o *ReverseOp) opNode() {}

// SliceOp takes a sub-sequence with Python slice semantics. Stop and step
// are optional in the syntax; OpenStop marks an omitted stop.
type SliceOp struct {
	Start    int
	Stop     int
	Step     int
	OpenStop bool
}

func (o *SliceOp) opNode() {}

// AtOp picks the record at one position.
type AtOp struct {
	Index int
}

func (o *AtOp) opNode() {}

// HeadOp keeps the first N records.
type HeadOp struct {
	N int
}

func (o *HeadOp) opNode() {}

// TailOp keeps the last N records.
type TailOp struct {
	N int
}

func (o *TailOp) opNode() {}

// CountOp yields a single {"count": n} record.
type CountOp struct{}

func (o *CountOp) opNode() {}

// Query represents a full parsed pipeline: source + operations.
type Query struct {
	Source *SourceOp
	Ops    []Op
}
