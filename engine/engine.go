// Package engine binds a parsed pipeline AST onto a lazy query chain and
// materializes the result.
package engine

import (
	"fmt"

	"github.com/objquery/oq/ast"
	"github.com/objquery/oq/query"
)

// Execute runs a full pipeline against the given root query and returns
// the materialized records. Recipe errors surface before any record is
// evaluated.
func Execute(q *ast.Query, src *query.Query) ([]query.Record, error) {
	current := src
	for _, op := range q.Ops {
		var err error
		current, err = execOp(op, current)
		if err != nil {
			return nil, err
		}
	}
	return current.List()
}

func execOp(op ast.Op, q *query.Query) (*query.Query, error) {
	switch o := op.(type) {
	case *ast.FilterOp:
		return chainLookups(q, o.Lookups, false)
	case *ast.ExcludeOp:
		return chainLookups(q, o.Lookups, true)
	case *ast.OrderByOp:
		return checked(q.OrderBy(o.Keys...))
	case *ast.ReverseOp:
		return q.Reverse(), nil
	case *ast.SliceOp:
		return execSlice(o, q)
	case *ast.AtOp:
		return execAt(o, q)
	case *ast.HeadOp:
		return q.Slice(0, o.N, 1), nil
	case *ast.TailOp:
		return execTail(o, q)
	case *ast.CountOp:
		return execCount(q)
	default:
		return nil, fmt.Errorf("unknown operation type %T", op)
	}
}

// chainLookups turns textual lookups into explicit predicates so the
// written order is preserved.
func chainLookups(q *query.Query, lookups []ast.Lookup, negate bool) (*query.Query, error) {
	preds := make([]query.Where, len(lookups))
	for i, l := range lookups {
		path, tag, err := query.SplitLookup(l.Key)
		if err != nil {
			return nil, err
		}
		preds[i] = query.Where{Path: path, Tag: tag, Value: l.Value.Value()}
	}
	if negate {
		return checked(q.ExcludeWhere(preds...))
	}
	return checked(q.FilterWhere(preds...))
}

func execSlice(o *ast.SliceOp, q *query.Query) (*query.Query, error) {
	stop := o.Stop
	if o.OpenStop {
		stop = query.End
	}
	return checked(q.Slice(o.Start, stop, o.Step))
}

// execAt materializes one record and re-wraps it so further ops compose.
func execAt(o *ast.AtOp, q *query.Query) (*query.Query, error) {
	rec, err := q.At(o.Index)
	if err != nil {
		return nil, fmt.Errorf("at: %w", err)
	}
	return query.New(rec), nil
}

func execTail(o *ast.TailOp, q *query.Query) (*query.Query, error) {
	if o.N == 0 {
		return q.Slice(0, 0, 1), nil
	}
	return q.Slice(-o.N, query.End, 1), nil
}

// execCount yields a single {"count": n} record, so a count can sit
// mid-pipeline like any other op.
func execCount(q *query.Query) (*query.Query, error) {
	n, err := q.Len()
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	return query.New(query.Record(map[string]any{"count": int64(n)})), nil
}

func checked(q *query.Query) (*query.Query, error) {
	return q, q.Err()
}
