package query

import (
	"errors"
	"reflect"
	"testing"
)

func intRecords(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = map[string]any{"n": i}
	}
	return out
}

func nums(t *testing.T, q *Query) []int {
	t.Helper()
	records, err := q.List()
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	out := make([]int, len(records))
	for i, rec := range records {
		v, err := Attr(rec, "n")
		if err != nil {
			t.Fatalf("resolving n: %v", err)
		}
		out[i] = v.(int)
	}
	return out
}

func TestIterator(t *testing.T) {
	it := New(intRecords(3)...).Iter()
	var got []int
	for it.Next() {
		v, _ := Attr(it.Record(), "n")
		got = append(got, v.(int))
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	if !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("expected [0 1 2], got %v", got)
	}
}

func TestIterationRestartable(t *testing.T) {
	q := New(intRecords(4)...).Filter(Lookups{"n__gt": 0})
	first := nums(t, q)
	second := nums(t, q)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-iteration differs: %v vs %v", first, second)
	}
}

func TestRecordsSeq(t *testing.T) {
	var got []int
	for rec, err := range New(intRecords(3)...).Records() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v, _ := Attr(rec, "n")
		got = append(got, v.(int))
	}
	if !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("expected [0 1 2], got %v", got)
	}
}

func TestRecordsSeqError(t *testing.T) {
	q := New(intRecords(3)...).Filter(Lookups{"missing": 1})
	var last error
	for _, err := range q.Records() {
		last = err
	}
	if !errors.Is(last, ErrAttrNotFound) {
		t.Errorf("expected ErrAttrNotFound from sequence, got %v", last)
	}
}

func TestLen(t *testing.T) {
	n, err := New(intRecords(10)...).Len()
	if err != nil {
		t.Fatalf("len error: %v", err)
	}
	if n != 10 {
		t.Errorf("expected 10, got %d", n)
	}

	n, err = New(intRecords(10)...).Filter(Lookups{"n__lt": 4}).Len()
	if err != nil {
		t.Fatalf("len error: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4, got %d", n)
	}
}

func TestAt(t *testing.T) {
	q := New(intRecords(10)...)
	all, err := q.List()
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	for i := range all {
		rec, err := q.At(i)
		if err != nil {
			t.Fatalf("At(%d): %v", i, err)
		}
		if !reflect.DeepEqual(rec, all[i]) {
			t.Errorf("At(%d) differs from List()[%d]", i, i)
		}
	}

	rec, err := q.At(-1)
	if err != nil {
		t.Fatalf("At(-1): %v", err)
	}
	if v, _ := Attr(rec, "n"); v != 9 {
		t.Errorf("expected last record, got %v", v)
	}

	if _, err := q.At(10); err == nil {
		t.Error("expected out of range error for At(10)")
	}
	if _, err := q.At(-11); err == nil {
		t.Error("expected out of range error for At(-11)")
	}
}

func TestAtStopsEarly(t *testing.T) {
	// Positive indexing only pulls up to the requested position.
	pulls := 0
	src := countingSource(10, &pulls)
	if _, err := FromFunc(src).At(2); err != nil {
		t.Fatalf("At(2): %v", err)
	}
	if pulls != 3 {
		t.Errorf("expected 3 pulls, got %d", pulls)
	}
}

func countingSource(n int, pulls *int) func() (Record, bool) {
	i := 0
	return func() (Record, bool) {
		if i >= n {
			return nil, false
		}
		*pulls++
		rec := map[string]any{"n": i}
		i++
		return rec, true
	}
}

func TestSliceEqualsEagerSlice(t *testing.T) {
	q := New(intRecords(10)...)
	if got := nums(t, q.Slice(2, 7, 1)); !reflect.DeepEqual(got, []int{2, 3, 4, 5, 6}) {
		t.Errorf("Slice(2,7,1): got %v", got)
	}
	if got := nums(t, q.Slice(0, End, 3)); !reflect.DeepEqual(got, []int{0, 3, 6, 9}) {
		t.Errorf("Slice(0,End,3): got %v", got)
	}
	if got := nums(t, q.Slice(-3, End, 1)); !reflect.DeepEqual(got, []int{7, 8, 9}) {
		t.Errorf("Slice(-3,End,1): got %v", got)
	}
	if got := nums(t, q.Slice(0, -8, 1)); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("Slice(0,-8,1): got %v", got)
	}
	if got := nums(t, q.Slice(5, 0, -1)); !reflect.DeepEqual(got, []int{5, 4, 3, 2, 1}) {
		t.Errorf("Slice(5,0,-1): got %v", got)
	}
	if got := nums(t, q.Slice(End, End, -1)); !reflect.DeepEqual(got, []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}) {
		t.Errorf("Slice(End,End,-1): got %v", got)
	}
	if got := nums(t, q.Slice(3, 3, 1)); len(got) != 0 {
		t.Errorf("Slice(3,3,1): expected empty, got %v", got)
	}
	if got := nums(t, q.Slice(20, End, 1)); len(got) != 0 {
		t.Errorf("Slice(20,End,1): expected empty, got %v", got)
	}
}

func TestSliceIsLazyNode(t *testing.T) {
	pulls := 0
	q := FromFunc(countingSource(10, &pulls)).Slice(0, 3, 1)
	if pulls != 0 {
		t.Fatalf("slice construction pulled %d records", pulls)
	}
	got := nums(t, q)
	if !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Fatalf("unexpected result: %v", got)
	}
	if pulls != 3 {
		t.Errorf("forward slice should bound upstream pulls to 3, got %d", pulls)
	}
}

func TestSliceZeroStep(t *testing.T) {
	q := New(intRecords(3)...).Slice(0, 1, 0)
	if q.Err() == nil {
		t.Fatal("expected recipe error for zero step")
	}
}

func TestOrderBy(t *testing.T) {
	q := New(people()...).OrderBy("age")
	got := names(t, q)
	want := []string{"Alice", "Dave", "Carol", "Frank", "Eve", "Bob"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestOrderByDescending(t *testing.T) {
	q := New(people()...).OrderBy("-age")
	got := names(t, q)
	want := []string{"Bob", "Eve", "Carol", "Frank", "Dave", "Alice"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestOrderByStability(t *testing.T) {
	// Carol and Frank tie on age and must keep source order, both ways.
	asc := names(t, New(people()...).OrderBy("age"))
	if asc[2] != "Carol" || asc[3] != "Frank" {
		t.Errorf("ascending sort broke tie order: %v", asc)
	}
	desc := names(t, New(people()...).OrderBy("-age"))
	if desc[2] != "Carol" || desc[3] != "Frank" {
		t.Errorf("descending sort broke tie order: %v", desc)
	}
}

func TestOrderByPerKeyDirection(t *testing.T) {
	// Descending sex puts males first; age ascends within each sex.
	q := New(
		map[string]any{"age": 24, "sex": "female"},
		map[string]any{"age": 75, "sex": "male"},
		map[string]any{"age": 43, "sex": "female"},
	).OrderBy("-sex", "age")

	records, err := q.List()
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	var got []any
	for _, rec := range records {
		age, _ := Attr(rec, "age")
		got = append(got, age)
	}
	if !reflect.DeepEqual(got, []any{75, 24, 43}) {
		t.Errorf("expected ages [75 24 43], got %v", got)
	}
}

func TestOrderByThenReverse(t *testing.T) {
	reversed := names(t, New(people()...).OrderBy("name").Reverse())
	inverted := names(t, New(people()...).OrderBy("-name"))
	if !reflect.DeepEqual(reversed, inverted) {
		t.Errorf("OrderBy+Reverse %v differs from inverted direction %v", reversed, inverted)
	}
}

func TestOrderByMissingAttributeAborts(t *testing.T) {
	q := New(people()...).OrderBy("shoe_size")
	if _, err := q.List(); !errors.Is(err, ErrAttrNotFound) {
		t.Errorf("expected ErrAttrNotFound, got %v", err)
	}
}

func TestOrderByIncomparableAborts(t *testing.T) {
	q := New(
		map[string]any{"v": 1},
		map[string]any{"v": []int{2}},
	).OrderBy("v")
	if _, err := q.List(); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestOrderByNoKeys(t *testing.T) {
	q := New(people()...).OrderBy()
	if !errors.Is(q.Err(), ErrInvalidLookup) {
		t.Errorf("expected recipe error, got %v", q.Err())
	}
}

func TestReverse(t *testing.T) {
	got := nums(t, New(intRecords(4)...).Reverse())
	if !reflect.DeepEqual(got, []int{3, 2, 1, 0}) {
		t.Errorf("expected [3 2 1 0], got %v", got)
	}
}

func TestReverseAfterFilter(t *testing.T) {
	// Reverse applies to the filtered sequence, not the raw source.
	got := nums(t, New(intRecords(6)...).Filter(Lookups{"n__lt": 3}).Reverse())
	if !reflect.DeepEqual(got, []int{2, 1, 0}) {
		t.Errorf("expected [2 1 0], got %v", got)
	}
}

func TestExhaustedSource(t *testing.T) {
	q := FromFunc(countingSource(3, new(int)))
	if _, err := q.List(); err != nil {
		t.Fatalf("first materialization failed: %v", err)
	}
	if _, err := q.List(); !errors.Is(err, ErrExhaustedSource) {
		t.Errorf("expected ErrExhaustedSource, got %v", err)
	}
}

func TestChainingDoesNotPullSource(t *testing.T) {
	pulls := 0
	q := FromFunc(countingSource(5, &pulls)).
		Filter(Lookups{"n__gt": 1}).
		Exclude(Lookups{"n": 4}).
		OrderBy("n").
		Reverse().
		Slice(0, 2, 1)
	if pulls != 0 {
		t.Fatalf("chaining touched the source: %d pulls", pulls)
	}
	got := nums(t, q)
	if !reflect.DeepEqual(got, []int{3, 2}) {
		t.Errorf("unexpected result: %v", got)
	}
}
