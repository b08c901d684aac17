package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/objquery/oq/engine"
	"github.com/objquery/oq/loader"
	"github.com/objquery/oq/parser"
	"github.com/objquery/oq/query"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: oq '<query>'")
		fmt.Fprintln(os.Stderr, "example: oq 'people.json | filter age__ge=30 | order_by -sex age | head 5'")
		os.Exit(1)
	}

	pipeline := os.Args[1]

	q, err := parser.Parse(pipeline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		os.Exit(1)
	}

	// Load the source file
	records, err := loader.Load(q.Source.Filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load error: %v\n", err)
		os.Exit(1)
	}

	// Bind the pipeline onto a lazy chain and materialize it
	results, err := engine.Execute(q, query.FromSlice(records))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	printRecords(results)
}

// printRecords renders records as an aligned text table. Columns are the
// sorted union of map keys across all result records.
func printRecords(records []query.Record) {
	if len(records) == 0 {
		return
	}

	colSet := make(map[string]bool)
	for _, rec := range records {
		m, ok := query.Unwrap(rec).(map[string]any)
		if !ok {
			// Non-map records print one per line
			for _, r := range records {
				fmt.Println(formatCell(r))
			}
			return
		}
		for k := range m {
			colSet[k] = true
		}
	}

	columns := make([]string, 0, len(colSet))
	for k := range colSet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	// Calculate column widths
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}

	cells := make([][]string, len(records))
	for i, rec := range records {
		m := query.Unwrap(rec).(map[string]any)
		cells[i] = make([]string, len(columns))
		for j, col := range columns {
			v, ok := m[col]
			if !ok {
				cells[i][j] = "null"
			} else {
				cells[i][j] = formatCell(v)
			}
			if len(cells[i][j]) > widths[j] {
				widths[j] = len(cells[i][j])
			}
		}
	}

	// Print header
	headerParts := make([]string, len(columns))
	for i, col := range columns {
		headerParts[i] = padRight(col, widths[i])
	}
	fmt.Println(strings.Join(headerParts, " | "))

	// Print separator
	sepParts := make([]string, len(columns))
	for i := range columns {
		sepParts[i] = strings.Repeat("-", widths[i])
	}
	fmt.Println(strings.Join(sepParts, "-+-"))

	// Print rows
	for _, row := range cells {
		parts := make([]string, len(columns))
		for i := range columns {
			parts[i] = padRight(row[i], widths[i])
		}
		fmt.Println(strings.Join(parts, " | "))
	}
}

func formatCell(v any) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
