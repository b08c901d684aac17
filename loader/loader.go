// Package loader reads record files into root iterables for the query
// engine. Records come back as map[string]any with nested objects and
// arrays preserved, so nested lookup paths and membership comparators work
// against them.
package loader

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	goavro "github.com/linkedin/goavro/v2"
	parquet "github.com/parquet-go/parquet-go"

	"github.com/objquery/oq/query"
)

// Load reads a file and returns its records.
func Load(filename string) ([]query.Record, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return loadCSV(filename)
	case ".json":
		return loadJSON(filename)
	case ".jsonl":
		return loadJSONL(filename)
	case ".avro":
		return loadAvro(filename)
	case ".parquet":
		return loadParquet(filename)
	default:
		return nil, fmt.Errorf("unsupported file format %q (supported: .csv, .json, .jsonl, .avro, .parquet)", ext)
	}
}

func loadCSV(filename string) ([]query.Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", filename, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read CSV header from %s: %w", filename, err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var records []query.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV row: %w", err)
		}

		rec := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(row) {
				rec[col] = parseValue(strings.TrimSpace(row[i]))
			} else {
				rec[col] = nil
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// parseValue infers the type of a CSV cell value.
func parseValue(s string) any {
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}

	lower := strings.ToLower(s)
	if lower == "true" {
		return true
	}
	if lower == "false" {
		return false
	}

	return s
}

func loadJSON(filename string) ([]query.Record, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", filename, err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cannot parse JSON from %s: %w (expected array of objects)", filename, err)
	}

	records := make([]query.Record, len(raw))
	for i, rec := range raw {
		records[i] = jsonRecord(rec)
	}
	return records, nil
}

func loadJSONL(filename string) ([]query.Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", filename, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var records []query.Record
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("invalid JSON on line %d: %w", lineNum, err)
		}
		records = append(records, jsonRecord(rec))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", filename, err)
	}

	return records, nil
}

func jsonRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = jsonValue(v)
	}
	return out
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case float64:
		// JSON numbers are float64; keep whole numbers as ints
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case map[string]any:
		return jsonRecord(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = jsonValue(e)
		}
		return out
	default:
		return val
	}
}

func loadAvro(filename string) ([]query.Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", filename, err)
	}
	defer f.Close()

	ocfr, err := goavro.NewOCFReader(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read Avro OCF from %s: %w", filename, err)
	}

	var records []query.Record
	for ocfr.Scan() {
		datum, err := ocfr.Read()
		if err != nil {
			return nil, fmt.Errorf("error reading Avro record: %w", err)
		}

		rec, ok := datum.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected Avro record type %T", datum)
		}

		out := make(map[string]any, len(rec))
		for k, v := range rec {
			out[k] = avroValue(v)
		}
		records = append(records, out)
	}

	if err := ocfr.Err(); err != nil {
		return nil, fmt.Errorf("error reading Avro file: %w", err)
	}

	return records, nil
}

// avroUnionKeys are the type names goavro uses for decoded union values.
// A single-entry map under one of these keys is a union wrapper, not a
// nested record.
var avroUnionKeys = map[string]bool{
	"null": true, "boolean": true, "int": true, "long": true,
	"float": true, "double": true, "bytes": true, "string": true,
}

func avroValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int32:
		return int64(val)
	case int64:
		return val
	case float32:
		return float64(val)
	case float64:
		return val
	case string:
		return val
	case bool:
		return val
	case []byte:
		return string(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = avroValue(e)
		}
		return out
	case map[string]any:
		if len(val) == 1 {
			for k, inner := range val {
				if avroUnionKeys[k] || strings.Contains(k, ".") {
					return avroValue(inner)
				}
			}
		}
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = avroValue(inner)
		}
		return out
	default:
		return fmt.Sprintf("%v", val)
	}
}

// loadParquet reads flat parquet schemas; one leaf column per record
// attribute.
func loadParquet(filename string) ([]query.Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", filename, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", filename, err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("cannot read parquet file %s: %w", filename, err)
	}

	fields := pf.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
	}

	var records []query.Record
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		buf := make([]parquet.Row, 64)
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				rec := make(map[string]any, len(names))
				for _, v := range row {
					col := v.Column()
					if col >= 0 && col < len(names) {
						rec[names[col]] = parquetValue(v)
					}
				}
				records = append(records, rec)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("error reading parquet rows: %w", err)
			}
			if n == 0 {
				break
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("error closing parquet row reader: %w", err)
		}
	}

	return records, nil
}

func parquetValue(v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
