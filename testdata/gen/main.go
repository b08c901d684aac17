// Command gen writes the sample record files used by the docs and for
// trying oq against real parquet and avro inputs.
package main

import (
	"log"
	"os"

	goavro "github.com/linkedin/goavro/v2"
	parquet "github.com/parquet-go/parquet-go"
)

type Person struct {
	Name   string `parquet:"name"`
	Age    int32  `parquet:"age"`
	Sex    string `parquet:"sex"`
	Height int32  `parquet:"height"`
	Weight int32  `parquet:"weight"`
}

var people = []Person{
	{"Alice", 24, "female", 164, 60},
	{"Bob", 75, "male", 178, 72},
	{"Carol", 43, "female", 170, 64},
	{"Dave", 31, "male", 182, 80},
	{"Eve", 58, "female", 166, 61},
	{"Frank", 43, "male", 190, 77},
}

const avroSchema = `{
	"type": "record",
	"name": "Person",
	"fields": [
		{"name": "name", "type": "string"},
		{"name": "age", "type": "long"},
		{"name": "sex", "type": "string"},
		{"name": "height", "type": "long"},
		{"name": "weight", "type": "long"}
	]
}`

func main() {
	if err := writeParquet("testdata/people.parquet"); err != nil {
		log.Fatal(err)
	}
	if err := writeAvro("testdata/people.avro"); err != nil {
		log.Fatal(err)
	}
}

func writeParquet(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := parquet.NewWriter(f)
	for _, p := range people {
		if err := w.Write(p); err != nil {
			return err
		}
	}
	return w.Close()
}

func writeAvro(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	ocfw, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:      f,
		Schema: avroSchema,
	})
	if err != nil {
		return err
	}

	records := make([]any, len(people))
	for i, p := range people {
		records[i] = map[string]any{
			"name":   p.Name,
			"age":    int64(p.Age),
			"sex":    p.Sex,
			"height": int64(p.Height),
			"weight": int64(p.Weight),
		}
	}
	return ocfw.Append(records)
}
