package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

// Printer writes command results in one output format.
type Printer struct {
	w      io.Writer
	format Format
}

// NewPrinter creates a new Printer that writes to w in the given format.
func NewPrinter(w io.Writer, format Format) *Printer {
	return &Printer{w: w, format: format}
}

// Print outputs data in the configured format. A --query from ctx filters
// json, ndjson and yaml output.
func (p *Printer) Print(ctx context.Context, data interface{}) error {
	if data == nil {
		return nil
	}

	switch p.format {
	case FormatJSON:
		return p.emit(ctx, data, p.printJSON)
	case FormatNDJSON:
		return p.emit(ctx, data, p.printNDJSON)
	case FormatYAML:
		return p.emit(ctx, data, p.printYAML)
	case FormatTable, FormatText:
		if t, ok := asTable(data); ok {
			return p.printTable(t)
		}
		return p.printText(data)
	default:
		return fmt.Errorf("unsupported format: %s", p.format)
	}
}

// emit runs the query, if any, and hands every result to write.
func (p *Printer) emit(ctx context.Context, data interface{}, write func(interface{}) error) error {
	query := QueryFromContext(ctx)
	if query == "" {
		return write(data)
	}
	results, err := RunQuery(query, data)
	if err != nil {
		return err
	}
	for _, v := range results {
		if err := write(v); err != nil {
			return err
		}
	}
	return nil
}

// RunQuery evaluates a jq expression against data. Data is normalised
// through JSON first so struct tags decide the field names jq sees.
func RunQuery(query string, data interface{}) ([]interface{}, error) {
	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("invalid --query: %w", err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("invalid --query: %w", err)
	}

	input, err := normalize(data)
	if err != nil {
		return nil, err
	}

	var results []interface{}
	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("query error: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

func normalize(data interface{}) (interface{}, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding query input: %w", err)
	}
	var v interface{}
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding query input: %w", err)
	}
	return v, nil
}

func (p *Printer) printJSON(data interface{}) error {
	enc := json.NewEncoder(p.w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// printNDJSON writes one line per element of a list, or one line otherwise.
func (p *Printer) printNDJSON(data interface{}) error {
	enc := json.NewEncoder(p.w)
	enc.SetEscapeHTML(false)

	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		for i := 0; i < v.Len(); i++ {
			if err := enc.Encode(v.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	}
	return enc.Encode(data)
}

func (p *Printer) printYAML(data interface{}) error {
	// yaml.v3 ignores json tags, so encode the JSON shape.
	v, err := normalize(data)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(v)
}

func asTable(data interface{}) (Table, bool) {
	switch t := data.(type) {
	case Table:
		return t, true
	case *Table:
		if t != nil {
			return *t, true
		}
	}
	return Table{}, false
}

func (p *Printer) printTable(t Table) error {
	if len(t.Rows) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(w, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

// printText renders maps and structs as "key: value" lines and lists as one
// item per line. Nested values are shown as compact JSON.
func (p *Printer) printText(data interface{}) error {
	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map, reflect.Struct:
		fields, err := normalize(data)
		if err != nil {
			return err
		}
		m, ok := fields.(map[string]interface{})
		if !ok {
			return p.printLine(fields)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		if v.Kind() == reflect.Struct {
			keys = structOrder(v.Type(), keys)
		} else {
			sort.Strings(keys)
		}
		for _, k := range keys {
			if _, err := fmt.Fprintf(p.w, "%s: %s\n", k, textValue(m[k])); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			item, err := normalize(v.Index(i).Interface())
			if err != nil {
				return err
			}
			if err := p.printLine(item); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintln(p.w, v.Interface())
		return err
	}
}

func (p *Printer) printLine(v interface{}) error {
	_, err := fmt.Fprintln(p.w, textValue(v))
	return err
}

func textValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]interface{}, []interface{}:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	default:
		return fmt.Sprint(t)
	}
}

// structOrder sorts keys by field position in t. Unknown keys go last in
// alphabetical order.
func structOrder(t reflect.Type, keys []string) []string {
	pos := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Name
		if tag := f.Tag.Get("json"); tag != "" {
			if head := strings.Split(tag, ",")[0]; head != "" {
				name = head
			}
		}
		pos[name] = i
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, iok := pos[keys[i]]
		pj, jok := pos[keys[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}
