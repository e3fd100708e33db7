package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lgbarn/cql-go/internal/config"
)

// QueryWriter is the interface for writing compiled queries to output.
// Different implementations handle different output formats.
type QueryWriter interface {
	// WriteQuery writes a single query document.
	WriteQuery(doc *Document) error

	// Flush flushes any buffered data to the underlying writer.
	Flush() error

	// Close closes the writer and releases any resources.
	// For batch writers (like JSON), this also writes any pending output.
	Close() error
}

// NewWriter returns the writer for format.
func NewWriter(w io.Writer, format config.OutputFormat) QueryWriter {
	switch format {
	case config.JSON:
		return NewJSONWriter(w)
	case config.YAML:
		return NewYAMLWriter(w)
	}
	return NewTextWriter(w)
}

// TextWriter writes each query as its s-expression followed by the
// definition table.
type TextWriter struct {
	w     io.Writer
	count int
}

// NewTextWriter creates a new text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// WriteQuery writes a query in text form. Queries after the first are
// preceded by a blank line.
func (tw *TextWriter) WriteQuery(doc *Document) error {
	var sb strings.Builder
	if tw.count > 0 {
		sb.WriteString("\n")
	}
	tw.count++

	if doc.Name != "" {
		fmt.Fprintf(&sb, "== %s\n", doc.Name)
	}
	sb.WriteString(doc.Query + "\n")
	fmt.Fprintf(&sb, "type: %s\n", doc.Type)

	if len(doc.Definitions) > 0 {
		sb.WriteString("definitions:\n")
		for _, d := range doc.Definitions {
			sb.WriteString("  " + formatDefinition(d) + "\n")
		}
	}

	if len(doc.Tokens) > 0 {
		sb.WriteString("tokens:\n")
		for _, t := range doc.Tokens {
			fmt.Fprintf(&sb, "  %d:%d %s %s %q\n", t.Line, t.Column, t.Type, t.Kind, t.Literal)
		}
	}

	_, err := io.WriteString(tw.w, sb.String())
	return err
}

func formatDefinition(d DefinitionDoc) string {
	switch d.Kind {
	case "Function":
		return fmt.Sprintf("function %s(%s)", d.Name, strings.Join(d.Parameters, " "))
	case "Dictionary":
		return fmt.Sprintf("dictionary %s: type=%s key=%s persistence=%s", d.Name, d.Type, d.KeyType, d.Persistence)
	}
	return fmt.Sprintf("variable %s: type=%s var=%s persistence=%s", d.Name, d.Type, d.VariableType, d.Persistence)
}

// Flush is a no-op; text is written immediately.
func (tw *TextWriter) Flush() error {
	return nil
}

// Close closes the text writer.
func (tw *TextWriter) Close() error {
	return nil
}

// JSONOutput holds multiple queries for array output.
type JSONOutput struct {
	Queries []*Document `json:"queries"`
}

// JSONWriter writes queries in JSON format.
// It buffers queries and writes them as a JSON array on Close or Flush.
type JSONWriter struct {
	w       io.Writer
	queries []*Document
	single  bool // If true, write each query immediately instead of batching
}

// NewJSONWriter creates a new JSON writer.
// By default, it batches queries and writes them as an array on Close().
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{
		w:       w,
		queries: make([]*Document, 0),
	}
}

// NewJSONWriterSingle creates a JSON writer that writes each query immediately.
func NewJSONWriterSingle(w io.Writer) *JSONWriter {
	return &JSONWriter{
		w:      w,
		single: true,
	}
}

func (jw *JSONWriter) encoder() *json.Encoder {
	enc := json.NewEncoder(jw.w)
	enc.SetIndent("", "  ")
	// Operators such as < and & stay readable.
	enc.SetEscapeHTML(false)
	return enc
}

// WriteQuery buffers a query for JSON output (or writes immediately in single mode).
func (jw *JSONWriter) WriteQuery(doc *Document) error {
	if jw.single {
		return jw.encoder().Encode(doc)
	}

	// Buffer for batch output
	jw.queries = append(jw.queries, doc)
	return nil
}

// Flush writes all buffered queries as a JSON array.
func (jw *JSONWriter) Flush() error {
	if jw.single || len(jw.queries) == 0 {
		return nil
	}

	err := jw.encoder().Encode(&JSONOutput{Queries: jw.queries})

	// Clear buffer after writing
	jw.queries = jw.queries[:0]

	return err
}

// Close flushes and closes the JSON writer.
func (jw *JSONWriter) Close() error {
	return jw.Flush()
}

// YAMLWriter writes each query as its own YAML document.
type YAMLWriter struct {
	enc *yaml.Encoder
}

// NewYAMLWriter creates a new YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &YAMLWriter{enc: enc}
}

// WriteQuery writes a query as a YAML document. Documents after the
// first are separated by "---".
func (yw *YAMLWriter) WriteQuery(doc *Document) error {
	return yw.enc.Encode(doc)
}

// Flush is a no-op; the encoder writes each document as it is encoded.
func (yw *YAMLWriter) Flush() error {
	return nil
}

// Close finishes the YAML stream.
func (yw *YAMLWriter) Close() error {
	return yw.enc.Close()
}
