package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/fastertools/placeops/internal/api"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

// ParseOutputFormat validates a --output value
func ParseOutputFormat(format string) (OutputFormat, error) {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return OutputFormat(format), nil
	default:
		return "", fmt.Errorf("invalid output format: %s (use 'table', 'json' or 'yaml')", format)
	}
}

// DataWriter handles formatted output of structured data
type DataWriter struct {
	output io.Writer
	format OutputFormat
}

// NewDataWriter creates a new DataWriter
func NewDataWriter(output io.Writer, format OutputFormat) *DataWriter {
	return &DataWriter{
		output: output,
		format: format,
	}
}

// WriteTable writes tabular data with headers. Structured formats encode
// data instead of the rendered rows.
func (dw *DataWriter) WriteTable(headers []string, rows [][]string, data interface{}) error {
	switch dw.format {
	case OutputFormatJSON:
		return dw.writeJSON(data)
	case OutputFormatYAML:
		return dw.writeYAML(data)
	case OutputFormatTable:
		return dw.writeTabularData(headers, rows)
	default:
		return fmt.Errorf("unsupported output format: %s", dw.format)
	}
}

// WriteKeyValue writes ordered key-value pairs, or data in structured formats
func (dw *DataWriter) WriteKeyValue(title string, pairs []keyValue, data interface{}) error {
	switch dw.format {
	case OutputFormatJSON:
		return dw.writeJSON(data)
	case OutputFormatYAML:
		return dw.writeYAML(data)
	case OutputFormatTable:
		return dw.writeKeyValueTable(title, pairs)
	default:
		return fmt.Errorf("unsupported output format: %s", dw.format)
	}
}

// writeJSON writes data as JSON
func (dw *DataWriter) writeJSON(data interface{}) error {
	encoder := json.NewEncoder(dw.output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// writeYAML writes data as YAML
func (dw *DataWriter) writeYAML(data interface{}) error {
	encoder := yaml.NewEncoder(dw.output)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// writeKeyValueTable writes key-value pairs as an aligned table
func (dw *DataWriter) writeKeyValueTable(title string, pairs []keyValue) error {
	if title != "" {
		_, _ = fmt.Fprintln(dw.output)
		_, _ = fmt.Fprintln(dw.output, title)
	}

	w := tabwriter.NewWriter(dw.output, 0, 0, 2, ' ', 0)
	for _, kv := range pairs {
		if kv.value == nil || kv.value == "" {
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s:\t%v\t\n", kv.key, kv.value)
	}

	_ = w.Flush()
	_, _ = fmt.Fprintln(dw.output)
	return nil
}

// writeTabularData writes headers and rows as a table
func (dw *DataWriter) writeTabularData(headers []string, rows [][]string) error {
	_, _ = fmt.Fprintln(dw.output)

	w := tabwriter.NewWriter(dw.output, 0, 0, 2, ' ', 0)

	for i, header := range headers {
		_, _ = fmt.Fprint(w, header)
		if i < len(headers)-1 {
			_, _ = fmt.Fprint(w, "\t")
		}
	}
	_, _ = fmt.Fprintln(w, "\t") // Trailing tab for proper termination

	for _, row := range rows {
		for i, cell := range row {
			_, _ = fmt.Fprint(w, cell)
			if i < len(row)-1 {
				_, _ = fmt.Fprint(w, "\t")
			}
		}
		_, _ = fmt.Fprintln(w, "\t")
	}

	_ = w.Flush()
	_, _ = fmt.Fprintln(dw.output)
	return nil
}

type keyValue struct {
	key   string
	value interface{}
}

// KeyValueBuilder helps build key-value data in insertion order
type KeyValueBuilder struct {
	title string
	pairs []keyValue
}

// NewKeyValueBuilder creates a new KeyValueBuilder
func NewKeyValueBuilder(title string) *KeyValueBuilder {
	return &KeyValueBuilder{title: title}
}

// Add adds a key-value pair
func (kvb *KeyValueBuilder) Add(key string, value interface{}) *KeyValueBuilder {
	kvb.pairs = append(kvb.pairs, keyValue{key: key, value: value})
	return kvb
}

// AddIf conditionally adds a key-value pair
func (kvb *KeyValueBuilder) AddIf(condition bool, key string, value interface{}) *KeyValueBuilder {
	if condition {
		kvb.Add(key, value)
	}
	return kvb
}

// Write outputs the pairs, or data in structured formats
func (kvb *KeyValueBuilder) Write(dw *DataWriter, data interface{}) error {
	return dw.WriteKeyValue(kvb.title, kvb.pairs, data)
}

// writePlaces renders a listing
func writePlaces(dw *DataWriter, places []api.Place) error {
	rows := make([][]string, 0, len(places))
	for _, p := range places {
		root := ""
		if p.IsRootPlace {
			root = "yes"
		}
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			strconv.Itoa(p.MaxPlayerCount),
			strconv.Itoa(p.CurrentSavedVersion),
			root,
		})
	}
	return dw.WriteTable([]string{"ID", "NAME", "MAX PLAYERS", "VERSION", "ROOT"}, rows, places)
}

// writePlace renders the details of one place
func writePlace(dw *DataWriter, place *api.Place) error {
	kvb := NewKeyValueBuilder("Place Details")
	kvb.Add("ID", place.ID)
	kvb.Add("Name", place.Name)
	kvb.Add("Description", place.Description)
	kvb.Add("MaxPlayers", place.MaxPlayerCount)
	kvb.Add("AllowCopying", place.AllowCopying)
	kvb.Add("RootPlace", place.IsRootPlace)
	kvb.Add("SavedVersion", place.CurrentSavedVersion)
	return kvb.Write(dw, place)
}
