package export

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONExporter renders a dataset as an array of objects keyed by header.
type JSONExporter struct{}

// NewJSONExporter builds a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Render keeps header order inside every object.
func (e *JSONExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate("json"); err != nil {
		return nil, err
	}
	keys := make([][]byte, len(data.Headers))
	for i, h := range data.Headers {
		k, err := json.Marshal(h)
		if err != nil {
			return nil, fmt.Errorf("encode json key: %w", err)
		}
		keys[i] = k
	}

	buf := &bytes.Buffer{}
	buf.WriteByte('[')
	for r, row := range data.Rows {
		if r > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for i, value := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			v, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("encode json value: %w", err)
			}
			buf.Write(keys[i])
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
