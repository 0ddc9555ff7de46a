// Package export renders tabular datasets into downloadable files.
package export

import "fmt"

// Dataset defines tabular export content. Every row carries one value per header, in header order.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Renderer turns a dataset into file bytes.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

func (d Dataset) validate(kind string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", kind)
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("%s row %d has %d values, want %d", kind, i, len(row), len(d.Headers))
		}
	}
	return nil
}
